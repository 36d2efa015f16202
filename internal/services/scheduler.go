package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"envelope/internal/amqp"
	"envelope/internal/core"
	"envelope/internal/ledger"
	"envelope/internal/recurrence"
)

// Scheduler materializes due recurring templates into concrete transactions.
//
// A pass mutates shared ledger state (appends transactions, advances template
// cursors) and is a single-writer critical section: callers run at most one
// pass at a time against a given Ledger.
type Scheduler struct {
	amqpClient *amqp.Client // nil disables event publishing
}

func NewScheduler(amqpClient *amqp.Client) *Scheduler {
	return &Scheduler{amqpClient: amqpClient}
}

// ProcessDue runs one materialization pass over every template. Each template
// produces at most one transaction per pass, even when multiple occurrences
// were missed: the cursor advances one step per pass, and repeated passes
// catch it up. Per-template failures are isolated and never abort the pass.
func (s *Scheduler) ProcessDue(ctx context.Context, led *ledger.Ledger, now time.Time) (int, error) {
	if led == nil {
		return 0, fmt.Errorf("scheduler has no ledger")
	}

	today := core.StartOfDay(now)
	slog.InfoContext(ctx, "Processing recurring templates",
		"total", len(led.Templates),
		"processing_date", today.Format("2006-01-02"))

	created := 0
	for _, tmpl := range led.Templates {
		if s.processTemplate(ctx, led, tmpl, today) {
			created++
		}
	}

	slog.InfoContext(ctx, "Recurring template processing complete",
		"created", created,
		"total_checked", len(led.Templates))

	return created, nil
}

func (s *Scheduler) processTemplate(ctx context.Context, led *ledger.Ledger, tmpl *core.RecurringTemplate, today time.Time) bool {
	next := core.StartOfDay(tmpl.NextScheduled)

	// Idempotence: an existing transaction from this template dated on or
	// after the cursor means an earlier pass already materialized it, even if
	// the cursor itself was never persisted.
	for _, tx := range led.Transactions {
		if tx.TemplateID == tmpl.ID && !core.StartOfDay(tx.Date).Before(next) {
			return false
		}
	}

	// Past the end date the template is permanently dormant; the cursor is
	// left untouched.
	if !tmpl.EndDate.IsZero() && next.After(core.StartOfDay(tmpl.EndDate)) {
		return false
	}

	if next.After(today) {
		return false // not yet due
	}

	tx, err := core.NewTransaction(next, tmpl.AccountID, core.Posting{
		ID:       core.NewID(),
		Amount:   tmpl.Amount,
		BudgetID: tmpl.BudgetID,
		Note:     tmpl.Note,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build transaction from template",
			"template_id", tmpl.ID,
			"error", err)
		return false
	}
	tx.PayeeID = tmpl.PayeeID
	tx.TemplateID = tmpl.ID

	if err := led.AddTransaction(tx); err != nil {
		slog.ErrorContext(ctx, "Failed to add materialized transaction",
			"template_id", tmpl.ID,
			"error", err)
		return false
	}

	// Advance the cursor one step. Malformed and exhausted rules resolve to
	// their defined fallbacks inside the recurrence package.
	tmpl.NextScheduled = recurrence.New(tmpl.Rule, tmpl.StartDate).NextAfter(next)

	s.publishCreated(ctx, led, tx)

	slog.InfoContext(ctx, "Materialized transaction from recurring template",
		"template_id", tmpl.ID,
		"transaction_id", tx.ID,
		"date", next.Format("2006-01-02"),
		"amount_cents", tmpl.Amount.Cents,
		"next_scheduled", tmpl.NextScheduled.Format("2006-01-02"))

	return true
}

func (s *Scheduler) publishCreated(ctx context.Context, led *ledger.Ledger, tx *core.Transaction) {
	if s.amqpClient == nil {
		return
	}

	msg := &amqp.TransactionCreatedMessage{
		TransactionID: tx.ID,
		TemplateID:    tx.TemplateID,
		Date:          core.StartOfDay(tx.Date).Format("2006-01-02"),
		AmountCents:   tx.Amount().Cents,
		Note:          tx.Postings[0].Note,
		Timestamp:     time.Now(),
	}
	if acc := led.AccountByID(tx.AccountID); acc != nil {
		msg.Account = acc.Name
	}
	if p := led.PayeeByID(tx.PayeeID); p != nil {
		msg.Payee = p.Name
	}
	if b := led.BudgetByID(tx.Postings[0].BudgetID); b != nil {
		msg.Budget = b.Name
	}

	if err := s.amqpClient.PublishTransactionCreated(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction created message",
			"transaction_id", tx.ID,
			"error", err)
		// Don't fail the pass - the transaction is in the ledger
	}
}

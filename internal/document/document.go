// Package document implements the persisted JSON boundary of the ledger:
// parsing a document into the aggregate, serializing it back with round-trip
// fidelity, and the one-way migration from the legacy posting-level payee
// shape.
package document

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

type documentJSON struct {
	Name                string            `json:"name"`
	Accounts            []accountJSON     `json:"accounts"`
	BudgetCategories    []categoryJSON    `json:"budget_categories"`
	Budgets             []budgetJSON      `json:"budgets"`
	Payees              []payeeJSON       `json:"payees"`
	Transactions        []transactionJSON `json:"transactions"`
	TransactionPostings []postingJSON     `json:"transaction_postings"`
	RecurringTemplates  []templateJSON    `json:"recurring_templates"`
	Assignments         []assignmentJSON  `json:"assignments"`
	Transfers           []transferJSON    `json:"transfers"`
	// Goals joined the document after the original shape was documented;
	// absent in legacy files, so never required on load.
	Goals []goalJSON `json:"goals,omitempty"`
}

type accountJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Archived bool   `json:"archived"`
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type budgetJSON struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CategoryID     *string `json:"budget_category_id"`
	IsToBeBudgeted bool    `json:"is_to_be_budgeted"`
}

type payeeJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type transactionJSON struct {
	ID         string   `json:"id"`
	AccountID  string   `json:"account_id"`
	PayeeID    *string  `json:"payee_id"`
	PostingIDs []string `json:"transaction_posting_ids"`
	Status     string   `json:"status"`
	Date       string   `json:"date"`
	TemplateID *string  `json:"recurring_template_id"`
}

type postingJSON struct {
	ID       string  `json:"id"`
	BudgetID *string `json:"budget_id"`
	Amount   int64   `json:"amount"`
	Note     string  `json:"note"`
	// Legacy shape only: migrated up to the transaction at load time and
	// never written back.
	PayeeID *string `json:"payee_id,omitempty"`
}

type templateJSON struct {
	ID            string  `json:"id"`
	RRuleString   string  `json:"rrule_string"`
	NextScheduled string  `json:"next_scheduled_date"`
	StartDate     string  `json:"start_date"`
	EndDate       *string `json:"end_date"`
	AccountID     string  `json:"account_id"`
	Amount        int64   `json:"amount"`
	BudgetID      string  `json:"budget_id"`
	PayeeID       string  `json:"payee_id"`
	Note          string  `json:"note"`
}

type assignmentJSON struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	BudgetID string `json:"budget_id"`
	Amount   int64  `json:"amount"`
}

type transferJSON struct {
	ID            string  `json:"id"`
	FromAccountID string  `json:"from_account_id"`
	ToAccountID   string  `json:"to_account_id"`
	Amount        int64   `json:"amount"`
	FromStatus    string  `json:"from_status"`
	ToStatus      string  `json:"to_status"`
	Date          string  `json:"date"`
	Note          string  `json:"note"`
	BudgetID      *string `json:"budget_id"`
}

type goalJSON struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	TargetAmount int64  `json:"target_amount"`
	BudgetID     string `json:"budget_id"`
	IsArchived   bool   `json:"is_archived"`
	CreatedAt    string `json:"created_at"`
}

// requiredCollections are the top-level arrays a document must carry; a
// missing one rejects the whole load rather than partially loading.
var requiredCollections = []string{
	"accounts",
	"budget_categories",
	"budgets",
	"payees",
	"transactions",
	"transaction_postings",
	"recurring_templates",
	"assignments",
	"transfers",
}

// Load parses a persisted document into a Ledger. Dangling references are
// tolerated and resolve to nil at query time; an invalid document shape is
// fatal for the whole load.
func Load(data []byte) (*ledger.Ledger, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	for _, key := range requiredCollections {
		if _, ok := shape[key]; !ok {
			return nil, fmt.Errorf("invalid document: missing required collection %q", key)
		}
	}

	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	migrateLegacyPayees(&doc)

	led := ledger.New(doc.Name)

	for _, a := range doc.Accounts {
		led.AddAccount(&core.Account{
			ID:       a.ID,
			Name:     a.Name,
			Type:     core.AccountType(a.Type),
			Archived: a.Archived,
		})
	}
	for _, c := range doc.BudgetCategories {
		led.AddBudgetCategory(&core.BudgetCategory{ID: c.ID, Name: c.Name})
	}
	for _, b := range doc.Budgets {
		led.AddBudget(&core.Budget{
			ID:         b.ID,
			Name:       b.Name,
			CategoryID: deref(b.CategoryID),
			Inflow:     b.IsToBeBudgeted,
		})
	}
	for _, g := range doc.Goals {
		goal := &core.Goal{
			ID:       g.ID,
			Type:     core.GoalType(g.Type),
			Target:   core.Money{Cents: g.TargetAmount},
			BudgetID: g.BudgetID,
			Archived: g.IsArchived,
		}
		if t, err := parseDate(g.CreatedAt); err == nil {
			goal.CreatedAt = t
		}
		if b := led.BudgetByID(g.BudgetID); b != nil {
			b.Goal = goal
		} else {
			slog.Warn("Goal references unknown budget, dropping", "goal_id", g.ID, "budget_id", g.BudgetID)
		}
	}
	for _, p := range doc.Payees {
		led.AddPayee(&core.Payee{ID: p.ID, Name: p.Name})
	}

	postings := make(map[string]postingJSON, len(doc.TransactionPostings))
	for _, p := range doc.TransactionPostings {
		postings[p.ID] = p
	}

	for _, t := range doc.Transactions {
		date, err := parseDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}

		owned := make([]core.Posting, 0, len(t.PostingIDs))
		for _, pid := range t.PostingIDs {
			p, ok := postings[pid]
			if !ok {
				slog.Warn("Transaction references unknown posting, skipping posting",
					"transaction_id", t.ID, "posting_id", pid)
				continue
			}
			owned = append(owned, core.Posting{
				ID:       p.ID,
				Amount:   core.Money{Cents: p.Amount},
				BudgetID: deref(p.BudgetID),
				Note:     p.Note,
			})
		}
		if len(owned) == 0 {
			slog.Warn("Transaction has no resolvable postings, skipping", "transaction_id", t.ID)
			continue
		}

		tx := &core.Transaction{
			ID:         t.ID,
			Date:       date,
			AccountID:  t.AccountID,
			PayeeID:    deref(t.PayeeID),
			Status:     core.TransactionStatus(t.Status),
			Postings:   owned,
			TemplateID: deref(t.TemplateID),
		}
		if err := led.AddTransaction(tx); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}

	for _, rt := range doc.RecurringTemplates {
		start, err := parseDate(rt.StartDate)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", rt.ID, err)
		}
		next, err := parseDate(rt.NextScheduled)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", rt.ID, err)
		}
		tmpl := &core.RecurringTemplate{
			ID:            rt.ID,
			Rule:          rt.RRuleString,
			NextScheduled: core.StartOfDay(next),
			StartDate:     core.StartOfDay(start),
			AccountID:     rt.AccountID,
			PayeeID:       rt.PayeeID,
			BudgetID:      rt.BudgetID,
			Amount:        core.Money{Cents: rt.Amount},
			Note:          rt.Note,
		}
		if rt.EndDate != nil {
			end, err := parseDate(*rt.EndDate)
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", rt.ID, err)
			}
			tmpl.EndDate = core.StartOfDay(end)
		}
		led.AddTemplate(tmpl)
	}

	for _, a := range doc.Assignments {
		date, err := parseDate(a.Date)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		led.AddAssignment(&core.Assignment{
			ID:       a.ID,
			Date:     date,
			BudgetID: a.BudgetID,
			Amount:   core.Money{Cents: a.Amount},
		})
	}

	for _, tr := range doc.Transfers {
		date, err := parseDate(tr.Date)
		if err != nil {
			return nil, fmt.Errorf("transfer %s: %w", tr.ID, err)
		}
		if err := led.AddTransfer(&core.Transfer{
			ID:            tr.ID,
			Date:          date,
			FromAccountID: tr.FromAccountID,
			ToAccountID:   tr.ToAccountID,
			Amount:        core.Money{Cents: tr.Amount},
			FromStatus:    core.TransactionStatus(tr.FromStatus),
			ToStatus:      core.TransactionStatus(tr.ToStatus),
			Note:          tr.Note,
			BudgetID:      deref(tr.BudgetID),
		}); err != nil {
			return nil, fmt.Errorf("transfer %s: %w", tr.ID, err)
		}
	}

	return led, nil
}

// Save serializes a ledger back into the documented JSON shape.
func Save(led *ledger.Ledger) ([]byte, error) {
	doc := documentJSON{
		Name:                led.Name,
		Accounts:            []accountJSON{},
		BudgetCategories:    []categoryJSON{},
		Budgets:             []budgetJSON{},
		Payees:              []payeeJSON{},
		Transactions:        []transactionJSON{},
		TransactionPostings: []postingJSON{},
		RecurringTemplates:  []templateJSON{},
		Assignments:         []assignmentJSON{},
		Transfers:           []transferJSON{},
	}

	for _, a := range led.Accounts {
		doc.Accounts = append(doc.Accounts, accountJSON{
			ID: a.ID, Name: a.Name, Type: string(a.Type), Archived: a.Archived,
		})
	}
	for _, c := range led.BudgetCategories {
		doc.BudgetCategories = append(doc.BudgetCategories, categoryJSON{ID: c.ID, Name: c.Name})
	}
	for _, b := range led.Budgets {
		doc.Budgets = append(doc.Budgets, budgetJSON{
			ID: b.ID, Name: b.Name, CategoryID: optional(b.CategoryID), IsToBeBudgeted: b.Inflow,
		})
		if b.Goal != nil {
			doc.Goals = append(doc.Goals, goalJSON{
				ID:           b.Goal.ID,
				Type:         string(b.Goal.Type),
				TargetAmount: b.Goal.Target.Cents,
				BudgetID:     b.Goal.BudgetID,
				IsArchived:   b.Goal.Archived,
				CreatedAt:    b.Goal.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	for _, p := range led.Payees {
		doc.Payees = append(doc.Payees, payeeJSON{ID: p.ID, Name: p.Name})
	}

	for _, tx := range led.Transactions {
		ids := make([]string, 0, len(tx.Postings))
		for _, p := range tx.Postings {
			ids = append(ids, p.ID)
			doc.TransactionPostings = append(doc.TransactionPostings, postingJSON{
				ID:       p.ID,
				BudgetID: optional(p.BudgetID),
				Amount:   p.Amount.Cents,
				Note:     p.Note,
			})
		}
		doc.Transactions = append(doc.Transactions, transactionJSON{
			ID:         tx.ID,
			AccountID:  tx.AccountID,
			PayeeID:    optional(tx.PayeeID),
			PostingIDs: ids,
			Status:     string(tx.Status),
			Date:       tx.Date.UTC().Format(time.RFC3339),
			TemplateID: optional(tx.TemplateID),
		})
	}

	for _, t := range led.Templates {
		tj := templateJSON{
			ID:            t.ID,
			RRuleString:   t.Rule,
			NextScheduled: t.NextScheduled.UTC().Format(time.RFC3339),
			StartDate:     t.StartDate.UTC().Format(time.RFC3339),
			AccountID:     t.AccountID,
			Amount:        t.Amount.Cents,
			BudgetID:      t.BudgetID,
			PayeeID:       t.PayeeID,
			Note:          t.Note,
		}
		if !t.EndDate.IsZero() {
			end := t.EndDate.UTC().Format(time.RFC3339)
			tj.EndDate = &end
		}
		doc.RecurringTemplates = append(doc.RecurringTemplates, tj)
	}

	for _, a := range led.Assignments {
		doc.Assignments = append(doc.Assignments, assignmentJSON{
			ID: a.ID, Date: a.Date.UTC().Format(time.RFC3339), BudgetID: a.BudgetID, Amount: a.Amount.Cents,
		})
	}

	for _, tr := range led.Transfers {
		doc.Transfers = append(doc.Transfers, transferJSON{
			ID:            tr.ID,
			FromAccountID: tr.FromAccountID,
			ToAccountID:   tr.ToAccountID,
			Amount:        tr.Amount.Cents,
			FromStatus:    string(tr.FromStatus),
			ToStatus:      string(tr.ToStatus),
			Date:          tr.Date.UTC().Format(time.RFC3339),
			Note:          tr.Note,
			BudgetID:      optional(tr.BudgetID),
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

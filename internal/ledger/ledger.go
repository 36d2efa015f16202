// Package ledger holds the aggregate root of the budgeting engine: every
// entity collection plus the balance and availability queries derived from
// them.
//
// The aggregate is a single-writer structure. Mutations are synchronous and
// atomic; callers that share a Ledger across goroutines serialize access
// themselves (the HTTP server holds a mutex, the workers are sole writers).
// Every mutation bumps a monotonic version counter after it completes, so
// observers polling the version never see a partially applied change.
package ledger

import (
	"envelope/internal/core"
)

// PostingRef locates a posting inside its owning transaction. The index is
// derived state: postings live only inside transactions, never in a second
// authoritative collection.
type PostingRef struct {
	Transaction *core.Transaction
	Index       int
}

type Ledger struct {
	Name string

	Accounts         []*core.Account
	BudgetCategories []*core.BudgetCategory
	Budgets          []*core.Budget
	Payees           []*core.Payee
	Transactions     []*core.Transaction
	Transfers        []*core.Transfer
	Assignments      []*core.Assignment
	Templates        []*core.RecurringTemplate

	version  uint64
	postings map[string]PostingRef
}

func New(name string) *Ledger {
	return &Ledger{
		Name:     name,
		postings: make(map[string]PostingRef),
	}
}

// Version is the monotonic mutation counter used for dirty tracking.
func (l *Ledger) Version() uint64 {
	return l.version
}

func (l *Ledger) bump() {
	l.version++
}

// AccountByID resolves an account reference; nil when dangling.
func (l *Ledger) AccountByID(id string) *core.Account {
	for _, a := range l.Accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// BudgetByID resolves a budget reference; nil when dangling.
func (l *Ledger) BudgetByID(id string) *core.Budget {
	for _, b := range l.Budgets {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// PayeeByID resolves a payee reference; nil when dangling.
func (l *Ledger) PayeeByID(id string) *core.Payee {
	for _, p := range l.Payees {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (l *Ledger) BudgetCategoryByID(id string) *core.BudgetCategory {
	for _, c := range l.BudgetCategories {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (l *Ledger) TransactionByID(id string) *core.Transaction {
	for _, tx := range l.Transactions {
		if tx.ID == id {
			return tx
		}
	}
	return nil
}

func (l *Ledger) TransferByID(id string) *core.Transfer {
	for _, tr := range l.Transfers {
		if tr.ID == id {
			return tr
		}
	}
	return nil
}

func (l *Ledger) TemplateByID(id string) *core.RecurringTemplate {
	for _, t := range l.Templates {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// InflowBudget returns the single "To Be Budgeted" budget, or nil when the
// ledger has none.
func (l *Ledger) InflowBudget() *core.Budget {
	for _, b := range l.Budgets {
		if b.Inflow {
			return b
		}
	}
	return nil
}

// PostingByID looks a posting up through the derived index.
func (l *Ledger) PostingByID(id string) (PostingRef, bool) {
	ref, ok := l.postings[id]
	return ref, ok
}

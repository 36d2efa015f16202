package ledger

import (
	"envelope/internal/core"
)

// Mutations append to owned collections and bump the version counter once
// the change is complete. Uniqueness of ids is the caller's responsibility;
// duplicate ids are a caller error, not validated defensively.

func (l *Ledger) AddAccount(a *core.Account) {
	l.Accounts = append(l.Accounts, a)
	l.bump()
}

func (l *Ledger) AddPayee(p *core.Payee) {
	l.Payees = append(l.Payees, p)
	l.bump()
}

func (l *Ledger) AddBudgetCategory(c *core.BudgetCategory) {
	l.BudgetCategories = append(l.BudgetCategories, c)
	l.bump()
}

func (l *Ledger) AddBudget(b *core.Budget) {
	l.Budgets = append(l.Budgets, b)
	l.bump()
}

func (l *Ledger) AddAssignment(a *core.Assignment) {
	l.Assignments = append(l.Assignments, a)
	l.bump()
}

func (l *Ledger) AddTemplate(t *core.RecurringTemplate) {
	l.Templates = append(l.Templates, t)
	l.bump()
}

// AddTransaction appends a transaction and indexes its owned postings.
func (l *Ledger) AddTransaction(tx *core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	l.Transactions = append(l.Transactions, tx)
	for i, p := range tx.Postings {
		l.postings[p.ID] = PostingRef{Transaction: tx, Index: i}
	}
	l.bump()
	return nil
}

// DeleteTransaction removes a transaction and cascades deletion of all its
// owned postings from the index. Reports whether anything was removed.
func (l *Ledger) DeleteTransaction(id string) bool {
	for i, tx := range l.Transactions {
		if tx.ID != id {
			continue
		}
		for _, p := range tx.Postings {
			delete(l.postings, p.ID)
		}
		l.Transactions = append(l.Transactions[:i], l.Transactions[i+1:]...)
		l.bump()
		return true
	}
	return false
}

func (l *Ledger) AddTransfer(tr *core.Transfer) error {
	if err := tr.Validate(); err != nil {
		return err
	}
	l.Transfers = append(l.Transfers, tr)
	l.bump()
	return nil
}

// DeleteTransfer removes a transfer; no cascade.
func (l *Ledger) DeleteTransfer(id string) bool {
	for i, tr := range l.Transfers {
		if tr.ID == id {
			l.Transfers = append(l.Transfers[:i], l.Transfers[i+1:]...)
			l.bump()
			return true
		}
	}
	return false
}

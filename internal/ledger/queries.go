package ledger

import (
	"time"

	"envelope/internal/core"
)

// BudgetAvailableForMonth is the cumulative available balance of a budget
// through the end of month: assignments into it plus posting activity
// against it, both dated on or before the final day of the month.
// Transactions on tracking accounts never touch budget math. The Inflow
// budget has its own arithmetic, see inflowAvailableForMonth.
func (l *Ledger) BudgetAvailableForMonth(b *core.Budget, month time.Time) core.Money {
	if b == nil {
		return core.Money{}
	}
	if b.Inflow {
		return l.inflowAvailableForMonth(month)
	}

	var total int64
	for _, a := range l.Assignments {
		if a.BudgetID == b.ID && core.OnOrBeforeMonthEnd(a.Date, month) {
			total += a.Amount.Cents
		}
	}
	total += l.postingTotal(b.ID, month, true)
	return core.Money{Cents: total}
}

// inflowAvailableForMonth computes availability for the Inflow budget:
// income posted against it, minus everything assigned out to other budgets,
// plus the net effect of cross-type transfers. A transfer between a
// budget-type and a tracking-type account moves money across the budgeting
// boundary: into Inflow when the destination is budget-type, out of it when
// the destination is tracking-type. Same-type transfers and transfers with
// a dangling endpoint have no effect.
func (l *Ledger) inflowAvailableForMonth(month time.Time) core.Money {
	inflow := l.InflowBudget()
	if inflow == nil {
		return core.Money{}
	}

	var total int64
	for _, a := range l.Assignments {
		if a.BudgetID != inflow.ID && core.OnOrBeforeMonthEnd(a.Date, month) {
			total -= a.Amount.Cents
		}
	}
	total += l.postingTotal(inflow.ID, month, true)

	for _, tr := range l.Transfers {
		if !core.OnOrBeforeMonthEnd(tr.Date, month) {
			continue
		}
		from := l.AccountByID(tr.FromAccountID)
		to := l.AccountByID(tr.ToAccountID)
		if from == nil || to == nil || from.Type == to.Type {
			continue
		}
		if to.Type == core.AccountBudget {
			total += tr.Amount.Cents
		} else {
			total -= tr.Amount.Cents
		}
	}
	return core.Money{Cents: total}
}

// BudgetActivityForMonth is the posting activity against a budget within the
// calendar month only, tracking accounts excluded.
func (l *Ledger) BudgetActivityForMonth(b *core.Budget, month time.Time) core.Money {
	if b == nil {
		return core.Money{}
	}
	return core.Money{Cents: l.postingTotal(b.ID, month, false)}
}

// BudgetAssignedForMonth sums the assignments into a budget dated within the
// calendar month.
func (l *Ledger) BudgetAssignedForMonth(b *core.Budget, month time.Time) core.Money {
	if b == nil {
		return core.Money{}
	}
	var total int64
	for _, a := range l.Assignments {
		if a.BudgetID == b.ID && core.InMonth(a.Date, month) {
			total += a.Amount.Cents
		}
	}
	return core.Money{Cents: total}
}

// AssignedForMonth sums every assignment dated within the calendar month,
// regardless of target budget.
func (l *Ledger) AssignedForMonth(month time.Time) core.Money {
	var total int64
	for _, a := range l.Assignments {
		if core.InMonth(a.Date, month) {
			total += a.Amount.Cents
		}
	}
	return core.Money{Cents: total}
}

// postingTotal sums posting amounts against a budget. Cumulative totals use
// the inclusive month-end bound, otherwise only in-month transactions count.
// A transaction whose account reference dangles is included: only a resolved
// tracking account excludes it.
func (l *Ledger) postingTotal(budgetID string, month time.Time, cumulative bool) int64 {
	var total int64
	for _, tx := range l.Transactions {
		if cumulative {
			if !core.OnOrBeforeMonthEnd(tx.Date, month) {
				continue
			}
		} else if !core.InMonth(tx.Date, month) {
			continue
		}
		if acc := l.AccountByID(tx.AccountID); acc != nil && acc.Type == core.AccountTracking {
			continue
		}
		for _, p := range tx.Postings {
			if p.BudgetID == budgetID {
				total += p.Amount.Cents
			}
		}
	}
	return total
}

// CurrentBalance is the derived balance of an account: the sum of its
// transaction amounts plus transfer flows on both endpoints.
func (l *Ledger) CurrentBalance(a *core.Account) core.Money {
	return l.balance(a, func(core.TransactionStatus) bool { return true })
}

// ClearedBalance sums only cleared transactions and transfer endpoints.
func (l *Ledger) ClearedBalance(a *core.Account) core.Money {
	return l.balance(a, func(s core.TransactionStatus) bool { return s == core.StatusCleared })
}

// UnclearedBalance sums only open transactions and transfer endpoints.
func (l *Ledger) UnclearedBalance(a *core.Account) core.Money {
	return l.balance(a, func(s core.TransactionStatus) bool { return s == core.StatusOpen })
}

func (l *Ledger) balance(a *core.Account, include func(core.TransactionStatus) bool) core.Money {
	if a == nil {
		return core.Money{}
	}
	var total int64
	for _, tx := range l.Transactions {
		if tx.AccountID == a.ID && include(tx.Status) {
			total += tx.Amount().Cents
		}
	}
	for _, tr := range l.Transfers {
		if tr.FromAccountID == a.ID && include(tr.FromStatus) {
			total -= tr.Amount.Cents
		}
		if tr.ToAccountID == a.ID && include(tr.ToStatus) {
			total += tr.Amount.Cents
		}
	}
	return core.Money{Cents: total}
}

// NetWorth sums the current balance of every account, tracking accounts
// included.
func (l *Ledger) NetWorth() core.Money {
	var total int64
	for _, a := range l.Accounts {
		total += l.CurrentBalance(a).Cents
	}
	return core.Money{Cents: total}
}

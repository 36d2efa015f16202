package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AccountBudget   AccountType = "budget"
	AccountTracking AccountType = "tracking"
)

const (
	StatusOpen    TransactionStatus = "open"
	StatusCleared TransactionStatus = "cleared"
)

const (
	GoalMonthlyAssignment GoalType = "monthly_assignment"
	GoalAvailable         GoalType = "available"
)

type (
	AccountType       string
	TransactionStatus string
	GoalType          string

	Money struct {
		Cents int64
	}

	// Account holds transactions. Tracking accounts are excluded from budget
	// math but count toward net worth.
	Account struct {
		ID       string
		Name     string
		Type     AccountType
		Archived bool
	}

	Payee struct {
		ID   string
		Name string
	}

	// BudgetCategory is an optional grouping label for budgets.
	BudgetCategory struct {
		ID   string
		Name string
	}

	Goal struct {
		ID        string
		Type      GoalType
		Target    Money
		BudgetID  string
		Archived  bool
		CreatedAt time.Time
	}

	// Budget is a spending envelope. Exactly one budget per ledger carries the
	// Inflow flag and accumulates unassigned income.
	Budget struct {
		ID         string
		Name       string
		CategoryID string // empty when uncategorized
		Inflow     bool
		Goal       *Goal
	}

	// Posting is one line item of a transaction. Amounts are signed cents.
	Posting struct {
		ID       string
		Amount   Money
		BudgetID string // empty when unbudgeted
		Note     string
	}

	Transaction struct {
		ID         string
		Date       time.Time
		AccountID  string
		PayeeID    string // empty when none
		Status     TransactionStatus
		Postings   []Posting // owned, never empty
		TemplateID string    // set when materialized from a recurring template
	}

	// Transfer moves money between two accounts. Amount is a magnitude: an
	// outflow from FromAccountID and an inflow to ToAccountID.
	Transfer struct {
		ID            string
		Date          time.Time
		FromAccountID string
		ToAccountID   string
		Amount        Money
		FromStatus    TransactionStatus
		ToStatus      TransactionStatus
		Note          string
		BudgetID      string // only meaningful for cross-type transfers
	}

	// Assignment allocates money from the Inflow budget into a target budget
	// for a given month.
	Assignment struct {
		ID       string
		Date     time.Time
		BudgetID string
		Amount   Money
	}

	RecurringTemplate struct {
		ID            string
		Rule          string
		NextScheduled time.Time // scheduler cursor, advanced on each materialization
		StartDate     time.Time
		EndDate       time.Time // zero when open-ended
		AccountID     string
		PayeeID       string
		BudgetID      string
		Amount        Money
		Note          string
	}
)

var (
	ErrNoPostings       = errors.New("transaction must have at least one posting")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidType      = errors.New("invalid account type")
	ErrInvalidStatus    = errors.New("invalid transaction status")
	ErrInvalidGoalType  = errors.New("invalid goal type")
	ErrSameAccount      = errors.New("transfer endpoints must differ")
	ErrInvalidStartDate = errors.New("invalid start date")
	ErrInvalidEndDate   = errors.New("end date must not precede start date")
)

// NewID generates an identity for a fresh entity.
func NewID() string {
	return uuid.NewString()
}

// NewTransaction builds an open transaction. A transaction owns at least one
// posting at all times, so zero postings is a construction fault.
func NewTransaction(date time.Time, accountID string, postings ...Posting) (*Transaction, error) {
	if len(postings) == 0 {
		return nil, ErrNoPostings
	}
	return &Transaction{
		ID:        NewID(),
		Date:      date,
		AccountID: accountID,
		Status:    StatusOpen,
		Postings:  postings,
	}, nil
}

// Amount is the transaction's headline amount: the sum of its posting
// amounts, which for a non-split transaction equals the first posting.
func (t *Transaction) Amount() Money {
	var sum int64
	for _, p := range t.Postings {
		sum += p.Amount.Cents
	}
	return Money{Cents: sum}
}

// IsSplit reports whether the transaction carries more than one posting.
func (t *Transaction) IsSplit() bool {
	return len(t.Postings) > 1
}

// AddsUp reports whether the posting amounts sum to total. Only meaningful
// when the transaction is treated as split.
func (t *Transaction) AddsUp(total Money) bool {
	return t.Amount() == total
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Type {
	case AccountBudget, AccountTracking:
	default:
		return ErrInvalidType
	}
	return nil
}

func (s TransactionStatus) Validate() error {
	switch s {
	case StatusOpen, StatusCleared:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (t *Transaction) Validate() error {
	if len(t.Postings) == 0 {
		return ErrNoPostings
	}
	if t.Date.IsZero() {
		return errors.New("transaction date cannot be zero")
	}
	return t.Status.Validate()
}

func (tr Transfer) Validate() error {
	if tr.FromAccountID == tr.ToAccountID {
		return ErrSameAccount
	}
	if tr.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if err := tr.FromStatus.Validate(); err != nil {
		return err
	}
	return tr.ToStatus.Validate()
}

func (g Goal) Validate() error {
	switch g.Type {
	case GoalMonthlyAssignment, GoalAvailable:
	default:
		return ErrInvalidGoalType
	}
	if g.Target.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (rt RecurringTemplate) Validate() error {
	if rt.StartDate.IsZero() {
		return ErrInvalidStartDate
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate) {
		return ErrInvalidEndDate
	}
	if rt.AccountID == "" {
		return errors.New("template account cannot be empty")
	}
	return nil
}

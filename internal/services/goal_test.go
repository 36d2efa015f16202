package services

import (
	"testing"
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

func goalLedger(goal *core.Goal) (*ledger.Ledger, *core.Budget) {
	led := ledger.New("test")
	led.AddAccount(&core.Account{ID: "acc-1", Name: "Checking", Type: core.AccountBudget})
	b := &core.Budget{ID: "bud-trip", Name: "Trip", Goal: goal}
	led.AddBudget(b)
	return led, b
}

func TestGoalProgressAvailable(t *testing.T) {
	today := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	led, b := goalLedger(&core.Goal{
		ID: "g-1", Type: core.GoalAvailable, Target: core.Money{Cents: 10000}, BudgetID: "bud-trip",
	})

	// 2500 assigned in January, nothing spent.
	led.AddAssignment(&core.Assignment{
		ID: core.NewID(), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		BudgetID: b.ID, Amount: core.Money{Cents: 2500},
	})

	progress, ok := GoalProgressFor(led, b, today)
	if !ok {
		t.Fatal("GoalProgressFor reported no goal")
	}
	if progress.Current.Cents != 2500 {
		t.Errorf("current = %d, want 2500", progress.Current.Cents)
	}
	if progress.Percent != 25 {
		t.Errorf("percent = %d, want 25", progress.Percent)
	}
	if progress.Complete {
		t.Error("complete = true at 25%")
	}
}

func TestGoalProgressMonthlyAssignment(t *testing.T) {
	today := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	led, b := goalLedger(&core.Goal{
		ID: "g-1", Type: core.GoalMonthlyAssignment, Target: core.Money{Cents: 5000}, BudgetID: "bud-trip",
	})

	// January's assignment must not count toward February's goal.
	led.AddAssignment(&core.Assignment{
		ID: core.NewID(), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		BudgetID: b.ID, Amount: core.Money{Cents: 5000},
	})
	led.AddAssignment(&core.Assignment{
		ID: core.NewID(), Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		BudgetID: b.ID, Amount: core.Money{Cents: 6000},
	})

	progress, ok := GoalProgressFor(led, b, today)
	if !ok {
		t.Fatal("GoalProgressFor reported no goal")
	}
	if progress.Current.Cents != 6000 {
		t.Errorf("current = %d, want 6000 (this month only)", progress.Current.Cents)
	}
	if progress.Percent != 100 {
		t.Errorf("percent = %d, want 100 (clamped)", progress.Percent)
	}
	if !progress.Complete {
		t.Error("complete = false with current over target")
	}
}

func TestGoalProgressNegativeCurrent(t *testing.T) {
	today := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	led, b := goalLedger(&core.Goal{
		ID: "g-1", Type: core.GoalAvailable, Target: core.Money{Cents: 10000}, BudgetID: "bud-trip",
	})
	led.AddAssignment(&core.Assignment{
		ID: core.NewID(), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		BudgetID: b.ID, Amount: core.Money{Cents: -4000},
	})

	progress, ok := GoalProgressFor(led, b, today)
	if !ok {
		t.Fatal("GoalProgressFor reported no goal")
	}
	if progress.Percent != 0 {
		t.Errorf("percent = %d, want 0 (negative current clamps)", progress.Percent)
	}
	if progress.Complete {
		t.Error("complete = true with hugely negative current")
	}
}

func TestGoalProgressZeroTarget(t *testing.T) {
	today := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	led, b := goalLedger(&core.Goal{
		ID: "g-1", Type: core.GoalAvailable, Target: core.Money{}, BudgetID: "bud-trip",
	})

	progress, ok := GoalProgressFor(led, b, today)
	if !ok {
		t.Fatal("GoalProgressFor reported no goal")
	}
	if progress.Percent != 0 {
		t.Errorf("percent = %d, want 0 for zero target", progress.Percent)
	}
	if !progress.Complete {
		t.Error("complete = false with 0 >= 0")
	}
}

func TestGoalProgressNoGoal(t *testing.T) {
	led, b := goalLedger(nil)
	if _, ok := GoalProgressFor(led, b, time.Now()); ok {
		t.Error("GoalProgressFor reported progress for a budget without a goal")
	}
}

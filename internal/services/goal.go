package services

import (
	"time"

	"envelope/internal/core"
	"envelope/internal/ledger"
)

// GoalProgress is derived from ledger state on demand, never stored.
type GoalProgress struct {
	Current  core.Money
	Target   core.Money
	Percent  int // clamped to 0..100 for display
	Complete bool
}

// GoalProgressFor computes progress for a budget's goal as of today.
// The second return value is false when the budget carries no goal.
//
// Percent clamps a negative current to zero, while Complete compares the
// unclamped current against the target, so the two can diverge at the
// boundaries; that asymmetry is deliberate.
func GoalProgressFor(led *ledger.Ledger, b *core.Budget, today time.Time) (GoalProgress, bool) {
	if led == nil || b == nil || b.Goal == nil {
		return GoalProgress{}, false
	}

	var current core.Money
	switch b.Goal.Type {
	case core.GoalAvailable:
		current = led.BudgetAvailableForMonth(b, today)
	case core.GoalMonthlyAssignment:
		current = led.BudgetAssignedForMonth(b, today)
	default:
		return GoalProgress{}, false
	}

	progress := GoalProgress{
		Current:  current,
		Target:   b.Goal.Target,
		Complete: current.Cents >= b.Goal.Target.Cents,
	}
	if b.Goal.Target.Cents > 0 {
		cur := current.Cents
		if cur < 0 {
			cur = 0
		}
		pct := 100 * cur / b.Goal.Target.Cents
		if pct > 100 {
			pct = 100
		}
		progress.Percent = int(pct)
	}
	return progress, true
}

package recurrence

import (
	"log/slog"
	"time"

	"envelope/internal/core"
)

// Schedule binds a rule to a template's start date, which acts as the rule's
// epoch for interval alignment.
type Schedule struct {
	rule  Rule
	start time.Time
}

// New builds a schedule for a template's rule string. A malformed rule never
// faults: it degrades to the default monthly rule, anchored at startDate, and
// logs a warning.
func New(ruleStr string, startDate time.Time) Schedule {
	rule, err := Parse(ruleStr)
	if err != nil {
		slog.Warn("Malformed recurrence rule, falling back to monthly default",
			"rule", ruleStr,
			"error", err)
		rule = DefaultRule()
	}
	return Schedule{rule: rule, start: core.StartOfDay(startDate)}
}

// Rule exposes the parsed (or fallback) rule.
func (s Schedule) Rule() Rule {
	return s.rule
}

// NextAfter returns the first occurrence strictly after from. When the rule
// is exhausted it returns the start of day of from itself as a defined
// fallback so a scheduler pass never faults; callers that need to detect
// exhaustion use Rule.Next directly.
func (s Schedule) NextAfter(from time.Time) time.Time {
	next, ok := s.rule.Next(s.start, from)
	if !ok {
		slog.Warn("Recurrence rule exhausted, returning input date",
			"from", core.StartOfDay(from).Format("2006-01-02"))
		return core.StartOfDay(from)
	}
	return next
}

// Package recurrence evaluates the RFC-5545-style rule subset used by
// recurring transaction templates: FREQ, INTERVAL, BYDAY, BYMONTHDAY
// (including the negative last-day index), BYMONTH, COUNT and UNTIL.
//
// All evaluation happens on UTC-normalized calendar days so that the host
// timezone can never skip or duplicate an occurrence.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"envelope/internal/core"
)

type Frequency int

const (
	Daily Frequency = iota + 1
	Weekly
	Monthly
	Yearly
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "DAILY"
	case Weekly:
		return "WEEKLY"
	case Monthly:
		return "MONTHLY"
	case Yearly:
		return "YEARLY"
	default:
		return "UNKNOWN"
	}
}

// Rule is a parsed recurrence rule. The zero value is not usable; build one
// via Parse or DefaultRule.
type Rule struct {
	Freq     Frequency
	Interval int           // cycle stride, >= 1
	Weekday  *time.Weekday // BYDAY, weekly rules only
	MonthDay int           // BYMONTHDAY; 0 none, negative counts from month end
	Month    time.Month    // BYMONTH; 0 none
	Count    int           // 0 none
	Until    time.Time     // zero none, compared at day granularity
}

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// DefaultRule is the fallback for malformed rule strings: monthly on day 1.
func DefaultRule() Rule {
	return Rule{Freq: Monthly, Interval: 1, MonthDay: 1}
}

// Parse parses a rule string such as "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO".
// An optional "RRULE:" prefix is accepted.
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "RRULE:"))
	if s == "" {
		return Rule{}, fmt.Errorf("empty rule string")
	}

	r := Rule{Interval: 1}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Rule{}, fmt.Errorf("malformed rule part %q", part)
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			switch strings.ToUpper(value) {
			case "DAILY":
				r.Freq = Daily
			case "WEEKLY":
				r.Freq = Weekly
			case "MONTHLY":
				r.Freq = Monthly
			case "YEARLY":
				r.Freq = Yearly
			default:
				return Rule{}, fmt.Errorf("unsupported frequency %q", value)
			}
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, fmt.Errorf("invalid interval %q", value)
			}
			r.Interval = n
		case "BYDAY":
			wd, ok := weekdayCodes[strings.ToUpper(value)]
			if !ok {
				return Rule{}, fmt.Errorf("invalid weekday %q", value)
			}
			r.Weekday = &wd
		case "BYMONTHDAY":
			n, err := strconv.Atoi(value)
			if err != nil || n == 0 || n > 31 || n < -31 {
				return Rule{}, fmt.Errorf("invalid month day %q", value)
			}
			r.MonthDay = n
		case "BYMONTH":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 12 {
				return Rule{}, fmt.Errorf("invalid month %q", value)
			}
			r.Month = time.Month(n)
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, fmt.Errorf("invalid count %q", value)
			}
			r.Count = n
		case "UNTIL":
			t, err := parseUntil(value)
			if err != nil {
				return Rule{}, err
			}
			r.Until = t
		default:
			return Rule{}, fmt.Errorf("unsupported rule part %q", key)
		}
	}

	if r.Freq == 0 {
		return Rule{}, fmt.Errorf("rule is missing FREQ")
	}
	return r, nil
}

func parseUntil(s string) (time.Time, error) {
	for _, layout := range []string{"20060102T150405Z", "20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return core.StartOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid until date %q", s)
}

// maxCycles bounds occurrence iteration; generous enough for half a century
// of daily occurrences before a rule is treated as exhausted.
const maxCycles = 20000

// Next computes the first occurrence strictly after from, with start as the
// rule's epoch. Interval alignment depends on the epoch: a biweekly rule
// anchored on week X only lands on weeks whose offset from X is even.
// The second return value is false once the rule is exhausted (COUNT or
// UNTIL reached, or no occurrence within the iteration bound).
func (r Rule) Next(start, from time.Time) (time.Time, bool) {
	start = core.StartOfDay(start)
	from = core.StartOfDay(from)

	occurrences := 0
	for i := 0; i < maxCycles; i++ {
		occ, ok := r.cycleDate(start, i)
		if !ok {
			continue // this cycle has no valid day (e.g. Feb 30, non-leap Feb 29)
		}
		if occ.Before(start) {
			continue // cycle day precedes the epoch
		}
		occurrences++
		if r.Count > 0 && occurrences > r.Count {
			return time.Time{}, false
		}
		if !r.Until.IsZero() && occ.After(r.Until) {
			return time.Time{}, false
		}
		if occ.After(from) {
			return occ, true
		}
	}
	return time.Time{}, false
}

// cycleDate resolves the candidate date of cycle i relative to the epoch.
func (r Rule) cycleDate(start time.Time, i int) (time.Time, bool) {
	switch r.Freq {
	case Daily:
		return start.AddDate(0, 0, i*r.Interval), true

	case Weekly:
		wd := start.Weekday()
		if r.Weekday != nil {
			wd = *r.Weekday
		}
		// First matching weekday on or after the epoch anchors the cycle.
		delta := (int(wd) - int(start.Weekday()) + 7) % 7
		first := start.AddDate(0, 0, delta)
		return first.AddDate(0, 0, i*7*r.Interval), true

	case Monthly:
		month := time.Date(start.Year(), start.Month()+time.Month(i*r.Interval), 1, 0, 0, 0, 0, time.UTC)
		return resolveMonthDay(month, r.monthDayOr(start.Day()))

	case Yearly:
		m := r.Month
		if m == 0 {
			m = start.Month()
		}
		month := time.Date(start.Year()+i*r.Interval, m, 1, 0, 0, 0, 0, time.UTC)
		return resolveMonthDay(month, r.monthDayOr(start.Day()))

	default:
		return time.Time{}, false
	}
}

func (r Rule) monthDayOr(fallback int) int {
	if r.MonthDay != 0 {
		return r.MonthDay
	}
	return fallback
}

// resolveMonthDay places day within the month starting at monthStart.
// Negative days count from the month end (-1 is the last day). Days the
// month does not have yield no occurrence.
func resolveMonthDay(monthStart time.Time, day int) (time.Time, bool) {
	last := core.DaysInMonth(monthStart.Year(), monthStart.Month())
	if day < 0 {
		day = last + day + 1
	}
	if day < 1 || day > last {
		return time.Time{}, false
	}
	return time.Date(monthStart.Year(), monthStart.Month(), day, 0, 0, 0, 0, time.UTC), true
}

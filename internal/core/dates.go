package core

import (
	"time"

	"github.com/jinzhu/now"
)

// StartOfDay returns UTC midnight of t's calendar day as observed in t's own
// location. Converting by extracting the Y/M/D components and reconstructing
// in UTC keeps day arithmetic stable when the host timezone is ahead of or
// behind UTC; a plain Truncate would shift the calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	return now.With(StartOfDay(t)).BeginningOfMonth()
}

// MonthEnd returns the last instant of t's calendar month in UTC, i.e. the
// end-of-day boundary of the final day of the month.
func MonthEnd(t time.Time) time.Time {
	return now.With(StartOfDay(t)).EndOfMonth()
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// InMonth reports whether date falls within month's calendar month.
func InMonth(date, month time.Time) bool {
	d, m := StartOfDay(date), StartOfDay(month)
	return d.Year() == m.Year() && d.Month() == m.Month()
}

// OnOrBeforeMonthEnd reports whether date falls on any day within or before
// month's calendar month. A date exactly on the final day of the month is
// included: the comparison is against the end-of-day boundary, not midnight.
func OnOrBeforeMonthEnd(date, month time.Time) bool {
	return !StartOfDay(date).After(MonthEnd(month))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

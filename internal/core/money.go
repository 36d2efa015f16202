// Package core holds the plain domain records of the budgeting engine and
// the money and date utilities shared by the ledger and the scheduler.
//
// All monetary amounts are signed integers in minor currency units (cents);
// floating point is used for display formatting only.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmountToCents converts a signed decimal string to cents with half-up
// rounding on the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Returns an error for anything else.
//
// Examples:
//
//	ParseAmountToCents("12.34")  -> 1234, nil
//	ParseAmountToCents("-12,34") -> -1234, nil
//	ParseAmountToCents("12.346") -> 1235, nil (rounds up)
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")

	sign := int64(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}

	// Take the first two fractional digits; half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return sign * (iv*100 + fracCents), nil
}

// Units returns the major-unit value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Neg returns the negation of m.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

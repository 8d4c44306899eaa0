// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents. Parsing and formatting go through
// shopspring/decimal so that provider strings such as "12.345" round
// deterministically instead of drifting through float64.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal parses a monetary string into a decimal.
//
// It tolerates surrounding spaces, a leading "$" and thousands separators.
// Negative values are returned as-is; callers decide whether they are allowed.
//
// Examples:
//
//	ParseDecimal("12.34")     -> 12.34, nil
//	ParseDecimal("$1,204.50") -> 1204.50, nil
//	ParseDecimal("abc")       -> 0, ErrInvalidAmount
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmount parses a non-negative monetary string into Money, rounding
// half away from zero on the third decimal place.
//
// Examples:
//
//	ParseAmount("7.50")  -> 750, nil
//	ParseAmount("1.005") -> 101, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal rounds d to whole cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

var hundred = decimal.NewFromInt(100)

// Decimal returns the amount as a decimal with two fractional digits.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "7.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

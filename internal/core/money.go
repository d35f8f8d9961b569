// Package core holds the domain model for savings goals and the decimal
// money handling shared by every other package.
//
// This file contains parsing and formatting of monetary amounts. All money
// values are shopspring decimals; binary floating point never touches an
// amount.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied decimal string to a money amount
// rounded half-up to two decimal places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Only
// strictly positive amounts are valid: deposits and withdrawals carry their
// direction in the operation, not in the sign of the input.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds half-up)
//	ParseAmount("-5")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two decimal places for
// user-facing messages. Use the decimal value itself for calculations.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ClampToZero returns d, or zero when d is negative. Headroom figures may
// legitimately go negative (account over-committed to other goals); display
// paths clamp them before use.
func ClampToZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

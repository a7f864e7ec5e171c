// Package core provides the ledger domain: users, reference data,
// transactions and the validation rules shared by every store.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// AmountPlaces is the number of fractional digits kept for amounts.
const AmountPlaces = 2

// ParseAmount converts a decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to two places. Negative values are parsed; callers
// validate the sign with ValidateAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return NormalizeAmount(d), nil
}

// NormalizeAmount rounds d to the stored precision.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// ValidateAmount rejects negative amounts. Zero is allowed.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return Validation("Amount must be a non-negative number")
	}
	return nil
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

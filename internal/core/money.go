// Package core holds the ledger snapshots shared by the analytics engine.
//
// This file contains the Money value and helpers for moving between exact
// decimal amounts and the float64 figures the statistics work on.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is an immutable amount in a single currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney normalizes the currency code to upper case.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// MustMoney parses a decimal string and panics on malformed input. Meant for
// seed data and tests.
func MustMoney(amount, currency string) Money {
	return NewMoney(decimal.RequireFromString(amount), currency)
}

// NormalizeCurrency trims and upper-cases an ISO currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Add sums two amounts of the same currency. Mixing currencies is an error,
// never an implicit conversion.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Float returns the amount as float64 for statistics and display.
// Sums must be done on decimals before converting.
func (m Money) Float() float64 {
	return m.Amount.InexactFloat64()
}

// Cents rounds a float amount to integer cents, half away from zero.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// Round2 rounds a float amount to two decimals for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

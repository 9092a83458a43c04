package fx

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// Table is the per-request lookup of cross rates into one base currency.
type Table struct {
	base  string
	rates map[Key]decimal.Decimal
}

// NewTable builds a table from explicit multipliers. Useful for callers that
// already hold rates, and for tests.
func NewTable(base string, rates map[Key]decimal.Decimal) *Table {
	t := &Table{base: core.NormalizeCurrency(base), rates: make(map[Key]decimal.Decimal, len(rates))}
	for k, v := range rates {
		k.Currency = core.NormalizeCurrency(k.Currency)
		t.rates[k] = v
	}
	return t
}

// Base returns the table's base currency.
func (t *Table) Base() string {
	return t.base
}

// Len returns the number of resolved foreign pairs.
func (t *Table) Len() int {
	return len(t.rates)
}

// Rate returns the multiplier converting currency on the day of at into base.
func (t *Table) Rate(currency string, at time.Time) (decimal.Decimal, error) {
	return t.RateOn(currency, core.DateOf(at))
}

// RateOn is Rate for an explicit calendar day.
func (t *Table) RateOn(currency string, day core.Date) (decimal.Decimal, error) {
	currency = core.NormalizeCurrency(currency)
	if currency == t.base {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := t.rates[Key{Currency: currency, Day: day}]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrRateNotResolved, currency, day)
	}
	return rate, nil
}

// Convert expresses m in the base currency using the rate of the day of at.
func (t *Table) Convert(m core.Money, at time.Time) (decimal.Decimal, error) {
	return t.ConvertOn(m, core.DateOf(at))
}

// ConvertOn is Convert for an explicit calendar day.
func (t *Table) ConvertOn(m core.Money, day core.Date) (decimal.Decimal, error) {
	rate, err := t.RateOn(m.Currency, day)
	if err != nil {
		return decimal.Zero, err
	}
	return m.Amount.Mul(rate), nil
}

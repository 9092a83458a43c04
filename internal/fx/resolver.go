// Package fx resolves day-granular cross rates into a base currency.
//
// Rates are fetched once per request for exactly the (currency, day) pairs
// the caller needs. Conversions inside hot loops only read the resulting
// Table and never reach the rate source.
package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// crossRatePrecision is the number of decimal places kept when dividing quotes.
const crossRatePrecision = 12

var (
	// ErrRateUnavailable means the rate source had no quote for a requested
	// currency and day. It fails the whole computation.
	ErrRateUnavailable = errors.New("fx: rate unavailable")
	// ErrRateNotResolved means a conversion asked for a pair that was not
	// part of the batch passed to Resolve.
	ErrRateNotResolved = errors.New("fx: rate not resolved")
)

type (
	// Pair is a currency observed at an instant.
	Pair struct {
		Currency string
		At       time.Time
	}

	// Key identifies a currency on a calendar day.
	Key struct {
		Currency string
		Day      core.Date
	}

	// RateSource returns, for each key, the quote of the currency against the
	// source's pivot currency valid on that day. Keys without data are left
	// out of the result.
	//
	//go:generate mockgen -destination=mocks/mock_rate_source.go -package=mocks saldo/internal/fx RateSource
	RateSource interface {
		PivotQuotes(ctx context.Context, keys []Key) (map[Key]decimal.Decimal, error)
	}
)

// Resolver batches rate lookups against a RateSource.
type Resolver struct {
	source RateSource
	logger *slog.Logger
}

// NewResolver creates a resolver reading from source.
func NewResolver(source RateSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, logger: logger}
}

// PairAt is a shorthand for building a Pair.
func PairAt(currency string, at time.Time) Pair {
	return Pair{Currency: core.NormalizeCurrency(currency), At: at}
}

// BoundaryDay returns the day a conversion at an exclusive boundary belongs
// to: the day of boundary minus one nanosecond. A boundary at midnight of the
// 1st therefore converts with the last day of the previous month.
func BoundaryDay(boundary time.Time) core.Date {
	return core.DateOf(boundary.Add(-time.Nanosecond))
}

// Resolve returns a Table with a multiplier for every pair. Pairs already in
// base currency resolve to 1 without a lookup.
func (r *Resolver) Resolve(ctx context.Context, pairs []Pair, base string) (*Table, error) {
	base = core.NormalizeCurrency(base)
	table := &Table{base: base, rates: make(map[Key]decimal.Decimal)}

	needed := make(map[Key]struct{})
	days := make(map[core.Date]struct{})
	for _, p := range pairs {
		cur := core.NormalizeCurrency(p.Currency)
		if cur == base {
			continue
		}
		k := Key{Currency: cur, Day: core.DateOf(p.At)}
		needed[k] = struct{}{}
		days[k.Day] = struct{}{}
	}
	if len(needed) == 0 {
		return table, nil
	}

	keys := make([]Key, 0, len(needed)+len(days))
	for k := range needed {
		keys = append(keys, k)
	}
	for d := range days {
		keys = append(keys, Key{Currency: base, Day: d})
	}
	sortKeys(keys)

	quotes, err := r.source.PivotQuotes(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch fx quotes: %w", err)
	}

	for _, k := range keys {
		if k.Currency == base {
			continue
		}
		foreign, ok := quotes[k]
		if !ok || !foreign.IsPositive() {
			return nil, fmt.Errorf("%w: %s on %s", ErrRateUnavailable, k.Currency, k.Day)
		}
		baseQuote, ok := quotes[Key{Currency: base, Day: k.Day}]
		if !ok || !baseQuote.IsPositive() {
			return nil, fmt.Errorf("%w: %s on %s", ErrRateUnavailable, base, k.Day)
		}
		table.rates[k] = baseQuote.DivRound(foreign, crossRatePrecision)
	}

	r.logger.DebugContext(ctx, "Resolved fx cross rates",
		"base", base,
		"pairs", len(pairs),
		"keys", len(table.rates))

	return table, nil
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Currency != keys[j].Currency {
			return keys[i].Currency < keys[j].Currency
		}
		return keys[i].Day.Before(keys[j].Day)
	})
}

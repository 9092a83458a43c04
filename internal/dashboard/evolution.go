package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/fx"
	"saldo/internal/ledger"
)

type (
	// MonthlyMetricsRow is one month of the evolution table. Nil fields
	// could not be computed for that month.
	MonthlyMetricsRow struct {
		Year                 int      `json:"year"`
		Month                int      `json:"month"`
		Income               float64  `json:"income"`
		Expense              float64  `json:"expense"`
		Net                  float64  `json:"net"`
		SavingsRate          *float64 `json:"savingsRate"`
		StabilityIndex       *float64 `json:"stabilityIndex"`
		StabilityScore       *float64 `json:"stabilityScore"`
		PeakSharePercent     *float64 `json:"peakSharePercent"`
		DiscretionaryPercent *float64 `json:"discretionaryPercent"`
		LiquidAssets         float64  `json:"liquidAssets"`
		LiquidMonths         *float64 `json:"liquidMonths"`
		Score                *float64 `json:"score"`
		InProgress           bool     `json:"inProgress"`
	}

	NetWorthPoint struct {
		Year     int     `json:"year"`
		Month    int     `json:"month"`
		NetWorth float64 `json:"netWorth"`
	}
)

// GetEvolution returns one metrics row per month for the monthsWindow months
// ending with the current one, oldest first.
func (s *Service) GetEvolution(ctx context.Context, userID string, monthsWindow int) ([]MonthlyMetricsRow, error) {
	if err := core.ValidateMonthsWindow(monthsWindow); err != nil {
		return nil, err
	}
	periods := trailingMonths(s.now().UTC(), monthsWindow, s.horizon())
	last := periods[len(periods)-1]

	data, err := s.fetch(ctx, userID, last.asOf)
	if err != nil {
		return nil, err
	}
	table, err := s.resolver.Resolve(ctx, ratePairs(data, boundaries(periods)), data.base)
	if err != nil {
		return nil, err
	}
	flows, err := convertFlows(ctx, data, table)
	if err != nil {
		return nil, err
	}
	expenses := dailyExpenses(flows)
	earliest := earliestActivity(data.txs)

	stream, err := data.stream()
	if err != nil {
		return nil, err
	}
	var state ledger.State
	rows := make([]MonthlyMetricsRow, 0, len(periods))
	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if state, err = ledger.AdvanceToBoundary(p.asOf, stream, state); err != nil {
			return nil, err
		}
		f, err := computeFacts(p, flows, expenses, earliest, data, state, table)
		if err != nil {
			return nil, err
		}
		rows = append(rows, metricsRow(p, f))
	}
	return rows, nil
}

// GetMonthMetrics returns the evolution row of a single month. It backs the
// metrics export, which may target months outside any trailing window.
func (s *Service) GetMonthMetrics(ctx context.Context, userID string, year, month int) (MonthlyMetricsRow, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return MonthlyMetricsRow{}, err
	}
	p := newPeriod(year, time.Month(month), s.horizon())

	data, err := s.fetch(ctx, userID, p.asOf)
	if err != nil {
		return MonthlyMetricsRow{}, err
	}
	table, err := s.resolver.Resolve(ctx, ratePairs(data, []time.Time{p.asOf}), data.base)
	if err != nil {
		return MonthlyMetricsRow{}, err
	}
	flows, err := convertFlows(ctx, data, table)
	if err != nil {
		return MonthlyMetricsRow{}, err
	}

	stream, err := data.stream()
	if err != nil {
		return MonthlyMetricsRow{}, err
	}
	state, err := ledger.AdvanceToBoundary(p.asOf, stream, nil)
	if err != nil {
		return MonthlyMetricsRow{}, err
	}
	f, err := computeFacts(p, flows, dailyExpenses(flows), earliestActivity(data.txs), data, state, table)
	if err != nil {
		return MonthlyMetricsRow{}, err
	}
	return metricsRow(p, f), nil
}

func metricsRow(p period, f facts) MonthlyMetricsRow {
	row := MonthlyMetricsRow{
		Year:                 p.year,
		Month:                int(p.month),
		Income:               core.Round2(f.agg.income),
		Expense:              core.Round2(f.agg.expense),
		Net:                  core.Round2(f.agg.income - f.agg.expense),
		SavingsRate:          f.savings,
		PeakSharePercent:     f.peaks.SharePercent,
		DiscretionaryPercent: f.split.DiscretionaryPercent,
		LiquidAssets:         core.Round2(f.liquid),
		Score:                f.score,
		InProgress:           p.inProgress(),
	}
	if f.stability != nil {
		row.StabilityIndex = &f.stability.Index
		row.StabilityScore = &f.stability.Score
	}
	if f.runway != nil {
		row.LiquidMonths = &f.runway.Months
	}
	return row
}

// GetNetWorthTrend returns the net worth over all accounts at the end of each
// of the monthsWindow months ending with the current one. The ledger is
// replayed once, advancing the cursor month by month.
func (s *Service) GetNetWorthTrend(ctx context.Context, userID string, monthsWindow int) ([]NetWorthPoint, error) {
	if err := core.ValidateMonthsWindow(monthsWindow); err != nil {
		return nil, err
	}
	periods := trailingMonths(s.now().UTC(), monthsWindow, s.horizon())
	last := periods[len(periods)-1]

	data, err := s.fetch(ctx, userID, last.asOf)
	if err != nil {
		return nil, err
	}
	pairs := ratePairs(&ledgerData{accounts: data.accounts}, boundaries(periods))
	table, err := s.resolver.Resolve(ctx, pairs, data.base)
	if err != nil {
		return nil, err
	}

	stream, err := data.stream()
	if err != nil {
		return nil, err
	}
	var state ledger.State
	points := make([]NetWorthPoint, 0, len(periods))
	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if state, err = ledger.AdvanceToBoundary(p.asOf, stream, state); err != nil {
			return nil, err
		}
		total, err := netWorth(data.accounts, state, table, p.asOf)
		if err != nil {
			return nil, err
		}
		points = append(points, NetWorthPoint{
			Year:     p.year,
			Month:    int(p.month),
			NetWorth: core.Round2(total.InexactFloat64()),
		})
	}
	return points, nil
}

func netWorth(accounts []core.AccountSnapshot, state ledger.State, table *fx.Table, at time.Time) (decimal.Decimal, error) {
	day := fx.BoundaryDay(at)
	total := decimal.Zero
	for _, acc := range accounts {
		balance := state[acc.ID].Balance
		if balance.IsZero() {
			continue
		}
		converted, err := table.ConvertOn(core.NewMoney(balance, acc.CurrencyCode), day)
		if err != nil {
			return decimal.Zero, fmt.Errorf("account %s: %w", acc.ID, err)
		}
		total = total.Add(converted)
	}
	return total, nil
}

func boundaries(periods []period) []time.Time {
	out := make([]time.Time, len(periods))
	for i, p := range periods {
		out[i] = p.asOf
	}
	return out
}

package dashboard

import (
	"context"
	"fmt"
	"time"

	"saldo/internal/analytics"
	"saldo/internal/core"
	"saldo/internal/fx"
	"saldo/internal/ledger"
)

const cancelCheckEvery = 1000

// flow is a non-transfer transaction already expressed in base currency.
type flow struct {
	at         time.Time
	day        core.Date
	typ        core.TransactionType
	categoryID string
	mandatory  bool
	amount     float64
}

// period is one calendar month clipped to the observable horizon: data is
// considered in [start, asOf).
type period struct {
	year  int
	month time.Month
	start time.Time
	end   time.Time
	asOf  time.Time
}

func newPeriod(year int, month time.Month, horizon time.Time) period {
	start := core.MonthStart(year, month)
	end := start.AddDate(0, 1, 0)
	asOf := end
	if horizon.Before(asOf) {
		asOf = horizon
	}
	if asOf.Before(start) {
		asOf = start
	}
	return period{year: year, month: month, start: start, end: end, asOf: asOf}
}

func (p period) daysInMonth() int {
	return core.DaysIn(p.year, p.month)
}

func (p period) observedDays() int {
	return core.DateOf(p.start).DaysUntil(core.DateOf(p.asOf))
}

func (p period) inProgress() bool {
	return p.asOf.Before(p.end)
}

// trailingMonths lists the n months ending with the month of now, oldest first.
func trailingMonths(now time.Time, n int, horizon time.Time) []period {
	first := core.MonthStart(now.Year(), now.Month()).AddDate(0, -(n - 1), 0)
	out := make([]period, 0, n)
	for i := range n {
		m := first.AddDate(0, i, 0)
		out = append(out, newPeriod(m.Year(), m.Month(), horizon))
	}
	return out
}

// ratePairs lists every conversion the request will perform: each flow on
// its own day plus each account balance at each boundary.
func ratePairs(data *ledgerData, boundaries []time.Time) []fx.Pair {
	pairs := make([]fx.Pair, 0, len(data.txs)+len(data.accounts)*len(boundaries))
	for _, tx := range data.txs {
		if tx.IsTransfer {
			continue
		}
		pairs = append(pairs, fx.PairAt(tx.Money.Currency, tx.OccurredAt))
	}
	for _, b := range boundaries {
		at := b.Add(-time.Nanosecond)
		for _, acc := range data.accounts {
			pairs = append(pairs, fx.PairAt(acc.CurrencyCode, at))
		}
	}
	return pairs
}

// convertFlows expresses every non-transfer transaction in base currency.
func convertFlows(ctx context.Context, data *ledgerData, table *fx.Table) ([]flow, error) {
	out := make([]flow, 0, len(data.txs))
	for i, tx := range data.txs {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if tx.IsTransfer {
			continue
		}
		amount, err := table.Convert(tx.Money, tx.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("convert transaction %s: %w", tx.ID, err)
		}
		out = append(out, flow{
			at:         tx.OccurredAt,
			day:        core.DateOf(tx.OccurredAt),
			typ:        tx.Type,
			categoryID: tx.CategoryID,
			mandatory:  tx.IsMandatory || data.categories[tx.CategoryID].IsMandatory,
			amount:     amount.InexactFloat64(),
		})
	}
	return out, nil
}

// dailyExpenses sums expense flows per calendar day over the whole history.
func dailyExpenses(flows []flow) map[core.Date]float64 {
	out := make(map[core.Date]float64)
	for _, f := range flows {
		if f.typ == core.Expense {
			out[f.day] += f.amount
		}
	}
	return out
}

// earliestActivity returns the first transaction instant, transfers included.
func earliestActivity(txs []core.TransactionSnapshot) time.Time {
	var earliest time.Time
	for _, tx := range txs {
		if earliest.IsZero() || tx.OccurredAt.Before(earliest) {
			earliest = tx.OccurredAt
		}
	}
	return earliest.UTC()
}

func (d *ledgerData) stream() (ledger.Stream, error) {
	stream, err := ledger.BuildEventStream(d.accounts, ledger.DeltasFromTransactions(d.txs), d.adjustments)
	if err != nil {
		return nil, fmt.Errorf("build balance stream: %w", err)
	}
	return stream, nil
}

type monthAgg struct {
	income        float64
	expense       float64
	mandatory     float64
	discretionary float64
	daily         map[core.Date]float64
	categories    map[string]float64
}

func aggregateMonth(flows []flow, from, to time.Time) monthAgg {
	agg := monthAgg{daily: make(map[core.Date]float64), categories: make(map[string]float64)}
	for _, f := range flows {
		if f.at.Before(from) || !f.at.Before(to) {
			continue
		}
		if f.typ == core.Income {
			agg.income += f.amount
			continue
		}
		agg.expense += f.amount
		agg.daily[f.day] += f.amount
		agg.categories[f.categoryID] += f.amount
		if f.mandatory {
			agg.mandatory += f.amount
		} else {
			agg.discretionary += f.amount
		}
	}
	return agg
}

// facts are the per-month health signals shared by the dashboard and the
// evolution rows.
type facts struct {
	agg       monthAgg
	stability *analytics.Stability
	peaks     analytics.PeaksSummary
	peakDays  []analytics.PeakDay
	split     analytics.SpendingBreakdown
	savings   *float64
	liquid    float64
	avgDaily  float64
	runway    *analytics.Runway
	score     *float64
}

func computeFacts(p period, flows []flow, expenses map[core.Date]float64, earliest time.Time, data *ledgerData, balances ledger.State, table *fx.Table) (facts, error) {
	f := facts{agg: aggregateMonth(flows, p.start, p.asOf)}
	f.stability = analytics.AnalyzeStability(f.agg.daily)
	f.peaks, f.peakDays = analytics.DetectPeaks(f.agg.daily)
	f.split = analytics.SpendingSplit(f.agg.mandatory, f.agg.discretionary)
	f.savings = analytics.SavingsRate(f.agg.income, f.agg.expense)

	liquid, err := analytics.LiquidAssets(data.accounts, balances.Balances(), table, p.asOf)
	if err != nil {
		return facts{}, fmt.Errorf("liquid assets: %w", err)
	}
	f.liquid = liquid.InexactFloat64()
	f.avgDaily = analytics.AverageDailyExpense(expenses, p.asOf.AddDate(0, 0, -analytics.PoolDays), p.asOf, earliest)
	f.runway = analytics.ComputeRunway(f.liquid, f.avgDaily)

	in := analytics.ScoreInputs{
		SavingsRate:          f.savings,
		DiscretionaryPercent: f.split.DiscretionaryPercent,
		PeakSharePercent:     f.peaks.SharePercent,
	}
	if f.runway != nil {
		in.LiquidMonths = &f.runway.Months
	}
	if f.stability != nil {
		in.StabilityScore = &f.stability.Score
	}
	f.score = analytics.AggregateMonthScore(in)
	return f, nil
}

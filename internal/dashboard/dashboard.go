package dashboard

import (
	"context"
	"fmt"
	"time"

	"saldo/internal/analytics"
	"saldo/internal/core"
	"saldo/internal/ledger"
)

// priorMonthsForDeltas is how many earlier months feed the category baseline.
const priorMonthsForDeltas = 3

type (
	Dashboard struct {
		Year              int                         `json:"year"`
		Month             int                         `json:"month"`
		BaseCurrency      string                      `json:"baseCurrency"`
		AsOf              time.Time                   `json:"asOf"`
		Health            Health                      `json:"health"`
		PeaksSummary      analytics.PeaksSummary      `json:"peaksSummary"`
		PeakDays          []analytics.PeakDay         `json:"peakDays"`
		CategoryBreakdown []analytics.CategoryShare   `json:"categoryBreakdown"`
		SpendingBreakdown analytics.SpendingBreakdown `json:"spendingBreakdown"`
		Forecast          ForecastView                `json:"forecast"`
		Readiness         Readiness                   `json:"readiness"`
	}

	Health struct {
		Income              float64                  `json:"income"`
		Expense             float64                  `json:"expense"`
		Stability           *analytics.Stability     `json:"stability"`
		LiquidAssets        float64                  `json:"liquidAssets"`
		AverageDailyExpense float64                  `json:"averageDailyExpense"`
		Runway              *analytics.Runway        `json:"runway"`
		SavingsRate         *float64                 `json:"savingsRate"`
		Score               *float64                 `json:"score"`
		CategoryDeltas      analytics.CategoryDeltas `json:"categoryDeltas"`
	}

	ForecastView struct {
		Optimistic *analytics.Scenario     `json:"optimistic"`
		Risk       *analytics.Scenario     `json:"risk"`
		Series     []analytics.SeriesPoint `json:"series"`
	}

	// Readiness tells clients which facets could be computed. A false flag
	// means "not enough data yet", never an error.
	Readiness struct {
		HasTransactions bool `json:"hasTransactions"`
		InProgress      bool `json:"inProgress"`
		ObservedDays    int  `json:"observedDays"`
		RemainingDays   int  `json:"remainingDays"`
		Stability       bool `json:"stability"`
		Peaks           bool `json:"peaks"`
		Forecast        bool `json:"forecast"`
		Runway          bool `json:"runway"`
		SavingsRate     bool `json:"savingsRate"`
		Score           bool `json:"score"`
	}
)

// GetDashboard computes the financial-health dashboard of one month. The
// current month is analysed up to the end of today.
func (s *Service) GetDashboard(ctx context.Context, userID string, year, month int) (*Dashboard, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	started := time.Now()
	p := newPeriod(year, time.Month(month), s.horizon())

	data, err := s.fetch(ctx, userID, p.asOf)
	if err != nil {
		return nil, err
	}

	table, err := s.resolver.Resolve(ctx, ratePairs(data, []time.Time{p.asOf}), data.base)
	if err != nil {
		return nil, err
	}
	flows, err := convertFlows(ctx, data, table)
	if err != nil {
		return nil, err
	}

	stream, err := data.stream()
	if err != nil {
		return nil, err
	}
	state, err := ledger.AdvanceToBoundary(p.asOf, stream, nil)
	if err != nil {
		return nil, err
	}

	expenses := dailyExpenses(flows)
	earliest := earliestActivity(data.txs)
	f, err := computeFacts(p, flows, expenses, earliest, data, state, table)
	if err != nil {
		return nil, err
	}

	prior := make([]map[string]float64, 0, priorMonthsForDeltas)
	for i := 1; i <= priorMonthsForDeltas; i++ {
		from := p.start.AddDate(0, -i, 0)
		prior = append(prior, aggregateMonth(flows, from, from.AddDate(0, 1, 0)).categories)
	}

	forecast, err := s.forecast(ctx, p, f.agg, expenses, earliest)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Year:         year,
		Month:        month,
		BaseCurrency: data.base,
		AsOf:         p.asOf,
		Health: Health{
			Income:              f.agg.income,
			Expense:             f.agg.expense,
			Stability:           f.stability,
			LiquidAssets:        f.liquid,
			AverageDailyExpense: f.avgDaily,
			Runway:              f.runway,
			SavingsRate:         f.savings,
			Score:               f.score,
			CategoryDeltas:      analytics.CompareCategories(f.agg.categories, analytics.AveragePrior(prior), data.categories),
		},
		PeaksSummary:      f.peaks,
		PeakDays:          f.peakDays,
		CategoryBreakdown: analytics.Breakdown(f.agg.categories, data.categories),
		SpendingBreakdown: f.split,
		Forecast:          forecast,
		Readiness: Readiness{
			HasTransactions: len(data.txs) > 0,
			InProgress:      p.inProgress(),
			ObservedDays:    p.observedDays(),
			RemainingDays:   p.daysInMonth() - p.observedDays(),
			Stability:       f.stability != nil,
			Peaks:           f.peaks.Threshold != nil,
			Forecast:        forecast.Optimistic != nil,
			Runway:          f.runway != nil,
			SavingsRate:     f.savings != nil,
			Score:           f.score != nil,
		},
	}

	s.logger.DebugContext(ctx, "Dashboard computed",
		"user_id", userID,
		"year", year,
		"month", month,
		"transactions", len(data.txs),
		"fx_pairs", table.Len(),
		"duration_ms", time.Since(started).Milliseconds())

	return d, nil
}

func (s *Service) forecast(ctx context.Context, p period, agg monthAgg, expenses map[core.Date]float64, earliest time.Time) (ForecastView, error) {
	observedDays := p.observedDays()
	observed := make([]float64, observedDays)
	first := core.DateOf(p.start)
	for i := range observed {
		observed[i] = agg.daily[first.AddDays(i)]
	}

	var pool []float64
	if !earliest.IsZero() {
		pool = analytics.TrailingPool(expenses, core.DateOf(p.asOf), core.DateOf(earliest))
	}

	fc, err := analytics.Simulate(ctx, analytics.ForecastInput{
		Year:          p.year,
		Month:         p.month,
		ObservedDays:  observedDays,
		RemainingDays: p.daysInMonth() - observedDays,
		Actual:        agg.expense,
		Pool:          pool,
	}, s.simulations)
	if err != nil {
		return ForecastView{}, fmt.Errorf("simulate forecast: %w", err)
	}

	return ForecastView{
		Optimistic: fc.Optimistic,
		Risk:       fc.Risk,
		Series:     analytics.BuildSeries(p.daysInMonth(), observed, fc),
	}, nil
}

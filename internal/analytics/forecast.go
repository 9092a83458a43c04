package analytics

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"saldo/internal/core"
	"saldo/internal/stats"
)

const (
	DefaultSimulations = 10000
	PoolDays           = 180
	MinPoolDays        = 10

	decayLambda        = 0.02
	optimisticQuantile = 0.35
	riskQuantile       = 0.85
	cancelCheckEvery   = 1000
)

type (
	// ForecastInput is the observed state of a month plus the trailing
	// daily-expense pool, ordered oldest to newest.
	ForecastInput struct {
		Year          int
		Month         time.Month
		ObservedDays  int
		RemainingDays int
		Actual        float64
		Pool          []float64
	}

	Scenario struct {
		Total     float64 `json:"total"`
		DailyRate float64 `json:"dailyRate"`
	}

	Forecast struct {
		Optimistic *Scenario `json:"optimistic"`
		Risk       *Scenario `json:"risk"`
	}

	SeriesPoint struct {
		Day        int      `json:"day"`
		Actual     *float64 `json:"actual"`
		Optimistic *float64 `json:"optimistic"`
		Risk       *float64 `json:"risk"`
	}
)

// TrailingPool collects the daily totals of every day in
// [max(end-PoolDays, earliest), end), zero-spend days included.
func TrailingPool(daily map[core.Date]float64, end, earliest core.Date) []float64 {
	start := end.AddDays(-PoolDays)
	if !earliest.IsZero() && start.Before(earliest) {
		start = earliest
	}
	var pool []float64
	for d := start; d.Before(end); d = d.AddDays(1) {
		pool = append(pool, daily[d])
	}
	return pool
}

// Simulate projects the month-end total with a recency-weighted bootstrap.
// Identical inputs always yield identical scenarios. A zero simulations
// count uses DefaultSimulations.
func Simulate(ctx context.Context, in ForecastInput, simulations int) (Forecast, error) {
	if len(in.Pool) < MinPoolDays || in.RemainingDays <= 0 {
		return Forecast{}, nil
	}
	if simulations <= 0 {
		simulations = DefaultSimulations
	}

	cdf := decayCDF(len(in.Pool))
	seed := forecastSeed(in)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	totals := make([]float64, simulations)
	for i := range totals {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Forecast{}, err
			}
		}
		total := in.Actual
		for range in.RemainingDays {
			total += in.Pool[sample(cdf, rng.Float64())]
		}
		totals[i] = total
	}
	slices.Sort(totals)

	return Forecast{
		Optimistic: scenario(stats.QuantileSorted(totals, optimisticQuantile), in),
		Risk:       scenario(stats.QuantileSorted(totals, riskQuantile), in),
	}, nil
}

func scenario(total float64, in ForecastInput) *Scenario {
	return &Scenario{
		Total:     total,
		DailyRate: (total - in.Actual) / float64(in.RemainingDays),
	}
}

// decayCDF returns the normalized cumulative weights for a pool of n days,
// the last day having age 0.
func decayCDF(n int) []float64 {
	cdf := make([]float64, n)
	var acc float64
	for i := range n {
		age := float64(n - 1 - i)
		acc += math.Exp(-decayLambda * age)
		cdf[i] = acc
	}
	for i := range cdf {
		cdf[i] /= acc
	}
	return cdf
}

// sample maps u in [0,1) to a pool index by inverse CDF.
func sample(cdf []float64, u float64) int {
	idx := sort.SearchFloat64s(cdf, u)
	if idx >= len(cdf) {
		return len(cdf) - 1
	}
	return idx
}

func forecastSeed(in ForecastInput) uint64 {
	buf := make([]byte, 0, 8*(5+len(in.Pool)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(in.Year))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(in.Month))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(in.ObservedDays))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(in.RemainingDays))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(core.Cents(in.Actual)))
	for _, v := range in.Pool {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(core.Cents(v)))
	}
	return xxhash.Sum64(buf)
}

// BuildSeries lays out the cumulative curves of a month. observed holds the
// daily totals of the days already observed; later days extrapolate each
// scenario linearly and leave Actual nil.
func BuildSeries(daysInMonth int, observed []float64, fc Forecast) []SeriesPoint {
	points := make([]SeriesPoint, 0, daysInMonth)
	var cumulative float64
	for day := 1; day <= daysInMonth; day++ {
		if day <= len(observed) {
			cumulative += observed[day-1]
			v := cumulative
			points = append(points, SeriesPoint{Day: day, Actual: ptr(v), Optimistic: ptr(v), Risk: ptr(v)})
			continue
		}
		ahead := float64(day - len(observed))
		p := SeriesPoint{Day: day}
		if fc.Optimistic != nil {
			p.Optimistic = ptr(cumulative + fc.Optimistic.DailyRate*ahead)
		}
		if fc.Risk != nil {
			p.Risk = ptr(cumulative + fc.Risk.DailyRate*ahead)
		}
		points = append(points, p)
	}
	return points
}

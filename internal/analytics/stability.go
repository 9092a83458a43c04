// Package analytics computes the financial-health facets of a month from
// daily and per-category totals already expressed in base currency.
//
// Every function is deterministic. Insufficient data is reported with nil
// results, never with errors.
package analytics

import (
	"sort"

	"saldo/internal/core"
	"saldo/internal/stats"
)

// MinStabilityDays is the number of positive spending days required before
// a stability index is meaningful.
const MinStabilityDays = 4

type (
	Status     string
	ActionCode string
)

const (
	StatusGood    Status = "good"
	StatusAverage Status = "average"
	StatusPoor    Status = "poor"

	ActionKeepRoutine     ActionCode = "keep_routine"
	ActionSmoothSpikes    ActionCode = "smooth_spikes"
	ActionCapImpulseSpend ActionCode = "cap_impulse_spend"
)

// Stability describes how evenly money was spent across days.
type Stability struct {
	Index  float64    `json:"index"`
	Score  float64    `json:"score"`
	Status Status     `json:"status"`
	Action ActionCode `json:"actionCode"`
	Days   int        `json:"days"`
}

// DailyValues returns the totals of daily ordered by date.
func DailyValues(daily map[core.Date]float64) []float64 {
	dates := SortedDates(daily)
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = daily[d]
	}
	return out
}

// SortedDates returns the keys of daily in ascending order.
func SortedDates[V any](daily map[core.Date]V) []core.Date {
	dates := make([]core.Date, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// AnalyzeStability computes the interquartile-range-over-median index on the
// positive daily totals. It returns nil with fewer than MinStabilityDays
// qualifying days.
func AnalyzeStability(daily map[core.Date]float64) *Stability {
	positive := stats.Positive(DailyValues(daily))
	if len(positive) < MinStabilityDays {
		return nil
	}
	median, _ := stats.Median(positive)
	if median <= 0 {
		return nil
	}
	q1, _ := stats.Quantile(positive, 0.25)
	q3, _ := stats.Quantile(positive, 0.75)
	index := (q3 - q1) / median

	status := StabilityStatus(index)
	return &Stability{
		Index:  index,
		Score:  StabilityScore(index),
		Status: status,
		Action: StabilityAction(status),
		Days:   len(positive),
	}
}

// StabilityScore maps the index onto 0..100, higher meaning steadier spending.
func StabilityScore(index float64) float64 {
	var score float64
	switch {
	case index <= 1.0:
		score = 100 - 30*index
	case index <= 2.0:
		score = 70 - 30*(index-1)
	case index <= 4.0:
		score = 40 - 20*(index-2)
	default:
		score = 0
	}
	return clamp(score, 0, 100)
}

// StabilityStatus labels an index.
func StabilityStatus(index float64) Status {
	switch {
	case index <= 1.0:
		return StatusGood
	case index <= 2.0:
		return StatusAverage
	default:
		return StatusPoor
	}
}

// StabilityAction is the suggested behaviour for a stability status.
func StabilityAction(s Status) ActionCode {
	switch s {
	case StatusGood:
		return ActionKeepRoutine
	case StatusAverage:
		return ActionSmoothSpikes
	default:
		return ActionCapImpulseSpend
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ptr[T any](v T) *T {
	return &v
}

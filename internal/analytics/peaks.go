package analytics

import (
	"math"

	"saldo/internal/core"
	"saldo/internal/stats"
)

const (
	// minRobustPeakSamples switches the threshold from 2x median to the
	// P90 / MAD rule.
	minRobustPeakSamples = 10
	peakMADFactor        = 1.2
	peakQuantile         = 0.90
)

type (
	PeakDay struct {
		Date   core.Date `json:"date"`
		Amount float64   `json:"amount"`
	}

	PeaksSummary struct {
		Count        int      `json:"count"`
		Total        float64  `json:"total"`
		SharePercent *float64 `json:"sharePercent"`
		Threshold    *float64 `json:"threshold"`
	}
)

// PeakThreshold returns the amount at or above which a day counts as a peak.
// It needs at least one positive total.
func PeakThreshold(positive []float64) (float64, bool) {
	median, ok := stats.Median(positive)
	if !ok {
		return 0, false
	}
	if len(positive) < minRobustPeakSamples {
		return 2 * median, true
	}
	p90, _ := stats.Quantile(positive, peakQuantile)
	mad, _ := stats.MAD(positive, median)
	return math.Max(p90, median+peakMADFactor*mad), true
}

// DetectPeaks flags the days whose total reaches the peak threshold. The
// share is computed against the sum of all daily totals and is nil when that
// sum is not positive.
func DetectPeaks(daily map[core.Date]float64) (PeaksSummary, []PeakDay) {
	values := DailyValues(daily)
	summary := PeaksSummary{}
	peaks := []PeakDay{}

	threshold, ok := PeakThreshold(stats.Positive(values))
	if !ok {
		return summary, peaks
	}
	summary.Threshold = ptr(threshold)

	for _, d := range SortedDates(daily) {
		amount := daily[d]
		if amount <= 0 || amount < threshold {
			continue
		}
		peaks = append(peaks, PeakDay{Date: d, Amount: amount})
		summary.Count++
		summary.Total += amount
	}

	if monthTotal := stats.Sum(values); monthTotal > 0 {
		summary.SharePercent = ptr(summary.Total / monthTotal * 100)
	}
	return summary, peaks
}

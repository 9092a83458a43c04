// Package stats provides robust descriptive statistics over float64 samples.
//
// All functions are pure: they never mutate their input and report an empty
// sample through a false second return value instead of an error.
package stats

import (
	"math"
	"slices"
)

// Median returns the middle value of values. For an even count it is the mean
// of the two central values.
func Median(values []float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := sortedCopy(values)
	mid := n / 2
	if n%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, true
	}
	return sorted[mid], true
}

// Quantile returns the q-quantile of values using linear interpolation between
// the closest ranks at position (n-1)*q. q<=0 yields the minimum and q>=1 the maximum.
func Quantile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return QuantileSorted(sortedCopy(values), q), true
}

// QuantileSorted is Quantile on input already sorted ascending. The caller
// guarantees a non-empty slice.
func QuantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MAD returns the median absolute deviation of values around center.
func MAD(values []float64, center float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - center)
	}
	return Median(deviations)
}

// Sum adds values.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Positive returns the strictly positive values, preserving order.
func Positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func sortedCopy(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted
}

package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{name: "empty", values: nil, ok: false},
		{name: "single", values: []float64{7}, want: 7, ok: true},
		{name: "odd count", values: []float64{9, 1, 5}, want: 5, ok: true},
		{name: "even count averages central pair", values: []float64{4, 1, 3, 2}, want: 2.5, ok: true},
		{name: "negative values", values: []float64{-3, -1, -2}, want: -2, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.values)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, _ = Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestQuantile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		name string
		q    float64
		want float64
	}{
		{name: "q below zero is min", q: -0.5, want: 10},
		{name: "q zero is min", q: 0, want: 10},
		{name: "q one is max", q: 1, want: 50},
		{name: "q above one is max", q: 1.5, want: 50},
		{name: "exact rank", q: 0.5, want: 30},
		{name: "interpolated", q: 0.9, want: 46},
		{name: "lower quartile", q: 0.25, want: 20},
		{name: "interpolated low", q: 0.1, want: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Quantile(values, tt.q)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, ok := Quantile(nil, 0.5)
	assert.False(t, ok)
}

func TestQuantileHalfEqualsMedian(t *testing.T) {
	samples := [][]float64{
		{1},
		{1, 2},
		{5, 3, 9, 1},
		{2.5, 100, -4, 7, 7, 0.1},
		{50, 60, 55, 500, 42, 17, 3},
	}
	for _, xs := range samples {
		m, _ := Median(xs)
		q, _ := Quantile(xs, 0.5)
		assert.InDelta(t, m, q, 1e-12, "sample %v", xs)
	}
}

func TestQuantileMonotonicInQ(t *testing.T) {
	xs := []float64{12, 3, 3, 40, 18, 7, 7, 91, 0, 5}
	prev := math.Inf(-1)
	for q := -0.1; q <= 1.1; q += 0.01 {
		v, ok := Quantile(xs, q)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, prev, "q=%v", q)
		prev = v
	}
}

func TestMAD(t *testing.T) {
	values := []float64{1, 1, 2, 2, 4, 6, 9}
	center, _ := Median(values)
	got, ok := MAD(values, center)
	require.True(t, ok)
	// deviations around 2: 1,1,0,0,2,4,7 -> median 1
	assert.InDelta(t, 1.0, got, 1e-12)

	flat := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 1000}
	got, ok = MAD(flat, 100)
	require.True(t, ok)
	assert.Zero(t, got)

	_, ok = MAD(nil, 0)
	assert.False(t, ok)
}

func TestPositiveAndSum(t *testing.T) {
	values := []float64{0, -5, 3, 2.5, 0}
	assert.Equal(t, []float64{3, 2.5}, Positive(values))
	assert.InDelta(t, 0.5, Sum(values), 1e-12)
}

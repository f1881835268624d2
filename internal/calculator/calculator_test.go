package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	m, err := Mean([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, m, 1e-9)

	_, err = Mean(nil)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 0.0, MeanOrZero(nil))
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{5, 1, 3}, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Median(tt.values)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	in := []float64{3, 1, 2}
	_, _ = Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in, "input must not be reordered")
}

func TestSampleStdDev(t *testing.T) {
	assert.Equal(t, 0.0, SampleStdDev([]float64{42}))
	// 2,4,4,4,5,5,7,9: population sd 2, sample sd sqrt(32/7)
	got := SampleStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, math.Sqrt(32.0/7.0), got, 1e-9)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 0.0, CoefficientOfVariation(3, 0))
	assert.InDelta(t, 0.5, CoefficientOfVariation(5, 10), 1e-9)
}

func TestRSquared(t *testing.T) {
	line := make([]float64, 20)
	for i := range line {
		line[i] = 3*float64(i) + 1
	}
	r2, ok := RSquared(line)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r2, 1e-9)

	_, ok = RSquared(line[:9])
	assert.False(t, ok, "fewer than 10 points")

	flat := make([]float64, 15)
	r2, ok = RSquared(flat)
	assert.False(t, ok)
	assert.Equal(t, 0.0, r2)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.2))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.3, Clamp01(0.3))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestMinMax(t *testing.T) {
	lo, hi, err := MinMax([]float64{3, -1, 8})
	require.NoError(t, err)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 8.0, hi)

	_, _, err = MinMax(nil)
	assert.Error(t, err)
}

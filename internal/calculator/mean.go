package calculator

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrNoData is returned when a statistic needs at least one value.
var ErrNoData = errors.New("no data")

// Sum adds the values in slice order.
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// Mean computes the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoData
	}
	return Sum(values) / float64(len(values)), nil
}

// MeanOrZero is Mean with empty input mapped to 0.
func MeanOrZero(values []float64) float64 {
	m, err := Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// Median returns the middle value, averaging the two central values for even counts.
// The input slice is not modified.
func Median(values []float64) (float64, error) {
	n := len(values)
	if n == 0 {
		return 0, ErrNoData
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2], nil
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, nil
}

package calculator

import "math"

// SampleStdDev computes the n-1 standard deviation. Fewer than two values yield 0.
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Sum(values) / float64(n)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// CoefficientOfVariation is stddev/mean, 0 when the mean is not positive.
func CoefficientOfVariation(stddev, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return stddev / mean
}

// MinRegressionPoints is the smallest series RSquared will fit.
const MinRegressionPoints = 10

// RSquared fits ys against their index and returns the coefficient of
// determination. ok is false when the series is too short or flat.
func RSquared(ys []float64) (r2 float64, ok bool) {
	n := len(ys)
	if n < MinRegressionPoints {
		return 0, false
	}
	xMean := float64(n-1) / 2
	yMean := Sum(ys) / float64(n)
	var ssXY, ssXX, ssYY float64
	for i, y := range ys {
		dx := float64(i) - xMean
		dy := y - yMean
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}
	if ssXX <= 0 || ssYY <= 0 {
		return 0, false
	}
	r := ssXY / math.Sqrt(ssXX*ssYY)
	return Clamp01(r * r), true
}

package algo

import (
	"math"
	"sort"
)

// flatTolerance is the relative spread below which a group is treated as having zero variance.
const flatTolerance = 1e-12

// MeanStdDev returns the mean and population standard deviation of values.
// NaN entries are missing and do not count toward the population.
func MeanStdDev(values []float64) (float64, float64) {
	var sum float64
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	mean := sum / float64(n)

	var varianceSum float64
	for _, v := range values {
		if !math.IsNaN(v) {
			diff := v - mean
			varianceSum += diff * diff
		}
	}
	return mean, math.Sqrt(varianceSum / float64(n))
}

// ZScores returns the standard score of each value against the population of values.
// A flat population (including a single value) scores 0 everywhere, and so does a missing value.
func ZScores(values []float64) []float64 {
	scores := make([]float64, len(values))
	mean, stdDev := MeanStdDev(values)
	if stdDev <= flatTolerance*math.Max(1, math.Abs(mean)) {
		return scores
	}
	for i, v := range values {
		if !math.IsNaN(v) {
			scores[i] = (v - mean) / stdDev
		}
	}
	return scores
}

// TrailingMean returns the mean of each value and up to window-1 values before it.
// Leading positions average whatever is available. NaN entries are skipped, so a
// position is NaN only when its whole window is missing.
func TrailingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}
	for i := range values {
		var sum float64
		n := 0
		for _, v := range values[max(0, i-window+1) : i+1] {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Mean returns the arithmetic mean of values, or NaN when there are none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of values, or NaN when there are none.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

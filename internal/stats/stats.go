// Package stats holds the small set of descriptive statistics shared by the
// cleaning pipeline, the summarizer and the chart builders.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Sorted returns an ascending copy of xs
func Sorted(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// Quantile returns the p-quantile of an ascending slice using linear
// interpolation between the closest ranks (h = (n-1)p). It returns NaN for
// an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Median returns the median of xs, or NaN when xs is empty
func Median(xs []float64) float64 {
	return Quantile(Sorted(xs), 0.5)
}

// Quartiles returns Q1 and Q3 of xs
func Quartiles(xs []float64) (q1, q3 float64) {
	s := Sorted(xs)
	return Quantile(s, 0.25), Quantile(s, 0.75)
}

// MeanStdDev returns the mean and the sample (n-1) standard deviation.
// The deviation is NaN for fewer than two values.
func MeanStdDev(xs []float64) (mean, std float64) {
	switch len(xs) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return xs[0], math.NaN()
	}
	return stat.MeanStdDev(xs, nil)
}

// Correlation returns the Pearson correlation of two equally long samples
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Mode returns the most frequent key and its count. Ties go to the smallest
// key according to less. ok is false when keys is empty.
func Mode[T comparable](keys []T, less func(a, b T) bool) (mode T, count int, ok bool) {
	counts := make(map[T]int, len(keys))
	for _, k := range keys {
		counts[k]++
	}
	for k, c := range counts {
		if !ok || c > count || (c == count && less(k, mode)) {
			mode, count, ok = k, c, true
		}
	}
	return mode, count, ok
}

// ModeString is Mode over strings with lexical tie-breaking
func ModeString(values []string) (string, int, bool) {
	return Mode(values, func(a, b string) bool { return a < b })
}

// Package stats provides the small set of order statistics the cleaning
// pipeline needs. Quantiles use linear interpolation between order
// statistics (the R-7 method), so cutoffs are reproducible across runs and
// match the common spreadsheet/NumPy default.
package stats

import (
	"math"
	"sort"
)

// Quantile returns the p-quantile (0 <= p <= 1) of values using linear
// interpolation between order statistics. The input is not modified.
// Returns NaN for an empty input.
func Quantile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Fences holds the lower and upper IQR outlier cutoffs.
type Fences struct {
	Lower float64
	Upper float64
	Q1    float64
	Q3    float64
}

// IQRFences computes [Q1-k*IQR, Q3+k*IQR] over values. Returns ok=false
// when values is empty.
func IQRFences(values []float64, k float64) (Fences, bool) {
	if len(values) == 0 {
		return Fences{}, false
	}
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1
	return Fences{
		Lower: q1 - k*iqr,
		Upper: q3 + k*iqr,
		Q1:    q1,
		Q3:    q3,
	}, true
}

// Within reports whether v falls inside the fences, edges included.
func (f Fences) Within(v float64) bool {
	return v >= f.Lower && v <= f.Upper
}

// Package stats holds the order statistics shared by the cleaning
// diagnostics and the RFM scorer: linear-interpolated quantiles, first-seen
// ranking and equal-frequency binning.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmpty is returned when a statistic is requested over no values.
	ErrEmpty = errors.New("stats: no values")
	// ErrDuplicateEdges is returned when quantile bin edges are not strictly
	// increasing, so the requested number of bins cannot be formed.
	ErrDuplicateEdges = errors.New("stats: bin edges must be unique")
)

// Quantile returns the q-th quantile (0 <= q <= 1) of sorted using linear
// interpolation between the two closest ranks. sorted must be ascending.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	index := q * float64(n-1)
	lower := int(math.Floor(index))
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	return lerp(sorted[lower], sorted[upper], index-float64(lower))
}

// lerp interpolates from the nearer end so that t=1 yields b exactly.
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Quantile(Sorted(values), 0.5)
}

// RankFirst assigns ranks 1..n in ascending value order. Equal values are
// ranked in the order they appear, so every rank is distinct.
func RankFirst(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return values[order[i]] < values[order[j]]
	})

	ranks := make([]float64, len(values))
	for rank, idx := range order {
		ranks[idx] = float64(rank + 1)
	}
	return ranks
}

// QuantileEdges returns the bins+1 edges that split values into bins
// equal-frequency intervals.
func QuantileEdges(values []float64, bins int) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}
	if bins < 1 {
		return nil, fmt.Errorf("stats: bins must be positive, got %d", bins)
	}

	sorted := Sorted(values)
	step := 1.0 / float64(bins)
	edges := make([]float64, bins+1)
	for i := 0; i < bins; i++ {
		edges[i] = Quantile(sorted, float64(i)*step)
	}
	edges[bins] = sorted[len(sorted)-1]

	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("%w: edge %d (%g) does not exceed edge %d (%g)",
				ErrDuplicateEdges, i, edges[i], i-1, edges[i-1])
		}
	}
	return edges, nil
}

// QCut assigns each value a 1-based bin in [1, bins] using quantile edges.
// Bins are right-closed; the first bin also includes its lower edge.
func QCut(values []float64, bins int) ([]int, error) {
	edges, err := QuantileEdges(values, bins)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(values))
	for i, v := range values {
		labels[i] = binFor(edges, v)
	}
	return labels, nil
}

func binFor(edges []float64, v float64) int {
	// first edge e with v <= e, searching edges[1:]
	idx := sort.Search(len(edges)-1, func(i int) bool {
		return v <= edges[i+1]
	})
	if idx >= len(edges)-1 {
		idx = len(edges) - 2
	}
	return idx + 1
}

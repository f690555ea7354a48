// Package impact aggregates per-parcel tax changes into distributional
// summary tables by category and by demographic quintile.
package impact

import (
	"sort"

	"github.com/rotisserie/eris"
)

// ErrInsufficientVariation marks a quintile cut over a variable with fewer
// than five distinct values. Downstream comparisons assume exactly five
// groups, so the cut fails rather than silently producing fewer bins.
var ErrInsufficientVariation = eris.New("insufficient variation for quintile cut")

// QuintileLabels are the ordinal group labels, lowest to highest.
var QuintileLabels = [5]string{"Q1", "Q2", "Q3", "Q4", "Q5"}

// Quintiles partitions values into five equal-count bins using rank-based
// boundaries, ties broken by original order. It returns the bin index (0-4)
// for each value, in input order. Bin sizes differ by at most one.
func Quintiles(values []float64) ([]int, error) {
	distinct := make(map[float64]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	if len(distinct) < 5 {
		return nil, eris.Wrapf(ErrInsufficientVariation,
			"impact: %d distinct values in %d observations", len(distinct), len(values))
	}

	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	bins := make([]int, len(values))
	n := len(values)
	for rank, i := range idx {
		bins[i] = rank * 5 / n
	}
	return bins, nil
}

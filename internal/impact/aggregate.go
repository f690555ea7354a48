package impact

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Row is one parcel's contribution to an aggregation: its group key, its tax
// change, and its percent change (nil when undefined).
type Row struct {
	Group         string
	Change        float64
	PercentChange *float64
}

// GroupStats summarizes one group of parcels.
type GroupStats struct {
	Group             string  `json:"group"`
	Count             int     `json:"count"`
	MeanChange        float64 `json:"mean_change"`
	MedianChange      float64 `json:"median_change"`
	// MeanPercentChange averages only rows with a defined percent change;
	// nil when no row in the group has one.
	MeanPercentChange *float64 `json:"mean_percent_change,omitempty"`
	// ShareIncreased is the fraction of parcels with a strictly positive
	// tax change.
	ShareIncreased float64 `json:"share_increased"`
}

// Summarize groups rows by their key and computes per-group statistics.
// Groups are returned in lexical key order.
func Summarize(rows []Row) ([]GroupStats, error) {
	if len(rows) == 0 {
		return nil, eris.New("impact: no rows to summarize")
	}

	byGroup := make(map[string][]Row)
	for _, r := range rows {
		byGroup[r.Group] = append(byGroup[r.Group], r)
	}

	keys := make([]string, 0, len(byGroup))
	for k := range byGroup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stats := make([]GroupStats, 0, len(keys))
	for _, k := range keys {
		stats = append(stats, summarizeGroup(k, byGroup[k]))
	}
	return stats, nil
}

func summarizeGroup(key string, rows []Row) GroupStats {
	gs := GroupStats{Group: key, Count: len(rows)}

	changes := make([]float64, len(rows))
	var pctSum float64
	var pctN, increased int
	for i, r := range rows {
		changes[i] = r.Change
		gs.MeanChange += r.Change
		if r.Change > 0 {
			increased++
		}
		if r.PercentChange != nil {
			pctSum += *r.PercentChange
			pctN++
		}
	}
	gs.MeanChange /= float64(len(rows))
	gs.MedianChange = median(changes)
	gs.ShareIncreased = float64(increased) / float64(len(rows))
	if pctN > 0 {
		mean := pctSum / float64(pctN)
		gs.MeanPercentChange = &mean
	}
	return gs
}

// SummarizeByQuintile bins rows by the quintile of an aligned continuous
// variable and summarizes each bin. A nil value excludes its row from the
// aggregation (parcel without a demographic match) without failing it.
// values must be parallel to rows.
func SummarizeByQuintile(values []*float64, rows []Row) ([]GroupStats, error) {
	if len(values) != len(rows) {
		return nil, eris.Errorf("impact: %d values for %d rows", len(values), len(rows))
	}

	var obs []float64
	var kept []Row
	for i, v := range values {
		if v == nil {
			continue
		}
		obs = append(obs, *v)
		kept = append(kept, rows[i])
	}

	bins, err := Quintiles(obs)
	if err != nil {
		return nil, err
	}

	labeled := make([]Row, len(kept))
	for i, r := range kept {
		r.Group = QuintileLabels[bins[i]]
		labeled[i] = r
	}
	return Summarize(labeled)
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

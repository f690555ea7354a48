// Package landuse provides land-utilization analyses over the parcel roll:
// vacant-land patterns, parking-lot efficiency, improvement-share bands, and
// the development tax penalty. All dollar figures are computed on non-exempt
// (exemption-adjusted) values.
package landuse

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

// GroupValue summarizes adjusted land value for one grouping key.
type GroupValue struct {
	Key         string  `json:"key"`
	Count       int     `json:"count"`
	TotalValue  float64 `json:"total_value"`
	MeanValue   float64 `json:"mean_value"`
	MedianValue float64 `json:"median_value"`
}

// OwnerConcentration reports how much vacant land value the largest owners
// hold. Top shares use head counts of 5% and 10% of owners, minimum one.
type OwnerConcentration struct {
	Owners       int     `json:"owners"`
	Top5PctValue float64 `json:"top_5_pct_value"`
	Top5PctShare float64 `json:"top_5_pct_share"`
	Top10Value   float64 `json:"top_10_pct_value"`
	Top10Share   float64 `json:"top_10_pct_share"`
}

// VacantAnalysis summarizes vacant-land holdings.
type VacantAnalysis struct {
	Parcels         int                 `json:"parcels"`
	TotalLandValue  float64             `json:"total_land_value"`
	MeanLandValue   float64             `json:"mean_land_value"`
	MedianLandValue float64             `json:"median_land_value"`
	// ShareOfCityLand is vacant adjusted land value as a percentage of
	// citywide adjusted land value.
	ShareOfCityLand float64             `json:"share_of_city_land_pct"`
	ByDistrict      []GroupValue        `json:"by_district,omitempty"`
	Concentration   *OwnerConcentration `json:"concentration,omitempty"`
}

// adjustedLand returns the parcel's post-exemption land value.
func adjustedLand(p *model.Parcel) float64 {
	_, land := tax.TaxableParts(p)
	return land
}

// AnalyzeVacant summarizes parcels whose category matches vacantCategory.
// District grouping uses the parcel's tax district; owner concentration is
// computed when owners are present on the vacant subset.
func AnalyzeVacant(parcels []model.Parcel, isVacant func(*model.Parcel) bool) (*VacantAnalysis, error) {
	var vacant []*model.Parcel
	var cityLand float64
	for i := range parcels {
		cityLand += adjustedLand(&parcels[i])
		if isVacant(&parcels[i]) {
			vacant = append(vacant, &parcels[i])
		}
	}
	if len(vacant) == 0 {
		return nil, eris.New("landuse: no vacant parcels in input")
	}

	va := &VacantAnalysis{Parcels: len(vacant)}
	values := make([]float64, len(vacant))
	for i, p := range vacant {
		values[i] = adjustedLand(p)
		va.TotalLandValue += values[i]
	}
	va.MeanLandValue = va.TotalLandValue / float64(len(vacant))
	va.MedianLandValue = median(values)
	if cityLand > 0 {
		va.ShareOfCityLand = va.TotalLandValue / cityLand * 100
	}

	va.ByDistrict = groupLandValues(vacant, func(p *model.Parcel) string { return p.TaxDistrict })
	va.Concentration = ownerConcentration(vacant, va.TotalLandValue)

	return va, nil
}

// groupLandValues aggregates adjusted land value by key, descending by total.
// Parcels with an empty key are skipped.
func groupLandValues(parcels []*model.Parcel, key func(*model.Parcel) string) []GroupValue {
	byKey := make(map[string][]float64)
	for _, p := range parcels {
		k := key(p)
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], adjustedLand(p))
	}
	if len(byKey) == 0 {
		return nil
	}

	out := make([]GroupValue, 0, len(byKey))
	for k, vals := range byKey {
		gv := GroupValue{Key: k, Count: len(vals), MedianValue: median(vals)}
		for _, v := range vals {
			gv.TotalValue += v
		}
		gv.MeanValue = gv.TotalValue / float64(len(vals))
		out = append(out, gv)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].TotalValue != out[b].TotalValue {
			return out[a].TotalValue > out[b].TotalValue
		}
		return out[a].Key < out[b].Key
	})
	return out
}

func ownerConcentration(parcels []*model.Parcel, totalValue float64) *OwnerConcentration {
	byOwner := make(map[string]float64)
	for _, p := range parcels {
		if p.Owner == "" {
			continue
		}
		byOwner[p.Owner] += adjustedLand(p)
	}
	if len(byOwner) == 0 {
		return nil
	}

	held := make([]float64, 0, len(byOwner))
	for _, v := range byOwner {
		held = append(held, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(held)))

	oc := &OwnerConcentration{Owners: len(held)}
	top5 := max(len(held)*5/100, 1)
	top10 := max(len(held)*10/100, 1)
	for i := 0; i < top5; i++ {
		oc.Top5PctValue += held[i]
	}
	for i := 0; i < top10; i++ {
		oc.Top10Value += held[i]
	}
	if totalValue > 0 {
		oc.Top5PctShare = oc.Top5PctValue / totalValue * 100
		oc.Top10Share = oc.Top10Value / totalValue * 100
	}
	return oc
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

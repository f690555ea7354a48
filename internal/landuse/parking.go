package landuse

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

// ParkingOptions configures the parking-lot efficiency analysis.
type ParkingOptions struct {
	// MinLandValue focuses the underutilization screen on valuable land.
	MinLandValue float64
	// MaxImprovementRatio is the improvement/land ratio at or below which a
	// lot counts as underutilized.
	MaxImprovementRatio float64
}

// DefaultParkingOptions mirrors the reference analysis thresholds.
func DefaultParkingOptions() ParkingOptions {
	return ParkingOptions{MinLandValue: 50000, MaxImprovementRatio: 0.1}
}

// TierStats summarizes parking lots within one land-value tier.
type TierStats struct {
	Tier          string  `json:"tier"`
	Count         int     `json:"count"`
	TotalValue    float64 `json:"total_value"`
	MeanValue     float64 `json:"mean_value"`
	MeanImprRatio float64 `json:"mean_improvement_ratio"`
}

// DevelopmentPotential estimates what underutilized lots could carry if
// improved at the citywide average improvement/land ratio.
type DevelopmentPotential struct {
	CurrentImprovementValue   float64 `json:"current_improvement_value"`
	PotentialImprovementValue float64 `json:"potential_improvement_value"`
	UntappedValue             float64 `json:"untapped_value"`
	CitywideMeanRatio         float64 `json:"citywide_mean_ratio"`
}

// ParkingAnalysis summarizes parking-lot land utilization.
type ParkingAnalysis struct {
	Lots                  int                   `json:"lots"`
	TotalLandValue        float64               `json:"total_land_value"`
	TotalImprovementValue float64               `json:"total_improvement_value"`
	MeanLandValue         float64               `json:"mean_land_value"`
	MeanImprovementRatio  float64               `json:"mean_improvement_ratio"`
	UnderutilizedCount    int                   `json:"underutilized_count"`
	UnderutilizedValue    float64               `json:"underutilized_value"`
	Criteria              string                `json:"criteria"`
	Potential             *DevelopmentPotential `json:"potential,omitempty"`
	ByTier                []TierStats           `json:"by_tier"`
}

// tierBounds are the fixed land-value tier edges.
var tierBounds = []struct {
	upper float64
	label string
}{
	{25000, "<$25k"},
	{50000, "$25k-$50k"},
	{100000, "$50k-$100k"},
	{250000, "$100k-$250k"},
	{math.Inf(1), ">$250k"},
}

func tierLabel(v float64) string {
	for _, t := range tierBounds {
		if v <= t.upper {
			return t.label
		}
	}
	return tierBounds[len(tierBounds)-1].label
}

// AnalyzeParking screens parking parcels for high-value, underimproved land.
// Ratios use exemption-adjusted values; a lot with zero adjusted land value
// contributes a zero ratio rather than a division blowup.
func AnalyzeParking(parcels []model.Parcel, isParking func(*model.Parcel) bool, opts ParkingOptions) (*ParkingAnalysis, error) {
	var lots []*model.Parcel
	var cityLand, cityImpr float64
	for i := range parcels {
		b, l := tax.TaxableParts(&parcels[i])
		cityLand += l
		cityImpr += b
		if isParking(&parcels[i]) {
			lots = append(lots, &parcels[i])
		}
	}
	if len(lots) == 0 {
		return nil, eris.New("landuse: no parking parcels in input")
	}

	pa := &ParkingAnalysis{
		Lots: len(lots),
		Criteria: fmt.Sprintf("land value >= $%.0f and improvement ratio <= %.0f%%",
			opts.MinLandValue, opts.MaxImprovementRatio*100),
	}

	byTier := make(map[string]*TierStats)
	var ratioSum float64
	var underutilImpr float64
	for _, p := range lots {
		b, l := tax.TaxableParts(p)
		pa.TotalLandValue += l
		pa.TotalImprovementValue += b

		ratio := 0.0
		if l > 0 {
			ratio = b / l
		}
		ratioSum += ratio

		if l >= opts.MinLandValue && ratio <= opts.MaxImprovementRatio {
			pa.UnderutilizedCount++
			pa.UnderutilizedValue += l
			underutilImpr += b
		}

		label := tierLabel(l)
		ts, ok := byTier[label]
		if !ok {
			ts = &TierStats{Tier: label}
			byTier[label] = ts
		}
		ts.Count++
		ts.TotalValue += l
		ts.MeanImprRatio += ratio
	}
	pa.MeanLandValue = pa.TotalLandValue / float64(len(lots))
	pa.MeanImprovementRatio = ratioSum / float64(len(lots))

	if pa.UnderutilizedCount > 0 && cityLand > 0 {
		cityRatio := cityImpr / cityLand
		potential := pa.UnderutilizedValue * cityRatio
		pa.Potential = &DevelopmentPotential{
			CurrentImprovementValue:   underutilImpr,
			PotentialImprovementValue: potential,
			UntappedValue:             potential - underutilImpr,
			CitywideMeanRatio:         cityRatio,
		}
	}

	for _, t := range tierBounds {
		ts, ok := byTier[t.label]
		if !ok {
			continue
		}
		ts.MeanValue = ts.TotalValue / float64(ts.Count)
		ts.MeanImprRatio /= float64(ts.Count)
		pa.ByTier = append(pa.ByTier, *ts)
	}
	sort.SliceStable(pa.ByTier, func(a, b int) bool {
		return tierIndex(pa.ByTier[a].Tier) < tierIndex(pa.ByTier[b].Tier)
	})

	return pa, nil
}

func tierIndex(label string) int {
	for i, t := range tierBounds {
		if t.label == label {
			return i
		}
	}
	return len(tierBounds)
}

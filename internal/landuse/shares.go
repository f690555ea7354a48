package landuse

import (
	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

// ShareBand summarizes adjusted land value held by parcels within one
// improvement-share band.
type ShareBand struct {
	Band       string  `json:"band"`
	Count      int     `json:"count"`
	LandValue  float64 `json:"land_value"`
	ShareOfPct float64 `json:"share_of_total_land_pct"`
}

// ShareBandsResult is the improvement-share breakdown of land value.
type ShareBandsResult struct {
	TotalLandValue float64     `json:"total_land_value"`
	Bands          []ShareBand `json:"bands"`
}

// ImprovementShareBands buckets parcels by the improvement share of their
// full market value (improvement / (land + improvement)) and reports land
// totals on a non-exempt basis. Band membership uses full values; dollar
// totals use exemption-adjusted values. Fully exempt parcels are excluded.
//
// Bands: exactly 0% improvement, under 10% (excluding 0%), 10-25%, 25-50%.
func ImprovementShareBands(parcels []model.Parcel) *ShareBandsResult {
	const (
		bandZero = iota
		bandUnder10
		band10to25
		band25to50
		bandNone
	)
	labels := []string{"0% improvement", "<10% improvement", "10-25% improvement", "25-50% improvement"}

	res := &ShareBandsResult{Bands: make([]ShareBand, 4)}
	for i := range res.Bands {
		res.Bands[i].Band = labels[i]
	}

	for i := range parcels {
		p := &parcels[i]
		if p.FullyExempt {
			continue
		}
		_, land := tax.TaxableParts(p)
		res.TotalLandValue += land

		total := p.TaxableValue()
		if total <= 0 {
			continue
		}
		share := p.ImprovementValue / total

		band := bandNone
		switch {
		case p.ImprovementValue == 0:
			band = bandZero
		case share < 0.10:
			band = bandUnder10
		case share < 0.25:
			band = band10to25
		case share < 0.50:
			band = band25to50
		}
		if band == bandNone {
			continue
		}
		res.Bands[band].Count++
		res.Bands[band].LandValue += land
	}

	if res.TotalLandValue > 0 {
		for i := range res.Bands {
			res.Bands[i].ShareOfPct = res.Bands[i].LandValue / res.TotalLandValue * 100
		}
	}
	return res
}

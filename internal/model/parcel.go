// Package model defines the parcel records and scenario types shared across
// the tax engine and its data-fetch collaborators.
package model

import (
	"github.com/rotisserie/eris"
)

// ErrMalformedInput marks input that violates the parcel data contract:
// negative values where non-negative is required, or missing required fields.
// It is never clamped or defaulted away; it signals upstream data corruption.
var ErrMalformedInput = eris.New("malformed input")

// Parcel is one real-property assessment record. Values are assessed dollar
// amounts; ExemptionAmount may exceed the parcel's total value.
type Parcel struct {
	ID               string  `csv:"parcel_id" json:"parcel_id"`
	LandValue        float64 `csv:"land_value" json:"land_value"`
	ImprovementValue float64 `csv:"improvement_value" json:"improvement_value"`
	ExemptionAmount  float64 `csv:"exemption_amount" json:"exemption_amount"`
	FullyExempt      bool    `csv:"fully_exempt" json:"fully_exempt"`
	PropertyUse      string  `csv:"property_use" json:"property_use"`
	TaxDistrict      string  `csv:"tax_district,omitempty" json:"tax_district,omitempty"`
	Township         string  `csv:"township,omitempty" json:"township,omitempty"`
	Owner            string  `csv:"owner,omitempty" json:"owner,omitempty"`

	// Centroid in WGS84, when the source provided geometry.
	Longitude float64 `csv:"longitude,omitempty" json:"longitude,omitempty"`
	Latitude  float64 `csv:"latitude,omitempty" json:"latitude,omitempty"`

	// Demographics is nil until a geography join matches the parcel to a
	// census block group. Unmatched parcels stay in tax aggregations and are
	// excluded from demographic ones.
	Demographics *Demographics `csv:"-" json:"demographics,omitempty"`
}

// Demographics holds block-group attributes joined onto a parcel.
type Demographics struct {
	GEOID        string  `json:"geoid"`
	MedianIncome float64 `json:"median_income"`
	TotalPop     int     `json:"total_pop"`
	WhitePop     int     `json:"white_pop"`
	BlackPop     int     `json:"black_pop"`
	HispanicPop  int     `json:"hispanic_pop"`
	MinorityPct  float64 `json:"minority_pct"`
	BlackPct     float64 `json:"black_pct"`
}

// TaxableValue is the pre-exemption assessed total.
func (p *Parcel) TaxableValue() float64 {
	return p.LandValue + p.ImprovementValue
}

// Validate checks the parcel data contract. Negative assessed values or a
// missing identifier fail with ErrMalformedInput.
func (p *Parcel) Validate() error {
	if p.ID == "" {
		return eris.Wrap(ErrMalformedInput, "model: parcel missing identifier")
	}
	if p.LandValue < 0 {
		return eris.Wrapf(ErrMalformedInput, "model: parcel %s has negative land value %.2f", p.ID, p.LandValue)
	}
	if p.ImprovementValue < 0 {
		return eris.Wrapf(ErrMalformedInput, "model: parcel %s has negative improvement value %.2f", p.ID, p.ImprovementValue)
	}
	if p.ExemptionAmount < 0 {
		return eris.Wrapf(ErrMalformedInput, "model: parcel %s has negative exemption amount %.2f", p.ID, p.ExemptionAmount)
	}
	return nil
}

// ValidateParcels validates every parcel, failing on the first violation.
func ValidateParcels(parcels []Parcel) error {
	for i := range parcels {
		if err := parcels[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Scenario holds the solved rates for one revenue-neutral run. Immutable once
// solved; recomputed whenever the ratio or aggregate inputs change.
type Scenario struct {
	BuildingMillage   float64 `json:"building_millage" yaml:"building_millage"`
	LandMillage       float64 `json:"land_millage" yaml:"land_millage"`
	Ratio             float64 `json:"ratio" yaml:"ratio"`
	CurrentRevenue    float64 `json:"current_revenue" yaml:"current_revenue"`
	NewRevenue        float64 `json:"new_revenue" yaml:"new_revenue"`
	VerificationDelta float64 `json:"verification_delta" yaml:"verification_delta"`
}

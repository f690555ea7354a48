package tax

import (
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/model"
)

// ScenarioResult is one complete revenue-neutral run: the solved scenario,
// the per-parcel derived columns, and the reconciliation warning if the
// verification pass missed the target beyond tolerance.
type ScenarioResult struct {
	Scenario model.Scenario
	Parcels  []ParcelTax
	Warning  *ReconciliationMismatch
}

// RunScenario executes the full pipeline for one ratio: recreate current
// taxes, aggregate the post-exemption tax base, solve for revenue-neutral
// rates, apply them per parcel, and verify the resulting total.
//
// The computation is pure and runs to completion on the calling goroutine;
// a failed scenario is never returned partially computed.
func RunScenario(parcels []model.Parcel, currentMillage, ratio float64) (*ScenarioResult, error) {
	current, err := RecreateCurrentTax(parcels, currentMillage)
	if err != nil {
		return nil, err
	}

	building, land := AggregateTaxable(parcels)
	rates, err := Solve(current.Total, building, land, ratio)
	if err != nil {
		return nil, err
	}

	taxes := Apply(parcels, current.Taxes, rates)
	newTotal, warn := Verify(taxes, current.Total)

	res := &ScenarioResult{
		Scenario: model.Scenario{
			BuildingMillage:   rates.Building,
			LandMillage:       rates.Land,
			Ratio:             ratio,
			CurrentRevenue:    current.Total,
			NewRevenue:        newTotal,
			VerificationDelta: newTotal - current.Total,
		},
		Parcels: taxes,
		Warning: warn,
	}

	zap.L().Info("tax: scenario complete",
		zap.Int("parcels", len(parcels)),
		zap.Float64("ratio", ratio),
		zap.Float64("building_millage", rates.Building),
		zap.Float64("land_millage", rates.Land),
		zap.Float64("current_revenue", current.Total),
		zap.Float64("new_revenue", newTotal),
	)

	return res, nil
}

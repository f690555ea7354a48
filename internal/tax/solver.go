package tax

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/model"
)

// Solver failure modes. All are fatal to the current scenario; retrying with
// the same inputs cannot succeed.
var (
	// ErrInvalidRatio marks a non-positive land:building ratio.
	ErrInvalidRatio = eris.New("invalid land:building ratio")
	// ErrInvalidRevenue marks a negative target revenue.
	ErrInvalidRevenue = eris.New("invalid target revenue")
	// ErrDegenerateInput marks a zero tax base; revenue neutrality is
	// undefined with nothing to tax.
	ErrDegenerateInput = eris.New("degenerate input: no taxable value")
)

// RelativeTolerance bounds the acceptable deviation between the recomputed
// scenario revenue and the target during verification.
const RelativeTolerance = 1e-6

// Rates holds a solved split-rate pair. Land = Ratio * Building.
type Rates struct {
	Building float64
	Land     float64
	Ratio    float64
}

// Solve finds the building millage m such that m*B + k*m*L reproduces the
// target revenue R exactly, then derives the land millage as k*m. This is a
// closed-form solve: revenue neutrality is algebraic, not iterative.
func Solve(revenue, taxableBuilding, taxableLand, ratio float64) (Rates, error) {
	if ratio <= 0 {
		return Rates{}, eris.Wrapf(ErrInvalidRatio, "tax: ratio %.4f", ratio)
	}
	if revenue < 0 {
		return Rates{}, eris.Wrapf(ErrInvalidRevenue, "tax: revenue %.2f", revenue)
	}
	if taxableBuilding < 0 || taxableLand < 0 {
		return Rates{}, eris.Wrapf(model.ErrMalformedInput,
			"tax: negative aggregate taxable value (building %.2f, land %.2f)",
			taxableBuilding, taxableLand)
	}

	base := taxableBuilding + ratio*taxableLand
	if base == 0 {
		return Rates{}, eris.Wrapf(ErrDegenerateInput,
			"tax: B + k*L = 0 for revenue %.2f", revenue)
	}

	m := revenue * 1000 / base
	rates := Rates{Building: m, Land: ratio * m, Ratio: ratio}

	zap.L().Debug("tax: solved split rates",
		zap.Float64("building_millage", rates.Building),
		zap.Float64("land_millage", rates.Land),
		zap.Float64("ratio", ratio),
		zap.Float64("target_revenue", revenue),
	)

	return rates, nil
}

// ReconciliationMismatch reports a verification total that deviates from the
// target beyond tolerance. It is surfaced as a warning, never an error: it
// usually indicates floating-point scale issues rather than a logic bug, but
// it must never be dropped silently.
type ReconciliationMismatch struct {
	Target   float64
	Actual   float64
	Delta    float64
	Relative float64
}

// Verify recomputes total revenue under the solved rates and checks it
// against the target within RelativeTolerance. The returned mismatch is nil
// when the totals reconcile.
func Verify(taxes []ParcelTax, target float64) (total float64, warn *ReconciliationMismatch) {
	for i := range taxes {
		total += taxes[i].NewTax
	}

	delta := total - target
	rel := 0.0
	if target != 0 {
		rel = math.Abs(delta) / target
	} else if total != 0 {
		rel = math.Inf(1)
	}
	if rel > RelativeTolerance {
		warn = &ReconciliationMismatch{Target: target, Actual: total, Delta: delta, Relative: rel}
		zap.L().Warn("tax: revenue reconciliation mismatch",
			zap.Float64("target", target),
			zap.Float64("actual", total),
			zap.Float64("delta", delta),
			zap.Float64("relative", rel),
		)
	}
	return total, warn
}

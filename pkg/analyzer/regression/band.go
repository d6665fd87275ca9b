package regression

import (
	"fmt"
	"math"

	"github.com/panbanda/gradelens/pkg/models"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultMargin is the half-width of a fixed band, in y units.
const DefaultMargin = 5.0

// DefaultConfidence is the confidence level of a residual band.
const DefaultConfidence = 0.95

// Band returns the lower and upper edge of a band around a fit at x.
type Band func(x float64) (low, high float64)

// FixedBand returns a band of constant half-width margin around m.
// The width says nothing about fit quality; prefer ResidualBand when the
// fit has enough points.
func FixedBand(m Evaluator, margin float64) Band {
	margin = math.Abs(margin)
	return func(x float64) (float64, float64) {
		y := m.Evaluate(x)
		return y - margin, y + margin
	}
}

// ResidualBand returns the confidence band for the mean response of a
// linear fit at the given level:
//
//	ŷ ± t(1-α/2, n-2) · s · sqrt(1/n + (x-x̄)²/Sxx)
//
// where s is the residual standard error. Needs at least 3 points.
func ResidualBand(fit LinearFit, level float64) (Band, error) {
	if !(level > 0 && level < 1) {
		return nil, fmt.Errorf("%w: confidence level must be in (0,1), got %g", models.ErrInvalidConfig, level)
	}
	if fit.N < 3 || fit.Sxx == 0 {
		return nil, fmt.Errorf("%w: residual band needs 3 points, got %d", ErrDegenerateFit, fit.N)
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(fit.N - 2)}
	t := dist.Quantile(1 - (1-level)/2)
	n := float64(fit.N)

	return func(x float64) (float64, float64) {
		d := x - fit.MeanX
		margin := t * fit.ResidualStdErr * math.Sqrt(1/n+d*d/fit.Sxx)
		y := fit.Evaluate(x)
		return y - margin, y + margin
	}, nil
}

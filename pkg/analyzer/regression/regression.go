// Package regression fits lines and polynomials to (x, y) observations and
// turns fitted models into trend lines and confidence bands for charts.
package regression

import (
	"fmt"
	"math"

	"github.com/panbanda/gradelens/pkg/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LinearFit is an ordinary least squares line y = Intercept + Slope*x.
type LinearFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`

	// Residual standard error sqrt(SSres / (N-2)); 0 when N == 2.
	ResidualStdErr float64 `json:"residual_std_err"`

	N     int     `json:"n"`
	MeanX float64 `json:"mean_x"`
	Sxx   float64 `json:"sxx"` // Σ(x - MeanX)²
}

// Evaluate returns the fitted y at x.
func (f LinearFit) Evaluate(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// FitLinear fits a least squares line through points.
// Returns ErrDegenerateFit for fewer than two distinct x values.
func FitLinear(points []Point) (LinearFit, error) {
	n := len(points)
	if n < 2 {
		return LinearFit{}, fmt.Errorf("%w: linear fit needs 2 points, got %d", ErrDegenerateFit, n)
	}

	xs, ys := split(points)
	meanX := stat.Mean(xs, nil)

	var sxx float64
	for _, x := range xs {
		d := x - meanX
		sxx += d * d
	}
	if sxx == 0 {
		return LinearFit{}, fmt.Errorf("%w: all %d points share x=%g", ErrDegenerateFit, n, xs[0])
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	fit := LinearFit{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
		MeanX:     meanX,
		Sxx:       sxx,
	}
	ssRes, ssTot := sumsOfSquares(xs, ys, fit)
	fit.RSquared = rSquared(ssRes, ssTot)
	if n > 2 {
		fit.ResidualStdErr = math.Sqrt(ssRes / float64(n-2))
	}
	return fit, nil
}

// PolynomialFit is a least squares polynomial
// y = Coefficients[0] + Coefficients[1]*x + ... + Coefficients[Degree]*x^Degree.
type PolynomialFit struct {
	Coefficients []float64 `json:"coefficients"`
	Degree       int       `json:"degree"`
	RSquared     float64   `json:"r_squared"`
	N            int       `json:"n"`
}

// Evaluate returns the fitted y at x.
func (p PolynomialFit) Evaluate(x float64) float64 {
	var y float64
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		y = y*x + p.Coefficients[i]
	}
	return y
}

// FitQuadratic fits y = a + b*x + c*x² by least squares.
func FitQuadratic(points []Point) (PolynomialFit, error) {
	return FitPolynomial(points, 2)
}

// FitPolynomial fits a polynomial of the given degree by least squares,
// solving the Vandermonde system with a QR factorization.
// Needs at least degree+1 distinct x values.
func FitPolynomial(points []Point, degree int) (PolynomialFit, error) {
	if degree < 1 {
		return PolynomialFit{}, fmt.Errorf("%w: polynomial degree must be at least 1, got %d", models.ErrInvalidConfig, degree)
	}
	if d := distinctX(points); d < degree+1 {
		return PolynomialFit{}, fmt.Errorf("%w: degree %d needs %d distinct x values, got %d", ErrDegenerateFit, degree, degree+1, d)
	}

	n := len(points)
	xs, ys := split(points)

	a := mat.NewDense(n, degree+1, nil)
	for i, x := range xs {
		pow := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, pow)
			pow *= x
		}
	}
	b := mat.NewVecDense(n, ys)

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return PolynomialFit{}, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	fit := PolynomialFit{
		Coefficients: make([]float64, degree+1),
		Degree:       degree,
		N:            n,
	}
	for j := range fit.Coefficients {
		fit.Coefficients[j] = coef.AtVec(j)
	}
	fit.RSquared = rSquared(sumsOfSquares(xs, ys, fit))
	return fit, nil
}

// Fit fits a model of the given kind.
func Fit(points []Point, kind Kind) (Evaluator, error) {
	switch kind {
	case KindLinear:
		fit, err := FitLinear(points)
		if err != nil {
			return nil, err
		}
		return fit, nil
	case KindQuadratic:
		fit, err := FitQuadratic(points)
		if err != nil {
			return nil, err
		}
		return fit, nil
	default:
		return nil, fmt.Errorf("%w: unknown regression model %q", models.ErrInvalidConfig, kind)
	}
}

func split(points []Point) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}

func distinctX(points []Point) int {
	seen := make(map[float64]struct{}, len(points))
	for _, p := range points {
		seen[p.X] = struct{}{}
	}
	return len(seen)
}

func sumsOfSquares(xs, ys []float64, m Evaluator) (ssRes, ssTot float64) {
	meanY := stat.Mean(ys, nil)
	for i, x := range xs {
		r := ys[i] - m.Evaluate(x)
		ssRes += r * r
		d := ys[i] - meanY
		ssTot += d * d
	}
	return ssRes, ssTot
}

// rSquared returns 0 when y has no variance.
func rSquared(ssRes, ssTot float64) float64 {
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

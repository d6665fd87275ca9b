package regression

import (
	"errors"
	"fmt"
	"strings"

	"github.com/panbanda/gradelens/pkg/models"
)

// ErrDegenerateFit is returned when the points do not determine a unique
// curve: too few points, or too few distinct x values.
var ErrDegenerateFit = errors.New("degenerate fit")

// Point is an (x, y) observation or a vertex of a trend line.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PercentRange is the display range of percentage axes.
var PercentRange = Range{Min: 0, Max: 100}

// TrendLine is a polyline approximating a fitted function.
type TrendLine struct {
	Points []Point `json:"points"`
}

// Empty reports whether the line has no vertices.
func (t TrendLine) Empty() bool {
	return len(t.Points) == 0
}

// Evaluator is a fitted model that can be evaluated at x.
type Evaluator interface {
	Evaluate(x float64) float64
}

// Kind names a model family.
type Kind string

const (
	KindLinear    Kind = "linear"
	KindQuadratic Kind = "quadratic"
)

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return KindLinear, nil
	case "quadratic", "poly2":
		return KindQuadratic, nil
	default:
		return "", fmt.Errorf("%w: unknown regression model %q", models.ErrInvalidConfig, s)
	}
}

// BandKind names a confidence band construction.
type BandKind string

const (
	// BandResidual derives the band from the residual standard error.
	BandResidual BandKind = "residual"
	// BandFixed uses a constant margin around the prediction.
	BandFixed BandKind = "fixed"
	// BandNone disables the band.
	BandNone BandKind = "none"
)

// ParseBandKind converts a string to a BandKind.
func ParseBandKind(s string) (BandKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "residual":
		return BandResidual, nil
	case "fixed":
		return BandFixed, nil
	case "none", "off":
		return BandNone, nil
	default:
		return "", fmt.Errorf("%w: unknown band kind %q", models.ErrInvalidConfig, s)
	}
}

func (k Kind) String() string { return string(k) }

func (b BandKind) String() string { return string(b) }

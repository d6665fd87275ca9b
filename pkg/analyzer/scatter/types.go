package scatter

import (
	"fmt"
	"strings"

	"github.com/panbanda/gradelens/pkg/analyzer/regression"
	"github.com/panbanda/gradelens/pkg/models"
)

// DefaultSteps is the number of intervals the smoothed trend samples across [0, xMax].
const DefaultSteps = 20

// Point is one record plotted as absolute score (X) against score rate (Y).
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Category string  `json:"category,omitempty"`
}

// PointsFromRecords plots each record as (earned, rate) under the given category kind.
func PointsFromRecords(records []models.Record, kind models.CategoryKind) []Point {
	points := make([]Point, 0, len(records))
	for _, r := range records {
		points = append(points, Point{X: r.Earned, Y: r.Rate(), Category: kind.Of(r)})
	}
	return points
}

// Quadrant is a performance zone of the scatter plot.
type Quadrant string

const (
	NeedsImprovement Quadrant = "needs-improvement"
	Efficient        Quadrant = "efficient"
	HighPerformer    Quadrant = "high-performer"
	Inconsistent     Quadrant = "inconsistent"
)

// Quadrants lists every quadrant in display order.
var Quadrants = []Quadrant{HighPerformer, Efficient, Inconsistent, NeedsImprovement}

// Thresholds positions the quadrant split and the display guide lines.
// X values are fractions of xMax; Y values are on the 0-100 rate scale.
type Thresholds struct {
	XSplit     float64 `json:"x_split" koanf:"x_split" toml:"x_split"`
	YSplit     float64 `json:"y_split" koanf:"y_split" toml:"y_split"`
	XGuideLow  float64 `json:"x_guide_low" koanf:"x_guide_low" toml:"x_guide_low"`
	XGuideHigh float64 `json:"x_guide_high" koanf:"x_guide_high" toml:"x_guide_high"`
	YGuideLow  float64 `json:"y_guide_low" koanf:"y_guide_low" toml:"y_guide_low"`
	YGuideHigh float64 `json:"y_guide_high" koanf:"y_guide_high" toml:"y_guide_high"`
}

// DefaultThresholds returns the standard quadrant layout.
func DefaultThresholds() Thresholds {
	return Thresholds{
		XSplit:     0.5,
		YSplit:     70,
		XGuideLow:  0.3,
		XGuideHigh: 0.7,
		YGuideLow:  30,
		YGuideHigh: 70,
	}
}

// Validate checks that the thresholds lie on their axes.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"x_split":      t.XSplit,
		"x_guide_low":  t.XGuideLow,
		"x_guide_high": t.XGuideHigh,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: scatter %s must be in [0,1], got %v", models.ErrInvalidConfig, name, v)
		}
	}
	for name, v := range map[string]float64{
		"y_split":      t.YSplit,
		"y_guide_low":  t.YGuideLow,
		"y_guide_high": t.YGuideHigh,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: scatter %s must be in [0,100], got %v", models.ErrInvalidConfig, name, v)
		}
	}
	if t.XGuideLow > t.XGuideHigh || t.YGuideLow > t.YGuideHigh {
		return fmt.Errorf("%w: scatter guide low must not exceed guide high", models.ErrInvalidConfig)
	}
	return nil
}

// Quadrant returns the zone containing (x, y) on an axis ending at xMax.
func (t Thresholds) Quadrant(x, y, xMax float64) Quadrant {
	left := x < t.XSplit*xMax
	high := y >= t.YSplit
	switch {
	case left && !high:
		return NeedsImprovement
	case left && high:
		return Efficient
	case high:
		return HighPerformer
	default:
		return Inconsistent
	}
}

// Guides are the absolute positions of the display guide lines.
type Guides struct {
	XLow  float64 `json:"x_low"`
	XHigh float64 `json:"x_high"`
	YLow  float64 `json:"y_low"`
	YHigh float64 `json:"y_high"`
}

// Guides resolves the guide fractions against xMax.
func (t Thresholds) Guides(xMax float64) Guides {
	return Guides{
		XLow:  t.XGuideLow * xMax,
		XHigh: t.XGuideHigh * xMax,
		YLow:  t.YGuideLow,
		YHigh: t.YGuideHigh,
	}
}

// Classified is a point with its derived quadrant.
type Classified struct {
	Point
	Quadrant Quadrant `json:"quadrant"`
}

// TrendKind names an overlay construction.
type TrendKind string

const (
	TrendLinear    TrendKind = "linear"
	TrendSmoothed  TrendKind = "smoothed"
	TrendMeanCross TrendKind = "meancross"
	TrendKernel    TrendKind = "kernel"
)

// ParseTrendKind converts a string to a TrendKind.
func ParseTrendKind(s string) (TrendKind, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "linear":
		return TrendLinear, nil
	case "smoothed", "smoothedaverage", "average":
		return TrendSmoothed, nil
	case "meancross", "mean", "centroid":
		return TrendMeanCross, nil
	case "kernel", "gaussian":
		return TrendKernel, nil
	default:
		return "", fmt.Errorf("%w: unknown scatter trend %q", models.ErrInvalidConfig, s)
	}
}

// Overlay is a set of polylines drawn over the scatter plot. MeanCross
// produces two independent segments; the other kinds produce at most one.
type Overlay struct {
	Kind  TrendKind              `json:"kind"`
	Lines []regression.TrendLine `json:"lines"`
}

// Empty reports whether the overlay has nothing to draw.
func (o Overlay) Empty() bool {
	return len(o.Lines) == 0
}

// QuadrantCount is the number of points in a quadrant.
type QuadrantCount struct {
	Quadrant Quadrant `json:"quadrant"`
	Count    int      `json:"count"`
}

// Analysis is the complete scatter plot model.
type Analysis struct {
	XMax       float64         `json:"x_max"`
	Thresholds Thresholds      `json:"thresholds"`
	Guides     Guides          `json:"guides"`
	Points     []Classified    `json:"points"`
	Counts     []QuadrantCount `json:"counts"`
	Overlays   []Overlay       `json:"overlays"`
}

func (q Quadrant) String() string { return string(q) }

func (t TrendKind) String() string { return string(t) }

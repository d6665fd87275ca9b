package regression

import (
	"fmt"

	"github.com/panbanda/gradelens/pkg/models"
	"github.com/panbanda/gradelens/pkg/stats"
)

// DefaultSampleCount is the number of vertices in a rendered trend line.
const DefaultSampleCount = 50

// RenderTrendLine evaluates m at sampleCount evenly spaced x values across
// domain. When clamp is non-nil every y is limited to that range.
func RenderTrendLine(m Evaluator, domain Range, sampleCount int, clamp *Range) (TrendLine, error) {
	xs, err := sampleDomain(domain, sampleCount)
	if err != nil {
		return TrendLine{}, err
	}

	line := TrendLine{Points: make([]Point, len(xs))}
	for i, x := range xs {
		line.Points[i] = Point{X: x, Y: clampY(m.Evaluate(x), clamp)}
	}
	return line, nil
}

// RenderBand evaluates band across domain and returns its lower and upper
// edges as two trend lines.
func RenderBand(band Band, domain Range, sampleCount int, clamp *Range) (low, high TrendLine, err error) {
	xs, err := sampleDomain(domain, sampleCount)
	if err != nil {
		return TrendLine{}, TrendLine{}, err
	}

	low.Points = make([]Point, len(xs))
	high.Points = make([]Point, len(xs))
	for i, x := range xs {
		lo, hi := band(x)
		low.Points[i] = Point{X: x, Y: clampY(lo, clamp)}
		high.Points[i] = Point{X: x, Y: clampY(hi, clamp)}
	}
	return low, high, nil
}

func sampleDomain(domain Range, sampleCount int) ([]float64, error) {
	if sampleCount < 2 {
		return nil, fmt.Errorf("%w: trend line needs at least 2 samples, got %d", models.ErrInvalidConfig, sampleCount)
	}
	if domain.Max < domain.Min {
		return nil, fmt.Errorf("%w: domain max %g below min %g", models.ErrInvalidConfig, domain.Max, domain.Min)
	}
	return stats.Linspace(domain.Min, domain.Max, sampleCount), nil
}

func clampY(y float64, clamp *Range) float64 {
	if clamp == nil {
		return y
	}
	return stats.Clamp(y, clamp.Min, clamp.Max)
}

package scatter

import (
	"errors"
	"fmt"

	"github.com/panbanda/gradelens/pkg/analyzer/regression"
	"github.com/panbanda/gradelens/pkg/models"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ComputeTrend builds one overlay of the given kind. The x axis end
// defaults to AxisMax(points); pass WithXMax to fix it.
//
// Linear, Smoothed and Kernel return an empty overlay for fewer than two
// points. MeanCross needs at least one.
func ComputeTrend(points []Point, kind TrendKind, opts ...Option) (Overlay, error) {
	a := New(opts...)
	xMax := a.xMax
	if xMax <= 0 {
		xMax = AxisMax(points)
	}
	return a.trend(points, kind, xMax)
}

func (a *Analyzer) trend(points []Point, kind TrendKind, xMax float64) (Overlay, error) {
	if a.steps < 1 {
		return Overlay{}, fmt.Errorf("%w: smoothing steps must be at least 1, got %d", models.ErrInvalidConfig, a.steps)
	}

	overlay := Overlay{Kind: kind, Lines: []regression.TrendLine{}}
	var line regression.TrendLine

	switch kind {
	case TrendLinear:
		l, err := linearTrend(points, xMax)
		if err != nil {
			return Overlay{}, err
		}
		line = l
	case TrendSmoothed:
		line = smoothedTrend(points, xMax, a.steps)
	case TrendKernel:
		h := a.bandwidth
		if h <= 0 {
			h = xMax / float64(a.steps)
		}
		line = kernelTrend(points, xMax, a.steps, h)
	case TrendMeanCross:
		overlay.Lines = meanCross(points, xMax)
		return overlay, nil
	default:
		return Overlay{}, fmt.Errorf("%w: unknown scatter trend %q", models.ErrInvalidConfig, kind)
	}

	if len(line.Points) >= 2 {
		overlay.Lines = append(overlay.Lines, line)
	}
	return overlay, nil
}

func linearTrend(points []Point, xMax float64) (regression.TrendLine, error) {
	fit, err := regression.FitLinear(toRegression(points))
	if errors.Is(err, regression.ErrDegenerateFit) {
		return regression.TrendLine{}, nil
	}
	if err != nil {
		return regression.TrendLine{}, err
	}
	clamp := regression.PercentRange
	return regression.RenderTrendLine(fit, regression.Range{Min: 0, Max: xMax}, 2, &clamp)
}

// smoothedTrend averages y within two steps of each position i*step.
// Positions with no neighbours are omitted, so spacing may be uneven.
func smoothedTrend(points []Point, xMax float64, steps int) regression.TrendLine {
	line := regression.TrendLine{}
	if len(points) < 2 {
		return line
	}

	step := xMax / float64(steps)
	window := 2 * step
	for i := 0; i <= steps; i++ {
		x := float64(i) * step
		var sum float64
		n := 0
		for _, p := range points {
			if p.X >= x-window && p.X <= x+window {
				sum += p.Y
				n++
			}
		}
		if n > 0 {
			line.Points = append(line.Points, regression.Point{X: x, Y: sum / float64(n)})
		}
	}
	return line
}

// kernelTrend is a Nadaraya-Watson smoother with a Gaussian kernel of
// standard deviation h, evaluated at every position i*step.
func kernelTrend(points []Point, xMax float64, steps int, h float64) regression.TrendLine {
	line := regression.TrendLine{}
	if len(points) < 2 || h <= 0 {
		return line
	}

	kernel := distuv.Normal{Mu: 0, Sigma: h}
	step := xMax / float64(steps)
	for i := 0; i <= steps; i++ {
		x := float64(i) * step
		var num, den float64
		for _, p := range points {
			w := kernel.Prob(x - p.X)
			num += w * p.Y
			den += w
		}
		if den > 0 {
			line.Points = append(line.Points, regression.Point{X: x, Y: num / den})
		}
	}
	return line
}

// meanCross returns the vertical line x = mean(x) and the horizontal line
// y = mean(y) as separate segments.
func meanCross(points []Point, xMax float64) []regression.TrendLine {
	if len(points) == 0 {
		return []regression.TrendLine{}
	}
	xs, ys := split(points)
	mx, my := stat.Mean(xs, nil), stat.Mean(ys, nil)

	return []regression.TrendLine{
		{Points: []regression.Point{{X: mx, Y: regression.PercentRange.Min}, {X: mx, Y: regression.PercentRange.Max}}},
		{Points: []regression.Point{{X: 0, Y: my}, {X: xMax, Y: my}}},
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

func toRegression(points []Point) []regression.Point {
	out := make([]regression.Point, len(points))
	for i, p := range points {
		out[i] = regression.Point{X: p.X, Y: p.Y}
	}
	return out
}

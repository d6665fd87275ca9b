// Package scatter classifies score points into performance quadrants and
// computes trend overlays for the scatter plot.
package scatter

import (
	"math"

	"github.com/panbanda/gradelens/pkg/stats"
)

// AxisMax rounds the largest x up to the next multiple of 10.
// Returns 10 when there are no points or no positive x.
func AxisMax(points []Point) float64 {
	maxX := math.Inf(-1)
	for _, p := range points {
		if p.X > maxX {
			maxX = p.X
		}
	}
	if maxX <= 0 || math.IsInf(maxX, 0) {
		return 10
	}
	return stats.RoundUpTo(maxX, 10)
}

// Classify assigns each point its quadrant. The result is index-aligned
// with points. A non-positive xMax is replaced by AxisMax(points).
func Classify(points []Point, xMax float64, t Thresholds) ([]Classified, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if xMax <= 0 {
		xMax = AxisMax(points)
	}

	out := make([]Classified, len(points))
	for i, p := range points {
		out[i] = Classified{Point: p, Quadrant: t.Quadrant(p.X, p.Y, xMax)}
	}
	return out, nil
}

// Analyzer builds full scatter analyses.
type Analyzer struct {
	xMax       float64
	thresholds Thresholds
	trends     []TrendKind
	steps      int
	bandwidth  float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithXMax fixes the x axis end instead of deriving it from the points.
func WithXMax(xMax float64) Option {
	return func(a *Analyzer) {
		a.xMax = xMax
	}
}

// WithThresholds overrides the quadrant layout.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithTrends selects which overlays Analyze computes.
func WithTrends(kinds ...TrendKind) Option {
	return func(a *Analyzer) {
		a.trends = kinds
	}
}

// WithSteps sets the number of smoothing intervals across [0, xMax].
func WithSteps(n int) Option {
	return func(a *Analyzer) {
		a.steps = n
	}
}

// WithBandwidth sets the kernel smoother's standard deviation.
// Zero uses one smoothing step.
func WithBandwidth(h float64) Option {
	return func(a *Analyzer) {
		a.bandwidth = h
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: DefaultThresholds(),
		trends:     []TrendKind{TrendLinear},
		steps:      DefaultSteps,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze is a convenience wrapper around New(opts...).Analyze.
func Analyze(points []Point, opts ...Option) (*Analysis, error) {
	return New(opts...).Analyze(points)
}

// Analyze classifies points, counts quadrants and computes the requested overlays.
func (a *Analyzer) Analyze(points []Point) (*Analysis, error) {
	xMax := a.xMax
	if xMax <= 0 {
		xMax = AxisMax(points)
	}

	classified, err := Classify(points, xMax, a.thresholds)
	if err != nil {
		return nil, err
	}

	counts := make(map[Quadrant]int, len(Quadrants))
	for _, c := range classified {
		counts[c.Quadrant]++
	}

	analysis := &Analysis{
		XMax:       xMax,
		Thresholds: a.thresholds,
		Guides:     a.thresholds.Guides(xMax),
		Points:     classified,
		Counts:     make([]QuadrantCount, 0, len(Quadrants)),
		Overlays:   make([]Overlay, 0, len(a.trends)),
	}
	for _, q := range Quadrants {
		analysis.Counts = append(analysis.Counts, QuadrantCount{Quadrant: q, Count: counts[q]})
	}

	for _, kind := range a.trends {
		overlay, err := a.trend(points, kind, xMax)
		if err != nil {
			return nil, err
		}
		analysis.Overlays = append(analysis.Overlays, overlay)
	}
	return analysis, nil
}

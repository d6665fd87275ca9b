// Package binning partitions numeric samples into equal-width histogram
// buckets and fits a normal-distribution overlay to them.
package binning

import (
	"fmt"
	"slices"
	"sort"

	"github.com/panbanda/gradelens/pkg/models"
	"github.com/panbanda/gradelens/pkg/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Option configures Analyze.
type Option func(*options)

type options struct {
	bucketCount   int
	overlay       bool
	overlayPoints int
}

// WithBucketCount sets the number of buckets.
func WithBucketCount(n int) Option {
	return func(o *options) {
		o.bucketCount = n
	}
}

// WithOverlay enables or disables the normal-distribution overlay.
func WithOverlay(enabled bool) Option {
	return func(o *options) {
		o.overlay = enabled
	}
}

// WithOverlayPoints sets how many points the overlay curve has.
func WithOverlayPoints(n int) Option {
	return func(o *options) {
		o.overlayPoints = n
	}
}

// ComputeBins splits sample into bucketCount equal-width bins over
// [min, max] and returns them in ascending order.
//
// An empty sample yields an empty slice. When every value is equal a single
// degenerate bin [min, max] is returned. NaN and infinite values are not
// filtered; use stats.Finite first.
func ComputeBins(sample []float64, bucketCount int) ([]Bin, error) {
	if bucketCount < 1 {
		return nil, fmt.Errorf("%w: bucket count must be at least 1, got %d", models.ErrInvalidConfig, bucketCount)
	}
	if len(sample) == 0 {
		return []Bin{}, nil
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)
	return binSorted(sorted, bucketCount), nil
}

// Thresholds returns the bucketCount+1 boundaries dividing [lo, hi] into
// equal-width intervals. The last boundary is exactly hi.
func Thresholds(lo, hi float64, bucketCount int) []float64 {
	return stats.Linspace(lo, hi, bucketCount+1)
}

func binSorted(sorted []float64, bucketCount int) []Bin {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	total := float64(len(sorted))

	if lo == hi {
		return []Bin{{
			Index:       0,
			LowerBound:  lo,
			UpperBound:  hi,
			Count:       len(sorted),
			Probability: 1,
		}}
	}

	thresholds := Thresholds(lo, hi, bucketCount)
	counts := make([]int, bucketCount)
	for _, v := range sorted {
		counts[bucketIndex(thresholds, v)]++
	}

	bins := make([]Bin, bucketCount)
	for i := range bins {
		bins[i] = Bin{
			Index:       i,
			LowerBound:  thresholds[i],
			UpperBound:  thresholds[i+1],
			Count:       counts[i],
			Probability: float64(counts[i]) / total,
		}
	}
	return bins
}

// bucketIndex maps v to the first threshold index i with v <= thresholds[i],
// shifted down by one so that a value equal to a boundary belongs to the bin
// below it. Values past the last threshold land in the last bin.
func bucketIndex(thresholds []float64, v float64) int {
	last := len(thresholds) - 2
	i := sort.SearchFloat64s(thresholds, v)
	idx := i - 1
	if idx < 0 {
		idx = 0
	}
	if idx > last {
		idx = last
	}
	return idx
}

// Analyze bins sample and computes its summary and normal overlay.
func Analyze(sample []float64, opts ...Option) (*Histogram, error) {
	o := options{
		bucketCount:   DefaultBucketCount,
		overlay:       true,
		overlayPoints: DefaultOverlayPoints,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bucketCount < 1 {
		return nil, fmt.Errorf("%w: bucket count must be at least 1, got %d", models.ErrInvalidConfig, o.bucketCount)
	}
	if o.overlay && o.overlayPoints < 2 {
		return nil, fmt.Errorf("%w: overlay needs at least 2 points, got %d", models.ErrInvalidConfig, o.overlayPoints)
	}

	if len(sample) == 0 {
		return &Histogram{Bins: []Bin{}}, nil
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	h := &Histogram{
		Bins:    binSorted(sorted, o.bucketCount),
		Summary: summarize(sorted),
	}

	if o.overlay {
		h.Overlay = fitOverlay(h.Bins, h.Summary, o.overlayPoints)
	}

	return h, nil
}

func summarize(sorted []float64) Summary {
	s := Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    stats.Percentile(sorted, 25),
		Median: stats.Percentile(sorted, 50),
		P75:    stats.Percentile(sorted, 75),
	}
	if len(sorted) < 2 {
		s.Mean = sorted[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	return s
}

// fitOverlay returns nil when the sample has no spread to fit.
func fitOverlay(bins []Bin, s Summary, points int) *Overlay {
	if s.Count < 2 || s.StdDev == 0 || !stats.IsFinite(s.StdDev) {
		return nil
	}

	dist := distuv.Normal{Mu: s.Mean, Sigma: s.StdDev}

	expected := make([]float64, len(bins))
	for i, b := range bins {
		expected[i] = dist.CDF(b.UpperBound) - dist.CDF(b.LowerBound)
	}

	width := bins[0].Width()
	xs := stats.Linspace(s.Min, s.Max, points)
	curve := make([]Point, len(xs))
	for i, x := range xs {
		curve[i] = Point{X: x, Y: dist.Prob(x) * width}
	}

	return &Overlay{
		Mean:     s.Mean,
		StdDev:   s.StdDev,
		Expected: expected,
		Curve:    curve,
	}
}

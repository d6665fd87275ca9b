// Package stats provides small numeric helpers shared by the analyzers.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Percentile calculates the p-th percentile of a sorted slice.
// The slice must already be sorted in ascending order.
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Finite returns the finite values of sample and how many were dropped.
// The input slice is not modified.
func Finite(sample []float64) ([]float64, int) {
	out := make([]float64, 0, len(sample))
	for _, v := range sample {
		if IsFinite(v) {
			out = append(out, v)
		}
	}
	return out, len(sample) - len(out)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundUpTo rounds v up to the nearest multiple of step.
func RoundUpTo(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Ceil(v/step) * step
}

// Linspace returns n evenly spaced values over [lo, hi].
// The last value is exactly hi. Returns nil when n < 1.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := floats.Span(make([]float64, n), lo, hi)
	out[n-1] = hi
	return out
}

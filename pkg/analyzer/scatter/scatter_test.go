package scatter

import (
	"errors"
	"testing"
	"time"

	"github.com/panbanda/gradelens/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisMax(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   float64
	}{
		{"empty", nil, 10},
		{"all zero", []Point{{X: 0}, {X: 0}}, 10},
		{"negative", []Point{{X: -5}}, 10},
		{"rounds up", []Point{{X: 3}, {X: 87}}, 90},
		{"exact multiple", []Point{{X: 40}}, 40},
		{"fraction", []Point{{X: 0.5}}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AxisMax(tt.points))
		})
	}
}

func TestClassify_Quadrants(t *testing.T) {
	points := []Point{
		{X: 10, Y: 80},
		{X: 90, Y: 85},
		{X: 10, Y: 40},
		{X: 90, Y: 40},
		{X: 50, Y: 70},
	}

	got, err := Classify(points, 100, DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, got, len(points))

	assert.Equal(t, Efficient, got[0].Quadrant)
	assert.Equal(t, HighPerformer, got[1].Quadrant)
	assert.Equal(t, NeedsImprovement, got[2].Quadrant)
	assert.Equal(t, Inconsistent, got[3].Quadrant)
	assert.Equal(t, HighPerformer, got[4].Quadrant, "splits are inclusive on the upper side")

	for i := range points {
		assert.Equal(t, points[i], got[i].Point)
	}
}

func TestClassify_DerivesXMax(t *testing.T) {
	points := []Point{{X: 12, Y: 90}, {X: 38, Y: 90}}

	// AxisMax = 40, split at 20.
	got, err := Classify(points, 0, DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, Efficient, got[0].Quadrant)
	assert.Equal(t, HighPerformer, got[1].Quadrant)
}

func TestClassify_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.YSplit = 90

	got, err := Classify([]Point{{X: 90, Y: 85}}, 100, th)
	require.NoError(t, err)
	assert.Equal(t, Inconsistent, got[0].Quadrant)
}

func TestClassify_InvalidThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.XSplit = 1.5
	_, err := Classify(nil, 100, th)
	assert.True(t, errors.Is(err, models.ErrInvalidConfig))

	th = DefaultThresholds()
	th.YGuideLow, th.YGuideHigh = 80, 20
	_, err = Classify(nil, 100, th)
	assert.True(t, errors.Is(err, models.ErrInvalidConfig))
}

func TestThresholds_Guides(t *testing.T) {
	g := DefaultThresholds().Guides(200)
	assert.InDelta(t, 60.0, g.XLow, 1e-9)
	assert.InDelta(t, 140.0, g.XHigh, 1e-9)
	assert.Equal(t, 30.0, g.YLow)
	assert.Equal(t, 70.0, g.YHigh)
}

func TestPointsFromRecords(t *testing.T) {
	records := []models.Record{
		{Date: time.Now(), Subject: "Math", Exam: "Midterm", Earned: 45, Possible: 50},
		{Date: time.Now(), Subject: "Physics", Exam: "Final", Earned: 0, Possible: 0},
	}

	points := PointsFromRecords(records, models.CategoryExam)
	require.Len(t, points, 2)
	assert.Equal(t, Point{X: 45, Y: 90, Category: "Midterm"}, points[0])
	assert.Equal(t, Point{X: 0, Y: 0, Category: "Final"}, points[1])
}

func TestAnalyze(t *testing.T) {
	points := []Point{
		{X: 10, Y: 80},
		{X: 20, Y: 75},
		{X: 70, Y: 40},
		{X: 95, Y: 90},
	}

	a, err := Analyze(points, WithTrends(TrendLinear, TrendMeanCross))
	require.NoError(t, err)

	assert.Equal(t, 100.0, a.XMax)
	assert.Len(t, a.Points, 4)
	require.Len(t, a.Counts, 4)

	counts := make(map[Quadrant]int)
	total := 0
	for _, c := range a.Counts {
		counts[c.Quadrant] = c.Count
		total += c.Count
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, counts[Efficient])
	assert.Equal(t, 1, counts[Inconsistent])
	assert.Equal(t, 1, counts[HighPerformer])
	assert.Equal(t, 0, counts[NeedsImprovement])

	require.Len(t, a.Overlays, 2)
	assert.Equal(t, TrendLinear, a.Overlays[0].Kind)
	assert.Len(t, a.Overlays[0].Lines, 1)
	assert.Equal(t, TrendMeanCross, a.Overlays[1].Kind)
	assert.Len(t, a.Overlays[1].Lines, 2)
}

func TestAnalyze_Empty(t *testing.T) {
	a, err := Analyze(nil, WithTrends(TrendLinear, TrendSmoothed, TrendMeanCross, TrendKernel))
	require.NoError(t, err)
	assert.Equal(t, 10.0, a.XMax)
	assert.Empty(t, a.Points)
	for _, o := range a.Overlays {
		assert.True(t, o.Empty(), string(o.Kind))
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	points := []Point{{X: 10, Y: 80}, {X: 40, Y: 60}, {X: 90, Y: 85}}
	opts := []Option{WithTrends(TrendLinear, TrendSmoothed, TrendKernel)}

	a, err := Analyze(points, opts...)
	require.NoError(t, err)
	b, err := Analyze(points, opts...)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseTrendKind(t *testing.T) {
	for input, want := range map[string]TrendKind{
		"linear":           TrendLinear,
		"Smoothed":         TrendSmoothed,
		"smoothed-average": TrendSmoothed,
		"mean-cross":       TrendMeanCross,
		"kernel":           TrendKernel,
	} {
		got, err := ParseTrendKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseTrendKind("loess")
	assert.True(t, errors.Is(err, models.ErrInvalidConfig))
}

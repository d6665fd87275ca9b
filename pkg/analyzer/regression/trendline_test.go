package regression

import (
	"errors"
	"testing"

	"github.com/panbanda/gradelens/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTrendLine(t *testing.T) {
	fit := LinearFit{Slope: 2, Intercept: 3}

	line, err := RenderTrendLine(fit, Range{Min: 0, Max: 100}, 11, nil)
	require.NoError(t, err)
	require.Len(t, line.Points, 11)

	assert.Equal(t, 0.0, line.Points[0].X)
	assert.Equal(t, 100.0, line.Points[10].X)
	assert.InDelta(t, 10.0, line.Points[1].X, 1e-12)
	assert.InDelta(t, 203.0, line.Points[10].Y, 1e-9)
	assert.False(t, line.Empty())
}

func TestRenderTrendLine_Clamped(t *testing.T) {
	fit := LinearFit{Slope: 2, Intercept: -20}
	clamp := PercentRange

	line, err := RenderTrendLine(fit, Range{Min: 0, Max: 100}, 5, &clamp)
	require.NoError(t, err)

	for _, p := range line.Points {
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 100.0)
	}
	assert.Equal(t, 0.0, line.Points[0].Y)
	assert.Equal(t, 100.0, line.Points[4].Y)
	assert.InDelta(t, 30.0, line.Points[1].Y, 1e-9)
}

func TestRenderTrendLine_Invalid(t *testing.T) {
	fit := LinearFit{Slope: 1}

	_, err := RenderTrendLine(fit, Range{Min: 0, Max: 10}, 1, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidConfig))

	_, err = RenderTrendLine(fit, Range{Min: 10, Max: 0}, 5, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidConfig))
}

func TestRenderBand(t *testing.T) {
	fit := LinearFit{Slope: 1, Intercept: 50}
	clamp := PercentRange

	low, high, err := RenderBand(FixedBand(fit, 10), Range{Min: 0, Max: 60}, 4, &clamp)
	require.NoError(t, err)
	require.Len(t, low.Points, 4)
	require.Len(t, high.Points, 4)

	assert.InDelta(t, 40.0, low.Points[0].Y, 1e-9)
	assert.InDelta(t, 60.0, high.Points[0].Y, 1e-9)
	assert.Equal(t, 100.0, high.Points[3].Y, "upper edge clamped")
	assert.InDelta(t, 100.0, low.Points[3].Y, 1e-9)

	_, _, err = RenderBand(FixedBand(fit, 1), Range{Min: 0, Max: 1}, 0, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidConfig))
}

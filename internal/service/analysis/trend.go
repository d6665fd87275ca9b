package analysis

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/panbanda/gradelens/pkg/analyzer/regression"
	"github.com/panbanda/gradelens/pkg/models"
)

const day = 24 * time.Hour

// Trend is the score rate over time with a fitted model. X values are days
// since Start.
type Trend struct {
	Model        regression.Kind           `json:"model"`
	Band         regression.BandKind       `json:"band"`
	Start        time.Time                 `json:"start"`
	Observations []regression.Point        `json:"observations"`
	Domain       regression.Range          `json:"domain"`
	Linear       *regression.LinearFit     `json:"linear,omitempty"`
	Polynomial   *regression.PolynomialFit `json:"polynomial,omitempty"`
	Line         regression.TrendLine      `json:"line"`
	Lower        regression.TrendLine      `json:"lower"`
	Upper        regression.TrendLine      `json:"upper"`
}

// SlopePerDay returns the fitted change in score rate per day at the start
// of the domain.
func (t *Trend) SlopePerDay() float64 {
	switch {
	case t.Linear != nil:
		return t.Linear.Slope
	case t.Polynomial != nil && len(t.Polynomial.Coefficients) > 2:
		c := t.Polynomial.Coefficients
		return c[1] + 2*c[2]*t.Domain.Min
	default:
		return 0
	}
}

// TrendPoints maps records to (days since start, score rate) in date order.
// Records without a date or without a possible score are left out.
func TrendPoints(records []models.Record) (time.Time, []regression.Point) {
	dated := make([]models.Record, 0, len(records))
	for _, r := range records {
		if !r.Date.IsZero() && r.Possible > 0 && r.Finite() {
			dated = append(dated, r)
		}
	}
	if len(dated) == 0 {
		return time.Time{}, nil
	}
	slices.SortStableFunc(dated, func(a, b models.Record) int {
		return a.Date.Compare(b.Date)
	})

	start := dated[0].Date.UTC()
	points := make([]regression.Point, len(dated))
	for i, r := range dated {
		points[i] = regression.Point{
			X: float64(r.Date.Sub(start)) / float64(day),
			Y: r.Rate(),
		}
	}
	return start, points
}

// Trend fits the configured model to score rate over time. Fewer than two
// distinct dates give regression.ErrDegenerateFit; the returned Trend still
// holds the observations in that case.
func (s *Service) Trend(records []models.Record) (*Trend, error) {
	cfg := s.config.Trend

	kind, err := regression.ParseKind(cfg.Model)
	if err != nil {
		return nil, err
	}
	bandKind, err := regression.ParseBandKind(cfg.Band)
	if err != nil {
		return nil, err
	}

	start, points := TrendPoints(records)
	t := &Trend{
		Model:        kind,
		Band:         regression.BandNone,
		Start:        start,
		Observations: points,
	}
	if len(points) == 0 {
		return t, fmt.Errorf("%w: no dated records with a possible score", regression.ErrDegenerateFit)
	}
	t.Domain = regression.Range{Min: points[0].X, Max: points[len(points)-1].X}

	var model regression.Evaluator
	switch kind {
	case regression.KindQuadratic:
		fit, err := regression.FitQuadratic(points)
		if err != nil {
			return t, err
		}
		t.Polynomial = &fit
		model = fit
	default:
		fit, err := regression.FitLinear(points)
		if err != nil {
			return t, err
		}
		t.Linear = &fit
		model = fit
	}

	var clamp *regression.Range
	if cfg.Clamp {
		r := regression.PercentRange
		clamp = &r
	}

	t.Line, err = regression.RenderTrendLine(model, t.Domain, cfg.SampleCount, clamp)
	if err != nil {
		return t, err
	}

	band, used, err := s.band(t, model, bandKind)
	if err != nil {
		return t, err
	}
	if band == nil {
		return t, nil
	}
	t.Band = used
	t.Lower, t.Upper, err = regression.RenderBand(band, t.Domain, cfg.SampleCount, clamp)
	return t, err
}

// band picks the band for a fit. A residual band needs a linear fit with at
// least three points; otherwise it falls back to the fixed margin.
func (s *Service) band(t *Trend, model regression.Evaluator, kind regression.BandKind) (regression.Band, regression.BandKind, error) {
	cfg := s.config.Trend

	switch kind {
	case regression.BandNone:
		return nil, regression.BandNone, nil
	case regression.BandResidual:
		if t.Linear != nil {
			band, err := regression.ResidualBand(*t.Linear, cfg.Confidence)
			if err == nil {
				return band, regression.BandResidual, nil
			}
			if !errors.Is(err, regression.ErrDegenerateFit) {
				return nil, "", err
			}
		}
	}
	return regression.FixedBand(model, cfg.Margin), regression.BandFixed, nil
}

package analysis

import (
	"fmt"

	"github.com/panbanda/gradelens/internal/cache"
	"github.com/panbanda/gradelens/pkg/analyzer/binning"
	"github.com/panbanda/gradelens/pkg/analyzer/breakdown"
	"github.com/panbanda/gradelens/pkg/analyzer/heatmap"
	"github.com/panbanda/gradelens/pkg/analyzer/scatter"
	"github.com/panbanda/gradelens/pkg/config"
	"github.com/panbanda/gradelens/pkg/models"
)

// Service runs score analyses with settings taken from a Config.
type Service struct {
	config *config.Config
	cache  *cache.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCache enables caching of full reports.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration the service runs with.
func (s *Service) Config() *config.Config {
	return s.config
}

// ScoreRates returns the score rate of every record that has a positive
// possible score. Records with nothing possible carry no rate.
func ScoreRates(records []models.Record) []float64 {
	rates := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Possible > 0 && r.Finite() {
			rates = append(rates, r.Rate())
		}
	}
	return rates
}

// Bins builds the score-rate histogram.
func (s *Service) Bins(records []models.Record) (*binning.Histogram, error) {
	cfg := s.config.Bins
	return binning.Analyze(ScoreRates(records),
		binning.WithBucketCount(cfg.BucketCount),
		binning.WithOverlay(cfg.Overlay),
		binning.WithOverlayPoints(cfg.OverlayPoints),
	)
}

// Heatmap aggregates records into a period by category grid.
func (s *Service) Heatmap(records []models.Record) (*heatmap.Grid, error) {
	cfg := s.config.Heatmap

	g, err := heatmap.ParseGranularity(cfg.Granularity)
	if err != nil {
		return nil, err
	}
	m, err := heatmap.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseCategoryKind(cfg.Category)
	if err != nil {
		return nil, err
	}

	return heatmap.Aggregate(records, g, m,
		heatmap.WithCategoryKind(kind),
		heatmap.WithDensify(cfg.Densify),
		heatmap.WithStableThreshold(cfg.StableThreshold),
	)
}

// Scatter classifies each record by earned score and score rate.
func (s *Service) Scatter(records []models.Record) (*scatter.Analysis, error) {
	cfg := s.config.Scatter

	kind, err := models.ParseCategoryKind(cfg.Category)
	if err != nil {
		return nil, err
	}
	trends := make([]scatter.TrendKind, 0, len(cfg.Trends))
	for _, t := range cfg.Trends {
		k, err := scatter.ParseTrendKind(t)
		if err != nil {
			return nil, err
		}
		trends = append(trends, k)
	}

	return scatter.Analyze(scatter.PointsFromRecords(records, kind),
		scatter.WithXMax(cfg.XMax),
		scatter.WithThresholds(cfg.Thresholds),
		scatter.WithTrends(trends...),
		scatter.WithSteps(cfg.Steps),
		scatter.WithBandwidth(cfg.Bandwidth),
	)
}

// Breakdown is the share of a value per category together with each
// category's score rate.
type Breakdown struct {
	Category models.CategoryKind       `json:"category"`
	Value    breakdown.ValueKind       `json:"value"`
	Shares   []breakdown.CategoryShare `json:"shares"`
	Rates    []breakdown.Rate          `json:"rates"`
}

// Breakdown computes category shares and rates.
func (s *Service) Breakdown(records []models.Record) (*Breakdown, error) {
	cfg := s.config.Breakdown

	kind, err := models.ParseCategoryKind(cfg.Category)
	if err != nil {
		return nil, err
	}
	value, err := breakdown.ParseValueKind(cfg.Value)
	if err != nil {
		return nil, err
	}

	shares, err := breakdown.ByCategory(records, kind, value)
	if err != nil {
		return nil, err
	}
	return &Breakdown{
		Category: kind,
		Value:    value,
		Shares:   shares,
		Rates:    breakdown.Rates(records, kind),
	}, nil
}

// SectionError reports which report section failed.
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Section, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

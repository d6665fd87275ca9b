package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/gradelens/pkg/analyzer/breakdown"
	"github.com/panbanda/gradelens/pkg/analyzer/heatmap"
	"github.com/panbanda/gradelens/pkg/analyzer/regression"
	"github.com/panbanda/gradelens/pkg/analyzer/scatter"
	"github.com/panbanda/gradelens/pkg/models"
)

// Config holds all configuration options for gradelens.
type Config struct {
	// Histogram settings
	Bins BinsConfig `koanf:"bins" toml:"bins"`

	// Trend line fitting
	Trend TrendConfig `koanf:"trend" toml:"trend"`

	Heatmap   HeatmapConfig   `koanf:"heatmap" toml:"heatmap"`
	Scatter   ScatterConfig   `koanf:"scatter" toml:"scatter"`
	Breakdown BreakdownConfig `koanf:"breakdown" toml:"breakdown"`

	// Record file parsing
	Input InputConfig `koanf:"input" toml:"input"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// BinsConfig controls the score-rate histogram.
type BinsConfig struct {
	BucketCount   int  `koanf:"bucket_count" toml:"bucket_count"`
	Overlay       bool `koanf:"overlay" toml:"overlay"`
	OverlayPoints int  `koanf:"overlay_points" toml:"overlay_points"`
}

// TrendConfig controls the score-rate trend over time.
type TrendConfig struct {
	Model       string  `koanf:"model" toml:"model"` // linear, quadratic
	Band        string  `koanf:"band" toml:"band"`   // residual, fixed, none
	Confidence  float64 `koanf:"confidence" toml:"confidence"`
	Margin      float64 `koanf:"margin" toml:"margin"`
	SampleCount int     `koanf:"sample_count" toml:"sample_count"`
	Clamp       bool    `koanf:"clamp" toml:"clamp"`
}

// HeatmapConfig controls period/category aggregation.
type HeatmapConfig struct {
	Granularity     string  `koanf:"granularity" toml:"granularity"`
	Metric          string  `koanf:"metric" toml:"metric"`
	Category        string  `koanf:"category" toml:"category"`
	Densify         bool    `koanf:"densify" toml:"densify"`
	StableThreshold float64 `koanf:"stable_threshold" toml:"stable_threshold"`
}

// ScatterConfig controls quadrant classification and overlays.
type ScatterConfig struct {
	Category   string             `koanf:"category" toml:"category"`
	XMax       float64            `koanf:"x_max" toml:"x_max"` // 0 derives it from the data
	Trends     []string           `koanf:"trends" toml:"trends"`
	Steps      int                `koanf:"steps" toml:"steps"`
	Bandwidth  float64            `koanf:"bandwidth" toml:"bandwidth"`
	Thresholds scatter.Thresholds `koanf:"thresholds" toml:"thresholds"`
}

// BreakdownConfig controls category shares.
type BreakdownConfig struct {
	Category string `koanf:"category" toml:"category"`
	Value    string `koanf:"value" toml:"value"` // earned, possible, count, lost
}

// InputConfig controls how record files are read.
type InputConfig struct {
	// Format overrides detection by extension: csv, json, yaml.
	Format string `koanf:"format" toml:"format"`
	// Strict fails on the first invalid record instead of skipping it.
	Strict bool `koanf:"strict" toml:"strict"`
	// MaxFileMB rejects record files larger than this many megabytes; 0 disables the limit.
	MaxFileMB int `koanf:"max_file_mb" toml:"max_file_mb"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bins: BinsConfig{
			BucketCount:   20,
			Overlay:       true,
			OverlayPoints: 50,
		},
		Trend: TrendConfig{
			Model:       string(regression.KindLinear),
			Band:        string(regression.BandResidual),
			Confidence:  regression.DefaultConfidence,
			Margin:      regression.DefaultMargin,
			SampleCount: regression.DefaultSampleCount,
			Clamp:       true,
		},
		Heatmap: HeatmapConfig{
			Granularity:     string(heatmap.Month),
			Metric:          string(heatmap.ScoreRate),
			Category:        string(models.CategorySubject),
			StableThreshold: heatmap.DefaultStableThreshold,
		},
		Scatter: ScatterConfig{
			Category:   string(models.CategorySubject),
			Trends:     []string{string(scatter.TrendLinear), string(scatter.TrendMeanCross)},
			Steps:      scatter.DefaultSteps,
			Thresholds: scatter.DefaultThresholds(),
		},
		Breakdown: BreakdownConfig{
			Category: string(models.CategorySubject),
			Value:    string(breakdown.ValueEarned),
		},
		Input: InputConfig{
			MaxFileMB: 64,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".gradelens/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Standard config file names, searched in order.
var configNames = []string{
	"gradelens.toml",
	"gradelens.yaml",
	"gradelens.yml",
	"gradelens.json",
	".gradelens.toml",
	".gradelens.yaml",
	".gradelens.yml",
	".gradelens.json",
}

var searchDirs = []string{".", ".gradelens"}

// FindConfigFile returns the first config file in the standard locations,
// or "" when there is none.
func FindConfigFile() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithPath loads the given file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadResult is a loaded and validated config with the file it came from.
// Source is empty when defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

// LoadConfig loads and validates configuration from path, or from the first
// file in the standard locations, or defaults when there is none. Parse and
// validation errors are reported.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	path := o.path
	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// Validate checks every token and numeric setting. All problems are
// reported together; each wraps models.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{models.ErrInvalidConfig}, args...)...))
	}

	if c.Bins.BucketCount < 1 {
		invalid("bins.bucket_count must be at least 1, got %d", c.Bins.BucketCount)
	}
	if c.Bins.Overlay && c.Bins.OverlayPoints < 2 {
		invalid("bins.overlay_points must be at least 2, got %d", c.Bins.OverlayPoints)
	}

	_, err := regression.ParseKind(c.Trend.Model)
	check(err)
	_, err = regression.ParseBandKind(c.Trend.Band)
	check(err)
	if c.Trend.Confidence <= 0 || c.Trend.Confidence >= 1 {
		invalid("trend.confidence must be in (0,1), got %v", c.Trend.Confidence)
	}
	if c.Trend.SampleCount < 2 {
		invalid("trend.sample_count must be at least 2, got %d", c.Trend.SampleCount)
	}

	_, err = heatmap.ParseGranularity(c.Heatmap.Granularity)
	check(err)
	_, err = heatmap.ParseMetric(c.Heatmap.Metric)
	check(err)
	_, err = models.ParseCategoryKind(c.Heatmap.Category)
	check(err)
	if c.Heatmap.StableThreshold < 0 {
		invalid("heatmap.stable_threshold must not be negative, got %v", c.Heatmap.StableThreshold)
	}

	_, err = models.ParseCategoryKind(c.Scatter.Category)
	check(err)
	for _, kind := range c.Scatter.Trends {
		_, err = scatter.ParseTrendKind(kind)
		check(err)
	}
	if c.Scatter.Steps < 1 {
		invalid("scatter.steps must be at least 1, got %d", c.Scatter.Steps)
	}
	check(c.Scatter.Thresholds.Validate())

	_, err = models.ParseCategoryKind(c.Breakdown.Category)
	check(err)
	_, err = breakdown.ParseValueKind(c.Breakdown.Value)
	check(err)

	switch strings.ToLower(c.Input.Format) {
	case "", "csv", "json", "yaml", "yml":
	default:
		invalid("input.format must be csv, json or yaml, got %q", c.Input.Format)
	}
	if c.Input.MaxFileMB < 0 {
		invalid("input.max_file_mb must not be negative, got %d", c.Input.MaxFileMB)
	}

	switch strings.ToLower(c.Output.Format) {
	case "", "text", "json", "markdown", "md", "toon":
	default:
		invalid("output.format must be text, json, markdown or toon, got %q", c.Output.Format)
	}

	if c.Cache.TTL < 0 {
		invalid("cache.ttl must not be negative, got %d", c.Cache.TTL)
	}

	return errors.Join(errs...)
}

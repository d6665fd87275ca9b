package heatmap

import (
	"fmt"
	"strings"
	"time"

	"github.com/panbanda/gradelens/pkg/models"
)

// DefaultStableThreshold is the largest first-to-last change in mean
// intensity still classified as stable.
const DefaultStableThreshold = 5.0

// Granularity is the time-bucketing resolution.
type Granularity string

const (
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// ParseGranularity converts a string to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly", "w":
		return Week, nil
	case "month", "monthly", "m":
		return Month, nil
	case "quarter", "quarterly", "q":
		return Quarter, nil
	case "year", "yearly", "y":
		return Year, nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", models.ErrInvalidConfig, s)
	}
}

// Metric is the intensity computed for each cell.
type Metric string

const (
	// ScoreRate is 100 * Σearned / Σpossible.
	ScoreRate Metric = "score_rate"
	// AverageScore is Σearned / count.
	AverageScore Metric = "average_score"
	// Frequency is the number of records.
	Frequency Metric = "frequency"
	// Improvement is the score rate minus the prior value for the category.
	Improvement Metric = "improvement"
)

// ParseMetric converts a string to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "score_rate", "rate":
		return ScoreRate, nil
	case "average_score", "average", "avg":
		return AverageScore, nil
	case "frequency", "count":
		return Frequency, nil
	case "improvement", "delta":
		return Improvement, nil
	default:
		return "", fmt.Errorf("%w: unknown heatmap metric %q", models.ErrInvalidConfig, s)
	}
}

// Direction summarizes how intensity moved from the first to the last period.
type Direction string

const (
	DirectionNone      Direction = "none"
	DirectionStable    Direction = "stable"
	DirectionImproving Direction = "improving"
	DirectionDeclining Direction = "declining"
)

// Cell is one (period, category) square of the heatmap.
type Cell struct {
	Period        string    `json:"period"`
	PeriodStart   time.Time `json:"period_start"`
	Category      string    `json:"category"`
	Intensity     float64   `json:"intensity"`
	Count         int       `json:"count"`
	AverageScore  float64   `json:"average_score"`
	TotalScore    float64   `json:"total_score"`
	TotalPossible float64   `json:"total_possible"`

	// ScoreRate is kept for every metric so improvement baselines can use it.
	ScoreRate float64 `json:"score_rate"`

	// HasBaseline is set on Improvement cells that found a prior value.
	HasBaseline bool `json:"has_baseline,omitempty"`

	// Placeholder marks cells added by densification. They have no
	// backing records and are ignored by insights.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Insights are grid-level summaries derived from non-placeholder cells.
// Under Improvement only cells with a baseline count.
type Insights struct {
	MinIntensity     float64   `json:"min_intensity"`
	MaxIntensity     float64   `json:"max_intensity"`
	AverageIntensity float64   `json:"average_intensity"`
	BestPeriod       string    `json:"best_period,omitempty"`
	WorstPeriod      string    `json:"worst_period,omitempty"`
	BestCategory     string    `json:"best_category,omitempty"`
	WorstCategory    string    `json:"worst_category,omitempty"`
	Trend            Direction `json:"trend"`
	TrendDelta       float64   `json:"trend_delta"`
}

// Grid is the heatmap for one granularity and metric.
type Grid struct {
	Granularity Granularity `json:"granularity"`
	Metric      Metric      `json:"metric"`
	Cells       []Cell      `json:"cells"`
	Periods     []string    `json:"periods"`
	Categories  []string    `json:"categories"`
	Insights    Insights    `json:"insights"`

	// Skipped counts records without a date or category.
	Skipped int `json:"skipped"`
}

// Cell returns the cell for period and category.
func (g *Grid) Cell(period, category string) (Cell, bool) {
	for _, c := range g.Cells {
		if c.Period == period && c.Category == category {
			return c, true
		}
	}
	return Cell{}, false
}

// TotalCount sums Count over all cells.
func (g *Grid) TotalCount() int {
	total := 0
	for _, c := range g.Cells {
		total += c.Count
	}
	return total
}

func (g Granularity) String() string { return string(g) }

func (m Metric) String() string { return string(m) }

func (d Direction) String() string { return string(d) }

// Package heatmap buckets scored records into (period, category) cells and
// summarizes the resulting grid.
package heatmap

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/panbanda/gradelens/pkg/models"
)

// PriorFunc returns the baseline an Improvement cell is compared against.
// history holds the earlier non-placeholder cells of the same category in
// chronological order. Returning false leaves the cell without a baseline.
type PriorFunc func(cell Cell, history []Cell) (float64, bool)

// PreviousPeriodPrior uses the score rate of the most recent earlier period.
func PreviousPeriodPrior(_ Cell, history []Cell) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	return history[len(history)-1].ScoreRate, true
}

// Aggregator builds heatmap grids.
type Aggregator struct {
	kind            models.CategoryKind
	prior           PriorFunc
	densify         bool
	stableThreshold float64
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCategoryKind selects which record field forms the category axis.
func WithCategoryKind(kind models.CategoryKind) Option {
	return func(a *Aggregator) {
		a.kind = kind
	}
}

// WithPrior overrides the baseline used by the Improvement metric.
func WithPrior(fn PriorFunc) Option {
	return func(a *Aggregator) {
		if fn != nil {
			a.prior = fn
		}
	}
}

// WithDensify fills every missing (period, category) pair with a
// zero-intensity placeholder cell.
func WithDensify(densify bool) Option {
	return func(a *Aggregator) {
		a.densify = densify
	}
}

// WithStableThreshold sets the deadband used to classify the overall trend.
func WithStableThreshold(threshold float64) Option {
	return func(a *Aggregator) {
		if threshold >= 0 {
			a.stableThreshold = threshold
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		kind:            models.CategorySubject,
		prior:           PreviousPeriodPrior,
		stableThreshold: DefaultStableThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate is a convenience wrapper around New(opts...).Aggregate.
func Aggregate(records []models.Record, g Granularity, m Metric, opts ...Option) (*Grid, error) {
	return New(opts...).Aggregate(records, g, m)
}

type cellKey struct {
	period   string
	category string
}

// Aggregate groups records by period and category and computes each cell's
// intensity. Records without a date or category are counted in Skipped.
// Cells are ordered by period start, then category.
func (a *Aggregator) Aggregate(records []models.Record, g Granularity, m Metric) (*Grid, error) {
	if err := validate(g, m); err != nil {
		return nil, err
	}

	grid := &Grid{
		Granularity: g,
		Metric:      m,
		Cells:       []Cell{},
		Periods:     []string{},
		Categories:  []string{},
	}

	index := make(map[cellKey]int)
	for _, r := range records {
		category := strings.TrimSpace(a.kind.Of(r))
		if r.Date.IsZero() || category == "" {
			grid.Skipped++
			continue
		}

		label, start := PeriodOf(r.Date, g)
		key := cellKey{period: label, category: category}
		i, ok := index[key]
		if !ok {
			i = len(grid.Cells)
			index[key] = i
			grid.Cells = append(grid.Cells, Cell{
				Period:      label,
				PeriodStart: start,
				Category:    category,
			})
		}
		c := &grid.Cells[i]
		c.Count++
		c.TotalScore += r.Earned
		c.TotalPossible += r.Possible
	}

	for i := range grid.Cells {
		c := &grid.Cells[i]
		c.AverageScore = c.TotalScore / float64(c.Count)
		if c.TotalPossible > 0 {
			c.ScoreRate = 100 * c.TotalScore / c.TotalPossible
		}
	}
	sortCells(grid.Cells)

	a.applyMetric(grid.Cells, m)

	grid.Periods, grid.Categories = axes(grid.Cells)
	if a.densify {
		grid.Cells = densify(grid.Cells, grid.Periods, grid.Categories)
	}

	grid.Insights = a.insights(grid.Cells, grid.Periods, m)
	return grid, nil
}

func validate(g Granularity, m Metric) error {
	switch g {
	case Week, Month, Quarter, Year:
	default:
		return fmt.Errorf("%w: unknown granularity %q", models.ErrInvalidConfig, g)
	}
	switch m {
	case ScoreRate, AverageScore, Frequency, Improvement:
	default:
		return fmt.Errorf("%w: unknown heatmap metric %q", models.ErrInvalidConfig, m)
	}
	return nil
}

func (a *Aggregator) applyMetric(cells []Cell, m Metric) {
	history := make(map[string][]Cell)
	for i := range cells {
		c := &cells[i]
		switch m {
		case ScoreRate:
			c.Intensity = c.ScoreRate
		case AverageScore:
			c.Intensity = c.AverageScore
		case Frequency:
			c.Intensity = float64(c.Count)
		case Improvement:
			// Cells are already chronological, so history only holds earlier periods.
			if prior, ok := a.prior(*c, history[c.Category]); ok {
				c.Intensity = c.ScoreRate - prior
				c.HasBaseline = true
			}
			history[c.Category] = append(history[c.Category], *c)
		}
	}
}

func sortCells(cells []Cell) {
	sort.SliceStable(cells, func(i, j int) bool {
		if !cells[i].PeriodStart.Equal(cells[j].PeriodStart) {
			return cells[i].PeriodStart.Before(cells[j].PeriodStart)
		}
		return cells[i].Category < cells[j].Category
	})
}

// axes returns the distinct periods in chronological order and the
// distinct categories in lexical order. cells must already be sorted.
func axes(cells []Cell) ([]string, []string) {
	periods := []string{}
	seenCategory := make(map[string]bool)
	categories := []string{}

	for _, c := range cells {
		if len(periods) == 0 || periods[len(periods)-1] != c.Period {
			periods = append(periods, c.Period)
		}
		if !seenCategory[c.Category] {
			seenCategory[c.Category] = true
			categories = append(categories, c.Category)
		}
	}
	sort.Strings(categories)
	return periods, categories
}

func densify(cells []Cell, periods, categories []string) []Cell {
	present := make(map[cellKey]bool, len(cells))
	starts := make(map[string]time.Time, len(periods))
	for _, c := range cells {
		present[cellKey{c.Period, c.Category}] = true
		starts[c.Period] = c.PeriodStart
	}

	out := make([]Cell, 0, len(periods)*len(categories))
	out = append(out, cells...)
	for _, p := range periods {
		for _, cat := range categories {
			if present[cellKey{p, cat}] {
				continue
			}
			out = append(out, Cell{
				Period:      p,
				PeriodStart: starts[p],
				Category:    cat,
				Placeholder: true,
			})
		}
	}
	sortCells(out)
	return out
}

package analysis

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/panbanda/gradelens/internal/cache"
	"github.com/panbanda/gradelens/pkg/analyzer/binning"
	"github.com/panbanda/gradelens/pkg/analyzer/heatmap"
	"github.com/panbanda/gradelens/pkg/analyzer/regression"
	"github.com/panbanda/gradelens/pkg/analyzer/scatter"
	"github.com/panbanda/gradelens/pkg/source"
	"github.com/sourcegraph/conc"
)

// Report section names.
const (
	SectionBins      = "bins"
	SectionTrend     = "trend"
	SectionHeatmap   = "heatmap"
	SectionScatter   = "scatter"
	SectionBreakdown = "breakdown"
)

// Sections lists every report section in display order.
var Sections = []string{SectionBins, SectionTrend, SectionHeatmap, SectionScatter, SectionBreakdown}

const reportCacheKey = "report"

// Report holds every analysis of one set of records. A section that could
// not be computed is nil and listed in Skipped.
type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Files       []string           `json:"files"`
	Records     int                `json:"records"`
	Issues      []source.Issue     `json:"issues,omitempty"`
	Bins        *binning.Histogram `json:"bins,omitempty"`
	Trend       *Trend             `json:"trend,omitempty"`
	Heatmap     *heatmap.Grid      `json:"heatmap,omitempty"`
	Scatter     *scatter.Analysis  `json:"scatter,omitempty"`
	Breakdown   *Breakdown         `json:"breakdown,omitempty"`
	Skipped     map[string]string  `json:"skipped,omitempty"`
	Cached      bool               `json:"-"`
}

// ReportOptions configures a report run.
type ReportOptions struct {
	// OnProgress is called with the name of each finished section.
	// Sections finish concurrently; calls may come from any goroutine.
	OnProgress func(section string)
}

// Report runs every analysis concurrently. A section whose data is too thin
// for a fit is skipped; any other section failure fails the report with a
// SectionError per failed section. Reports are cached by the record file
// contents and the analysis settings.
func (s *Service) Report(ctx context.Context, loaded *source.Result, opts ReportOptions) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, cacheable := s.reportHash(loaded)
	if cacheable {
		var cached Report
		if s.cache.Load(reportCacheKey, hash, &cached) {
			cached.Cached = true
			for _, name := range Sections {
				done(opts.OnProgress, name)
			}
			return &cached, nil
		}
	}

	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Files:       loaded.Files,
		Records:     len(loaded.Records),
		Issues:      loaded.Issues,
		Skipped:     make(map[string]string),
	}
	records := loaded.Records

	var (
		mu   sync.Mutex
		errs []error
	)
	fail := func(section string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if errors.Is(err, regression.ErrDegenerateFit) {
			r.Skipped[section] = err.Error()
			return
		}
		errs = append(errs, &SectionError{Section: section, Err: err})
	}

	wg := conc.NewWaitGroup()

	wg.Go(func() {
		defer done(opts.OnProgress, SectionBins)
		result, err := s.Bins(records)
		if err != nil {
			fail(SectionBins, err)
			return
		}
		r.Bins = result
	})

	wg.Go(func() {
		defer done(opts.OnProgress, SectionTrend)
		result, err := s.Trend(records)
		if err != nil {
			fail(SectionTrend, err)
			return
		}
		r.Trend = result
	})

	wg.Go(func() {
		defer done(opts.OnProgress, SectionHeatmap)
		result, err := s.Heatmap(records)
		if err != nil {
			fail(SectionHeatmap, err)
			return
		}
		r.Heatmap = result
	})

	wg.Go(func() {
		defer done(opts.OnProgress, SectionScatter)
		result, err := s.Scatter(records)
		if err != nil {
			fail(SectionScatter, err)
			return
		}
		r.Scatter = result
	})

	wg.Go(func() {
		defer done(opts.OnProgress, SectionBreakdown)
		result, err := s.Breakdown(records)
		if err != nil {
			fail(SectionBreakdown, err)
			return
		}
		r.Breakdown = result
	})

	wg.Wait()

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool {
			return sectionIndex(errs[i]) < sectionIndex(errs[j])
		})
		return nil, errors.Join(errs...)
	}
	if len(r.Skipped) == 0 {
		r.Skipped = nil
	}

	if cacheable {
		// A failed write only costs a recomputation next time.
		_ = s.cache.Store(reportCacheKey, hash, r)
	}
	return r, nil
}

// reportHash fingerprints the loaded files and every setting that affects
// the report. Input loaded without files is never cached.
func (s *Service) reportHash(loaded *source.Result) (string, bool) {
	if s.cache == nil || !s.cache.Enabled() || len(loaded.Contents()) == 0 {
		return "", false
	}
	params := struct {
		Bins      any
		Trend     any
		Heatmap   any
		Scatter   any
		Breakdown any
		Input     any
	}{s.config.Bins, s.config.Trend, s.config.Heatmap, s.config.Scatter, s.config.Breakdown, s.config.Input}

	hash, err := cache.Fingerprint(loaded.Contents(), params)
	if err != nil {
		return "", false
	}
	return hash, true
}

func sectionIndex(err error) int {
	var se *SectionError
	if errors.As(err, &se) {
		for i, name := range Sections {
			if name == se.Section {
				return i
			}
		}
	}
	return len(Sections)
}

func done(fn func(string), section string) {
	if fn != nil {
		fn(section)
	}
}

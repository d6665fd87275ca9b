package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/gradelens/internal/output"
	"github.com/panbanda/gradelens/internal/progress"
	"github.com/panbanda/gradelens/internal/service/analysis"
	"github.com/panbanda/gradelens/pkg/config"
	"github.com/panbanda/gradelens/pkg/source"
	"github.com/urfave/cli/v2"
)

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Aliases:   []string{"all"},
		Usage:     "Run every analysis and print a combined report",
		ArgsUsage: "[path...]",
		Action:    runReportCmd,
	}
}

func runReportCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	loaded, err := loadRecords(cfg, getPaths(c))
	if err != nil {
		return err
	}
	return runReport(c.Context, c, cfg, loaded)
}

// runReport analyzes loaded records and writes the combined report.
func runReport(ctx context.Context, c *cli.Context, cfg *config.Config, loaded *source.Result) error {
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker("Analyzing", analysis.Sections)
	report, err := svc.Report(ctx, loaded, analysis.ReportOptions{OnProgress: tracker.Done})
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	if report.Cached {
		tracker.FinishSkipped("cached")
	} else {
		tracker.FinishSuccess()
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(composeReport(report, formatter.Colored()))
}

// composeReport renders each computed section under its own heading.
func composeReport(r *analysis.Report, colored bool) *output.Report {
	summary := []string{
		fmt.Sprintf("Generated: %s", r.GeneratedAt.Format(time.RFC3339)),
		fmt.Sprintf("Files:     %s", strings.Join(r.Files, ", ")),
		fmt.Sprintf("Records:   %s", output.Num(r.Records)),
	}
	if len(r.Issues) > 0 {
		summary = append(summary, fmt.Sprintf("Skipped:   %s invalid records", output.Num(len(r.Issues))))
	}

	sections := []output.Renderable{
		&output.Section{Title: "Summary", Content: strings.Join(summary, "\n")},
	}
	if r.Bins != nil {
		sections = append(sections, binsTable(r.Bins))
	}
	if r.Trend != nil {
		sections = append(sections, trendReport(r.Trend, 10, colored))
	}
	if r.Heatmap != nil {
		sections = append(sections, heatmapReport(r.Heatmap, colored))
	}
	if r.Scatter != nil {
		sections = append(sections, scatterReport(r.Scatter, colored))
	}
	if r.Breakdown != nil {
		sections = append(sections, breakdownTable(r.Breakdown))
	}

	if len(r.Skipped) > 0 {
		names := make([]string, 0, len(r.Skipped))
		for name := range r.Skipped {
			names = append(names, name)
		}
		sort.Strings(names)

		lines := make([]string, 0, len(names))
		for _, name := range names {
			line := fmt.Sprintf("%s: %s", name, r.Skipped[name])
			if colored {
				line = color.YellowString(line)
			}
			lines = append(lines, line)
		}
		sections = append(sections, &output.Section{Title: "Skipped Sections", Content: strings.Join(lines, "\n")})
	}

	return &output.Report{
		Title:    "Score Analytics Report",
		Sections: sections,
		Data:     r,
	}
}

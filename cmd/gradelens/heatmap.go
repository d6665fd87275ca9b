package main

import (
	"fmt"
	"strings"

	"github.com/panbanda/gradelens/internal/output"
	"github.com/panbanda/gradelens/pkg/analyzer/heatmap"
	"github.com/urfave/cli/v2"
)

func heatmapCmd() *cli.Command {
	return &cli.Command{
		Name:      "heatmap",
		Usage:     "Aggregate records into a period by category grid",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "granularity",
				Aliases: []string{"g"},
				Usage:   "Period size: week, month, quarter, year",
			},
			&cli.StringFlag{
				Name:    "metric",
				Aliases: []string{"m"},
				Usage:   "Cell metric: score_rate, average_score, frequency, improvement",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Category field: subject, question_type, exam",
			},
			&cli.BoolFlag{
				Name:  "densify",
				Usage: "Fill empty period/category cells",
			},
		},
		Action: runHeatmapCmd,
	}
}

func runHeatmapCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("granularity") {
		cfg.Heatmap.Granularity = c.String("granularity")
	}
	if c.IsSet("metric") {
		cfg.Heatmap.Metric = c.String("metric")
	}
	if c.IsSet("category") {
		cfg.Heatmap.Category = c.String("category")
	}
	if c.IsSet("densify") {
		cfg.Heatmap.Densify = c.Bool("densify")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	loaded, err := loadRecords(cfg, getPaths(c))
	if err != nil {
		return err
	}

	grid, err := svc.Heatmap(loaded.Records)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(heatmapReport(grid, formatter.Colored()))
}

func heatmapReport(g *heatmap.Grid, colored bool) *output.Report {
	return &output.Report{
		Title: fmt.Sprintf("%s by %s", output.Title(string(g.Metric)), output.Title(string(g.Granularity))),
		Sections: []output.Renderable{
			heatmapTable(g),
			heatmapInsights(g, colored),
		},
		Data: g,
	}
}

// heatmapTable lays categories out as rows and periods as columns.
func heatmapTable(g *heatmap.Grid) *output.Table {
	headers := append([]string{"Category"}, g.Periods...)

	type cellKey struct{ period, category string }
	cells := make(map[cellKey]heatmap.Cell, len(g.Cells))
	for _, c := range g.Cells {
		cells[cellKey{c.Period, c.Category}] = c
	}

	rows := make([][]string, 0, len(g.Categories))
	for _, cat := range g.Categories {
		row := []string{truncate(cat, 30)}
		for _, period := range g.Periods {
			cell, ok := cells[cellKey{period, cat}]
			row = append(row, cellLabel(g.Metric, cell, ok))
		}
		rows = append(rows, row)
	}

	return output.NewTable("", headers, rows, nil, nil)
}

func cellLabel(m heatmap.Metric, cell heatmap.Cell, ok bool) string {
	if !ok || cell.Placeholder {
		return "-"
	}
	switch m {
	case heatmap.Frequency:
		return output.Num(cell.Count)
	case heatmap.Improvement:
		if !cell.HasBaseline {
			return "n/a"
		}
		return output.Signed(cell.Intensity)
	case heatmap.ScoreRate:
		return output.Percent(cell.Intensity)
	default:
		return output.Score(cell.Intensity)
	}
}

func heatmapInsights(g *heatmap.Grid, colored bool) *output.Section {
	in := g.Insights
	direction := string(in.Trend)
	label := fmt.Sprintf("%s (%s)", direction, output.Signed(in.TrendDelta))
	if colored {
		label = output.TrendColor(direction, label)
	}

	lines := []string{
		fmt.Sprintf("Cells:    %s from %s records", output.Num(len(g.Cells)), output.Num(g.TotalCount())),
		fmt.Sprintf("Range:    %s to %s (mean %s)", output.Score(in.MinIntensity), output.Score(in.MaxIntensity), output.Score(in.AverageIntensity)),
	}
	if in.BestPeriod != "" {
		lines = append(lines, fmt.Sprintf("Periods:  best %s, worst %s", in.BestPeriod, in.WorstPeriod))
	}
	if in.BestCategory != "" {
		lines = append(lines, fmt.Sprintf("Category: best %s, worst %s", in.BestCategory, in.WorstCategory))
	}
	lines = append(lines, fmt.Sprintf("Trend:    %s", label))
	if g.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("Skipped:  %s records without a date or category", output.Num(g.Skipped)))
	}

	return &output.Section{Title: "Insights", Content: strings.Join(lines, "\n")}
}

package main

import (
	"fmt"
	"strings"

	"github.com/panbanda/gradelens/internal/output"
	"github.com/panbanda/gradelens/pkg/analyzer/scatter"
	"github.com/urfave/cli/v2"
)

func scatterCmd() *cli.Command {
	return &cli.Command{
		Name:      "scatter",
		Usage:     "Classify records by earned score and score rate",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Category field: subject, question_type, exam",
			},
			&cli.Float64Flag{
				Name:  "x-max",
				Usage: "Upper end of the score axis (0 derives it from the data)",
			},
			&cli.StringSliceFlag{
				Name:    "trend",
				Aliases: []string{"t"},
				Usage:   "Overlay: linear, smoothed, meancross, kernel (repeatable)",
			},
		},
		Action: runScatterCmd,
	}
}

func runScatterCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("category") {
		cfg.Scatter.Category = c.String("category")
	}
	if c.IsSet("x-max") {
		cfg.Scatter.XMax = c.Float64("x-max")
	}
	if c.IsSet("trend") {
		cfg.Scatter.Trends = c.StringSlice("trend")
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

	analysis, err := svc.Scatter(loaded.Records)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(scatterReport(analysis, formatter.Colored()))
}

func scatterReport(a *scatter.Analysis, colored bool) *output.Report {
	return &output.Report{
		Title: "Score Quadrants",
		Sections: []output.Renderable{
			quadrantTable(a, colored),
			overlaySection(a),
		},
		Data: a,
	}
}

func quadrantTable(a *scatter.Analysis, colored bool) *output.Table {
	total := len(a.Points)
	t := a.Thresholds
	split := t.XSplit * a.XMax

	bounds := map[scatter.Quadrant]string{
		scatter.HighPerformer:    fmt.Sprintf("score >= %s, rate >= %s", output.Score(split), output.Percent(t.YSplit)),
		scatter.Efficient:        fmt.Sprintf("score < %s, rate >= %s", output.Score(split), output.Percent(t.YSplit)),
		scatter.Inconsistent:     fmt.Sprintf("score >= %s, rate < %s", output.Score(split), output.Percent(t.YSplit)),
		scatter.NeedsImprovement: fmt.Sprintf("score < %s, rate < %s", output.Score(split), output.Percent(t.YSplit)),
	}

	rows := make([][]string, 0, len(a.Counts))
	for _, qc := range a.Counts {
		name := output.Title(string(qc.Quadrant))
		if colored {
			name = output.TrendColor(string(qc.Quadrant), name)
		}
		share := 0.0
		if total > 0 {
			share = 100 * float64(qc.Count) / float64(total)
		}
		rows = append(rows, []string{name, bounds[qc.Quadrant], output.Num(qc.Count), output.Percent(share)})
	}

	footer := []string{"Total", fmt.Sprintf("x max %s", output.Score(a.XMax)), output.Num(total), ""}
	return output.NewTable("", []string{"Quadrant", "Bounds", "Count", "Share"}, rows, footer, nil)
}

func overlaySection(a *scatter.Analysis) *output.Section {
	if len(a.Overlays) == 0 {
		return &output.Section{Title: "Overlays", Content: "none"}
	}

	var lines []string
	for _, o := range a.Overlays {
		if o.Empty() {
			lines = append(lines, fmt.Sprintf("%-10s no data", o.Kind))
			continue
		}
		for _, line := range o.Lines {
			parts := make([]string, 0, len(line.Points))
			for _, p := range thin(line.Points, 6) {
				parts = append(parts, fmt.Sprintf("(%s, %s)", output.Score(p.X), output.Score(p.Y)))
			}
			lines = append(lines, fmt.Sprintf("%-10s %s", o.Kind, strings.Join(parts, " ")))
		}
	}
	return &output.Section{Title: "Overlays", Content: strings.Join(lines, "\n")}
}

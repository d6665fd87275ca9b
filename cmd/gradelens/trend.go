package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/gradelens/internal/output"
	"github.com/panbanda/gradelens/internal/service/analysis"
	"github.com/panbanda/gradelens/pkg/analyzer/regression"
	"github.com/urfave/cli/v2"
)

func trendCmd() *cli.Command {
	return &cli.Command{
		Name:      "trend",
		Usage:     "Fit the score rate over time",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model: linear, quadratic",
			},
			&cli.StringFlag{
				Name:  "band",
				Usage: "Band: residual, fixed, none",
			},
			&cli.Float64Flag{
				Name:  "confidence",
				Usage: "Confidence level of the residual band",
			},
			&cli.IntFlag{
				Name:  "points",
				Value: 10,
				Usage: "Rows of the fitted line to print in text output",
			},
		},
		Action: runTrendCmd,
	}
}

func runTrendCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("model") {
		cfg.Trend.Model = c.String("model")
	}
	if c.IsSet("band") {
		cfg.Trend.Band = c.String("band")
	}
	if c.IsSet("confidence") {
		cfg.Trend.Confidence = c.Float64("confidence")
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

	tr, err := svc.Trend(loaded.Records)
	if errors.Is(err, regression.ErrDegenerateFit) {
		color.Yellow("Not enough dated records to fit a trend (%d usable)", len(tr.Observations))
		return nil
	}
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(trendReport(tr, c.Int("points"), formatter.Colored()))
}

func trendReport(tr *analysis.Trend, points int, colored bool) *output.Report {
	slope := tr.SlopePerDay()
	direction := "stable"
	switch {
	case slope*30 >= 1:
		direction = "improving"
	case slope*30 <= -1:
		direction = "declining"
	}
	label := fmt.Sprintf("%s per 30 days (%s)", output.Signed(slope*30), direction)
	if colored {
		label = output.TrendColor(direction, label)
	}

	lines := []string{
		fmt.Sprintf("Model:        %s", tr.Model),
		fmt.Sprintf("Observations: %s", output.Num(len(tr.Observations))),
		fmt.Sprintf("Period:       %s to %s", tr.Start.Format(time.DateOnly), dayLabel(tr.Start, tr.Domain.Max)),
		fmt.Sprintf("Change:       %s", label),
	}
	switch {
	case tr.Linear != nil:
		lines = append(lines, fmt.Sprintf("Fit:          rate = %s %s %s·day (R² %.3f)",
			output.Score(tr.Linear.Intercept), sign(tr.Linear.Slope), output.Score(abs(tr.Linear.Slope)), tr.Linear.RSquared))
	case tr.Polynomial != nil:
		lines = append(lines, fmt.Sprintf("Fit:          quadratic (R² %.3f)", tr.Polynomial.RSquared))
	}
	if tr.Band != regression.BandNone {
		lines = append(lines, fmt.Sprintf("Band:         %s", tr.Band))
	}

	headers := []string{"Date", "Day", "Fitted"}
	withBand := !tr.Lower.Empty()
	if withBand {
		headers = append(headers, "Low", "High")
	}

	indices := make([]int, len(tr.Line.Points))
	for i := range indices {
		indices[i] = i
	}
	var rows [][]string
	for _, i := range thin(indices, points) {
		p := tr.Line.Points[i]
		row := []string{dayLabel(tr.Start, p.X), output.Score(p.X), output.Percent(p.Y)}
		if withBand {
			row = append(row, output.Percent(tr.Lower.Points[i].Y), output.Percent(tr.Upper.Points[i].Y))
		}
		rows = append(rows, row)
	}

	return &output.Report{
		Title: "Score Rate Trend",
		Sections: []output.Renderable{
			&output.Section{Content: strings.Join(lines, "\n")},
			output.NewTable("", headers, rows, nil, nil),
		},
		Data: tr,
	}
}

func dayLabel(start time.Time, day float64) string {
	return start.Add(time.Duration(day * float64(24*time.Hour))).Format(time.DateOnly)
}

func sign(v float64) string {
	if v < 0 {
		return "-"
	}
	return "+"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

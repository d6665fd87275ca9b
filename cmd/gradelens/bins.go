package main

import (
	"fmt"

	"github.com/panbanda/gradelens/internal/output"
	"github.com/panbanda/gradelens/pkg/analyzer/binning"
	"github.com/urfave/cli/v2"
)

func binsCmd() *cli.Command {
	return &cli.Command{
		Name:      "bins",
		Aliases:   []string{"histogram"},
		Usage:     "Histogram of score rates with a normal overlay",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "buckets",
				Aliases: []string{"n"},
				Usage:   "Number of bins (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-overlay",
				Usage: "Skip the normal distribution overlay",
			},
		},
		Action: runBinsCmd,
	}
}

func runBinsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("buckets") {
		cfg.Bins.BucketCount = c.Int("buckets")
	}
	if c.Bool("no-overlay") {
		cfg.Bins.Overlay = false
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	loaded, err := loadRecords(cfg, getPaths(c))
	if err != nil {
		return err
	}

	hist, err := svc.Bins(loaded.Records)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(binsTable(hist))
}

func binsTable(h *binning.Histogram) *output.Table {
	headers := []string{"Bin", "Range", "Count", "Probability"}
	if h.Overlay != nil {
		headers = append(headers, "Normal")
	}
	headers = append(headers, "")

	var maxP float64
	for _, b := range h.Bins {
		maxP = max(maxP, b.Probability)
	}

	rows := make([][]string, 0, len(h.Bins))
	for i, b := range h.Bins {
		lower := "("
		if i == 0 {
			lower = "["
		}
		row := []string{
			fmt.Sprintf("%d", b.Index),
			fmt.Sprintf("%s%s, %s]", lower, output.Score(b.LowerBound), output.Score(b.UpperBound)),
			output.Num(b.Count),
			output.Percent(100 * b.Probability),
		}
		if h.Overlay != nil {
			row = append(row, output.Percent(100*h.Overlay.Expected[i]))
		}
		row = append(row, output.Bar(b.Probability, maxP, 30))
		rows = append(rows, row)
	}

	s := h.Summary
	footer := []string{
		fmt.Sprintf("n=%s", output.Num(s.Count)),
		fmt.Sprintf("mean %s", output.Score(s.Mean)),
		fmt.Sprintf("sd %s", output.Score(s.StdDev)),
		fmt.Sprintf("median %s", output.Score(s.Median)),
	}
	for len(footer) < len(headers) {
		footer = append(footer, "")
	}

	return output.NewTable("Score Rate Distribution", headers, rows, footer, h)
}

package main

import (
	"fmt"

	"github.com/panbanda/gradelens/internal/output"
	"github.com/panbanda/gradelens/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func breakdownCmd() *cli.Command {
	return &cli.Command{
		Name:      "breakdown",
		Usage:     "Share of points and score rate per category",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Category field: subject, question_type, exam",
			},
			&cli.StringFlag{
				Name:  "value",
				Usage: "Value to share: earned, possible, count, lost",
			},
		},
		Action: runBreakdownCmd,
	}
}

func runBreakdownCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("category") {
		cfg.Breakdown.Category = c.String("category")
	}
	if c.IsSet("value") {
		cfg.Breakdown.Value = c.String("value")
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

	b, err := svc.Breakdown(loaded.Records)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(breakdownTable(b))
}

// breakdownTable lists categories in share order with their score rate.
func breakdownTable(b *analysis.Breakdown) *output.Table {
	rates := make(map[string]float64, len(b.Rates))
	for _, r := range b.Rates {
		rates[r.Category] = r.Rate
	}

	var total float64
	rows := make([][]string, 0, len(b.Shares))
	for _, s := range b.Shares {
		total += s.Value
		rows = append(rows, []string{
			truncate(s.Category, 30),
			output.Score(s.Value),
			output.Percent(s.Percentage),
			output.Percent(rates[s.Category]),
			output.Bar(rates[s.Category], 100, 20),
		})
	}

	title := fmt.Sprintf("%s by %s", output.Title(string(b.Value)), output.Title(string(b.Category)))
	footer := []string{"Total", output.Score(total), "", "", ""}
	return output.NewTable(title, []string{"Category", "Value", "Share", "Rate", ""}, rows, footer, b)
}

package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "gradelens",
		Usage:   "Score analytics for exam and practice records",
		Version: version,
		Description: `gradelens reads score records (CSV, JSON or YAML) and derives
score-rate histograms, trends over time, period by category heatmaps,
quadrant scatter analyses and category breakdowns.

Record columns: date, subject, question_type, exam, earned, possible`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"GRADELENS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "List skipped records",
			},
		},
		Commands: []*cli.Command{
			binsCmd(),
			trendCmd(),
			heatmapCmd(),
			scatterCmd(),
			breakdownCmd(),
			reportCmd(),
			watchCmd(),
			configCmd(),
			initCmd(),
			cacheCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

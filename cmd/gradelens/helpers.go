package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/panbanda/gradelens/internal/cache"
	"github.com/panbanda/gradelens/internal/output"
	"github.com/panbanda/gradelens/internal/progress"
	"github.com/panbanda/gradelens/internal/service/analysis"
	"github.com/panbanda/gradelens/pkg/config"
	"github.com/panbanda/gradelens/pkg/source"
	"github.com/urfave/cli/v2"
)

// errNoRecordFiles is returned when the given paths hold no record files.
var errNoRecordFiles = errors.New("no record files found")

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// expandPaths replaces directories with the record files inside them.
// Hidden entries and gradelens config files are skipped. Explicit file
// paths are kept as given.
func expandPaths(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if name := d.Name(); strings.HasPrefix(name, ".") || strings.HasPrefix(name, "gradelens.") {
				return nil
			}
			if _, err := source.DetectFormat(path); err == nil {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", errNoRecordFiles, strings.Join(paths, ", "))
	}
	return files, nil
}

// loadConfig loads the config named by --config or found in the standard
// locations, then applies global flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}

	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}

	cfg := result.Config
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}

// newFormatter creates the output formatter for the configured format.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	return output.NewFormatter(output.ParseFormat(cfg.Output.Format), c.String("output"), cfg.Output.Color)
}

// newService creates the analysis service with caching per config.
func newService(cfg *config.Config) (*analysis.Service, error) {
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return analysis.New(analysis.WithConfig(cfg), analysis.WithCache(c)), nil
}

// loadRecords reads every record file under paths. Skipped records are
// summarized on stderr, or listed one by one in verbose mode.
func loadRecords(cfg *config.Config, paths []string) (*source.Result, error) {
	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}

	opts := []source.Option{
		source.WithStrict(cfg.Input.Strict),
		source.WithSource(source.NewFilesystem(int64(cfg.Input.MaxFileMB) << 20)),
	}
	if cfg.Input.Format != "" {
		format, err := source.ParseFormat(cfg.Input.Format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, source.WithFormat(format))
	}

	spinner := progress.NewSpinner("Loading records...")
	loaded, err := source.NewLoader(opts...).Load(files...)
	if err != nil {
		spinner.FinishError(err)
		return nil, err
	}
	spinner.FinishSuccess()

	reportIssues(loaded.Issues, cfg.Output.Verbose)
	return loaded, nil
}

func reportIssues(issues []source.Issue, verbose bool) {
	if len(issues) == 0 {
		return
	}
	if !verbose {
		fmt.Fprintln(os.Stderr, color.YellowString("Skipped %d invalid record(s); use --verbose to list them", len(issues)))
		return
	}
	fmt.Fprintln(os.Stderr, color.YellowString("Skipped %d invalid record(s):", len(issues)))
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "  - %s\n", issue)
	}
}

// truncate shortens a label to maxLen runes, adding "..." if truncated.
// Category names are often non-ASCII, so it never splits a rune.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen < 4 {
		return string(runes[:max(maxLen, 0)])
	}
	return string(runes[:maxLen-3]) + "..."
}

// thin picks at most n items spread evenly, always keeping the first and
// last.
func thin[T any](items []T, n int) []T {
	if n < 2 || len(items) <= n {
		return items
	}
	out := make([]T, 0, n)
	step := float64(len(items)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, items[int(float64(i)*step+0.5)])
	}
	return out
}

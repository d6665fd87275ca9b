package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/gradelens/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-run the report whenever record files change",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before re-analyzing",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	paths := getPaths(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	// Every run reloads the files, so the cache can only ever miss.
	cfg.Cache.Enabled = false

	watcher, err := watch.NewWatcher(paths, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyze := func() {
		loaded, err := loadRecords(cfg, paths)
		if err != nil {
			color.Red("Load error: %v", err)
			return
		}
		if err := runReport(ctx, c, cfg, loaded); err != nil && ctx.Err() == nil {
			color.Red("Analysis error: %v", err)
		}
	}

	watcher.SetCallback(func(changed []string) {
		names := make([]string, len(changed))
		for i, path := range changed {
			names[i] = filepath.Base(path)
		}
		color.Yellow("\nRecords changed: %s", strings.Join(names, ", "))
		fmt.Println(strings.Repeat("-", 40))
		analyze()
		fmt.Println()
	})

	analyze()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nStopping watch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

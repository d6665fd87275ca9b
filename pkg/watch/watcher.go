// Package watch re-triggers analysis when record files change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/gradelens/pkg/source"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors record files for changes and triggers re-analysis.
//
// Targets may be files or directories. Files are watched through their
// parent directory so editors that replace the file on save are still seen.
// Directories are watched recursively, skipping hidden ones, and any record
// file (csv, json, yaml) inside them counts.
//
// Changes are batched: once no file has changed for the debounce period,
// the callback runs once with every changed path. Callbacks never overlap.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	files     map[string]bool
	dirs      []string
	callback  func(paths []string)

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a new record file watcher.
func NewWatcher(targets []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debounce:  debounce,
		files:     make(map[string]bool),
		pending:   make(map[string]time.Time),
	}

	for _, target := range targets {
		abs, err := filepath.Abs(target)
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("invalid path %s: %w", target, err)
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			w.dirs = append(w.dirs, abs)
			continue
		}
		w.files[abs] = true
	}

	return w, nil
}

// SetCallback sets the function called with the changed record files,
// sorted by path. Must be called before Start.
func (w *Watcher) SetCallback(cb func(paths []string)) {
	w.callback = cb
}

// Start begins watching for file changes. It blocks until ctx is done and
// then returns ctx.Err().
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatches(); err != nil {
		return err
	}

	color.Cyan("Watching %d record target(s) for changes...", len(w.files)+len(w.dirs))
	color.Cyan("Press Ctrl+C to stop")
	fmt.Println()

	go w.flushLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			color.Red("Watch error: %v", err)
		}
	}
}

func (w *Watcher) addWatches() error {
	parents := make(map[string]bool)
	for path := range w.files {
		parents[filepath.Dir(path)] = true
	}
	for dir := range parents {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	for _, root := range w.dirs {
		if err := w.addTree(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}
	return nil
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // vanished or unreadable
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// inTree reports whether path lies at or below one of the watched directories.
func (w *Watcher) inTree(path string) bool {
	for _, dir := range w.dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant reports whether a change to path should trigger the callback.
func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	if _, err := source.DetectFormat(path); err != nil {
		return false
	}
	return w.inTree(path)
}

// handleEvent records a write or create of a record file. A directory
// created inside a watched tree is watched too.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	path := filepath.Clean(event.Name)

	if event.Op&fsnotify.Create != 0 && w.inTree(path) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				color.Red("Watch error: %v", err)
			}
			return
		}
	}

	if !w.relevant(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flush(time.Now())
		}
	}
}

// flush runs the callback once the whole batch has been quiet for the
// debounce period. It runs on the flush goroutine, so callbacks are
// serialized and changes made meanwhile wait for the next batch.
func (w *Watcher) flush(now time.Time) {
	batch := w.takeReady(now)
	if len(batch) > 0 && w.callback != nil {
		w.callback(batch)
	}
}

// takeReady removes and returns every pending path if none changed within
// the debounce period, or nothing otherwise.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}
	for _, changed := range w.pending {
		if now.Sub(changed) < w.debounce {
			return nil
		}
	}

	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	clear(w.pending)
	sort.Strings(batch)
	return batch
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedFiles returns the directories currently registered with the OS watcher.
func (w *Watcher) WatchedFiles() []string {
	return w.fsWatcher.WatchList()
}

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T, targets []string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(targets, debounce)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	dir := t.TempDir()
	scores := filepath.Join(dir, "scores.csv")

	t.Run("debounce defaults", func(t *testing.T) {
		for _, d := range []time.Duration{0, -time.Second} {
			if w := newTestWatcher(t, nil, d); w.debounce != DefaultDebounce {
				t.Errorf("debounce(%v) = %v, want %v", d, w.debounce, DefaultDebounce)
			}
		}
		if w := newTestWatcher(t, nil, time.Second); w.debounce != time.Second {
			t.Errorf("debounce = %v, want 1s", w.debounce)
		}
	})

	t.Run("splits files and directories", func(t *testing.T) {
		w := newTestWatcher(t, []string{scores, dir}, time.Second)
		if !w.files[scores] {
			t.Errorf("files should contain %s", scores)
		}
		if len(w.dirs) != 1 || w.dirs[0] != dir {
			t.Errorf("dirs = %v, want [%s]", w.dirs, dir)
		}
	})

	t.Run("missing file is still a file target", func(t *testing.T) {
		missing := filepath.Join(dir, "later.yaml")
		w := newTestWatcher(t, []string{missing}, time.Second)
		if !w.files[missing] || len(w.dirs) != 0 {
			t.Errorf("files = %v, dirs = %v", w.files, w.dirs)
		}
	})
}

func TestWatcher_handleEvent(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	scores := filepath.Join(root, "scores.csv")

	w := newTestWatcher(t, []string{scores, dataDir}, time.Second)

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write to watched file", fsnotify.Event{Name: scores, Op: fsnotify.Write}, true},
		{"create of watched file", fsnotify.Event{Name: scores, Op: fsnotify.Create}, true},
		{"remove ignored", fsnotify.Event{Name: scores, Op: fsnotify.Remove}, false},
		{"chmod ignored", fsnotify.Event{Name: scores, Op: fsnotify.Chmod}, false},
		{"sibling of watched file ignored", fsnotify.Event{Name: filepath.Join(root, "other.csv"), Op: fsnotify.Write}, false},
		{"record file in watched directory", fsnotify.Event{Name: filepath.Join(dataDir, "week1.yaml"), Op: fsnotify.Write}, true},
		{"nested record file", fsnotify.Event{Name: filepath.Join(dataDir, "2024", "jan.json"), Op: fsnotify.Create}, true},
		{"non-record file", fsnotify.Event{Name: filepath.Join(dataDir, "notes.txt"), Op: fsnotify.Write}, false},
		{"editor swap file", fsnotify.Event{Name: filepath.Join(dataDir, ".week1.yaml"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clear(w.pending)
			w.handleEvent(tt.event)

			_, found := w.pending[filepath.Clean(tt.event.Name)]
			if found != tt.wantPending {
				t.Errorf("pending[%s] = %v, want %v", tt.event.Name, found, tt.wantPending)
			}
		})
	}
}

func TestWatcher_takeReady(t *testing.T) {
	w := newTestWatcher(t, nil, time.Second)
	now := time.Now()

	if got := w.takeReady(now); got != nil {
		t.Errorf("empty pending should give nothing, got %v", got)
	}

	w.pending["/data/b.csv"] = now.Add(-3 * time.Second)
	w.pending["/data/a.csv"] = now.Add(-500 * time.Millisecond)

	if got := w.takeReady(now); got != nil {
		t.Errorf("batch with a recent change should wait, got %v", got)
	}
	if len(w.pending) != 2 {
		t.Fatalf("pending should be kept while waiting, got %v", w.pending)
	}

	got := w.takeReady(now.Add(time.Second))
	if want := []string{"/data/a.csv", "/data/b.csv"}; !slices.Equal(got, want) {
		t.Errorf("takeReady() = %v, want %v", got, want)
	}
	if len(w.pending) != 0 {
		t.Errorf("pending should be empty after a flush, got %v", w.pending)
	}
}

func TestWatcher_flushBatchesChanges(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, []string{root}, 200*time.Millisecond)

	var batches [][]string
	w.SetCallback(func(paths []string) {
		batches = append(batches, paths)
	})

	for range 5 {
		w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "math.csv"), Op: fsnotify.Write})
	}
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "physics.csv"), Op: fsnotify.Write})

	start := time.Now()
	w.flush(start)
	if len(batches) != 0 {
		t.Fatalf("flush inside the debounce period ran the callback: %v", batches)
	}

	w.flush(start.Add(time.Second))
	w.flush(start.Add(2 * time.Second))

	if len(batches) != 1 {
		t.Fatalf("callback ran %d times, want 1", len(batches))
	}
	want := []string{filepath.Join(root, "math.csv"), filepath.Join(root, "physics.csv")}
	if !slices.Equal(batches[0], want) {
		t.Errorf("batch = %v, want %v", batches[0], want)
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	w := newTestWatcher(t, []string{t.TempDir()}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Error("Start() did not return after context cancellation")
	}
}

func TestWatcher_Start_FileChange(t *testing.T) {
	root := t.TempDir()
	scores := filepath.Join(root, "scores.csv")
	if err := os.WriteFile(scores, []byte("date,subject,earned,possible\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, []string{scores}, 50*time.Millisecond)

	var (
		mu      sync.Mutex
		batches [][]string
	)
	w.SetCallback(func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	// An unrelated file in the same directory must not trigger.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(scores, []byte("date,subject,earned,possible\n2024-01-01,Math,1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) == 0 {
		t.Fatal("callback should run when the record file changes")
	}
	for _, batch := range batches {
		if !slices.Equal(batch, []string{scores}) {
			t.Errorf("batch = %v, want [%s]", batch, scores)
		}
	}
}

func TestWatcher_Start_WatchesTree(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{filepath.Join(root, ".gradelens", "cache"), filepath.Join(root, "2024")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w := newTestWatcher(t, []string{root}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	term := filepath.Join(root, "2025")
	if err := os.Mkdir(term, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	watched := w.WatchedFiles()
	for _, path := range watched {
		switch filepath.Base(path) {
		case ".gradelens", "cache":
			t.Errorf("%s should not be watched", path)
		}
	}
	for _, want := range []string{filepath.Join(root, "2024"), term} {
		if !slices.Contains(watched, want) {
			t.Errorf("%s should be watched, got %v", want, watched)
		}
	}
}

func TestWatcher_ConcurrentHandleEvent(t *testing.T) {
	root := t.TempDir()
	scores := filepath.Join(root, "scores.csv")
	w := newTestWatcher(t, []string{scores}, time.Hour)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				w.handleEvent(fsnotify.Event{Name: scores, Op: fsnotify.Write})
			}
		}()
	}
	wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) != 1 {
		t.Errorf("pending = %v, want only %s", w.pending, scores)
	}
}

func BenchmarkHandleEvent(b *testing.B) {
	scores := filepath.Join(b.TempDir(), "scores.csv")
	w, err := NewWatcher([]string{scores}, time.Hour)
	if err != nil {
		b.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	event := fsnotify.Event{Name: scores, Op: fsnotify.Write}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.handleEvent(event)
	}
}

// Package progress draws terminal progress for record loading and report
// sections.
package progress

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker shows progress through a fixed list of named steps, or a spinner
// when the amount of work is unknown.
type Tracker struct {
	bar   *progressbar.ProgressBar
	out   io.Writer
	label string

	mu      sync.Mutex
	pending []string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWriter redirects the bar and finish messages, stderr by default.
func WithWriter(w io.Writer) Option {
	return func(t *Tracker) {
		t.out = w
	}
}

// NewSpinner creates a spinner for work of unknown size, such as loading
// record files.
func NewSpinner(label string, opts ...Option) *Tracker {
	t := newTracker(label, opts)
	t.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return t
}

// NewTracker creates a bar over the named steps. The description lists the
// steps still running.
func NewTracker(label string, steps []string, opts ...Option) *Tracker {
	t := newTracker(label, opts)
	t.pending = slices.Clone(steps)
	t.bar = progressbar.NewOptions(len(steps),
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(t.describe()),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return t
}

func newTracker(label string, opts []Option) *Tracker {
	t := &Tracker{out: os.Stderr, label: label}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Done marks a step finished. Unknown or repeated steps still advance the
// bar. Safe for concurrent use.
func (t *Tracker) Done(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := slices.Index(t.pending, step); i >= 0 {
		t.pending = slices.Delete(t.pending, i, i+1)
	}
	t.bar.Describe(t.describe())
	t.bar.Add(1)
}

// Remaining returns the steps not yet marked done.
func (t *Tracker) Remaining() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.pending)
}

func (t *Tracker) describe() string {
	if len(t.pending) == 0 {
		return t.label
	}
	return fmt.Sprintf("%s (%s)", t.label, strings.Join(t.pending, ", "))
}

// FinishSuccess clears the bar completely.
func (t *Tracker) FinishSuccess() {
	t.finish()
}

// FinishSkipped clears the bar and prints why the work was skipped.
func (t *Tracker) FinishSkipped(reason string) {
	t.finish()
	fmt.Fprintf(t.out, "  %s skipped (%s)\n", t.label, reason)
}

// FinishError clears the bar and prints the error.
func (t *Tracker) FinishError(err error) {
	t.finish()
	fmt.Fprintf(t.out, "  %s error: %v\n", t.label, err)
}

func (t *Tracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bar.Finish()
	t.bar.Clear()
}

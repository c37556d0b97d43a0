// Package progress provides context-carried progress tracking for
// concurrent file and pass processing.
package progress

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
)

// ProgressFunc receives the current count, total count, and the item
// (file path or submission id) just completed.
type ProgressFunc func(current, total int, item string)

// Tracker accumulates progress and fans it out to a callback. It is safe
// for concurrent use from pool workers.
type Tracker struct {
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a Tracker that invokes callback on every Tick.
// callback may be nil, in which case ticks are counted but not reported.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// NewBarTracker creates a Tracker backed by a terminal progress bar,
// following the same schollz/progressbar/v3 theme used by the rest of
// the CLI's output.
func NewBarTracker(label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
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
	t := &Tracker{}
	t.total.Store(int64(total))
	t.callback = func(current, total int, item string) {
		bar.Set(current)
	}
	return t
}

// NewSpinner creates a Tracker backed by a spinner for operations with
// an unknown total count.
func NewSpinner(label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	t := &Tracker{}
	t.callback = func(current, total int, item string) {
		bar.Add(1)
	}
	return t
}

// Add increases the known total by n. Called once file discovery has
// determined how many items will be processed.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// SetTotal fixes the total count directly.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int64(n))
}

// Tick records one completed item and fires the callback, if any.
func (t *Tracker) Tick(item string) {
	current := t.current.Add(1)
	if t.callback != nil {
		t.callback(int(current), int(t.total.Load()), item)
	}
}

// Current returns the number of completed items.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the known total, which may grow via Add.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

// FinishError prints an error message to stderr, used by callers that
// render a bar and need to report a terminal failure.
func (t *Tracker) FinishError(label string, err error) {
	fmt.Fprintf(os.Stderr, "  %s error: %v\n", label, err)
}

type trackerKey struct{}

// WithTracker attaches a Tracker to ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext retrieves the Tracker attached by WithTracker, or
// nil if none is present.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

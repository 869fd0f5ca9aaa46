// Package resilience guards outbound calls: a sliding-window admission gate
// and an invoker that waits out local throttling and retries upstream
// overload.
package resilience

import (
	"sync"
	"time"
)

// Gate admits or denies a call without blocking.
type Gate interface {
	TryAcquire() bool
}

// WindowOpts configures the sliding-window gate.
type WindowOpts struct {
	// Max is the number of admissions allowed in any trailing Duration.
	Max int
	// Duration is the window length.
	Duration time.Duration
}

// DefaultWindowOpts allows 30 calls per minute.
var DefaultWindowOpts = WindowOpts{
	Max:      30,
	Duration: time.Minute,
}

// Window is a sliding-window rate limiter over admission timestamps.
// At most Max admissions are recorded inside any trailing Duration.
type Window struct {
	mu     sync.Mutex
	opts   WindowOpts
	stamps []time.Time // ascending
	now    func() time.Time
}

// NewWindow creates a sliding-window gate.
func NewWindow(opts WindowOpts) *Window {
	if opts.Max <= 0 {
		opts.Max = DefaultWindowOpts.Max
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultWindowOpts.Duration
	}
	return &Window{
		opts:   opts,
		stamps: make([]time.Time, 0, opts.Max),
		now:    time.Now,
	}
}

// TryAcquire prunes expired timestamps and admits the call if fewer than Max
// remain. Check and append happen under one lock.
func (w *Window) TryAcquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.prune(now)
	if len(w.stamps) >= w.opts.Max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Count returns the admissions recorded in the current window.
func (w *Window) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.stamps)
}

// prune drops timestamps at least Duration old. Must hold mu.
func (w *Window) prune(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.opts.Duration {
		cut++
	}
	if cut > 0 {
		n := copy(w.stamps, w.stamps[cut:])
		w.stamps = w.stamps[:n]
	}
}

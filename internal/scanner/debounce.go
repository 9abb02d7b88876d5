// Package scanner drives an operator scan terminal: it coalesces raw scanner
// input, classifies the settled scan against the API and runs the workflow the
// classification suggests.
package scanner

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiescence window applied to scanner input
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid input. The handler receives the last value pushed
// once no further input has arrived for the window.
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	window  time.Duration
	pending string
	seq     uint64
	handler func(string)
	stopped bool
}

// NewDebouncer creates a debouncer calling handler with settled values
func NewDebouncer(window time.Duration, handler func(string)) *Debouncer {
	return &Debouncer{
		window:  window,
		handler: handler,
	}
}

// Push records value and restarts the quiescence window
func (d *Debouncer) Push(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = value

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })
}

// fire ignores timers superseded by a later Push
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || d.timer == nil || seq != d.seq {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.timer = nil
	d.mu.Unlock()

	d.handler(value)
}

// Flush delivers the pending value now instead of waiting for the window.
// It reports whether anything was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return false
	}
	d.timer.Stop()
	d.timer = nil
	value := d.pending
	d.mu.Unlock()

	d.handler(value)
	return true
}

// Cancel drops any pending value
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop cancels pending input and ignores everything pushed afterwards
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

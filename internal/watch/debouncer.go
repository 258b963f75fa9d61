package watch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debouncer coalesces rapid filesystem events into a single callback
// invocation that receives the union of all operations seen.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func(ops fsnotify.Op)
	pending  fsnotify.Op
	stopped  bool
}

// NewDebouncer creates a debouncer that waits for interval of quiet before
// firing callback.
func NewDebouncer(interval time.Duration, callback func(ops fsnotify.Op)) *Debouncer {
	return &Debouncer{
		interval: interval,
		callback: callback,
	}
}

// Trigger records op and restarts the quiet period.
func (d *Debouncer) Trigger(op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending |= op

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("debouncer callback panicked", slog.Any("error", r))
		}
	}()

	d.mu.Lock()
	ops := d.pending
	d.pending = 0
	stopped := d.stopped
	d.mu.Unlock()

	if stopped || ops == 0 {
		return
	}

	d.callback(ops)
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = 0

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

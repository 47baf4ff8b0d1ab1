package watch

import (
	"sync"
	"time"

	"github.com/benjaminschreck/go-stache/pkg/stache"
)

// Debouncer runs a render callback once file events have been quiet for an
// interval. Callbacks never overlap: a burst that settles while a render
// is in flight queues exactly one more render, with the latest path.
type Debouncer struct {
	interval time.Duration
	render   func(path string)

	mu      sync.Mutex
	timer   *time.Timer
	path    string
	running bool
	rerun   bool
	stopped bool
}

// NewDebouncer returns a Debouncer calling render after interval of quiet.
func NewDebouncer(interval time.Duration, render func(path string)) *Debouncer {
	return &Debouncer{interval: interval, render: render}
}

// Trigger records an event for path and restarts the quiet period.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.path = path
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.settle)
		return
	}
	d.timer.Reset(d.interval)
}

// settle runs when the quiet period ends.
func (d *Debouncer) settle() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.running {
		d.rerun = true
		d.mu.Unlock()
		return
	}
	d.running = true

	for {
		path := d.path
		d.mu.Unlock()

		d.call(path)

		d.mu.Lock()
		if !d.rerun || d.stopped {
			break
		}
		d.rerun = false
	}
	d.running = false
	d.mu.Unlock()
}

func (d *Debouncer) call(path string) {
	defer func() {
		if r := recover(); r != nil {
			stache.GetLogger().WithField("path", path).WithField("panic", r).Error("watch render panicked")
		}
	}()
	d.render(path)
}

// Stop cancels a pending render. Triggers after Stop are ignored; a
// render already in flight finishes.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

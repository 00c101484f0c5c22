package syncengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"Tempo/internal/domain"
	"Tempo/internal/localstore"
)

// DefaultDebounce is the coalescing window of the automatic sync trigger.
const DefaultDebounce = 1500 * time.Millisecond

// Debouncer coalesces change notifications per collection and fires one sync
// per burst once the collection has been quiet for the window.
type Debouncer struct {
	window time.Duration
	fire   func(localstore.Collection)

	mu      sync.Mutex
	timers  map[localstore.Collection]*time.Timer
	stopped bool
}

// NewDebouncer calls fire(c) window after the last Notify(c).
func NewDebouncer(window time.Duration, fire func(localstore.Collection)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, fire: fire, timers: map[localstore.Collection]*time.Timer{}}
}

// Notify (re)starts the window for c.
func (d *Debouncer) Notify(c localstore.Collection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[c]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.window, func() { d.expire(c, t) })
	d.timers[c] = t
}

// expire runs when t fires. A timer that was replaced while its callback
// was starting must not drop its successor.
func (d *Debouncer) expire(c localstore.Collection, t *time.Timer) {
	d.mu.Lock()
	if d.timers[c] == t {
		delete(d.timers, c)
	}
	stopped := d.stopped
	d.mu.Unlock()
	if !stopped {
		d.fire(c)
	}
}

// Flush fires every pending trigger now, in the calling goroutine, in
// collection sync order.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := make(map[localstore.Collection]bool, len(d.timers))
	for c, t := range d.timers {
		if t.Stop() {
			pending[c] = true
		}
		delete(d.timers, c)
	}
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return
	}
	for _, c := range localstore.Collections {
		if pending[c] {
			d.fire(c)
		}
	}
}

// Stop cancels pending triggers. Later notifications are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for c, t := range d.timers {
		t.Stop()
		delete(d.timers, c)
	}
}

// AutoSync returns a fire function for NewDebouncer that syncs c with e.
// Syncs attempted before hydration completes are dropped quietly.
func AutoSync(ctx context.Context, e *Engine, log *slog.Logger) func(localstore.Collection) {
	return func(c localstore.Collection) {
		_, err := e.SyncCollection(ctx, c)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotReady):
			log.Debug("auto sync skipped, not ready", slog.String("collection", string(c)))
		default:
			log.Warn("auto sync failed", slog.String("collection", string(c)), slog.String("error", err.Error()))
		}
	}
}

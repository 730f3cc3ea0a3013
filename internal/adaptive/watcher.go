package adaptive

import (
	"sync"
	"time"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// Watcher tracks the time-of-day bucket of a clock in a given zone. The
// owner polls it with Check on Interval.
type Watcher struct {
	now      func() time.Time
	loc      *time.Location
	interval time.Duration

	mu      sync.Mutex
	current layer.TimeOfDay
}

// NewWatcher creates a watcher and evaluates the clock once. A nil now uses
// time.Now, a nil loc uses time.Local and a non-positive interval uses
// DefaultPollInterval.
func NewWatcher(now func() time.Time, loc *time.Location, interval time.Duration) *Watcher {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w := &Watcher{now: now, loc: loc, interval: interval}
	w.current = TimeOfDayAt(now().In(loc))
	return w
}

// Interval between polls.
func (w *Watcher) Interval() time.Duration { return w.interval }

// Location the clock is read in.
func (w *Watcher) Location() *time.Location { return w.loc }

// Now is the current time in the watcher's zone.
func (w *Watcher) Now() time.Time { return w.now().In(w.loc) }

// Current is the bucket seen at the last check.
func (w *Watcher) Current() layer.TimeOfDay {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Check re-reads the clock and reports the bucket and whether it changed
// since the previous check.
func (w *Watcher) Check() (layer.TimeOfDay, bool) {
	tod := TimeOfDayAt(w.Now())
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := tod != w.current
	w.current = tod
	return tod, changed
}

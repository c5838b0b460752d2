package deliverability

import (
	"sync"
	"time"
)

// WindowRetention is how long a send stays visible in the history window.
// It must cover at least 24 hours so the daily-cap check sees a full day.
const WindowRetention = 24 * time.Hour

// SendHistoryWindow is the process-wide sliding record of real send
// attempts, bucketed by hour. The dispatch loop records into it after every
// successful attempt; the gate only ever reads it. Safe for concurrent use.
type SendHistoryWindow struct {
	mu      sync.RWMutex
	buckets map[time.Time]int // keyed by hour-truncated instant

	// now is swappable for tests.
	now func() time.Time
}

// NewSendHistoryWindow returns an empty window.
func NewSendHistoryWindow() *SendHistoryWindow {
	return &SendHistoryWindow{
		buckets: make(map[time.Time]int),
		now:     time.Now,
	}
}

// Record adds one send to the current hour bucket and prunes buckets that
// have aged out of the retention window.
func (w *SendHistoryWindow) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.buckets[now.Truncate(time.Hour)]++
	w.pruneLocked(now)
}

// HourCount returns the count recorded in t's hour bucket.
func (w *SendHistoryWindow) HourCount(t time.Time) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.buckets[t.Truncate(time.Hour)]
}

// WindowTotal returns the total count across all retained buckets.
func (w *SendHistoryWindow) WindowTotal() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	total := 0
	cutoff := w.now().Add(-WindowRetention)
	for hour, n := range w.buckets {
		if !hour.Before(cutoff.Truncate(time.Hour)) {
			total += n
		}
	}
	return total
}

// Reset drops all recorded history.
func (w *SendHistoryWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buckets = make(map[time.Time]int)
}

func (w *SendHistoryWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-WindowRetention).Truncate(time.Hour)
	for hour := range w.buckets {
		if hour.Before(cutoff) {
			delete(w.buckets, hour)
		}
	}
}

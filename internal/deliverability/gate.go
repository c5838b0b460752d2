package deliverability

import (
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

const (
	// DefaultHourlyLimit caps real sends in any single hour bucket.
	DefaultHourlyLimit = 100

	// DefaultDailyLimit caps real sends across the whole 24-hour window.
	DefaultDailyLimit = 500

	// DefaultMinSpacing is the smallest gap allowed between "now" and a
	// candidate whose scheduled time is still in the future.
	DefaultMinSpacing = 30 * time.Second

	// DefaultQuietFromHour / DefaultQuietUntilHour bound the late-night
	// hours in which no real send fires, regardless of what the plan says.
	DefaultQuietFromHour  = 22
	DefaultQuietUntilHour = 7
)

// RejectReason explains why the gate said no. It is diagnostic only; every
// reason means the same thing to the dispatcher: reschedule and retry.
type RejectReason string

const (
	ReasonNone       RejectReason = ""
	ReasonQuietHours RejectReason = "quiet_hours"
	ReasonHourlyCap  RejectReason = "hourly_cap"
	ReasonDailyCap   RejectReason = "daily_cap"
	ReasonMinSpacing RejectReason = "min_spacing"
)

// HistoryView is the read-only slice of SendHistoryWindow the gate needs.
type HistoryView interface {
	// HourCount returns the number of sends recorded in t's hour bucket.
	HourCount(t time.Time) int
	// WindowTotal returns the number of sends recorded across the whole
	// retained window.
	WindowTotal() int
}

// Gate is the pure admission predicate. It holds only configuration; all
// mutable state lives in the history window owned by the caller, so the same
// Gate value is safe for concurrent use.
type Gate struct {
	HourlyLimit    int
	DailyLimit     int
	MinSpacing     time.Duration
	QuietFromHour  int
	QuietUntilHour int

	// now is swappable for tests.
	now func() time.Time
}

// NewGate returns a Gate with the standard reputation-protecting limits.
func NewGate() *Gate {
	return &Gate{
		HourlyLimit:    DefaultHourlyLimit,
		DailyLimit:     DefaultDailyLimit,
		MinSpacing:     DefaultMinSpacing,
		QuietFromHour:  DefaultQuietFromHour,
		QuietUntilHour: DefaultQuietUntilHour,
		now:            time.Now,
	}
}

// IsSafe reports whether the candidate may fire right now. Checks run in a
// fixed order and short-circuit on the first failure: quiet hours, hourly
// cap, daily cap, minimum spacing. The gate never mutates the window and
// never errors; false means "not yet".
func (g *Gate) IsSafe(candidate domain.ScheduledSend, window HistoryView) bool {
	ok, _ := g.Check(candidate, window)
	return ok
}

// Check is IsSafe with the failing check's reason, for dispatch logging.
func (g *Gate) Check(candidate domain.ScheduledSend, window HistoryView) (bool, RejectReason) {
	now := g.now()

	if g.inQuietHours(now.Hour()) {
		return false, ReasonQuietHours
	}
	if window.HourCount(now) >= g.HourlyLimit {
		return false, ReasonHourlyCap
	}
	if window.WindowTotal() >= g.DailyLimit {
		return false, ReasonDailyCap
	}
	if wait := candidate.ScheduledAt.Sub(now); wait > 0 && wait < g.MinSpacing {
		return false, ReasonMinSpacing
	}
	return true, ReasonNone
}

// inQuietHours handles both same-day and midnight-wrapping quiet windows.
func (g *Gate) inQuietHours(hour int) bool {
	from, until := g.QuietFromHour, g.QuietUntilHour
	if from == until {
		return false
	}
	if from < until {
		return hour >= from && hour < until
	}
	return hour >= from || hour < until
}

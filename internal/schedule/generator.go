// Package schedule turns segmented lead pools into a multi-day,
// one-message-at-a-time send plan. Each segment is paced independently
// against its own campaign-day caps and the shared active-hour window, then
// all segment streams are merged into a single chronological plan.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
)

const (
	// DefaultQuietStartHour / DefaultQuietEndHour bound the overnight window
	// in which a campaign start is snapped forward.
	DefaultQuietStartHour = 22
	DefaultQuietEndHour   = 7

	// DefaultSnapHour is where a quiet-hour start lands: 08:00, one hour
	// before the active window opens, so the first day gets a full quota.
	DefaultSnapHour = 8

	// DefaultActiveStartHour / DefaultActiveEndHour define the 9-hour window
	// the daily cap is spread across.
	DefaultActiveStartHour = 9
	DefaultActiveEndHour   = 18

	// DefaultCutoffHour is the hard evening stop: a running clock at or past
	// it rolls the segment to the next day.
	DefaultCutoffHour = 19
)

// Generator produces SendSchedules. The zero value is not usable; construct
// with New so the hour windows are populated.
type Generator struct {
	QuietStartHour  int
	QuietEndHour    int
	SnapHour        int
	ActiveStartHour int
	ActiveEndHour   int
	CutoffHour      int

	// newID is swappable for tests that want stable send IDs.
	newID func() string
}

// New returns a Generator with the standard outreach hours.
func New() *Generator {
	return &Generator{
		QuietStartHour:  DefaultQuietStartHour,
		QuietEndHour:    DefaultQuietEndHour,
		SnapHour:        DefaultSnapHour,
		ActiveStartHour: DefaultActiveStartHour,
		ActiveEndHour:   DefaultActiveEndHour,
		CutoffHour:      DefaultCutoffHour,
		newID:           func() string { return uuid.New().String() },
	}
}

// Generate builds the full plan for the given segment lead lists, starting
// at startTime. The returned schedule is sorted ascending by scheduled time.
// Generation is pure and deterministic; invariant violations abort the whole
// call rather than producing a partially-correct plan.
func (g *Generator) Generate(segments map[domain.SegmentName][]string, startTime time.Time) (*domain.SendSchedule, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	start := g.snapStart(startTime)

	var sends []domain.ScheduledSend
	counts := make(map[domain.SegmentName]int, len(segments))
	totalLeads := 0

	for _, name := range segmentOrder(segments) {
		leadIDs := segments[name]
		counts[name] = len(leadIDs)
		totalLeads += len(leadIDs)
		sends = append(sends, g.generateSegment(name, leadIDs, start)...)
	}

	// Canonical plan order: one globally time-ordered stream. The stable sort
	// preserves each segment's internal FIFO order on equal instants.
	sort.SliceStable(sends, func(i, j int) bool {
		return sends[i].ScheduledAt.Before(sends[j].ScheduledAt)
	})

	completion := startTime
	if len(sends) > 0 {
		completion = sends[len(sends)-1].ScheduledAt
	}

	return &domain.SendSchedule{
		TotalLeads:          totalLeads,
		TotalSends:          len(sends),
		SegmentCounts:       counts,
		EstimatedCompletion: completion,
		Sends:               sends,
	}, nil
}

// generateSegment paces one segment's FIFO lead queue through its own
// campaign-day calendar, independent of every other segment.
func (g *Generator) generateSegment(name domain.SegmentName, leadIDs []string, start time.Time) []domain.ScheduledSend {
	if len(leadIDs) == 0 {
		return nil
	}

	sends := make([]domain.ScheduledSend, 0, len(leadIDs))
	clock := start
	state := DayState{}

	for i, leadID := range leadIDs {
		if state.Phase == PhaseRolloverPending {
			clock = g.nextActiveDay(clock)
			state = Rollover(state)
		}

		interval := g.pacingInterval(state.Cap())

		sends = append(sends, domain.ScheduledSend{
			ID:              g.newID(),
			SegmentName:     name,
			LeadIDs:         []string{leadID},
			ScheduledAt:     clock,
			IntervalMinutes: interval.Minutes(),
			DayIndex:        state.Index,
			Status:          domain.SendPending,
		})

		state.Emitted++
		clock = clock.Add(interval)

		leadsRemaining := i+1 < len(leadIDs)
		state = Transition(state, clock.Hour(), g.CutoffHour, leadsRemaining)
	}

	return sends
}

// pacingInterval spreads a daily cap uniformly across the active window:
// 60 / (cap / activeHours) minutes between sends. Computed in integer
// duration math so the common caps pace without float drift.
func (g *Generator) pacingInterval(dailyCap int) time.Duration {
	activeWindow := time.Duration(g.ActiveEndHour-g.ActiveStartHour) * time.Hour
	return activeWindow / time.Duration(dailyCap)
}

// snapStart moves any start before SnapHour forward to SnapHour: same day
// when that instant is still ahead of the start, otherwise the next calendar
// day. A start after the evening cutoff but before quiet hours jumps to the
// next day's active-window start. Together the two branches keep every send
// inside [SnapHour, CutoffHour).
func (g *Generator) snapStart(start time.Time) time.Time {
	h := start.Hour()
	if h >= g.CutoffHour && h < g.QuietStartHour {
		return g.nextActiveDay(start)
	}
	if h >= g.SnapHour && h < g.CutoffHour {
		return start
	}
	snapped := time.Date(start.Year(), start.Month(), start.Day(), g.SnapHour, 0, 0, 0, start.Location())
	if !snapped.After(start) {
		snapped = snapped.AddDate(0, 0, 1)
	}
	return snapped
}

// nextActiveDay jumps the running clock to the next calendar day at the
// active-window start.
func (g *Generator) nextActiveDay(clock time.Time) time.Time {
	next := clock.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), g.ActiveStartHour, 0, 0, 0, clock.Location())
}

func (g *Generator) validate() error {
	for i, cap := range DayCaps {
		if cap <= 0 {
			return fmt.Errorf("day %d: %w", i+1, ErrInvalidDailyCap)
		}
	}
	if StandardDailyCap <= 0 {
		return ErrInvalidDailyCap
	}
	if g.ActiveEndHour <= g.ActiveStartHour {
		return ErrEmptyActiveWindow
	}
	if g.QuietStartHour < 0 || g.QuietStartHour > 23 || g.QuietEndHour < 0 || g.QuietEndHour > 23 {
		return ErrInvalidQuietWindow
	}
	return nil
}

// segmentOrder returns map keys in a deterministic order: known segments by
// descending priority first, anything else alphabetically after.
func segmentOrder(segments map[domain.SegmentName][]string) []domain.SegmentName {
	known := make(map[domain.SegmentName]bool, len(domain.AllSegments))
	order := make([]domain.SegmentName, 0, len(segments))
	for _, name := range domain.AllSegments {
		known[name] = true
		if _, ok := segments[name]; ok {
			order = append(order, name)
		}
	}
	var extra []domain.SegmentName
	for name := range segments {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(order, extra...)
}

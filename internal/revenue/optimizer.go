// Package revenue holds the post-pass that front-loads high-value segments
// in a generated plan, plus the pure revenue projections the reporting
// surface reads. It is an explicit final step over a finished schedule;
// after it runs, the plan is no longer time-sorted and must not be fed back
// into time-based insertion.
package revenue

import (
	"sort"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Optimizer re-orders plans by segment value. Stateless; the zero value is
// ready to use.
type Optimizer struct{}

// New returns an Optimizer.
func New() *Optimizer {
	return &Optimizer{}
}

// Optimize returns a new send list ordered by descending segment priority,
// preserving each segment's internal chronological order. The schedule's own
// stored order is never mutated.
func (o *Optimizer) Optimize(schedule *domain.SendSchedule) []domain.ScheduledSend {
	out := make([]domain.ScheduledSend, len(schedule.Sends))
	copy(out, schedule.Sends)

	// Stable sort: within a segment the generator's chronological order
	// survives, and equal-priority segments keep their relative timing.
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].SegmentName.Priority(), out[j].SegmentName.Priority()
		if pi != pj {
			return pi > pj
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})

	return out
}

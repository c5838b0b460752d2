package schedule

// DayCaps is the pacing ramp for the first campaign days, indexed by the
// per-segment campaign-day index. Days past the ramp use StandardDailyCap.
// These are pacing targets for a human-looking cadence, distinct from the
// hard deliverability caps enforced at dispatch time.
var DayCaps = []int{300, 400, 500}

// StandardDailyCap applies from day 4 onward.
const StandardDailyCap = 500

// CapForDay returns the daily pacing cap for a campaign-day index.
func CapForDay(index int) int {
	if index >= 0 && index < len(DayCaps) {
		return DayCaps[index]
	}
	return StandardDailyCap
}

// DayPhase is the state of a segment's campaign-day machine.
type DayPhase int

const (
	// PhaseWithinDay means the segment is still emitting into the current day.
	PhaseWithinDay DayPhase = iota
	// PhaseRolloverPending means the next emission must move to the next
	// calendar day at the active-window start before it can fire.
	PhaseRolloverPending
)

// DayState tracks one segment's position in its campaign calendar. Each
// segment carries its own independent state; day indices never interact
// across segments.
type DayState struct {
	Index   int // campaign-day index, 0-based
	Emitted int // sends emitted into the current day
	Phase   DayPhase
}

// Cap returns the pacing cap for the state's current day.
func (s DayState) Cap() int {
	return CapForDay(s.Index)
}

// Transition computes the phase after an emission. Pure function: the
// generator owns the clock, this owns the decision. A rollover is pending
// when the running clock has crossed the evening cutoff, or when the day's
// quota is exhausted while leads remain — leftover clock time is never
// packed past the quota.
func Transition(s DayState, clockHour, cutoffHour int, leadsRemaining bool) DayState {
	if clockHour >= cutoffHour {
		s.Phase = PhaseRolloverPending
		return s
	}
	if s.Emitted >= s.Cap() && leadsRemaining {
		s.Phase = PhaseRolloverPending
		return s
	}
	s.Phase = PhaseWithinDay
	return s
}

// Rollover advances to the next campaign day with a fresh quota.
func Rollover(s DayState) DayState {
	return DayState{Index: s.Index + 1}
}

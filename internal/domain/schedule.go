package domain

import "time"

// SendStatus enumerates the lifecycle states of a scheduled send.
type SendStatus string

const (
	SendPending   SendStatus = "pending"
	SendSending   SendStatus = "sending"
	SendCompleted SendStatus = "completed"
	SendFailed    SendStatus = "failed"
)

// ScheduledSend is the atomic unit of a send plan. LeadIDs always holds
// exactly one lead: sends are never batched for delivery, the slice shape
// exists only for compatibility with batch-oriented consumers.
type ScheduledSend struct {
	ID              string      `json:"id"`
	SegmentName     SegmentName `json:"segment_name"`
	LeadIDs         []string    `json:"lead_ids"`
	ScheduledAt     time.Time   `json:"scheduled_at"`
	IntervalMinutes float64     `json:"interval_minutes"` // spacing to the next send in this stream
	DayIndex        int         `json:"day_index"`        // campaign-day index within the segment
	Status          SendStatus  `json:"status"`
	SentCount       int         `json:"sent_count"`
	FailedCount     int         `json:"failed_count"`
}

// LeadID returns the single lead this send targets.
func (s *ScheduledSend) LeadID() string {
	if len(s.LeadIDs) == 0 {
		return ""
	}
	return s.LeadIDs[0]
}

// IsTerminal reports whether the send reached a final state. Terminal sends
// must not be mutated further.
func (s *ScheduledSend) IsTerminal() bool {
	return s.Status == SendCompleted || s.Status == SendFailed
}

// CanTransition reports whether moving to the given status is a legal
// lifecycle step: pending -> sending -> completed/failed.
func (s *ScheduledSend) CanTransition(to SendStatus) bool {
	switch s.Status {
	case SendPending:
		return to == SendSending
	case SendSending:
		return to == SendCompleted || to == SendFailed
	}
	return false
}

// SendSchedule is a complete multi-day send plan. Sends are ordered
// non-decreasing in ScheduledAt as produced by the generator; the revenue
// optimizer deliberately breaks that ordering in its own returned slice.
type SendSchedule struct {
	TotalLeads          int                 `json:"total_leads"`
	TotalSends          int                 `json:"total_sends"`
	SegmentCounts       map[SegmentName]int `json:"segment_counts"`
	EstimatedCompletion time.Time           `json:"estimated_completion"`
	Sends               []ScheduledSend     `json:"sends"`
}

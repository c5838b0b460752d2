package deliverability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/outreach-engine/internal/domain"
)

// fixedGate pins the gate's clock to a known instant.
func fixedGate(now time.Time) *Gate {
	g := NewGate()
	g.now = func() time.Time { return now }
	return g
}

// stubHistory implements HistoryView with canned counts.
type stubHistory struct {
	hour  int
	total int
}

func (s stubHistory) HourCount(time.Time) int { return s.hour }
func (s stubHistory) WindowTotal() int        { return s.total }

func afternoon() time.Time {
	return time.Date(2026, time.September, 7, 14, 0, 0, 0, time.UTC)
}

func candidateAt(t time.Time) domain.ScheduledSend {
	return domain.ScheduledSend{
		ID:          "cand-1",
		SegmentName: domain.SegmentPro,
		LeadIDs:     []string{"lead-1"},
		ScheduledAt: t,
		Status:      domain.SendPending,
	}
}

func TestGate_Check(t *testing.T) {
	now := afternoon()

	tests := []struct {
		name       string
		now        time.Time
		history    stubHistory
		candidate  domain.ScheduledSend
		wantSafe   bool
		wantReason RejectReason
	}{
		{
			name:       "clear afternoon passes",
			now:        now,
			candidate:  candidateAt(now.Add(-time.Minute)),
			wantSafe:   true,
			wantReason: ReasonNone,
		},
		{
			name:       "quiet hours reject even with empty window",
			now:        time.Date(2026, time.September, 7, 23, 30, 0, 0, time.UTC),
			candidate:  candidateAt(now),
			wantSafe:   false,
			wantReason: ReasonQuietHours,
		},
		{
			name:       "early morning is still quiet",
			now:        time.Date(2026, time.September, 7, 3, 0, 0, 0, time.UTC),
			candidate:  candidateAt(now),
			wantSafe:   false,
			wantReason: ReasonQuietHours,
		},
		{
			name:       "hour bucket at limit rejects regardless of other fields",
			now:        now,
			history:    stubHistory{hour: DefaultHourlyLimit},
			candidate:  candidateAt(now.Add(-time.Hour)),
			wantSafe:   false,
			wantReason: ReasonHourlyCap,
		},
		{
			name:       "daily total at limit rejects",
			now:        now,
			history:    stubHistory{hour: 10, total: DefaultDailyLimit},
			candidate:  candidateAt(now),
			wantSafe:   false,
			wantReason: ReasonDailyCap,
		},
		{
			name:       "future candidate inside min spacing rejects",
			now:        now,
			candidate:  candidateAt(now.Add(5 * time.Second)),
			wantSafe:   false,
			wantReason: ReasonMinSpacing,
		},
		{
			name:       "future candidate beyond min spacing passes",
			now:        now,
			candidate:  candidateAt(now.Add(10 * time.Minute)),
			wantSafe:   true,
			wantReason: ReasonNone,
		},
		{
			name:       "overdue candidate is not spacing-limited",
			now:        now,
			candidate:  candidateAt(now.Add(-3 * time.Hour)),
			wantSafe:   true,
			wantReason: ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := fixedGate(tt.now)
			safe, reason := g.Check(tt.candidate, tt.history)
			assert.Equal(t, tt.wantSafe, safe)
			assert.Equal(t, tt.wantReason, reason)
			assert.Equal(t, tt.wantSafe, g.IsSafe(tt.candidate, tt.history))
		})
	}
}

func TestGate_ShortCircuitOrder(t *testing.T) {
	// At 23:00 with a saturated window, quiet hours must win: it is the
	// first check in the fixed order.
	g := fixedGate(time.Date(2026, time.September, 7, 23, 0, 0, 0, time.UTC))
	history := stubHistory{hour: DefaultHourlyLimit, total: DefaultDailyLimit}

	_, reason := g.Check(candidateAt(afternoon()), history)
	assert.Equal(t, ReasonQuietHours, reason)
}

func TestGate_CheckIsPure(t *testing.T) {
	g := fixedGate(afternoon())
	window := NewSendHistoryWindow()
	window.now = g.now

	for i := 0; i < 50; i++ {
		safe, reason := g.Check(candidateAt(afternoon()), window)
		assert.True(t, safe)
		assert.Equal(t, ReasonNone, reason)
	}
	// Re-evaluation on retry never consumed quota.
	assert.Equal(t, 0, window.WindowTotal())
}

func TestGate_QuietWindowShapes(t *testing.T) {
	g := NewGate()

	tests := []struct {
		name        string
		from, until int
		hour        int
		want        bool
	}{
		{"wrapping window late night", 22, 7, 23, true},
		{"wrapping window early morning", 22, 7, 6, true},
		{"wrapping window daytime", 22, 7, 12, false},
		{"same-day window inside", 1, 5, 3, true},
		{"same-day window outside", 1, 5, 9, false},
		{"degenerate window never quiet", 4, 4, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.QuietFromHour, g.QuietUntilHour = tt.from, tt.until
			assert.Equal(t, tt.want, g.inQuietHours(tt.hour))
		})
	}
}

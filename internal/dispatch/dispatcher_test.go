package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/deliverability"
	"github.com/ignite/outreach-engine/internal/domain"
)

type fakeAdmitter struct {
	// denials maps entry ID to how many times it is rejected before
	// admission.
	denials map[string]int
	calls   int
}

func (f *fakeAdmitter) Admit(_ context.Context, c domain.ScheduledSend) (bool, deliverability.RejectReason, error) {
	f.calls++
	if f.denials[c.ID] > 0 {
		f.denials[c.ID]--
		return false, deliverability.ReasonHourlyCap, nil
	}
	return true, deliverability.ReasonNone, nil
}

type fakeGenerator struct {
	prefix string
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, leadID string, _ domain.BrandContext) (domain.Message, error) {
	f.calls++
	if f.err != nil {
		return domain.Message{}, f.err
	}
	return domain.Message{
		Subject: f.prefix + " subject for " + leadID,
		Body:    f.prefix + " body",
	}, nil
}

type fakeSender struct {
	sent    []string
	failIDs map[string]bool
}

func (f *fakeSender) Send(_ context.Context, leadID string, _ domain.Message) error {
	if f.failIDs[leadID] {
		return errors.New("smtp 554 rejected")
	}
	f.sent = append(f.sent, leadID)
	return nil
}

func planEntries(n int) []domain.ScheduledSend {
	base := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	out := make([]domain.ScheduledSend, n)
	for i := range out {
		out[i] = domain.ScheduledSend{
			ID:          fmt.Sprintf("send-%d", i),
			SegmentName: domain.SegmentPro,
			LeadIDs:     []string{fmt.Sprintf("lead-%d", i)},
			ScheduledAt: base.Add(time.Duration(i) * time.Minute),
			Status:      domain.SendPending,
		}
	}
	return out
}

// testDispatcher neutralizes real time: the clock sits far past every
// scheduled instant and sleeps return immediately.
func testDispatcher(adm Admitter, gen, fb ContentGenerator, s Sender) *Dispatcher {
	d := New(adm, gen, fb, s, domain.BrandContext{CompanyName: "IGNITE"})
	d.limiter.SetLimit(1e6)
	d.now = func() time.Time {
		return time.Date(2026, time.September, 8, 12, 0, 0, 0, time.UTC)
	}
	d.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return d
}

func TestRun_SendsWholePlanInOrder(t *testing.T) {
	adm := &fakeAdmitter{}
	gen := &fakeGenerator{prefix: "ai"}
	sender := &fakeSender{}
	d := testDispatcher(adm, gen, &fakeGenerator{prefix: "fallback"}, sender)

	sum, err := d.Run(context.Background(), planEntries(5))
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Sent)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, 0, sum.Fallbacks)
	assert.Equal(t, []string{"lead-0", "lead-1", "lead-2", "lead-3", "lead-4"}, sender.sent)
}

func TestRun_RejectionRetriesInsteadOfDropping(t *testing.T) {
	adm := &fakeAdmitter{denials: map[string]int{"send-1": 3}}
	sender := &fakeSender{}
	d := testDispatcher(adm, &fakeGenerator{prefix: "ai"}, &fakeGenerator{prefix: "fb"}, sender)

	sum, err := d.Run(context.Background(), planEntries(3))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Sent)
	assert.Equal(t, 3, sum.Deferred)
	// The deferred entry still goes out, after the others.
	assert.Equal(t, []string{"lead-0", "lead-2", "lead-1"}, sender.sent)
}

func TestRun_ContentFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("bedrock throttled")}
	fb := &fakeGenerator{prefix: "fallback"}
	sender := &fakeSender{}
	d := testDispatcher(&fakeAdmitter{}, gen, fb, sender)

	sum, err := d.Run(context.Background(), planEntries(2))
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Sent)
	assert.Equal(t, 2, sum.Fallbacks)
	assert.Equal(t, 2, fb.calls)
	assert.Len(t, sender.sent, 2)
}

func TestRun_TransportFailureIsTerminal(t *testing.T) {
	sender := &fakeSender{failIDs: map[string]bool{"lead-1": true}}
	d := testDispatcher(&fakeAdmitter{}, &fakeGenerator{prefix: "ai"}, &fakeGenerator{prefix: "fb"}, sender)

	sum, err := d.Run(context.Background(), planEntries(3))
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 3, sum.Attempted)
	// A transport failure is terminal bookkeeping, not a retry.
	assert.Equal(t, []string{"lead-0", "lead-2"}, sender.sent)
}

func TestRun_ContextCancellationStopsCleanly(t *testing.T) {
	// Every entry is rejected forever; cancellation is the only exit.
	adm := &fakeAdmitter{denials: map[string]int{"send-0": 1 << 30}}
	d := testDispatcher(adm, &fakeGenerator{prefix: "ai"}, &fakeGenerator{prefix: "fb"}, &fakeSender{})

	ctx, cancel := context.WithCancel(context.Background())
	d.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := d.Run(ctx, planEntries(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyPlan(t *testing.T) {
	d := testDispatcher(&fakeAdmitter{}, &fakeGenerator{prefix: "ai"}, &fakeGenerator{prefix: "fb"}, &fakeSender{})

	sum, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestStart_RefusesDoubleStart(t *testing.T) {
	d := testDispatcher(&fakeAdmitter{}, &fakeGenerator{prefix: "ai"}, &fakeGenerator{prefix: "fb"}, &fakeSender{})

	done := make(chan Summary, 1)
	require.NoError(t, d.Start(context.Background(), planEntries(1), done))
	assert.ErrorIs(t, d.Start(context.Background(), nil, nil), ErrAlreadyRunning)

	sum := <-done
	assert.Equal(t, 1, sum.Sent)
	d.Stop()
}

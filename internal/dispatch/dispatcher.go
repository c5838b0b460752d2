// Package dispatch consumes a generated send plan and turns plan entries
// into real send attempts: wait until due, ask the admission layer for a
// slot, render content, hand to the transport, and record the outcome. The
// plan itself is advisory; this loop is where real-time deliverability
// control happens.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/outreach-engine/internal/deliverability"
	"github.com/ignite/outreach-engine/internal/domain"
)

// Admitter is the real-time admission check consulted before every attempt.
// Both deliverability.AdmissionCoordinator and deliverability.RedisAdmitter
// satisfy it.
type Admitter interface {
	Admit(ctx context.Context, candidate domain.ScheduledSend) (bool, deliverability.RejectReason, error)
}

// ContentGenerator renders the outreach message for one lead. A failure is
// routine: the dispatcher substitutes the fallback generator and the send
// still goes out.
type ContentGenerator interface {
	Generate(ctx context.Context, leadID string, brand domain.BrandContext) (domain.Message, error)
}

// Sender is the outbound transport.
type Sender interface {
	Send(ctx context.Context, leadID string, msg domain.Message) error
}

const (
	// DefaultRetryDelay is how long a gate-rejected entry waits before it
	// is offered again. Rejection means "not yet", never "drop".
	DefaultRetryDelay = 5 * time.Minute

	// DefaultSendRate is the burst-smoothing ceiling on attempts per
	// second, independent of the deliverability caps.
	DefaultSendRate rate.Limit = 2
)

// Summary is the terminal bookkeeping for one plan run.
type Summary struct {
	Attempted int
	Sent      int
	Failed    int
	Deferred  int // gate rejections, each later retried
	Fallbacks int // sends that went out on fallback content
}

// Dispatcher drives one plan at a time. Start/Stop manage the background
// run; a Dispatcher must not be reused after Stop.
type Dispatcher struct {
	admitter Admitter
	content  ContentGenerator
	fallback ContentGenerator
	sender   Sender
	brand    domain.BrandContext

	limiter    *rate.Limiter
	retryDelay time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a Dispatcher. The fallback generator must not be nil; it is the
// guarantee that a content-generation outage never stalls a campaign.
func New(admitter Admitter, content, fallback ContentGenerator, sender Sender, brand domain.BrandContext) *Dispatcher {
	return &Dispatcher{
		admitter:   admitter,
		content:    content,
		fallback:   fallback,
		sender:     sender,
		brand:      brand,
		limiter:    rate.NewLimiter(DefaultSendRate, 1),
		retryDelay: DefaultRetryDelay,
		stopCh:     make(chan struct{}),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// SetPacing overrides the attempt rate limit and the deferred-entry retry
// delay. Call before Run; non-positive values keep the current setting.
func (d *Dispatcher) SetPacing(sendRate rate.Limit, retryDelay time.Duration) {
	if sendRate > 0 {
		d.limiter.SetLimit(sendRate)
	}
	if retryDelay > 0 {
		d.retryDelay = retryDelay
	}
}

// Run works through the plan in order and blocks until every entry reaches
// a terminal state or the context ends. Entries the gate rejects are pushed
// back with a retry delay rather than dropped, so a run only finishes when
// the whole plan has genuinely been attempted.
func (d *Dispatcher) Run(ctx context.Context, plan []domain.ScheduledSend) (Summary, error) {
	var sum Summary

	queue := make([]domain.ScheduledSend, len(plan))
	copy(queue, plan)

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if err := d.waitUntilDue(ctx, entry); err != nil {
			return sum, err
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return sum, err
		}

		ok, reason, err := d.admitter.Admit(ctx, entry)
		if err != nil {
			return sum, err
		}
		if !ok {
			sum.Deferred++
			log.Printf("[Dispatcher] Send %s deferred (%s), retrying in %v", entry.ID, reason, d.retryDelay)
			entry.ScheduledAt = d.now().Add(d.retryDelay)
			queue = append(queue, entry)
			continue
		}

		sum.Attempted++
		usedFallback, err := d.attempt(ctx, &entry)
		if usedFallback {
			sum.Fallbacks++
		}
		if err != nil {
			sum.Failed++
			log.Printf("[Dispatcher] Send %s failed: %v", entry.ID, err)
			continue
		}
		sum.Sent++
	}

	return sum, nil
}

// attempt renders and sends one admitted entry, walking its status through
// the sending lifecycle.
func (d *Dispatcher) attempt(ctx context.Context, entry *domain.ScheduledSend) (usedFallback bool, err error) {
	if !entry.CanTransition(domain.SendSending) {
		return false, nil
	}
	entry.Status = domain.SendSending

	leadID := entry.LeadID()

	msg, genErr := d.content.Generate(ctx, leadID, d.brand)
	if genErr != nil || msg.IsEmpty() {
		if genErr != nil {
			log.Printf("[Dispatcher] Content generation for %s failed, using fallback: %v", entry.ID, genErr)
		}
		usedFallback = true
		msg, err = d.fallback.Generate(ctx, leadID, d.brand)
		if err != nil {
			entry.Status = domain.SendFailed
			entry.FailedCount++
			return usedFallback, err
		}
	}

	if err := d.sender.Send(ctx, leadID, msg); err != nil {
		entry.Status = domain.SendFailed
		entry.FailedCount++
		return usedFallback, err
	}

	entry.Status = domain.SendCompleted
	entry.SentCount++
	return usedFallback, nil
}

// waitUntilDue blocks until the entry's scheduled instant.
func (d *Dispatcher) waitUntilDue(ctx context.Context, entry domain.ScheduledSend) error {
	wait := entry.ScheduledAt.Sub(d.now())
	if wait <= 0 {
		return nil
	}
	return d.sleep(ctx, wait)
}

// Start runs the plan in the background. Stop or context cancellation ends
// the run; the summary is delivered to done if non-nil.
func (d *Dispatcher) Start(ctx context.Context, plan []domain.ScheduledSend, done chan<- Summary) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.mu.Unlock()

	log.Printf("[Dispatcher] Starting: %d plan entries", len(plan))

	runCtx, cancel := context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		go func() {
			select {
			case <-d.stopCh:
				cancel()
			case <-runCtx.Done():
			}
		}()

		sum, err := d.Run(runCtx, plan)
		if err != nil && runCtx.Err() == nil {
			log.Printf("[Dispatcher] Run aborted: %v", err)
		}
		if done != nil {
			done <- sum
		}
	}()

	return nil
}

// Stop cancels the background run and waits for it to wind down.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	log.Println("[Dispatcher] Stopping...")
	close(d.stopCh)
	d.wg.Wait()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

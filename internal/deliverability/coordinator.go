package deliverability

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// AdmissionCoordinator serializes check-and-record through a single
// goroutine that owns the history window. With multiple dispatcher
// goroutines, a bare gate check followed by a separate Record leaves a gap
// in which another dispatcher can slip a send past the cap; routing both
// through one owner closes it.
type AdmissionCoordinator struct {
	gate     *Gate
	window   *SendHistoryWindow
	requests chan admitRequest
	done     chan struct{}
}

type admitRequest struct {
	candidate domain.ScheduledSend
	reply     chan admitResult
}

// AdmitResult carries the coordinator's decision.
type admitResult struct {
	Allowed bool
	Reason  RejectReason
}

// NewAdmissionCoordinator starts the owning goroutine. Close releases it.
func NewAdmissionCoordinator(gate *Gate, window *SendHistoryWindow) *AdmissionCoordinator {
	c := &AdmissionCoordinator{
		gate:     gate,
		window:   window,
		requests: make(chan admitRequest),
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

// Admit atomically checks the candidate and, if admitted, records it into
// the window. The admitted send counts against the caps immediately, before
// any other dispatcher's check can run.
func (c *AdmissionCoordinator) Admit(ctx context.Context, candidate domain.ScheduledSend) (bool, RejectReason, error) {
	req := admitRequest{candidate: candidate, reply: make(chan admitResult, 1)}

	select {
	case c.requests <- req:
	case <-c.done:
		return false, ReasonNone, ErrCoordinatorClosed
	case <-ctx.Done():
		return false, ReasonNone, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.Allowed, res.Reason, nil
	case <-ctx.Done():
		return false, ReasonNone, ctx.Err()
	}
}

// Close stops the coordinator. In-flight Admit calls fail with
// ErrCoordinatorClosed.
func (c *AdmissionCoordinator) Close() {
	close(c.done)
}

func (c *AdmissionCoordinator) run() {
	for {
		select {
		case req := <-c.requests:
			ok, reason := c.gate.Check(req.candidate, c.window)
			if ok {
				c.window.Record()
			}
			req.reply <- admitResult{Allowed: ok, Reason: reason}
		case <-c.done:
			return
		}
	}
}

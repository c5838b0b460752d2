package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/ignite/outreach-engine/internal/archive"
	"github.com/ignite/outreach-engine/internal/deliverability"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/revenue"
	"github.com/ignite/outreach-engine/internal/schedule"
	"github.com/ignite/outreach-engine/internal/segmentation"
)

// Handlers holds the core components the API fronts. All of them are
// safe for concurrent use; the only handler-owned mutable state is the
// last-plan cache behind its own mutex.
type Handlers struct {
	partitioner *segmentation.Partitioner
	generator   *schedule.Generator
	optimizer   *revenue.Optimizer
	gate        *deliverability.Gate
	window      *deliverability.SendHistoryWindow
	profiles    map[domain.SegmentName]segmentation.Profile
	log         logger.ComponentLogger

	mu          sync.RWMutex
	lastPlan    *domain.SendSchedule
	lastSummary *archive.ScheduleSummary
}

// NewHandlers wires the handler set. A nil profiles map falls back to the
// default plan pricing.
func NewHandlers(
	partitioner *segmentation.Partitioner,
	generator *schedule.Generator,
	optimizer *revenue.Optimizer,
	gate *deliverability.Gate,
	window *deliverability.SendHistoryWindow,
	profiles map[domain.SegmentName]segmentation.Profile,
) *Handlers {
	return &Handlers{
		partitioner: partitioner,
		generator:   generator,
		optimizer:   optimizer,
		gate:        gate,
		window:      window,
		profiles:    profiles,
		log:         logger.Component("api"),
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status":  "healthy",
		"service": "outreach-engine",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

type generateRequest struct {
	Leads     []domain.Lead `json:"leads"`
	StartTime time.Time     `json:"start_time"`
}

type generateResponse struct {
	Schedule *domain.SendSchedule    `json:"schedule"`
	Summary  archive.ScheduleSummary `json:"summary"`
}

// GenerateSchedule runs the full pipeline: rank, partition, generate, and
// project a summary. The plan is cached for the summary endpoint but never
// persisted; plans are advisory artifacts.
func (h *Handlers) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Leads) == 0 {
		httputil.BadRequest(w, "leads are required")
		return
	}
	if req.StartTime.IsZero() {
		req.StartTime = time.Now()
	}

	partitions := h.partitioner.Partition(req.Leads)
	segments := segmentation.SegmentsFromPartition(partitions, h.profiles)

	plan, err := h.generator.Generate(partitions, req.StartTime)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	summary := archive.Summarize(plan, segments, time.Now().UTC())

	h.mu.Lock()
	h.lastPlan = plan
	h.lastSummary = &summary
	h.mu.Unlock()

	h.log.Info("schedule generated",
		"leads", plan.TotalLeads,
		"sends", plan.TotalSends,
		"completion", plan.EstimatedCompletion.Format(time.RFC3339))

	httputil.Created(w, generateResponse{Schedule: plan, Summary: summary})
}

type optimizeRequest struct {
	Schedule *domain.SendSchedule `json:"schedule"`
}

type optimizeResponse struct {
	Sends []domain.ScheduledSend `json:"sends"`
}

// OptimizeSchedule runs the revenue post-pass over a plan. With no plan in
// the body, the last generated plan is optimized.
func (h *Handlers) OptimizeSchedule(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}

	plan := req.Schedule
	if plan == nil {
		h.mu.RLock()
		plan = h.lastPlan
		h.mu.RUnlock()
	}
	if plan == nil {
		httputil.BadRequest(w, "no schedule provided and none generated yet")
		return
	}

	httputil.OK(w, optimizeResponse{Sends: h.optimizer.Optimize(plan)})
}

// ScheduleSummary returns the reporting projection of the last plan.
func (h *Handlers) ScheduleSummary(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	summary := h.lastSummary
	h.mu.RUnlock()

	if summary == nil {
		httputil.NotFound(w, "no schedule generated yet")
		return
	}
	httputil.OK(w, summary)
}

type estimateRequest struct {
	Segments []domain.Segment `json:"segments"`
}

type estimateResponse struct {
	Segments []revenue.SegmentEstimate `json:"segments"`
	Total    float64                   `json:"total"`
}

// EstimateRevenue projects expected revenue for a set of segments.
func (h *Handlers) EstimateRevenue(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	perSegment, total := revenue.Estimate(req.Segments)
	httputil.OK(w, estimateResponse{Segments: perSegment, Total: total})
}

type admissionRequest struct {
	Candidate domain.ScheduledSend `json:"candidate"`
}

type admissionResponse struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// CheckAdmission is the read-only gate check: would this candidate be
// admitted right now? It never records, so polling it is harmless; actual
// dispatch goes through the admission coordinator.
func (h *Handlers) CheckAdmission(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	safe, reason := h.gate.Check(req.Candidate, h.window)
	httputil.OK(w, admissionResponse{Safe: safe, Reason: string(reason)})
}

// ResetAdmissionWindow clears the in-process send history, for operators
// re-baselining after a limit change. Redis-backed counters expire on their
// own and are not touched.
func (h *Handlers) ResetAdmissionWindow(w http.ResponseWriter, r *http.Request) {
	h.window.Reset()
	h.log.Warn("admission window reset")
	httputil.NoContent(w)
}

// AdmissionUsage reports current window counts against the limits.
func (h *Handlers) AdmissionUsage(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	httputil.OK(w, map[string]int{
		"hourly_current": h.window.HourCount(now),
		"hourly_limit":   h.gate.HourlyLimit,
		"daily_current":  h.window.WindowTotal(),
		"daily_limit":    h.gate.DailyLimit,
	})
}

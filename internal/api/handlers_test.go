package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/deliverability"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/ranking"
	"github.com/ignite/outreach-engine/internal/revenue"
	"github.com/ignite/outreach-engine/internal/schedule"
	"github.com/ignite/outreach-engine/internal/segmentation"
)

func setupTestHandlers() *Handlers {
	return NewHandlers(
		segmentation.New(ranking.New(), rand.New(rand.NewSource(1))),
		schedule.New(),
		revenue.New(),
		deliverability.NewGate(),
		deliverability.NewSendHistoryWindow(),
		nil,
	)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func hotLead(id string) domain.Lead {
	return domain.Lead{ID: id, Attributes: map[string]any{
		ranking.AttrEngagementCount: 20,
		ranking.AttrReplyCount:      5,
		ranking.AttrCompanySize:     5000,
		ranking.AttrRecencyDays:     1,
	}}
}

func TestHealthCheck(t *testing.T) {
	router := SetupRoutes(setupTestHandlers())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "outreach-engine")
}

func TestGenerateSchedule(t *testing.T) {
	router := SetupRoutes(setupTestHandlers())

	leads := make([]domain.Lead, 10)
	for i := range leads {
		leads[i] = hotLead(fmt.Sprintf("lead-%d", i))
	}

	rec := postJSON(t, router, "/api/schedule/generate", generateRequest{
		Leads:     leads,
		StartTime: time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp generateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 10, resp.Schedule.TotalSends)
	assert.Equal(t, 10, resp.Summary.TotalLeads)
	assert.Equal(t, 10, resp.Summary.SegmentCounts[domain.SegmentEnterprise])
	assert.Greater(t, resp.Summary.EstimatedRevenue, 0.0)
}

func TestGenerateSchedule_RequiresLeads(t *testing.T) {
	router := SetupRoutes(setupTestHandlers())

	rec := postJSON(t, router, "/api/schedule/generate", generateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizeSchedule_UsesLastPlan(t *testing.T) {
	h := setupTestHandlers()
	router := SetupRoutes(h)

	// Nothing generated yet.
	req := httptest.NewRequest(http.MethodPost, "/api/schedule/optimize", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/api/schedule/generate", generateRequest{
		Leads:     []domain.Lead{hotLead("a"), {ID: "b"}, {ID: "c"}},
		StartTime: time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/schedule/optimize", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp optimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sends, 3)
	// The hot lead's Enterprise send is front-loaded.
	assert.Equal(t, domain.SegmentEnterprise, resp.Sends[0].SegmentName)
}

func TestScheduleSummary_NotFoundBeforeGenerate(t *testing.T) {
	router := SetupRoutes(setupTestHandlers())

	req := httptest.NewRequest(http.MethodGet, "/api/schedule/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEstimateRevenue(t *testing.T) {
	router := SetupRoutes(setupTestHandlers())

	rec := postJSON(t, router, "/api/revenue/estimate", estimateRequest{
		Segments: []domain.Segment{
			{Name: domain.SegmentPro, LeadIDs: []string{"a", "b"}, ConversionRate: 0.08, UnitPrice: 299},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp estimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 2*0.08*299, resp.Total, 1e-9)
}

func TestCheckAdmission_DoesNotRecord(t *testing.T) {
	h := setupTestHandlers()
	router := SetupRoutes(h)

	cand := domain.ScheduledSend{
		ID:          "send-1",
		SegmentName: domain.SegmentPro,
		LeadIDs:     []string{"lead-1"},
		ScheduledAt: time.Now().Add(-time.Minute),
		Status:      domain.SendPending,
	}

	for i := 0; i < 3; i++ {
		rec := postJSON(t, router, "/api/admission/check", admissionRequest{Candidate: cand})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Polling the check consumed no quota.
	assert.Equal(t, 0, h.window.WindowTotal())
}

func TestResetAdmissionWindow(t *testing.T) {
	h := setupTestHandlers()
	router := SetupRoutes(h)

	h.window.Record()
	h.window.Record()
	require.Equal(t, 2, h.window.WindowTotal())

	req := httptest.NewRequest(http.MethodPost, "/api/admission/reset", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 0, h.window.WindowTotal())
}

func TestAdmissionUsage(t *testing.T) {
	h := setupTestHandlers()
	router := SetupRoutes(h)

	h.window.Record()
	h.window.Record()

	req := httptest.NewRequest(http.MethodGet, "/api/admission/usage", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var usage map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	assert.Equal(t, 2, usage["daily_current"])
	assert.Equal(t, h.gate.DailyLimit, usage["daily_limit"])
}

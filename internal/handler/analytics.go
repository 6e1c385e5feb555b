package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/linkvault/internal/auth"
	"github.com/sakif/linkvault/internal/service"
)

// AnalyticsHandler covers the dashboard aggregates and event ingestion.
//
//   - HandleOverview  → GET  /api/analytics/overview?timeRange=7d
//   - HandlePlatforms → GET  /api/analytics/platforms?timeRange=7d
//   - HandleActivity  → GET  /api/analytics/activity?limit=20
//   - HandleTrack     → POST /api/analytics/track
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	logger           *slog.Logger
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, logger: logger}
}

// HandleOverview returns totals and trends for the caller's dashboard.
// timeRange accepts 24h, 7d, 30d, 90d; anything else falls back to 7d.
func (h *AnalyticsHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	overview, err := h.analyticsService.Overview(r.Context(), identity.ID, r.URL.Query().Get("timeRange"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// HandlePlatforms returns per-platform click counts, most-clicked first.
func (h *AnalyticsHandler) HandlePlatforms(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	stats, err := h.analyticsService.Platforms(r.Context(), identity.ID, r.URL.Query().Get("timeRange"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleActivity returns the caller's most recent events, newest first.
func (h *AnalyticsHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.analyticsService.Activity(r.Context(), identity.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleTrack records a client-submitted event against the caller's stream.
func (h *AnalyticsHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var in service.TrackInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.analyticsService.Track(r.Context(), identity.ID, in, visitorFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Event recorded"})
}

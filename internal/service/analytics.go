package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

// trendSentinel is the reported percentage change whenever the prior window
// had no events, rendered as a flat +100 rather than a division by zero or
// an infinity.
const trendSentinel = 100.0

// AnalyticsService computes dashboard aggregates over the raw event stream.
type AnalyticsService struct {
	analytics repository.AnalyticsRepository
	logger    *slog.Logger
	now       func() time.Time // injectable clock for window tests
}

func NewAnalyticsService(analytics repository.AnalyticsRepository, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		logger:    logger,
		now:       time.Now,
	}
}

// windowDuration maps the timeRange query parameter to a duration. Anything
// unrecognized (including empty) falls back to seven days.
func windowDuration(timeRange string) time.Duration {
	switch timeRange {
	case "24h":
		return 24 * time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	case "90d":
		return 90 * 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// Overview aggregates the caller's events over the selected window and
// computes trends against the equally-sized window immediately before it.
//
// Example with timeRange "7d" and now = day 14:
//
//	prior window:   [day 0, day 7)   ← baseline
//	current window: [day 7, day 14)  ← reported numbers
//
// CTR is clicks per view as a percentage; trends are percentage changes.
func (s *AnalyticsService) Overview(ctx context.Context, userID, timeRange string) (*model.AnalyticsOverview, error) {
	now := s.now().UTC()
	window := windowDuration(timeRange)
	currentFrom := now.Add(-window)
	priorFrom := now.Add(-2 * window)

	cur, err := s.windowStats(ctx, userID, currentFrom, now)
	if err != nil {
		return nil, err
	}
	prior, err := s.windowStats(ctx, userID, priorFrom, currentFrom)
	if err != nil {
		return nil, err
	}

	var overview model.AnalyticsOverview
	overview.Overview.TotalViews = cur.views
	overview.Overview.UniqueVisitors = cur.visitors
	overview.Overview.TotalClicks = cur.clicks
	overview.Overview.ClickThroughRate = ctr(cur.clicks, cur.views)

	overview.Trends.ViewsChange = percentChange(float64(cur.views), float64(prior.views))
	overview.Trends.VisitorsChange = percentChange(float64(cur.visitors), float64(prior.visitors))
	overview.Trends.CTRChange = percentChange(
		ctr(cur.clicks, cur.views),
		ctr(prior.clicks, prior.views),
	)

	return &overview, nil
}

type windowStats struct {
	views    int
	visitors int
	clicks   int
}

func (s *AnalyticsService) windowStats(ctx context.Context, userID string, from, to time.Time) (windowStats, error) {
	var stats windowStats
	var err error

	stats.views, err = s.analytics.CountEvents(ctx, userID, model.EventProfileView, from, to)
	if err != nil {
		return stats, fmt.Errorf("service/analytics: counting views: %w", err)
	}
	stats.visitors, err = s.analytics.CountUniqueVisitors(ctx, userID, from, to)
	if err != nil {
		return stats, fmt.Errorf("service/analytics: counting visitors: %w", err)
	}
	stats.clicks, err = s.analytics.CountEvents(ctx, userID, model.EventPlatformClick, from, to)
	if err != nil {
		return stats, fmt.Errorf("service/analytics: counting clicks: %w", err)
	}
	return stats, nil
}

// Platforms returns the caller's click counts per platform over the window,
// most-clicked first.
func (s *AnalyticsService) Platforms(ctx context.Context, userID, timeRange string) ([]model.PlatformStats, error) {
	now := s.now().UTC()
	from := now.Add(-windowDuration(timeRange))

	stats, err := s.analytics.ClicksByPlatform(ctx, userID, from, now)
	if err != nil {
		return nil, fmt.Errorf("service/analytics: clicks by platform: %w", err)
	}
	return stats, nil
}

// Activity returns the caller's most recent events, newest first.
func (s *AnalyticsService) Activity(ctx context.Context, userID string, limit int) ([]model.AnalyticsEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.analytics.ListRecent(ctx, userID, limit)
}

// TrackInput is the payload for POST /analytics/track.
type TrackInput struct {
	EventType model.EventType   `json:"eventType"`
	Platform  *model.Platform   `json:"platform,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Track records a client-submitted event against the caller's own stream.
// Only declared event types are accepted, and a platform value must name a
// supported platform.
func (s *AnalyticsService) Track(ctx context.Context, userID string, in TrackInput, visitor VisitorInfo) error {
	if !model.ValidEventType(in.EventType) {
		return apperror.ValidationFailed("eventType", "must be one of: profile_view, platform_click, custom")
	}
	if in.Platform != nil && !model.ValidPlatform(*in.Platform) {
		return apperror.ValidationFailed("platform", "is not a supported platform")
	}

	event := &model.AnalyticsEvent{
		UserID:   userID,
		Type:     in.EventType,
		Platform: in.Platform,
		Metadata: in.Metadata,
	}
	if visitor.IP != "" {
		ip := visitor.IP
		event.VisitorIP = &ip
	}
	if visitor.UserAgent != "" {
		ua := visitor.UserAgent
		event.UserAgent = &ua
	}
	if visitor.Referrer != "" {
		ref := visitor.Referrer
		event.Referrer = &ref
	}

	return s.analytics.Insert(ctx, event)
}

// ctr is clicks per view as a percentage, rounded to two decimals.
// Zero views means zero CTR, clicks or not.
func ctr(clicks, views int) float64 {
	if views == 0 {
		return 0
	}
	return round2(float64(clicks) / float64(views) * 100)
}

// percentChange reports how current compares to prior as a percentage.
// An empty prior window always reports the sentinel, even when the current
// window is empty too.
func percentChange(current, prior float64) float64 {
	if prior == 0 {
		return trendSentinel
	}
	return round2((current - prior) / prior * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

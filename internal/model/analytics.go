package model

import "time"

// EventType classifies an analytics event.
type EventType string

const (
	EventProfileView   EventType = "profile_view"
	EventPlatformClick EventType = "platform_click"
	EventCustom        EventType = "custom"
)

// ValidEventType reports whether t is a known event type.
func ValidEventType(t EventType) bool {
	switch t {
	case EventProfileView, EventPlatformClick, EventCustom:
		return true
	}
	return false
}

// AnalyticsEvent is an append-only fact: someone viewed a profile or clicked
// a platform link. Rows are never updated; they disappear only when the
// subject user is deleted (cascade).
//
// Visitor fields are best-effort — the callers are usually anonymous browsers,
// so IP, user agent, and referrer may all be empty.
type AnalyticsEvent struct {
	ID       string    `json:"id"                 db:"id"`
	UserID   string    `json:"-"                  db:"user_id"`
	Type     EventType `json:"eventType"          db:"event_type"`
	Platform *Platform `json:"platform,omitempty" db:"platform"`

	VisitorIP *string `json:"-"                  db:"visitor_ip"`
	UserAgent *string `json:"-"                  db:"user_agent"`
	Referrer  *string `json:"referrer,omitempty" db:"referrer"`

	Metadata map[string]string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AnalyticsOverview is the aggregate returned by GET /api/analytics/overview.
// Trend percentages compare the selected window against the equally-sized
// window immediately before it; when the prior window had no events every
// change is reported as the fixed sentinel +100 rather than dividing by zero.
type AnalyticsOverview struct {
	Overview struct {
		TotalViews       int     `json:"totalViews"`
		UniqueVisitors   int     `json:"uniqueVisitors"`
		TotalClicks      int     `json:"totalClicks"`
		ClickThroughRate float64 `json:"clickThroughRate"`
	} `json:"overview"`
	Trends struct {
		ViewsChange    float64 `json:"viewsChange"`
		VisitorsChange float64 `json:"visitorsChange"`
		CTRChange      float64 `json:"ctrChange"`
	} `json:"trends"`
}

// PlatformStats is one row of GET /api/analytics/platforms.
type PlatformStats struct {
	Platform Platform `json:"platform"`
	Clicks   int      `json:"clicks"`
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsStore)(nil)

// AnalyticsStore appends and aggregates analytics events. Obtain one via
// DB.Analytics(). There is no update or single-row delete: events are
// immutable facts, removed only by the user-deletion cascade.
type AnalyticsStore struct {
	conn *sql.DB
}

// Insert appends one event, generating its ID and timestamp.
func (s *AnalyticsStore) Insert(ctx context.Context, event *model.AnalyticsEvent) error {
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()

	var metadata *string
	if len(event.Metadata) > 0 {
		b, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: encoding event metadata: %w", err)
		}
		str := string(b)
		metadata = &str
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO analytics (id, user_id, event_type, platform,
			visitor_ip, user_agent, referrer, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.Type, event.Platform,
		event.VisitorIP, event.UserAgent, event.Referrer, metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting analytics event: %w", err)
	}

	return nil
}

// CountEvents counts a user's events of one type in [from, to).
func (s *AnalyticsStore) CountEvents(ctx context.Context, userID string, eventType model.EventType, from, to time.Time) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analytics
		 WHERE user_id = ? AND event_type = ? AND created_at >= ? AND created_at < ?`,
		userID, eventType, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting %s events: %w", eventType, err)
	}
	return count, nil
}

// CountUniqueVisitors counts distinct visitor IPs on profile views in
// [from, to). NULL IPs collapse into one bucket, which COUNT(DISTINCT)
// ignores — anonymous rows without an IP simply don't count as visitors.
func (s *AnalyticsStore) CountUniqueVisitors(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT visitor_ip) FROM analytics
		 WHERE user_id = ? AND event_type = ? AND created_at >= ? AND created_at < ?`,
		userID, model.EventProfileView, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unique visitors: %w", err)
	}
	return count, nil
}

// ClicksByPlatform groups a user's platform_click events by platform,
// busiest platform first.
func (s *AnalyticsStore) ClicksByPlatform(ctx context.Context, userID string, from, to time.Time) ([]model.PlatformStats, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT platform, COUNT(*) FROM analytics
		 WHERE user_id = ? AND event_type = ? AND platform IS NOT NULL
			AND created_at >= ? AND created_at < ?
		 GROUP BY platform ORDER BY COUNT(*) DESC`,
		userID, model.EventPlatformClick, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: grouping clicks by platform: %w", err)
	}
	defer rows.Close()

	stats := []model.PlatformStats{}
	for rows.Next() {
		var st model.PlatformStats
		if err := rows.Scan(&st.Platform, &st.Clicks); err != nil {
			return nil, fmt.Errorf("sqlite: scanning platform stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating platform stats: %w", err)
	}
	return stats, nil
}

// ListRecent returns a user's newest events, capped at limit.
func (s *AnalyticsStore) ListRecent(ctx context.Context, userID string, limit int) ([]model.AnalyticsEvent, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, event_type, platform, visitor_ip, user_agent,
			referrer, metadata, created_at
		 FROM analytics WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recent events: %w", err)
	}
	defer rows.Close()

	events := []model.AnalyticsEvent{}
	for rows.Next() {
		var e model.AnalyticsEvent
		var metadata *string
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Type, &e.Platform, &e.VisitorIP, &e.UserAgent,
			&e.Referrer, &metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning analytics row: %w", err)
		}
		if metadata != nil {
			_ = json.Unmarshal([]byte(*metadata), &e.Metadata)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating analytics rows: %w", err)
	}
	return events, nil
}

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

// ConnectionService manages a user's platform links and the click-through
// redirect.
type ConnectionService struct {
	connections repository.ConnectionRepository
	analytics   repository.AnalyticsRepository
	logger      *slog.Logger
}

func NewConnectionService(connections repository.ConnectionRepository, analytics repository.AnalyticsRepository, logger *slog.Logger) *ConnectionService {
	return &ConnectionService{connections: connections, analytics: analytics, logger: logger}
}

// List returns all of the caller's connections, active or not.
func (s *ConnectionService) List(ctx context.Context, userID string) ([]model.Connection, error) {
	return s.connections.ListByUser(ctx, userID)
}

// ListPublic returns another user's active connections — the set shown on
// their portfolio page.
func (s *ConnectionService) ListPublic(ctx context.Context, userID string) ([]model.Connection, error) {
	return s.connections.ListActiveByUser(ctx, userID)
}

// CreateInput is the payload for manually adding a connection.
type CreateInput struct {
	Platform model.Platform `json:"platform"`
	Username string         `json:"username"`
	URL      string         `json:"url"`
}

// Create adds a manual connection for the caller. The (user, platform) pair
// is unique; a second connection for the same platform is a conflict.
func (s *ConnectionService) Create(ctx context.Context, userID string, in CreateInput) (*model.Connection, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.URL = strings.TrimSpace(in.URL)

	var details []apperror.FieldError
	if !model.ValidPlatform(in.Platform) {
		details = append(details, apperror.FieldError{Field: "platform",
			Message: "must be one of: github, linkedin, youtube, instagram, leetcode"})
	}
	if in.Username == "" {
		details = append(details, apperror.FieldError{Field: "username", Message: "is required"})
	}
	if !validHTTPURL(in.URL) {
		details = append(details, apperror.FieldError{Field: "url", Message: "must be a valid http(s) URL"})
	}
	if len(details) > 0 {
		return nil, apperror.ValidationErrors(details)
	}

	conn := &model.Connection{
		UserID:   userID,
		Platform: in.Platform,
		Username: in.Username,
		URL:      in.URL,
		IsActive: true,
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("connection created",
		slog.String("userID", userID),
		slog.String("platform", string(in.Platform)),
	)
	return conn, nil
}

// Update applies a partial update to one of the caller's connections.
//
// A connection owned by someone else reports not-found, exactly like a
// connection that doesn't exist. Responding 403 instead would confirm the ID
// is real.
func (s *ConnectionService) Update(ctx context.Context, userID, connID string, patch repository.ConnectionPatch) (*model.Connection, error) {
	if _, err := s.owned(ctx, userID, connID); err != nil {
		return nil, err
	}

	var details []apperror.FieldError
	if patch.Username != nil {
		trimmed := strings.TrimSpace(*patch.Username)
		if trimmed == "" {
			details = append(details, apperror.FieldError{Field: "username", Message: "must not be empty"})
		}
		patch.Username = &trimmed
	}
	if patch.URL != nil && !validHTTPURL(*patch.URL) {
		details = append(details, apperror.FieldError{Field: "url", Message: "must be a valid http(s) URL"})
	}
	if len(details) > 0 {
		return nil, apperror.ValidationErrors(details)
	}

	return s.connections.Update(ctx, connID, patch)
}

// Delete removes one of the caller's connections.
func (s *ConnectionService) Delete(ctx context.Context, userID, connID string) error {
	if _, err := s.owned(ctx, userID, connID); err != nil {
		return err
	}
	if err := s.connections.Delete(ctx, connID); err != nil {
		return err
	}
	s.logger.Info("connection deleted",
		slog.String("userID", userID),
		slog.String("connectionID", connID),
	)
	return nil
}

// TrackClick records a platform_click event and returns the connection's URL
// for the client to follow. Clicks land on anyone's active connections, not
// just the caller's — this is the public portfolio's outbound link.
//
// The analytics write happens in the background; a click must redirect even
// when the event insert fails.
func (s *ConnectionService) TrackClick(ctx context.Context, connID string, visitor VisitorInfo) (string, error) {
	conn, err := s.connections.GetByID(ctx, connID)
	if err != nil {
		return "", err
	}
	if !conn.IsActive {
		return "", apperror.NotFound("Connection")
	}

	platform := conn.Platform
	event := &model.AnalyticsEvent{
		UserID:   conn.UserID,
		Type:     model.EventPlatformClick,
		Platform: &platform,
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

	go func() {
		if err := s.analytics.Insert(context.Background(), event); err != nil {
			s.logger.Warn("recording platform click failed",
				slog.String("connectionID", connID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return conn.URL, nil
}

// owned fetches the connection and verifies the caller owns it.
func (s *ConnectionService) owned(ctx context.Context, userID, connID string) (*model.Connection, error) {
	conn, err := s.connections.GetByID(ctx, connID)
	if err != nil {
		return nil, err
	}
	if conn.UserID != userID {
		return nil, apperror.NotFound("Connection")
	}
	return conn, nil
}

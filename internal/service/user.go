package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

const (
	maxNameLength = 100
	maxBioLength  = 500
)

// UserService owns profile reads and writes, the public portfolio
// projection, and account deletion.
type UserService struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
	analytics   repository.AnalyticsRepository
	logger      *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	connections repository.ConnectionRepository,
	analytics repository.AnalyticsRepository,
	logger *slog.Logger,
) *UserService {
	return &UserService{users: users, connections: connections, analytics: analytics, logger: logger}
}

// VisitorInfo carries the request attributes recorded alongside a profile
// view. All fields are best-effort and may be empty.
type VisitorInfo struct {
	IP        string
	UserAgent string
	Referrer  string
}

// GetProfile returns the caller's own full profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial profile update for the caller.
//
// Only fields present in the patch are touched. Validation runs per field:
// names must stay non-empty when sent, the bio has a length cap, and the
// website must parse as an absolute http(s) URL unless it is being cleared.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch repository.UserProfilePatch) (*model.User, error) {
	var details []apperror.FieldError

	if patch.FirstName != nil {
		trimmed := strings.TrimSpace(*patch.FirstName)
		if trimmed == "" {
			details = append(details, apperror.FieldError{Field: "firstName", Message: "must not be empty"})
		} else if len(trimmed) > maxNameLength {
			details = append(details, apperror.FieldError{Field: "firstName",
				Message: fmt.Sprintf("must be %d characters or fewer", maxNameLength)})
		}
		patch.FirstName = &trimmed
	}
	if patch.LastName != nil {
		trimmed := strings.TrimSpace(*patch.LastName)
		if trimmed == "" {
			details = append(details, apperror.FieldError{Field: "lastName", Message: "must not be empty"})
		} else if len(trimmed) > maxNameLength {
			details = append(details, apperror.FieldError{Field: "lastName",
				Message: fmt.Sprintf("must be %d characters or fewer", maxNameLength)})
		}
		patch.LastName = &trimmed
	}
	if patch.Bio != nil && len(*patch.Bio) > maxBioLength {
		details = append(details, apperror.FieldError{Field: "bio",
			Message: fmt.Sprintf("must be %d characters or fewer", maxBioLength)})
	}
	if patch.Website != nil && *patch.Website != "" && !validHTTPURL(*patch.Website) {
		details = append(details, apperror.FieldError{Field: "website", Message: "must be a valid http(s) URL"})
	}
	if len(details) > 0 {
		return nil, apperror.ValidationErrors(details)
	}

	user, err := s.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	return user, nil
}

// UpdatePrivacy applies a partial update of the privacy flags.
func (s *UserService) UpdatePrivacy(ctx context.Context, userID string, patch repository.UserPrivacyPatch) (*model.User, error) {
	if patch.PublicProfile == nil && patch.ShowEmail == nil && patch.ShowLocation == nil {
		return nil, apperror.ValidationFailed("body", "at least one privacy flag is required")
	}

	user, err := s.users.UpdatePrivacy(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("privacy settings updated", slog.String("userID", userID))
	return user, nil
}

// Portfolio is the public portfolio payload: the privacy-filtered profile
// plus the owner's active connections.
type Portfolio struct {
	User        model.PublicProfileView `json:"user"`
	Connections []model.Connection      `json:"connections"`
}

// GetPortfolio resolves identifier to a user (by ID first, then by email)
// and returns their public portfolio.
//
// A private profile returns forbidden to everyone except the owner, who
// always sees their own portfolio. Each non-owner request records a
// profile_view event in the background; a failed write is logged and
// swallowed because analytics never blocks the page.
func (s *UserService) GetPortfolio(ctx context.Context, identifier, viewerID string, visitor VisitorInfo) (*Portfolio, error) {
	user, err := s.users.GetByID(ctx, identifier)
	if err != nil {
		// Identifiers double as emails so a portfolio link can read
		// /portfolio/ada@example.com instead of a UUID.
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
		if err != nil {
			return nil, apperror.NotFound("User")
		}
	}

	isOwner := viewerID != "" && viewerID == user.ID
	if !user.PublicProfile && !isOwner {
		return nil, apperror.Forbidden("This profile is private")
	}

	conns, err := s.connections.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing connections for portfolio: %w", err)
	}

	if !isOwner {
		s.recordProfileView(user.ID, visitor)
	}

	return &Portfolio{User: user.PublicView(viewerID), Connections: conns}, nil
}

// recordProfileView appends the view event without holding up the response.
// The goroutine gets its own context: the request context is canceled as
// soon as the handler returns, which would abort the write.
func (s *UserService) recordProfileView(userID string, visitor VisitorInfo) {
	event := &model.AnalyticsEvent{
		UserID: userID,
		Type:   model.EventProfileView,
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
			s.logger.Warn("recording profile view failed",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// DeleteAccount permanently removes the user and, via cascade, all their
// connections and analytics events.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in repository/sqlite; tests use
// in-memory fakes. Services never import a driver package.
package repository

import (
	"context"
	"time"

	"github.com/sakif/linkvault/internal/model"
)

// UserProfilePatch is a partial profile update. A nil field means "not sent,
// leave unchanged"; a pointer to the zero value means "explicitly clear".
// The store applies only non-nil fields — callers never overwrite data the
// client didn't send.
type UserProfilePatch struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Website   *string
	Location  *string
	Title     *string
	Company   *string
}

// UserPrivacyPatch is a partial update of the three privacy flags.
type UserPrivacyPatch struct {
	PublicProfile *bool
	ShowEmail     *bool
	ShowLocation  *bool
}

// ConnectionPatch is a partial update of a manual connection.
type ConnectionPatch struct {
	Username *string
	URL      *string
	IsActive *bool
}

type UserRepository interface {
	// Create inserts a new user. Returns apperror.ErrConflict when the email
	// is already registered.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, patch UserProfilePatch) (*model.User, error)
	UpdatePrivacy(ctx context.Context, id string, patch UserPrivacyPatch) (*model.User, error)
	// Delete removes the user; connections and analytics rows cascade.
	Delete(ctx context.Context, id string) error
	// UpsertGitHubUser runs the OAuth linking transaction keyed on email:
	// insert when the email is unseen, otherwise update — filling only empty
	// profile fields and always refreshing github_id and avatar. Safe under
	// concurrent duplicate callbacks: a unique-constraint race is retried as
	// an update, never surfaced. On return, seed holds the canonical row.
	UpsertGitHubUser(ctx context.Context, seed *model.User) error
}

type ConnectionRepository interface {
	// Create inserts a connection. Returns apperror.ErrConflict when one
	// already exists for (user, platform).
	Create(ctx context.Context, conn *model.Connection) error
	GetByID(ctx context.Context, id string) (*model.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]model.Connection, error)
	ListActiveByUser(ctx context.Context, userID string) ([]model.Connection, error)
	Update(ctx context.Context, id string, patch ConnectionPatch) (*model.Connection, error)
	Delete(ctx context.Context, id string) error
	// Upsert creates or refreshes the (user, platform) connection — the OAuth
	// re-link path. Username, URL, tokens, and metadata are always replaced.
	Upsert(ctx context.Context, conn *model.Connection) error
}

type AnalyticsRepository interface {
	// Insert appends one event. Events are immutable once written.
	Insert(ctx context.Context, event *model.AnalyticsEvent) error
	CountEvents(ctx context.Context, userID string, eventType model.EventType, from, to time.Time) (int, error)
	CountUniqueVisitors(ctx context.Context, userID string, from, to time.Time) (int, error)
	ClicksByPlatform(ctx context.Context, userID string, from, to time.Time) ([]model.PlatformStats, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]model.AnalyticsEvent, error)
}

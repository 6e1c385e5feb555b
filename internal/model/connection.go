package model

import "time"

// Platform is the set of external platforms a user can link.
type Platform string

const (
	PlatformGitHub    Platform = "github"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformLeetCode  Platform = "leetcode"
)

// ValidPlatform reports whether p is one of the supported platforms.
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformGitHub, PlatformLinkedIn, PlatformYouTube, PlatformInstagram, PlatformLeetCode:
		return true
	}
	return false
}

// RepoSummary is one recently-updated repository shown on a GitHub connection.
type RepoSummary struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	URL         string  `json:"url"`
	Stars       int     `json:"stars"`
	Language    *string `json:"language,omitempty"`
	UpdatedAt   string  `json:"updatedAt"`
}

// ConnectionMetadata holds platform-specific display counters.
//
// The metadata column is JSON, but we keep it a typed struct rather than an
// open map so the contract stays checkable. Only OAuth-backed platforms fill
// it in; manual connections carry the zero value.
type ConnectionMetadata struct {
	Repos       int           `json:"repos,omitempty"`
	Followers   int           `json:"followers,omitempty"`
	Following   int           `json:"following,omitempty"`
	RecentRepos []RepoSummary `json:"recentRepos,omitempty"`
}

// Connection is one external-platform link owned by exactly one user.
// At most one connection exists per (user, platform) pair — enforced by a
// UNIQUE constraint in the database.
//
// AccessToken/RefreshToken are stored for OAuth-backed platforms only and are
// never serialized into any response (json:"-").
type Connection struct {
	ID       string   `json:"id"       db:"id"`
	UserID   string   `json:"-"        db:"user_id"`
	Platform Platform `json:"platform" db:"platform"`
	Username string   `json:"username" db:"username"`
	URL      string   `json:"url"      db:"url"`
	IsActive bool     `json:"isActive" db:"is_active"`

	Metadata ConnectionMetadata `json:"metadata" db:"metadata"`

	AccessToken  *string `json:"-" db:"access_token"`
	RefreshToken *string `json:"-" db:"refresh_token"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

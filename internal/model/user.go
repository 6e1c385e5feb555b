// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account and its public profile.
//
// Two ways to get an account: email/password registration, or a first GitHub
// OAuth login. Password accounts have PasswordHash set; OAuth accounts have
// GitHubID set. An account can have both if a password user later links GitHub.
//
// WHY POINTERS FOR OPTIONAL FIELDS?
// Columns like bio and website are nullable in the database, and the public
// profile projection must OMIT them entirely (not render "") when unset or
// hidden. A *string round-trips NULL correctly through database/sql and lets
// encoding/json drop the key via omitempty. PasswordHash is a pointer for the
// same reason — and it must never appear in any JSON response, hence json:"-".
type User struct {
	ID           string  `json:"id"    db:"id"`
	Email        string  `json:"email" db:"email"`
	PasswordHash *string `json:"-"     db:"password_hash"`
	GitHubID     *string `json:"-"     db:"github_id"` // GitHub's numeric ID, stored as text

	FirstName string  `json:"firstName"           db:"first_name"`
	LastName  string  `json:"lastName"            db:"last_name"`
	Bio       *string `json:"bio,omitempty"       db:"bio"`
	Website   *string `json:"website,omitempty"   db:"website"`
	Location  *string `json:"location,omitempty"  db:"location"`
	Title     *string `json:"title,omitempty"     db:"title"`
	Company   *string `json:"company,omitempty"   db:"company"`
	AvatarURL *string `json:"avatarUrl,omitempty" db:"avatar_url"`

	// Privacy flags control the public portfolio projection.
	PublicProfile bool `json:"publicProfile" db:"public_profile"`
	ShowEmail     bool `json:"showEmail"     db:"show_email"`
	ShowLocation  bool `json:"showLocation"  db:"show_location"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicProfileView is the privacy-filtered projection returned by the
// portfolio endpoint. Email and Location are pointers so the JSON key is
// absent (not an empty string) when the owner's privacy flags hide them.
type PublicProfileView struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Bio       *string   `json:"bio,omitempty"`
	Website   *string   `json:"website,omitempty"`
	Title     *string   `json:"title,omitempty"`
	Company   *string   `json:"company,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicView applies the user's privacy flags and returns the projection.
// The owner viewing their own profile sees everything regardless of flags.
func (u *User) PublicView(viewerID string) PublicProfileView {
	isOwner := viewerID != "" && viewerID == u.ID

	view := PublicProfileView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Website:   u.Website,
		Title:     u.Title,
		Company:   u.Company,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}

	if u.ShowEmail || isOwner {
		email := u.Email
		view.Email = &email
	}
	if u.ShowLocation || isOwner {
		view.Location = u.Location
	}

	return view
}

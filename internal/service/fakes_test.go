package service

// In-memory fakes for the repository interfaces. Services are tested against
// these instead of a real database — the sqlite stores have their own tests.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

// discardLogger swallows all log output so test runs stay quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// fakeUsers
// ---------------------------------------------------------------------------

type fakeUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*model.User
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*model.User)}
}

func (f *fakeUsers) genID() string {
	f.nextID++
	return fmt.Sprintf("user-%d", f.nextID)
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return apperror.Conflict("Email already registered")
		}
	}
	user.ID = f.genID()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperror.NotFound("User")
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("User")
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id string, patch repository.UserProfilePatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	setOptional := func(dst **string, src *string) {
		if src == nil {
			return
		}
		if *src == "" {
			*dst = nil
		} else {
			v := *src
			*dst = &v
		}
	}
	setOptional(&u.Bio, patch.Bio)
	setOptional(&u.Website, patch.Website)
	setOptional(&u.Location, patch.Location)
	setOptional(&u.Title, patch.Title)
	setOptional(&u.Company, patch.Company)
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePrivacy(_ context.Context, id string, patch repository.UserPrivacyPatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	if patch.PublicProfile != nil {
		u.PublicProfile = *patch.PublicProfile
	}
	if patch.ShowEmail != nil {
		u.ShowEmail = *patch.ShowEmail
	}
	if patch.ShowLocation != nil {
		u.ShowLocation = *patch.ShowLocation
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("User")
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) UpsertGitHubUser(_ context.Context, seed *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == seed.Email {
			// Fill-only-empty, matching the sqlite store's merge
			if u.FirstName == "" && seed.FirstName != "" {
				u.FirstName = seed.FirstName
				u.LastName = seed.LastName
			}
			if u.Bio == nil {
				u.Bio = seed.Bio
			}
			if u.Location == nil {
				u.Location = seed.Location
			}
			if u.Website == nil {
				u.Website = seed.Website
			}
			u.GitHubID = seed.GitHubID
			u.AvatarURL = seed.AvatarURL
			*seed = *u
			return nil
		}
	}
	seed.ID = f.genID()
	seed.CreatedAt = time.Now().UTC()
	seed.UpdatedAt = seed.CreatedAt
	seed.PublicProfile = true
	seed.ShowLocation = true
	cp := *seed
	f.byID[seed.ID] = &cp
	return nil
}

// ---------------------------------------------------------------------------
// fakeConnections
// ---------------------------------------------------------------------------

type fakeConnections struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*model.Connection
}

var _ repository.ConnectionRepository = (*fakeConnections)(nil)

func newFakeConnections() *fakeConnections {
	return &fakeConnections{byID: make(map[string]*model.Connection)}
}

func (f *fakeConnections) genID() string {
	f.nextID++
	return fmt.Sprintf("conn-%d", f.nextID)
}

func (f *fakeConnections) Create(_ context.Context, conn *model.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.UserID == conn.UserID && c.Platform == conn.Platform {
			return apperror.Conflict("Connection for this platform already exists")
		}
	}
	conn.ID = f.genID()
	conn.CreatedAt = time.Now().UTC()
	conn.UpdatedAt = conn.CreatedAt
	cp := *conn
	f.byID[conn.ID] = &cp
	return nil
}

func (f *fakeConnections) GetByID(_ context.Context, id string) (*model.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperror.NotFound("Connection")
}

func (f *fakeConnections) ListByUser(_ context.Context, userID string) ([]model.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Connection{}
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConnections) ListActiveByUser(_ context.Context, userID string) ([]model.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Connection{}
	for _, c := range f.byID {
		if c.UserID == userID && c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConnections) Update(_ context.Context, id string, patch repository.ConnectionPatch) (*model.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("Connection")
	}
	if patch.Username != nil {
		c.Username = *patch.Username
	}
	if patch.URL != nil {
		c.URL = *patch.URL
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnections) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("Connection")
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeConnections) Upsert(_ context.Context, conn *model.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.UserID == conn.UserID && c.Platform == conn.Platform {
			c.Username = conn.Username
			c.URL = conn.URL
			c.Metadata = conn.Metadata
			c.AccessToken = conn.AccessToken
			c.RefreshToken = conn.RefreshToken
			c.IsActive = true
			*conn = *c
			return nil
		}
	}
	conn.ID = f.genID()
	conn.IsActive = true
	conn.CreatedAt = time.Now().UTC()
	conn.UpdatedAt = conn.CreatedAt
	cp := *conn
	f.byID[conn.ID] = &cp
	return nil
}

// ---------------------------------------------------------------------------
// fakeAnalytics
// ---------------------------------------------------------------------------

type fakeAnalytics struct {
	mu     sync.Mutex
	events []model.AnalyticsEvent

	// inserted signals each Insert, letting tests wait for the fire-and-forget
	// writes that run in their own goroutine.
	inserted chan struct{}
}

var _ repository.AnalyticsRepository = (*fakeAnalytics)(nil)

func newFakeAnalytics() *fakeAnalytics {
	return &fakeAnalytics{inserted: make(chan struct{}, 16)}
}

func (f *fakeAnalytics) Insert(_ context.Context, event *model.AnalyticsEvent) error {
	f.mu.Lock()
	event.ID = fmt.Sprintf("event-%d", len(f.events)+1)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	f.events = append(f.events, *event)
	f.mu.Unlock()
	f.inserted <- struct{}{}
	return nil
}

// add preloads an event at a specific time, bypassing Insert's signaling.
func (f *fakeAnalytics) add(event model.AnalyticsEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = fmt.Sprintf("event-%d", len(f.events)+1)
	f.events = append(f.events, event)
}

func (f *fakeAnalytics) all() []model.AnalyticsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AnalyticsEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeAnalytics) CountEvents(_ context.Context, userID string, eventType model.EventType, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.events {
		if e.UserID == userID && e.Type == eventType && inWindow(e.CreatedAt, from, to) {
			count++
		}
	}
	return count, nil
}

func (f *fakeAnalytics) CountUniqueVisitors(_ context.Context, userID string, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ips := map[string]bool{}
	for _, e := range f.events {
		if e.UserID == userID && e.Type == model.EventProfileView &&
			e.VisitorIP != nil && inWindow(e.CreatedAt, from, to) {
			ips[*e.VisitorIP] = true
		}
	}
	return len(ips), nil
}

func (f *fakeAnalytics) ClicksByPlatform(_ context.Context, userID string, from, to time.Time) ([]model.PlatformStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[model.Platform]int{}
	for _, e := range f.events {
		if e.UserID == userID && e.Type == model.EventPlatformClick &&
			e.Platform != nil && inWindow(e.CreatedAt, from, to) {
			counts[*e.Platform]++
		}
	}
	stats := []model.PlatformStats{}
	for p, n := range counts {
		stats = append(stats, model.PlatformStats{Platform: p, Clicks: n})
	}
	return stats, nil
}

func (f *fakeAnalytics) ListRecent(_ context.Context, userID string, limit int) ([]model.AnalyticsEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.AnalyticsEvent{}
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].UserID == userID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

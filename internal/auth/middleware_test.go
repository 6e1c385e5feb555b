package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

// fakeUserRepo returns a fixed set of users by ID. Only GetByID matters to
// the middleware; every other method panics to catch accidental use.
type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("User")
}

func (f *fakeUserRepo) Create(context.Context, *model.User) error { panic("not implemented") }
func (f *fakeUserRepo) GetByEmail(context.Context, string) (*model.User, error) {
	panic("not implemented")
}
func (f *fakeUserRepo) UpdateProfile(context.Context, string, repository.UserProfilePatch) (*model.User, error) {
	panic("not implemented")
}
func (f *fakeUserRepo) UpdatePrivacy(context.Context, string, repository.UserPrivacyPatch) (*model.User, error) {
	panic("not implemented")
}
func (f *fakeUserRepo) Delete(context.Context, string) error { panic("not implemented") }
func (f *fakeUserRepo) UpsertGitHubUser(context.Context, *model.User) error {
	panic("not implemented")
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

// captureHandler records whether it ran and what identity it saw.
type captureHandler struct {
	called   bool
	identity *Identity
}

func (c *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.called = true
	c.identity, _ = IdentityFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func middlewareFixture(t *testing.T) (*TokenService, *fakeUserRepo) {
	t.Helper()
	tokens := newTestTokenService(t)
	users := &fakeUserRepo{users: map[string]*model.User{
		"user-1": {ID: "user-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}}
	return tokens, users
}

// =========================================================================
// REQUIRE AUTH TESTS
// =========================================================================

func TestRequireAuth_ValidToken(t *testing.T) {
	tokens, users := middlewareFixture(t)
	next := &captureHandler{}
	h := RequireAuth(tokens, users)(next)

	token, _ := tokens.Generate("user-1", "ada@example.com")
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !next.called {
		t.Fatal("next handler was not called")
	}
	if next.identity == nil {
		t.Fatal("identity missing from context")
	}
	// Names come from the store lookup, not the token
	if next.identity.FirstName != "Ada" || next.identity.LastName != "Lovelace" {
		t.Errorf("identity names = %q %q, want Ada Lovelace",
			next.identity.FirstName, next.identity.LastName)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	tokens, users := middlewareFixture(t)
	next := &captureHandler{}
	h := RequireAuth(tokens, users)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if next.called {
		t.Error("next handler should not run without a token")
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	tokens, users := middlewareFixture(t)
	next := &captureHandler{}
	h := RequireAuth(tokens, users)(next)

	token, _ := tokens.GenerateWithDuration("user-1", "ada@example.com", -time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	tokens, users := middlewareFixture(t)
	next := &captureHandler{}
	h := RequireAuth(tokens, users)(next)

	// Token is cryptographically valid, but the user is gone from the store.
	token, _ := tokens.Generate("user-deleted", "gone@example.com")
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if next.called {
		t.Error("next handler should not run for a deleted user")
	}
}

// =========================================================================
// OPTIONAL AUTH TESTS
// =========================================================================

func TestOptionalAuth_NoToken(t *testing.T) {
	tokens, _ := middlewareFixture(t)
	next := &captureHandler{}
	h := OptionalAuth(tokens)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/users/portfolio/ada", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if !next.called {
		t.Fatal("OptionalAuth must always call the next handler")
	}
	if next.identity != nil {
		t.Errorf("anonymous request should carry no identity, got %+v", next.identity)
	}
}

func TestOptionalAuth_ValidToken(t *testing.T) {
	tokens, _ := middlewareFixture(t)
	next := &captureHandler{}
	h := OptionalAuth(tokens)(next)

	token, _ := tokens.Generate("user-1", "ada@example.com")
	req := httptest.NewRequest(http.MethodGet, "/api/users/portfolio/ada", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if next.identity == nil {
		t.Fatal("identity missing from context")
	}
	if next.identity.ID != "user-1" {
		t.Errorf("identity.ID = %q, want user-1", next.identity.ID)
	}
}

func TestOptionalAuth_BadToken(t *testing.T) {
	tokens, _ := middlewareFixture(t)
	next := &captureHandler{}
	h := OptionalAuth(tokens)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/users/portfolio/ada", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	// A broken token degrades to anonymous, it does not block the request
	if !next.called {
		t.Fatal("OptionalAuth must call the next handler even with a bad token")
	}
	if next.identity != nil {
		t.Error("bad token should not attach an identity")
	}
}

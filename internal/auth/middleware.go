package auth

import (
	"context"
	"net/http"

	"github.com/sakif/linkvault/internal/repository"
)

// Identity is the authenticated caller attached to the request context.
//
// On the mandatory path all four fields are populated from a fresh store
// lookup. On the optional path only ID and Email are set (straight from the
// token) — public read endpoints don't need names and shouldn't pay a DB hit
// for them.
type Identity struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// contextKey is unexported so no other package can read or shadow the
// identity value in the context.
type contextKey struct{}

var identityKey contextKey

// unauthorizedBody matches the API's standard error envelope. It is the same
// generic message for every failure mode — missing header, garbage token,
// expired token, deleted user — so a caller can't probe which one occurred.
const unauthorizedBody = `{"error":"unauthorized","message":"Invalid or expired token"}`

// RequireAuth enforces authentication on protected routes.
//
// The request walks a short ladder and stops at the first failure:
// no bearer header → 401; token doesn't verify → 401; token verifies but the
// subject user no longer exists (deleted account with a live token) → 401;
// otherwise the full identity — re-fetched from the store, never trusted
// from the token — goes into the context and the chain continues.
func RequireAuth(tokens *TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := ExtractBearer(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w)
				return
			}

			tokenID, err := tokens.Validate(tokenStr)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			// One lookup per request. The token's claims could be days old;
			// the store decides whether this user still exists and what
			// their names are now.
			user, err := users.GetByID(r.Context(), tokenID.UserID)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			identity := &Identity{
				ID:        user.ID,
				Email:     user.Email,
				FirstName: user.FirstName,
				LastName:  user.LastName,
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches an identity when a valid token is present and
// proceeds anonymously otherwise — it never terminates the request. Used on
// public endpoints (portfolio view) where a logged-in owner gets different
// behavior than a stranger.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr, ok := ExtractBearer(r.Header.Get("Authorization")); ok {
				if tokenID, err := tokens.Validate(tokenStr); err == nil {
					identity := &Identity{ID: tokenID.UserID, Email: tokenID.Email}
					r = r.WithContext(context.WithValue(r.Context(), identityKey, identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated identity, or (nil, false)
// for an anonymous request.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok && identity != nil
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(unauthorizedBody))
}

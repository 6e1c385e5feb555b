// Package auth provides JWT tokens, password hashing, the GitHub OAuth
// provider, and the request-authentication middleware.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A user registers or logs in (password path), or completes the GitHub
//     OAuth dance — either way the server issues a signed JWT.
//  2. The SPA stores the token and sends it on every API call as
//     "Authorization: Bearer <token>".
//  3. Middleware extracts the header, validates the signature and expiry,
//     re-confirms the user still exists, and puts the identity in the
//     request context.
//
// WHY JWT?
// The token is stateless — subject id, email, and expiry all live inside the
// signed payload, so validation needs no session table. The HMAC signature
// ensures nobody can alter the claims without the server's secret.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenValidity is how long an issued token stays usable. After this the
// client must log in again; there is no refresh token or server-side
// revocation list.
const tokenValidity = 7 * 24 * time.Hour

const issuer = "linkvault"

// Typed verification failures. Callers collapse both to 401, but tests (and
// logs) can tell a stale token from a forged or mangled one with errors.Is.
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// TokenIdentity is what a verified token asserts: who, and which email they
// had at issue time. Display names are NOT in the token — anything beyond
// id/email must be fetched fresh from the store.
type TokenIdentity struct {
	UserID string
	Email  string
}

// TokenService signs and verifies bearer tokens with a process-wide HMAC
// secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters — the caller (main) fails fast at startup on a bad secret
// rather than running a server that issues unverifiable tokens.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds the registered JWT claims ("sub" carries the user ID) and
// adds the subject's email.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate signs a token for the given user, valid for seven days.
func (s *TokenService) Generate(userID, email string) (string, error) {
	return s.GenerateWithDuration(userID, email, tokenValidity)
}

// GenerateWithDuration signs a token with a custom validity window.
// Exposed for tests that need already-expired or boundary tokens.
func (s *TokenService) GenerateWithDuration(userID, email string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning the identity it
// asserts.
//
// Checks performed: HMAC signature, expiry (required), issuer, and the
// signing algorithm — jwt.WithValidMethods pins HS256 so an attacker can't
// downgrade to "none" (algorithm confusion).
//
// Failures come back as ErrTokenExpired or ErrTokenInvalid (wrapped), never
// the library's raw errors.
func (s *TokenService) Validate(tokenStr string) (*TokenIdentity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return &TokenIdentity{UserID: c.Subject, Email: c.Email}, nil
}

// ExtractBearer pulls the token out of an "Authorization: Bearer <token>"
// header value. A missing or malformed header returns ok=false, NOT an
// error — the caller decides whether that means 401 (mandatory auth) or
// "proceed anonymously" (optional auth).
func ExtractBearer(headerValue string) (string, bool) {
	scheme, token, found := strings.Cut(headerValue, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

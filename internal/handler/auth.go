// Package handler contains the HTTP layer: request parsing, auth plumbing,
// and response shaping. Handlers hold service references and never touch the
// database directly.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/sakif/linkvault/internal/auth"
	"github.com/sakif/linkvault/internal/service"
)

// recentRepoLimit caps how many recently-updated repositories we attach to a
// GitHub connection's metadata.
const recentRepoLimit = 5

// AuthHandler covers registration, login, the GitHub OAuth flow, and the
// current-user snapshot.
//
//   - HandleRegister       → POST /api/auth/register
//   - HandleLogin          → POST /api/auth/login
//   - HandleGitHubLogin    → GET  /api/auth/oauth/github
//   - HandleGitHubCallback → GET  /api/auth/oauth/github/callback
//   - HandleMe             → GET  /api/auth/me
type AuthHandler struct {
	authService *service.AuthService
	github      *auth.GitHubProvider
	frontendURL string
	logger      *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		github:      github,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// authResponse is the success payload for register, login, and the /me
// endpoint. Token is empty on /me.
type authResponse struct {
	User  interface{} `json:"user"`
	Token string      `json:"token,omitempty"`
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authService.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: result.User, Token: result.Token})
}

// HandleLogin verifies credentials and issues a token.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// HandleMe returns the authenticated caller's full profile.
//
// HTTP: GET /api/auth/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable on a RequireAuth route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Invalid or expired token"})
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /api/auth/oauth/github
//
// CSRF PROTECTION VIA STATE:
// A random state value goes both into the authorization URL and into a
// short-lived HttpOnly cookie. The callback verifies the two match, which
// proves the flow started here and not on an attacker's page.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /api/auth/oauth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Verify the state parameter against the cookie (CSRF check).
//  2. Exchange the code for an access token.
//  3. Fetch the GitHub profile (and recent repos, best-effort).
//  4. Upsert the user + github connection, issue a JWT.
//  5. Redirect to the frontend with the token in the query string.
//
// This endpoint talks to a BROWSER mid-redirect, not to an API client, so
// failures redirect to the frontend login page with an error reason instead
// of returning a JSON envelope nobody would render.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state verification failed")
		h.redirectWithError(w, r, "invalid_state")
		return
	}

	// Single-use: clear the state cookie regardless of what happens next.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// GitHub reports user denial as an error parameter, not a code.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		h.redirectWithError(w, r, "access_denied")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "missing_code")
		return
	}

	oauthToken, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: code exchange failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, "exchange_failed")
		return
	}

	ghUser, err := h.github.FetchUser(r.Context(), oauthToken)
	if err != nil {
		h.logger.Error("oauth callback: fetching GitHub user failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, "profile_fetch_failed")
		return
	}

	// Repo metadata is decoration; a failure here must not abort the login.
	repos, err := h.github.FetchRecentRepos(r.Context(), oauthToken, ghUser.Login, recentRepoLimit)
	if err != nil {
		h.logger.Warn("oauth callback: fetching repos failed",
			slog.String("login", ghUser.Login),
			slog.String("error", err.Error()),
		)
		repos = nil
	}

	result, err := h.authService.CompleteGitHubLogin(r.Context(), ghUser, oauthToken, repos)
	if err != nil {
		h.logger.Error("oauth callback: completing login failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, "login_failed")
		return
	}

	// Hand the token to the frontend, which stores it and calls /auth/me.
	redirect := h.frontendURL + "/auth/github/callback?token=" + url.QueryEscape(result.Token)
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(reason), http.StatusSeeOther)
}

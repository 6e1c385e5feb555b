package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkvault/internal/auth"
	"github.com/sakif/linkvault/internal/repository"
	"github.com/sakif/linkvault/internal/service"
)

// UserHandler covers profile management and the public portfolio.
//
//   - HandleGetProfile     → GET    /api/users/profile
//   - HandleUpdateProfile  → PUT    /api/users/profile
//   - HandleUpdatePrivacy  → PUT    /api/users/profile/privacy
//   - HandleGetPortfolio   → GET    /api/users/portfolio/{identifier}
//   - HandleDeleteAccount  → DELETE /api/users/delete
type UserHandler struct {
	userService *service.UserService
	logger      *slog.Logger
}

func NewUserHandler(userService *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// HandleGetProfile returns the caller's own full profile.
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	user, err := h.userService.GetProfile(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// profilePatchBody mirrors UserProfilePatch with JSON tags. Pointer fields
// distinguish "key absent" (leave unchanged) from "key present with empty
// string" (clear the field).
type profilePatchBody struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Bio       *string `json:"bio"`
	Website   *string `json:"website"`
	Location  *string `json:"location"`
	Title     *string `json:"title"`
	Company   *string `json:"company"`
}

// HandleUpdateProfile applies a partial update to the caller's profile.
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var body profilePatchBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), identity.ID, repository.UserProfilePatch{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Bio:       body.Bio,
		Website:   body.Website,
		Location:  body.Location,
		Title:     body.Title,
		Company:   body.Company,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdatePrivacy applies a partial update to the caller's privacy flags.
func (h *UserHandler) HandleUpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var body struct {
		PublicProfile *bool `json:"publicProfile"`
		ShowEmail     *bool `json:"showEmail"`
		ShowLocation  *bool `json:"showLocation"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.userService.UpdatePrivacy(r.Context(), identity.ID, repository.UserPrivacyPatch{
		PublicProfile: body.PublicProfile,
		ShowEmail:     body.ShowEmail,
		ShowLocation:  body.ShowLocation,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGetPortfolio returns a user's public portfolio.
//
// HTTP: GET /api/users/portfolio/{identifier}
// Auth: optional — the owner sees hidden fields and skips the view counter.
func (h *UserHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	viewerID := ""
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		viewerID = identity.ID
	}

	portfolio, err := h.userService.GetPortfolio(r.Context(), identifier, viewerID, visitorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

// HandleDeleteAccount permanently deletes the caller's account.
func (h *UserHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := h.userService.DeleteAccount(r.Context(), identity.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// visitorFromRequest extracts the visitor attributes recorded with analytics
// events. Behind a proxy the client address lives in X-Forwarded-For; we take
// the first (leftmost) hop, which is the original client.
func visitorFromRequest(r *http.Request) service.VisitorInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip, _, _ = strings.Cut(ip, ",")
		ip = strings.TrimSpace(ip)
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}

	return service.VisitorInfo{
		IP:        ip,
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}

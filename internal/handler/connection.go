package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkvault/internal/auth"
	"github.com/sakif/linkvault/internal/repository"
	"github.com/sakif/linkvault/internal/service"
)

// ConnectionHandler covers platform-link CRUD and the click-through tracker.
//
//   - HandleList       → GET    /api/connections
//   - HandleCreate     → POST   /api/connections
//   - HandleUpdate     → PUT    /api/connections/{id}
//   - HandleDelete     → DELETE /api/connections/{id}
//   - HandleListPublic → GET    /api/connections/user/{userId}
//   - HandleClick      → POST   /api/connections/{id}/click
type ConnectionHandler struct {
	connectionService *service.ConnectionService
	logger            *slog.Logger
}

func NewConnectionHandler(connectionService *service.ConnectionService, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService, logger: logger}
}

// HandleList returns all of the caller's connections, active or not.
func (h *ConnectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	conns, err := h.connectionService.List(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

// HandleCreate manually adds a connection for the caller.
func (h *ConnectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var in service.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.connectionService.Create(r.Context(), identity.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

// HandleUpdate applies a partial update to one of the caller's connections.
func (h *ConnectionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	connID := chi.URLParam(r, "id")

	var body struct {
		Username *string `json:"username"`
		URL      *string `json:"url"`
		IsActive *bool   `json:"isActive"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.connectionService.Update(r.Context(), identity.ID, connID, repository.ConnectionPatch{
		Username: body.Username,
		URL:      body.URL,
		IsActive: body.IsActive,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// HandleDelete removes one of the caller's connections.
func (h *ConnectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	connID := chi.URLParam(r, "id")

	if err := h.connectionService.Delete(r.Context(), identity.ID, connID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Connection deleted successfully"})
}

// HandleListPublic returns another user's active connections — the public
// portfolio's link list.
//
// HTTP: GET /api/connections/user/{userId}
// Auth: none
func (h *ConnectionHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	conns, err := h.connectionService.ListPublic(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

// HandleClick records a platform click and returns the target URL for the
// client to navigate to.
//
// HTTP: POST /api/connections/{id}/click
// Auth: none — portfolio visitors are anonymous.
func (h *ConnectionHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	connID := chi.URLParam(r, "id")

	target, err := h.connectionService.TrackClick(r.Context(), connID, visitorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": target})
}

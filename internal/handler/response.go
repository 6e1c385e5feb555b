package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Every error response from the API has the same envelope:
//
//	{"error": "not_found", "message": "User not found"}
//
// plus an optional "details" array for validation failures:
//
//	{"error": "validation_error", "message": "Invalid input data",
//	 "details": [{"field": "email", "message": "must be a valid email address"}]}
//
// The frontend always knows what fields to expect, regardless of status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/linkvault/internal/apperror"
)

// exposeErrorDetail controls whether unexpected errors are passed through in
// 500 responses. Off by default; the composition root turns it on for
// development, where seeing the real failure beats a blank "internal error".
var exposeErrorDetail bool

// ExposeErrorDetail toggles raw-error passthrough on 500 responses. Call once
// from the composition root before serving; never enable it in production —
// raw messages can carry SQL fragments and file paths.
func ExposeErrorDetail(on bool) {
	exposeErrorDetail = on
}

// ErrorResponse is the standard error envelope returned by all API endpoints.
type ErrorResponse struct {
	Error   string                `json:"error"`             // machine-readable type, e.g. "not_found"
	Message string                `json:"message"`           // human-readable description
	Details []apperror.FieldError `json:"details,omitempty"` // per-field validation failures
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be written before the body: once Encode calls
// w.Write, the headers are on the wire and changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
//
// This is the only place domain errors meet HTTP. The service layer returns
// apperror values; errors.Is walks the wrap chain to find the sentinel and
// errors.As extracts the message and validation details.
//
// Conflicts (duplicate email, duplicate platform connection) map to 400, not
// 409 — the API treats them as bad input, and clients render them alongside
// validation failures.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
			errorType = "conflict"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	// Unknown error — generic 500. The raw message is only passed through in
	// development mode.
	message := "An internal error occurred"
	if exposeErrorDetail {
		message = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: message,
	})
}

// decodeJSON parses a request body into dst, rejecting unknown fields so a
// typo'd key fails loudly instead of being silently dropped.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "must be valid JSON")
	}
	return nil
}

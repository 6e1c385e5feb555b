// Package apperror defines the application's error taxonomy.
//
// Services return these typed errors; the HTTP layer translates them to
// status codes with errors.Is/errors.As. Nothing below the handler layer
// knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldError names one offending request field, mirroring the shape of the
// "details" array in the error envelope.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // sentinel (ErrNotFound, ErrValidation, ...)
	Message string       // human-readable error message
	Details []FieldError // optional field-level validation details
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "Invalid input data",
		Details: []FieldError{{Field: field, Message: message}},
	}
}

// ValidationErrors bundles multiple field failures into one 400 response,
// so a request with three bad fields reports all three at once.
func ValidationErrors(details []FieldError) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "Invalid input data",
		Details: details,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials is the login failure. Unknown email, password-less
// OAuth account, and wrong password all produce this same error so a caller
// can't enumerate registered emails.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "Invalid credentials",
	}
}

// Unauthorized returns an AppError for missing or failed authentication.
// The message is deliberately generic — callers must not be able to tell
// whether the token was absent, expired, or pointed at a deleted user.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "Invalid or expired token",
	}
}

package apperror

import (
	"errors"
	"net/http"
)

// AppError carries a stable machine code and the HTTP status a failure maps
// to at the boundary. Internal details never leak into Message.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: "BAD_REQUEST", Message: "Bad request", Status: http.StatusBadRequest}
	ErrValidation     = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed", Status: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Not found", Status: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// NewValidation flags bad or missing request fields. Always a client error.
func NewValidation(message string) *AppError {
	return &AppError{Code: "VALIDATION_FAILED", Message: message, Status: http.StatusBadRequest}
}

// NewBadRequest flags a structurally unusable request.
func NewBadRequest(message string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest}
}

// NewNotFound flags a missing single-entity lookup.
func NewNotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound}
}

// NewBackingStore flags a relational or search query failure. Surfaced as a
// server error with a generic message; never retried by the pipeline.
func NewBackingStore(message string) *AppError {
	return &AppError{Code: "BACKING_STORE_ERROR", Message: message, Status: http.StatusInternalServerError}
}

// NewCacheStore flags a cache round-trip failure. Callers treat reads as
// misses and swallow writes, so this rarely reaches the boundary.
func NewCacheStore(message string) *AppError {
	return &AppError{Code: "CACHE_STORE_ERROR", Message: message, Status: http.StatusInternalServerError}
}

// NewScopeResolution flags an organizational-scope resolver failure. The
// pipeline recovers from it locally; it never reaches the caller.
func NewScopeResolution(message string) *AppError {
	return &AppError{Code: "SCOPE_RESOLUTION_ERROR", Message: message, Status: http.StatusInternalServerError}
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status == http.StatusBadRequest
	}
	return false
}

// MapError resolves any error to an AppError, defaulting to a generic
// internal error so raw store errors never reach the response body.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer
}

package notion

import (
	"fmt"

	"github.com/roach88/hubsync/internal/store"
)

// Error codes returned in the "code" field of API error bodies.
const (
	CodeObjectNotFound  = "object_not_found"
	CodeValidationError = "validation_error"
	CodeUnauthorized    = "unauthorized"
	CodeRateLimited     = "rate_limited"
)

// APIError is a non-2xx response from the API.
//
// APIError unwraps to store.ErrNotFound for missing objects and to
// store.ErrSchemaMismatch for validation errors, so callers can classify it
// with errors.Is without importing this package.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: HTTP %d", e.Status)
	}
	return fmt.Sprintf("notion: %s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap maps the API error onto the store sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == 404 || e.Code == CodeObjectNotFound:
		return store.ErrNotFound
	case e.Code == CodeValidationError:
		return store.ErrSchemaMismatch
	default:
		return nil
	}
}

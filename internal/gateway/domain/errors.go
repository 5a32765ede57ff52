package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotConfigured  = errors.New("gateway_not_configured")
	ErrInvalidRequest = errors.New("gateway_invalid_request")
	ErrInvalidID      = errors.New("gateway_invalid_id")
	ErrUnavailable    = errors.New("gateway_unavailable")
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Field       string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("gateway error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway error: status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err is a gateway 404 (or a bad-request on an unknown id).
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.NotFound()
}

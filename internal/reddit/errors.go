// Package reddit provides an HTTP client for the Reddit OAuth API together
// with the OAuth2 helper that performs the userless, refresh, interactive
// challenge and revoke exchanges against www.reddit.com.
package reddit

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, reddit.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("reddit: bad request")
	ErrUnauthorized = errors.New("reddit: unauthorized")
	ErrForbidden    = errors.New("reddit: forbidden")
	ErrNotFound     = errors.New("reddit: not found")
	ErrThrottled    = errors.New("reddit: throttled")
	ErrServerError  = errors.New("reddit: server error")
)

// Challenge and client-state errors.
var (
	ErrNotAuthenticated = errors.New("reddit: client is not authenticated")
	ErrStateMismatch    = errors.New("reddit: OAuth2 state mismatch")
	ErrChallengeDenied  = errors.New("reddit: authorization challenge denied")
	ErrMissingCode      = errors.New("reddit: challenge result missing authorization code")
)

// APIError wraps a sentinel error with the HTTP status code and the
// response body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// IsUnauthorized reports whether err carries a 401 classification.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

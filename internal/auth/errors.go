// Package auth keeps a Reddit API client supplied with a valid access
// token. Authority owns the token state machine, Guard wraps API calls with
// a single refresh-and-retry on 401, and Session exposes the interactive
// login, identity and logout flows built on both.
package auth

import (
	"errors"
	"fmt"

	"github.com/dankgo/dank/internal/reddit"
)

// Error kinds. Use errors.Is(err, auth.ErrRefreshFailed) to check.
var (
	ErrHandshakeFailed = errors.New("auth: handshake failed")
	ErrRefreshFailed   = errors.New("auth: refresh failed")
	ErrRevokeFailed    = errors.New("auth: revoke failed")
	ErrAuthExpiry      = errors.New("auth: access token expired or rejected")
	ErrNoActiveSession = errors.New("auth: no active user session")
)

// errNoRefreshToken is the cause when a user refresh has nothing to send.
var errNoRefreshToken = errors.New("no user refresh token available")

// Error is an authentication failure. Both Kind and Err match errors.Is,
// so callers can test for the failure kind and for the underlying cause.
type Error struct {
	Op   string // "handshake", "refresh", "login", "logout"
	Kind error  // one of the kind sentinels above
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Op)
	}

	return fmt.Sprintf("%v (%s): %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// IsAuthExpiry reports whether err means the server no longer accepts the
// access token: a 401 from the transport or an explicit ErrAuthExpiry.
func IsAuthExpiry(err error) bool {
	return errors.Is(err, ErrAuthExpiry) || errors.Is(err, reddit.ErrUnauthorized)
}

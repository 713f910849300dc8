package auth

import "fmt"

// AuthenticationState is the token lifecycle stage owned by Authority.
type AuthenticationState int

// Authentication states.
const (
	// StateNone means no token is installed and no user token is stored.
	StateNone AuthenticationState = iota
	// StateNeedRefresh means a token exists but must be renewed before use.
	StateNeedRefresh
	// StateReady means the installed token can be used as is.
	StateReady
)

func (s AuthenticationState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateNeedRefresh:
		return "need_refresh"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("AuthenticationState(%d)", int(s))
	}
}

// SessionState is the user-facing login state reported by Session.
type SessionState int

// Session states.
const (
	SessionAnonymous SessionState = iota
	SessionUserAuthenticating
	SessionUserAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionUserAuthenticating:
		return "user_authenticating"
	case SessionUserAuthenticated:
		return "user_authenticated"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dankgo/dank/internal/reddit"
)

// LoginScopes is the fixed scope set requested by the interactive login.
var LoginScopes = []string{
	"account",
	"edit",
	"history",
	"identity",
	"mysubreddits",
	"privatemessages",
	"read",
	"report",
	"save",
	"submit",
	"subscribe",
	"vote",
	"wikiread",
}

// UserClient is the part of the API client Session uses for identity
// queries and request logging control. *reddit.Client satisfies it.
type UserClient interface {
	Me(ctx context.Context) (*reddit.Account, error)
	AuthenticatedUser() string
	LoggingMode() reddit.LoggingMode
	SetLoggingMode(m reddit.LoggingMode)
}

// Session is the login-facing view of an Authority: it issues login URLs,
// completes the challenge, answers who is logged in and logs out.
type Session struct {
	authority *Authority
	guard     *Guard
	client    UserClient
	logger    *slog.Logger

	mu             sync.Mutex
	authenticating bool
}

// NewSession creates a Session. guard should wrap the same authority.
func NewSession(authority *Authority, guard *Guard, client UserClient, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		authority: authority,
		guard:     guard,
		client:    client,
		logger:    logger,
	}
}

// AuthorizationURL returns the interactive login URL for LoginScopes with a
// permanent grant on the compact (mobile) authorization page.
func (s *Session) AuthorizationURL() (string, error) {
	scopes := make([]string, len(LoginScopes))
	copy(scopes, LoginScopes)

	authURL, err := s.authority.oauth.AuthorizationURL(s.authority.installed, true, true, scopes)
	if err != nil {
		return "", &Error{Op: "login", Kind: ErrHandshakeFailed, Err: err}
	}

	s.mu.Lock()
	s.authenticating = true
	s.mu.Unlock()

	return authURL, nil
}

// CompleteLogin exchanges the redirect URL reached after the user answered
// the authorization page and installs the resulting user token. On failure
// the session stays as it was.
func (s *Session) CompleteLogin(ctx context.Context, resultURL string) error {
	defer func() {
		s.mu.Lock()
		s.authenticating = false
		s.mu.Unlock()
	}()

	data, err := s.authority.oauth.OnUserChallenge(ctx, resultURL, s.authority.installed)
	if err != nil {
		return &Error{Op: "login", Kind: ErrHandshakeFailed, Err: err}
	}

	if err := s.authority.Install(ctx, data); err != nil {
		return err
	}

	// Best effort: warms the cached user name.
	if _, err := s.CurrentUserAccount(ctx); err != nil {
		s.logger.Warn("logged in but could not fetch account", slog.String("error", err.Error()))
	}

	s.logger.Info("user logged in", slog.String("user", s.client.AuthenticatedUser()))

	return nil
}

// IsUserLoggedIn reports whether a user session is active.
func (s *Session) IsUserLoggedIn() bool {
	return s.authority.IsUserSessionActive()
}

// SessionState reports the login state.
func (s *Session) SessionState() SessionState {
	if s.IsUserLoggedIn() {
		return SessionUserAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authenticating {
		return SessionUserAuthenticating
	}

	return SessionAnonymous
}

// CurrentUserName returns the logged-in user's name, fetching the account
// when it is not cached yet.
func (s *Session) CurrentUserName(ctx context.Context) (string, error) {
	s.authority.Restore(ctx)

	if !s.IsUserLoggedIn() {
		return "", ErrNoActiveSession
	}

	if name := s.client.AuthenticatedUser(); name != "" {
		return name, nil
	}

	account, err := s.CurrentUserAccount(ctx)
	if err != nil {
		return "", err
	}

	return account.Name, nil
}

// CurrentUserAccount fetches the logged-in user's account.
func (s *Session) CurrentUserAccount(ctx context.Context) (*reddit.Account, error) {
	s.authority.Restore(ctx)

	if !s.IsUserLoggedIn() {
		return nil, ErrNoActiveSession
	}

	return WithAuth(ctx, s.guard, s.client.Me)
}

// Logout revokes the user token and returns the session to anonymous.
// Request logging is switched off for the revoke call and restored
// afterwards whatever the outcome.
func (s *Session) Logout(ctx context.Context) error {
	s.authority.Restore(ctx)

	if !s.IsUserLoggedIn() {
		return ErrNoActiveSession
	}

	prev := s.client.LoggingMode()
	s.client.SetLoggingMode(reddit.LoggingNever)

	defer s.client.SetLoggingMode(prev)

	if err := s.authority.Revoke(ctx); err != nil {
		return err
	}

	s.logger.Info("user logged out")

	return nil
}

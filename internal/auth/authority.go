package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/dankgo/dank/internal/credstore"
	"github.com/dankgo/dank/internal/reddit"
)

// Transport is the API client whose token the Authority manages.
// *reddit.Client satisfies it.
type Transport interface {
	Authenticate(data *reddit.OAuthData)
	Deauthenticate()
	IsAuthenticated() bool
	HasActiveUserContext() bool
	OAuthData() *reddit.OAuthData
}

// Handshaker performs the OAuth2 exchanges. *reddit.OAuthHelper satisfies it.
type Handshaker interface {
	EasyAuth(ctx context.Context, creds reddit.UserlessAppCredentials) (*reddit.OAuthData, error)
	RefreshUser(ctx context.Context, creds reddit.InstalledAppCredentials, refreshToken string) (*reddit.OAuthData, error)
	AuthorizationURL(creds reddit.InstalledAppCredentials, permanent, mobile bool, scopes []string) (string, error)
	OnUserChallenge(ctx context.Context, resultURL string, creds reddit.InstalledAppCredentials) (*reddit.OAuthData, error)
	RevokeAccessToken(ctx context.Context, creds reddit.InstalledAppCredentials) error
}

// Authority owns the authentication state of one Transport. It is the only
// component that installs or drops tokens, and every state transition runs
// under its mutex. Concurrent Refresh calls for the same session kind share
// a single network exchange.
type Authority struct {
	transport Transport
	oauth     Handshaker
	store     credstore.Store
	userless  reddit.UserlessAppCredentials
	installed reddit.InstalledAppCredentials
	logger    *slog.Logger

	bindOnce sync.Once
	refresh  singleflight.Group

	mu sync.Mutex
	// userTokenStored is true while the store holds a user token.
	userTokenStored bool
}

// NewAuthority creates an Authority. Credentials are fixed for its lifetime.
func NewAuthority(
	transport Transport,
	oauth Handshaker,
	store credstore.Store,
	userless reddit.UserlessAppCredentials,
	installed reddit.InstalledAppCredentials,
	logger *slog.Logger,
) *Authority {
	if logger == nil {
		logger = slog.Default()
	}

	return &Authority{
		transport: transport,
		oauth:     oauth,
		store:     store,
		userless:  userless,
		installed: installed,
		logger:    logger,
	}
}

// Restore binds the Authority to its credential store: the stored user
// token, or failing that the stored userless token, is installed into the
// transport. It runs at most once per Authority; later calls return
// immediately. EnsureReady and Refresh call it implicitly.
func (a *Authority) Restore(ctx context.Context) {
	a.bindOnce.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.restoreLocked(ctx)
	})
}

func (a *Authority) restoreLocked(ctx context.Context) {
	if a.transport.IsAuthenticated() {
		return
	}

	tok, err := a.store.Load(ctx, credstore.AccountUser)
	if err != nil {
		a.logger.Warn("could not load stored user token", slog.String("error", err.Error()))
	}

	if tok != nil && (tok.RefreshToken != "" || tok.Valid()) {
		a.userTokenStored = true
		a.transport.Authenticate(&reddit.OAuthData{Token: tok})
		a.logger.Debug("restored user token", slog.Time("expiry", tok.Expiry))

		return
	}

	tok, err = a.store.Load(ctx, credstore.AccountUserless)
	if err != nil {
		a.logger.Warn("could not load stored userless token", slog.String("error", err.Error()))
	}

	// Userless tokens cannot be refreshed, so an expired one is useless.
	if tok != nil && tok.Valid() {
		a.transport.Authenticate(&reddit.OAuthData{Token: tok, Userless: true})
		a.logger.Debug("restored userless token", slog.Time("expiry", tok.Expiry))
	}
}

// State returns the current authentication state.
func (a *Authority) State() AuthenticationState {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.stateLocked()
}

func (a *Authority) stateLocked() AuthenticationState {
	if !a.transport.IsAuthenticated() {
		if a.userTokenStored {
			return StateNeedRefresh
		}

		return StateNone
	}

	if a.transport.OAuthData().Expired() {
		return StateNeedRefresh
	}

	return StateReady
}

// userSessionLocked reports which credential set a refresh should use.
func (a *Authority) userSessionLocked() bool {
	if a.transport.IsAuthenticated() {
		return a.transport.HasActiveUserContext()
	}

	return a.userTokenStored
}

// IsUserSessionActive reports whether the transport is authenticated as a
// signed-in user rather than as the application alone.
func (a *Authority) IsUserSessionActive() bool {
	return a.transport.IsAuthenticated() && a.transport.HasActiveUserContext()
}

// EnsureReady makes sure the transport holds a usable token. In StateNone
// it runs the userless handshake, in StateNeedRefresh it refreshes with the
// credentials of the current session kind, and in StateReady it does
// nothing.
func (a *Authority) EnsureReady(ctx context.Context) error {
	a.Restore(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.stateLocked() {
	case StateNone:
		return a.handshakeLocked(ctx)
	case StateNeedRefresh:
		return a.refreshLocked(ctx, a.userSessionLocked())
	default:
		return nil
	}
}

// Refresh forces a token renewal. A user refresh uses the installed-app
// credentials and the user's refresh token; a userless refresh repeats the
// installed_client handshake.
func (a *Authority) Refresh(ctx context.Context, forUserSession bool) error {
	a.Restore(ctx)

	key := credstore.AccountUserless.String()
	if forUserSession {
		key = credstore.AccountUser.String()
	}

	_, err, _ := a.refresh.Do(key, func() (any, error) {
		a.mu.Lock()
		defer a.mu.Unlock()

		return nil, a.refreshLocked(ctx, forUserSession)
	})

	return err
}

func (a *Authority) handshakeLocked(ctx context.Context) error {
	data, err := a.oauth.EasyAuth(ctx, a.userless)
	if err != nil {
		return &Error{Op: "handshake", Kind: ErrHandshakeFailed, Err: err}
	}

	a.transport.Authenticate(data)
	a.persist(ctx, credstore.AccountUserless, data.Token)

	return nil
}

func (a *Authority) refreshLocked(ctx context.Context, forUserSession bool) error {
	if !forUserSession {
		data, err := a.oauth.EasyAuth(ctx, a.userless)
		if err != nil {
			return &Error{Op: "refresh", Kind: ErrRefreshFailed, Err: err}
		}

		a.transport.Authenticate(data)
		a.persist(ctx, credstore.AccountUserless, data.Token)

		return nil
	}

	refreshToken := a.userRefreshTokenLocked(ctx)
	if refreshToken == "" {
		return &Error{Op: "refresh", Kind: ErrRefreshFailed, Err: errNoRefreshToken}
	}

	data, err := a.oauth.RefreshUser(ctx, a.installed, refreshToken)
	if err != nil {
		// The server refused the grant: the user must log in again.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			a.logger.Warn("user refresh token rejected, dropping user session")

			if ferr := a.forgetLocked(ctx); ferr != nil {
				a.logger.Warn("could not clear rejected user token", slog.String("error", ferr.Error()))
			}
		}

		return &Error{Op: "refresh", Kind: ErrRefreshFailed, Err: err}
	}

	if data.Token.RefreshToken == "" {
		data.Token.RefreshToken = refreshToken
	}

	a.transport.Authenticate(data)
	a.persist(ctx, credstore.AccountUser, data.Token)
	a.userTokenStored = true

	return nil
}

// userRefreshTokenLocked prefers the refresh token of the installed user
// token and falls back to the stored one.
func (a *Authority) userRefreshTokenLocked(ctx context.Context) string {
	if data := a.transport.OAuthData(); data != nil && !data.Userless && data.Token != nil && data.Token.RefreshToken != "" {
		return data.Token.RefreshToken
	}

	tok, err := a.store.Load(ctx, credstore.AccountUser)
	if err != nil {
		a.logger.Warn("could not load stored user token", slog.String("error", err.Error()))
		return ""
	}

	if tok == nil {
		return ""
	}

	return tok.RefreshToken
}

// Install makes a freshly exchanged user token the active session and
// persists it.
func (a *Authority) Install(ctx context.Context, data *reddit.OAuthData) error {
	if data == nil || data.Token == nil || data.Userless {
		return &Error{Op: "login", Kind: ErrHandshakeFailed, Err: errors.New("challenge produced no user token")}
	}

	a.Restore(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.transport.Authenticate(data)
	a.persist(ctx, credstore.AccountUser, data.Token)
	a.userTokenStored = true

	return nil
}

// Revoke revokes the active user token with the server and then forgets it
// locally. Nothing is forgotten when the server call fails.
func (a *Authority) Revoke(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.oauth.RevokeAccessToken(ctx, a.installed); err != nil {
		return &Error{Op: "logout", Kind: ErrRevokeFailed, Err: err}
	}

	return a.forgetLocked(ctx)
}

// Forget drops the user token from the transport and the store. The next
// EnsureReady falls back to a userless session.
func (a *Authority) Forget(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.forgetLocked(ctx)
}

func (a *Authority) forgetLocked(ctx context.Context) error {
	if a.transport.HasActiveUserContext() {
		a.transport.Deauthenticate()
	}

	if err := a.store.Clear(ctx, credstore.AccountUser); err != nil {
		return err
	}

	a.userTokenStored = false
	a.logger.Info("user session cleared")

	return nil
}

// persist saves tok under account. The token is already live in the
// transport, so a failed write only costs a handshake on the next start.
func (a *Authority) persist(ctx context.Context, account credstore.AccountContext, tok *oauth2.Token) {
	if err := a.store.Save(ctx, account, tok); err != nil {
		a.logger.Warn("could not persist token",
			slog.String("account", account.String()),
			slog.String("error", err.Error()),
		)
	}
}

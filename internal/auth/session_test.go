package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dankgo/dank/internal/credstore"
	"github.com/dankgo/dank/internal/reddit"
)

func TestAuthorizationURL_FixedScopesPermanentCompact(t *testing.T) {
	client := reddit.NewClient(reddit.DefaultBaseURL, nil, nil, "", 0)
	helper := reddit.NewOAuthHelper(client, reddit.DefaultWWWURL)
	authority := NewAuthority(client, helper, credstore.NewMemoryStore(), testUserless, testInstalled, nil)
	session := NewSession(authority, NewGuard(authority, nil), client, nil)

	raw, err := session.AuthorizationURL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/authorize.compact", u.Path)

	q := u.Query()
	assert.Equal(t, "permanent", q.Get("duration"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, testInstalled.ClientID, q.Get("client_id"))
	assert.Equal(t, testInstalled.RedirectURI, q.Get("redirect_uri"))
	assert.NotEmpty(t, q.Get("state"))

	scopes := strings.Fields(q.Get("scope"))
	assert.Len(t, scopes, 13)

	for _, want := range []string{
		"account", "edit", "history", "identity", "mysubreddits", "privatemessages",
		"read", "report", "save", "submit", "subscribe", "vote", "wikiread",
	} {
		assert.Contains(t, scopes, want)
	}

	assert.Equal(t, SessionUserAuthenticating, session.SessionState())
}

func TestAuthorizationURL_PassesFixedArguments(t *testing.T) {
	rig := newTestRig()

	_, err := rig.session.AuthorizationURL()
	require.NoError(t, err)

	assert.True(t, rig.oauth.lastPermanent)
	assert.True(t, rig.oauth.lastMobile)
	assert.Equal(t, LoginScopes, rig.oauth.lastScopes)
	assert.Equal(t, testInstalled, rig.oauth.lastInstalled)
}

func TestCompleteLogin_Success(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()

	assert.Equal(t, SessionAnonymous, rig.session.SessionState())

	_, err := rig.session.AuthorizationURL()
	require.NoError(t, err)

	require.NoError(t, rig.session.CompleteLogin(ctx, "http://127.0.0.1:65010/callback?state=s&code=c"))

	assert.True(t, rig.session.IsUserLoggedIn())
	assert.Equal(t, SessionUserAuthenticated, rig.session.SessionState())

	name, err := rig.session.CurrentUserName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "spez", name)

	// The name was cached during login.
	assert.Equal(t, int32(1), rig.client.meCalls.Load())

	stored, err := rig.store.Store.Load(ctx, credstore.AccountUser)
	require.NoError(t, err)
	assert.Equal(t, "user-refresh", stored.RefreshToken)
}

func TestCompleteLogin_FailureStaysAnonymous(t *testing.T) {
	rig := newTestRig()
	rig.oauth.challengeErr = reddit.ErrStateMismatch

	_, err := rig.session.AuthorizationURL()
	require.NoError(t, err)

	err = rig.session.CompleteLogin(context.Background(), "http://127.0.0.1:65010/callback?state=bad")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrHandshakeFailed)
	assert.ErrorIs(t, err, reddit.ErrStateMismatch)
	assert.False(t, rig.session.IsUserLoggedIn())
	assert.Equal(t, SessionAnonymous, rig.session.SessionState())
}

func TestCompleteLogin_AccountFetchFailureStillLogsIn(t *testing.T) {
	rig := newTestRig()
	rig.client.meErr = errors.New("boom")

	require.NoError(t, rig.session.CompleteLogin(context.Background(), "http://127.0.0.1:65010/callback?state=s&code=c"))
	assert.True(t, rig.session.IsUserLoggedIn())
}

func TestUserQueries_WithoutSession(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()

	_, err := rig.session.CurrentUserName(ctx)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = rig.session.CurrentUserAccount(ctx)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	assert.ErrorIs(t, rig.session.Logout(ctx), ErrNoActiveSession)
	assert.Equal(t, int32(0), rig.oauth.revokeCalls.Load())
}

func TestCurrentUserAccount_RestoresStoredSession(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()

	require.NoError(t, rig.store.Save(ctx, credstore.AccountUser, validToken("user-access", "user-refresh")))

	account, err := rig.session.CurrentUserAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "spez", account.Name)
	assert.Equal(t, int32(0), rig.oauth.easyAuthCalls.Load())
}

func TestLogout_Success(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()

	require.NoError(t, rig.session.CompleteLogin(ctx, "http://127.0.0.1:65010/callback?state=s&code=c"))
	rig.client.SetLoggingMode(reddit.LoggingAlways)

	require.NoError(t, rig.session.Logout(ctx))

	assert.Equal(t, reddit.LoggingNever, rig.oauth.loggingDuringRevoke)
	assert.Equal(t, reddit.LoggingAlways, rig.client.LoggingMode())
	assert.False(t, rig.session.IsUserLoggedIn())
	assert.Equal(t, SessionAnonymous, rig.session.SessionState())

	stored, err := rig.store.Store.Load(ctx, credstore.AccountUser)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLogout_FailureRestoresLoggingAndKeepsSession(t *testing.T) {
	for _, mode := range []reddit.LoggingMode{reddit.LoggingNever, reddit.LoggingOnFail, reddit.LoggingAlways} {
		t.Run(mode.String(), func(t *testing.T) {
			rig := newTestRig()
			ctx := context.Background()

			require.NoError(t, rig.session.CompleteLogin(ctx, "http://127.0.0.1:65010/callback?state=s&code=c"))
			rig.client.SetLoggingMode(mode)
			rig.oauth.revokeErr = errors.New("revoke crashed")

			err := rig.session.Logout(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRevokeFailed)

			assert.Equal(t, reddit.LoggingNever, rig.oauth.loggingDuringRevoke)
			assert.Equal(t, mode, rig.client.LoggingMode())
			assert.True(t, rig.session.IsUserLoggedIn())
		})
	}
}

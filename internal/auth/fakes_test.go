package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/dankgo/dank/internal/credstore"
	"github.com/dankgo/dank/internal/reddit"
)

var (
	testUserless  = reddit.UserlessAppCredentials{ClientID: "app-id", DeviceID: "device-1"}
	testInstalled = reddit.InstalledAppCredentials{ClientID: "app-id", RedirectURI: "http://127.0.0.1:65010/callback"}
)

// fakeClient stands in for *reddit.Client as both Transport and UserClient.
type fakeClient struct {
	mu       sync.Mutex
	data     *reddit.OAuthData
	userName string

	loggingMode atomic.Int32
	meCalls     atomic.Int32
	meErr       error
}

func newFakeClient() *fakeClient {
	c := &fakeClient{}
	c.loggingMode.Store(int32(reddit.LoggingOnFail))

	return c
}

func (c *fakeClient) Authenticate(data *reddit.OAuthData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = data
	c.userName = ""
}

func (c *fakeClient) Deauthenticate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = nil
	c.userName = ""
}

func (c *fakeClient) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.data != nil && c.data.Token != nil
}

func (c *fakeClient) HasActiveUserContext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.data != nil && !c.data.Userless
}

func (c *fakeClient) OAuthData() *reddit.OAuthData {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.data
}

func (c *fakeClient) Me(_ context.Context) (*reddit.Account, error) {
	c.meCalls.Add(1)

	if c.meErr != nil {
		return nil, c.meErr
	}

	c.mu.Lock()
	c.userName = "spez"
	c.mu.Unlock()

	return &reddit.Account{ID: "t2_1", Name: "spez"}, nil
}

func (c *fakeClient) AuthenticatedUser() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.userName
}

func (c *fakeClient) LoggingMode() reddit.LoggingMode {
	return reddit.LoggingMode(c.loggingMode.Load())
}

func (c *fakeClient) SetLoggingMode(m reddit.LoggingMode) {
	c.loggingMode.Store(int32(m))
}

// fakeOAuth records every exchange and answers with canned tokens.
type fakeOAuth struct {
	client *fakeClient

	easyAuthCalls  atomic.Int32
	refreshCalls   atomic.Int32
	challengeCalls atomic.Int32
	revokeCalls    atomic.Int32

	easyAuthErr  error
	refreshErr   error
	challengeErr error
	revokeErr    error

	// refreshGate, when set, blocks RefreshUser until it is closed.
	refreshGate chan struct{}

	mu                  sync.Mutex
	lastRefreshToken    string
	lastInstalled       reddit.InstalledAppCredentials
	lastScopes          []string
	lastPermanent       bool
	lastMobile          bool
	loggingDuringRevoke reddit.LoggingMode
}

func validToken(access, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
}

func expiredToken(access, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}
}

func (f *fakeOAuth) EasyAuth(_ context.Context, creds reddit.UserlessAppCredentials) (*reddit.OAuthData, error) {
	f.easyAuthCalls.Add(1)

	if f.easyAuthErr != nil {
		return nil, f.easyAuthErr
	}

	if creds != testUserless {
		return nil, errors.New("unexpected userless credentials")
	}

	return &reddit.OAuthData{Token: validToken("app-access", ""), Userless: true}, nil
}

func (f *fakeOAuth) RefreshUser(_ context.Context, creds reddit.InstalledAppCredentials, refreshToken string) (*reddit.OAuthData, error) {
	f.refreshCalls.Add(1)

	if f.refreshGate != nil {
		<-f.refreshGate
	}

	f.mu.Lock()
	f.lastRefreshToken = refreshToken
	f.lastInstalled = creds
	f.mu.Unlock()

	if f.refreshErr != nil {
		return nil, f.refreshErr
	}

	// Reddit omits the refresh token from refresh responses.
	return &reddit.OAuthData{Token: validToken("user-access-refreshed", "")}, nil
}

func (f *fakeOAuth) AuthorizationURL(creds reddit.InstalledAppCredentials, permanent, mobile bool, scopes []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastInstalled = creds
	f.lastPermanent = permanent
	f.lastMobile = mobile
	f.lastScopes = scopes

	return "https://www.reddit.com/api/v1/authorize.compact?state=s", nil
}

func (f *fakeOAuth) OnUserChallenge(_ context.Context, _ string, _ reddit.InstalledAppCredentials) (*reddit.OAuthData, error) {
	f.challengeCalls.Add(1)

	if f.challengeErr != nil {
		return nil, f.challengeErr
	}

	return &reddit.OAuthData{Token: validToken("user-access", "user-refresh")}, nil
}

func (f *fakeOAuth) RevokeAccessToken(_ context.Context, _ reddit.InstalledAppCredentials) error {
	f.revokeCalls.Add(1)

	f.mu.Lock()
	f.loggingDuringRevoke = f.client.LoggingMode()
	f.mu.Unlock()

	if f.revokeErr != nil {
		return f.revokeErr
	}

	f.client.Deauthenticate()

	return nil
}

// countingStore wraps a Store and counts loads.
type countingStore struct {
	credstore.Store
	loads   atomic.Int32
	saveErr error
}

func (s *countingStore) Load(ctx context.Context, account credstore.AccountContext) (*oauth2.Token, error) {
	s.loads.Add(1)

	return s.Store.Load(ctx, account)
}

func (s *countingStore) Save(ctx context.Context, account credstore.AccountContext, tok *oauth2.Token) error {
	if s.saveErr != nil {
		return s.saveErr
	}

	return s.Store.Save(ctx, account, tok)
}

type testRig struct {
	client    *fakeClient
	oauth     *fakeOAuth
	store     *countingStore
	authority *Authority
	guard     *Guard
	session   *Session
}

func newTestRig() *testRig {
	client := newFakeClient()
	oauth := &fakeOAuth{client: client}
	store := &countingStore{Store: credstore.NewMemoryStore()}
	authority := NewAuthority(client, oauth, store, testUserless, testInstalled, nil)
	guard := NewGuard(authority, nil)

	return &testRig{
		client:    client,
		oauth:     oauth,
		store:     store,
		authority: authority,
		guard:     guard,
		session:   NewSession(authority, guard, client, nil),
	}
}

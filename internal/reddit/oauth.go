package reddit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultWWWURL hosts the authorize, token and revoke endpoints.
	DefaultWWWURL = "https://www.reddit.com"

	// InstalledClientGrant is the grant type for userless installed apps.
	InstalledClientGrant = "https://oauth.reddit.com/grants/installed_client"

	authorizePath        = "/api/v1/authorize"
	authorizeCompactPath = "/api/v1/authorize.compact"
	tokenPath            = "/api/v1/access_token"
	revokePath           = "/api/v1/revoke_token"
)

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// OAuthHelper performs the OAuth2 exchanges against www.reddit.com and
// installs the results into its Client.
type OAuthHelper struct {
	client     *Client
	wwwURL     string
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	pendingState string
}

// NewOAuthHelper creates a helper bound to client. wwwURL is typically
// DefaultWWWURL; tests point it at an httptest server.
func NewOAuthHelper(client *Client, wwwURL string) *OAuthHelper {
	return &OAuthHelper{
		client: client,
		wwwURL: strings.TrimRight(wwwURL, "/"),
		httpClient: &http.Client{
			Transport: &userAgentTransport{base: client.httpClient.Transport, userAgent: client.userAgent},
			Timeout:   client.httpClient.Timeout,
		},
		logger: client.logger,
	}
}

// userAgentTransport stamps the Reddit-mandated User-Agent on token
// endpoint requests issued by the oauth2 library.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)

	return base.RoundTrip(clone)
}

// withHTTPClient makes the oauth2 library use the helper's HTTP client.
func (h *OAuthHelper) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)
}

func (h *OAuthHelper) endpoint(mobile bool) oauth2.Endpoint {
	authPath := authorizePath
	if mobile {
		authPath = authorizeCompactPath
	}

	return oauth2.Endpoint{
		AuthURL:   h.wwwURL + authPath,
		TokenURL:  h.wwwURL + tokenPath,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

func (h *OAuthHelper) installedConfig(creds InstalledAppCredentials, mobile bool, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    creds.ClientID,
		RedirectURL: creds.RedirectURI,
		Scopes:      scopes,
		Endpoint:    h.endpoint(mobile),
	}
}

// EasyAuth obtains an application-only token for the installed_client
// grant. Userless tokens carry no refresh token; renewing one means running
// EasyAuth again.
func (h *OAuthHelper) EasyAuth(ctx context.Context, creds UserlessAppCredentials) (*OAuthData, error) {
	h.logger.Info("requesting userless app token")

	cfg := &clientcredentials.Config{
		ClientID: creds.ClientID,
		TokenURL: h.wwwURL + tokenPath,
		EndpointParams: url.Values{
			"grant_type": {InstalledClientGrant},
			"device_id":  {creds.DeviceID},
		},
		AuthStyle: oauth2.AuthStyleInHeader,
	}

	tok, err := cfg.Token(h.withHTTPClient(ctx))
	if err != nil {
		return nil, fmt.Errorf("reddit: userless token request failed: %w", err)
	}

	h.logger.Info("userless token acquired", slog.Time("expiry", tok.Expiry))

	return newOAuthData(tok, true), nil
}

// RefreshUser exchanges a user refresh token for a new access token.
func (h *OAuthHelper) RefreshUser(ctx context.Context, creds InstalledAppCredentials, refreshToken string) (*OAuthData, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("reddit: refresh requested without a refresh token")
	}

	h.logger.Info("refreshing user token")

	cfg := h.installedConfig(creds, false, nil)
	src := cfg.TokenSource(h.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("reddit: user token refresh failed: %w", err)
	}

	h.logger.Info("user token refreshed", slog.Time("expiry", tok.Expiry))

	return newOAuthData(tok, false), nil
}

// AuthorizationURL builds the interactive login URL. A fresh random state
// is generated per call and remembered for OnUserChallenge.
func (h *OAuthHelper) AuthorizationURL(creds InstalledAppCredentials, permanent, mobile bool, scopes []string) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("reddit: generating state token: %w", err)
	}

	duration := "temporary"
	if permanent {
		duration = "permanent"
	}

	cfg := h.installedConfig(creds, mobile, scopes)
	authURL := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", duration))

	h.mu.Lock()
	h.pendingState = state
	h.mu.Unlock()

	return authURL, nil
}

// OnUserChallenge parses the redirect URL produced after the user answered
// the authorization page and exchanges its code for user tokens.
func (h *OAuthHelper) OnUserChallenge(ctx context.Context, resultURL string, creds InstalledAppCredentials) (*OAuthData, error) {
	u, err := url.Parse(resultURL)
	if err != nil {
		return nil, fmt.Errorf("reddit: parsing challenge result: %w", err)
	}

	q := u.Query()

	h.mu.Lock()
	expected := h.pendingState
	h.mu.Unlock()

	if expected == "" || q.Get("state") != expected {
		return nil, ErrStateMismatch
	}

	if errParam := q.Get("error"); errParam != "" {
		return nil, fmt.Errorf("%w: %s", ErrChallengeDenied, errParam)
	}

	code := q.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	h.logger.Info("received authorization code, exchanging for token")

	cfg := h.installedConfig(creds, false, nil)

	tok, err := cfg.Exchange(h.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("reddit: token exchange failed: %w", err)
	}

	h.mu.Lock()
	h.pendingState = ""
	h.mu.Unlock()

	h.logger.Info("token exchange successful", slog.Time("expiry", tok.Expiry))

	return newOAuthData(tok, false), nil
}

// RevokeAccessToken revokes the client's active user token and
// deauthenticates the client. The refresh token is revoked when present,
// which also invalidates every access token derived from it.
func (h *OAuthHelper) RevokeAccessToken(ctx context.Context, creds InstalledAppCredentials) error {
	data := h.client.OAuthData()
	if data == nil || data.Token == nil {
		return ErrNotAuthenticated
	}

	form := url.Values{}
	if data.Token.RefreshToken != "" {
		form.Set("token", data.Token.RefreshToken)
		form.Set("token_type_hint", "refresh_token")
	} else {
		form.Set("token", data.Token.AccessToken)
		form.Set("token_type_hint", "access_token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.wwwURL+revokePath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("reddit: creating revoke request: %w", err)
	}

	req.SetBasicAuth(url.QueryEscape(creds.ClientID), "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if h.client.LoggingMode() == LoggingAlways {
		h.logger.Debug("sending revoke request",
			slog.String("token_type_hint", form.Get("token_type_hint")),
		)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit: revoke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)

		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	h.client.Deauthenticate()
	h.logger.Info("user token revoked")

	return nil
}

// generateState produces a cryptographically random hex string for the
// OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

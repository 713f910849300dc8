package reddit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the OAuth API host; bearer tokens are only accepted here.
	DefaultBaseURL = "https://oauth.reddit.com"

	// DefaultUserAgent follows Reddit's <platform>:<app id>:<version> convention.
	DefaultUserAgent = "go:dank:0.1"

	// DefaultRequestsPerMinute stays under Reddit's OAuth client quota.
	DefaultRequestsPerMinute = 60
)

// Client is an HTTP client for the Reddit OAuth API. It owns the active
// token (installed by the auth layer), attaches it to every request,
// rate-limits outbound calls, and classifies error responses.
//
// Client does not retry: network failures surface to the caller and a 401
// surfaces as ErrUnauthorized so the auth layer can refresh and re-drive.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
	limiter    *rate.Limiter

	mu       sync.RWMutex
	auth     *OAuthData
	userName string

	loggingMode atomic.Int32
}

// NewClient creates a Reddit API client.
// requestsPerMinute <= 0 disables rate limiting.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, userAgent string, requestsPerMinute int) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
		limiter:    limiter,
	}
	c.loggingMode.Store(int32(LoggingOnFail))

	return c
}

// Authenticate installs token data as the active session.
func (c *Client) Authenticate(data *OAuthData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.auth == nil || c.auth.Userless != data.Userless {
		c.userName = ""
	}

	c.auth = data

	c.logger.Debug("client authenticated",
		slog.Bool("userless", data.Userless),
		slog.Time("expiry", data.Token.Expiry),
	)
}

// Deauthenticate drops the active session.
func (c *Client) Deauthenticate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.auth = nil
	c.userName = ""
}

// IsAuthenticated reports whether any token is installed, expired or not.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.auth != nil && c.auth.Token != nil
}

// HasActiveUserContext reports whether the installed token belongs to a
// user rather than to the application alone.
func (c *Client) HasActiveUserContext() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.auth != nil && !c.auth.Userless
}

// OAuthData returns the installed token data, or nil.
func (c *Client) OAuthData() *OAuthData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.auth
}

// AuthenticatedUser returns the cached user name of the active user
// session. Empty until Me has succeeded once for this session.
func (c *Client) AuthenticatedUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.userName
}

// LoggingMode returns the current request logging mode.
func (c *Client) LoggingMode() LoggingMode {
	return LoggingMode(c.loggingMode.Load())
}

// SetLoggingMode changes request logging for all subsequent requests.
func (c *Client) SetLoggingMode(m LoggingMode) {
	c.loggingMode.Store(int32(m))
}

// Do executes an authenticated HTTP request against the OAuth API.
// The path is appended to the client's base URL. For non-nil bodies,
// Content-Type is set to application/x-www-form-urlencoded.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	c.mu.RLock()
	auth := c.auth
	c.mu.RUnlock()

	if auth == nil || auth.Token == nil {
		return nil, ErrNotAuthenticated
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("reddit: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("reddit: creating request: %w", err)
	}

	auth.Token.SetAuthHeader(req)
	req.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if c.LoggingMode() == LoggingAlways {
		c.logger.Debug("sending request",
			slog.String("method", method),
			slog.String("path", path),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("reddit: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("reddit: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if c.LoggingMode() == LoggingAlways {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)
		}

		return resp, nil
	}

	return nil, c.errorResponse(method, path, resp)
}

// errorResponse drains and closes a non-2xx response and converts it into
// an APIError.
func (c *Client) errorResponse(method, path string, resp *http.Response) error {
	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	if c.LoggingMode() != LoggingNever {
		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dankgo/dank/internal/auth"
	"github.com/dankgo/dank/internal/config"
	"github.com/dankgo/dank/internal/credstore"
	"github.com/dankgo/dank/internal/reddit"
)

// Endpoints used by every command. Tests point them at httptest servers.
var (
	apiBaseURL = reddit.DefaultBaseURL
	wwwBaseURL = reddit.DefaultWWWURL
)

// RedditSession wires the API client, token authority, auth guard and
// session facade for one command invocation.
type RedditSession struct {
	Client    *reddit.Client // API calls (config timeout)
	Transfer  *reddit.Client // media downloads (no timeout)
	Authority *auth.Authority
	Guard     *auth.Guard
	Session   *auth.Session
	Backend   string

	closeStore func() error
}

// NewRedditSession builds a RedditSession from the resolved config. The
// credential store is opened here; callers must Close the session.
func NewRedditSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*RedditSession, error) {
	if err := config.ValidateForAuth(cfg); err != nil {
		return nil, err
	}

	mode, err := reddit.ParseLoggingMode(cfg.Logging.RequestLogging)
	if err != nil {
		return nil, err
	}

	deviceID, err := cfg.DeviceID(config.DefaultDataDir())
	if err != nil {
		return nil, err
	}

	store, closeStore, err := credstore.Open(ctx, credstore.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.StoragePath(),
		DSN:     cfg.Storage.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	client := reddit.NewClient(apiBaseURL, &http.Client{Timeout: cfg.Timeout()}, logger,
		cfg.App.UserAgent, cfg.Network.RequestsPerMinute)
	client.SetLoggingMode(mode)

	transfer := reddit.NewClient(apiBaseURL, &http.Client{}, logger, cfg.App.UserAgent, 0)

	helper := reddit.NewOAuthHelper(client, wwwBaseURL)

	userless := reddit.UserlessAppCredentials{
		ClientID: cfg.App.ClientID,
		DeviceID: deviceID,
	}

	installed := reddit.InstalledAppCredentials{
		ClientID:    cfg.App.ClientID,
		RedirectURI: cfg.App.RedirectURI,
	}

	authority := auth.NewAuthority(client, helper, store, userless, installed, logger)
	guard := auth.NewGuard(authority, logger)

	logger.Debug("reddit session ready",
		slog.String("backend", cfg.Storage.Backend),
		slog.String("request_logging", mode.String()),
	)

	return &RedditSession{
		Client:     client,
		Transfer:   transfer,
		Authority:  authority,
		Guard:      guard,
		Session:    auth.NewSession(authority, guard, client, logger),
		Backend:    cfg.Storage.Backend,
		closeStore: closeStore,
	}, nil
}

// Close releases the credential store.
func (s *RedditSession) Close() error {
	return s.closeStore()
}

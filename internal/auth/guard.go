package auth

import (
	"context"
	"log/slog"
)

// Authorizer is the part of Authority the Guard depends on.
type Authorizer interface {
	EnsureReady(ctx context.Context) error
	Refresh(ctx context.Context, forUserSession bool) error
	IsUserSessionActive() bool
}

// Guard runs API operations with a ready token and recovers from a single
// auth-expiry failure per call.
type Guard struct {
	authority Authorizer
	logger    *slog.Logger
}

// NewGuard creates a Guard backed by authority.
func NewGuard(authority Authorizer, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{authority: authority, logger: logger}
}

// WithAuth runs op once the authority is ready. If op fails with an
// auth-expiry error, the token is refreshed for the current session kind
// and op runs exactly once more; its second outcome is returned as is. A
// failed refresh is returned instead of op's error. Every other error from
// op passes through untouched.
func WithAuth[T any](ctx context.Context, g *Guard, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := g.authority.EnsureReady(ctx); err != nil {
		return zero, err
	}

	result, err := op(ctx)
	if err == nil || !IsAuthExpiry(err) {
		return result, err
	}

	forUser := g.authority.IsUserSessionActive()
	g.logger.Info("access token rejected, refreshing",
		slog.Bool("user_session", forUser),
	)

	if rerr := g.authority.Refresh(ctx, forUser); rerr != nil {
		return zero, rerr
	}

	return op(ctx)
}

// Do is WithAuth for operations without a result value.
func (g *Guard) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := WithAuth(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}

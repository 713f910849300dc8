// Package credstore persists OAuth2 tokens per account context. Backends:
// one file per account, SQLite, Postgres, and an in-memory map for tests
// and ephemeral sessions. All backends are safe for concurrent use.
package credstore

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// AccountContext names the session a token belongs to.
type AccountContext string

// The two account contexts of a single-account client.
const (
	AccountUserless AccountContext = "userless"
	AccountUser     AccountContext = "user"
)

func (a AccountContext) String() string {
	return string(a)
}

// Store durably persists tokens keyed by account context.
type Store interface {
	// Load returns the stored token, or (nil, nil) when none exists.
	Load(ctx context.Context, account AccountContext) (*oauth2.Token, error)
	Save(ctx context.Context, account AccountContext, tok *oauth2.Token) error
	Clear(ctx context.Context, account AccountContext) error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string
	// Path is the token directory (file) or database file (sqlite).
	Path string
	// DSN is the connection string (postgres).
	DSN string
}

// Open builds the configured backend. The returned close function releases
// database handles and is a no-op for file and memory stores.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Path), noop, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(ctx, opts.Path)
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil
	case BackendPostgres:
		s, err := NewPostgresStore(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("credstore: unknown backend %q", opts.Backend)
	}
}

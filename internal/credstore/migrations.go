package credstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// runMigrations applies all pending schema migrations for the dialect.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) (int, error) {
	subFS, err := fs.Sub(migrationsFS, "migrations/"+dir)
	if err != nil {
		return 0, fmt.Errorf("credstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, subFS)
	if err != nil {
		return 0, fmt.Errorf("credstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("credstore: running migrations: %w", err)
	}

	return len(results), nil
}

package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"golang.org/x/oauth2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// SQLiteStore keeps tokens in an embedded SQLite database in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies migrations.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("credstore: creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("credstore: open sqlite: %w", err)
	}

	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("credstore: %s: %w", pragma, err)
		}
	}

	if _, err := runMigrations(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, account AccountContext) (*oauth2.Token, error) {
	var (
		tok    oauth2.Token
		expiry int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, token_type, expiry_unix FROM credentials WHERE account = ?`,
		account.String(),
	).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("credstore: loading %s token: %w", account, err)
	}

	if expiry != 0 {
		tok.Expiry = time.Unix(expiry, 0).UTC()
	}

	return &tok, nil
}

func (s *SQLiteStore) Save(ctx context.Context, account AccountContext, tok *oauth2.Token) error {
	var expiry int64
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (account, access_token, refresh_token, token_type, expiry_unix, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   token_type = excluded.token_type,
		   expiry_unix = excluded.expiry_unix,
		   updated_at = excluded.updated_at`,
		account.String(), tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("credstore: saving %s token: %w", account, err)
	}

	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, account AccountContext) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE account = ?`, account.String()); err != nil {
		return fmt.Errorf("credstore: clearing %s token: %w", account, err)
	}

	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

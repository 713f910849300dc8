package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/oauth2"
)

// PostgresStore keeps tokens in a shared Postgres database so several host
// processes can reuse one session.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and applies migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("credstore: postgres backend requires a dsn")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("credstore: connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("credstore: pinging postgres: %w", err)
	}

	// The *sql.DB borrows connections from pool and keeps no idle ones.
	db := stdlib.OpenDBFromPool(pool)

	if _, err := runMigrations(ctx, db, goose.DialectPostgres, "postgres"); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, account AccountContext) (*oauth2.Token, error) {
	var (
		tok    oauth2.Token
		expiry *time.Time
	)

	err := s.pool.QueryRow(ctx,
		`SELECT access_token, refresh_token, token_type, expiry FROM credentials WHERE account = $1`,
		account.String(),
	).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("credstore: loading %s token: %w", account, err)
	}

	if expiry != nil {
		tok.Expiry = expiry.UTC()
	}

	return &tok, nil
}

func (s *PostgresStore) Save(ctx context.Context, account AccountContext, tok *oauth2.Token) error {
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		expiry = &tok.Expiry
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO credentials (account, access_token, refresh_token, token_type, expiry, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (account) DO UPDATE SET
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   token_type = EXCLUDED.token_type,
		   expiry = EXCLUDED.expiry,
		   updated_at = now()`,
		account.String(), tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry,
	)
	if err != nil {
		return fmt.Errorf("credstore: saving %s token: %w", account, err)
	}

	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, account AccountContext) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM credentials WHERE account = $1`, account.String()); err != nil {
		return fmt.Errorf("credstore: clearing %s token: %w", account, err)
	}

	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}

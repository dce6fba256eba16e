// Package postgres provides a PostgreSQL-backed implementation of
// [session.Store] for deployments that need sessions to survive restarts or
// be shared across replicas.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"github.com/schedvox/schedvox/internal/session"
)

// Compile-time assertion that Store satisfies session.Store.
var _ session.Store = (*Store)(nil)

// schema creates the sessions table. Details and tokens are stored as jsonb
// so the row shape does not chase every detail-field addition.
const schema = `
CREATE TABLE IF NOT EXISTS scheduling_sessions (
    id         text PRIMARY KEY,
    details    jsonb NOT NULL DEFAULT '{}'::jsonb,
    status     text NOT NULL,
    timezone   text NOT NULL,
    tokens     jsonb,
    created_at timestamptz NOT NULL
)`

// Store persists sessions in a scheduling_sessions table.
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn, verifies the connection, and ensures
// the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("session store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("session store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("session store: ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create implements [session.Store.Create].
func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	details, tokens, err := encode(sess)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO scheduling_sessions (id, details, status, timezone, tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.pool.Exec(ctx, q, sess.ID, details, string(sess.Status), sess.Timezone, tokens, sess.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return session.ErrDuplicateID
		}
		return fmt.Errorf("session store: create: %w", err)
	}
	return nil
}

// Get implements [session.Store.Get].
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	const q = `
		SELECT id, details, status, timezone, tokens, created_at
		FROM   scheduling_sessions
		WHERE  id = $1`

	var (
		sess    session.Session
		status  string
		details []byte
		tokens  []byte
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&sess.ID, &details, &status, &sess.Timezone, &tokens, &sess.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session store: get: %w", err)
	}

	sess.Status = session.Status(status)
	if err := json.Unmarshal(details, &sess.Details); err != nil {
		return nil, fmt.Errorf("session store: decode details: %w", err)
	}
	if len(tokens) > 0 {
		sess.Tokens = &oauth2.Token{}
		if err := json.Unmarshal(tokens, sess.Tokens); err != nil {
			return nil, fmt.Errorf("session store: decode tokens: %w", err)
		}
	}
	return &sess, nil
}

// Put implements [session.Store.Put].
func (s *Store) Put(ctx context.Context, sess *session.Session) error {
	details, tokens, err := encode(sess)
	if err != nil {
		return err
	}

	const q = `
		UPDATE scheduling_sessions
		SET    details = $2, status = $3, timezone = $4, tokens = $5
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, sess.ID, details, string(sess.Status), sess.Timezone, tokens)
	if err != nil {
		return fmt.Errorf("session store: put: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// encode marshals the jsonb columns of sess.
func encode(sess *session.Session) (details, tokens []byte, err error) {
	details, err = json.Marshal(sess.Details)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: encode details: %w", err)
	}
	if sess.Tokens != nil {
		tokens, err = json.Marshal(sess.Tokens)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: encode tokens: %w", err)
		}
	}
	return details, tokens, nil
}

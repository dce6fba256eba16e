package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session ID is absent from the store.
var ErrNotFound = errors.New("session not found")

// ErrDuplicateID is returned by Create when the ID already exists.
var ErrDuplicateID = errors.New("session id already exists")

// Store is the external key-value mapping from session ID to session state.
//
// Implementations must be safe for concurrent use across different session
// IDs. Serialising turns for a single ID is the caller's job.
type Store interface {
	// Create inserts a new session. Returns [ErrDuplicateID] if the ID is taken.
	Create(ctx context.Context, s *Session) error

	// Get returns the session for id, or [ErrNotFound].
	Get(ctx context.Context, id string) (*Session, error)

	// Put overwrites the stored state for the session's ID.
	// Returns [ErrNotFound] if the session was never created.
	Put(ctx context.Context, s *Session) error
}

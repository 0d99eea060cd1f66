// Package storage persists engine sessions between runs.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

// ErrSessionNotFound is returned when no session is stored under an id.
var ErrSessionNotFound = errors.New("session not found")

// Store saves and loads sessions.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	SaveSession(ctx context.Context, sess *engine.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*engine.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	// ListSessions returns stored session ids, most recently saved first.
	ListSessions(ctx context.Context) ([]uuid.UUID, error)
}

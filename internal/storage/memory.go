package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

// MemoryStore keeps serialized sessions in process memory. Sessions are
// stored as JSON so loads never alias the caller's session.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]byte
	order    []uuid.UUID // oldest save first
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID][]byte)}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SaveSession(ctx context.Context, sess *engine.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = data
	m.order = append(slices.DeleteFunc(m.order, func(id uuid.UUID) bool { return id == sess.ID }), sess.ID)
	return nil
}

func (m *MemoryStore) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	var sess engine.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.order = slices.DeleteFunc(m.order, func(other uuid.UUID) bool { return other == id })
	return nil
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := slices.Clone(m.order)
	slices.Reverse(ids)
	return ids, nil
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/domain"
)

// Store is the durable mapping from session id to authenticated identity.
// Implementations must be safe for concurrent use: multiple units of work
// authenticate and resolve sessions simultaneously.
type Store interface {
	Put(ctx context.Context, sess *domain.Session) error
	// Get returns nil, nil when the session is absent or expired.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Delete is idempotent: deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

func (s *MemoryStore) Put(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if sess.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

package cache

import (
	"context"
	"sync"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

// InMemoryInstallSessionStore implements InstallSessionStore using an in-memory map.
// Expired sessions are dropped when the next session is created.
type InMemoryInstallSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.InstallSession
	now      func() time.Time
}

var _ ports.InstallSessionStore = (*InMemoryInstallSessionStore)(nil)

// NewInMemoryInstallSessionStore creates an empty session store
func NewInMemoryInstallSessionStore() *InMemoryInstallSessionStore {
	return &InMemoryInstallSessionStore{
		sessions: make(map[string]domain.InstallSession),
		now:      time.Now,
	}
}

func (s *InMemoryInstallSessionStore) Create(ctx context.Context, session *domain.InstallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for state, existing := range s.sessions {
		if existing.Expired(now) {
			delete(s.sessions, state)
		}
	}
	s.sessions[session.State] = *session
	return nil
}

func (s *InMemoryInstallSessionStore) Consume(ctx context.Context, state string) (*domain.InstallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[state]
	if !ok {
		return nil, nil
	}
	delete(s.sessions, state)
	if session.Expired(s.now()) {
		return nil, nil
	}
	return &session, nil
}

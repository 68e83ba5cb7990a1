package session

import (
	"context"
	"sync"

	"github.com/dkamau/elimu/core/auth"
)

type inMemStore struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session

	// Down simulates an unreachable backing store.
	Down bool
}

var _ auth.SessionStore = (*inMemStore)(nil)

func NewInMemStore() *inMemStore {
	return &inMemStore{sessions: make(map[string]auth.Session)}
}

func (store *inMemStore) Create(ctx context.Context, s auth.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.Down {
		return auth.ErrStoreUnavailable
	}
	store.sessions[s.ID] = s
	return nil
}

func (store *inMemStore) Get(ctx context.Context, id string) (auth.Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	if store.Down {
		return auth.Session{}, auth.ErrStoreUnavailable
	}
	s, ok := store.sessions[id]
	if !ok {
		return auth.Session{}, auth.ErrNoSession
	}
	return s, nil
}

func (store *inMemStore) Delete(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.Down {
		return auth.ErrStoreUnavailable
	}
	delete(store.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (store *inMemStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.sessions)
}

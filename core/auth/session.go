package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
)

// Session is a server-held record binding an opaque identifier to an
// identity snapshot. Created at login, destroyed at logout or expiry.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// SessionStore persists sessions keyed by their opaque ID.
// Get returns ErrNoSession for a missing record and ErrStoreUnavailable
// when the backing store cannot be reached.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// NewSessionID returns a cryptographically random opaque identifier
// (256 bits, base64url).
func NewSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating session id")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SessionManager owns the session lifecycle on top of a SessionStore.
// Unlike the token path, Destroy here is authoritative and immediate.
type SessionManager struct {
	store   SessionStore
	ttl     time.Duration
	timeout time.Duration

	nowFunc func() time.Time // mockable
}

func NewSessionManager(store SessionStore, ttl, timeout time.Duration) *SessionManager {
	return &SessionManager{
		store:   store,
		ttl:     ttl,
		timeout: timeout,
		nowFunc: time.Now,
	}
}

// Create persists a new session for ident and returns it.
func (m *SessionManager) Create(ctx context.Context, ident Identity) (Session, error) {
	id, err := NewSessionID()
	if err != nil {
		return Session{}, err
	}
	s := Session{
		ID:        id,
		Identity:  ident,
		ExpiresAt: m.nowFunc().Add(m.ttl),
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.store.Create(ctx, s); err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}
	return s, nil
}

// Lookup returns the stored identity if the session is present and
// unexpired; ErrNoSession otherwise.
func (m *SessionManager) Lookup(ctx context.Context, id string) (Identity, error) {
	if id == "" {
		return Identity{}, ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	if s.Expired(m.nowFunc()) {
		// stale record still in the store; drop it eagerly
		_ = m.store.Delete(ctx, id)
		return Identity{}, ErrNoSession
	}
	return s.Identity, nil
}

// Destroy unconditionally removes the session. Destroying an absent
// session is not an error.
func (m *SessionManager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.store.Delete(ctx, id)
}

// TTL reports the configured session lifetime.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

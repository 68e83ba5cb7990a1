package auth

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Path identifies which verification mechanism handles a request.
type Path int

const (
	// SessionPath verifies against the server-held session store.
	SessionPath Path = iota
	// TokenPath verifies a self-contained signed credential.
	TokenPath
)

func (p Path) String() string {
	if p == TokenPath {
		return "token"
	}
	return "session"
}

// ClassifyClient maps a declared client-profile string to exactly one
// verification path. It is pure and deterministic: native and headless
// clients hold their own credential, browsers get a server-held session.
func ClassifyClient(profile string) Path {
	profile = strings.ToLower(strings.TrimSpace(profile))
	for _, prefix := range []string{"mobile", "cli", "service"} {
		if strings.HasPrefix(profile, prefix) {
			return TokenPath
		}
	}
	return SessionPath
}

// Credentials is the request metadata the broker classifies. Token and
// SessionID may both be present; only the one selected by ClientProfile
// is ever examined.
type Credentials struct {
	ClientProfile string
	Token         string
	SessionID     string
}

// Broker routes each request to the token or session verifier and
// produces one normalized Identity, or a classified failure.
type Broker struct {
	tokens   *TokenAuthority
	sessions *SessionManager

	retryBackoff time.Duration
	sleepFunc    func(time.Duration) // mockable
}

func NewBroker(tokens *TokenAuthority, sessions *SessionManager) *Broker {
	return &Broker{
		tokens:       tokens,
		sessions:     sessions,
		retryBackoff: 150 * time.Millisecond,
		sleepFunc:    time.Sleep,
	}
}

// Authenticate applies the classifier and verifies the selected
// credential; it never attempts both paths. Session-store failures are
// retried once with a short backoff and then surfaced as
// ErrUnauthenticated (fail closed), never as success.
func (b *Broker) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	switch ClassifyClient(creds.ClientProfile) {
	case TokenPath:
		if creds.Token == "" {
			return Identity{}, ErrUnauthenticated
		}
		return b.tokens.Verify(creds.Token)

	default: // SessionPath
		ident, err := b.sessions.Lookup(ctx, creds.SessionID)
		if errors.Cause(err) == ErrStoreUnavailable {
			b.sleepFunc(b.retryBackoff)
			ident, err = b.sessions.Lookup(ctx, creds.SessionID)
		}
		if err != nil {
			if errors.Cause(err) == ErrStoreUnavailable {
				return Identity{}, errors.Wrap(ErrUnauthenticated, err.Error())
			}
			return Identity{}, err
		}
		return ident, nil
	}
}

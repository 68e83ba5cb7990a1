// Package auth implements the dual-path authentication core: a stateless
// signed bearer credential and a server-held session, both converging to
// one normalized Identity so authorization is written once.
package auth

import "errors"

// Identity is the normalized identity context produced by either
// verification path. Downstream code never learns which path produced it.
type Identity struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

func (id Identity) IsZero() bool { return id.ID == "" }

var (
	// ErrUnauthenticated: no usable credential was presented, or the
	// backing store could not confirm one (fail closed).
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden: the identity is valid but its role does not grant access.
	ErrForbidden = errors.New("permission denied")

	// ErrInvalidToken: signature, issuer, audience or expiry check failed
	// on the token path. Deterministic for a given credential; never retried.
	ErrInvalidToken = errors.New("invalid or expired credential")

	// ErrNoSession: missing or expired session on the session path.
	ErrNoSession = errors.New("no active session")

	// ErrStoreUnavailable: the session store could not be reached.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

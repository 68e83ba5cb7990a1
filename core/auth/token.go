package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims represents the identity snapshot transmitted via a signed credential.
type Claims struct {
	jwt.RegisteredClaims
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// TokenAuthority mints and verifies self-contained signed credentials.
// A minted credential stays valid until its expiry; there is no revocation
// list, so logout on the token path is a client-side discard only.
type TokenAuthority struct {
	secretKey  []byte
	issuer     string
	audience   string
	expiration time.Duration

	nowFunc func() time.Time // mockable
}

func NewTokenAuthority(secretKey []byte, issuer, audience string, expiration time.Duration) *TokenAuthority {
	return &TokenAuthority{
		secretKey:  secretKey,
		issuer:     issuer,
		audience:   audience,
		expiration: expiration,
		nowFunc:    time.Now,
	}
}

// Issue embeds the identity snapshot plus issued-at, expiry, issuer and
// audience claims, and returns the signed credential string.
func (ta *TokenAuthority) Issue(ident Identity) (string, error) {
	now := ta.nowFunc()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ta.issuer,
			Subject:   ident.ID,
			Audience:  jwt.ClaimStrings{ta.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ta.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name:          ident.Name,
		Email:         ident.Email,
		Role:          ident.Role,
		EmailVerified: ident.EmailVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ta.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Verify checks signature integrity, issuer, audience and expiry, in that
// order, short-circuiting on the first failure. It is a pure function of
// the credential and the current time; it never touches a store.
func (ta *TokenAuthority) Verify(credential string) (Identity, error) {
	claims := new(Claims)
	_, err := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(), // claim checks are ordered below
	).ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		return ta.secretKey, nil
	})
	if err != nil {
		return Identity{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	if claims.Issuer != ta.issuer {
		return Identity{}, errors.Wrap(ErrInvalidToken, "unknown issuer")
	}
	if !claimsHaveAudience(claims, ta.audience) {
		return Identity{}, errors.Wrap(ErrInvalidToken, "unknown audience")
	}
	if claims.ExpiresAt == nil || ta.nowFunc().After(claims.ExpiresAt.Time) {
		return Identity{}, errors.Wrap(ErrInvalidToken, "credential expired")
	}

	return Identity{
		ID:            claims.Subject,
		Name:          claims.Name,
		Email:         claims.Email,
		Role:          claims.Role,
		EmailVerified: claims.EmailVerified,
	}, nil
}

func claimsHaveAudience(claims *Claims, audience string) bool {
	for _, aud := range claims.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}

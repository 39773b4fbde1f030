// Package jwtlocal issues and verifies HS256 JWTs for AuthService's local
// sign-in mode, where this server is its own identity provider.
package jwtlocal

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/numeraire/swissknife-go/internal/store"
)

// ErrInvalidToken is returned for any signature, claim, or expiry failure.
var ErrInvalidToken = errors.New("jwtlocal: invalid token")

// Claims is the payload this server signs: sub plus the full permission set
// a local sign-in grants.
type Claims struct {
	jwt.RegisteredClaims
	Permissions []store.Permission `json:"permissions"`
}

// Issuer signs and verifies local JWTs with a single shared secret.
type Issuer struct {
	secret     []byte
	issuer     string
	audience   string
	expiration time.Duration
}

// New builds an Issuer.
func New(secret, issuer, audience string, expiration time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, audience: audience, expiration: expiration}
}

// Sign emits a JWT for sub carrying permissions, valid for the configured
// expiration.
func (i *Issuer) Sign(sub string, permissions []store.Permission) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiration)),
		},
		Permissions: permissions,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify validates signature, issuer, audience, and expiry, returning the
// decoded claims.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Package oauth2 verifies externally-issued JWTs against a JWKS endpoint,
// used when AuthService runs in OAuth2 mode instead of local sign-in.
package oauth2

import (
	"context"
	"errors"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any signature, claim, or expiry failure.
var ErrInvalidToken = errors.New("oauth2: invalid token")

// Verifier validates tokens against a JWKS that refreshes itself on the
// configured interval and on unknown-kid errors.
type Verifier struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience string
}

// New fetches the JWKS at jwksURL and starts its background refresh loop.
func New(ctx context.Context, jwksURL, issuer, audience string, refreshInterval time.Duration) (*Verifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:                 ctx,
		RefreshInterval:     refreshInterval,
		RefreshUnknownKID:   true,
		RefreshErrorHandler: func(err error) {},
	})
	if err != nil {
		return nil, err
	}
	return &Verifier{jwks: jwks, issuer: issuer, audience: audience}, nil
}

// Claims is the subset of an external JWT's payload AuthService consumes.
type Claims struct {
	jwt.RegisteredClaims
}

// Verify validates signature (via the cached JWKS), issuer, audience, and
// expiry, returning the decoded claims.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.jwks.Keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Close stops the JWKS background refresh goroutine.
func (v *Verifier) Close() {
	v.jwks.EndBackground()
}

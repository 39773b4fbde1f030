package oauth2

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jwkSet is the minimal JWKS document shape keyfunc.Get expects to fetch.
type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func b64url(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func startJWKSServer(t *testing.T, key *rsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()
	set := jwkSet{Keys: []jwk{{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   b64url(key.PublicKey.N.Bytes()),
		E:   b64url(bigEndianBytes(key.PublicKey.E)),
	}}}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
}

func bigEndianBytes(e int) []byte {
	if e == 65537 {
		return []byte{0x01, 0x00, 0x01}
	}
	out := []byte{byte(e >> 16), byte(e >> 8), byte(e)}
	return out
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid, issuer, audience string, expiry time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifier_VerifiesTokenSignedAgainstJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := startJWKSServer(t, key, "test-key")
	defer srv.Close()

	verifier, err := New(context.Background(), srv.URL, "wallet-api", "wallet-clients", time.Minute)
	require.NoError(t, err)
	defer verifier.Close()

	token := signRS256(t, key, "test-key", "wallet-api", "wallet-clients", time.Hour)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "wallet-api", claims.Issuer)
}

func TestVerifier_RejectsWrongIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := startJWKSServer(t, key, "test-key")
	defer srv.Close()

	verifier, err := New(context.Background(), srv.URL, "wallet-api", "wallet-clients", time.Minute)
	require.NoError(t, err)
	defer verifier.Close()

	token := signRS256(t, key, "test-key", "someone-else", "wallet-clients", time.Hour)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := startJWKSServer(t, key, "test-key")
	defer srv.Close()

	verifier, err := New(context.Background(), srv.URL, "wallet-api", "wallet-clients", time.Minute)
	require.NoError(t, err)
	defer verifier.Close()

	token := signRS256(t, key, "test-key", "wallet-api", "wallet-clients", -time.Hour)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsUnknownKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := startJWKSServer(t, key, "test-key")
	defer srv.Close()

	verifier, err := New(context.Background(), srv.URL, "wallet-api", "wallet-clients", time.Minute)
	require.NoError(t, err)
	defer verifier.Close()

	token := signRS256(t, key, "some-other-kid", "wallet-api", "wallet-clients", time.Hour)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

package jwtlocal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/store"
)

func TestSignAndVerify_RoundTrip(t *testing.T) {
	issuer := New("s3cret", "swissknife", "swissknife-wallet", time.Hour)

	token, err := issuer.Sign("alice", []store.Permission{store.PermissionReadWallet})
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []store.Permission{store.PermissionReadWallet}, claims.Permissions)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	issuer := New("s3cret", "swissknife", "swissknife-wallet", time.Hour)
	token, err := issuer.Sign("alice", nil)
	require.NoError(t, err)

	other := New("different-secret", "swissknife", "swissknife-wallet", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsWrongIssuer(t *testing.T) {
	issuer := New("s3cret", "swissknife", "swissknife-wallet", time.Hour)
	token, err := issuer.Sign("alice", nil)
	require.NoError(t, err)

	other := New("s3cret", "someone-else", "swissknife-wallet", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	issuer := New("s3cret", "swissknife", "swissknife-wallet", -time.Hour)
	token, err := issuer.Sign("alice", nil)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	issuer := New("s3cret", "swissknife", "swissknife-wallet", time.Hour)
	_, err := issuer.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

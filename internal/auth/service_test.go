package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/numeraire/swissknife-go/internal/auth/jwtlocal"
	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/store/storetest"
)

func newLocalService(t *testing.T) (*Service, *jwtlocal.Issuer) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)

	issuer := jwtlocal.New("test-secret", "swissknife", "swissknife-wallet", time.Hour)
	cfg := config.SecurityConfig{
		AuthMode: config.AuthModeLocal,
		JWT: config.JWTConfig{
			PasswordHash:     string(hash),
			DefaultWalletSub: "operator",
		},
	}
	svc := New(storetest.New(), cfg, issuer, nil)
	return svc, issuer
}

func TestSignIn(t *testing.T) {
	svc, _ := newLocalService(t)

	t.Run("correct password issues a token", func(t *testing.T) {
		token, err := svc.SignIn(context.Background(), "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.SignIn(context.Background(), "wrong-password")
		assert.Error(t, err)
	})
}

func TestAuthenticateJWT_ProvisionsOnFirstSight(t *testing.T) {
	svc, issuer := newLocalService(t)
	ctx := context.Background()

	token, err := issuer.Sign("new-user-sub", []store.Permission{store.PermissionReadWallet})
	require.NoError(t, err)

	principal, err := svc.AuthenticateJWT(ctx, token)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, principal.WalletID)
	assert.Equal(t, []store.Permission{store.PermissionReadWallet}, principal.Permissions)

	// Second authentication for the same sub resolves the same wallet rather
	// than provisioning a new one.
	again, err := svc.AuthenticateJWT(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, principal.WalletID, again.WalletID)
}

func TestAuthenticateJWT_InvalidToken(t *testing.T) {
	svc, _ := newLocalService(t)
	_, err := svc.AuthenticateJWT(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}

func TestCreateApiKey_RejectsEscalation(t *testing.T) {
	svc, _ := newLocalService(t)

	_, err := svc.CreateApiKey(context.Background(), CreateApiKeyParams{
		WalletID:             uuid.New(),
		Name:                 "escalating key",
		RequestedPermissions: []store.Permission{store.PermissionFullAccess},
		CallerPermissions:    []store.Permission{store.PermissionReadWallet},
	})
	assert.Error(t, err)
}

func TestCreateApiKey_AuthenticatesBack(t *testing.T) {
	svc, _ := newLocalService(t)
	walletID := uuid.New()

	result, err := svc.CreateApiKey(context.Background(), CreateApiKeyParams{
		WalletID:             walletID,
		Name:                 "read-only key",
		RequestedPermissions: []store.Permission{store.PermissionReadWallet},
		CallerPermissions:    store.AllPermissions,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	raw, err := base64.StdEncoding.DecodeString(result.Token)
	require.NoError(t, err)

	principal, err := svc.AuthenticateApiKey(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, walletID, principal.WalletID)
	assert.Equal(t, []store.Permission{store.PermissionReadWallet}, principal.Permissions)
}

func TestAuthenticateApiKey_Expired(t *testing.T) {
	fakeStore := storetest.New()
	svc := New(fakeStore, config.SecurityConfig{AuthMode: config.AuthModeLocal}, nil, nil)

	raw := []byte("a fixed 32-byte raw api key value")
	hash := sha256.Sum256(raw)
	past := time.Now().Add(-time.Hour)

	require.NoError(t, fakeStore.ApiKeys().Insert(context.Background(), nil, &store.ApiKey{
		ID:          uuid.New(),
		UserID:      uuid.New().String(),
		Name:        "expired key",
		KeyHash:     hash[:],
		Permissions: store.PermissionSet{store.PermissionReadWallet},
		ExpiresAt:   &past,
	}))

	_, err := svc.AuthenticateApiKey(context.Background(), raw)
	assert.Error(t, err)
}

func TestAuthenticateApiKey_Unknown(t *testing.T) {
	svc, _ := newLocalService(t)
	_, err := svc.AuthenticateApiKey(context.Background(), []byte("never issued"))
	assert.Error(t, err)
}

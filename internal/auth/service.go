// Package auth implements AuthService and ApiKeyService: local and OAuth2
// JWT authentication, first-sight account provisioning, and API-key
// issuance/verification.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/auth/jwtlocal"
	"github.com/numeraire/swissknife-go/internal/auth/oauth2"
	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/store"
)

const apiKeyBytes = 32

// Principal is the resolved identity behind a request, regardless of which
// authentication scheme produced it.
type Principal struct {
	WalletID    uuid.UUID
	Permissions []store.Permission
}

// Service implements AuthService and ApiKeyService.
type Service struct {
	store store.Store
	cfg   config.SecurityConfig
	local *jwtlocal.Issuer // nil unless cfg.AuthMode == local
	oauth *oauth2.Verifier // nil unless cfg.AuthMode == oauth2
}

// New builds a Service. Exactly one of local/oauth should be non-nil,
// matching cfg.AuthMode. With both nil (as for AuthModeBypass), SignIn and
// AuthenticateJWT reject every request.
func New(s store.Store, cfg config.SecurityConfig, local *jwtlocal.Issuer, oauth *oauth2.Verifier) *Service {
	return &Service{store: s, cfg: cfg, local: local, oauth: oauth}
}

// SignIn verifies password against the configured bcrypt hash and, on
// success, issues a JWT for the configured default wallet sub carrying
// every permission. Only valid in local mode.
func (s *Service) SignIn(ctx context.Context, password string) (string, error) {
	if s.cfg.AuthMode != config.AuthModeLocal || s.local == nil {
		return "", apperrors.Authentication("sign_in is only supported in local auth mode")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.JWT.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.Authentication("invalid password")
	}
	return s.local.Sign(s.cfg.JWT.DefaultWalletSub, store.AllPermissions)
}

// AuthenticateJWT validates token per the configured mode and resolves (or
// provisions, on first sight of sub) the Account+Wallet it identifies.
func (s *Service) AuthenticateJWT(ctx context.Context, token string) (*Principal, error) {
	var sub string
	var permissions []store.Permission

	switch s.cfg.AuthMode {
	case config.AuthModeLocal:
		if s.local == nil {
			return nil, apperrors.New(apperrors.KindConfig, "local auth mode is not configured")
		}
		claims, err := s.local.Verify(token)
		if err != nil {
			return nil, apperrors.Authentication("invalid token")
		}
		sub = claims.Subject
		permissions = claims.Permissions

	case config.AuthModeOAuth2:
		if s.oauth == nil {
			return nil, apperrors.New(apperrors.KindConfig, "oauth2 auth mode is not configured")
		}
		claims, err := s.oauth.Verify(token)
		if err != nil {
			return nil, apperrors.Authentication("invalid token")
		}
		sub = claims.Subject
		permissions = store.AllPermissions // external IdP grants the full scope; fine-grained
		// per-caller delegation isn't modeled.

	default:
		return nil, apperrors.New(apperrors.KindConfig, "unsupported auth mode")
	}

	wallet, err := s.resolveOrProvision(ctx, sub)
	if err != nil {
		return nil, err
	}
	return &Principal{WalletID: wallet.ID, Permissions: permissions}, nil
}

// resolveOrProvision implements "if first sight of sub, create Account +
// default Wallet": looks up the Account by sub, creating it (plus a
// matching Wallet in the configured default currency) if absent.
func (s *Service) resolveOrProvision(ctx context.Context, sub string) (*store.Wallet, error) {
	account, err := s.store.Accounts().FindBySub(ctx, sub)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	if account == nil {
		account = &store.Account{ID: uuid.New(), Sub: sub, CreatedAt: now, UpdatedAt: now}
		if err := s.store.Accounts().Insert(ctx, nil, account); err != nil {
			return nil, err
		}
	}

	wallet, err := s.store.Wallets().FindByAccountAndCurrency(ctx, account.ID, store.CurrencyBitcoin)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if wallet == nil {
		wallet = &store.Wallet{ID: uuid.New(), AccountID: account.ID, Currency: store.CurrencyBitcoin, CreatedAt: now, UpdatedAt: now}
		if err := s.store.Wallets().Insert(ctx, nil, wallet); err != nil {
			return nil, err
		}
	}
	return wallet, nil
}

// AuthenticateApiKey hashes raw, looks it up, and resolves its principal.
func (s *Service) AuthenticateApiKey(ctx context.Context, raw []byte) (*Principal, error) {
	hash := sha256.Sum256(raw)
	key, err := s.store.ApiKeys().FindByKeyHash(ctx, hash[:])
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.Authentication("invalid api key")
		}
		return nil, err
	}
	if key.Expired(time.Now().UTC()) {
		return nil, apperrors.Authentication("api key expired")
	}

	walletID, err := uuid.Parse(key.UserID)
	if err != nil {
		return nil, apperrors.Inconsistency("api key user_id is not a wallet id")
	}
	return &Principal{WalletID: walletID, Permissions: key.Permissions}, nil
}

// CreateApiKeyParams are the inputs to CreateApiKey.
type CreateApiKeyParams struct {
	WalletID             uuid.UUID
	Name                 string
	Description          *string
	RequestedPermissions []store.Permission
	CallerPermissions    []store.Permission
}

// CreateApiKeyResult carries the one-time plaintext key alongside the
// persisted row.
type CreateApiKeyResult struct {
	Key   *store.ApiKey
	Token string // base64-encoded raw bytes; never persisted, never shown again
}

// CreateApiKey generates 32 random bytes, persists only their hash, and
// rejects a request whose permissions exceed the caller's own.
func (s *Service) CreateApiKey(ctx context.Context, p CreateApiKeyParams) (*CreateApiKeyResult, error) {
	if !store.IsSubset(p.RequestedPermissions, p.CallerPermissions) {
		return nil, apperrors.MissingPermission("requested permissions exceed caller's own")
	}

	raw := make([]byte, apiKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperrors.New(apperrors.KindWebServer, "failed to generate api key")
	}
	hash := sha256.Sum256(raw)

	now := time.Now().UTC()
	var expiresAt *time.Time
	if s.cfg.ApiKey.DefaultExpiration > 0 {
		t := now.Add(s.cfg.ApiKey.DefaultExpiration)
		expiresAt = &t
	}

	key := &store.ApiKey{
		ID:          uuid.New(),
		UserID:      p.WalletID.String(),
		Name:        p.Name,
		KeyHash:     hash[:],
		Permissions: store.PermissionSet(p.RequestedPermissions),
		Description: p.Description,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.ApiKeys().Insert(ctx, nil, key); err != nil {
		return nil, err
	}

	return &CreateApiKeyResult{Key: key, Token: base64.StdEncoding.EncodeToString(raw)}, nil
}

// Get returns a single api key by ID (never the plaintext token).
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*store.ApiKey, error) {
	return s.store.ApiKeys().FindByID(ctx, id)
}

// List returns api keys matching f.
func (s *Service) List(ctx context.Context, f store.Filter) ([]store.ApiKey, error) {
	return s.store.ApiKeys().FindMany(ctx, f)
}

// Delete removes a single api key.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.ApiKeys().Delete(ctx, id)
}

// DeleteMany removes every api key matching f, returning the count removed.
func (s *Service) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	return s.store.ApiKeys().DeleteMany(ctx, f)
}

func isNotFound(err error) bool {
	e, ok := apperrors.As(err)
	return ok && e.Kind == apperrors.KindNotFound
}

// Package lnaddresssvc implements LnAddressService: registering and
// managing the username a wallet publishes under this server's Lightning
// address domain.
package lnaddresssvc

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

const (
	usernameMinLen = 1
	usernameMaxLen = 64
)

// usernamePattern mirrors LUD-16's allowed local-part character set.
var usernamePattern = regexp.MustCompile(`^[a-z0-9.!#$%&'*+/=?^_{|}~-]+$`)

// Service registers and manages LnAddress rows.
type Service struct {
	store store.Store
}

// New builds a Service.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// RegisterParams are the inputs to Register.
type RegisterParams struct {
	WalletID    uuid.UUID
	Username    string
	AllowsNostr bool
	NostrPubkey *string
}

// Register normalizes username to lowercase, validates its length and
// character set, asserts no existing row for this wallet or username, and
// inserts the LnAddress.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*store.LnAddress, error) {
	username := strings.ToLower(strings.TrimSpace(p.Username))
	if len(username) < usernameMinLen || len(username) > usernameMaxLen {
		return nil, apperrors.Validation("username must be between 1 and 64 characters")
	}
	if !usernamePattern.MatchString(username) {
		return nil, apperrors.Validation("username contains disallowed characters")
	}

	if existing, err := s.store.LnAddresses().FindByWalletID(ctx, p.WalletID); err != nil && !isNotFound(err) {
		return nil, err
	} else if existing != nil {
		return nil, apperrors.Conflict("wallet already has an ln_address")
	}
	if existing, err := s.store.LnAddresses().FindByUsername(ctx, username); err != nil && !isNotFound(err) {
		return nil, err
	} else if existing != nil {
		return nil, apperrors.Conflict("username is already taken")
	}

	now := time.Now().UTC()
	addr := &store.LnAddress{
		ID:          uuid.New(),
		WalletID:    p.WalletID,
		Username:    username,
		Active:      true,
		AllowsNostr: p.AllowsNostr,
		NostrPubkey: p.NostrPubkey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.LnAddresses().Insert(ctx, nil, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// Get returns a single ln_address by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*store.LnAddress, error) {
	return s.store.LnAddresses().FindByID(ctx, id)
}

// List returns ln_addresses matching f.
func (s *Service) List(ctx context.Context, f store.Filter) ([]store.LnAddress, error) {
	return s.store.LnAddresses().FindMany(ctx, f)
}

// Delete removes a single ln_address.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.LnAddresses().Delete(ctx, id)
}

// DeleteMany removes every ln_address matching f, returning the count removed.
func (s *Service) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	return s.store.LnAddresses().DeleteMany(ctx, f)
}

func isNotFound(err error) bool {
	e, ok := apperrors.As(err)
	return ok && e.Kind == apperrors.KindNotFound
}

// Package nostrsvc implements NostrService: NIP-05 identifier verification
// for LnAddress usernames that opted into Nostr discovery.
package nostrsvc

import (
	"context"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

// Service resolves NIP-05 lookups against registered LnAddress rows.
type Service struct {
	store store.Store
}

// New builds a Service.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// GetPubkey looks up username, returning NotFound unless the address
// exists, is active, opted into Nostr, and has a pubkey on file.
func (s *Service) GetPubkey(ctx context.Context, username string) (string, error) {
	addr, err := s.store.LnAddresses().FindByUsername(ctx, username)
	if err != nil {
		if e, ok := apperrors.As(err); ok && e.Kind == apperrors.KindNotFound {
			return "", apperrors.NotFound("nostr identifier not found")
		}
		return "", err
	}
	if !addr.Active || !addr.AllowsNostr || addr.NostrPubkey == nil {
		return "", apperrors.NotFound("nostr identifier not found")
	}
	return *addr.NostrPubkey, nil
}

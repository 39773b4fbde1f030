// Package invoicesvc implements InvoiceService: creating, querying, and
// reconciling invoices across the Lightning and on-chain ledgers.
package invoicesvc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/btc"
	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/ln"
	"github.com/numeraire/swissknife-go/internal/metrics"
	"github.com/numeraire/swissknife-go/internal/store"
)

// Service issues and reconciles invoices.
type Service struct {
	store  store.Store
	ln     ln.Client
	wallet btc.Wallet // nil when no on-chain signing wallet is configured
	cfg    config.LnAddressConfig
}

// New builds a Service. wallet may be nil if the deployment runs
// Lightning-only.
func New(s store.Store, lnClient ln.Client, wallet btc.Wallet, cfg config.LnAddressConfig) *Service {
	return &Service{store: s, ln: lnClient, wallet: wallet, cfg: cfg}
}

// CreateParams are the inputs to Create: wallet_id, amount_msat, and
// optional description/expiry.
type CreateParams struct {
	WalletID       uuid.UUID
	AmountMsat     *int64 // nil with RequestOnchain and a wallet: open-amount on-chain invoice; else zero-amount Lightning
	Description    *string
	Expiry         *time.Duration
	RequestOnchain bool // caller opted into an on-chain invoice
}

// Create resolves the wallet, picks Lightning or Onchain, and inserts the
// resulting invoice.
func (s *Service) Create(ctx context.Context, p CreateParams) (*store.Invoice, error) {
	wallet, err := s.store.Wallets().FindByID(ctx, p.WalletID)
	if err != nil {
		return nil, err
	}

	description := s.cfg.DefaultDescription
	if p.Description != nil {
		description = *p.Description
	}

	useOnchain := p.AmountMsat == nil && p.RequestOnchain && s.wallet != nil
	if useOnchain {
		return s.createOnchain(ctx, wallet, description)
	}

	amountMsat := int64(0)
	if p.AmountMsat != nil {
		amountMsat = *p.AmountMsat
	}
	if amountMsat < 0 {
		return nil, apperrors.Validation("amount_msat must not be negative")
	}

	expiry := s.cfg.InvoiceDefaultExpiry
	if p.Expiry != nil {
		expiry = *p.Expiry
	}
	if expiry < s.cfg.InvoiceMinExpiry || expiry > s.cfg.InvoiceMaxExpiry {
		return nil, apperrors.Validation("expiry out of allowed range")
	}

	return s.createLightning(ctx, wallet, amountMsat, description, expiry, nil)
}

// Invoice mints a Lightning invoice bound to a specific ln_address, used by
// the LNURL-pay callback path. Satisfies lnurl.InvoiceIssuer.
func (s *Service) Invoice(ctx context.Context, walletID uuid.UUID, amountMsat int64, description string, lnAddressID *uuid.UUID) (*store.Invoice, error) {
	wallet, err := s.store.Wallets().FindByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return s.createLightning(ctx, wallet, amountMsat, description, s.cfg.InvoiceDefaultExpiry, lnAddressID)
}

func (s *Service) createLightning(ctx context.Context, wallet *store.Wallet, amountMsat int64, description string, expiry time.Duration, lnAddressID *uuid.UUID) (*store.Invoice, error) {
	nodeInvoice, err := s.ln.Invoice(ctx, amountMsat, description, int64(expiry.Seconds()), false)
	if err != nil {
		return nil, apperrors.Lightning("failed to create invoice", err)
	}

	now := time.Now().UTC()
	inv := &store.Invoice{
		ID:                      uuid.New(),
		WalletID:                wallet.ID,
		LnAddressID:             lnAddressID,
		Description:             &description,
		Timestamp:               now,
		Ledger:                  store.LedgerLightning,
		Currency:                wallet.Currency,
		CreatedAt:               now,
		PaymentHash:             &nodeInvoice.PaymentHash,
		Bolt11:                  &nodeInvoice.Bolt11,
		PayeePubkey:             &nodeInvoice.PayeePubkey,
		PaymentSecret:           &nodeInvoice.PaymentSecret,
		MinFinalCltvExpiryDelta: &nodeInvoice.MinFinalCltvExpiryDelta,
		ExpirySeconds:           &nodeInvoice.ExpirySeconds,
		ExpiresAt:               &nodeInvoice.ExpiresAt,
	}
	if amountMsat > 0 {
		inv.AmountMsat = &amountMsat
	}

	if err := s.store.Invoices().Insert(ctx, nil, inv); err != nil {
		return nil, err
	}
	metrics.InvoicesCreatedTotal.WithLabelValues(string(store.LedgerLightning)).Inc()
	return inv, nil
}

func (s *Service) createOnchain(ctx context.Context, wallet *store.Wallet, description string) (*store.Invoice, error) {
	addr, err := s.store.BtcAddresses().FindUnused(ctx, wallet.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if addr == nil {
		raw, err := s.wallet.NewAddress(ctx)
		if err != nil {
			return nil, apperrors.Bitcoin("failed to derive new address", err)
		}
		now := time.Now().UTC()
		addr = &store.BtcAddress{
			ID:          uuid.New(),
			WalletID:    wallet.ID,
			Address:     raw,
			AddressType: store.BtcAddressP2TR,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.BtcAddresses().Insert(ctx, nil, addr); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	inv := &store.Invoice{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Description: &description,
		Timestamp:   now,
		Ledger:      store.LedgerOnchain,
		Currency:    wallet.Currency,
		CreatedAt:   now,
	}
	if err := s.store.Invoices().Insert(ctx, nil, inv); err != nil {
		return nil, err
	}
	metrics.InvoicesCreatedTotal.WithLabelValues(string(store.LedgerOnchain)).Inc()
	return inv, nil
}

// Get returns a single invoice by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*store.Invoice, error) {
	return s.store.Invoices().FindByID(ctx, id)
}

// List returns invoices matching f.
func (s *Service) List(ctx context.Context, f store.Filter) ([]store.Invoice, error) {
	return s.store.Invoices().FindMany(ctx, f)
}

// Delete removes a single invoice.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Invoices().Delete(ctx, id)
}

// DeleteMany removes every invoice matching f, returning the count removed.
func (s *Service) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	return s.store.Invoices().DeleteMany(ctx, f)
}

// Sync polls the node for every unexpired Pending Lightning invoice and
// settles any the provider now reports paid. It returns the number of
// invoices transitioned. It is run once at startup, alongside the event
// listener; it does not wait for the listener to connect.
func (s *Service) Sync(ctx context.Context) (int, error) {
	pending, err := s.store.Invoices().FindPendingLightning(ctx)
	if err != nil {
		return 0, err
	}

	transitioned := 0
	for i := range pending {
		inv := &pending[i]
		if inv.PaymentHash == nil {
			continue
		}
		nodeInvoice, err := s.ln.InvoiceByHash(ctx, *inv.PaymentHash)
		if err != nil || nodeInvoice == nil || !nodeInvoice.Settled {
			continue
		}

		inv.AmountReceivedMsat = &nodeInvoice.AmountReceivedMsat
		inv.FeeMsat = &nodeInvoice.FeeMsat
		inv.PaymentTime = nodeInvoice.PaymentTime
		if inv.PaymentTime == nil {
			now := time.Now().UTC()
			inv.PaymentTime = &now
		}
		if err := s.store.Invoices().Update(ctx, nil, inv); err != nil {
			return transitioned, err
		}
		transitioned++
	}
	return transitioned, nil
}

func isNotFound(err error) bool {
	e, ok := apperrors.As(err)
	return ok && e.Kind == apperrors.KindNotFound
}

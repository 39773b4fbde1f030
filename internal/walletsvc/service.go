// Package walletsvc implements WalletService: the single aggregate view a
// wallet owner sees of their balance, recent activity, and contacts.
package walletsvc

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

// recentLimit bounds recent payments/invoices/contacts returned by Get.
const recentLimit = 15

// Summary is the aggregate WalletService.Get returns.
type Summary struct {
	Wallet         *store.Wallet
	Balance        store.BalanceRow
	LnAddress      *store.LnAddress
	RecentPayments []store.Payment
	RecentInvoices []store.Invoice
	RecentContacts []Contact
}

// Contact is a distinct counterparty this wallet has paid, deduped by
// ln_address and keeping only the most recent payment_time.
type Contact struct {
	LnAddress   string
	LastPayment store.Payment
}

// Service builds wallet aggregate views.
type Service struct {
	store store.Store
}

// New builds a Service.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// Get assembles balance, recent payments/invoices, the wallet's own
// ln_address if any, and recent distinct contacts.
func (s *Service) Get(ctx context.Context, walletID uuid.UUID) (*Summary, error) {
	wallet, err := s.store.Wallets().FindByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	balance, err := s.store.Wallets().Balance(ctx, walletID)
	if err != nil {
		return nil, err
	}

	limit := recentLimit
	payments, err := s.store.Payments().FindMany(ctx, store.Filter{
		WalletID:       &walletID,
		Limit:          &limit,
		OrderDirection: store.OrderDesc,
	})
	if err != nil {
		return nil, err
	}

	invoices, err := s.store.Invoices().FindMany(ctx, store.Filter{
		WalletID:       &walletID,
		Limit:          &limit,
		OrderDirection: store.OrderDesc,
	})
	if err != nil {
		return nil, err
	}

	lnAddr, err := s.store.LnAddresses().FindByWalletID(ctx, walletID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	return &Summary{
		Wallet:         wallet,
		Balance:        balance,
		LnAddress:      lnAddr,
		RecentPayments: payments,
		RecentInvoices: invoices,
		RecentContacts: recentContacts(payments),
	}, nil
}

// recentContacts dedups settled outgoing payments by ln_address, keeping
// only the most recent payment_time per contact, capped at recentLimit.
func recentContacts(payments []store.Payment) []Contact {
	latest := make(map[string]store.Payment)
	for _, p := range payments {
		if p.Status != store.PaymentStatusSettled || p.LnAddress == nil {
			continue
		}
		addr := *p.LnAddress
		cur, ok := latest[addr]
		if !ok || laterThan(p, cur) {
			latest[addr] = p
		}
	}

	contacts := make([]Contact, 0, len(latest))
	for addr, p := range latest {
		contacts = append(contacts, Contact{LnAddress: addr, LastPayment: p})
	}
	sort.Slice(contacts, func(i, j int) bool {
		return laterThan(contacts[i].LastPayment, contacts[j].LastPayment)
	})
	if len(contacts) > recentLimit {
		contacts = contacts[:recentLimit]
	}
	return contacts
}

func laterThan(a, b store.Payment) bool {
	at, bt := a.PaymentTime, b.PaymentTime
	switch {
	case at == nil && bt == nil:
		return a.CreatedAt.After(b.CreatedAt)
	case at == nil:
		return false
	case bt == nil:
		return true
	default:
		return at.After(*bt)
	}
}

func isNotFound(err error) bool {
	e, ok := apperrors.As(err)
	return ok && e.Kind == apperrors.KindNotFound
}

// Package storetest provides an in-memory store.Store for unit tests that
// need a real repository round-trip without a Postgres instance.
package storetest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

// Store is an in-memory store.Store backed by plain maps, guarded by a
// single mutex. It's intentionally simple: exact-match filtering on
// WalletID/UserID only, no transaction semantics beyond a no-op Transaction.
type Store struct {
	mu sync.Mutex

	accounts  map[uuid.UUID]store.Account
	wallets   map[uuid.UUID]store.Wallet
	lnAddrs   map[uuid.UUID]store.LnAddress
	invoices  map[uuid.UUID]store.Invoice
	payments  map[uuid.UUID]store.Payment
	btcAddrs  map[uuid.UUID]store.BtcAddress
	btcOuts   map[string]store.BtcOutput
	apiKeys   map[uuid.UUID]store.ApiKey
	configs   map[string]store.ConfigEntry
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]store.Account),
		wallets:  make(map[uuid.UUID]store.Wallet),
		lnAddrs:  make(map[uuid.UUID]store.LnAddress),
		invoices: make(map[uuid.UUID]store.Invoice),
		payments: make(map[uuid.UUID]store.Payment),
		btcAddrs: make(map[uuid.UUID]store.BtcAddress),
		btcOuts:  make(map[string]store.BtcOutput),
		apiKeys:  make(map[uuid.UUID]store.ApiKey),
		configs:  make(map[string]store.ConfigEntry),
	}
}

func (s *Store) Accounts() store.AccountRepo         { return (*accountRepo)(s) }
func (s *Store) Wallets() store.WalletRepo           { return (*walletRepo)(s) }
func (s *Store) LnAddresses() store.LnAddressRepo    { return (*lnAddressRepo)(s) }
func (s *Store) Invoices() store.InvoiceRepo          { return (*invoiceRepo)(s) }
func (s *Store) Payments() store.PaymentRepo          { return (*paymentRepo)(s) }
func (s *Store) BtcAddresses() store.BtcAddressRepo   { return (*btcAddressRepo)(s) }
func (s *Store) BtcOutputs() store.BtcOutputRepo       { return (*btcOutputRepo)(s) }
func (s *Store) ApiKeys() store.ApiKeyRepo             { return (*apiKeyRepo)(s) }
func (s *Store) Config() store.ConfigRepo              { return (*configRepo)(s) }

func (s *Store) Begin(ctx context.Context) (store.Transaction, error) { return noopTx{}, nil }
func (s *Store) Ping(ctx context.Context) error                       { return nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

type accountRepo Store

func (r *accountRepo) Insert(ctx context.Context, tx store.Transaction, a *store.Account) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = *a
	return nil
}

func (r *accountRepo) FindBySub(ctx context.Context, sub string) (*store.Account, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Sub == sub {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("account not found")
}

func (r *accountRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Account, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.NotFound("account not found")
	}
	return &a, nil
}

type walletRepo Store

func (r *walletRepo) Insert(ctx context.Context, tx store.Transaction, w *store.Wallet) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.ID] = *w
	return nil
}

func (r *walletRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Wallet, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, apperrors.NotFound("wallet not found")
	}
	return &w, nil
}

func (r *walletRepo) FindByAccountAndCurrency(ctx context.Context, accountID uuid.UUID, currency store.Currency) (*store.Wallet, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.AccountID == accountID && w.Currency == currency {
			return &w, nil
		}
	}
	return nil, apperrors.NotFound("wallet not found")
}

func (r *walletRepo) FindMany(ctx context.Context, f store.Filter) ([]store.Wallet, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Wallet
	for _, w := range s.wallets {
		out = append(out, w)
	}
	return out, nil
}

func (r *walletRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wallets, id)
	return nil
}

func (r *walletRepo) Balance(ctx context.Context, walletID uuid.UUID) (store.BalanceRow, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var row store.BalanceRow
	for _, inv := range s.invoices {
		if inv.WalletID == walletID && inv.PaymentTime != nil && inv.AmountReceivedMsat != nil {
			row.ReceivedMsat += *inv.AmountReceivedMsat
		}
	}
	for _, p := range s.payments {
		if p.WalletID != walletID {
			continue
		}
		if p.Status == store.PaymentStatusPending || p.Status == store.PaymentStatusSettled {
			row.SentMsat += p.AmountMsat
		}
		if p.Status == store.PaymentStatusSettled && p.FeeMsat != nil {
			row.FeesPaidMsat += *p.FeeMsat
		}
	}
	return row, nil
}

type lnAddressRepo Store

func (r *lnAddressRepo) Insert(ctx context.Context, tx store.Transaction, a *store.LnAddress) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lnAddrs[a.ID] = *a
	return nil
}

func (r *lnAddressRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.LnAddress, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.lnAddrs[id]
	if !ok {
		return nil, apperrors.NotFound("ln address not found")
	}
	return &a, nil
}

func (r *lnAddressRepo) FindByUsername(ctx context.Context, username string) (*store.LnAddress, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.lnAddrs {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("ln address not found")
}

func (r *lnAddressRepo) FindByWalletID(ctx context.Context, walletID uuid.UUID) (*store.LnAddress, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.lnAddrs {
		if a.WalletID == walletID {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("ln address not found")
}

func (r *lnAddressRepo) FindMany(ctx context.Context, f store.Filter) ([]store.LnAddress, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.LnAddress
	for _, a := range s.lnAddrs {
		if f.WalletID != nil && a.WalletID != *f.WalletID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *lnAddressRepo) Update(ctx context.Context, tx store.Transaction, a *store.LnAddress) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lnAddrs[a.ID] = *a
	return nil
}

func (r *lnAddressRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lnAddrs, id)
	return nil
}

func (r *lnAddressRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.lnAddrs {
		if f.WalletID != nil && a.WalletID != *f.WalletID {
			continue
		}
		delete(s.lnAddrs, id)
		n++
	}
	return n, nil
}

type invoiceRepo Store

func (r *invoiceRepo) Insert(ctx context.Context, tx store.Transaction, inv *store.Invoice) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = *inv
	return nil
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Invoice, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, apperrors.NotFound("invoice not found")
	}
	return &inv, nil
}

func (r *invoiceRepo) FindByPaymentHash(ctx context.Context, paymentHash string) (*store.Invoice, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.PaymentHash != nil && *inv.PaymentHash == paymentHash {
			return &inv, nil
		}
	}
	return nil, apperrors.NotFound("invoice not found")
}

func (r *invoiceRepo) FindMany(ctx context.Context, f store.Filter) ([]store.Invoice, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Invoice
	for _, inv := range s.invoices {
		if f.WalletID != nil && inv.WalletID != *f.WalletID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (r *invoiceRepo) FindPendingLightning(ctx context.Context) ([]store.Invoice, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Invoice
	for _, inv := range s.invoices {
		if inv.Ledger == store.LedgerLightning && inv.PaymentTime == nil {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *invoiceRepo) LatestSettled(ctx context.Context) (*store.Invoice, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *store.Invoice
	for _, inv := range s.invoices {
		inv := inv
		if inv.PaymentTime == nil {
			continue
		}
		if latest == nil || inv.PaymentTime.After(*latest.PaymentTime) {
			latest = &inv
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("no settled invoice")
	}
	return latest, nil
}

func (r *invoiceRepo) Update(ctx context.Context, tx store.Transaction, inv *store.Invoice) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = *inv
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invoices, id)
	return nil
}

func (r *invoiceRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, inv := range s.invoices {
		if f.WalletID != nil && inv.WalletID != *f.WalletID {
			continue
		}
		delete(s.invoices, id)
		n++
	}
	return n, nil
}

type paymentRepo Store

func (r *paymentRepo) Insert(ctx context.Context, tx store.Transaction, p *store.Payment) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Payment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, apperrors.NotFound("payment not found")
	}
	return &p, nil
}

func (r *paymentRepo) FindByPaymentHash(ctx context.Context, paymentHash string) (*store.Payment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.PaymentHash != nil && *p.PaymentHash == paymentHash {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("payment not found")
}

func (r *paymentRepo) FindPendingByTxid(ctx context.Context, txid string) (*store.Payment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.Txid != nil && *p.Txid == txid && p.Status == store.PaymentStatusPending {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("payment not found")
}

func (r *paymentRepo) FindMany(ctx context.Context, f store.Filter) ([]store.Payment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Payment
	for _, p := range s.payments {
		if f.WalletID != nil && p.WalletID != *f.WalletID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) Update(ctx context.Context, tx store.Transaction, p *store.Payment) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payments, id)
	return nil
}

func (r *paymentRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.payments {
		if f.WalletID != nil && p.WalletID != *f.WalletID {
			continue
		}
		delete(s.payments, id)
		n++
	}
	return n, nil
}

type btcAddressRepo Store

func (r *btcAddressRepo) Insert(ctx context.Context, tx store.Transaction, a *store.BtcAddress) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.btcAddrs[a.ID] = *a
	return nil
}

func (r *btcAddressRepo) FindUnused(ctx context.Context, walletID uuid.UUID) (*store.BtcAddress, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.btcAddrs {
		if a.WalletID == walletID && !a.Used {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("no unused btc address")
}

func (r *btcAddressRepo) FindByAddress(ctx context.Context, address string) (*store.BtcAddress, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.btcAddrs {
		if a.Address == address {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("btc address not found")
}

func (r *btcAddressRepo) MarkUsed(ctx context.Context, tx store.Transaction, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.btcAddrs[id]
	if !ok {
		return apperrors.NotFound("btc address not found")
	}
	a.Used = true
	s.btcAddrs[id] = a
	return nil
}

type btcOutputRepo Store

func (r *btcOutputRepo) Upsert(ctx context.Context, tx store.Transaction, o *store.BtcOutput) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.btcOuts[o.Outpoint] = *o
	return nil
}

func (r *btcOutputRepo) FindByOutpoint(ctx context.Context, outpoint string) (*store.BtcOutput, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.btcOuts[outpoint]
	if !ok {
		return nil, apperrors.NotFound("btc output not found")
	}
	return &o, nil
}

type apiKeyRepo Store

func (r *apiKeyRepo) Insert(ctx context.Context, tx store.Transaction, k *store.ApiKey) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[k.ID] = *k
	return nil
}

func (r *apiKeyRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.ApiKey, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.apiKeys[id]
	if !ok {
		return nil, apperrors.NotFound("api key not found")
	}
	return &k, nil
}

func (r *apiKeyRepo) FindByKeyHash(ctx context.Context, hash []byte) (*store.ApiKey, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.apiKeys {
		if string(k.KeyHash) == string(hash) {
			return &k, nil
		}
	}
	return nil, apperrors.NotFound("api key not found")
}

func (r *apiKeyRepo) FindMany(ctx context.Context, f store.Filter) ([]store.ApiKey, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ApiKey
	for _, k := range s.apiKeys {
		if f.UserID != nil && k.UserID != *f.UserID {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (r *apiKeyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.apiKeys, id)
	return nil
}

func (r *apiKeyRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, k := range s.apiKeys {
		if f.UserID != nil && k.UserID != *f.UserID {
			continue
		}
		delete(s.apiKeys, id)
		n++
	}
	return n, nil
}

type configRepo Store

func (r *configRepo) Get(ctx context.Context, key string) (*store.ConfigEntry, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.configs[key]
	if !ok {
		return nil, apperrors.NotFound("config entry not found")
	}
	return &e, nil
}

func (r *configRepo) Set(ctx context.Context, entry *store.ConfigEntry) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[entry.Key] = *entry
	return nil
}

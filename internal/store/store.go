package store

import (
	"context"

	"github.com/google/uuid"
)

// Transaction is an open database transaction; repositories accept an
// optional Transaction so callers can compose several mutations atomically.
type Transaction interface {
	Commit() error
	Rollback() error
}

// BalanceRow is the raw aggregate behind a wallet's available-balance
// computation: received minus sent minus fees.
type BalanceRow struct {
	ReceivedMsat  int64
	SentMsat      int64
	FeesPaidMsat  int64
}

// Available returns received - (sent + fees).
func (b BalanceRow) Available() int64 {
	return b.ReceivedMsat - (b.SentMsat + b.FeesPaidMsat)
}

// AccountRepo persists Account rows.
type AccountRepo interface {
	Insert(ctx context.Context, tx Transaction, a *Account) error
	FindBySub(ctx context.Context, sub string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// WalletRepo persists Wallet rows and computes the derived balance.
type WalletRepo interface {
	Insert(ctx context.Context, tx Transaction, w *Wallet) error
	FindByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	FindByAccountAndCurrency(ctx context.Context, accountID uuid.UUID, currency Currency) (*Wallet, error)
	FindMany(ctx context.Context, f Filter) ([]Wallet, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Balance(ctx context.Context, walletID uuid.UUID) (BalanceRow, error)
}

// LnAddressRepo persists LnAddress rows.
type LnAddressRepo interface {
	Insert(ctx context.Context, tx Transaction, a *LnAddress) error
	FindByID(ctx context.Context, id uuid.UUID) (*LnAddress, error)
	FindByUsername(ctx context.Context, username string) (*LnAddress, error)
	FindByWalletID(ctx context.Context, walletID uuid.UUID) (*LnAddress, error)
	FindMany(ctx context.Context, f Filter) ([]LnAddress, error)
	Update(ctx context.Context, tx Transaction, a *LnAddress) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, f Filter) (int64, error)
}

// InvoiceRepo persists Invoice rows.
type InvoiceRepo interface {
	Insert(ctx context.Context, tx Transaction, inv *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByPaymentHash(ctx context.Context, paymentHash string) (*Invoice, error)
	FindMany(ctx context.Context, f Filter) ([]Invoice, error)
	FindPendingLightning(ctx context.Context) ([]Invoice, error)
	LatestSettled(ctx context.Context) (*Invoice, error)
	Update(ctx context.Context, tx Transaction, inv *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, f Filter) (int64, error)
}

// PaymentRepo persists Payment rows.
type PaymentRepo interface {
	Insert(ctx context.Context, tx Transaction, p *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByPaymentHash(ctx context.Context, paymentHash string) (*Payment, error)
	FindPendingByTxid(ctx context.Context, txid string) (*Payment, error)
	FindMany(ctx context.Context, f Filter) ([]Payment, error)
	Update(ctx context.Context, tx Transaction, p *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, f Filter) (int64, error)
}

// BtcAddressRepo persists BtcAddress rows.
type BtcAddressRepo interface {
	Insert(ctx context.Context, tx Transaction, a *BtcAddress) error
	FindUnused(ctx context.Context, walletID uuid.UUID) (*BtcAddress, error)
	FindByAddress(ctx context.Context, address string) (*BtcAddress, error)
	MarkUsed(ctx context.Context, tx Transaction, id uuid.UUID) error
}

// BtcOutputRepo persists BtcOutput rows, upserted by outpoint.
type BtcOutputRepo interface {
	Upsert(ctx context.Context, tx Transaction, o *BtcOutput) error
	FindByOutpoint(ctx context.Context, outpoint string) (*BtcOutput, error)
}

// ApiKeyRepo persists ApiKey rows.
type ApiKeyRepo interface {
	Insert(ctx context.Context, tx Transaction, k *ApiKey) error
	FindByID(ctx context.Context, id uuid.UUID) (*ApiKey, error)
	FindByKeyHash(ctx context.Context, hash []byte) (*ApiKey, error)
	FindMany(ctx context.Context, f Filter) ([]ApiKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, f Filter) (int64, error)
}

// ConfigRepo persists operator-set runtime parameters.
type ConfigRepo interface {
	Get(ctx context.Context, key string) (*ConfigEntry, error)
	Set(ctx context.Context, entry *ConfigEntry) error
}

// Store is the aggregate handle every service depends on.
type Store interface {
	Accounts() AccountRepo
	Wallets() WalletRepo
	LnAddresses() LnAddressRepo
	Invoices() InvoiceRepo
	Payments() PaymentRepo
	BtcAddresses() BtcAddressRepo
	BtcOutputs() BtcOutputRepo
	ApiKeys() ApiKeyRepo
	Config() ConfigRepo

	Begin(ctx context.Context) (Transaction, error)
	Ping(ctx context.Context) error
}

// Package store defines the persistent entities of the custodial ledger and
// the repository interfaces every service depends on. Concrete
// implementations live in internal/store/postgres.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Currency identifies which Bitcoin network a Wallet's ledger is denominated in.
type Currency string

const (
	CurrencyBitcoin        Currency = "Bitcoin"
	CurrencyBitcoinTestnet Currency = "BitcoinTestnet"
	CurrencyRegtest        Currency = "Regtest"
	CurrencySimnet         Currency = "Simnet"
	CurrencySignet         Currency = "Signet"
)

// Ledger classifies a transaction's settlement rail.
type Ledger string

const (
	LedgerLightning Ledger = "Lightning"
	LedgerInternal  Ledger = "Internal"
	LedgerOnchain   Ledger = "Onchain"
)

// InvoiceStatus is the lifecycle state of an Invoice, derived from
// (payment_time, expires_at, now) rather than persisted as independent state.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "Pending"
	InvoiceStatusSettled InvoiceStatus = "Settled"
	InvoiceStatusExpired InvoiceStatus = "Expired"
)

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusSettled PaymentStatus = "Settled"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// OrderDirection controls result ordering for list filters.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "Asc"
	OrderDesc OrderDirection = "Desc"
)

// Account is created on first successful authentication for an unknown sub.
type Account struct {
	ID        uuid.UUID `db:"id"`
	Sub       string    `db:"sub"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Wallet is the server-side ledger account; one per (account, currency).
type Wallet struct {
	ID        uuid.UUID `db:"id"`
	AccountID uuid.UUID `db:"account_id"`
	Currency  Currency  `db:"currency"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// LnAddress binds a lowercase username to a Wallet for LNURL-pay / NIP-05.
type LnAddress struct {
	ID           uuid.UUID `db:"id"`
	WalletID     uuid.UUID `db:"wallet_id"`
	Username     string    `db:"username"`
	Active       bool      `db:"active"`
	AllowsNostr  bool      `db:"allows_nostr"`
	NostrPubkey  *string   `db:"nostr_pubkey"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// LightningInvoice is the BOLT11-specific payload of an Invoice whose
// Ledger == LedgerLightning.
type LightningInvoice struct {
	PaymentHash              string  `db:"payment_hash"`
	Bolt11                   string  `db:"bolt11"`
	PayeePubkey              string  `db:"payee_pubkey"`
	PaymentSecret            string  `db:"payment_secret"`
	MinFinalCltvExpiryDelta  uint64  `db:"min_final_cltv_expiry_delta"`
	Expiry                   int64   `db:"expiry"` // seconds
	ExpiresAt                time.Time `db:"expires_at"`
	DescriptionHash          *string `db:"description_hash"`
}

// Invoice is a credit to a wallet: a request to receive funds.
type Invoice struct {
	ID                 uuid.UUID      `db:"id"`
	WalletID           uuid.UUID      `db:"wallet_id"`
	LnAddressID        *uuid.UUID     `db:"ln_address_id"`
	Description        *string        `db:"description"`
	AmountMsat         *int64         `db:"amount_msat"`
	AmountReceivedMsat *int64         `db:"amount_received_msat"`
	Timestamp          time.Time      `db:"timestamp"`
	Ledger             Ledger         `db:"ledger"`
	Currency           Currency       `db:"currency"`
	FeeMsat            *int64         `db:"fee_msat"`
	PaymentTime        *time.Time     `db:"payment_time"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          *time.Time     `db:"updated_at"`
	BtcTxid            *string        `db:"btc_txid"`
	OutputIndex        *int32         `db:"output_index"`

	// Lightning-only fields, NULL when Ledger != LedgerLightning.
	PaymentHash             *string    `db:"payment_hash"`
	Bolt11                  *string    `db:"bolt11"`
	PayeePubkey             *string    `db:"payee_pubkey"`
	PaymentSecret           *string    `db:"payment_secret"`
	MinFinalCltvExpiryDelta *uint64    `db:"min_final_cltv_expiry_delta"`
	ExpirySeconds           *int64     `db:"expiry_seconds"`
	ExpiresAt               *time.Time `db:"expires_at"`
	DescriptionHash         *string    `db:"description_hash"`
}

// Status derives the invoice's lifecycle state per the balance/status invariant:
// Settled if payment_time is set, Expired if expires_at has passed and it
// isn't settled, else Pending.
func (i *Invoice) Status(now time.Time) InvoiceStatus {
	if i.PaymentTime != nil {
		return InvoiceStatusSettled
	}
	if i.ExpiresAt != nil && i.ExpiresAt.Before(now) {
		return InvoiceStatusExpired
	}
	return InvoiceStatusPending
}

// LightningPayment is the BOLT11-specific payload of a Payment whose
// Ledger == LedgerLightning.
type LightningPayment struct {
	LnAddress        *string         `db:"ln_address"`
	PaymentHash      *string         `db:"payment_hash"`
	PaymentPreimage  *string         `db:"payment_preimage"`
	Metadata         *string         `db:"metadata"`
	SuccessAction    json.RawMessage `db:"success_action"`
}

// BitcoinPayment is the on-chain-specific payload of a Payment whose
// Ledger == LedgerOnchain.
type BitcoinPayment struct {
	DestinationAddress *string `db:"destination_address"`
	Txid               *string `db:"txid"`
	OutputID           *uuid.UUID `db:"output_id"`
	BlockHeight        *int64  `db:"block_height"`
}

// Payment is a debit from a wallet: an outgoing transfer.
type Payment struct {
	ID          uuid.UUID     `db:"id"`
	WalletID    uuid.UUID     `db:"wallet_id"`
	Error       *string       `db:"error"`
	AmountMsat  int64         `db:"amount_msat"`
	FeeMsat     *int64        `db:"fee_msat"`
	Ledger      Ledger        `db:"ledger"`
	Currency    Currency      `db:"currency"`
	PaymentTime *time.Time    `db:"payment_time"`
	Status      PaymentStatus `db:"status"`
	Description *string       `db:"description"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   *time.Time    `db:"updated_at"`

	// Lightning-only fields.
	LnAddress       *string         `db:"ln_address"`
	PaymentHash     *string         `db:"payment_hash"`
	PaymentPreimage *string         `db:"payment_preimage"`
	Metadata        *string         `db:"metadata"`
	SuccessAction   json.RawMessage `db:"success_action"`

	// Onchain-only fields.
	DestinationAddress *string    `db:"destination_address"`
	Txid               *string    `db:"txid"`
	OutputID           *uuid.UUID `db:"output_id"`
	BlockHeight        *int64     `db:"block_height"`
}

// BtcAddressType is the address script type handed out for on-chain receives.
type BtcAddressType string

const (
	BtcAddressP2WPKH BtcAddressType = "P2WPKH"
	BtcAddressP2TR   BtcAddressType = "P2TR"
)

// BtcAddress is a receive address owned by a wallet.
type BtcAddress struct {
	ID               uuid.UUID      `db:"id"`
	WalletID         uuid.UUID      `db:"wallet_id"`
	Address          string         `db:"address"`
	AddressType      BtcAddressType `db:"address_type"`
	Used             bool           `db:"used"`
	DerivationIndex  *int64         `db:"derivation_index"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// BtcOutputStatus tracks an on-chain output's confirmation lifecycle.
type BtcOutputStatus string

const (
	BtcOutputUnconfirmed BtcOutputStatus = "Unconfirmed"
	BtcOutputConfirmed   BtcOutputStatus = "Confirmed"
	BtcOutputSpent       BtcOutputStatus = "Spent"
)

// BtcOutput is an upserted view of an observed on-chain output; the core
// never deletes these rows.
type BtcOutput struct {
	ID          uuid.UUID       `db:"id"`
	Outpoint    string          `db:"outpoint"` // "{txid}:{output_index}"
	Txid        string          `db:"txid"`
	OutputIndex int32           `db:"output_index"`
	Address     string          `db:"address"`
	AmountSat   int64           `db:"amount_sat"`
	Status      BtcOutputStatus `db:"status"`
	BlockHeight *int64          `db:"block_height"`
	Network     string          `db:"network"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Outpoint formats the canonical "{txid}:{vout}" identifier.
func Outpoint(txid string, outputIndex int32) string {
	return txid + ":" + itoa(outputIndex)
}

func itoa(i int32) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [12]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Permission gates access to a scope of wallet operations.
type Permission string

const (
	PermissionReadTransactions  Permission = "read:transactions"
	PermissionWriteTransactions Permission = "write:transactions"
	PermissionReadWallet        Permission = "read:wallet"
	PermissionWriteWallet       Permission = "write:wallet"
	PermissionReadLnAddress     Permission = "read:ln_address"
	PermissionWriteLnAddress    Permission = "write:ln_address"
	PermissionReadApiKey        Permission = "read:api_key"
	PermissionWriteApiKey       Permission = "write:api_key"
	PermissionFullAccess        Permission = "full_access"
)

// AllPermissions is the full permission set granted to a local JWT sign-in.
var AllPermissions = []Permission{
	PermissionReadTransactions, PermissionWriteTransactions,
	PermissionReadWallet, PermissionWriteWallet,
	PermissionReadLnAddress, PermissionWriteLnAddress,
	PermissionReadApiKey, PermissionWriteApiKey,
	PermissionFullAccess,
}

// HasPermission reports whether set grants permission p, honoring full_access as a wildcard.
func HasPermission(set []Permission, p Permission) bool {
	for _, have := range set {
		if have == p || have == PermissionFullAccess {
			return true
		}
	}
	return false
}

// IsSubset reports whether every permission in sub is present in super,
// either directly or because super holds the full_access wildcard — used to
// enforce that an ApiKey's permissions never exceed its issuer's.
func IsSubset(sub, super []Permission) bool {
	superSet := make(map[Permission]struct{}, len(super))
	for _, p := range super {
		superSet[p] = struct{}{}
	}
	_, superHasFull := superSet[PermissionFullAccess]
	for _, p := range sub {
		if _, ok := superSet[p]; ok {
			continue
		}
		if superHasFull {
			continue
		}
		return false
	}
	return true
}

// PermissionSet is a []Permission persisted as a JSON array column, per the
// original schema's permissions-as-json migration rather than a Postgres
// text[] array.
type PermissionSet []Permission

// Value implements driver.Valuer.
func (p PermissionSet) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Permission(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *PermissionSet) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("store: cannot scan %T into PermissionSet", src)
	}
	var out []Permission
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("store: invalid permission set: %w", err)
	}
	*p = out
	return nil
}

// ApiKey is a long-lived credential scoped to a subset of its issuer's permissions.
type ApiKey struct {
	ID          uuid.UUID     `db:"id"`
	UserID      string        `db:"user_id"`
	Name        string        `db:"name"`
	KeyHash     []byte        `db:"key_hash"` // sha256, 32 bytes
	Permissions PermissionSet `db:"permissions"`
	Description *string       `db:"description"`
	CreatedAt   time.Time     `db:"created_at"`
	ExpiresAt   *time.Time    `db:"expires_at"`
}

// Expired reports whether the key is past its expiry at time now.
func (k *ApiKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// ConfigEntry is an operator-set runtime parameter persisted as JSON.
type ConfigEntry struct {
	Key   string          `db:"key"`
	Value json.RawMessage `db:"value"`
}

// Filter is the uniform listing shape every repository accepts.
type Filter struct {
	Limit          *int
	Offset         *int
	IDs            []uuid.UUID
	WalletID       *uuid.UUID
	UserID         *string
	Status         *string
	Ledger         *Ledger
	OrderDirection OrderDirection
}

// Package ln defines the uniform interface the core consumes over whichever
// Lightning node backend is configured, grounded on pkg/blockchain's
// one-adapter-per-chain shape (EthereumClient / SolanaClient behind a common
// call surface) generalized to one-adapter-per-node-provider.
package ln

import (
	"context"
	"time"
)

// HealthStatus reports the node's operational state.
type HealthStatus string

const (
	HealthOperational HealthStatus = "Operational"
	HealthMaintenance HealthStatus = "Maintenance"
	HealthUnavailable HealthStatus = "Unavailable"
)

// Invoice is the provider's view of a BOLT11 invoice it issued.
type Invoice struct {
	PaymentHash             string
	Bolt11                  string
	PayeePubkey             string
	PaymentSecret           string
	MinFinalCltvExpiryDelta uint64
	AmountMsat              int64
	DescriptionHash         string
	ExpirySeconds           int64
	ExpiresAt               time.Time
	CreatedAt               time.Time
	Settled                 bool
	AmountReceivedMsat      int64
	FeeMsat                 int64
	PaymentTime             *time.Time
}

// PaymentStatus is the provider's terminal/non-terminal classification of
// a pay() call's outcome.
type PaymentStatus string

const (
	PaymentSettled PaymentStatus = "Settled"
	PaymentPending PaymentStatus = "Pending"
	PaymentFailed  PaymentStatus = "Failed"
)

// Payment is the provider's view of an outgoing Lightning payment.
type Payment struct {
	PaymentHash     string
	PaymentPreimage string
	AmountMsat      int64
	FeeMsat         int64
	Status          PaymentStatus
	Error           string
	PaymentTime     *time.Time
}

// OnchainTransaction is a single row returned by ListBtcTransactions.
type OnchainTransaction struct {
	Txid        string
	OutputIndex int32
	Address     string
	AmountSat   int64
	BlockHeight *int64
	Confirmed   bool
}

// SwapInfo describes a submarine-swap-style on-chain send, when the
// provider supports paying an on-chain address out of a Lightning channel.
type SwapInfo struct {
	Txid          string
	FeeSat        int64
	OnchainAmount int64
}

// ErrNotSupported is returned by the optional on-chain operations when the
// configured provider does not implement them.
var ErrNotSupported = notSupportedError{}

type notSupportedError struct{}

func (notSupportedError) Error() string { return "ln: operation not supported by this provider" }

// Client is the interface every LnClient provider (Breez, CLN gRPC, CLN
// REST, LND REST) implements; the core depends only on this.
type Client interface {
	// Invoice requests a new BOLT11 invoice from the node.
	Invoice(ctx context.Context, amountMsat int64, description string, expirySeconds int64, descriptionHashOnly bool) (*Invoice, error)

	// Pay sends a BOLT11 invoice, optionally overriding its embedded amount
	// for zero-amount invoices.
	Pay(ctx context.Context, bolt11 string, amountMsat *int64) (*Payment, error)

	// InvoiceByHash looks up an invoice previously issued by this node by
	// its payment hash; returns nil, nil if unknown.
	InvoiceByHash(ctx context.Context, paymentHash string) (*Invoice, error)

	// Health reports the node's current operational state.
	Health(ctx context.Context) (HealthStatus, error)

	// PayOnchain pays a Bitcoin address out of channel liquidity via
	// submarine swap. Optional; returns ErrNotSupported by default.
	PayOnchain(ctx context.Context, amountSat int64, address string, feerate int64) (*SwapInfo, error)

	// GetNewBtcAddress derives a fresh on-chain receive address from the
	// node's on-chain wallet. Optional.
	GetNewBtcAddress(ctx context.Context) (string, error)

	// GetBtcBalance returns the node's on-chain wallet balance in
	// satoshis. Optional.
	GetBtcBalance(ctx context.Context) (int64, error)

	// SendBtc broadcasts an on-chain transaction from the node's wallet.
	// Optional.
	SendBtc(ctx context.Context, amountSat int64, address string, feerate int64) (string, error)

	// ListBtcTransactions returns the node's recorded on-chain activity.
	// Optional.
	ListBtcTransactions(ctx context.Context) ([]OnchainTransaction, error)

	// GetNetwork reports which Bitcoin network the node is configured
	// against. Optional.
	GetNetwork(ctx context.Context) (string, error)

	// ValidateBtcAddress reports whether address is well-formed for the
	// node's configured network. Optional.
	ValidateBtcAddress(ctx context.Context, address string) (bool, error)
}

// UnsupportedOnchain embeds into a provider that implements only the
// Lightning surface, so it satisfies Client without repeating the seven
// NotSupported stubs in every adapter.
type UnsupportedOnchain struct{}

func (UnsupportedOnchain) PayOnchain(ctx context.Context, amountSat int64, address string, feerate int64) (*SwapInfo, error) {
	return nil, ErrNotSupported
}

func (UnsupportedOnchain) GetNewBtcAddress(ctx context.Context) (string, error) {
	return "", ErrNotSupported
}

func (UnsupportedOnchain) GetBtcBalance(ctx context.Context) (int64, error) {
	return 0, ErrNotSupported
}

func (UnsupportedOnchain) SendBtc(ctx context.Context, amountSat int64, address string, feerate int64) (string, error) {
	return "", ErrNotSupported
}

func (UnsupportedOnchain) ListBtcTransactions(ctx context.Context) ([]OnchainTransaction, error) {
	return nil, ErrNotSupported
}

func (UnsupportedOnchain) GetNetwork(ctx context.Context) (string, error) {
	return "", ErrNotSupported
}

func (UnsupportedOnchain) ValidateBtcAddress(ctx context.Context, address string) (bool, error) {
	return false, ErrNotSupported
}

// Package events defines the typed events a Lightning node or chain watcher
// delivers at-least-once, and the Listener interface every provider's
// reconnect loop implements.
package events

import (
	"context"
	"time"
)

// LnInvoicePaid signals that a Lightning invoice issued by this node has
// been settled.
type LnInvoicePaid struct {
	PaymentHash        string
	AmountReceivedMsat int64
	FeeMsat            int64
	PaymentTime        time.Time
}

// LnPaySuccess signals that an outgoing Lightning payment has settled.
type LnPaySuccess struct {
	PaymentHash     string
	PaymentPreimage string
	AmountMsat      int64
	FeeMsat         int64
	PaymentTime     time.Time
}

// LnPayFailure signals that an outgoing Lightning payment has terminally
// failed.
type LnPayFailure struct {
	PaymentHash string
	Reason      string
}

// OnchainDeposit signals a confirmed (or unconfirmed, watch-only) on-chain
// receive against an address this server controls.
type OnchainDeposit struct {
	Txid        string
	OutputIndex int32
	Address     string
	AmountSat   int64
	BlockHeight *int64
	Network     string
}

// OnchainWithdrawal signals progress on an on-chain send this server
// broadcast.
type OnchainWithdrawal struct {
	Txid        string
	OutputIndex int32
	AmountSat   int64
	FeeSat      *int64
	BlockHeight *int64
	Network     string
}

// Sink is implemented by EventsService; a Listener calls exactly one of
// these methods per delivered event, possibly more than once for the same
// logical event (at-least-once delivery — Sink implementations must be
// idempotent).
type Sink interface {
	InvoicePaid(ctx context.Context, e LnInvoicePaid) error
	OutgoingPayment(ctx context.Context, e LnPaySuccess) error
	FailedPayment(ctx context.Context, e LnPayFailure) error
	OnchainDeposit(ctx context.Context, e OnchainDeposit) error
	OnchainWithdrawal(ctx context.Context, e OnchainWithdrawal) error
}

// Listener is a long-running subscription to a single provider's event
// stream. Run blocks until ctx is cancelled, reconnecting internally on
// transport failure.
type Listener interface {
	Run(ctx context.Context, sink Sink) error
}

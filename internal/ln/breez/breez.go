// Package breez adapts an embedded Breez SDK node to internal/ln.Client.
// The Breez SDK ships as native bindings invoked in-process (no network
// wire format of its own to reproduce), so this adapter depends on a
// narrow SDK interface rather than vendoring the bindings this module
// cannot generate; a real deployment supplies the concrete SDK instance
// behind that interface.
package breez

import (
	"context"
	"fmt"
	"time"

	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/events"
	"github.com/numeraire/swissknife-go/internal/ln"
)

// LnInvoice mirrors the fields this adapter reads off the SDK's invoice type.
type LnInvoice struct {
	Bolt11        string
	PaymentHash   string
	PayeePubkey   string
	PaymentSecret string
	AmountMsat    int64
	Expiry        int64
	Timestamp     int64
}

// PaymentResult mirrors the SDK's synchronous send_payment response.
type PaymentResult struct {
	PaymentHash     string
	PaymentPreimage string
	AmountMsat      int64
	FeeMsat         int64
	Pending         bool
	Failed          bool
	FailureReason   string
}

// NodeState mirrors the SDK's node_info() snapshot used for health checks.
type NodeState struct {
	BlockheightSynced bool
	OnchainBalanceSat int64
}

// PaymentEvent mirrors one of the SDK's event-stream callback payloads.
type PaymentEvent struct {
	Kind        string // "invoice_paid" | "payment_succeed" | "payment_failed"
	PaymentHash string
	Preimage    string
	AmountMsat  int64
	FeeMsat     int64
	Reason      string
	Timestamp   int64
}

// SDK is the subset of the Breez SDK's bound API this adapter calls.
type SDK interface {
	ReceivePayment(ctx context.Context, amountMsat int64, description string, expirySecs int64) (*LnInvoice, error)
	SendPayment(ctx context.Context, bolt11 string, amountMsatOverride *int64) (*PaymentResult, error)
	PaymentByHash(ctx context.Context, paymentHash string) (*LnInvoice, bool, error)
	NodeInfo(ctx context.Context) (*NodeState, error)
	// Subscribe registers onEvent to be called for every SDK event until
	// ctx is cancelled; it is the SDK's cooperative callback model rather
	// than a pollable stream.
	Subscribe(ctx context.Context, onEvent func(PaymentEvent)) error
}

// Client wraps an initialized SDK instance.
type Client struct {
	ln.UnsupportedOnchain
	sdk SDK
}

// New wraps an already-initialized Breez SDK handle (seed unlocked, working
// dir opened per cfg by the caller).
func New(cfg config.BreezConfig, sdk SDK) *Client {
	return &Client{sdk: sdk}
}

func (c *Client) Invoice(ctx context.Context, amountMsat int64, description string, expirySeconds int64, descriptionHashOnly bool) (*ln.Invoice, error) {
	inv, err := c.sdk.ReceivePayment(ctx, amountMsat, description, expirySeconds)
	if err != nil {
		return nil, fmt.Errorf("breez: receive payment: %w", err)
	}
	return &ln.Invoice{
		PaymentHash:   inv.PaymentHash,
		Bolt11:        inv.Bolt11,
		PayeePubkey:   inv.PayeePubkey,
		PaymentSecret: inv.PaymentSecret,
		AmountMsat:    inv.AmountMsat,
		ExpirySeconds: inv.Expiry,
		ExpiresAt:     time.Unix(inv.Timestamp+inv.Expiry, 0).UTC(),
		CreatedAt:     time.Unix(inv.Timestamp, 0).UTC(),
	}, nil
}

func (c *Client) Pay(ctx context.Context, bolt11 string, amountMsat *int64) (*ln.Payment, error) {
	res, err := c.sdk.SendPayment(ctx, bolt11, amountMsat)
	if err != nil {
		return nil, fmt.Errorf("breez: send payment: %w", err)
	}
	p := &ln.Payment{
		PaymentHash: res.PaymentHash,
		AmountMsat:  res.AmountMsat,
		FeeMsat:     res.FeeMsat,
	}
	switch {
	case res.Failed:
		p.Status = ln.PaymentFailed
		p.Error = res.FailureReason
	case res.Pending:
		p.Status = ln.PaymentPending
	default:
		p.Status = ln.PaymentSettled
		p.PaymentPreimage = res.PaymentPreimage
		now := time.Now().UTC()
		p.PaymentTime = &now
	}
	return p, nil
}

func (c *Client) InvoiceByHash(ctx context.Context, paymentHash string) (*ln.Invoice, error) {
	inv, settled, err := c.sdk.PaymentByHash(ctx, paymentHash)
	if err != nil {
		return nil, fmt.Errorf("breez: payment by hash: %w", err)
	}
	if inv == nil {
		return nil, nil
	}
	out := &ln.Invoice{
		PaymentHash: inv.PaymentHash,
		Bolt11:      inv.Bolt11,
		AmountMsat:  inv.AmountMsat,
		Settled:     settled,
	}
	if settled {
		t := time.Unix(inv.Timestamp, 0).UTC()
		out.AmountReceivedMsat = inv.AmountMsat
		out.PaymentTime = &t
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (ln.HealthStatus, error) {
	state, err := c.sdk.NodeInfo(ctx)
	if err != nil {
		return ln.HealthUnavailable, nil
	}
	if !state.BlockheightSynced {
		return ln.HealthMaintenance, nil
	}
	return ln.HealthOperational, nil
}

// Subscriber adapts the SDK's callback-based event model to
// events.Subscriber's blocking Connect shape.
type Subscriber struct {
	SDK SDK
}

// Connect registers a callback with the SDK and blocks until ctx is
// cancelled or the SDK's event loop errors.
func (s *Subscriber) Connect(ctx context.Context, sink events.Sink) error {
	return s.SDK.Subscribe(ctx, func(e PaymentEvent) {
		switch e.Kind {
		case "invoice_paid":
			t := time.Unix(e.Timestamp, 0).UTC()
			_ = sink.InvoicePaid(ctx, events.LnInvoicePaid{
				PaymentHash:        e.PaymentHash,
				AmountReceivedMsat: e.AmountMsat,
				FeeMsat:            e.FeeMsat,
				PaymentTime:        t,
			})
		case "payment_succeed":
			t := time.Unix(e.Timestamp, 0).UTC()
			_ = sink.OutgoingPayment(ctx, events.LnPaySuccess{
				PaymentHash:     e.PaymentHash,
				PaymentPreimage: e.Preimage,
				AmountMsat:      e.AmountMsat,
				FeeMsat:         e.FeeMsat,
				PaymentTime:     t,
			})
		case "payment_failed":
			_ = sink.FailedPayment(ctx, events.LnPayFailure{
				PaymentHash: e.PaymentHash,
				Reason:      e.Reason,
			})
		}
	})
}

package breez

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/events"
	"github.com/numeraire/swissknife-go/internal/ln"
)

type fakeSDK struct {
	invoice     *LnInvoice
	invoiceErr  error
	payResult   *PaymentResult
	payErr      error
	lookupInv   *LnInvoice
	lookupOk    bool
	lookupErr   error
	nodeState   *NodeState
	nodeErr     error
	subscribeFn func(ctx context.Context, onEvent func(PaymentEvent)) error
}

func (f *fakeSDK) ReceivePayment(ctx context.Context, amountMsat int64, description string, expirySecs int64) (*LnInvoice, error) {
	return f.invoice, f.invoiceErr
}
func (f *fakeSDK) SendPayment(ctx context.Context, bolt11 string, amountMsatOverride *int64) (*PaymentResult, error) {
	return f.payResult, f.payErr
}
func (f *fakeSDK) PaymentByHash(ctx context.Context, paymentHash string) (*LnInvoice, bool, error) {
	return f.lookupInv, f.lookupOk, f.lookupErr
}
func (f *fakeSDK) NodeInfo(ctx context.Context) (*NodeState, error) {
	return f.nodeState, f.nodeErr
}
func (f *fakeSDK) Subscribe(ctx context.Context, onEvent func(PaymentEvent)) error {
	return f.subscribeFn(ctx, onEvent)
}

func TestInvoice_ConvertsSDKInvoice(t *testing.T) {
	sdk := &fakeSDK{invoice: &LnInvoice{
		Bolt11:      "lnbc1...",
		PaymentHash: "hash1",
		AmountMsat:  1000,
		Expiry:      3600,
		Timestamp:   1700000000,
	}}
	c := New(config.BreezConfig{}, sdk)

	inv, err := c.Invoice(context.Background(), 1000, "coffee", 3600, false)
	require.NoError(t, err)
	assert.Equal(t, "hash1", inv.PaymentHash)
	assert.Equal(t, int64(3600), inv.ExpirySeconds)
}

func TestInvoice_PropagatesSDKError(t *testing.T) {
	sdk := &fakeSDK{invoiceErr: errors.New("sdk unavailable")}
	c := New(config.BreezConfig{}, sdk)

	_, err := c.Invoice(context.Background(), 1000, "coffee", 3600, false)
	assert.Error(t, err)
}

func TestPay_MapsFailedPendingAndSettled(t *testing.T) {
	failed := New(config.BreezConfig{}, &fakeSDK{payResult: &PaymentResult{Failed: true, FailureReason: "no route"}})
	p, err := failed.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentFailed, p.Status)
	assert.Equal(t, "no route", p.Error)

	pending := New(config.BreezConfig{}, &fakeSDK{payResult: &PaymentResult{Pending: true}})
	p, err = pending.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentPending, p.Status)

	settled := New(config.BreezConfig{}, &fakeSDK{payResult: &PaymentResult{PaymentPreimage: "preimage"}})
	p, err = settled.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentSettled, p.Status)
	assert.Equal(t, "preimage", p.PaymentPreimage)
	require.NotNil(t, p.PaymentTime)
}

func TestInvoiceByHash_ReturnsNilWhenUnknown(t *testing.T) {
	c := New(config.BreezConfig{}, &fakeSDK{lookupInv: nil})
	inv, err := c.InvoiceByHash(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestInvoiceByHash_ReturnsSettledInvoice(t *testing.T) {
	c := New(config.BreezConfig{}, &fakeSDK{
		lookupInv: &LnInvoice{PaymentHash: "hash2", AmountMsat: 2000, Timestamp: 1700000000},
		lookupOk:  true,
	})
	inv, err := c.InvoiceByHash(context.Background(), "hash2")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.Settled)
	assert.Equal(t, int64(2000), inv.AmountReceivedMsat)
}

func TestHealth_ReportsMaintenanceAndOperational(t *testing.T) {
	maintenance := New(config.BreezConfig{}, &fakeSDK{nodeState: &NodeState{BlockheightSynced: false}})
	status, err := maintenance.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthMaintenance, status)

	operational := New(config.BreezConfig{}, &fakeSDK{nodeState: &NodeState{BlockheightSynced: true}})
	status, err = operational.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthOperational, status)
}

func TestHealth_ReportsUnavailableOnError(t *testing.T) {
	c := New(config.BreezConfig{}, &fakeSDK{nodeErr: errors.New("disconnected")})
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthUnavailable, status)
}

type fakeSink struct {
	invoicePaid     *events.LnInvoicePaid
	outgoingPayment *events.LnPaySuccess
	failedPayment   *events.LnPayFailure
}

func (f *fakeSink) InvoicePaid(ctx context.Context, e events.LnInvoicePaid) error {
	f.invoicePaid = &e
	return nil
}
func (f *fakeSink) OutgoingPayment(ctx context.Context, e events.LnPaySuccess) error {
	f.outgoingPayment = &e
	return nil
}
func (f *fakeSink) FailedPayment(ctx context.Context, e events.LnPayFailure) error {
	f.failedPayment = &e
	return nil
}
func (f *fakeSink) OnchainDeposit(ctx context.Context, e events.OnchainDeposit) error       { return nil }
func (f *fakeSink) OnchainWithdrawal(ctx context.Context, e events.OnchainWithdrawal) error { return nil }

func TestSubscriber_DispatchesEventsToSink(t *testing.T) {
	sink := &fakeSink{}
	sdk := &fakeSDK{
		subscribeFn: func(ctx context.Context, onEvent func(PaymentEvent)) error {
			onEvent(PaymentEvent{Kind: "invoice_paid", PaymentHash: "h1", AmountMsat: 1000, Timestamp: 1700000000})
			onEvent(PaymentEvent{Kind: "payment_succeed", PaymentHash: "h2", Preimage: "p2", AmountMsat: 2000, Timestamp: 1700000000})
			onEvent(PaymentEvent{Kind: "payment_failed", PaymentHash: "h3", Reason: "timeout"})
			return nil
		},
	}
	sub := &Subscriber{SDK: sdk}

	err := sub.Connect(context.Background(), sink)
	require.NoError(t, err)

	require.NotNil(t, sink.invoicePaid)
	assert.Equal(t, "h1", sink.invoicePaid.PaymentHash)
	require.NotNil(t, sink.outgoingPayment)
	assert.Equal(t, "p2", sink.outgoingPayment.PaymentPreimage)
	require.NotNil(t, sink.failedPayment)
	assert.Equal(t, "timeout", sink.failedPayment.Reason)
}

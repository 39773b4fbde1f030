package clngrpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/ln"
)

type fakeNodeClient struct {
	invoiceResp *InvoiceResponse
	invoiceErr  error
	payResp     *PayResponse
	payErr      error
	listResp    *ListInvoicesResponse
	listErr     error
	getinfoResp *GetinfoResponse
	getinfoErr  error
}

func (f *fakeNodeClient) Invoice(ctx context.Context, in *InvoiceRequest, opts ...grpc.CallOption) (*InvoiceResponse, error) {
	return f.invoiceResp, f.invoiceErr
}
func (f *fakeNodeClient) Pay(ctx context.Context, in *PayRequest, opts ...grpc.CallOption) (*PayResponse, error) {
	return f.payResp, f.payErr
}
func (f *fakeNodeClient) ListInvoices(ctx context.Context, in *ListInvoicesRequest, opts ...grpc.CallOption) (*ListInvoicesResponse, error) {
	return f.listResp, f.listErr
}
func (f *fakeNodeClient) Getinfo(ctx context.Context, in struct{}, opts ...grpc.CallOption) (*GetinfoResponse, error) {
	return f.getinfoResp, f.getinfoErr
}

func TestInvoice_ConvertsResponse(t *testing.T) {
	node := &fakeNodeClient{invoiceResp: &InvoiceResponse{
		Bolt11:      "lnbc1...",
		PaymentHash: []byte{0xde, 0xad},
		ExpiresAt:   1700000000,
	}}
	c := New(node)

	inv, err := c.Invoice(context.Background(), 1000, "coffee", 3600, false)
	require.NoError(t, err)
	assert.Equal(t, "dead", inv.PaymentHash)
	assert.Equal(t, "lnbc1...", inv.Bolt11)
}

func TestInvoice_PropagatesError(t *testing.T) {
	c := New(&fakeNodeClient{invoiceErr: errors.New("unavailable")})
	_, err := c.Invoice(context.Background(), 1000, "coffee", 3600, false)
	assert.Error(t, err)
}

func TestPay_MapsStatusEnum(t *testing.T) {
	settled := New(&fakeNodeClient{payResp: &PayResponse{
		PaymentHash:     []byte{0x01},
		PaymentPreimage: []byte{0x02},
		AmountMsat:      1000,
		AmountSentMsat:  1005,
		Status:          0,
	}})
	p, err := settled.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentSettled, p.Status)
	assert.Equal(t, int64(5), p.FeeMsat)

	pending := New(&fakeNodeClient{payResp: &PayResponse{Status: 1}})
	p, err = pending.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentPending, p.Status)

	failed := New(&fakeNodeClient{payResp: &PayResponse{Status: 2}})
	p, err = failed.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentFailed, p.Status)
}

func TestInvoiceByHash_ReturnsNilWhenEmpty(t *testing.T) {
	c := New(&fakeNodeClient{listResp: &ListInvoicesResponse{}})
	inv, err := c.InvoiceByHash(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestInvoiceByHash_ReturnsSettledInvoice(t *testing.T) {
	c := New(&fakeNodeClient{listResp: &ListInvoicesResponse{Invoices: []Invoice{{
		Bolt11:             "lnbc1...",
		PaymentHash:        []byte{0xbe, 0xef},
		Status:             1,
		AmountReceivedMsat: 2000,
		PaidAt:             1700000000,
	}}}})

	inv, err := c.InvoiceByHash(context.Background(), "beef")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.Settled)
	assert.Equal(t, int64(2000), inv.AmountReceivedMsat)
}

func TestHealth_ReportsUnavailableOnError(t *testing.T) {
	c := New(&fakeNodeClient{getinfoErr: errors.New("connection refused")})
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthUnavailable, status)
}

func TestHealth_ReportsOperationalOnSuccess(t *testing.T) {
	c := New(&fakeNodeClient{getinfoResp: &GetinfoResponse{}})
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthOperational, status)
}

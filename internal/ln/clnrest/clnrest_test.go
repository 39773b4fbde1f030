package clnrest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/ln"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := New(config.ClnRestConfig{Endpoint: srv.URL, Rune: "test-rune"})
	return c, srv
}

func TestInvoice_ParsesResponse(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/invoice", r.URL.Path)
		assert.Equal(t, "test-rune", r.Header.Get("Rune"))
		_ = json.NewEncoder(w).Encode(invoiceResponse{
			Bolt11:      "lnbc1...",
			PaymentHash: "deadbeef",
			ExpiresAt:   1700000000,
		})
	})
	defer srv.Close()

	inv, err := c.Invoice(context.Background(), 1000, "coffee", 3600, false)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", inv.PaymentHash)
	assert.Equal(t, "lnbc1...", inv.Bolt11)
	assert.Equal(t, int64(1000), inv.AmountMsat)
}

func TestInvoice_PropagatesServerError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	defer srv.Close()

	_, err := c.Invoice(context.Background(), 1000, "coffee", 3600, false)
	assert.Error(t, err)
}

func TestPay_MapsCompleteStatus(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(payResponse{
			PaymentHash:     "hash1",
			PaymentPreimage: "preimage1",
			AmountMsat:      1000,
			AmountSentMsat:  1010,
			Status:          "complete",
		})
	})
	defer srv.Close()

	p, err := c.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentSettled, p.Status)
	assert.Equal(t, "preimage1", p.PaymentPreimage)
	assert.Equal(t, int64(10), p.FeeMsat)
	require.NotNil(t, p.PaymentTime)
}

func TestPay_MapsPendingAndFailedStatus(t *testing.T) {
	cPending, srvPending := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(payResponse{Status: "pending"})
	})
	defer srvPending.Close()
	p, err := cPending.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentPending, p.Status)

	cFailed, srvFailed := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(payResponse{Status: "failed"})
	})
	defer srvFailed.Close()
	p, err = cFailed.Pay(context.Background(), "lnbc1...", nil)
	require.NoError(t, err)
	assert.Equal(t, ln.PaymentFailed, p.Status)
}

func TestInvoiceByHash_ReturnsNilWhenUnknown(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(listInvoicesResponse{})
	})
	defer srv.Close()

	inv, err := c.InvoiceByHash(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestInvoiceByHash_ReturnsSettledInvoice(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(listInvoicesResponse{Invoices: []struct {
			Bolt11             string `json:"bolt11"`
			PaymentHash        string `json:"payment_hash"`
			Status             string `json:"status"`
			AmountReceivedMsat int64  `json:"amount_received_msat"`
			PaidAt             int64  `json:"paid_at"`
		}{{
			Bolt11:             "lnbc1...",
			PaymentHash:        "hash2",
			Status:             "paid",
			AmountReceivedMsat: 2000,
			PaidAt:             1700000000,
		}}})
	})
	defer srv.Close()

	inv, err := c.InvoiceByHash(context.Background(), "hash2")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.Settled)
	assert.Equal(t, int64(2000), inv.AmountReceivedMsat)
	require.NotNil(t, inv.PaymentTime)
}

func TestHealth_ReportsOperationalAndMaintenance(t *testing.T) {
	operational, srv1 := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	defer srv1.Close()
	status, err := operational.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthOperational, status)

	maintenance, srv2 := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"warning_lightningd_sync": "still syncing"})
	})
	defer srv2.Close()
	status, err = maintenance.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthMaintenance, status)
}

func TestHealth_ReportsUnavailableOnError(t *testing.T) {
	c := New(config.ClnRestConfig{Endpoint: "http://127.0.0.1:0", Rune: "x"})
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ln.HealthUnavailable, status)
}

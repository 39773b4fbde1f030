// Package clnrest adapts Core Lightning's REST plugin (rune-authenticated
// HTTPS, websocket notifications) to internal/ln.Client.
package clnrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/ln"
)

// Client calls lightningd's REST plugin over HTTPS, authenticated with a
// rune capability token instead of a macaroon.
type Client struct {
	ln.UnsupportedOnchain
	httpClient *http.Client
	baseURL    string
	rune       string
}

// New builds a Client from cfg.
func New(cfg config.ClnRestConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.Endpoint,
		rune:       cfg.Rune,
	}
}

func (c *Client) call(ctx context.Context, method string, req interface{}, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Rune", c.rune)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cln-rest returned %d: %s", resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type invoiceRequest struct {
	AmountMsat  int64  `json:"amount_msat"`
	Label       string `json:"label"`
	Description string `json:"description"`
	ExpirySecs  int64  `json:"expiry"`
}

type invoiceResponse struct {
	Bolt11      string `json:"bolt11"`
	PaymentHash string `json:"payment_hash"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (c *Client) Invoice(ctx context.Context, amountMsat int64, description string, expirySeconds int64, descriptionHashOnly bool) (*ln.Invoice, error) {
	var out invoiceResponse
	err := c.call(ctx, "invoice", invoiceRequest{
		AmountMsat:  amountMsat,
		Label:       fmt.Sprintf("swissknife-%d", time.Now().UnixNano()),
		Description: description,
		ExpirySecs:  expirySeconds,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("clnrest: invoice: %w", err)
	}
	return &ln.Invoice{
		PaymentHash: out.PaymentHash,
		Bolt11:      out.Bolt11,
		AmountMsat:  amountMsat,
		ExpiresAt:   time.Unix(out.ExpiresAt, 0).UTC(),
	}, nil
}

type payRequest struct {
	Bolt11     string `json:"bolt11"`
	AmountMsat *int64 `json:"amount_msat,omitempty"`
}

type payResponse struct {
	PaymentHash     string `json:"payment_hash"`
	PaymentPreimage string `json:"payment_preimage"`
	AmountMsat      int64  `json:"amount_msat"`
	AmountSentMsat  int64  `json:"amount_sent_msat"`
	Status          string `json:"status"`
}

func (c *Client) Pay(ctx context.Context, bolt11 string, amountMsat *int64) (*ln.Payment, error) {
	var out payResponse
	if err := c.call(ctx, "pay", payRequest{Bolt11: bolt11, AmountMsat: amountMsat}, &out); err != nil {
		return nil, fmt.Errorf("clnrest: pay: %w", err)
	}

	p := &ln.Payment{
		PaymentHash: out.PaymentHash,
		AmountMsat:  out.AmountMsat,
		FeeMsat:     out.AmountSentMsat - out.AmountMsat,
	}
	switch out.Status {
	case "complete":
		p.Status = ln.PaymentSettled
		p.PaymentPreimage = out.PaymentPreimage
		now := time.Now().UTC()
		p.PaymentTime = &now
	case "pending":
		p.Status = ln.PaymentPending
	default:
		p.Status = ln.PaymentFailed
	}
	return p, nil
}

type listInvoicesRequest struct {
	PaymentHash string `json:"payment_hash"`
}

type listInvoicesResponse struct {
	Invoices []struct {
		Bolt11             string `json:"bolt11"`
		PaymentHash        string `json:"payment_hash"`
		Status             string `json:"status"`
		AmountReceivedMsat int64  `json:"amount_received_msat"`
		PaidAt             int64  `json:"paid_at"`
	} `json:"invoices"`
}

func (c *Client) InvoiceByHash(ctx context.Context, paymentHash string) (*ln.Invoice, error) {
	var out listInvoicesResponse
	if err := c.call(ctx, "listinvoices", listInvoicesRequest{PaymentHash: paymentHash}, &out); err != nil {
		return nil, fmt.Errorf("clnrest: listinvoices: %w", err)
	}
	if len(out.Invoices) == 0 {
		return nil, nil
	}
	inv := out.Invoices[0]
	result := &ln.Invoice{
		PaymentHash:        inv.PaymentHash,
		Bolt11:             inv.Bolt11,
		AmountReceivedMsat: inv.AmountReceivedMsat,
		Settled:            inv.Status == "paid",
	}
	if result.Settled {
		t := time.Unix(inv.PaidAt, 0).UTC()
		result.PaymentTime = &t
	}
	return result, nil
}

func (c *Client) Health(ctx context.Context) (ln.HealthStatus, error) {
	var out struct {
		WarningLightningdSync string `json:"warning_lightningd_sync"`
	}
	if err := c.call(ctx, "getinfo", struct{}{}, &out); err != nil {
		return ln.HealthUnavailable, nil
	}
	if out.WarningLightningdSync != "" {
		return ln.HealthMaintenance, nil
	}
	return ln.HealthOperational, nil
}

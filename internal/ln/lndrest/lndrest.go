// Package lndrest adapts LND's REST API (macaroon-authenticated HTTPS) to
// internal/ln.Client, grounded on internal/reddit/client.go's
// http.Client+NewRequestWithContext+bearer-header idiom.
package lndrest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/ln"
)

// Client calls LND's REST API directly over HTTPS.
type Client struct {
	ln.UnsupportedOnchain
	httpClient  *http.Client
	baseURL     string
	macaroonHex string
}

// New builds a Client from cfg, loading the TLS cert LND presents.
func New(cfg config.LndConfig) (*Client, error) {
	tlsCfg := &tls.Config{}
	if cfg.TLSCertPath != "" {
		pool, err := loadCertPool(cfg.TLSCertPath)
		if err != nil {
			return nil, fmt.Errorf("lndrest: failed to load tls cert: %w", err)
		}
		tlsCfg.RootCAs = pool
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
		baseURL:     "https://" + cfg.Endpoint,
		macaroonHex: cfg.MacaroonHex,
	}, nil
}

type addInvoiceRequest struct {
	Value      string `json:"value_msat"`
	Memo       string `json:"memo"`
	Expiry     string `json:"expiry"`
	DescHashed bool   `json:"is_keysend,omitempty"`
}

type addInvoiceResponse struct {
	RHash          []byte `json:"r_hash"`
	PaymentRequest string `json:"payment_request"`
	AddIndex       string `json:"add_index"`
}

func (c *Client) Invoice(ctx context.Context, amountMsat int64, description string, expirySeconds int64, descriptionHashOnly bool) (*ln.Invoice, error) {
	reqBody, err := json.Marshal(addInvoiceRequest{
		Value:  strconv.FormatInt(amountMsat, 10),
		Memo:   description,
		Expiry: strconv.FormatInt(expirySeconds, 10),
	})
	if err != nil {
		return nil, err
	}

	var out addInvoiceResponse
	if err := c.post(ctx, "/v1/invoices", reqBody, &out); err != nil {
		return nil, fmt.Errorf("lndrest: add invoice: %w", err)
	}

	return &ln.Invoice{
		PaymentHash: hex.EncodeToString(out.RHash),
		Bolt11:      out.PaymentRequest,
		AmountMsat:  amountMsat,
		ExpiresAt:   time.Now().UTC().Add(time.Duration(expirySeconds) * time.Second),
	}, nil
}

type sendPaymentRequest struct {
	PaymentRequest string `json:"payment_request"`
	AmtMsat        string `json:"amt_msat,omitempty"`
}

type sendPaymentResponse struct {
	PaymentError    string `json:"payment_error"`
	PaymentPreimage []byte `json:"payment_preimage"`
	PaymentHash     []byte `json:"payment_hash"`
	PaymentRoute    struct {
		TotalFeesMsat  string `json:"total_fees_msat"`
		TotalAmtMsat   string `json:"total_amt_msat"`
	} `json:"payment_route"`
}

func (c *Client) Pay(ctx context.Context, bolt11 string, amountMsat *int64) (*ln.Payment, error) {
	req := sendPaymentRequest{PaymentRequest: bolt11}
	if amountMsat != nil {
		req.AmtMsat = strconv.FormatInt(*amountMsat, 10)
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out sendPaymentResponse
	if err := c.post(ctx, "/v1/channels/transactions", reqBody, &out); err != nil {
		return nil, fmt.Errorf("lndrest: send payment: %w", err)
	}

	if out.PaymentError != "" {
		return &ln.Payment{Status: ln.PaymentFailed, Error: out.PaymentError}, nil
	}

	feeMsat, _ := strconv.ParseInt(out.PaymentRoute.TotalFeesMsat, 10, 64)
	amtMsat, _ := strconv.ParseInt(out.PaymentRoute.TotalAmtMsat, 10, 64)
	now := time.Now().UTC()
	return &ln.Payment{
		PaymentHash:     hex.EncodeToString(out.PaymentHash),
		PaymentPreimage: hex.EncodeToString(out.PaymentPreimage),
		AmountMsat:      amtMsat,
		FeeMsat:         feeMsat,
		Status:          ln.PaymentSettled,
		PaymentTime:     &now,
	}, nil
}

type lookupInvoiceResponse struct {
	RHash          []byte `json:"r_hash"`
	PaymentRequest string `json:"payment_request"`
	Settled        bool   `json:"settled"`
	AmtPaidMsat    string `json:"amt_paid_msat"`
	SettleDate     string `json:"settle_date"`
}

func (c *Client) InvoiceByHash(ctx context.Context, paymentHash string) (*ln.Invoice, error) {
	raw, err := hex.DecodeString(paymentHash)
	if err != nil {
		return nil, fmt.Errorf("lndrest: invalid payment hash: %w", err)
	}
	var out lookupInvoiceResponse
	if err := c.get(ctx, "/v1/invoice/"+hex.EncodeToString(raw), &out); err != nil {
		return nil, fmt.Errorf("lndrest: lookup invoice: %w", err)
	}

	inv := &ln.Invoice{
		PaymentHash: paymentHash,
		Bolt11:      out.PaymentRequest,
		Settled:     out.Settled,
	}
	if out.Settled {
		paid, _ := strconv.ParseInt(out.AmtPaidMsat, 10, 64)
		inv.AmountReceivedMsat = paid
		secs, _ := strconv.ParseInt(out.SettleDate, 10, 64)
		t := time.Unix(secs, 0).UTC()
		inv.PaymentTime = &t
	}
	return inv, nil
}

func (c *Client) Health(ctx context.Context) (ln.HealthStatus, error) {
	var out struct {
		SyncedToChain bool `json:"synced_to_chain"`
	}
	if err := c.get(ctx, "/v1/getinfo", &out); err != nil {
		return ln.HealthUnavailable, nil
	}
	if !out.SyncedToChain {
		return ln.HealthMaintenance, nil
	}
	return ln.HealthOperational, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

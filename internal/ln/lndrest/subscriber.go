package lndrest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/numeraire/swissknife-go/internal/events"
)

type subscribeInvoicesEnvelope struct {
	Result struct {
		RHash       []byte `json:"r_hash"`
		Settled     bool   `json:"settled"`
		AmtPaidMsat string `json:"amt_paid_msat"`
		SettleDate  string `json:"settle_date"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Subscriber streams LND's chunked-JSON SubscribeInvoices endpoint, the
// long-poll streaming variant for the LND REST provider.
type Subscriber struct {
	Client *Client
}

// Connect streams invoice settlement notifications until ctx is cancelled
// or the connection drops.
func (s *Subscriber) Connect(ctx context.Context, sink events.Sink) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Client.baseURL+"/v1/invoices/subscribe", nil)
	if err != nil {
		return fmt.Errorf("lndrest: failed to create subscribe request: %w", err)
	}
	req.Header.Set("Grpc-Metadata-macaroon", s.Client.macaroonHex)

	resp, err := s.Client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lndrest: subscribe invoices: %w", err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		var env subscribeInvoicesEnvelope
		if err := dec.Decode(&env); err != nil {
			return fmt.Errorf("lndrest: invoice stream ended: %w", err)
		}
		if env.Error != nil {
			return fmt.Errorf("lndrest: invoice stream error: %s", env.Error.Message)
		}
		if !env.Result.Settled {
			continue
		}

		amt, _ := strconv.ParseInt(env.Result.AmtPaidMsat, 10, 64)
		secs, _ := strconv.ParseInt(env.Result.SettleDate, 10, 64)

		err := sink.InvoicePaid(ctx, events.LnInvoicePaid{
			PaymentHash:        hex.EncodeToString(env.Result.RHash),
			AmountReceivedMsat: amt,
			PaymentTime:        time.Unix(secs, 0).UTC(),
		})
		if err != nil {
			return err
		}
	}
}

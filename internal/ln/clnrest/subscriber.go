package clnrest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/numeraire/swissknife-go/internal/events"
)

type invoicePaidNotification struct {
	PaymentHash        string `json:"payment_hash"`
	AmountReceivedMsat int64  `json:"amount_received_msat"`
	PaidAt             int64  `json:"paid_at"`
}

// Subscriber connects to lightningd's REST plugin websocket notification
// channel, authenticated with the same rune as REST calls.
type Subscriber struct {
	WSURL string
	Rune  string
}

// Connect dials the websocket and forwards invoice_payment notifications
// until ctx is cancelled or the socket errors.
func (s *Subscriber) Connect(ctx context.Context, sink events.Sink) error {
	header := http.Header{}
	header.Set("Rune", s.Rune)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, s.WSURL, header)
	if err != nil {
		return fmt.Errorf("clnrest: websocket dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	for {
		var msg struct {
			Notification string                   `json:"notification"`
			Payload      invoicePaidNotification `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-done:
				return nil
			default:
				return fmt.Errorf("clnrest: websocket read: %w", err)
			}
		}
		if !strings.EqualFold(msg.Notification, "invoice_payment") {
			continue
		}

		err := sink.InvoicePaid(ctx, events.LnInvoicePaid{
			PaymentHash:        msg.Payload.PaymentHash,
			AmountReceivedMsat: msg.Payload.AmountReceivedMsat,
			PaymentTime:        time.Unix(msg.Payload.PaidAt, 0).UTC(),
		})
		if err != nil {
			return err
		}
	}
}

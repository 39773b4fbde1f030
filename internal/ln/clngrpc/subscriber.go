package clngrpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/numeraire/swissknife-go/internal/events"
)

// WaitAnyInvoiceRequest polls lightningd's long-poll `waitanyinvoice` by
// last-paid index.
type WaitAnyInvoiceRequest struct {
	LastpayIndex uint64
}

// WaitAnyInvoiceResponse is the settled invoice lightningd returns once an
// index beyond LastpayIndex is paid.
type WaitAnyInvoiceResponse struct {
	Bolt11             string
	PaymentHash        []byte
	AmountReceivedMsat uint64
	PaidAt             int64
	PayIndex           uint64
}

// StreamClient is the subset of cln.NodeClient used by the event
// subscriber; split from NodeClient because WaitAnyInvoice blocks for the
// duration of the long-poll and is called in a dedicated goroutine.
type StreamClient interface {
	WaitAnyInvoice(ctx context.Context, in *WaitAnyInvoiceRequest, opts ...grpc.CallOption) (*WaitAnyInvoiceResponse, error)
}

// Subscriber implements events.Subscriber over cln.Node's WaitAnyInvoice
// long-poll, the standard streaming idiom for the CLN gRPC provider.
type Subscriber struct {
	Stream StreamClient
}

// Connect blocks delivering LnInvoicePaid events until ctx is cancelled or
// the stream errors.
func (s *Subscriber) Connect(ctx context.Context, sink events.Sink) error {
	lastIndex := uint64(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		resp, err := s.Stream.WaitAnyInvoice(ctx, &WaitAnyInvoiceRequest{LastpayIndex: lastIndex})
		if err != nil {
			return fmt.Errorf("clngrpc: waitanyinvoice: %w", err)
		}
		lastIndex = resp.PayIndex

		err = sink.InvoicePaid(ctx, events.LnInvoicePaid{
			PaymentHash:        fmt.Sprintf("%x", resp.PaymentHash),
			AmountReceivedMsat: int64(resp.AmountReceivedMsat),
			PaymentTime:        time.Unix(resp.PaidAt, 0).UTC(),
		})
		if err != nil {
			return err
		}
	}
}

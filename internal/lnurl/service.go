package lnurl

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

const (
	MinSendableMsat = 1000
	MaxSendableMsat = 250_000_000
	CommentAllowed  = 255

	defaultSuccessMessage = "Thanks for the sats!"
)

// InvoiceIssuer is the narrow slice of InvoiceService the callback handler
// needs: minting a Lightning invoice for a resolved wallet.
type InvoiceIssuer interface {
	Invoice(ctx context.Context, walletID uuid.UUID, amountMsat int64, description string, lnAddressID *uuid.UUID) (*store.Invoice, error)
}

// Service answers the public LNURL-pay endpoints for this server's own
// ln_address holders.
type Service struct {
	lnAddresses store.LnAddressRepo
	invoices    InvoiceIssuer
	domain      string // public hostname this server is reachable at, e.g. "pay.example.com"
}

// New builds a Service. domain is used both to build callback URLs and to
// let PaymentService detect when a lightning address resolves back to this
// same server.
func New(lnAddresses store.LnAddressRepo, invoices InvoiceIssuer, domain string) *Service {
	return &Service{lnAddresses: lnAddresses, invoices: invoices, domain: domain}
}

// Domain returns the configured public hostname.
func (s *Service) Domain() string {
	return s.domain
}

// Lnurlp resolves username to its pay request document. Returns
// apperrors.NotFound if no active ln_address matches.
func (s *Service) Lnurlp(ctx context.Context, username string) (*PayRequestDocument, error) {
	addr, err := s.lnAddresses.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !addr.Active {
		return nil, apperrors.NotFound("ln_address not found")
	}

	metadata := fmt.Sprintf(
		`[["text/identifier","%s@%s"],["text/plain","%s never refuses sats"]]`,
		username, s.domain, username,
	)

	return &PayRequestDocument{
		Callback:       fmt.Sprintf("https://%s/lnurlp/%s/callback", s.domain, username),
		MinSendable:    MinSendableMsat,
		MaxSendable:    MaxSendableMsat,
		Metadata:       metadata,
		CommentAllowed: CommentAllowed,
		Tag:            "payRequest",
	}, nil
}

// LnurlpCallback mints an invoice for username bound to amountMsat, using
// comment as the invoice description when present.
func (s *Service) LnurlpCallback(ctx context.Context, username string, amountMsat int64, comment string) (*CallbackResponse, error) {
	addr, err := s.lnAddresses.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !addr.Active {
		return nil, apperrors.NotFound("ln_address not found")
	}
	if amountMsat < MinSendableMsat || amountMsat > MaxSendableMsat {
		return nil, &ErrBounds{AmountMsat: amountMsat, MinSendable: MinSendableMsat, MaxSendable: MaxSendableMsat}
	}
	if len(comment) > CommentAllowed {
		return nil, apperrors.Validation("comment exceeds commentAllowed")
	}

	description := comment
	inv, err := s.invoices.Invoice(ctx, addr.WalletID, amountMsat, description, &addr.ID)
	if err != nil {
		return nil, err
	}

	var pr string
	if inv.Bolt11 != nil {
		pr = *inv.Bolt11
	}

	return &CallbackResponse{
		PR: pr,
		SuccessAction: &SuccessAction{
			Tag:     "message",
			Message: defaultSuccessMessage,
		},
		Disposable: nil, // LUD-06: null means "no disposability guarantee"
		Routes:     []interface{}{},
	}, nil
}

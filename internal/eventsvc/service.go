// Package eventsvc applies asynchronous Lightning-node and on-chain events
// to the ledger, implementing events.Sink. Every handler is idempotent so
// the at-least-once delivery EventsListener guarantees never double-applies
// an event.
package eventsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/cache"
	"github.com/numeraire/swissknife-go/internal/events"
	"github.com/numeraire/swissknife-go/internal/logger"
	"github.com/numeraire/swissknife-go/internal/metrics"
	"github.com/numeraire/swissknife-go/internal/store"
)

// dedupTTL bounds how long a seen-event marker is kept; it only needs to
// outlive the provider's own redelivery window, not the event's lifetime.
const dedupTTL = 24 * time.Hour

// Service turns node-reported events into ledger mutations.
type Service struct {
	store store.Store
	log   *logger.Logger
	cache cache.Cache // optional fast-path dedup; nil falls back to DB-only idempotence
}

// New builds a Service. cache may be nil, in which case every handler still
// runs its ordinary idempotent DB check, just without the fast-path skip.
func New(s store.Store, log *logger.Logger, c cache.Cache) *Service {
	return &Service{store: s, log: log, cache: c}
}

var _ events.Sink = (*Service)(nil)

// seenBefore marks key as applied and reports whether an earlier delivery had
// already marked it. With no cache configured, or when the cache errors, it
// reports false, deferring entirely to each handler's own DB-level idempotence.
func (s *Service) seenBefore(ctx context.Context, kind, key string) bool {
	if s.cache == nil {
		return false
	}
	first, err := s.cache.SetNX(ctx, fmt.Sprintf("event:%s:%s", kind, key), "1", dedupTTL)
	if err != nil {
		return false // cache unavailable: fall through to the DB check
	}
	return !first
}

// InvoicePaid settles the invoice matching e.PaymentHash. Absent or
// already-settled invoices are ignored, making repeated delivery a no-op.
func (s *Service) InvoicePaid(ctx context.Context, e events.LnInvoicePaid) error {
	metrics.ProviderEventsTotal.WithLabelValues("invoice_paid").Inc()
	if s.seenBefore(ctx, "invoice_paid", e.PaymentHash) {
		return nil
	}
	inv, err := s.store.Invoices().FindByPaymentHash(ctx, e.PaymentHash)
	if err != nil {
		if isNotFound(err) {
			s.log.Info("invoice_paid for unknown payment_hash, ignoring", zap.String("payment_hash", e.PaymentHash))
			return nil
		}
		return err
	}
	if inv.PaymentTime != nil {
		return nil // already settled
	}

	received := e.AmountReceivedMsat
	fee := e.FeeMsat
	paymentTime := e.PaymentTime
	inv.AmountReceivedMsat = &received
	inv.FeeMsat = &fee
	inv.PaymentTime = &paymentTime

	return s.store.Invoices().Update(ctx, nil, inv)
}

// OutgoingPayment settles the payment matching e.PaymentHash with its
// preimage and fee. If no local payment row exists, it is left unreconciled
// rather than fabricating one under the server's own wallet attribution.
func (s *Service) OutgoingPayment(ctx context.Context, e events.LnPaySuccess) error {
	metrics.ProviderEventsTotal.WithLabelValues("outgoing_payment").Inc()
	if s.seenBefore(ctx, "outgoing_payment", e.PaymentHash) {
		return nil
	}
	p, err := s.store.Payments().FindByPaymentHash(ctx, e.PaymentHash)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn("outgoing_payment for unknown payment_hash, no local row to reconcile", zap.String("payment_hash", e.PaymentHash))
			return nil
		}
		return err
	}
	if p.Status == store.PaymentStatusSettled {
		return nil
	}

	preimage := e.PaymentPreimage
	fee := e.FeeMsat
	paymentTime := e.PaymentTime
	p.PaymentPreimage = &preimage
	p.FeeMsat = &fee
	p.PaymentTime = &paymentTime
	p.Status = store.PaymentStatusSettled

	return s.store.Payments().Update(ctx, nil, p)
}

// FailedPayment marks the payment matching e.PaymentHash as Failed.
func (s *Service) FailedPayment(ctx context.Context, e events.LnPayFailure) error {
	metrics.ProviderEventsTotal.WithLabelValues("failed_payment").Inc()
	if s.seenBefore(ctx, "failed_payment", e.PaymentHash) {
		return nil
	}
	p, err := s.store.Payments().FindByPaymentHash(ctx, e.PaymentHash)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if p.Status != store.PaymentStatusPending {
		return nil
	}

	reason := e.Reason
	p.Error = &reason
	p.Status = store.PaymentStatusFailed

	return s.store.Payments().Update(ctx, nil, p)
}

// OnchainDeposit upserts the observed output and, if it lands on an address
// this server owns, records a settled on-chain invoice and marks the
// address used.
func (s *Service) OnchainDeposit(ctx context.Context, e events.OnchainDeposit) error {
	metrics.ProviderEventsTotal.WithLabelValues("onchain_deposit").Inc()
	outpoint := store.Outpoint(e.Txid, e.OutputIndex)
	status := store.BtcOutputUnconfirmed
	if e.BlockHeight != nil {
		status = store.BtcOutputConfirmed
	}
	now := time.Now().UTC()
	if err := s.store.BtcOutputs().Upsert(ctx, nil, &store.BtcOutput{
		ID:          uuid.New(),
		Outpoint:    outpoint,
		Txid:        e.Txid,
		OutputIndex: e.OutputIndex,
		Address:     e.Address,
		AmountSat:   e.AmountSat,
		Status:      status,
		BlockHeight: e.BlockHeight,
		Network:     e.Network,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}

	if e.Address == "" {
		return nil
	}
	addr, err := s.store.BtcAddresses().FindByAddress(ctx, e.Address)
	if err != nil {
		if isNotFound(err) {
			return nil // deposit to an address this server never minted
		}
		return err
	}
	wallet, err := s.store.Wallets().FindByID(ctx, addr.WalletID)
	if err != nil {
		return err
	}

	amountReceived := e.AmountSat * 1000
	inv := &store.Invoice{
		ID:                 uuid.New(),
		WalletID:           addr.WalletID,
		AmountReceivedMsat: &amountReceived,
		Timestamp:          now,
		Ledger:             store.LedgerOnchain,
		Currency:           wallet.Currency,
		CreatedAt:          now,
		BtcTxid:            &e.Txid,
		OutputIndex:        &e.OutputIndex,
		PaymentTime:        &now,
	}
	if err := s.store.Invoices().Insert(ctx, nil, inv); err != nil {
		if isConflict(err) {
			return nil // already recorded by a prior delivery
		}
		return err
	}

	if tx, err := s.store.Begin(ctx); err == nil {
		if err := s.store.BtcAddresses().MarkUsed(ctx, tx, addr.ID); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	}
	return s.store.BtcAddresses().MarkUsed(ctx, nil, addr.ID)
}

// OnchainWithdrawal upserts the observed output and advances the matching
// pending payment's block height, settling it once the provider reports
// the withdrawal as confirmed.
func (s *Service) OnchainWithdrawal(ctx context.Context, e events.OnchainWithdrawal) error {
	metrics.ProviderEventsTotal.WithLabelValues("onchain_withdrawal").Inc()
	outpoint := store.Outpoint(e.Txid, e.OutputIndex)
	status := store.BtcOutputUnconfirmed
	if e.BlockHeight != nil {
		status = store.BtcOutputConfirmed
	}
	now := time.Now().UTC()
	if err := s.store.BtcOutputs().Upsert(ctx, nil, &store.BtcOutput{
		ID:          uuid.New(),
		Outpoint:    outpoint,
		Txid:        e.Txid,
		OutputIndex: e.OutputIndex,
		AmountSat:   e.AmountSat,
		Status:      status,
		BlockHeight: e.BlockHeight,
		Network:     e.Network,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}

	p, err := s.store.Payments().FindPendingByTxid(ctx, e.Txid)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	p.BlockHeight = e.BlockHeight
	if e.BlockHeight != nil {
		p.Status = store.PaymentStatusSettled
		p.PaymentTime = &now
	}
	return s.store.Payments().Update(ctx, nil, p)
}

func isNotFound(err error) bool {
	e, ok := apperrors.As(err)
	return ok && e.Kind == apperrors.KindNotFound
}

func isConflict(err error) bool {
	e, ok := apperrors.As(err)
	return ok && e.Kind == apperrors.KindConflict
}

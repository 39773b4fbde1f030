// Package paymentsvc implements PaymentService: resolving a free-form
// payment input (BOLT11, lightning address, or on-chain address) to a
// concrete send, enforcing the available-balance invariant, and recording
// the resulting Payment.
package paymentsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/bolt11"
	"github.com/numeraire/swissknife-go/internal/btc"
	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/ln"
	"github.com/numeraire/swissknife-go/internal/lnurl"
	"github.com/numeraire/swissknife-go/internal/metrics"
	"github.com/numeraire/swissknife-go/internal/store"
)

// Service executes and reconciles outgoing payments.
type Service struct {
	store       store.Store
	ln          ln.Client
	wallet      btc.Wallet
	lnurlClient *lnurl.Client
	lnurlSvc    *lnurl.Service // nil if this deployment serves no ln_address domain
	cfg         config.LnAddressConfig
	locks       walletLocks
}

// New builds a Service. lnurlSvc may be nil when the server has no public
// ln_address domain configured; wallet may be nil, in which case on-chain
// sends go through the Lightning node's own wallet (ln.Client.SendBtc).
func New(s store.Store, lnClient ln.Client, wallet btc.Wallet, lnurlSvc *lnurl.Service, cfg config.LnAddressConfig) *Service {
	return &Service{
		store:       s,
		ln:          lnClient,
		wallet:      wallet,
		lnurlClient: lnurl.NewClient(&http.Client{Timeout: 20 * time.Second}),
		lnurlSvc:    lnurlSvc,
		cfg:         cfg,
	}
}

// SendParams are the inputs to Send.
type SendParams struct {
	WalletID   uuid.UUID
	Input      string
	AmountMsat *int64
	Comment    string
}

// resolved is what input-classification settles on before the balance
// check: a payment hash, final amount, and optional ln_address / success
// action metadata to attach to the recorded Payment.
type resolved struct {
	paymentHash       string
	bolt11            string
	invoiceAmountMsat int64 // the bolt11's own embedded amount, 0 if open-amount
	amountMsat        int64
	lnAddress         *string
	successAction     []byte
	internal          *internalTransfer // set only for the same-server short-circuit
	onchainAddress    *string           // set only for an on-chain send
}

type internalTransfer struct {
	payeeWalletID uuid.UUID
	lnAddressID   uuid.UUID
	description   string
}

// Send resolves params.Input, enforces the balance invariant under the
// wallet's lock, inserts a Pending Payment, and invokes the node (unless
// the internal short-circuit applies), updating the Payment with the
// terminal outcome when the node returns one synchronously.
func (s *Service) Send(ctx context.Context, p SendParams) (*store.Payment, error) {
	wallet, err := s.store.Wallets().FindByID(ctx, p.WalletID)
	if err != nil {
		return nil, err
	}

	r, err := s.resolve(ctx, wallet, p)
	if err != nil {
		return nil, err
	}

	switch {
	case r.internal != nil:
		return s.sendInternal(ctx, wallet, r)
	case r.onchainAddress != nil:
		return s.sendOnchain(ctx, wallet, r)
	default:
		return s.sendExternal(ctx, wallet, r)
	}
}

// resolve turns the free-form input into a concrete send target (a BOLT11
// payment hash, an internal transfer, or an on-chain address) plus amount.
func (s *Service) resolve(ctx context.Context, wallet *store.Wallet, p SendParams) (*resolved, error) {
	kind, addr, normalized := classifyInput(p.Input)

	switch kind {
	case inputLnAddress:
		return s.resolveLnAddress(ctx, wallet, addr, p)

	case inputBolt11:
		inv, err := bolt11.Decode(normalized)
		if err != nil {
			return nil, apperrors.Malformed("invalid bolt11 invoice: " + err.Error())
		}
		amount := inv.AmountMsat
		if p.AmountMsat != nil {
			amount = *p.AmountMsat
		}
		if amount <= 0 {
			return nil, apperrors.Validation("amount_msat is required for a zero-amount invoice")
		}
		return &resolved{
			paymentHash:       inv.PaymentHash,
			bolt11:            normalized,
			invoiceAmountMsat: inv.AmountMsat,
			amountMsat:        amount,
		}, nil

	default: // inputOnchainAddress
		network := store.CurrencyBitcoin
		if wallet != nil {
			network = wallet.Currency
		}
		if !btc.ValidateAddress(normalized, network) {
			return nil, apperrors.Malformed("unrecognized payment input")
		}
		if p.AmountMsat == nil {
			return nil, apperrors.Validation("amount_msat is required for an on-chain send")
		}
		amount := *p.AmountMsat
		if amount <= 0 {
			return nil, apperrors.Validation("amount_msat must be positive")
		}
		addr := normalized
		return &resolved{
			amountMsat:     amount,
			onchainAddress: &addr,
		}, nil
	}
}

// resolveLnAddress resolves a lightning-address input, including the
// internal short-circuit for addresses hosted on this server's own domain.
func (s *Service) resolveLnAddress(ctx context.Context, wallet *store.Wallet, addr lnurl.Address, p SendParams) (*resolved, error) {
	if p.AmountMsat == nil {
		return nil, apperrors.Validation("amount_msat is required when paying a lightning address")
	}
	amount := *p.AmountMsat

	if s.lnurlSvc != nil && addr.Domain == s.lnurlSvc.Domain() {
		lnAddr, err := s.store.LnAddresses().FindByUsername(ctx, addr.User)
		if err != nil {
			return nil, err
		}
		if !lnAddr.Active {
			return nil, apperrors.NotFound("ln_address not found")
		}
		return &resolved{
			amountMsat: amount,
			lnAddress:  strPtr(addr.String()),
			internal: &internalTransfer{
				payeeWalletID: lnAddr.WalletID,
				lnAddressID:   lnAddr.ID,
				description:   p.Comment,
			},
		}, nil
	}

	doc, err := s.lnurlClient.Resolve(ctx, addr)
	if err != nil {
		return nil, apperrors.Lightning("failed to resolve lightning address", err)
	}
	cb, err := s.lnurlClient.RequestInvoice(ctx, doc, amount, p.Comment)
	if err != nil {
		return nil, apperrors.Lightning("lnurl callback failed", err)
	}

	inv, err := bolt11.Decode(cb.PR)
	if err != nil {
		return nil, apperrors.Lightning("lnurl callback returned an invalid invoice", err)
	}

	var sa []byte
	if cb.SuccessAction != nil {
		sa, _ = json.Marshal(cb.SuccessAction)
	}

	return &resolved{
		paymentHash:       inv.PaymentHash,
		bolt11:            cb.PR,
		invoiceAmountMsat: inv.AmountMsat,
		amountMsat:        amount,
		lnAddress:         strPtr(addr.String()),
		successAction:     sa,
	}, nil
}

// requiredMsat applies the configured fee buffer (basis points) on top of
// the requested amount.
func (s *Service) requiredMsat(amountMsat int64) int64 {
	return amountMsat + (amountMsat*s.cfg.FeeBufferBps)/10_000
}

// defaultOnchainFeerateSatPerVb is used for on-chain sends until a
// per-request feerate override is exposed on SendParams.
const defaultOnchainFeerateSatPerVb = 10

// sendToAddress broadcasts amountSat to address, preferring the directly
// configured signing wallet and falling back to the Lightning node's own
// on-chain wallet when no RPCWallet is configured.
func (s *Service) sendToAddress(ctx context.Context, amountSat int64, address string, feerateSatPerVb int64) (string, error) {
	if s.wallet != nil {
		return s.wallet.Send(ctx, amountSat, address, feerateSatPerVb)
	}
	return s.ln.SendBtc(ctx, amountSat, address, feerateSatPerVb)
}

// sendExternal handles the Bolt11 (and resolved-lightning-address) case:
// balance check and Pending insert under the wallet lock, then LnClient.pay
// outside it.
func (s *Service) sendExternal(ctx context.Context, wallet *store.Wallet, r *resolved) (*store.Payment, error) {
	mu := s.locks.lockFor(wallet.ID)
	mu.Lock()
	payment, err := s.checkBalanceAndInsertPending(ctx, wallet, r)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	var amountOverride *int64
	if r.amountMsat != r.invoiceAmountMsat {
		amountOverride = &r.amountMsat
	}
	result, err := s.ln.Pay(ctx, r.bolt11, amountOverride)
	if err != nil {
		payment.Status = store.PaymentStatusFailed
		errMsg := err.Error()
		payment.Error = &errMsg
		_ = s.store.Payments().Update(ctx, nil, payment)
		metrics.PaymentsSentTotal.WithLabelValues(string(store.PaymentStatusFailed)).Inc()
		return payment, apperrors.Lightning("payment failed", err)
	}

	switch result.Status {
	case ln.PaymentSettled:
		payment.Status = store.PaymentStatusSettled
		payment.PaymentPreimage = &result.PaymentPreimage
		payment.FeeMsat = &result.FeeMsat
		payment.PaymentTime = result.PaymentTime
		if payment.PaymentTime == nil {
			now := time.Now().UTC()
			payment.PaymentTime = &now
		}
	case ln.PaymentFailed:
		payment.Status = store.PaymentStatusFailed
		payment.Error = &result.Error
	default:
		// leave Pending; EventsService finalizes it later.
	}
	if err := s.store.Payments().Update(ctx, nil, payment); err != nil {
		return nil, err
	}
	metrics.PaymentsSentTotal.WithLabelValues(string(payment.Status)).Inc()
	return payment, nil
}

// sendOnchain handles the Bitcoin-address case: balance check and Pending
// insert under the wallet lock, then broadcast outside it. The payment is
// left Pending with its txid recorded; EventsService.OnchainWithdrawal
// settles it once the node reports the send confirmed.
func (s *Service) sendOnchain(ctx context.Context, wallet *store.Wallet, r *resolved) (*store.Payment, error) {
	mu := s.locks.lockFor(wallet.ID)
	mu.Lock()
	payment, err := s.checkBalanceAndInsertPending(ctx, wallet, r)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	amountSat := r.amountMsat / 1000
	txid, err := s.sendToAddress(ctx, amountSat, *r.onchainAddress, defaultOnchainFeerateSatPerVb)
	if err != nil {
		payment.Status = store.PaymentStatusFailed
		errMsg := err.Error()
		payment.Error = &errMsg
		_ = s.store.Payments().Update(ctx, nil, payment)
		metrics.PaymentsSentTotal.WithLabelValues(string(store.PaymentStatusFailed)).Inc()
		return payment, apperrors.Bitcoin("on-chain send failed", err)
	}

	payment.Txid = &txid
	if err := s.store.Payments().Update(ctx, nil, payment); err != nil {
		return nil, err
	}
	metrics.PaymentsSentTotal.WithLabelValues(string(payment.Status)).Inc()
	return payment, nil
}

// sendInternal implements the same-server short-circuit: an Internal
// invoice for the payee and an Internal payment for the payer are recorded
// atomically, settled immediately with no node round-trip.
func (s *Service) sendInternal(ctx context.Context, payerWallet *store.Wallet, r *resolved) (*store.Payment, error) {
	mu := s.locks.lockFor(payerWallet.ID)
	mu.Lock()
	defer mu.Unlock()

	balance, err := s.store.Wallets().Balance(ctx, payerWallet.ID)
	if err != nil {
		return nil, err
	}
	required := s.requiredMsat(r.amountMsat)
	if balance.Available() < required {
		return nil, apperrors.InsufficientFunds(required)
	}

	payeeWallet, err := s.store.Wallets().FindByID(ctx, r.internal.payeeWalletID)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, apperrors.Database("failed to begin transaction", err)
	}

	now := time.Now().UTC()
	amount := r.amountMsat
	description := r.internal.description

	invoice := &store.Invoice{
		ID:                 uuid.New(),
		WalletID:           payeeWallet.ID,
		LnAddressID:        &r.internal.lnAddressID,
		Description:        &description,
		AmountMsat:         &amount,
		AmountReceivedMsat: &amount,
		Timestamp:          now,
		Ledger:             store.LedgerInternal,
		Currency:           payeeWallet.Currency,
		CreatedAt:          now,
		PaymentTime:        &now,
	}
	if err := s.store.Invoices().Insert(ctx, tx, invoice); err != nil {
		tx.Rollback()
		return nil, err
	}

	payment := &store.Payment{
		ID:          uuid.New(),
		WalletID:    payerWallet.ID,
		AmountMsat:  amount,
		Ledger:      store.LedgerInternal,
		Currency:    payerWallet.Currency,
		Status:      store.PaymentStatusSettled,
		Description: &description,
		LnAddress:   r.lnAddress,
		PaymentTime: &now,
		CreatedAt:   now,
	}
	if err := s.store.Payments().Insert(ctx, tx, payment); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Database("failed to commit internal transfer", err)
	}
	metrics.PaymentsSentTotal.WithLabelValues(string(payment.Status)).Inc()
	return payment, nil
}

// checkBalanceAndInsertPending is the critical section the wallet lock
// protects: read the current available balance, reject if insufficient,
// else insert a Pending Payment row. Called with the wallet's lock held.
func (s *Service) checkBalanceAndInsertPending(ctx context.Context, wallet *store.Wallet, r *resolved) (*store.Payment, error) {
	balance, err := s.store.Wallets().Balance(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	required := s.requiredMsat(r.amountMsat)
	if balance.Available() < required {
		return nil, apperrors.InsufficientFunds(required)
	}

	now := time.Now().UTC()
	payment := &store.Payment{
		ID:         uuid.New(),
		WalletID:   wallet.ID,
		AmountMsat: r.amountMsat,
		Currency:   wallet.Currency,
		Status:     store.PaymentStatusPending,
		CreatedAt:  now,
	}
	if r.onchainAddress != nil {
		payment.Ledger = store.LedgerOnchain
		payment.DestinationAddress = r.onchainAddress
	} else {
		payment.Ledger = store.LedgerLightning
		payment.LnAddress = r.lnAddress
		payment.PaymentHash = &r.paymentHash
		payment.SuccessAction = r.successAction
	}
	if err := s.store.Payments().Insert(ctx, nil, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Get returns a single payment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*store.Payment, error) {
	return s.store.Payments().FindByID(ctx, id)
}

// List returns payments matching f.
func (s *Service) List(ctx context.Context, f store.Filter) ([]store.Payment, error) {
	return s.store.Payments().FindMany(ctx, f)
}

// Delete removes a single payment.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Payments().Delete(ctx, id)
}

// DeleteMany removes every payment matching f, returning the count removed.
func (s *Service) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	return s.store.Payments().DeleteMany(ctx, f)
}

// Sync exists for parity with InvoiceService.Sync, but LnClient exposes no
// outgoing-payment-status lookup analogous to invoice_by_hash: Pending
// payments can only be finalized by the node's asynchronous event stream,
// so there is nothing to poll here.
func (s *Service) Sync(ctx context.Context) (int, error) {
	return 0, nil
}

func strPtr(s string) *string { return &s }

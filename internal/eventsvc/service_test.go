package eventsvc

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/events"
	"github.com/numeraire/swissknife-go/internal/logger"
	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/store/storetest"
)

func testLogger() *logger.Logger { return logger.NewDevelopment("eventsvc_test") }

func TestInvoicePaid_SettlesMatchingInvoice(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	paymentHash := "hash1"
	inv := store.Invoice{ID: uuid.New(), WalletID: wallet.ID, Ledger: store.LedgerLightning, Currency: wallet.Currency, PaymentHash: &paymentHash}
	require.NoError(t, s.Invoices().Insert(context.Background(), nil, &inv))

	svc := New(s, testLogger(), nil)
	err := svc.InvoicePaid(context.Background(), events.LnInvoicePaid{
		PaymentHash:        paymentHash,
		AmountReceivedMsat: 100_000,
		FeeMsat:            1,
		PaymentTime:        time.Now(),
	})
	require.NoError(t, err)

	got, err := s.Invoices().FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PaymentTime)
	assert.Equal(t, int64(100_000), *got.AmountReceivedMsat)
}

func TestInvoicePaid_IgnoresUnknownHash(t *testing.T) {
	svc := New(storetest.New(), testLogger(), nil)
	err := svc.InvoicePaid(context.Background(), events.LnInvoicePaid{PaymentHash: "never-issued"})
	assert.NoError(t, err)
}

func TestInvoicePaid_IdempotentOnAlreadySettled(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	paymentHash := "hash2"
	firstSettled := time.Now().Add(-time.Hour)
	received := int64(5_000)
	inv := store.Invoice{
		ID: uuid.New(), WalletID: wallet.ID, Ledger: store.LedgerLightning, Currency: wallet.Currency,
		PaymentHash: &paymentHash, PaymentTime: &firstSettled, AmountReceivedMsat: &received,
	}
	require.NoError(t, s.Invoices().Insert(context.Background(), nil, &inv))

	svc := New(s, testLogger(), nil)
	err := svc.InvoicePaid(context.Background(), events.LnInvoicePaid{
		PaymentHash: paymentHash, AmountReceivedMsat: 999_999, PaymentTime: time.Now(),
	})
	require.NoError(t, err)

	got, err := s.Invoices().FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), *got.AmountReceivedMsat)
}

func TestOutgoingPayment_SettlesPendingPayment(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	paymentHash := "pay-hash"
	p := store.Payment{ID: uuid.New(), WalletID: wallet.ID, Ledger: store.LedgerLightning, Currency: wallet.Currency, Status: store.PaymentStatusPending, PaymentHash: &paymentHash}
	require.NoError(t, s.Payments().Insert(context.Background(), nil, &p))

	svc := New(s, testLogger(), nil)
	err := svc.OutgoingPayment(context.Background(), events.LnPaySuccess{
		PaymentHash: paymentHash, PaymentPreimage: "preimage", FeeMsat: 2, PaymentTime: time.Now(),
	})
	require.NoError(t, err)

	got, err := s.Payments().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PaymentStatusSettled, got.Status)
	assert.Equal(t, "preimage", *got.PaymentPreimage)
}

func TestFailedPayment_MarksPendingAsFailed(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	paymentHash := "failing-hash"
	p := store.Payment{ID: uuid.New(), WalletID: wallet.ID, Ledger: store.LedgerLightning, Currency: wallet.Currency, Status: store.PaymentStatusPending, PaymentHash: &paymentHash}
	require.NoError(t, s.Payments().Insert(context.Background(), nil, &p))

	svc := New(s, testLogger(), nil)
	err := svc.FailedPayment(context.Background(), events.LnPayFailure{PaymentHash: paymentHash, Reason: "no route"})
	require.NoError(t, err)

	got, err := s.Payments().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PaymentStatusFailed, got.Status)
	assert.Equal(t, "no route", *got.Error)
}

func TestOnchainDeposit_SettlesInvoiceForOwnedAddress(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	addr := store.BtcAddress{ID: uuid.New(), WalletID: wallet.ID, Address: "bc1qexample", AddressType: store.BtcAddressP2TR}
	require.NoError(t, s.BtcAddresses().Insert(context.Background(), nil, &addr))

	svc := New(s, testLogger(), nil)
	blockHeight := int64(800_000)
	err := svc.OnchainDeposit(context.Background(), events.OnchainDeposit{
		Txid: "txid1", OutputIndex: 0, Address: "bc1qexample", AmountSat: 100_000, BlockHeight: &blockHeight, Network: "mainnet",
	})
	require.NoError(t, err)

	output, err := s.BtcOutputs().FindByOutpoint(context.Background(), store.Outpoint("txid1", 0))
	require.NoError(t, err)
	assert.Equal(t, store.BtcOutputConfirmed, output.Status)

	invoices, err := s.Invoices().FindMany(context.Background(), store.Filter{WalletID: &wallet.ID})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, store.LedgerOnchain, invoices[0].Ledger)
}

func TestOnchainDeposit_IgnoresUnownedAddress(t *testing.T) {
	svc := New(storetest.New(), testLogger(), nil)
	err := svc.OnchainDeposit(context.Background(), events.OnchainDeposit{
		Txid: "txid2", OutputIndex: 0, Address: "bc1qnotmine", AmountSat: 1_000, Network: "mainnet",
	})
	assert.NoError(t, err)
}

func TestOnchainWithdrawal_SettlesPendingPaymentOnConfirmation(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	txid := "withdrawal-txid"
	p := store.Payment{ID: uuid.New(), WalletID: wallet.ID, Ledger: store.LedgerOnchain, Currency: wallet.Currency, Status: store.PaymentStatusPending, Txid: &txid}
	require.NoError(t, s.Payments().Insert(context.Background(), nil, &p))

	svc := New(s, testLogger(), nil)
	blockHeight := int64(800_100)
	err := svc.OnchainWithdrawal(context.Background(), events.OnchainWithdrawal{
		Txid: txid, OutputIndex: 0, AmountSat: 50_000, BlockHeight: &blockHeight, Network: "mainnet",
	})
	require.NoError(t, err)

	got, err := s.Payments().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PaymentStatusSettled, got.Status)
}

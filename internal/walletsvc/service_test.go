package walletsvc

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/store/storetest"
)

func TestGet_AssemblesSummary(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	lnAddr := store.LnAddress{ID: uuid.New(), WalletID: wallet.ID, Username: "alice", Active: true}
	require.NoError(t, s.LnAddresses().Insert(context.Background(), nil, &lnAddr))

	olderTime := time.Now().Add(-time.Hour)
	newerTime := time.Now()
	contact := "bob@pay.com"
	require.NoError(t, s.Payments().Insert(context.Background(), nil, &store.Payment{
		ID: uuid.New(), WalletID: wallet.ID, Status: store.PaymentStatusSettled,
		LnAddress: &contact, PaymentTime: &olderTime, CreatedAt: olderTime,
	}))
	require.NoError(t, s.Payments().Insert(context.Background(), nil, &store.Payment{
		ID: uuid.New(), WalletID: wallet.ID, Status: store.PaymentStatusSettled,
		LnAddress: &contact, PaymentTime: &newerTime, CreatedAt: newerTime,
	}))
	require.NoError(t, s.Payments().Insert(context.Background(), nil, &store.Payment{
		ID: uuid.New(), WalletID: wallet.ID, Status: store.PaymentStatusFailed,
		LnAddress: &contact, PaymentTime: &newerTime, CreatedAt: newerTime,
	}))

	svc := New(s)
	summary, err := svc.Get(context.Background(), wallet.ID)
	require.NoError(t, err)

	assert.Equal(t, wallet.ID, summary.Wallet.ID)
	require.NotNil(t, summary.LnAddress)
	assert.Equal(t, "alice", summary.LnAddress.Username)
	require.Len(t, summary.RecentContacts, 1)
	assert.Equal(t, contact, summary.RecentContacts[0].LnAddress)
	assert.Equal(t, newerTime, *summary.RecentContacts[0].LastPayment.PaymentTime)
}

func TestGet_UnknownWallet(t *testing.T) {
	svc := New(storetest.New())
	_, err := svc.Get(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestGet_NoLnAddressIsNotAnError(t *testing.T) {
	s := storetest.New()
	wallet := store.Wallet{ID: uuid.New(), AccountID: uuid.New(), Currency: store.CurrencyBitcoin}
	require.NoError(t, s.Wallets().Insert(context.Background(), nil, &wallet))

	svc := New(s)
	summary, err := svc.Get(context.Background(), wallet.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.LnAddress)
	assert.Empty(t, summary.RecentContacts)
}

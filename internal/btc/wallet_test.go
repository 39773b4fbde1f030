package btc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/ln"
	"github.com/numeraire/swissknife-go/internal/store"
)

func TestNetParams(t *testing.T) {
	testCases := []struct {
		currency store.Currency
		wantErr  bool
	}{
		{store.CurrencyBitcoin, false},
		{store.CurrencyBitcoinTestnet, false},
		{store.CurrencySignet, false},
		{store.CurrencyRegtest, false},
		{store.CurrencySimnet, false},
		{store.Currency("Dogecoin"), true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.currency), func(t *testing.T) {
			params, err := NetParams(tc.currency)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, params)
		})
	}
}

func TestValidateAddress(t *testing.T) {
	testCases := []struct {
		name     string
		address  string
		currency store.Currency
		expected bool
	}{
		{"valid mainnet bech32", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", store.CurrencyBitcoin, true},
		{"valid mainnet p2pkh", "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", store.CurrencyBitcoin, true},
		{"testnet address rejected on mainnet", "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn", store.CurrencyBitcoin, false},
		{"garbage", "not-an-address", store.CurrencyBitcoin, false},
		{"unknown network", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", store.Currency("Dogecoin"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ValidateAddress(tc.address, tc.currency))
		})
	}
}

type fakeWallet struct {
	addr    string
	balance int64
	txid    string
	txs     []Transaction
	network store.Currency
}

func (f *fakeWallet) NewAddress(ctx context.Context) (string, error) { return f.addr, nil }
func (f *fakeWallet) Balance(ctx context.Context) (int64, error)     { return f.balance, nil }
func (f *fakeWallet) Send(ctx context.Context, amountSat int64, address string, feerateSatPerVb int64) (string, error) {
	return f.txid, nil
}
func (f *fakeWallet) ListTransactions(ctx context.Context) ([]Transaction, error) { return f.txs, nil }
func (f *fakeWallet) Network() store.Currency                                     { return f.network }

func TestAdapter_DelegatesToWallet(t *testing.T) {
	w := &fakeWallet{addr: "bc1qexample", balance: 100_000, txid: "txid1", network: store.CurrencyBitcoin}
	a := NewAdapter(w)

	addr, err := a.GetNewBtcAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bc1qexample", addr)

	balance, err := a.GetBtcBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), balance)

	txid, err := a.SendBtc(context.Background(), 1_000, "bc1qdest", 5)
	require.NoError(t, err)
	assert.Equal(t, "txid1", txid)

	network, err := a.GetNetwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", network)

	ok, err := a.ValidateBtcAddress(context.Background(), "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdapter_NilWalletReportsNotSupported(t *testing.T) {
	a := NewAdapter(nil)

	_, err := a.GetNewBtcAddress(context.Background())
	assert.ErrorIs(t, err, ln.ErrNotSupported)

	_, err = a.GetBtcBalance(context.Background())
	assert.ErrorIs(t, err, ln.ErrNotSupported)

	_, err = a.SendBtc(context.Background(), 1_000, "addr", 1)
	assert.ErrorIs(t, err, ln.ErrNotSupported)

	_, err = a.ListBtcTransactions(context.Background())
	assert.ErrorIs(t, err, ln.ErrNotSupported)

	_, err = a.GetNetwork(context.Background())
	assert.ErrorIs(t, err, ln.ErrNotSupported)

	_, err = a.PayOnchain(context.Background(), 1_000, "addr", 1)
	assert.ErrorIs(t, err, ln.ErrNotSupported)
}

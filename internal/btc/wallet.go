// Package btc implements the on-chain half of the wallet adapter surface:
// the BitcoinWallet interface consumed by InvoiceService/PaymentService,
// chain-param lookups and address validation, backed by
// btcsuite/btcd the way the on-chain manifests in the retrieved pack use it.
package btc

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/numeraire/swissknife-go/internal/ln"
	"github.com/numeraire/swissknife-go/internal/store"
)

// Transaction is a single on-chain movement reported by ListTransactions.
type Transaction struct {
	Txid        string
	OutputIndex int32
	Address     string
	AmountSat   int64
	Confirmed   bool
	BlockHeight *int64
}

// Wallet is the subset of an on-chain signing wallet's API this server
// calls. Every method maps 1:1 to one of ln.Client's optional on-chain
// operations; a provider that cannot sign on-chain simply never
// instantiates this interface and callers fall back to ln.ErrNotSupported.
type Wallet interface {
	NewAddress(ctx context.Context) (string, error)
	Balance(ctx context.Context) (int64, error)
	Send(ctx context.Context, amountSat int64, address string, feerateSatPerVb int64) (txid string, err error)
	ListTransactions(ctx context.Context) ([]Transaction, error)
	Network() store.Currency
}

// Adapter wraps a Wallet to satisfy ln.Client's optional on-chain methods by
// embedding it alongside a provider's required Lightning-only Client.
type Adapter struct {
	wallet Wallet
}

// NewAdapter builds an Adapter over wallet. A nil wallet means no on-chain
// signing capability; every method then reports ln.ErrNotSupported.
func NewAdapter(wallet Wallet) *Adapter {
	return &Adapter{wallet: wallet}
}

func (a *Adapter) PayOnchain(ctx context.Context, amountSat int64, address string, feerateSatPerVb int64) (*ln.SwapInfo, error) {
	return nil, ln.ErrNotSupported
}

func (a *Adapter) GetNewBtcAddress(ctx context.Context) (string, error) {
	if a.wallet == nil {
		return "", ln.ErrNotSupported
	}
	return a.wallet.NewAddress(ctx)
}

func (a *Adapter) GetBtcBalance(ctx context.Context) (int64, error) {
	if a.wallet == nil {
		return 0, ln.ErrNotSupported
	}
	return a.wallet.Balance(ctx)
}

func (a *Adapter) SendBtc(ctx context.Context, amountSat int64, address string, feerateSatPerVb int64) (string, error) {
	if a.wallet == nil {
		return "", ln.ErrNotSupported
	}
	return a.wallet.Send(ctx, amountSat, address, feerateSatPerVb)
}

func (a *Adapter) ListBtcTransactions(ctx context.Context) ([]ln.OnchainTransaction, error) {
	if a.wallet == nil {
		return nil, ln.ErrNotSupported
	}
	txs, err := a.wallet.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ln.OnchainTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, ln.OnchainTransaction{
			Txid:        t.Txid,
			OutputIndex: t.OutputIndex,
			Address:     t.Address,
			AmountSat:   t.AmountSat,
			Confirmed:   t.Confirmed,
			BlockHeight: t.BlockHeight,
		})
	}
	return out, nil
}

func (a *Adapter) GetNetwork(ctx context.Context) (string, error) {
	if a.wallet == nil {
		return "", ln.ErrNotSupported
	}
	return string(a.wallet.Network()), nil
}

func (a *Adapter) ValidateBtcAddress(ctx context.Context, address string) (bool, error) {
	network := store.CurrencyBitcoin
	if a.wallet != nil {
		network = a.wallet.Network()
	}
	return ValidateAddress(address, network), nil
}

// NetParams returns the btcsuite chain parameters matching currency.
func NetParams(currency store.Currency) (*chaincfg.Params, error) {
	switch currency {
	case store.CurrencyBitcoin:
		return &chaincfg.MainNetParams, nil
	case store.CurrencyBitcoinTestnet:
		return &chaincfg.TestNet3Params, nil
	case store.CurrencySignet:
		return &chaincfg.SigNetParams, nil
	case store.CurrencyRegtest:
		return &chaincfg.RegressionNetParams, nil
	case store.CurrencySimnet:
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("btc: unknown network %q", currency)
	}
}

// ValidateAddress reports whether address decodes as a valid Bitcoin
// address on the given network.
func ValidateAddress(address string, currency store.Currency) bool {
	params, err := NetParams(currency)
	if err != nil {
		return false
	}
	_, err = btcutil.DecodeAddress(address, params)
	return err == nil
}

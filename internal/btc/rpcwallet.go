package btc

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/store"
)

// RPCWallet drives a bitcoind/btcwallet JSON-RPC endpoint, grounded on the
// same rpcclient.ConnConfig + per-call wrapper idiom the retrieved
// btc-staker wallet controller uses.
type RPCWallet struct {
	client  *rpcclient.Client
	network store.Currency
}

// NewRPCWallet dials cfg.RPCURL. DisableTLS mirrors the retrieved
// controller's "works with either bitcoind or btcwallet over plain HTTP"
// default; operators needing TLS terminate it in front of the RPC endpoint.
func NewRPCWallet(cfg config.BitcoinConfig, network store.Currency) (*RPCWallet, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:                 cfg.RPCURL,
		DisableConnectOnNew:  true,
		DisableAutoReconnect: false,
		DisableTLS:           true,
		HTTPPostMode:         true,
	}
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("btc: rpc dial: %w", err)
	}
	return &RPCWallet{client: client, network: network}, nil
}

func (w *RPCWallet) NewAddress(ctx context.Context) (string, error) {
	addr, err := w.client.GetNewAddress("")
	if err != nil {
		return "", fmt.Errorf("btc: getnewaddress: %w", err)
	}
	return addr.EncodeAddress(), nil
}

func (w *RPCWallet) Balance(ctx context.Context) (int64, error) {
	amt, err := w.client.GetBalance("*")
	if err != nil {
		return 0, fmt.Errorf("btc: getbalance: %w", err)
	}
	return int64(amt), nil
}

func (w *RPCWallet) Send(ctx context.Context, amountSat int64, address string, feerateSatPerVb int64) (string, error) {
	params, err := NetParams(w.network)
	if err != nil {
		return "", err
	}
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return "", fmt.Errorf("btc: invalid address: %w", err)
	}
	hash, err := w.client.SendToAddress(addr, btcutil.Amount(amountSat))
	if err != nil {
		return "", fmt.Errorf("btc: sendtoaddress: %w", err)
	}
	return hash.String(), nil
}

func (w *RPCWallet) ListTransactions(ctx context.Context) ([]Transaction, error) {
	results, err := w.client.ListTransactions("*")
	if err != nil {
		return nil, fmt.Errorf("btc: listtransactions: %w", err)
	}
	out := make([]Transaction, 0, len(results))
	for _, r := range results {
		var blockHeight *int64
		if r.BlockHeight != nil {
			h := int64(*r.BlockHeight)
			blockHeight = &h
		}
		out = append(out, Transaction{
			Txid:        r.TxID,
			OutputIndex: int32(r.Vout),
			Address:     r.Address,
			AmountSat:   int64(r.Amount * 1e8),
			Confirmed:   r.Confirmations > 0,
			BlockHeight: blockHeight,
		})
	}
	return out, nil
}

func (w *RPCWallet) Network() store.Currency {
	return w.network
}

// Package bolt11 decodes BOLT11 Lightning payment request strings into the
// fields the wallet core needs (amount, payment hash, description, expiry),
// without pulling in a full invoice-signing library.
package bolt11

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// ErrInvalid is returned for any malformed or unsupported invoice string.
var ErrInvalid = errors.New("bolt11: invalid invoice")

// Network identifies the chain an invoice's human-readable prefix targets.
type Network string

const (
	Mainnet Network = "bc"
	Testnet Network = "tb"
	Signet  Network = "tbs"
	Regtest Network = "bcrt"
)

// Invoice holds the fields this wallet reads out of a decoded BOLT11 string.
type Invoice struct {
	Network                 Network
	AmountMsat              int64 // 0 if the invoice carries no amount
	Timestamp               time.Time
	PaymentHash             string // hex
	Description             string
	DescriptionHash         string // hex, set instead of Description when the 'h' field is present
	PayeePubkey             string // hex, empty if not present
	PaymentSecret           string // hex
	ExpirySeconds           int64  // defaults to 3600 per BOLT11 if absent
	MinFinalCltvExpiryDelta uint64 // defaults to 18 per BOLT11 if absent
}

// ExpiresAt returns the instant the invoice stops being payable.
func (inv *Invoice) ExpiresAt() time.Time {
	return inv.Timestamp.Add(time.Duration(inv.ExpirySeconds) * time.Second)
}

const sigWords = 104 // 520-bit signature + recovery id, in 5-bit words

// Decode parses a bech32-encoded BOLT11 string (with or without the leading
// "lightning:" URI scheme) into its constituent fields.
func Decode(s string) (*Invoice, error) {
	s = strings.TrimPrefix(s, "lightning:")
	s = strings.TrimPrefix(s, "LIGHTNING:")

	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	if len(data) < 7+sigWords {
		return nil, fmt.Errorf("%w: too short", ErrInvalid)
	}

	network, amountMsat, err := parseHRP(hrp)
	if err != nil {
		return nil, err
	}

	body := data[:len(data)-sigWords]
	timestamp := decodeBigEndian(body[:7])
	fields := body[7:]

	inv := &Invoice{
		Network:                 network,
		AmountMsat:              amountMsat,
		Timestamp:               time.Unix(timestamp, 0).UTC(),
		ExpirySeconds:           3600,
		MinFinalCltvExpiryDelta: 18,
	}

	for len(fields) >= 3 {
		tag := fields[0]
		length := int(decodeBigEndian(fields[1:3]))
		fields = fields[3:]
		if length > len(fields) {
			return nil, fmt.Errorf("%w: truncated tagged field (type %d)", ErrInvalid, tag)
		}
		value := fields[:length]
		fields = fields[length:]

		switch tag {
		case 1: // 'p' payment_hash, 256 bits
			b, err := bech32.ConvertBits(value, 5, 8, false)
			if err == nil && len(b) >= 32 {
				inv.PaymentHash = hex.EncodeToString(b[:32])
			}
		case 13: // 'd' description
			b, err := bech32.ConvertBits(value, 5, 8, false)
			if err == nil {
				inv.Description = string(b)
			}
		case 23: // 'h' description hash, 256 bits
			b, err := bech32.ConvertBits(value, 5, 8, false)
			if err == nil && len(b) >= 32 {
				inv.DescriptionHash = hex.EncodeToString(b[:32])
			}
		case 19: // 'n' payee pubkey, 264 bits
			b, err := bech32.ConvertBits(value, 5, 8, false)
			if err == nil && len(b) >= 33 {
				if _, err := btcec.ParsePubKey(b[:33]); err == nil {
					inv.PayeePubkey = hex.EncodeToString(b[:33])
				}
			}
		case 16: // 's' payment_secret, 256 bits
			b, err := bech32.ConvertBits(value, 5, 8, false)
			if err == nil && len(b) >= 32 {
				inv.PaymentSecret = hex.EncodeToString(b[:32])
			}
		case 6: // 'x' expiry, variable-length integer
			inv.ExpirySeconds = decodeBigEndian(value)
		case 24: // 'c' min_final_cltv_expiry
			inv.MinFinalCltvExpiryDelta = uint64(decodeBigEndian(value))
		}
	}

	return inv, nil
}

// decodeBigEndian interprets a slice of 5-bit words as a big-endian integer.
func decodeBigEndian(words []byte) int64 {
	var v int64
	for _, w := range words {
		v = v<<5 | int64(w)
	}
	return v
}

// parseHRP splits a BOLT11 human-readable part into its network and amount,
// following the "lnbc2500u"-style grammar, generalized across all four
// standard network prefixes.
func parseHRP(hrp string) (Network, int64, error) {
	if len(hrp) < 3 || hrp[:2] != "ln" {
		return "", 0, fmt.Errorf("%w: missing ln prefix", ErrInvalid)
	}

	rest := hrp[2:]
	firstDigit := strings.IndexAny(rest, "0123456789")

	var networkPart string
	if firstDigit == -1 {
		networkPart = rest
	} else {
		networkPart = rest[:firstDigit]
	}

	network := Network(networkPart)
	switch network {
	case Mainnet, Testnet, Signet, Regtest:
	default:
		return "", 0, fmt.Errorf("%w: unknown network prefix %q", ErrInvalid, networkPart)
	}

	if firstDigit == -1 {
		return network, 0, nil
	}

	amountMsat, err := decodeAmount(rest[firstDigit:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return network, amountMsat, nil
}

// decodeAmount parses the digits-plus-multiplier amount suffix of a BOLT11
// human-readable part into millisatoshi.
func decodeAmount(amount string) (int64, error) {
	if len(amount) < 1 {
		return 0, fmt.Errorf("empty amount")
	}

	last := amount[len(amount)-1]
	if last >= '0' && last <= '9' {
		btc, err := parseUint(amount)
		if err != nil {
			return 0, err
		}
		return btc * 100_000_000 * 1000, nil
	}

	digits := amount[:len(amount)-1]
	if len(digits) < 1 {
		return 0, fmt.Errorf("missing digits before multiplier")
	}
	n, err := parseUint(digits)
	if err != nil {
		return 0, err
	}

	switch last {
	case 'p':
		if n < 10 || n%10 != 0 {
			return 0, fmt.Errorf("amount %dp not expressible in msat", n)
		}
		return n / 10, nil
	case 'n':
		return n * 100, nil
	case 'u':
		return n * 100_000, nil
	case 'm':
		return n * 100_000_000, nil
	default:
		return 0, fmt.Errorf("unknown multiplier %q", string(last))
	}
}

func parseUint(s string) (int64, error) {
	var v int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid digit %q", string(c))
		}
		v = v*10 + int64(c-'0')
	}
	return v, nil
}

package lnurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		wantUser string
		wantErr  bool
	}{
		{"simple address", "alice@pay.com", "alice", false},
		{"uppercase is normalized", "Alice@Pay.com", "alice", false},
		{"missing at sign", "alicepay.com", "", true},
		{"missing tld", "alice@pay", "", true},
		{"empty string", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := ParseAddress(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, addr.User)
		})
	}
}

func TestAddress_String(t *testing.T) {
	addr := Address{User: "alice", Domain: "pay.com"}
	assert.Equal(t, "alice@pay.com", addr.String())
}

func TestAddress_WellKnownURL(t *testing.T) {
	addr := Address{User: "alice", Domain: "pay.com"}
	assert.Equal(t, "https://pay.com/.well-known/lnurlp/alice", addr.WellKnownURL())
}

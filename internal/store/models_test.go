package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	testCases := []struct {
		name     string
		set      []Permission
		want     Permission
		expected bool
	}{
		{"direct match", []Permission{PermissionReadWallet}, PermissionReadWallet, true},
		{"no match", []Permission{PermissionReadWallet}, PermissionWriteWallet, false},
		{"full access wildcard", []Permission{PermissionFullAccess}, PermissionWriteTransactions, true},
		{"empty set", nil, PermissionReadWallet, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HasPermission(tc.set, tc.want))
		})
	}
}

func TestIsSubset(t *testing.T) {
	testCases := []struct {
		name     string
		sub      []Permission
		super    []Permission
		expected bool
	}{
		{
			name:     "subset of direct permissions",
			sub:      []Permission{PermissionReadWallet},
			super:    []Permission{PermissionReadWallet, PermissionWriteWallet},
			expected: true,
		},
		{
			name:     "not a subset",
			sub:      []Permission{PermissionWriteApiKey},
			super:    []Permission{PermissionReadWallet},
			expected: false,
		},
		{
			name:     "super holds full_access wildcard",
			sub:      []Permission{PermissionWriteTransactions, PermissionFullAccess},
			super:    []Permission{PermissionFullAccess},
			expected: true,
		},
		{
			name:     "empty sub is always a subset",
			sub:      nil,
			super:    []Permission{PermissionReadWallet},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsSubset(tc.sub, tc.super))
		})
	}
}

func TestPermissionSet_ValueAndScan(t *testing.T) {
	original := PermissionSet{PermissionReadWallet, PermissionWriteTransactions}

	v, err := original.Value()
	require.NoError(t, err)

	var roundTripped PermissionSet
	require.NoError(t, roundTripped.Scan(v))
	assert.Equal(t, original, roundTripped)
}

func TestPermissionSet_ScanNil(t *testing.T) {
	var p PermissionSet = PermissionSet{PermissionFullAccess}
	require.NoError(t, p.Scan(nil))
	assert.Nil(t, p)
}

func TestPermissionSet_ValueNil(t *testing.T) {
	var p PermissionSet
	v, err := p.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestPermissionSet_ScanInvalidType(t *testing.T) {
	var p PermissionSet
	err := p.Scan(42)
	assert.Error(t, err)
}

func TestInvoice_Status(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		invoice  Invoice
		expected InvoiceStatus
	}{
		{
			name:     "settled when payment_time is set",
			invoice:  Invoice{PaymentTime: ptrTime(now.Add(-time.Minute))},
			expected: InvoiceStatusSettled,
		},
		{
			name:     "expired when past expiry and unsettled",
			invoice:  Invoice{ExpiresAt: ptrTime(now.Add(-time.Second))},
			expected: InvoiceStatusExpired,
		},
		{
			name:     "pending otherwise",
			invoice:  Invoice{ExpiresAt: ptrTime(now.Add(time.Hour))},
			expected: InvoiceStatusPending,
		},
		{
			name:     "pending with no expiry set",
			invoice:  Invoice{},
			expected: InvoiceStatusPending,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.invoice.Status(now))
		})
	}
}

func TestApiKey_Expired(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		expiresAt *time.Time
		expected  bool
	}{
		{"no expiry never expires", nil, false},
		{"future expiry", ptrTime(now.Add(time.Hour)), false},
		{"past expiry", ptrTime(now.Add(-time.Hour)), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			k := ApiKey{ExpiresAt: tc.expiresAt}
			assert.Equal(t, tc.expected, k.Expired(now))
		})
	}
}

func TestOutpoint(t *testing.T) {
	testCases := []struct {
		txid        string
		outputIndex int32
		expected    string
	}{
		{"abc123", 0, "abc123:0"},
		{"abc123", 7, "abc123:7"},
		{"abc123", 42, "abc123:42"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Outpoint(tc.txid, tc.outputIndex))
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

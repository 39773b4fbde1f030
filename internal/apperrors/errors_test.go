package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_HTTPStatus(t *testing.T) {
	testCases := []struct {
		kind     Kind
		expected int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindMalformed, http.StatusBadRequest},
		{KindValidation, http.StatusUnprocessableEntity},
		{KindInsufficientFunds, http.StatusUnprocessableEntity},
		{KindAuthentication, http.StatusUnauthorized},
		{KindAuthorization, http.StatusForbidden},
		{KindInconsistency, http.StatusInternalServerError},
		{KindDatabase, http.StatusInternalServerError},
		{KindWebServer, http.StatusInternalServerError},
		{KindConfig, http.StatusInternalServerError},
		{KindLightning, http.StatusBadGateway},
		{KindBitcoin, http.StatusBadGateway},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := New(tc.kind, "boom")
			assert.Equal(t, tc.expected, err.HTTPStatus())
		})
	}
}

func TestError_Error(t *testing.T) {
	withoutCause := New(KindNotFound, "wallet not found")
	assert.Equal(t, "NotFound: wallet not found", withoutCause.Error())

	cause := errors.New("connection refused")
	withCause := Wrap(KindDatabase, "failed to query", cause)
	assert.Equal(t, "Database: failed to query: connection refused", withCause.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(KindLightning, "call failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestAs(t *testing.T) {
	original := NotFound("invoice not found")
	wrapped := fmt.Errorf("listing invoices: %w", original)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, original, got)

	_, ok = As(errors.New("plain error"))
	assert.False(t, ok)
}

func TestInsufficientFunds(t *testing.T) {
	err := InsufficientFunds(50_000)
	assert.Equal(t, KindInsufficientFunds, err.Kind)
	assert.Equal(t, int64(50_000), err.Required)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus())
}

func TestMissingPermission(t *testing.T) {
	err := MissingPermission("write:transactions")
	assert.Equal(t, KindAuthorization, err.Kind)
	assert.Contains(t, err.Message, "write:transactions")
}

package lnaddresssvc

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numeraire/swissknife-go/internal/store/storetest"
)

func TestRegister_NormalizesAndInserts(t *testing.T) {
	svc := New(storetest.New())
	walletID := uuid.New()

	addr, err := svc.Register(context.Background(), RegisterParams{
		WalletID: walletID,
		Username: "  Alice  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", addr.Username)
	assert.True(t, addr.Active)
}

func TestRegister_RejectsDisallowedCharacters(t *testing.T) {
	svc := New(storetest.New())

	_, err := svc.Register(context.Background(), RegisterParams{
		WalletID: uuid.New(),
		Username: "alice bob",
	})
	assert.Error(t, err)
}

func TestRegister_RejectsTooLong(t *testing.T) {
	svc := New(storetest.New())

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.Register(context.Background(), RegisterParams{
		WalletID: uuid.New(),
		Username: string(long),
	})
	assert.Error(t, err)
}

func TestRegister_RejectsDuplicateWallet(t *testing.T) {
	svc := New(storetest.New())
	walletID := uuid.New()

	_, err := svc.Register(context.Background(), RegisterParams{WalletID: walletID, Username: "alice"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterParams{WalletID: walletID, Username: "bob"})
	assert.Error(t, err)
}

func TestRegister_RejectsDuplicateUsername(t *testing.T) {
	svc := New(storetest.New())

	_, err := svc.Register(context.Background(), RegisterParams{WalletID: uuid.New(), Username: "alice"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterParams{WalletID: uuid.New(), Username: "alice"})
	assert.Error(t, err)
}

package paymentsvc

import (
	"sync"

	"github.com/google/uuid"
)

// walletLocks shards a mutex per wallet ID so concurrent payments from
// different wallets never block each other; only the balance-check-and-
// insert critical section for a single wallet is serialized.
type walletLocks struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func (w *walletLocks) lockFor(id uuid.UUID) *sync.Mutex {
	m, _ := w.locks.LoadOrStore(id, &sync.Mutex{})
	return m.(*sync.Mutex)
}

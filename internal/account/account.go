// Package account holds the Account entity moved by transfers.
package account

import (
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
)

// Account is an identified integer balance guarded by an exclusive lock.
//
// The lock is the only guard for balance mutations: whoever changes the
// balance must hold it. Balance reads are safe without the lock.
type Account struct {
	id      int
	balance atomic.Int64

	mu     deadlock.Mutex
	locked atomic.Bool
}

// New creates an account that starts locked. It is not available to
// transfers until the owner calls Unlock.
func New(id, balance int) *Account {
	a := &Account{id: id}
	a.balance.Store(int64(balance))
	a.Lock()
	return a
}

func (a *Account) ID() int {
	return a.id
}

func (a *Account) Balance() int {
	return int(a.balance.Load())
}

// ChangeBalance adds delta to the balance. Sufficiency is the caller's problem.
func (a *Account) ChangeBalance(delta int) {
	a.balance.Add(int64(delta))
}

// Lock blocks until the account is available and takes it.
func (a *Account) Lock() {
	a.mu.Lock()
	a.locked.Store(true)
}

// Unlock makes the account available again. Unlocking an available
// account does nothing.
func (a *Account) Unlock() {
	if a.locked.CompareAndSwap(true, false) {
		a.mu.Unlock()
	}
}

func (a *Account) Locked() bool {
	return a.locked.Load()
}

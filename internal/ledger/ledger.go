// Package ledger owns the accounts and is the single entry point for
// transfers between them.
//
// Every transfer goes through Ledger.Transfer, which locks the two accounts
// in ascending ID order. Callers never see the accounts themselves, so no
// call site can take the locks in a different order.
package ledger

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"banking/internal/account"
	"banking/internal/transaction"
)

type Ledger struct {
	// mu guards the account set. Transfers hold it shared, so Open, Close
	// and Totals wait for transfers in flight.
	mu       deadlock.RWMutex
	accounts map[int]*account.Account
	opened   int

	burned atomic.Int64
	tx     *transaction.Transaction

	journalMu deadlock.Mutex
	journal   []Receipt
	history   map[int][]Entry

	log *zap.Logger
	rec Recorder
}

type Option func(*Ledger)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.log = logger
		}
	}
}

func WithRecorder(rec Recorder) Option {
	return func(l *Ledger) {
		if rec != nil {
			l.rec = rec
		}
	}
}

func WithFee(fee int) Option {
	return func(l *Ledger) {
		l.tx.SetFee(fee)
	}
}

func MakeLedger(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[int]*account.Account),
		history:  make(map[int][]Entry),
		tx:       transaction.New(transaction.WithOrderedLocking()),
		log:      zap.NewNop(),
		rec:      nopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open creates an account and makes it available to transfers.
func (l *Ledger) Open(id, balance int) error {
	if balance < 0 {
		return ErrNegativeBalance
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[id]; ok {
		return ErrAccountExists
	}
	// opened bounds every balance and the burned fees.
	if balance > math.MaxInt-l.opened {
		return ErrBalanceTooLarge
	}

	a := account.New(id, balance)
	l.accounts[id] = a
	l.opened += balance
	a.Unlock()

	l.log.Info("account opened", zap.Int("account", id), zap.Int("balance", balance))
	return nil
}

// Close detaches an account and returns its final balance. The account is
// left locked so nothing can move its funds afterwards.
func (l *Ledger) Close(id int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[id]
	if !ok {
		return 0, ErrAccountNotFound
	}

	a.Lock()
	balance := a.Balance()
	delete(l.accounts, id)
	l.opened -= balance

	l.journalMu.Lock()
	delete(l.history, id)
	l.journalMu.Unlock()

	l.log.Info("account closed", zap.Int("account", id), zap.Int("balance", balance))
	return balance, nil
}

func (l *Ledger) Balance(id int) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return a.Balance(), nil
}

// Accounts returns the open account IDs in ascending order.
func (l *Ledger) Accounts() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]int, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (l *Ledger) Balances() map[int]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int]int, len(l.accounts))
	for id, a := range l.accounts {
		out[id] = a.Balance()
	}
	return out
}

func (l *Ledger) Fee() int {
	return l.tx.Fee()
}

// SetFee changes the fee for transfers that start after it returns.
func (l *Ledger) SetFee(fee int) error {
	if fee < 0 {
		return ErrNegativeFee
	}
	if fee > transaction.MaxFee {
		return ErrFeeTooLarge
	}
	prev := l.tx.Fee()
	l.tx.SetFee(fee)
	l.log.Info("transfer fee changed", zap.Int("from", prev), zap.Int("to", fee))
	return nil
}

// Totals is a snapshot of where the money opened into the ledger went.
type Totals struct {
	Opened     int `json:"opened"`
	Balances   int `json:"balances"`
	FeesBurned int `json:"fees_burned"`
}

// Balanced reports whether every unit opened is either in an account or
// was burned as a fee.
func (t Totals) Balanced() bool {
	return t.Opened == t.Balances+t.FeesBurned
}

// Totals waits for transfers in flight and sums the ledger.
func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := Totals{Opened: l.opened, FeesBurned: int(l.burned.Load())}
	for _, a := range l.accounts {
		t.Balances += a.Balance()
	}
	return t
}

// VerifyConsistency reports whether all ledgers hold the same accounts with
// the same balances.
func VerifyConsistency(ledgers []*Ledger) bool {
	if len(ledgers) < 2 {
		return true
	}
	ledger0 := ledgers[0].Balances()
	for i := 1; i < len(ledgers); i++ {
		balances := ledgers[i].Balances()
		if len(ledger0) != len(balances) {
			return false
		}
		for id, bal := range ledger0 {
			if other, ok := balances[id]; !ok || other != bal {
				return false
			}
		}
	}
	return true
}

// Package transaction moves funds between two accounts under their locks.
//
// A transfer is validated before anything is locked. Once both accounts are
// held the source balance is checked against amount plus fee and either both
// balances change or neither does. The accounts are released on every path.
package transaction

import (
	"math"
	"sync/atomic"

	"banking/internal/account"
)

const (
	// MinAmount is the smallest amount a transfer may move.
	MinAmount = 100
	// DefaultFee is charged to the source unless configured otherwise.
	DefaultFee = 1
	// MaxFee is the largest fee any amount can carry.
	MaxFee = math.MaxInt / 2
)

// Account is what a transfer needs from an account. The transaction borrows
// accounts for the duration of a call and never keeps them.
type Account interface {
	ID() int
	Balance() int
	ChangeBalance(delta int)
	Lock()
	Unlock()
}

// Outcome tags the business result of a transfer that passed validation.
type Outcome int

const (
	Invalid Outcome = iota
	Completed
	InsufficientFunds
	FeeTooHigh
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case InsufficientFunds:
		return "insufficient_funds"
	case FeeTooHigh:
		return "fee_too_high"
	default:
		return "invalid"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "completed":
		*o = Completed
	case "insufficient_funds":
		*o = InsufficientFunds
	case "fee_too_high":
		*o = FeeTooHigh
	default:
		*o = Invalid
	}
	return nil
}

// Result is the tagged result of Execute. Fee is the fee in effect for the
// call; it was only charged when Outcome is Completed.
type Result struct {
	Outcome Outcome
	Amount  int
	Fee     int
}

func (r Result) Completed() bool {
	return r.Outcome == Completed
}

type Transaction struct {
	fee     atomic.Int64
	ordered bool
}

type Option func(*Transaction)

func WithFee(fee int) Option {
	return func(t *Transaction) {
		t.fee.Store(int64(fee))
	}
}

// WithOrderedLocking locks the account with the smaller ID first instead of
// the source first, so concurrent transfers over the same pair in opposite
// directions cannot deadlock.
func WithOrderedLocking() Option {
	return func(t *Transaction) {
		t.ordered = true
	}
}

func New(opts ...Option) *Transaction {
	t := new(Transaction)
	t.fee.Store(DefaultFee)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transaction) Fee() int {
	return int(t.fee.Load())
}

func (t *Transaction) SetFee(fee int) {
	t.fee.Store(int64(fee))
}

// Make transfers amount from one account to another. It returns false when
// the source cannot cover amount plus fee or the fee is too high for the
// amount, and an error when the request fails validation.
func (t *Transaction) Make(from, to Account, amount int) (bool, error) {
	res, err := t.Execute(from, to, amount)
	if err != nil {
		return false, err
	}
	return res.Completed(), nil
}

// Execute is Make with the outcome spelled out.
func (t *Transaction) Execute(from, to Account, amount int) (Result, error) {
	if err := validate(from, to, amount); err != nil {
		return Result{}, err
	}

	first, second := from, to
	if t.ordered && to.ID() < from.ID() {
		first, second = to, from
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	res := Result{Amount: amount, Fee: t.Fee()}
	fee := res.Fee

	// No sum or product of amount and fee is formed before it is known to fit.
	switch {
	case fee > 0 && fee > amount-fee:
		res.Outcome = FeeTooHigh
	case from.Balance() < amount || from.Balance()-amount < fee:
		res.Outcome = InsufficientFunds
	case to.Balance() > math.MaxInt-amount:
		return Result{}, ErrBalanceOverflow
	default:
		from.ChangeBalance(-(amount + fee))
		to.ChangeBalance(amount)
		res.Outcome = Completed
	}
	return res, nil
}

func validate(from, to Account, amount int) error {
	if isNil(from) || isNil(to) {
		return ErrNilAccount
	}
	if from.ID() == to.ID() {
		return ErrSameAccount
	}
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if amount < MinAmount {
		return ErrAmountTooSmall
	}
	return nil
}

// isNil also catches a nil *account.Account stored in a non-nil interface.
func isNil(a Account) bool {
	switch v := a.(type) {
	case nil:
		return true
	case *account.Account:
		return v == nil
	default:
		return false
	}
}

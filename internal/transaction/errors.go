package transaction

import (
	"errors"
	"fmt"
)

// Precondition failures. They are returned before any account is locked and
// are never business outcomes: callers fix the request instead of retrying it.
var (
	// ErrInvalidArgument is the kind of errors caused by a malformed argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation is the kind of errors caused by a request that is
	// well formed but not allowed.
	ErrInvalidOperation = errors.New("invalid operation")

	ErrNilAccount        = fmt.Errorf("%w: account is nil", ErrInvalidArgument)
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	ErrSameAccount       = fmt.Errorf("%w: source and destination are the same account", ErrInvalidOperation)
	ErrAmountTooSmall    = fmt.Errorf("%w: amount is below the minimum of %d", ErrInvalidOperation, MinAmount)

	// ErrBalanceOverflow is returned after locking when the destination
	// cannot hold the amount. Neither balance changes.
	ErrBalanceOverflow = fmt.Errorf("%w: destination balance would overflow", ErrInvalidOperation)
)

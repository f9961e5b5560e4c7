package ledger

import (
	"errors"
	"fmt"

	"banking/internal/transaction"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	ErrNegativeBalance = fmt.Errorf("%w: initial balance must not be negative", transaction.ErrInvalidArgument)
	ErrNegativeFee     = fmt.Errorf("%w: fee must not be negative", transaction.ErrInvalidArgument)
	ErrFeeTooLarge     = fmt.Errorf("%w: fee must not exceed %d", transaction.ErrInvalidArgument, transaction.MaxFee)
	ErrBalanceTooLarge = fmt.Errorf("%w: opening balance would overflow the ledger total", transaction.ErrInvalidArgument)
)

// reasons is ordered from specific to general.
var reasons = []struct {
	reason string
	err    error
}{
	{"not_found", ErrAccountNotFound},
	{"account_exists", ErrAccountExists},
	{"negative_balance", ErrNegativeBalance},
	{"negative_fee", ErrNegativeFee},
	{"fee_too_large", ErrFeeTooLarge},
	{"balance_too_large", ErrBalanceTooLarge},
	{"balance_overflow", transaction.ErrBalanceOverflow},
	{"same_account", transaction.ErrSameAccount},
	{"non_positive_amount", transaction.ErrNonPositiveAmount},
	{"amount_too_small", transaction.ErrAmountTooSmall},
	{"nil_account", transaction.ErrNilAccount},
	{"invalid_argument", transaction.ErrInvalidArgument},
	{"invalid_operation", transaction.ErrInvalidOperation},
}

// Reason names a ledger or transaction error with a stable token, used for
// metrics labels and on the wire. Unrecognized errors are "unknown".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "unknown"
}

// ReasonErr is the inverse of Reason. It returns nil for unknown reasons.
func ReasonErr(reason string) error {
	for _, r := range reasons {
		if r.reason == reason {
			return r.err
		}
	}
	return nil
}

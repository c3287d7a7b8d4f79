package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateIdempotencyKey is returned when a posting with the same
	// idempotency key already exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrUnbalancedPosting is returned when a batch does not net to zero.
	ErrUnbalancedPosting = errors.New("postings do not balance")

	// ErrInvalidPosting is returned for a leg with no account, a negative side,
	// or both sides set.
	ErrInvalidPosting = errors.New("invalid posting")

	// ErrNothingToReverse is returned when a voucher has no open postings.
	ErrNothingToReverse = errors.New("nothing to reverse")
)

// UnbalancedError carries the totals of a rejected batch.
type UnbalancedError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("postings do not balance: debit %s, credit %s",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *UnbalancedError) Unwrap() error {
	return ErrUnbalancedPosting
}

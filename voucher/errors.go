/*
errors.go - Validation and persistence errors for vouchers

ERROR CATEGORIES:
  1. Validation errors - raised before a save is attempted. Each carries
     the line it refers to (0 for the whole voucher) and unwraps to one of
     the sentinels below so callers can errors.Is on the category.
  2. Store errors - missing or conflicting vouchers.

Calculation functions never return errors. Only Validate* and the Service
do.

USAGE:
  if err := calc.Validate(v); err != nil {
      var verrs voucher.ValidationErrors
      if errors.As(err, &verrs) {
          for _, e := range verrs { show(e.Line, e.Message) }
      }
  }
*/
package voucher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrEmptyVoucher    = errors.New("add at least one line")
	ErrUnbalanced      = errors.New("voucher is not balanced")
	ErrMissingAccount  = errors.New("account is required")
	ErrMissingProduct  = errors.New("product is required")
	ErrZeroValueLine   = errors.New("line has no amount")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrDoubleSidedLine = errors.New("line has both debit and credit")
	ErrInvalidItem     = errors.New("invalid item")
	ErrMissingParty    = errors.New("party account is required")
	ErrMissingDate     = errors.New("date is required")
	ErrUnknownKind     = errors.New("unknown voucher kind")

	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrDuplicateVoucher = errors.New("voucher already exists")
	ErrKindChanged      = errors.New("voucher kind cannot change")
	ErrLineIndex        = errors.New("line index out of range")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError is one rejected rule.
type ValidationError struct {
	Line    int    // 1-based row, 0 for voucher-level issues
	Code    string // stable identifier, e.g. "unbalanced"
	Message string

	// Difference is set for unbalanced vouchers.
	Difference decimal.Decimal

	err error
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// ValidationErrors collects every issue found in one pass so the user sees
// all of them at once.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// OrNil returns nil for an empty collection so callers can return it
// directly as an error.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func issue(line int, code string, sentinel error, msg string) *ValidationError {
	return &ValidationError{Line: line, Code: code, Message: msg, err: sentinel}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if err holds at least one validation issue.
func IsValidation(err error) bool {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return IsValidation(err) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrKindChanged) ||
		errors.Is(err, ErrLineIndex)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrVoucherNotFound)
}

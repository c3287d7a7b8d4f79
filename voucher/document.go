package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/voucher-ledger/ledger"
)

// Header is everything on a voucher outside its rows.
type Header struct {
	Number    string    `json:"number,omitempty" yaml:"number"`
	Date      time.Time `json:"date" yaml:"date"`
	Narration string    `json:"narration,omitempty" yaml:"narration"`

	// PartyAccountID is the customer (sales) or supplier (purchase) account.
	PartyAccountID string `json:"party_account_id,omitempty" yaml:"party_account_id"`

	// CashAccountID is the cash or bank account a payment leaves from or a
	// receipt lands in.
	CashAccountID string `json:"cash_account_id,omitempty" yaml:"cash_account_id"`
}

// Voucher is a saved (or about to be saved) document. Only the row slice of
// its Kind's family is used; the others stay empty.
type Voucher struct {
	ID       string `json:"id,omitempty" yaml:"id"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Sequence int    `json:"sequence,omitempty" yaml:"sequence"`
	Revision int    `json:"revision,omitempty" yaml:"revision"`
	Header   `yaml:",inline"`

	Lines    []Line        `json:"lines,omitempty" yaml:"lines"`
	Items    []LineItem    `json:"items,omitempty" yaml:"items"`
	Payments []PaymentItem `json:"payments,omitempty" yaml:"payments"`

	DiscountInput DiscountInput `json:"discount_input" yaml:"discount_input"`
	Totals        Totals        `json:"totals" yaml:"-"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Clone returns a deep copy of the row slices.
func (v Voucher) Clone() Voucher {
	out := v
	out.Lines = append([]Line(nil), v.Lines...)
	out.Items = append([]LineItem(nil), v.Items...)
	out.Payments = append([]PaymentItem(nil), v.Payments...)
	return out
}

// FormatNumber builds the display number for a kind and sequence.
func FormatNumber(kind Kind, seq int) string {
	return fmt.Sprintf("%s-%04d", kind.Prefix(), seq)
}

// =============================================================================
// STORE - Persistence command layer
// =============================================================================

// Store persists voucher documents.
type Store interface {
	CreateVoucher(ctx context.Context, v Voucher) error
	UpdateVoucher(ctx context.Context, v Voucher) error
	DeleteVoucher(ctx context.Context, id string) error

	// GetVoucher returns ErrVoucherNotFound when id is unknown.
	GetVoucher(ctx context.Context, id string) (Voucher, error)

	// ListVouchers returns vouchers of one kind, or all when kind is empty,
	// ordered by date then sequence.
	ListVouchers(ctx context.Context, kind Kind) ([]Voucher, error)

	// MaxSequence returns the highest sequence used for kind, 0 if none.
	MaxSequence(ctx context.Context, kind Kind) (int, error)
}

// TxStore writes a voucher and its postings atomically.
// If fn returns an error, nothing fn wrote is kept.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store, ledger.Store) error) error
}

/*
Package ledger is the append-only account ledger that saved vouchers post to.

PURPOSE:
  A voucher is a document; the ledger is the book. When a voucher is saved,
  its debit and credit legs are appended here as postings. Account balances,
  statements and the trial balance are always computed by replaying
  postings; there is no stored balance that could drift.

KEY CONCEPTS IN THIS FILE (types.go):
  - Posting: one debit or credit leg against one account
  - PostingType: original posting or reversal
  - Period: a date range, open on either end

DESIGN PRINCIPLES:
  1. Append-only: postings are never updated or deleted
  2. Corrections by reversal: editing a voucher reverses its old postings
     and appends new ones, so history is preserved
  3. Balanced batches: every batch handed to Post nets to zero
  4. Idempotent: a posting's idempotency key can be written once

SEE ALSO:
  - ledger.go: Post and Reverse
  - balance.go: account balances for a period
  - voucher/postings.go: voucher to posting translation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POSTING - One leg of a voucher against one account
// =============================================================================

type PostingType string

const (
	PostingOriginal PostingType = "posting"
	PostingReversal PostingType = "reversal"
)

type Posting struct {
	ID            string
	AccountID     string
	VoucherID     string
	VoucherKind   string
	VoucherNumber string
	Date          time.Time
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Type          PostingType
	ReversalOf    string // ID of the posting this one reverses
	Narration     string

	IdempotencyKey string
	CreatedAt      time.Time
}

// Net returns debit minus credit.
func (p Posting) Net() decimal.Decimal {
	return p.Debit.Sub(p.Credit)
}

// =============================================================================
// PERIOD - Date range for statements and balances
// =============================================================================

// Period is an inclusive date range. A zero From or To leaves that end open.
type Period struct {
	From time.Time
	To   time.Time
}

// Until returns a period open at the start and ending at t.
func Until(t time.Time) Period {
	return Period{To: t}
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && t.After(p.To) {
		return false
	}
	return true
}

// Before reports whether t falls before the start of the period.
func (p Period) Before(t time.Time) bool {
	return !p.From.IsZero() && t.Before(p.From)
}

func (p Period) String() string {
	from, to := "…", "…"
	if !p.From.IsZero() {
		from = p.From.Format("2006-01-02")
	}
	if !p.To.IsZero() {
		to = p.To.Format("2006-01-02")
	}
	return from + " to " + to
}

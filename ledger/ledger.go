package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER - Append-only posting log
// =============================================================================

// Ledger validates posting batches before handing them to the Store.
//
// INVARIANTS:
//   - Append-only: corrections are reversals.
//   - Every batch nets to zero (total debit == total credit).
//   - An idempotency key is written at most once.
type Ledger struct {
	Store Store
	Now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// Post appends a balanced batch of postings. Missing IDs and creation
// timestamps are filled in.
func (l *Ledger) Post(ctx context.Context, postings []Posting) error {
	if len(postings) == 0 {
		return nil
	}
	if err := CheckBalanced(postings); err != nil {
		return err
	}

	seen := make(map[string]bool, len(postings))
	now := l.Now()
	for i := range postings {
		p := &postings[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Type == "" {
			p.Type = PostingOriginal
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.IdempotencyKey == "" {
			continue
		}
		if seen[p.IdempotencyKey] {
			return ErrDuplicateIdempotencyKey
		}
		seen[p.IdempotencyKey] = true
		exists, err := l.Store.PostingKeyExists(ctx, p.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.AppendPostings(ctx, postings)
}

// Reverse appends a mirror posting for every posting of the voucher that has
// not been reversed yet. It returns the reversals written.
func (l *Ledger) Reverse(ctx context.Context, voucherID string, at time.Time, reason string) ([]Posting, error) {
	existing, err := l.Store.VoucherPostings(ctx, voucherID)
	if err != nil {
		return nil, err
	}

	open := OpenPostings(existing)
	if len(open) == 0 {
		return nil, ErrNothingToReverse
	}

	reversals := make([]Posting, 0, len(open))
	for _, p := range open {
		reversals = append(reversals, Posting{
			AccountID:      p.AccountID,
			VoucherID:      p.VoucherID,
			VoucherKind:    p.VoucherKind,
			VoucherNumber:  p.VoucherNumber,
			Date:           at,
			Debit:          p.Credit,
			Credit:         p.Debit,
			Type:           PostingReversal,
			ReversalOf:     p.ID,
			Narration:      reason,
			IdempotencyKey: "reversal:" + p.ID,
		})
	}
	if err := l.Post(ctx, reversals); err != nil {
		return nil, err
	}
	return reversals, nil
}

// OpenPostings returns the original postings that no reversal points at.
func OpenPostings(postings []Posting) []Posting {
	reversed := make(map[string]bool)
	for _, p := range postings {
		if p.Type == PostingReversal && p.ReversalOf != "" {
			reversed[p.ReversalOf] = true
		}
	}
	var open []Posting
	for _, p := range postings {
		if p.Type == PostingOriginal && !reversed[p.ID] {
			open = append(open, p)
		}
	}
	return open
}

// CheckBalanced validates every leg and that the batch nets to exactly zero.
func CheckBalanced(postings []Posting) error {
	debit, credit := decimal.Zero, decimal.Zero
	for i, p := range postings {
		if p.AccountID == "" {
			return fmt.Errorf("%w: leg %d has no account", ErrInvalidPosting, i+1)
		}
		if p.Debit.IsNegative() || p.Credit.IsNegative() {
			return fmt.Errorf("%w: leg %d has a negative amount", ErrInvalidPosting, i+1)
		}
		if p.Debit.IsPositive() && p.Credit.IsPositive() {
			return fmt.Errorf("%w: leg %d has both debit and credit", ErrInvalidPosting, i+1)
		}
		debit = debit.Add(p.Debit)
		credit = credit.Add(p.Credit)
	}
	if !debit.Equal(credit) {
		return &UnbalancedError{Debit: debit, Credit: credit}
	}
	return nil
}

package ledger

import "context"

// Store persists postings.
// IMPORTANT: append-only. There is no Update and no Delete.
type Store interface {
	// AppendPostings writes the postings atomically. A repeated idempotency
	// key fails the whole batch with ErrDuplicateIdempotencyKey.
	AppendPostings(ctx context.Context, postings []Posting) error

	// AccountPostings returns postings for an account within the period,
	// ordered by date then creation.
	AccountPostings(ctx context.Context, accountID string, period Period) ([]Posting, error)

	// VoucherPostings returns every posting written for a voucher.
	VoucherPostings(ctx context.Context, voucherID string) ([]Posting, error)

	// PostingKeyExists checks if an idempotency key was already used.
	PostingKeyExists(ctx context.Context, idempotencyKey string) (bool, error)
}

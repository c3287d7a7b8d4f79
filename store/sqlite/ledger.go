package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/voucher-ledger/ledger"
	"github.com/warp/voucher-ledger/voucher"
)

// Timestamps are stored in a fixed-width layout so that text ordering
// matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

// =============================================================================
// VOUCHER STORE (voucher.Store interface)
// =============================================================================

func (s *Store) CreateVoucher(ctx context.Context, v voucher.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertVoucher(ctx, s.db, v)
}

func (s *Store) UpdateVoucher(ctx context.Context, v voucher.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateVoucher(ctx, s.db, v)
}

func (s *Store) DeleteVoucher(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteVoucher(ctx, s.db, id)
}

func (s *Store) GetVoucher(ctx context.Context, id string) (voucher.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getVoucher(ctx, s.db, id)
}

func (s *Store) ListVouchers(ctx context.Context, kind voucher.Kind) ([]voucher.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listVouchers(ctx, s.db, kind)
}

func (s *Store) MaxSequence(ctx context.Context, kind voucher.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxSequence(ctx, s.db, kind)
}

func insertVoucher(ctx context.Context, q queryer, v voucher.Voucher) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode voucher: %w", err)
	}

	query := `
		INSERT INTO vouchers (id, kind, sequence, number, revision, date, body_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		v.ID, string(v.Kind), v.Sequence, v.Number, v.Revision,
		formatTime(v.Date), string(body), formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %s", voucher.ErrDuplicateVoucher, v.Number)
	}
	if err != nil {
		return fmt.Errorf("failed to insert voucher: %w", err)
	}
	return nil
}

func updateVoucher(ctx context.Context, q queryer, v voucher.Voucher) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode voucher: %w", err)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE vouchers SET number = ?, revision = ?, date = ?, body_json = ?, updated_at = ? WHERE id = ?`,
		v.Number, v.Revision, formatTime(v.Date), string(body), formatTime(v.UpdatedAt), v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update voucher: %w", err)
	}
	return expectOneRow(res)
}

func deleteVoucher(ctx context.Context, q queryer, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM vouchers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete voucher: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return voucher.ErrVoucherNotFound
	}
	return nil
}

func getVoucher(ctx context.Context, q queryer, id string) (voucher.Voucher, error) {
	var body string
	err := q.QueryRowContext(ctx, "SELECT body_json FROM vouchers WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return voucher.Voucher{}, voucher.ErrVoucherNotFound
	}
	if err != nil {
		return voucher.Voucher{}, fmt.Errorf("failed to get voucher: %w", err)
	}
	return decodeVoucher(body)
}

func listVouchers(ctx context.Context, q queryer, kind voucher.Kind) ([]voucher.Voucher, error) {
	query := "SELECT body_json FROM vouchers"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY date ASC, kind ASC, sequence ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []voucher.Voucher
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		v, err := decodeVoucher(body)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

func maxSequence(ctx context.Context, q queryer, kind voucher.Kind) (int, error) {
	var seq sql.NullInt64
	err := q.QueryRowContext(ctx, "SELECT MAX(sequence) FROM vouchers WHERE kind = ?", string(kind)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	return int(seq.Int64), nil
}

func decodeVoucher(body string) (voucher.Voucher, error) {
	var v voucher.Voucher
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return voucher.Voucher{}, fmt.Errorf("failed to decode voucher: %w", err)
	}
	return v, nil
}

// =============================================================================
// POSTING STORE (ledger.Store interface)
// =============================================================================

// AppendPostings adds postings atomically.
func (s *Store) AppendPostings(ctx context.Context, postings []ledger.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicate idempotency keys within the batch first
	keys := make(map[string]bool)
	for _, p := range postings {
		if p.IdempotencyKey == "" {
			continue
		}
		if keys[p.IdempotencyKey] {
			return ledger.ErrDuplicateIdempotencyKey
		}
		keys[p.IdempotencyKey] = true
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, p := range postings {
		if err := insertPosting(ctx, sqlTx, p); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (s *Store) AccountPostings(ctx context.Context, accountID string, period ledger.Period) ([]ledger.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return accountPostings(ctx, s.db, accountID, period)
}

func (s *Store) VoucherPostings(ctx context.Context, voucherID string) ([]ledger.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return voucherPostings(ctx, s.db, voucherID)
}

func (s *Store) PostingKeyExists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return postingKeyExists(ctx, s.db, key)
}

func insertPosting(ctx context.Context, q queryer, p ledger.Posting) error {
	query := `
		INSERT INTO postings
		(id, account_id, voucher_id, voucher_kind, voucher_number, date, debit, credit,
		 posting_type, reversal_of, narration, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		p.ID,
		p.AccountID,
		p.VoucherID,
		p.VoucherKind,
		nullString(p.VoucherNumber),
		formatTime(p.Date),
		p.Debit.String(),
		p.Credit.String(),
		string(p.Type),
		nullString(p.ReversalOf),
		nullString(p.Narration),
		nullString(p.IdempotencyKey),
		formatTime(p.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return ledger.ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("failed to append posting: %w", err)
	}
	return nil
}

const postingColumns = `id, account_id, voucher_id, voucher_kind, voucher_number, date, debit, credit,
	posting_type, reversal_of, narration, idempotency_key, created_at`

func accountPostings(ctx context.Context, q queryer, accountID string, period ledger.Period) ([]ledger.Posting, error) {
	where := []string{"account_id = ?"}
	args := []any{accountID}
	if !period.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatTime(period.From))
	}
	if !period.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatTime(period.To))
	}

	query := "SELECT " + postingColumns + " FROM postings WHERE " +
		strings.Join(where, " AND ") + " ORDER BY date ASC, rowid ASC"
	return queryPostings(ctx, q, query, args...)
}

func voucherPostings(ctx context.Context, q queryer, voucherID string) ([]ledger.Posting, error) {
	query := "SELECT " + postingColumns + " FROM postings WHERE voucher_id = ? ORDER BY rowid ASC"
	return queryPostings(ctx, q, query, voucherID)
}

func postingKeyExists(ctx context.Context, q queryer, key string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM postings WHERE idempotency_key = ?", key,
	).Scan(&count)
	return count > 0, err
}

func queryPostings(ctx context.Context, q queryer, query string, args ...any) ([]ledger.Posting, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query postings: %w", err)
	}
	defer rows.Close()

	var postings []ledger.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func scanPosting(rows *sql.Rows) (ledger.Posting, error) {
	var (
		p              ledger.Posting
		voucherNumber  sql.NullString
		date           string
		debit, credit  string
		postingType    string
		reversalOf     sql.NullString
		narration      sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&p.ID, &p.AccountID, &p.VoucherID, &p.VoucherKind, &voucherNumber,
		&date, &debit, &credit, &postingType, &reversalOf, &narration,
		&idempotencyKey, &createdAt,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan posting: %w", err)
	}

	p.VoucherNumber = voucherNumber.String
	p.Date = parseTime(date)
	p.Debit = parseDecimal(debit)
	p.Credit = parseDecimal(credit)
	p.Type = ledger.PostingType(postingType)
	p.ReversalOf = reversalOf.String
	p.Narration = narration.String
	p.IdempotencyKey = idempotencyKey.String
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

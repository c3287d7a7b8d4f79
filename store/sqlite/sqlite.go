/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the service needs using SQLite.
  The same schema works on PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  catalog.Catalog, catalog.Writer:  chart of accounts and products
  voucher.Store, voucher.TxStore:   voucher documents
  ledger.Store:                     postings

APPEND-ONLY ENFORCEMENT:
  The postings table is only ever inserted into:
  - No UPDATE statements on postings
  - No DELETE statements on postings (except Reset for demos)
  - Corrections via reversal postings only

KEY TABLES:
  accounts:  chart of accounts, unique code
  products:  product catalog
  vouchers:  one row per voucher, rows and totals kept as JSON
  postings:  immutable ledger legs

INDEXES:
  - idx_postings_account_date: statements and balances (hot path)
  - idx_postings_voucher: reversal lookup
  - idx_vouchers_kind_sequence: numbering, unique per kind

CONCURRENCY:
  Uses sync.RWMutex plus a single connection. Inside WithTx all access goes
  through the transaction, never back through the locked Store methods.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/vouchers.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := voucher.NewService(store, store, calc, accounts, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - store/memory: in-memory implementation for tests
  - ledger/store.go, voucher/document.go: interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/voucher-ledger/ledger"
	"github.com/warp/voucher-ledger/voucher"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		code TEXT,
		name TEXT NOT NULL,
		rate TEXT NOT NULL,
		tax_rate_percent TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_products_code
		ON products(code) WHERE code IS NOT NULL;

	CREATE TABLE IF NOT EXISTS vouchers (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		number TEXT NOT NULL,
		revision INTEGER NOT NULL,
		date TEXT NOT NULL,
		body_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_vouchers_kind_sequence
		ON vouchers(kind, sequence);

	-- Postings (append-only ledger)
	CREATE TABLE IF NOT EXISTS postings (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		voucher_id TEXT NOT NULL,
		voucher_kind TEXT NOT NULL,
		voucher_number TEXT,
		date TEXT NOT NULL,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		posting_type TEXT NOT NULL,
		reversal_of TEXT,
		narration TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	-- Composite index for period-based balance queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_postings_account_date
		ON postings(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_postings_voucher
		ON postings(voucher_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (voucher.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. Vouchers and postings
// written by fn commit together or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(voucher.Store, ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	ts := &txStore{q: sqlTx}
	if err := fn(ts, ts); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every call on the open transaction without taking the
// parent's lock.
type txStore struct {
	q queryer
}

func (ts *txStore) CreateVoucher(ctx context.Context, v voucher.Voucher) error {
	return insertVoucher(ctx, ts.q, v)
}

func (ts *txStore) UpdateVoucher(ctx context.Context, v voucher.Voucher) error {
	return updateVoucher(ctx, ts.q, v)
}

func (ts *txStore) DeleteVoucher(ctx context.Context, id string) error {
	return deleteVoucher(ctx, ts.q, id)
}

func (ts *txStore) GetVoucher(ctx context.Context, id string) (voucher.Voucher, error) {
	return getVoucher(ctx, ts.q, id)
}

func (ts *txStore) ListVouchers(ctx context.Context, kind voucher.Kind) ([]voucher.Voucher, error) {
	return listVouchers(ctx, ts.q, kind)
}

func (ts *txStore) MaxSequence(ctx context.Context, kind voucher.Kind) (int, error) {
	return maxSequence(ctx, ts.q, kind)
}

func (ts *txStore) AppendPostings(ctx context.Context, postings []ledger.Posting) error {
	for _, p := range postings {
		if err := insertPosting(ctx, ts.q, p); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) AccountPostings(ctx context.Context, accountID string, period ledger.Period) ([]ledger.Posting, error) {
	return accountPostings(ctx, ts.q, accountID, period)
}

func (ts *txStore) VoucherPostings(ctx context.Context, voucherID string) ([]ledger.Posting, error) {
	return voucherPostings(ctx, ts.q, voucherID)
}

func (ts *txStore) PostingKeyExists(ctx context.Context, key string) (bool, error) {
	return postingKeyExists(ctx, ts.q, key)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"postings", "vouchers", "products", "accounts"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/catalog"
)

// =============================================================================
// CATALOG STORE (catalog.Catalog, catalog.Writer)
// =============================================================================

// SaveAccount inserts or replaces an account.
func (s *Store) SaveAccount(ctx context.Context, a catalog.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (id, code, name, type, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET code = excluded.code, name = excluded.name, type = excluded.type
	`
	_, err := s.db.ExecContext(ctx, query, a.ID, a.Code, a.Name, string(a.Type), time.Now().UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: account %s", catalog.ErrDuplicateCode, a.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// SaveProduct inserts or replaces a product.
func (s *Store) SaveProduct(ctx context.Context, p catalog.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products (id, code, name, rate, tax_rate_percent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, name = excluded.name,
			rate = excluded.rate, tax_rate_percent = excluded.tax_rate_percent
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, nullString(p.Code), p.Name, p.Rate.String(), p.TaxRatePercent.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: product %s", catalog.ErrDuplicateCode, p.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (s *Store) Account(ctx context.Context, id string) (catalog.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAccount(ctx, "SELECT id, code, name, type FROM accounts WHERE id = ?", id)
}

func (s *Store) AccountByCode(ctx context.Context, code string) (catalog.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAccount(ctx, "SELECT id, code, name, type FROM accounts WHERE code = ?", code)
}

func (s *Store) queryAccount(ctx context.Context, query string, arg string) (catalog.Account, error) {
	var a catalog.Account
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Code, &a.Name, &a.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Account{}, catalog.ErrAccountNotFound
	}
	if err != nil {
		return catalog.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// Accounts returns the chart ordered by code.
func (s *Store) Accounts(ctx context.Context) ([]catalog.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, code, name, type FROM accounts ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []catalog.Account
	for rows.Next() {
		var a catalog.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) Product(ctx context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, code, name, rate, tax_rate_percent FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *Store) Products(ctx context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, name, rate, tax_rate_percent FROM products ORDER BY code, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (catalog.Product, error) {
	var (
		p             catalog.Product
		code          sql.NullString
		rate, taxRate string
	)
	if err := row.Scan(&p.ID, &code, &p.Name, &rate, &taxRate); err != nil {
		return p, err
	}
	p.Code = code.String
	p.Rate = parseDecimal(rate)
	p.TaxRatePercent = parseDecimal(taxRate)
	return p, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

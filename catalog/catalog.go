/*
Package catalog defines the reference data that voucher lines point at: the
chart of accounts and the product list.

PURPOSE:
  Voucher lines reference accounts and products by ID. The calculator never
  fetches them; callers resolve what they need (names, the opening balance
  adjustment account, posting accounts) once and pass plain values in.

KEY TYPES:
  Account:  ledger account (id, code, name, type)
  Product:  sellable/purchasable item with a default rate and tax rate
  Catalog:  read-only lookups, implemented by store/sqlite and store/memory
  Writer:   creation of accounts and products (admin/demo data only)

SEE ALSO:
  - voucher/service.go: resolves account names before saving
  - config/config.go: account codes for postings and auto-balance
*/
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateCode   = errors.New("duplicate code")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrInvalidProduct  = errors.New("invalid product")
)

// AccountType is the top-level classification of a ledger account.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountIncome, AccountExpense:
		return true
	}
	return false
}

// DebitNormal reports whether balances of this type are normally debit.
func (t AccountType) DebitNormal() bool {
	return t == AccountAsset || t == AccountExpense
}

type Account struct {
	ID   string      `json:"id" yaml:"id"`
	Code string      `json:"code" yaml:"code"`
	Name string      `json:"name" yaml:"name"`
	Type AccountType `json:"type" yaml:"type"`
}

func (a Account) Validate() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidAccount)
	case strings.TrimSpace(a.Code) == "":
		return fmt.Errorf("%w: code is required", ErrInvalidAccount)
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidAccount)
	case !a.Type.IsValid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAccount, a.Type)
	}
	return nil
}

type Product struct {
	ID             string          `json:"id" yaml:"id"`
	Code           string          `json:"code" yaml:"code"`
	Name           string          `json:"name" yaml:"name"`
	Rate           decimal.Decimal `json:"rate" yaml:"rate"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent" yaml:"tax_rate_percent"`
}

func (p Product) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Rate.IsNegative():
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidProduct)
	case p.TaxRatePercent.IsNegative():
		return fmt.Errorf("%w: tax rate must not be negative", ErrInvalidProduct)
	}
	return nil
}

// Catalog is the read-only lookup surface used by the voucher service.
type Catalog interface {
	Account(ctx context.Context, id string) (Account, error)
	AccountByCode(ctx context.Context, code string) (Account, error)
	Accounts(ctx context.Context) ([]Account, error)
	Product(ctx context.Context, id string) (Product, error)
	Products(ctx context.Context) ([]Product, error)
}

// Writer adds reference data.
type Writer interface {
	SaveAccount(ctx context.Context, a Account) error
	SaveProduct(ctx context.Context, p Product) error
}

// IsNotFound returns true for missing accounts or products.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrProductNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrInvalidProduct)
}

// ResolveCodes looks up each code and returns the matching accounts keyed
// by code. Blank codes are skipped.
func ResolveCodes(ctx context.Context, c Catalog, codes ...string) (map[string]Account, error) {
	out := make(map[string]Account, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		acc, err := c.AccountByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("resolve account code %s: %w", code, err)
		}
		out[code] = acc
	}
	return out, nil
}

package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Default account codes used by DefaultChart and the default configuration.
const (
	CodeCash              = "1001"
	CodeBank              = "1002"
	CodeReceivables       = "1101"
	CodeInputTax          = "1201"
	CodePayables          = "2001"
	CodeOutputTax         = "2101"
	CodeCapital           = "3001"
	CodeOpeningDifference = "3004"
	CodeSales             = "4001"
	CodePurchases         = "5001"
	CodeRent              = "5101"
)

// DefaultChart returns a starter chart of accounts for a small trading business.
func DefaultChart() []Account {
	return []Account{
		{ID: "acc-cash", Code: CodeCash, Name: "Cash in Hand", Type: AccountAsset},
		{ID: "acc-bank", Code: CodeBank, Name: "Bank", Type: AccountAsset},
		{ID: "acc-receivables", Code: CodeReceivables, Name: "Accounts Receivable", Type: AccountAsset},
		{ID: "acc-input-tax", Code: CodeInputTax, Name: "Input Tax", Type: AccountAsset},
		{ID: "acc-payables", Code: CodePayables, Name: "Accounts Payable", Type: AccountLiability},
		{ID: "acc-output-tax", Code: CodeOutputTax, Name: "Output Tax", Type: AccountLiability},
		{ID: "acc-capital", Code: CodeCapital, Name: "Owner's Capital", Type: AccountEquity},
		{ID: "acc-opening-diff", Code: CodeOpeningDifference, Name: "Opening Balance Difference", Type: AccountEquity},
		{ID: "acc-sales", Code: CodeSales, Name: "Sales", Type: AccountIncome},
		{ID: "acc-purchases", Code: CodePurchases, Name: "Purchases", Type: AccountExpense},
		{ID: "acc-rent", Code: CodeRent, Name: "Rent", Type: AccountExpense},
	}
}

// DefaultProducts returns a few demo products.
func DefaultProducts() []Product {
	return []Product{
		{ID: "prd-rice", Code: "P-100", Name: "Rice (kg)", Rate: decimal.NewFromInt(100), TaxRatePercent: decimal.NewFromInt(18)},
		{ID: "prd-sugar", Code: "P-200", Name: "Sugar (kg)", Rate: decimal.NewFromInt(60), TaxRatePercent: decimal.NewFromInt(5)},
		{ID: "prd-salt", Code: "P-300", Name: "Salt (kg)", Rate: decimal.NewFromInt(20), TaxRatePercent: decimal.Zero},
	}
}

// SeedDefaults saves DefaultChart and DefaultProducts through w.
func SeedDefaults(ctx context.Context, w Writer) error {
	for _, a := range DefaultChart() {
		if err := w.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("seed account %s: %w", a.Code, err)
		}
	}
	for _, p := range DefaultProducts() {
		if err := w.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Code, err)
		}
	}
	return nil
}

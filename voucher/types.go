/*
Package voucher implements double-entry voucher balancing and totals.

PURPOSE:
  Every voucher screen of the accounting front-end (journal entry, opening
  balance, purchase/sales invoice, payment/receipt) needs the same handful of
  calculations: per-line amounts, discount reconciliation, debit/credit
  balancing and grand totals. This package holds them once, parameterised by
  voucher Kind, instead of once per screen.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: which voucher is being edited
  - Policy: per-kind knobs (signed difference, auto-balance, tax base)
  - Line: journal / opening balance row (debit or credit)
  - LineItem: invoice row (quantity x rate, deductions, tax)
  - PaymentItem: payment / receipt row (ledger + amount)
  - Totals: always recomputed from the rows, never edited directly

DESIGN PRINCIPLES:
  1. Pure: calculator functions take the full row set and return fresh
     totals. No state survives between calls.
  2. Precision: decimal.Decimal everywhere, Round2 after each aggregate.
  3. Total functions: bad numeric input becomes zero, nothing panics.
  4. Explicit policy: behaviour that differs by voucher kind is a named
     Policy field, never an accidental code-path divergence.

USAGE:
  calc := voucher.NewCalculator(voucher.DefaultPolicies())
  totals := calc.LedgerTotals(voucher.KindJournal, lines)
  if !totals.Balanced { ... }

SEE ALSO:
  - calculator.go: Calculator and Policy lookup
  - form.go: per-form state container
  - validate.go: submit-time validation
  - service.go: persistence orchestration
*/
package voucher

import (
	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/money"
)

// =============================================================================
// KIND & FAMILY
// =============================================================================

// Kind identifies a voucher type and selects its Policy.
type Kind string

const (
	KindJournal         Kind = "journal"
	KindOpeningBalance  Kind = "opening_balance"
	KindPurchaseInvoice Kind = "purchase_invoice"
	KindSalesInvoice    Kind = "sales_invoice"
	KindPayment         Kind = "payment"
	KindReceipt         Kind = "receipt"
)

// Kinds lists every voucher kind in display order.
func Kinds() []Kind {
	return []Kind{KindJournal, KindOpeningBalance, KindPurchaseInvoice, KindSalesInvoice, KindPayment, KindReceipt}
}

// IsValid reports whether k is one of Kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindJournal, KindOpeningBalance, KindPurchaseInvoice, KindSalesInvoice, KindPayment, KindReceipt:
		return true
	}
	return false
}

// Family groups kinds that share a row shape.
type Family string

const (
	FamilyLedger  Family = "ledger"  // debit/credit lines
	FamilyInvoice Family = "invoice" // product line items
	FamilyPayment Family = "payment" // ledger + amount items
)

func (k Kind) Family() Family {
	switch k {
	case KindPurchaseInvoice, KindSalesInvoice:
		return FamilyInvoice
	case KindPayment, KindReceipt:
		return FamilyPayment
	default:
		return FamilyLedger
	}
}

// Prefix is used for voucher numbers, e.g. JV-0001.
func (k Kind) Prefix() string {
	switch k {
	case KindJournal:
		return "JV"
	case KindOpeningBalance:
		return "OB"
	case KindPurchaseInvoice:
		return "PI"
	case KindSalesInvoice:
		return "SI"
	case KindPayment:
		return "PV"
	case KindReceipt:
		return "RV"
	}
	return "V"
}

// =============================================================================
// POLICY
// =============================================================================

// TaxBase selects what invoice tax is computed on.
type TaxBase string

const (
	// TaxBasePreDiscount taxes each line on its full amount; the invoice
	// discount only reduces the grand total.
	TaxBasePreDiscount TaxBase = "pre-discount"

	// TaxBasePostDiscount allocates the invoice discount to lines by amount
	// and taxes what remains.
	TaxBasePostDiscount TaxBase = "post-discount"
)

func (b TaxBase) IsValid() bool {
	return b == TaxBasePreDiscount || b == TaxBasePostDiscount
}

// Policy holds the per-kind calculation choices.
type Policy struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// SignedDifference reports D-C instead of |D-C|.
	SignedDifference bool `json:"signed_difference" yaml:"signed_difference"`

	// AutoBalance synthesizes an adjustment line against AdjustmentAccountID.
	AutoBalance           bool   `json:"auto_balance" yaml:"auto_balance"`
	AdjustmentAccountID   string `json:"adjustment_account_id,omitempty" yaml:"adjustment_account_id"`
	AdjustmentAccountName string `json:"adjustment_account_name,omitempty" yaml:"adjustment_account_name"`

	TaxBase TaxBase `json:"tax_base,omitempty" yaml:"tax_base"`
}

// Adjustment returns the account auto-balance lines are posted to, or an
// empty Adjustment when the policy does not auto-balance.
func (p Policy) Adjustment() Adjustment {
	if !p.AutoBalance {
		return Adjustment{}
	}
	return Adjustment{AccountID: p.AdjustmentAccountID, AccountName: p.AdjustmentAccountName}
}

// DefaultPolicies returns the stock policy set. The opening balance
// adjustment account is left blank; callers resolve it from the catalog.
func DefaultPolicies() map[Kind]Policy {
	return map[Kind]Policy{
		KindJournal:         {Kind: KindJournal},
		KindOpeningBalance:  {Kind: KindOpeningBalance, SignedDifference: true, AutoBalance: true},
		KindPurchaseInvoice: {Kind: KindPurchaseInvoice, TaxBase: TaxBasePreDiscount},
		KindSalesInvoice:    {Kind: KindSalesInvoice, TaxBase: TaxBasePostDiscount},
		KindPayment:         {Kind: KindPayment},
		KindReceipt:         {Kind: KindReceipt},
	}
}

// =============================================================================
// ROWS
// =============================================================================

// Line is one row of a journal entry or opening balance voucher.
// Debit and credit are non-negative and never both positive.
type Line struct {
	AccountID   string          `json:"account_id" yaml:"account_id"`
	AccountName string          `json:"account_name,omitempty" yaml:"account_name"`
	Debit       decimal.Decimal `json:"debit" yaml:"debit"`
	Credit      decimal.Decimal `json:"credit" yaml:"credit"`
	Narration   string          `json:"narration,omitempty" yaml:"narration"`

	// System marks an adjustment line generated by AutoBalance.
	System bool `json:"system,omitempty" yaml:"system"`
}

// SetDebit sets the debit side. A positive debit clears the credit.
func (l *Line) SetDebit(d decimal.Decimal) {
	l.Debit = money.NonNegative(d)
	if l.Debit.IsPositive() {
		l.Credit = decimal.Zero
	}
}

// SetCredit sets the credit side. A positive credit clears the debit.
func (l *Line) SetCredit(c decimal.Decimal) {
	l.Credit = money.NonNegative(c)
	if l.Credit.IsPositive() {
		l.Debit = decimal.Zero
	}
}

// LineItem is one invoice row. Derived amounts are computed by
// ComputeLineItem and never stored on the item.
type LineItem struct {
	ProductID        string          `json:"product_id" yaml:"product_id"`
	ProductName      string          `json:"product_name,omitempty" yaml:"product_name"`
	Description      string          `json:"description,omitempty" yaml:"description"`
	InitialQuantity  decimal.Decimal `json:"initial_quantity" yaml:"initial_quantity"`
	Count            decimal.Decimal `json:"count" yaml:"count"`
	DeductionPerUnit decimal.Decimal `json:"deduction_per_unit" yaml:"deduction_per_unit"`
	Rate             decimal.Decimal `json:"rate" yaml:"rate"`
	TaxRatePercent   decimal.Decimal `json:"tax_rate_percent" yaml:"tax_rate_percent"`
}

// PaymentItem is one row of a payment or receipt.
type PaymentItem struct {
	LedgerID   string          `json:"ledger_id" yaml:"ledger_id"`
	LedgerName string          `json:"ledger_name,omitempty" yaml:"ledger_name"`
	Amount     decimal.Decimal `json:"amount" yaml:"amount"`
	Remarks    string          `json:"remarks,omitempty" yaml:"remarks"`
}

// =============================================================================
// TOTALS
// =============================================================================

// LedgerTotals are the column totals of a journal or opening balance.
// Difference is signed for opening balances and absolute for journals.
type LedgerTotals struct {
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Difference  decimal.Decimal `json:"difference"`
	Balanced    bool            `json:"balanced"`
}

// InvoiceTotals are the rounded figures of an invoice.
type InvoiceTotals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// PaymentTotals is the rounded sum of payment or receipt rows.
type PaymentTotals struct {
	Total decimal.Decimal `json:"total"`
}

// Totals holds the figures for whichever family the voucher belongs to.
type Totals struct {
	Ledger  LedgerTotals  `json:"ledger"`
	Invoice InvoiceTotals `json:"invoice"`
	Payment PaymentTotals `json:"payment"`
}

// Amount is the single headline figure of a voucher: total debit for
// ledger vouchers, grand total for invoices, total for payments.
func (t Totals) Amount(f Family) decimal.Decimal {
	switch f {
	case FamilyInvoice:
		return t.Invoice.GrandTotal
	case FamilyPayment:
		return t.Payment.Total
	default:
		return t.Ledger.TotalDebit
	}
}

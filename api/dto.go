/*
dto.go - Request and response shapes for the HTTP API

PURPOSE:
  Keeps the wire format separate from the domain types. Requests carry
  Amount fields that accept numbers or strings; anything that does not
  parse (blank, "abc", NaN) becomes zero, the same way an empty form field
  would. Responses reuse the domain types where they already carry JSON
  tags (vouchers, totals, reports).

DATES:
  Request dates are plain "2006-01-02" strings.

SEE ALSO:
  - handlers.go: conversion at the call sites
  - money/money.go: Parse
*/
package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/ledger"
	"github.com/warp/voucher-ledger/money"
	"github.com/warp/voucher-ledger/voucher"
)

const dateLayout = "2006-01-02"

// Amount is a lenient decimal for request bodies.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	a.Decimal = money.Parse(s)
	return nil
}

// =============================================================================
// ROW REQUESTS
// =============================================================================

type LineRequest struct {
	AccountID   string `json:"account_id" validate:"max=64"`
	AccountName string `json:"account_name,omitempty"`
	Debit       Amount `json:"debit"`
	Credit      Amount `json:"credit"`
	Narration   string `json:"narration,omitempty" validate:"max=500"`
	System      bool   `json:"system,omitempty"`
}

func (r LineRequest) toLine() voucher.Line {
	return voucher.Line{
		AccountID:   r.AccountID,
		AccountName: r.AccountName,
		Debit:       money.NonNegative(r.Debit.Decimal),
		Credit:      money.NonNegative(r.Credit.Decimal),
		Narration:   r.Narration,
		System:      r.System,
	}
}

type LineItemRequest struct {
	ProductID        string `json:"product_id" validate:"max=64"`
	ProductName      string `json:"product_name,omitempty"`
	Description      string `json:"description,omitempty" validate:"max=500"`
	InitialQuantity  Amount `json:"initial_quantity"`
	Count            Amount `json:"count"`
	DeductionPerUnit Amount `json:"deduction_per_unit"`
	Rate             Amount `json:"rate"`
	TaxRatePercent   Amount `json:"tax_rate_percent"`
}

func (r LineItemRequest) toItem() voucher.LineItem {
	return voucher.LineItem{
		ProductID:        r.ProductID,
		ProductName:      r.ProductName,
		Description:      r.Description,
		InitialQuantity:  r.InitialQuantity.Decimal,
		Count:            r.Count.Decimal,
		DeductionPerUnit: r.DeductionPerUnit.Decimal,
		Rate:             r.Rate.Decimal,
		TaxRatePercent:   r.TaxRatePercent.Decimal,
	}
}

type PaymentItemRequest struct {
	LedgerID   string `json:"ledger_id" validate:"max=64"`
	LedgerName string `json:"ledger_name,omitempty"`
	Amount     Amount `json:"amount"`
	Remarks    string `json:"remarks,omitempty" validate:"max=500"`
}

func (r PaymentItemRequest) toPayment() voucher.PaymentItem {
	return voucher.PaymentItem{
		LedgerID:   r.LedgerID,
		LedgerName: r.LedgerName,
		Amount:     r.Amount.Decimal,
		Remarks:    r.Remarks,
	}
}

type DiscountRequest struct {
	Rate   Amount `json:"rate"`
	Amount Amount `json:"amount"`
}

func (r DiscountRequest) toInput() voucher.DiscountInput {
	return voucher.DiscountInput{Rate: r.Rate.Decimal, Amount: r.Amount.Decimal}
}

func (r DiscountRequest) toDiscount() voucher.Discount {
	return voucher.Discount{Rate: r.Rate.Decimal, Amount: r.Amount.Decimal}
}

func toLines(reqs []LineRequest) []voucher.Line {
	out := make([]voucher.Line, len(reqs))
	for i, r := range reqs {
		out[i] = r.toLine()
	}
	return out
}

func toItems(reqs []LineItemRequest) []voucher.LineItem {
	out := make([]voucher.LineItem, len(reqs))
	for i, r := range reqs {
		out[i] = r.toItem()
	}
	return out
}

func toPayments(reqs []PaymentItemRequest) []voucher.PaymentItem {
	out := make([]voucher.PaymentItem, len(reqs))
	for i, r := range reqs {
		out[i] = r.toPayment()
	}
	return out
}

// =============================================================================
// CALCULATOR REQUESTS
// =============================================================================

type CalculateDiscountRequest struct {
	Subtotal Amount          `json:"subtotal"`
	Input    DiscountRequest `json:"input"`
	Previous DiscountRequest `json:"previous"`
}

type CalculateLedgerRequest struct {
	Kind  string        `json:"kind"`
	Lines []LineRequest `json:"lines"`
}

// CalculateLedgerResponse returns the lines after auto-balance together with
// the totals and whatever would block a save.
type CalculateLedgerResponse struct {
	Lines  []voucher.Line       `json:"lines"`
	Totals voucher.LedgerTotals `json:"totals"`
	Issues []IssueDTO           `json:"issues"`
}

type CalculateInvoiceRequest struct {
	Kind     string            `json:"kind"`
	Items    []LineItemRequest `json:"items"`
	Discount DiscountRequest   `json:"discount"`
	Previous DiscountRequest   `json:"previous"`
}

type CalculateInvoiceResponse struct {
	Items  []voucher.LineAmounts `json:"items"`
	Totals voucher.InvoiceTotals `json:"totals"`
	Issues []IssueDTO            `json:"issues"`
}

type CalculatePaymentRequest struct {
	Items []PaymentItemRequest `json:"items"`
}

type CalculatePaymentResponse struct {
	Totals voucher.PaymentTotals `json:"totals"`
	Issues []IssueDTO            `json:"issues"`
}

// =============================================================================
// VOUCHERS
// =============================================================================

// VoucherRequest creates or replaces a voucher. Only the row list matching
// the kind is read.
type VoucherRequest struct {
	Kind           string               `json:"kind" validate:"required,max=32"`
	Number         string               `json:"number,omitempty" validate:"max=32"`
	Date           string               `json:"date" validate:"max=32"`
	Narration      string               `json:"narration,omitempty" validate:"max=500"`
	PartyAccountID string               `json:"party_account_id,omitempty" validate:"max=64"`
	CashAccountID  string               `json:"cash_account_id,omitempty" validate:"max=64"`
	Lines          []LineRequest        `json:"lines,omitempty" validate:"max=500,dive"`
	Items          []LineItemRequest    `json:"items,omitempty" validate:"max=500,dive"`
	Payments       []PaymentItemRequest `json:"payments,omitempty" validate:"max=500,dive"`
	Discount       DiscountRequest      `json:"discount"`
}

// toVoucher converts the request. A missing or malformed date is left zero
// and reported by validation along with everything else.
func (r VoucherRequest) toVoucher() voucher.Voucher {
	v := voucher.Voucher{
		Kind: voucher.Kind(r.Kind),
		Header: voucher.Header{
			Number:         strings.TrimSpace(r.Number),
			Narration:      r.Narration,
			PartyAccountID: r.PartyAccountID,
			CashAccountID:  r.CashAccountID,
		},
		DiscountInput: r.Discount.toInput(),
	}
	if d, err := time.Parse(dateLayout, strings.TrimSpace(r.Date)); err == nil {
		v.Date = d
	}
	switch v.Kind.Family() {
	case voucher.FamilyInvoice:
		v.Items = toItems(r.Items)
	case voucher.FamilyPayment:
		v.Payments = toPayments(r.Payments)
	default:
		v.Lines = toLines(r.Lines)
	}
	return v
}

// IssueDTO is one validation problem. Line is 1-based, 0 for the voucher as
// a whole.
type IssueDTO struct {
	Line       int     `json:"line"`
	Code       string  `json:"code"`
	Message    string  `json:"message"`
	Difference *string `json:"difference,omitempty"`
}

func toIssueDTOs(verrs voucher.ValidationErrors) []IssueDTO {
	out := make([]IssueDTO, 0, len(verrs))
	for _, e := range verrs {
		dto := IssueDTO{Line: e.Line, Code: e.Code, Message: e.Message}
		if !e.Difference.IsZero() {
			s := money.Format(e.Difference)
			dto.Difference = &s
		}
		out = append(out, dto)
	}
	return out
}

// PostingDTO is one ledger leg.
type PostingDTO struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	VoucherID     string `json:"voucher_id"`
	VoucherKind   string `json:"voucher_kind"`
	VoucherNumber string `json:"voucher_number"`
	Date          string `json:"date"`
	Debit         string `json:"debit"`
	Credit        string `json:"credit"`
	Type          string `json:"type"`
	ReversalOf    string `json:"reversal_of,omitempty"`
	Narration     string `json:"narration,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func toPostingDTO(p ledger.Posting) PostingDTO {
	dto := PostingDTO{
		ID:            p.ID,
		AccountID:     p.AccountID,
		VoucherID:     p.VoucherID,
		VoucherKind:   p.VoucherKind,
		VoucherNumber: p.VoucherNumber,
		Date:          p.Date.Format(dateLayout),
		Debit:         money.Format(p.Debit),
		Credit:        money.Format(p.Credit),
		Type:          string(p.Type),
		ReversalOf:    p.ReversalOf,
		Narration:     p.Narration,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPostingDTOs(postings []ledger.Posting) []PostingDTO {
	dtos := make([]PostingDTO, len(postings))
	for i, p := range postings {
		dtos[i] = toPostingDTO(p)
	}
	return dtos
}

// =============================================================================
// CATALOG
// =============================================================================

type ProductRequest struct {
	ID             string `json:"id" validate:"required,max=64"`
	Code           string `json:"code" validate:"max=32"`
	Name           string `json:"name" validate:"required,max=128"`
	Rate           Amount `json:"rate"`
	TaxRatePercent Amount `json:"tax_rate_percent"`
}

func (r ProductRequest) toProduct() catalog.Product {
	return catalog.Product{
		ID:             r.ID,
		Code:           r.Code,
		Name:           r.Name,
		Rate:           r.Rate.Decimal,
		TaxRatePercent: r.TaxRatePercent.Decimal,
	}
}

// =============================================================================
// MISC
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

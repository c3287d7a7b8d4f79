/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Stateless calculator endpoints
- Voucher create / update / delete and error mapping
- Catalog endpoints
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/voucher-ledger/api"
	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/store/memory"
	"github.com/warp/voucher-ledger/validation"
	"github.com/warp/voucher-ledger/voucher"
)

var postingAccounts = voucher.PostingAccounts{
	Purchases: "acc-purchases",
	Sales:     "acc-sales",
	InputTax:  "acc-input-tax",
	OutputTax: "acc-output-tax",
}

func policies() map[voucher.Kind]voucher.Policy {
	p := voucher.DefaultPolicies()
	ob := p[voucher.KindOpeningBalance]
	ob.AdjustmentAccountID = "acc-opening-diff"
	ob.AdjustmentAccountName = "Opening Balance Difference"
	p[voucher.KindOpeningBalance] = ob
	return p
}

// newRouter wires the API over any store that satisfies both the handler
// backend and the voucher service.
func newRouter(t *testing.T, store interface {
	api.Backend
	voucher.TxStore
}) http.Handler {
	t.Helper()
	require.NoError(t, catalog.SeedDefaults(context.Background(), store))
	svc := voucher.NewService(store, store, voucher.NewCalculator(policies()), postingAccounts, nil)
	h := api.NewHandler(store, svc, nil)
	return api.NewRouter(h, api.RouterOptions{AllowedOrigins: []string{"http://localhost:5173"}})
}

func newMemoryRouter(t *testing.T) http.Handler {
	return newRouter(t, memory.New())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type validationResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details []api.IssueDTO `json:"details"`
}

type requestErrorResponse struct {
	Code    string                  `json:"code"`
	Details []validation.FieldError `json:"details"`
}

func fieldsOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	resp := decode[requestErrorResponse](t, rec)
	assert.Equal(t, "invalid_request", resp.Code)
	out := make(map[string]string, len(resp.Details))
	for _, f := range resp.Details {
		out[f.Field] = f.Tag
	}
	return out
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func journalBody(debit, credit string) map[string]any {
	return map[string]any{
		"kind":      "journal",
		"date":      "2025-01-10",
		"narration": "capital introduced",
		"lines": []map[string]any{
			{"account_id": "acc-cash", "debit": debit},
			{"account_id": "acc-capital", "credit": credit},
		},
	}
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestCalculateLineItem_LenientAmounts(t *testing.T) {
	// GIVEN: a mix of string, number and garbage inputs
	router := newMemoryRouter(t)
	body := `{"initial_quantity":"10","count":"abc","deduction_per_unit":null,"rate":100,"tax_rate_percent":"18"}`

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/calculate/line-item", body)

	// THEN: garbage counts as zero
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[voucher.LineAmounts](t, rec)
	assertDec(t, "10", got.FinalQuantity)
	assertDec(t, "1000", got.Amount)
	assertDec(t, "180", got.TaxAmount)
	assertDec(t, "1180", got.Total)
}

func TestCalculateDiscount_AmountDrivesRate(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/calculate/discount", map[string]any{
		"subtotal": "1000",
		"input":    map[string]any{"amount": "250"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[voucher.Discount](t, rec)
	assertDec(t, "25", got.Rate)
	assertDec(t, "250", got.Amount)
}

func TestCalculateLedger_OpeningBalanceAutoBalances(t *testing.T) {
	// GIVEN: debits exceed credits by 400
	router := newMemoryRouter(t)

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/calculate/ledger", map[string]any{
		"kind": "opening_balance",
		"lines": []map[string]any{
			{"account_id": "acc-cash", "debit": 1000},
			{"account_id": "acc-capital", "credit": 600},
		},
	})

	// THEN: a system credit line closes the gap
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.CalculateLedgerResponse](t, rec)
	require.Len(t, got.Lines, 3)
	assert.True(t, got.Lines[2].System)
	assert.Equal(t, "acc-opening-diff", got.Lines[2].AccountID)
	assertDec(t, "400", got.Lines[2].Credit)
	assert.True(t, got.Totals.Balanced)
	assert.Empty(t, got.Issues)
}

func TestCalculateLedger_JournalReportsDifference(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/calculate/ledger", map[string]any{
		"lines": []map[string]any{
			{"account_id": "acc-cash", "debit": "500"},
			{"account_id": "acc-capital", "credit": "300"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.CalculateLedgerResponse](t, rec)
	assert.False(t, got.Totals.Balanced)
	assertDec(t, "200", got.Totals.Difference)
	require.NotEmpty(t, got.Issues)
	assert.Equal(t, "unbalanced", got.Issues[0].Code)
	require.NotNil(t, got.Issues[0].Difference)
	assert.Equal(t, "200.00", *got.Issues[0].Difference)
}

func TestCalculateInvoice_SalesTaxAfterDiscount(t *testing.T) {
	// GIVEN: 7 x 100 at 18% and 3 x 100 at 0%, 10% discount
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/calculate/invoice", map[string]any{
		"kind": "sales_invoice",
		"items": []map[string]any{
			{"product_id": "prd-rice", "initial_quantity": 7, "rate": 100, "tax_rate_percent": 18},
			{"product_id": "prd-salt", "initial_quantity": 3, "rate": 100, "tax_rate_percent": 0},
		},
		"discount": map[string]any{"rate": 10},
	})

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.CalculateInvoiceResponse](t, rec)
	require.Len(t, got.Items, 2)
	assertDec(t, "700", got.Items[0].Amount)
	assertDec(t, "1000", got.Totals.Subtotal)
	assertDec(t, "100", got.Totals.Discount)
	assertDec(t, "113.4", got.Totals.Tax)
	assertDec(t, "1013.4", got.Totals.GrandTotal)
	assert.Empty(t, got.Issues)
}

func TestCalculateInvoice_RejectsLedgerKind(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/calculate/invoice", map[string]any{"kind": "journal"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculatePayment_TotalsAndIssues(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/calculate/payment", map[string]any{
		"items": []map[string]any{
			{"ledger_id": "acc-rent", "amount": "1000.255"},
			{"ledger_id": "", "amount": "500"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.CalculatePaymentResponse](t, rec)
	assertDec(t, "1500.26", got.Totals.Total)
	require.NotEmpty(t, got.Issues)
	assert.Equal(t, 2, got.Issues[0].Line)
}

func TestCalculate_InvalidBody(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/calculate/ledger", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode[api.ErrorResponse](t, rec).Error)
}

// =============================================================================
// VOUCHERS
// =============================================================================

func TestVoucherLifecycle(t *testing.T) {
	router := newMemoryRouter(t)

	// WHEN: a journal is created
	rec := do(t, router, http.MethodPost, "/api/vouchers", journalBody("500", "500"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[voucher.Voucher](t, rec)

	// THEN: it is numbered and posted
	assert.Equal(t, "JV-0001", created.Number)
	assert.Equal(t, "Cash in Hand", created.Lines[0].AccountName)

	rec = do(t, router, http.MethodGet, "/api/vouchers/"+created.ID+"/postings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.PostingDTO](t, rec), 2)

	// WHEN: the amount is changed
	rec = do(t, router, http.MethodPut, "/api/vouchers/"+created.ID, journalBody("800", "800"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[voucher.Voucher](t, rec)

	// THEN: the old legs are reversed and the new ones posted
	assert.Equal(t, 2, updated.Revision)
	assert.Equal(t, "JV-0001", updated.Number)
	rec = do(t, router, http.MethodGet, "/api/vouchers/"+created.ID+"/postings", nil)
	postings := decode[[]api.PostingDTO](t, rec)
	assert.Len(t, postings, 6)

	// WHEN: deleted
	rec = do(t, router, http.MethodDelete, "/api/vouchers/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// THEN: gone
	rec = do(t, router, http.MethodGet, "/api/vouchers/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[api.ErrorResponse](t, rec).Code)
}

func TestCreateVoucher_ValidationIssuesInDetails(t *testing.T) {
	router := newMemoryRouter(t)

	// WHEN: the journal is off by 200
	rec := do(t, router, http.MethodPost, "/api/vouchers", journalBody("500", "300"))

	// THEN: 400 with the issue, nothing saved
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[validationResponse](t, rec)
	assert.Equal(t, "validation_failed", resp.Code)
	require.NotEmpty(t, resp.Details)
	assert.Equal(t, "unbalanced", resp.Details[0].Code)

	rec = do(t, router, http.MethodGet, "/api/vouchers", nil)
	assert.Empty(t, decode[[]voucher.Voucher](t, rec))
}

func TestCreateVoucher_MissingDateAndUnknownAccount(t *testing.T) {
	router := newMemoryRouter(t)
	body := journalBody("100", "100")
	body["date"] = "10/01/2025"
	body["lines"] = []map[string]any{
		{"account_id": "acc-nope", "debit": "100"},
		{"account_id": "acc-capital", "credit": "100"},
	}

	rec := do(t, router, http.MethodPost, "/api/vouchers", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	codes := map[string]bool{}
	for _, issue := range decode[validationResponse](t, rec).Details {
		codes[issue.Code] = true
	}
	assert.True(t, codes["missing_date"])
	assert.True(t, codes["unknown_account"])
}

func TestValidateVoucher_DryRun(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/vouchers/validate", journalBody("500", "300"))

	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[api.VoucherPreview](t, rec)
	assert.False(t, preview.Valid)
	assert.NotEmpty(t, preview.Issues)
	assertDec(t, "200", preview.Voucher.Totals.Ledger.Difference)

	rec = do(t, router, http.MethodPost, "/api/vouchers/validate", journalBody("500", "500"))
	preview = decode[api.VoucherPreview](t, rec)
	assert.True(t, preview.Valid)
	assert.Empty(t, preview.Issues)

	rec = do(t, router, http.MethodGet, "/api/vouchers", nil)
	assert.Empty(t, decode[[]voucher.Voucher](t, rec))
}

func TestListVouchers_FilterByKind(t *testing.T) {
	router := newMemoryRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/vouchers", journalBody("100", "100")).Code)

	rec := do(t, router, http.MethodGet, "/api/vouchers?kind=journal", nil)
	assert.Len(t, decode[[]voucher.Voucher](t, rec), 1)

	rec = do(t, router, http.MethodGet, "/api/vouchers?kind=payment", nil)
	assert.Empty(t, decode[[]voucher.Voucher](t, rec))

	rec = do(t, router, http.MethodGet, "/api/vouchers?kind=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateVoucher_KindChangeRejected(t *testing.T) {
	router := newMemoryRouter(t)
	rec := do(t, router, http.MethodPost, "/api/vouchers", journalBody("100", "100"))
	created := decode[voucher.Voucher](t, rec)

	body := journalBody("100", "100")
	body["kind"] = "opening_balance"
	rec = do(t, router, http.MethodPut, "/api/vouchers/"+created.ID, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode[api.ErrorResponse](t, rec).Code)
}

// =============================================================================
// CATALOG
// =============================================================================

func TestAccounts_CreateAndDuplicateCode(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/accounts", catalog.Account{
		ID: "acc-wages", Code: "5201", Name: "Wages", Type: catalog.AccountExpense,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/accounts/acc-wages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wages", decode[catalog.Account](t, rec).Name)

	// WHEN: another account reuses the code
	rec = do(t, router, http.MethodPost, "/api/accounts", catalog.Account{
		ID: "acc-salaries", Code: "5201", Name: "Salaries", Type: catalog.AccountExpense,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/accounts", catalog.Account{ID: "acc-x", Code: "9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/accounts/acc-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_CreateAndList(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/products", map[string]any{
		"id": "prd-tea", "code": "P-400", "name": "Tea (kg)", "rate": "450", "tax_rate_percent": "12",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/products", nil)
	products := decode[[]catalog.Product](t, rec)
	assert.Len(t, products, len(catalog.DefaultProducts())+1)

	rec = do(t, router, http.MethodPost, "/api/products", map[string]any{"id": "prd-bad", "name": "Bad", "rate": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVouchers_RequestShapeRejectedBeforeService(t *testing.T) {
	router := newMemoryRouter(t)

	// GIVEN: no kind and a narration over the limit on one row
	body := journalBody("100", "100")
	delete(body, "kind")
	body["lines"] = []map[string]any{
		{"account_id": "acc-cash", "debit": "100", "narration": strings.Repeat("x", 501)},
		{"account_id": "acc-capital", "credit": "100"},
	}

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/vouchers", body)

	// THEN
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := fieldsOf(t, rec)
	assert.Equal(t, "required", fields["kind"])
	assert.Equal(t, "max", fields["lines[0].narration"])

	rec = do(t, router, http.MethodGet, "/api/vouchers", nil)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestProducts_MissingNameRejected(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodPost, "/api/products", map[string]any{"code": "P-9", "rate": "10"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := fieldsOf(t, rec)
	assert.Equal(t, "required", fields["id"])
	assert.Equal(t, "required", fields["name"])
}

func TestListPolicies_InKindOrder(t *testing.T) {
	router := newMemoryRouter(t)

	rec := do(t, router, http.MethodGet, "/api/policies", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]voucher.Policy](t, rec)
	require.Len(t, got, len(voucher.Kinds()))
	assert.Equal(t, voucher.KindJournal, got[0].Kind)
	assert.True(t, got[1].AutoBalance)
	assert.Equal(t, "acc-opening-diff", got[1].AdjustmentAccountID)
}

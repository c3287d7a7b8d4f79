/*
handlers.go - HTTP API handlers for the voucher ledger

PURPOSE:
  Exposes the voucher calculator, the voucher service and the ledger
  reports via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to domain logic.

ENDPOINTS:
  Calculator (stateless, nothing is saved):
    POST   /api/calculate/line-item    Derived amounts of one invoice row
    POST   /api/calculate/discount     Reconcile discount rate and amount
    POST   /api/calculate/ledger       Journal / opening balance totals
    POST   /api/calculate/invoice      Purchase / sales invoice totals
    POST   /api/calculate/payment      Payment / receipt totals

  Vouchers:
    GET    /api/vouchers?kind=         List vouchers
    POST   /api/vouchers               Create and post a voucher
    POST   /api/vouchers/validate      Dry run of a save
    GET    /api/vouchers/{id}          Get voucher
    PUT    /api/vouchers/{id}          Replace voucher (reverse + repost)
    DELETE /api/vouchers/{id}          Delete voucher (reverse)
    GET    /api/vouchers/{id}/postings Ledger legs of a voucher

  Reference data:
    GET    /api/accounts               Chart of accounts
    POST   /api/accounts               Save account
    GET    /api/accounts/{id}          Get account
    GET    /api/products               List products
    POST   /api/products               Save product
    GET    /api/policies               Per-kind calculation policies

  Reports (add format=xlsx for a spreadsheet):
    GET    /api/reports/ledger/{account}   Account statement (?from=&to=)
    GET    /api/reports/trial-balance      Trial balance (?as_of=)

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

  GET    /api/health                   Store reachability

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (Details lists every issue), invalid input
  - 404: Voucher, account or product not found
  - 409: Duplicate voucher, account code or posting
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/ledger"
	"github.com/warp/voucher-ledger/logging"
	"github.com/warp/voucher-ledger/report"
	"github.com/warp/voucher-ledger/validation"
	"github.com/warp/voucher-ledger/voucher"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Backend is the storage the handlers read reference data and postings
// from. Both store/memory and store/sqlite satisfy it.
type Backend interface {
	catalog.Catalog
	catalog.Writer
	ledger.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    Backend
	Vouchers *voucher.Service
	Logger   *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. The service must write to the same
// store.
func NewHandler(store Backend, vouchers *voucher.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		Store:    store,
		Vouchers: vouchers,
		Logger:   logger,
	}
}

func (h *Handler) calc() *voucher.Calculator {
	return h.Vouchers.Calculator()
}

// =============================================================================
// CALCULATOR HANDLERS
// =============================================================================

// CalculateLineItem returns the derived figures of one invoice row.
func (h *Handler) CalculateLineItem(w http.ResponseWriter, r *http.Request) {
	var req LineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	writeJSON(w, http.StatusOK, voucher.ComputeLineItem(req.toItem()))
}

// CalculateDiscount reconciles discount rate and amount against a subtotal.
func (h *Handler) CalculateDiscount(w http.ResponseWriter, r *http.Request) {
	var req CalculateDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	d := voucher.ReconcileDiscount(req.Subtotal.Decimal, req.Input.toInput(), req.Previous.toDiscount())
	writeJSON(w, http.StatusOK, d)
}

// CalculateLedger balances journal or opening balance lines. The returned
// lines include the adjustment line when the kind auto-balances.
func (h *Handler) CalculateLedger(w http.ResponseWriter, r *http.Request) {
	var req CalculateLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	kind, ok := kindOf(req.Kind, voucher.KindJournal, voucher.FamilyLedger)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be journal or opening_balance", nil)
		return
	}

	lines := h.calc().PrepareLines(kind, toLines(req.Lines))
	totals := h.calc().LedgerTotals(kind, lines)
	writeJSON(w, http.StatusOK, CalculateLedgerResponse{
		Lines:  lines,
		Totals: totals,
		Issues: toIssueDTOs(voucher.ValidateLedger(lines, totals)),
	})
}

// CalculateInvoice totals invoice rows with the kind's tax base.
func (h *Handler) CalculateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CalculateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	kind, ok := kindOf(req.Kind, voucher.KindPurchaseInvoice, voucher.FamilyInvoice)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be purchase_invoice or sales_invoice", nil)
		return
	}

	items := toItems(req.Items)
	amounts := make([]voucher.LineAmounts, len(items))
	for i, item := range items {
		amounts[i] = voucher.ComputeLineItem(item)
	}
	writeJSON(w, http.StatusOK, CalculateInvoiceResponse{
		Items:  amounts,
		Totals: h.calc().InvoiceTotals(kind, items, req.Discount.toInput(), req.Previous.toDiscount()),
		Issues: toIssueDTOs(voucher.ValidateInvoice(items)),
	})
}

// CalculatePayment totals payment or receipt rows.
func (h *Handler) CalculatePayment(w http.ResponseWriter, r *http.Request) {
	var req CalculatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	items := toPayments(req.Items)
	writeJSON(w, http.StatusOK, CalculatePaymentResponse{
		Totals: h.calc().PaymentTotals(items),
		Issues: toIssueDTOs(voucher.ValidatePayment(items)),
	})
}

// kindOf defaults a blank kind and checks it belongs to family.
func kindOf(raw string, fallback voucher.Kind, family voucher.Family) (voucher.Kind, bool) {
	kind := voucher.Kind(strings.TrimSpace(raw))
	if kind == "" {
		kind = fallback
	}
	return kind, kind.IsValid() && kind.Family() == family
}

// =============================================================================
// VOUCHER HANDLERS
// =============================================================================

// ListVouchers returns vouchers, optionally filtered by ?kind=.
func (h *Handler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	kind := voucher.Kind(r.URL.Query().Get("kind"))
	vouchers, err := h.Vouchers.List(r.Context(), kind)
	if err != nil {
		writeServiceError(w, "Failed to list vouchers", err)
		return
	}
	if vouchers == nil {
		vouchers = []voucher.Voucher{}
	}
	writeJSON(w, http.StatusOK, vouchers)
}

// CreateVoucher validates, saves and posts a voucher.
func (h *Handler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req VoucherRequest
	if err := decodeRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	v, err := h.Vouchers.Create(r.Context(), req.toVoucher())
	if err != nil {
		writeServiceError(w, "Failed to save voucher", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// VoucherPreview is the result of a dry run.
type VoucherPreview struct {
	Voucher voucher.Voucher `json:"voucher"`
	Valid   bool            `json:"valid"`
	Issues  []IssueDTO      `json:"issues"`
}

// ValidateVoucher runs everything a save would except the write. Validation
// problems are part of a 200 response, not an error.
func (h *Handler) ValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req VoucherRequest
	if err := decodeRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	v, err := h.Vouchers.Prepare(r.Context(), req.toVoucher())
	verrs, isValidation := validationIssues(err)
	if err != nil && !isValidation {
		writeServiceError(w, "Failed to validate voucher", err)
		return
	}
	writeJSON(w, http.StatusOK, VoucherPreview{
		Voucher: v,
		Valid:   err == nil,
		Issues:  toIssueDTOs(verrs),
	})
}

// GetVoucher returns one voucher.
func (h *Handler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.Vouchers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Voucher not found", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UpdateVoucher replaces a voucher's content. Its old postings are reversed.
func (h *Handler) UpdateVoucher(w http.ResponseWriter, r *http.Request) {
	var req VoucherRequest
	if err := decodeRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	v, err := h.Vouchers.Update(r.Context(), chi.URLParam(r, "id"), req.toVoucher())
	if err != nil {
		writeServiceError(w, "Failed to update voucher", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteVoucher reverses a voucher's postings and removes it.
func (h *Handler) DeleteVoucher(w http.ResponseWriter, r *http.Request) {
	if err := h.Vouchers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to delete voucher", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVoucherPostings lists every posting a voucher produced, reversals
// included.
func (h *Handler) GetVoucherPostings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.Vouchers.Get(ctx, id); err != nil {
		writeServiceError(w, "Voucher not found", err)
		return
	}

	postings, err := h.Store.VoucherPostings(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load postings", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostingDTOs(postings))
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListAccounts returns the chart of accounts ordered by code.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.Accounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}
	if accounts == nil {
		accounts = []catalog.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount returns one account by ID.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Store.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "Account not found", err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// CreateAccount saves an account. An existing ID is replaced.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var acc catalog.Account
	if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := acc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account", err)
		return
	}
	if err := h.Store.SaveAccount(r.Context(), acc); err != nil {
		writeServiceError(w, "Failed to save account", err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// ListProducts returns products ordered by code.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.Products(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// CreateProduct saves a product. An existing ID is replaced.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeRequest(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	p := req.toProduct()
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product", err)
		return
	}
	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		writeServiceError(w, "Failed to save product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListPolicies returns the calculation policy of every kind.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := h.calc().Policies()
	out := make([]voucher.Policy, 0, len(policies))
	for _, k := range voucher.Kinds() {
		out = append(out, policies[k])
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetLedgerReport returns the statement of one account. The path accepts an
// account ID or code.
func (h *Handler) GetLedgerReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acc, err := h.lookupAccount(ctx, chi.URLParam(r, "account"))
	if err != nil {
		writeServiceError(w, "Account not found", err)
		return
	}

	q := r.URL.Query()
	from, err := parseDateParam(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := parseDateParam(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		writeError(w, http.StatusBadRequest, "from must not be after to", nil)
		return
	}

	st, err := report.BuildStatement(ctx, h.Store, acc, ledger.Period{From: from, To: to})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build statement", err)
		return
	}

	switch q.Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, st)
	case "xlsx":
		writeXLSX(w, fmt.Sprintf("ledger-%s.xlsx", acc.Code), func(buf *bytes.Buffer) error {
			return report.WriteStatementXLSX(buf, st)
		})
	default:
		writeError(w, http.StatusBadRequest, "format must be json or xlsx", nil)
	}
}

// GetTrialBalance returns every non-zero account balance at ?as_of= (all
// postings when omitted).
func (h *Handler) GetTrialBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	asOf, err := parseDateParam(q.Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	accounts, err := h.Store.Accounts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}
	tb, err := report.BuildTrialBalance(ctx, h.Store, accounts, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build trial balance", err)
		return
	}

	switch q.Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, tb)
	case "xlsx":
		writeXLSX(w, "trial-balance.xlsx", func(buf *bytes.Buffer) error {
			return report.WriteTrialBalanceXLSX(buf, tb)
		})
	default:
		writeError(w, http.StatusBadRequest, "format must be json or xlsx", nil)
	}
}

func (h *Handler) lookupAccount(ctx context.Context, idOrCode string) (catalog.Account, error) {
	acc, err := h.Store.Account(ctx, idOrCode)
	if catalog.IsNotFound(err) {
		return h.Store.AccountByCode(ctx, idOrCode)
	}
	return acc, err
}

func parseDateParam(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store answers. Stores without Ping are always
// healthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

var validate = validation.New("json")

// decodeRequest decodes a JSON body into dst and checks its validate tags.
func decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// writeRequestError reports a body that did not decode or failed its tags.
// Tag failures list every field in Details.
func writeRequestError(w http.ResponseWriter, err error) {
	var fields validation.Errors
	if errors.As(err, &fields) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "invalid_request",
			Details: fields,
		})
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body", err)
}

// writeServiceError maps domain errors to a status. Validation failures
// carry every issue in Details.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	if verrs, ok := validationIssues(err); ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   message,
			Code:    "validation_failed",
			Details: toIssueDTOs(verrs),
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal"
	switch {
	case voucher.IsNotFound(err), catalog.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, voucher.ErrDuplicateVoucher),
		errors.Is(err, catalog.ErrDuplicateCode),
		errors.Is(err, ledger.ErrDuplicateIdempotencyKey):
		status, code = http.StatusConflict, "conflict"
	case voucher.IsClientError(err), catalog.IsClientError(err):
		status, code = http.StatusBadRequest, "bad_request"
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

func validationIssues(err error) (voucher.ValidationErrors, bool) {
	var verrs voucher.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	var verr *voucher.ValidationError
	if errors.As(err, &verr) {
		return voucher.ValidationErrors{verr}, true
	}
	return nil, false
}

// writeXLSX renders into memory first so a failure can still be reported
// as JSON.
func writeXLSX(w http.ResponseWriter, filename string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render spreadsheet", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

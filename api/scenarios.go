/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built books that populate the store with realistic data
	for demos. Every scenario starts from the default chart of accounts and
	product list, then saves vouchers through the voucher service so the
	ledger is posted exactly as it would be from the API.

AVAILABLE SCENARIOS:

	empty-books:      Default chart and products, no vouchers
	opening-balances: One opening balance voucher, auto-balanced
	trading-month:    Opening balances, purchase, sale, payment, receipt, rent

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "trading-month"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: handler context
  - catalog/defaults.go: default chart and products
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/voucher"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty-books",
		Name:        "Empty Books",
		Description: "Default chart of accounts and products, no vouchers",
		Category:    "setup",
	},
	{
		ID:          "opening-balances",
		Name:        "Opening Balances",
		Description: "Cash, bank and capital with the difference auto-balanced",
		Category:    "ledger",
	},
	{
		ID:          "trading-month",
		Name:        "Trading Month",
		Description: "A month of purchases, sales, payments, receipts and rent",
		Category:    "trading",
	},
}

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "empty-books":
		load = func(context.Context) error { return nil }
	case "opening-balances":
		load = h.loadOpeningBalancesScenario
	case "trading-month":
		load = h.loadTradingMonthScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.resetAndSeed(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears all vouchers and postings and restores the default
// chart and products.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.resetAndSeed(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) resetAndSeed(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	return catalog.SeedDefaults(ctx, h.Store)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func scenarioDate(day int) time.Time {
	return time.Date(2025, time.April, day, 0, 0, 0, 0, time.UTC)
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// loadOpeningBalancesScenario posts cash 5,000 and bank 20,000 against
// capital 20,000; the 5,000 gap lands on the adjustment account.
func (h *Handler) loadOpeningBalancesScenario(ctx context.Context) error {
	_, err := h.Vouchers.Create(ctx, voucher.Voucher{
		Kind: voucher.KindOpeningBalance,
		Header: voucher.Header{
			Date:      scenarioDate(1),
			Narration: "Balances brought forward",
		},
		Lines: []voucher.Line{
			{AccountID: "acc-cash", Debit: amount(5000)},
			{AccountID: "acc-bank", Debit: amount(20000)},
			{AccountID: "acc-capital", Credit: amount(20000)},
		},
	})
	return err
}

func (h *Handler) loadTradingMonthScenario(ctx context.Context) error {
	if err := h.loadOpeningBalancesScenario(ctx); err != nil {
		return err
	}

	vouchers := []voucher.Voucher{
		{
			Kind: voucher.KindPurchaseInvoice,
			Header: voucher.Header{
				Date:           scenarioDate(3),
				Narration:      "Stock purchase",
				PartyAccountID: "acc-payables",
			},
			Items: []voucher.LineItem{
				{ProductID: "prd-rice", InitialQuantity: amount(50), Rate: amount(100), TaxRatePercent: amount(18)},
				{ProductID: "prd-sugar", InitialQuantity: amount(40), Count: amount(4), DeductionPerUnit: amount(1), Rate: amount(60), TaxRatePercent: amount(5)},
			},
			DiscountInput: voucher.DiscountInput{Rate: amount(5)},
		},
		{
			Kind: voucher.KindSalesInvoice,
			Header: voucher.Header{
				Date:           scenarioDate(10),
				Narration:      "Counter sale",
				PartyAccountID: "acc-receivables",
			},
			Items: []voucher.LineItem{
				{ProductID: "prd-rice", InitialQuantity: amount(20), Rate: amount(120), TaxRatePercent: amount(18)},
				{ProductID: "prd-salt", InitialQuantity: amount(30), Rate: amount(25)},
			},
			DiscountInput: voucher.DiscountInput{Amount: amount(150)},
		},
		{
			Kind: voucher.KindPayment,
			Header: voucher.Header{
				Date:          scenarioDate(15),
				Narration:     "Supplier settlement",
				CashAccountID: "acc-bank",
			},
			Payments: []voucher.PaymentItem{
				{LedgerID: "acc-payables", Amount: amount(4000), Remarks: "Part payment"},
			},
		},
		{
			Kind: voucher.KindReceipt,
			Header: voucher.Header{
				Date:          scenarioDate(20),
				Narration:     "Customer collection",
				CashAccountID: "acc-cash",
			},
			Payments: []voucher.PaymentItem{
				{LedgerID: "acc-receivables", Amount: amount(2000)},
			},
		},
		{
			Kind: voucher.KindJournal,
			Header: voucher.Header{
				Date:      scenarioDate(30),
				Narration: "April rent",
			},
			Lines: []voucher.Line{
				{AccountID: "acc-rent", Debit: amount(1500)},
				{AccountID: "acc-bank", Credit: amount(1500)},
			},
		},
	}

	for _, v := range vouchers {
		if _, err := h.Vouchers.Create(ctx, v); err != nil {
			return fmt.Errorf("%s: %w", v.Kind, err)
		}
	}
	return nil
}

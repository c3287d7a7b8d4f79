package voucher_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/voucher-ledger/voucher"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got.String())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func debit(account, amount string) voucher.Line {
	return voucher.Line{AccountID: account, Debit: dec(amount)}
}

func credit(account, amount string) voucher.Line {
	return voucher.Line{AccountID: account, Credit: dec(amount)}
}

func openingPolicies() map[voucher.Kind]voucher.Policy {
	return map[voucher.Kind]voucher.Policy{
		voucher.KindOpeningBalance: {
			SignedDifference:      true,
			AutoBalance:           true,
			AdjustmentAccountID:   "acc-opening-diff",
			AdjustmentAccountName: "Opening Balance Difference",
		},
	}
}

func scenarioCItems() []voucher.LineItem {
	return []voucher.LineItem{
		{ProductID: "prd-rice", InitialQuantity: dec("7"), Rate: dec("100"), TaxRatePercent: dec("18")},
		{ProductID: "prd-salt", InitialQuantity: dec("3"), Rate: dec("100"), TaxRatePercent: dec("0")},
	}
}

// =============================================================================
// LINE ITEM
// =============================================================================

func TestComputeLineItem_DeductsCountTimesPerUnit(t *testing.T) {
	// GIVEN: 10 units with 2 deductions of 1.5 each, rate 100 and 18% tax
	item := voucher.LineItem{
		InitialQuantity:  dec("10"),
		Count:            dec("2"),
		DeductionPerUnit: dec("1.5"),
		Rate:             dec("100"),
		TaxRatePercent:   dec("18"),
	}

	// WHEN
	got := voucher.ComputeLineItem(item)

	// THEN
	assertDec(t, "7", got.FinalQuantity)
	assertDec(t, "700", got.Amount)
	assertDec(t, "126", got.TaxAmount)
	assertDec(t, "826", got.Total)
}

func TestComputeLineItem_NegativeQuantityIsNotClamped(t *testing.T) {
	item := voucher.LineItem{InitialQuantity: dec("1"), Count: dec("2"), DeductionPerUnit: dec("1"), Rate: dec("10")}

	got := voucher.ComputeLineItem(item)

	assertDec(t, "-1", got.FinalQuantity)
	assertDec(t, "-10", got.Amount)
}

// =============================================================================
// DISCOUNT
// =============================================================================

func TestReconcileDiscount_RateAmountRoundTrip(t *testing.T) {
	subtotal := dec("1000")

	fromRate := voucher.ReconcileDiscount(subtotal, voucher.DiscountInput{Rate: dec("10")}, voucher.Discount{})
	assertDec(t, "100", fromRate.Amount)

	fromAmount := voucher.ReconcileDiscount(subtotal, voucher.DiscountInput{Amount: fromRate.Amount}, voucher.Discount{})
	assertDec(t, "10", fromAmount.Rate)
	assertDec(t, "100", fromAmount.Amount)
}

func TestReconcileDiscount_RateWinsWhenBothSupplied(t *testing.T) {
	got := voucher.ReconcileDiscount(dec("500"), voucher.DiscountInput{Rate: dec("5"), Amount: dec("99")}, voucher.Discount{})

	assertDec(t, "5", got.Rate)
	assertDec(t, "25", got.Amount)
}

func TestReconcileDiscount_AmountOnZeroSubtotal(t *testing.T) {
	got := voucher.ReconcileDiscount(decimal.Zero, voucher.DiscountInput{Amount: dec("50")}, voucher.Discount{})

	assertDec(t, "0", got.Rate)
	assertDec(t, "50", got.Amount)
}

func TestReconcileDiscount_NoInputKeepsPrevious(t *testing.T) {
	previous := voucher.Discount{Rate: dec("12.5"), Amount: dec("40.004")}

	got := voucher.ReconcileDiscount(dec("320"), voucher.DiscountInput{}, previous)

	assertDec(t, "12.5", got.Rate)
	assertDec(t, "40", got.Amount)
}

// =============================================================================
// BALANCE
// =============================================================================

func TestBalance_SymmetricAndOrderIndependent(t *testing.T) {
	lines := []voucher.Line{
		debit("a", "100.10"),
		credit("b", "40.05"),
		debit("c", "0.333"),
		credit("d", "60"),
		debit("e", "12.5"),
	}
	reversed := make([]voucher.Line, len(lines))
	for i, l := range lines {
		reversed[len(lines)-1-i] = l
	}

	signed := voucher.Balance(lines, true)
	again := voucher.Balance(reversed, true)

	net := decimal.Zero
	for _, l := range lines {
		net = net.Add(l.Debit.Sub(l.Credit))
	}
	assert.True(t, signed.TotalDebit.Sub(signed.TotalCredit).Equal(signed.Difference))
	assert.True(t, signed.Difference.Sub(net).Abs().LessThan(dec("0.01")))
	assert.True(t, signed.TotalDebit.Equal(again.TotalDebit))
	assert.True(t, signed.TotalCredit.Equal(again.TotalCredit))
	assert.True(t, signed.Difference.Equal(again.Difference))
}

func TestBalance_SignedVersusAbsolute(t *testing.T) {
	lines := []voucher.Line{debit("a", "300"), credit("b", "500")}

	assertDec(t, "-200", voucher.Balance(lines, true).Difference)
	assertDec(t, "200", voucher.Balance(lines, false).Difference)
	assert.False(t, voucher.Balance(lines, true).Balanced)
}

func TestBalance_SubCentDifferenceIsBalanced(t *testing.T) {
	lines := []voucher.Line{debit("a", "100.004"), credit("b", "100")}

	got := voucher.Balance(lines, false)

	assert.True(t, got.Balanced)
}

func TestAutoBalance_ConvergesToZero(t *testing.T) {
	adj := voucher.Adjustment{AccountID: "acc-opening-diff", AccountName: "Opening Balance Difference"}
	cases := map[string][]voucher.Line{
		"debit heavy":      {debit("a", "1000.005")},
		"credit heavy":     {credit("a", "250"), debit("b", "100.10")},
		"thirds":           {debit("a", "0.333"), debit("b", "0.333"), debit("c", "0.333"), credit("d", "0.5")},
		"already balanced": {debit("a", "10"), credit("b", "10")},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			out := voucher.AutoBalance(lines, adj)
			totals := voucher.Balance(out, true)
			assert.True(t, totals.Difference.IsZero(), "difference %s", totals.Difference)
			assert.True(t, totals.Balanced)
		})
	}
}

func TestAutoBalance_ReplacesStaleSystemLine(t *testing.T) {
	adj := voucher.Adjustment{AccountID: "acc-opening-diff"}
	first := voucher.AutoBalance([]voucher.Line{debit("a", "100")}, adj)
	require.Len(t, first, 2)

	// The user edits the debit; the old system line must not survive.
	first[0].Debit = dec("80")
	second := voucher.AutoBalance(first, adj)

	require.Len(t, second, 2)
	assert.True(t, second[1].System)
	assertDec(t, "80", second[1].Credit)
	assert.Equal(t, voucher.AdjustmentNarration, second[1].Narration)
}

func TestAutoBalance_DisabledWithoutAccount(t *testing.T) {
	out := voucher.AutoBalance([]voucher.Line{debit("a", "100")}, voucher.Adjustment{})

	assert.Len(t, out, 1)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarioA_BalancedJournal(t *testing.T) {
	calc := voucher.NewCalculator(nil)
	v := voucher.Voucher{
		Kind:   voucher.KindJournal,
		Header: voucher.Header{Date: day(2025, 1, 10)},
		Lines:  []voucher.Line{debit("acc-cash", "500"), credit("acc-capital", "500")},
	}

	computed := calc.Compute(v)

	assertDec(t, "0", computed.Totals.Ledger.Difference)
	assert.True(t, computed.Totals.Ledger.Balanced)
	assert.NoError(t, calc.Validate(v))
}

func TestScenarioB_UnbalancedJournalCitesDifference(t *testing.T) {
	calc := voucher.NewCalculator(nil)
	v := voucher.Voucher{
		Kind:   voucher.KindJournal,
		Header: voucher.Header{Date: day(2025, 1, 10)},
		Lines:  []voucher.Line{debit("acc-cash", "500"), credit("acc-capital", "300")},
	}

	computed := calc.Compute(v)
	err := calc.Validate(v)

	assertDec(t, "200", computed.Totals.Ledger.Difference)
	assert.False(t, computed.Totals.Ledger.Balanced)
	require.Error(t, err)
	assert.True(t, errors.Is(err, voucher.ErrUnbalanced))
	assert.Contains(t, err.Error(), "200.00")

	var verrs voucher.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "unbalanced", verrs[0].Code)
	assertDec(t, "200", verrs[0].Difference)
}

func TestScenarioC_InvoiceTotalsPreDiscount(t *testing.T) {
	calc := voucher.NewCalculator(nil)

	got := calc.InvoiceTotals(voucher.KindPurchaseInvoice, scenarioCItems(), voucher.DiscountInput{Rate: dec("10")}, voucher.Discount{})

	assertDec(t, "1000", got.Subtotal)
	assertDec(t, "100", got.Discount)
	assertDec(t, "10", got.DiscountRate)
	assertDec(t, "126", got.Tax)
	assertDec(t, "1026", got.GrandTotal)
}

func TestScenarioC_InvoiceTotalsPostDiscount(t *testing.T) {
	calc := voucher.NewCalculator(nil)

	// The 100 discount is split 70/30; the taxable part of the first row is 630.
	got := calc.InvoiceTotals(voucher.KindSalesInvoice, scenarioCItems(), voucher.DiscountInput{Rate: dec("10")}, voucher.Discount{})

	assertDec(t, "1000", got.Subtotal)
	assertDec(t, "100", got.Discount)
	assertDec(t, "113.4", got.Tax)
	assertDec(t, "1013.4", got.GrandTotal)
}

func TestScenarioD_EmptyVoucherBlockedByLineRule(t *testing.T) {
	calc := voucher.NewCalculator(nil)
	for _, kind := range voucher.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			v := voucher.Voucher{
				Kind:   kind,
				Header: voucher.Header{Date: day(2025, 1, 10), PartyAccountID: "acc-x", CashAccountID: "acc-cash"},
			}

			computed := calc.Compute(v)
			err := calc.Validate(v)

			assert.True(t, computed.Totals.Amount(kind.Family()).IsZero())
			assert.True(t, computed.Totals.Ledger.Difference.IsZero())
			require.Error(t, err)
			assert.True(t, errors.Is(err, voucher.ErrEmptyVoucher))
			assert.False(t, errors.Is(err, voucher.ErrUnbalanced))
		})
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidateLedger_LineRules(t *testing.T) {
	lines := []voucher.Line{
		{AccountID: "", Debit: dec("10")},
		{AccountID: "acc-b"},
		{AccountID: "acc-c", Debit: dec("5"), Credit: dec("5")},
		{AccountID: "acc-adj", Credit: dec("5"), System: true},
	}

	errs := voucher.ValidateLedger(lines, voucher.Balance(lines, false))

	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{"missing_account", "zero_value", "double_sided", "unbalanced"}, codes)
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, 2, errs[1].Line)
	assert.Equal(t, 3, errs[2].Line)
}

func TestValidateInvoice_RejectsBadRows(t *testing.T) {
	items := []voucher.LineItem{
		{ProductID: "p1", InitialQuantity: dec("2"), Count: dec("2"), DeductionPerUnit: dec("1"), Rate: dec("10")},
		{ProductID: "p2", InitialQuantity: dec("1"), Rate: dec("0")},
		{InitialQuantity: dec("1"), Rate: dec("5")},
	}

	errs := voucher.ValidateInvoice(items)

	require.Len(t, errs, 3)
	assert.True(t, errors.Is(errs, voucher.ErrInvalidItem))
	assert.True(t, errors.Is(errs, voucher.ErrMissingProduct))
	assert.True(t, strings.Contains(errs[0].Message, "final quantity"))
}

func TestValidateLedger_RejectsNegativeSides(t *testing.T) {
	// GIVEN: a negative debit that nets the column totals to balanced
	lines := []voucher.Line{
		{AccountID: "acc-cash", Debit: dec("-50"), Credit: dec("100")},
		{AccountID: "acc-capital", Debit: dec("150")},
	}

	// WHEN
	errs := voucher.ValidateLedger(lines, voucher.Balance(lines, false))

	// THEN
	require.Len(t, errs, 1)
	assert.Equal(t, "negative_amount", errs[0].Code)
	assert.Equal(t, 1, errs[0].Line)
	assert.True(t, errors.Is(errs, voucher.ErrNegativeAmount))
}

func TestValidateInvoice_NonPositiveTotalIsZeroValue(t *testing.T) {
	// GIVEN: positive quantity and rate, tax wiping out the amount
	items := []voucher.LineItem{
		{ProductID: "p1", InitialQuantity: dec("2"), Rate: dec("10"), TaxRatePercent: dec("-100")},
		{ProductID: "p2", InitialQuantity: dec("1"), Rate: dec("10"), TaxRatePercent: dec("-150")},
		{ProductID: "p3", InitialQuantity: dec("1"), Rate: dec("10"), TaxRatePercent: dec("-50")},
	}

	errs := voucher.ValidateInvoice(items)

	require.Len(t, errs, 2)
	for i, e := range errs {
		assert.Equal(t, "zero_value", e.Code)
		assert.Equal(t, i+1, e.Line)
		assert.True(t, errors.Is(e, voucher.ErrZeroValueLine))
	}
	assert.Contains(t, errs[1].Message, "-5.00")
}

func TestValidatePayment_RejectsNonPositiveAmounts(t *testing.T) {
	errs := voucher.ValidatePayment([]voucher.PaymentItem{
		{LedgerID: "acc-rent", Amount: dec("0")},
		{LedgerID: "", Amount: dec("10")},
	})

	require.Len(t, errs, 2)
	assert.True(t, errors.Is(errs[0], voucher.ErrZeroValueLine))
	assert.True(t, errors.Is(errs[1], voucher.ErrMissingAccount))
}

func TestCalculatorValidate_HeaderRules(t *testing.T) {
	calc := voucher.NewCalculator(nil)
	v := voucher.Voucher{
		Kind:  voucher.KindSalesInvoice,
		Items: scenarioCItems(),
	}

	err := calc.Validate(v)

	require.Error(t, err)
	assert.True(t, errors.Is(err, voucher.ErrMissingDate))
	assert.True(t, errors.Is(err, voucher.ErrMissingParty))
	assert.True(t, voucher.IsClientError(err))
}

func TestCalculatorValidate_UnknownKind(t *testing.T) {
	err := voucher.NewCalculator(nil).Validate(voucher.Voucher{Kind: "credit_note"})

	assert.True(t, errors.Is(err, voucher.ErrUnknownKind))
}

func TestCalculator_OpeningBalanceAutoBalances(t *testing.T) {
	calc := voucher.NewCalculator(openingPolicies())
	v := voucher.Voucher{
		Kind:   voucher.KindOpeningBalance,
		Header: voucher.Header{Date: day(2025, 1, 1)},
		Lines:  []voucher.Line{debit("acc-cash", "750"), credit("acc-payables", "200")},
	}

	computed := calc.Compute(v)

	require.Len(t, computed.Lines, 3)
	adj := computed.Lines[2]
	assert.True(t, adj.System)
	assert.Equal(t, "acc-opening-diff", adj.AccountID)
	assertDec(t, "550", adj.Credit)
	assert.True(t, computed.Totals.Ledger.Difference.IsZero())
	assert.NoError(t, calc.Validate(v))
}

func TestCalculator_PaymentTotals(t *testing.T) {
	got := voucher.NewCalculator(nil).PaymentTotals([]voucher.PaymentItem{
		{LedgerID: "acc-rent", Amount: dec("1200.255")},
		{LedgerID: "acc-payables", Amount: dec("300")},
	})

	assertDec(t, "1500.26", got.Total)
}

func TestNewCalculator_OverridesKeepKind(t *testing.T) {
	calc := voucher.NewCalculator(map[voucher.Kind]voucher.Policy{
		voucher.KindSalesInvoice: {TaxBase: voucher.TaxBasePreDiscount},
	})

	p := calc.Policy(voucher.KindSalesInvoice)
	assert.Equal(t, voucher.KindSalesInvoice, p.Kind)
	assert.Equal(t, voucher.TaxBasePreDiscount, p.TaxBase)
	assert.Equal(t, voucher.TaxBasePreDiscount, calc.Policy(voucher.KindPurchaseInvoice).TaxBase)
}

package voucher_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/voucher-ledger/voucher"
)

func TestForm_JournalRecomputesOnEveryEdit(t *testing.T) {
	// GIVEN: an empty journal form
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindJournal)
	assert.True(t, f.Totals().Ledger.Balanced)

	// WHEN: one side is entered
	i := f.AddLine(voucher.Line{AccountID: "acc-cash"})
	require.NoError(t, f.SetDebit(i, dec("500")))

	// THEN: the form is out of balance by 500
	assertDec(t, "500", f.Totals().Ledger.Difference)
	assert.False(t, f.Totals().Ledger.Balanced)

	// WHEN: the other side is entered
	j := f.AddLine(voucher.Line{AccountID: "acc-capital"})
	require.NoError(t, f.SetCredit(j, dec("500")))

	// THEN
	assert.True(t, f.Totals().Ledger.Balanced)
	assert.NoError(t, f.Validate())
}

func TestForm_SettingOneSideClearsTheOther(t *testing.T) {
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindJournal)
	i := f.AddLine(voucher.Line{AccountID: "acc-cash", Debit: dec("100")})

	require.NoError(t, f.SetCredit(i, dec("40")))

	line := f.Lines()[i]
	assert.True(t, line.Debit.IsZero())
	assertDec(t, "40", line.Credit)
}

func TestForm_AddLineDebitWinsWhenBothSet(t *testing.T) {
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindJournal)

	i := f.AddLine(voucher.Line{AccountID: "acc-cash", Debit: dec("10"), Credit: dec("20")})

	line := f.Lines()[i]
	assertDec(t, "10", line.Debit)
	assert.True(t, line.Credit.IsZero())
}

func TestForm_RemoveLineOutOfRange(t *testing.T) {
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindJournal)
	f.AddLine(voucher.Line{AccountID: "acc-cash", Debit: dec("10")})

	err := f.RemoveLine(3)

	assert.True(t, errors.Is(err, voucher.ErrLineIndex))
	assert.Len(t, f.Lines(), 1)
}

func TestForm_OpeningBalanceSystemLineFollowsEdits(t *testing.T) {
	// GIVEN: an opening balance form with auto-balance
	f := voucher.NewForm(voucher.NewCalculator(openingPolicies()), voucher.KindOpeningBalance)
	f.AddLine(voucher.Line{AccountID: "acc-cash", Debit: dec("1000")})

	// THEN: a system line absorbs the difference
	lines := f.Lines()
	require.Len(t, lines, 2)
	assert.True(t, lines[1].System)
	assertDec(t, "1000", lines[1].Credit)
	assert.True(t, f.Totals().Ledger.Difference.IsZero())

	// WHEN: a user credit line is added, indices still refer to user lines
	i := f.AddLine(voucher.Line{AccountID: "acc-payables", Credit: dec("400")})
	assert.Equal(t, 1, i)
	lines = f.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "acc-payables", lines[1].AccountID)
	assertDec(t, "600", lines[2].Credit)

	// WHEN: the user balances it themselves, the system line disappears
	require.NoError(t, f.SetCredit(1, dec("1000")))
	assert.Len(t, f.Lines(), 2)
	assert.NoError(t, f.Validate())
}

func TestForm_InvoiceDiscountTracksSubtotal(t *testing.T) {
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindPurchaseInvoice)
	items := scenarioCItems()

	// GIVEN: a 10% discount set before any rows exist
	f.SetDiscountRate(dec("10"))
	assert.True(t, f.Totals().Invoice.Discount.IsZero())

	// WHEN: rows are added, the amount follows the subtotal
	f.AddItem(items[0])
	assertDec(t, "70", f.Totals().Invoice.Discount)
	f.AddItem(items[1])

	// THEN
	totals := f.Totals().Invoice
	assertDec(t, "1000", totals.Subtotal)
	assertDec(t, "100", totals.Discount)
	assertDec(t, "1026", totals.GrandTotal)

	amounts := f.ItemAmounts()
	require.Len(t, amounts, 2)
	assertDec(t, "826", amounts[0].Total)
}

func TestForm_DiscountAmountDrivesRate(t *testing.T) {
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindPurchaseInvoice)
	for _, item := range scenarioCItems() {
		f.AddItem(item)
	}

	f.SetDiscountAmount(dec("250"))
	assertDec(t, "25", f.Discount().Rate)

	// Removing a row keeps the amount fixed and moves the rate.
	require.NoError(t, f.RemoveItem(1))
	assertDec(t, "250", f.Discount().Amount)
	assertDec(t, "35.71", f.Discount().Rate)

	// Clearing the amount clears the discount.
	f.SetDiscountAmount(dec("0"))
	assert.True(t, f.Discount().Amount.IsZero())
	assert.True(t, f.Discount().Rate.IsZero())
}

func TestForm_PaymentTotals(t *testing.T) {
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindPayment)
	f.AddPayment(voucher.PaymentItem{LedgerID: "acc-rent", Amount: dec("1200")})
	f.AddPayment(voucher.PaymentItem{LedgerID: "acc-payables", Amount: dec("300")})

	assertDec(t, "1500", f.Totals().Payment.Total)

	require.NoError(t, f.UpdatePayment(1, voucher.PaymentItem{LedgerID: "acc-payables", Amount: dec("50")}))
	assertDec(t, "1250", f.Totals().Payment.Total)

	assert.True(t, errors.Is(f.RemovePayment(-1), voucher.ErrLineIndex))
}

func TestForm_LoadSnapshotRoundTrip(t *testing.T) {
	calc := voucher.NewCalculator(openingPolicies())
	saved := calc.Compute(voucher.Voucher{
		ID:       "v-1",
		Kind:     voucher.KindOpeningBalance,
		Sequence: 3,
		Revision: 2,
		Header:   voucher.Header{Number: "OB-0003", Date: day(2025, 1, 1)},
		Lines:    []voucher.Line{debit("acc-cash", "900")},
	})

	f := voucher.NewForm(calc, voucher.KindJournal)
	f.Load(saved)
	snap := f.Snapshot()

	assert.Equal(t, voucher.KindOpeningBalance, f.Kind())
	assert.Equal(t, "v-1", snap.ID)
	assert.Equal(t, 2, snap.Revision)
	assert.Equal(t, "OB-0003", snap.Number)
	require.Len(t, snap.Lines, 2)
	assert.True(t, snap.Lines[1].System)
	assert.True(t, snap.Totals.Ledger.Difference.IsZero())
}

func TestForm_ResetClearsEverything(t *testing.T) {
	f := voucher.NewForm(voucher.NewCalculator(nil), voucher.KindSalesInvoice)
	f.SetHeader(voucher.Header{Narration: "draft"})
	f.AddItem(scenarioCItems()[0])
	f.SetDiscountRate(dec("5"))

	f.Reset()

	assert.Empty(t, f.Items())
	assert.Empty(t, f.Header().Narration)
	assert.True(t, f.Discount().Rate.IsZero())
	assert.True(t, f.Totals().Invoice.GrandTotal.IsZero())
	assert.Equal(t, voucher.KindSalesInvoice, f.Kind())
}

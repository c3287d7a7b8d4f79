/*
form.go - Per-form voucher state

PURPOSE:
  A Form is the state container for one open voucher editor. It owns the
  row collection, applies add/update/remove edits, and after every edit
  recomputes all totals from scratch through the Calculator. Nothing is
  patched incrementally, so totals cannot drift from the rows.

OWNERSHIP:
  One Form per editor instance. It is not safe for concurrent use; the
  owner serialises edits. Reset discards everything (after save, cancel or
  navigating to another voucher).

SYSTEM LINES:
  For auto-balancing kinds the adjustment line is not stored with the
  user's lines. It is regenerated after every edit and appended by Lines(),
  so row indices passed to UpdateLine/RemoveLine always refer to user lines.

EXAMPLE:
  f := voucher.NewForm(calc, voucher.KindJournal)
  f.AddLine(voucher.Line{AccountID: "acc-cash"})
  f.SetDebit(0, decimal.NewFromInt(500))
  f.AddLine(voucher.Line{AccountID: "acc-capital"})
  f.SetCredit(1, decimal.NewFromInt(500))
  f.Totals().Ledger.Balanced // true
*/
package voucher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Form is the editing state of one voucher. Every edit recomputes the
// totals. A Form is owned by one caller and is not safe for concurrent use.
type Form struct {
	calc *Calculator
	kind Kind

	id       string
	sequence int
	revision int
	header   Header

	lines    []Line
	items    []LineItem
	payments []PaymentItem

	discountInput DiscountInput
	discount      Discount

	system []Line
	totals Totals
}

// NewForm opens an empty editor for kind.
func NewForm(calc *Calculator, kind Kind) *Form {
	f := &Form{calc: calc, kind: kind}
	f.recompute()
	return f
}

func (f *Form) Kind() Kind         { return f.kind }
func (f *Form) Header() Header     { return f.header }
func (f *Form) Totals() Totals     { return f.totals }
func (f *Form) Discount() Discount { return f.discount }

func (f *Form) SetHeader(h Header) { f.header = h }

// Reset discards all rows, the header and the discount.
func (f *Form) Reset() {
	*f = Form{calc: f.calc, kind: f.kind}
	f.recompute()
}

// Load replaces the form's content with a saved voucher.
func (f *Form) Load(v Voucher) {
	f.kind = v.Kind
	f.id = v.ID
	f.sequence = v.Sequence
	f.revision = v.Revision
	f.header = v.Header
	f.lines = StripSystem(v.Lines)
	f.items = append([]LineItem(nil), v.Items...)
	f.payments = append([]PaymentItem(nil), v.Payments...)
	f.discountInput = v.DiscountInput
	f.discount = Discount{Rate: v.Totals.Invoice.DiscountRate, Amount: v.Totals.Invoice.Discount}
	f.recompute()
}

// Snapshot returns the voucher as it would be saved: user lines plus the
// current system line, and fresh totals.
func (f *Form) Snapshot() Voucher {
	return Voucher{
		ID:            f.id,
		Kind:          f.kind,
		Sequence:      f.sequence,
		Revision:      f.revision,
		Header:        f.header,
		Lines:         f.Lines(),
		Items:         append([]LineItem(nil), f.items...),
		Payments:      append([]PaymentItem(nil), f.payments...),
		DiscountInput: f.discountInput,
		Totals:        f.totals,
	}
}

// Validate runs the submit-time rules on the current snapshot.
func (f *Form) Validate() error {
	return f.calc.Validate(f.Snapshot())
}

// =============================================================================
// LEDGER LINES
// =============================================================================

// Lines returns the user lines followed by any system line.
func (f *Form) Lines() []Line {
	out := make([]Line, 0, len(f.lines)+len(f.system))
	out = append(out, f.lines...)
	return append(out, f.system...)
}

// AddLine appends a user line and returns its index. Debit wins if both
// sides are positive.
func (f *Form) AddLine(l Line) int {
	l.System = false
	credit := l.Credit
	l.SetDebit(l.Debit)
	if !l.Debit.IsPositive() {
		l.SetCredit(credit)
	}
	f.lines = append(f.lines, l)
	f.recompute()
	return len(f.lines) - 1
}

// UpdateLine replaces the account and narration of line i, keeping amounts.
func (f *Form) UpdateLine(i int, accountID, accountName, narration string) error {
	if err := checkIndex(i, len(f.lines)); err != nil {
		return err
	}
	f.lines[i].AccountID = accountID
	f.lines[i].AccountName = accountName
	f.lines[i].Narration = narration
	f.recompute()
	return nil
}

// SetDebit sets line i's debit, clearing its credit when positive.
func (f *Form) SetDebit(i int, d decimal.Decimal) error {
	if err := checkIndex(i, len(f.lines)); err != nil {
		return err
	}
	f.lines[i].SetDebit(d)
	f.recompute()
	return nil
}

// SetCredit sets line i's credit, clearing its debit when positive.
func (f *Form) SetCredit(i int, c decimal.Decimal) error {
	if err := checkIndex(i, len(f.lines)); err != nil {
		return err
	}
	f.lines[i].SetCredit(c)
	f.recompute()
	return nil
}

func (f *Form) RemoveLine(i int) error {
	if err := checkIndex(i, len(f.lines)); err != nil {
		return err
	}
	f.lines = append(f.lines[:i], f.lines[i+1:]...)
	f.recompute()
	return nil
}

// =============================================================================
// INVOICE ITEMS
// =============================================================================

func (f *Form) Items() []LineItem {
	return append([]LineItem(nil), f.items...)
}

// ItemAmounts returns the derived amounts of every item, in order.
func (f *Form) ItemAmounts() []LineAmounts {
	out := make([]LineAmounts, len(f.items))
	for i, item := range f.items {
		out[i] = ComputeLineItem(item)
	}
	return out
}

func (f *Form) AddItem(item LineItem) int {
	f.items = append(f.items, item)
	f.recompute()
	return len(f.items) - 1
}

func (f *Form) UpdateItem(i int, item LineItem) error {
	if err := checkIndex(i, len(f.items)); err != nil {
		return err
	}
	f.items[i] = item
	f.recompute()
	return nil
}

func (f *Form) RemoveItem(i int) error {
	if err := checkIndex(i, len(f.items)); err != nil {
		return err
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	f.recompute()
	return nil
}

// SetDiscountRate makes the rate the driving discount input. The amount
// follows the subtotal from now on.
func (f *Form) SetDiscountRate(rate decimal.Decimal) {
	f.discountInput = DiscountInput{Rate: rate}
	if !rate.IsPositive() {
		f.discount = Discount{}
	}
	f.recompute()
}

// SetDiscountAmount makes the amount the driving discount input. The rate
// follows the subtotal from now on.
func (f *Form) SetDiscountAmount(amount decimal.Decimal) {
	f.discountInput = DiscountInput{Amount: amount}
	if !amount.IsPositive() {
		f.discount = Discount{}
	}
	f.recompute()
}

// =============================================================================
// PAYMENT ITEMS
// =============================================================================

func (f *Form) Payments() []PaymentItem {
	return append([]PaymentItem(nil), f.payments...)
}

func (f *Form) AddPayment(item PaymentItem) int {
	f.payments = append(f.payments, item)
	f.recompute()
	return len(f.payments) - 1
}

func (f *Form) UpdatePayment(i int, item PaymentItem) error {
	if err := checkIndex(i, len(f.payments)); err != nil {
		return err
	}
	f.payments[i] = item
	f.recompute()
	return nil
}

func (f *Form) RemovePayment(i int) error {
	if err := checkIndex(i, len(f.payments)); err != nil {
		return err
	}
	f.payments = append(f.payments[:i], f.payments[i+1:]...)
	f.recompute()
	return nil
}

// =============================================================================
// RECOMPUTE
// =============================================================================

func (f *Form) recompute() {
	f.totals = Totals{}
	f.system = nil
	switch f.kind.Family() {
	case FamilyLedger:
		all := f.calc.PrepareLines(f.kind, f.lines)
		for _, l := range all {
			if l.System {
				f.system = append(f.system, l)
			}
		}
		f.totals.Ledger = f.calc.LedgerTotals(f.kind, all)
	case FamilyInvoice:
		f.totals.Invoice = f.calc.InvoiceTotals(f.kind, f.items, f.discountInput, f.discount)
		f.discount = Discount{Rate: f.totals.Invoice.DiscountRate, Amount: f.totals.Invoice.Discount}
	case FamilyPayment:
		f.totals.Payment = f.calc.PaymentTotals(f.payments)
	}
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d (have %d)", ErrLineIndex, i, n)
	}
	return nil
}

package voucher

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/ledger"
)

// ErrPostingAccount is returned when a voucher needs a posting account that
// is not configured.
var ErrPostingAccount = errors.New("posting account not configured")

// PostingAccounts are the fixed accounts invoices post against.
type PostingAccounts struct {
	Purchases string
	Sales     string
	InputTax  string
	OutputTax string
}

// Postings translates a computed voucher into balanced ledger legs.
//
//	journal, opening balance  each line as entered
//	purchase invoice          Dr purchases (net), Dr input tax, Cr supplier
//	sales invoice             Dr customer, Cr sales (net), Cr output tax
//	payment                   Dr each ledger, Cr cash/bank
//	receipt                   Dr cash/bank, Cr each ledger
//
// Zero legs are skipped. v must already carry computed totals.
func Postings(v Voucher, accounts PostingAccounts) ([]ledger.Posting, error) {
	b := postingBuilder{v: v}

	switch v.Kind {
	case KindJournal, KindOpeningBalance:
		for _, l := range v.Lines {
			b.leg(l.AccountID, l.Debit.Sub(l.Credit), l.Narration)
		}

	case KindPurchaseInvoice:
		if accounts.Purchases == "" || (accounts.InputTax == "" && !v.Totals.Invoice.Tax.IsZero()) {
			return nil, fmt.Errorf("%w: purchases/input tax", ErrPostingAccount)
		}
		t := v.Totals.Invoice
		b.leg(accounts.Purchases, t.Subtotal.Sub(t.Discount), "Purchases")
		b.leg(accounts.InputTax, t.Tax, "Input tax")
		b.leg(v.PartyAccountID, t.GrandTotal.Neg(), v.Narration)

	case KindSalesInvoice:
		if accounts.Sales == "" || (accounts.OutputTax == "" && !v.Totals.Invoice.Tax.IsZero()) {
			return nil, fmt.Errorf("%w: sales/output tax", ErrPostingAccount)
		}
		t := v.Totals.Invoice
		b.leg(v.PartyAccountID, t.GrandTotal, v.Narration)
		b.leg(accounts.Sales, t.Subtotal.Sub(t.Discount).Neg(), "Sales")
		b.leg(accounts.OutputTax, t.Tax.Neg(), "Output tax")

	case KindPayment:
		total := decimal.Zero
		for _, p := range v.Payments {
			b.leg(p.LedgerID, p.Amount, p.Remarks)
			total = total.Add(p.Amount)
		}
		b.leg(v.CashAccountID, total.Neg(), v.Narration)

	case KindReceipt:
		total := decimal.Zero
		for _, p := range v.Payments {
			total = total.Add(p.Amount)
		}
		b.leg(v.CashAccountID, total, v.Narration)
		for _, p := range v.Payments {
			b.leg(p.LedgerID, p.Amount.Neg(), p.Remarks)
		}

	default:
		return nil, ErrUnknownKind
	}

	if err := ledger.CheckBalanced(b.out); err != nil {
		return nil, err
	}
	return b.out, nil
}

type postingBuilder struct {
	v   Voucher
	out []ledger.Posting
}

// leg appends a debit for positive net and a credit for negative net.
func (b *postingBuilder) leg(accountID string, net decimal.Decimal, narration string) {
	if net.IsZero() {
		return
	}
	p := ledger.Posting{
		AccountID:      accountID,
		VoucherID:      b.v.ID,
		VoucherKind:    string(b.v.Kind),
		VoucherNumber:  b.v.Number,
		Date:           b.v.Date,
		Type:           ledger.PostingOriginal,
		Narration:      narration,
		IdempotencyKey: fmt.Sprintf("%s#r%d#%d", b.v.ID, b.v.Revision, len(b.out)),
	}
	if net.IsPositive() {
		p.Debit = net
	} else {
		p.Credit = net.Neg()
	}
	b.out = append(b.out, p)
}

package voucher

import (
	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/money"
)

// AggregateInvoice folds invoice rows into subtotal, discount, tax and grand
// total.
//
//	subtotal   = Round2(Σ amount_i)
//	discount   = ReconcileDiscount(subtotal, in, previous)
//	tax        = Round2(Σ taxAmount_i)                           pre-discount
//	           = Round2(Σ (amount_i - share_i) * taxRate_i/100)  post-discount
//	grandTotal = Round2(subtotal - discount + tax)
//
// With a post-discount base, share_i is the discount allocated to row i in
// proportion to its amount.
func AggregateInvoice(items []LineItem, in DiscountInput, previous Discount, base TaxBase) InvoiceTotals {
	amounts := make([]LineAmounts, len(items))
	rawSubtotal, rawTax := decimal.Zero, decimal.Zero
	for i, item := range items {
		amounts[i] = ComputeLineItem(item)
		rawSubtotal = rawSubtotal.Add(amounts[i].Amount)
		rawTax = rawTax.Add(amounts[i].TaxAmount)
	}

	subtotal := money.Round2(rawSubtotal)
	discount := ReconcileDiscount(subtotal, in, previous)

	tax := money.Round2(rawTax)
	if base == TaxBasePostDiscount && discount.Amount.IsPositive() && rawSubtotal.IsPositive() {
		taxable := decimal.Zero
		for i, item := range items {
			share := discount.Amount.Mul(amounts[i].Amount).Div(rawSubtotal)
			taxable = taxable.Add(money.Percent(amounts[i].Amount.Sub(share), item.TaxRatePercent))
		}
		tax = money.Round2(taxable)
	}

	return InvoiceTotals{
		Subtotal:     subtotal,
		DiscountRate: discount.Rate,
		Discount:     discount.Amount,
		Tax:          tax,
		GrandTotal:   money.Round2(subtotal.Sub(discount.Amount).Add(tax)),
	}
}

// AggregatePayment totals payment or receipt rows.
func AggregatePayment(items []PaymentItem) PaymentTotals {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return PaymentTotals{Total: money.Round2(total)}
}

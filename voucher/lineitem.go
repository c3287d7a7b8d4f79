package voucher

import (
	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/money"
)

// LineAmounts are the derived figures of one invoice row.
type LineAmounts struct {
	FinalQuantity decimal.Decimal `json:"final_quantity"`
	Amount        decimal.Decimal `json:"amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
}

// ComputeLineItem derives quantity, amount, tax and total for a row:
//
//	finalQuantity = initialQuantity - count*deductionPerUnit
//	amount        = finalQuantity * rate
//	taxAmount     = amount * taxRatePercent / 100
//	total         = amount + taxAmount
//
// Nothing is clamped or rounded here; a negative quantity is surfaced as-is
// and rejected at submit time by ValidateInvoice.
func ComputeLineItem(item LineItem) LineAmounts {
	finalQty := item.InitialQuantity.Sub(item.Count.Mul(item.DeductionPerUnit))
	amount := finalQty.Mul(item.Rate)
	tax := money.Percent(amount, item.TaxRatePercent)
	return LineAmounts{
		FinalQuantity: finalQty,
		Amount:        amount,
		TaxAmount:     tax,
		Total:         amount.Add(tax),
	}
}

package voucher

import (
	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/money"
)

// Discount is the reconciled invoice discount: two views of one quantity.
type Discount struct {
	Rate   decimal.Decimal `json:"rate" yaml:"rate"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// DiscountInput is what the user last typed. A field counts as supplied only
// when it is positive.
type DiscountInput struct {
	Rate   decimal.Decimal `json:"rate" yaml:"rate"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// ReconcileDiscount keeps discount rate and amount in step with each other
// and with the subtotal.
//
// Rate takes priority when both are supplied, so the two inputs never chase
// each other while the user types:
//
//	rate > 0    -> amount = Round2(subtotal * rate / 100), rate kept as given
//	amount > 0  -> amount = Round2(amount), rate = Round2(amount / subtotal * 100)
//	neither     -> previous values, rounded
func ReconcileDiscount(subtotal decimal.Decimal, in DiscountInput, previous Discount) Discount {
	switch {
	case in.Rate.IsPositive():
		return Discount{
			Rate:   in.Rate,
			Amount: money.Round2(money.Percent(subtotal, in.Rate)),
		}
	case in.Amount.IsPositive():
		amount := money.Round2(in.Amount)
		return Discount{
			Rate:   money.Round2(money.RatioPercent(amount, subtotal)),
			Amount: amount,
		}
	default:
		return Discount{
			Rate:   money.Round2(previous.Rate),
			Amount: money.Round2(previous.Amount),
		}
	}
}

package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/money"
)

// AccountBalance is the movement of one account over a period.
// Amounts are signed debit-positive: a credit balance is negative.
type AccountBalance struct {
	AccountID string
	Period    Period
	Opening   decimal.Decimal
	Debits    decimal.Decimal
	Credits   decimal.Decimal
	Closing   decimal.Decimal
}

// BalanceCalculator computes balances by replaying postings.
type BalanceCalculator struct {
	Store Store
}

// AccountBalance sums postings before the period into Opening and those
// inside it into Debits/Credits.
func (bc *BalanceCalculator) AccountBalance(ctx context.Context, accountID string, period Period) (AccountBalance, error) {
	postings, err := bc.Store.AccountPostings(ctx, accountID, Until(period.To))
	if err != nil {
		return AccountBalance{}, err
	}
	return Summarize(accountID, period, postings), nil
}

// Summarize folds postings (already limited to <= period.To) into a balance.
func Summarize(accountID string, period Period, postings []Posting) AccountBalance {
	opening, debits, credits := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range postings {
		if period.Before(p.Date) {
			opening = opening.Add(p.Net())
			continue
		}
		debits = debits.Add(p.Debit)
		credits = credits.Add(p.Credit)
	}
	opening = money.Round2(opening)
	debits = money.Round2(debits)
	credits = money.Round2(credits)
	return AccountBalance{
		AccountID: accountID,
		Period:    period,
		Opening:   opening,
		Debits:    debits,
		Credits:   credits,
		Closing:   opening.Add(debits).Sub(credits),
	}
}

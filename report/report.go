/*
Package report builds ledger reports by replaying postings.

REPORTS:
  Statement:     one account over a period, with running balance
  TrialBalance:  closing balance of every account at a date

Balances are signed debit-positive throughout. A trial balance puts a
positive closing balance in the debit column and a negative one in the
credit column.

SEE ALSO:
  - xlsx.go: spreadsheet export
  - ledger/balance.go: the opening/closing arithmetic both reports share
*/
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/ledger"
	"github.com/warp/voucher-ledger/money"
)

// =============================================================================
// ACCOUNT STATEMENT
// =============================================================================

type StatementRow struct {
	Date          time.Time          `json:"date"`
	VoucherNumber string             `json:"voucher_number"`
	VoucherKind   string             `json:"voucher_kind"`
	Type          ledger.PostingType `json:"type"`
	Narration     string             `json:"narration,omitempty"`
	Debit         decimal.Decimal    `json:"debit"`
	Credit        decimal.Decimal    `json:"credit"`
	Balance       decimal.Decimal    `json:"balance"`
}

type Statement struct {
	Account     catalog.Account `json:"account"`
	From        time.Time       `json:"from,omitempty"`
	To          time.Time       `json:"to,omitempty"`
	Opening     decimal.Decimal `json:"opening"`
	Rows        []StatementRow  `json:"rows"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Closing     decimal.Decimal `json:"closing"`
}

// BuildStatement lists the account's postings inside period. Postings before
// the period are folded into Opening; each row carries the balance after it.
func BuildStatement(ctx context.Context, store ledger.Store, account catalog.Account, period ledger.Period) (Statement, error) {
	postings, err := store.AccountPostings(ctx, account.ID, ledger.Until(period.To))
	if err != nil {
		return Statement{}, fmt.Errorf("load postings for %s: %w", account.Code, err)
	}

	summary := ledger.Summarize(account.ID, period, postings)
	st := Statement{
		Account:     account,
		From:        period.From,
		To:          period.To,
		Opening:     summary.Opening,
		Rows:        []StatementRow{},
		TotalDebit:  summary.Debits,
		TotalCredit: summary.Credits,
		Closing:     summary.Closing,
	}

	running := summary.Opening
	for _, p := range postings {
		if period.Before(p.Date) {
			continue
		}
		running = running.Add(p.Net())
		st.Rows = append(st.Rows, StatementRow{
			Date:          p.Date,
			VoucherNumber: p.VoucherNumber,
			VoucherKind:   p.VoucherKind,
			Type:          p.Type,
			Narration:     p.Narration,
			Debit:         p.Debit,
			Credit:        p.Credit,
			Balance:       money.Round2(running),
		})
	}
	return st, nil
}

// =============================================================================
// TRIAL BALANCE
// =============================================================================

type TrialBalanceRow struct {
	Account catalog.Account `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

type TrialBalance struct {
	AsOf        time.Time         `json:"as_of,omitempty"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

// BuildTrialBalance computes each account's closing balance at asOf (zero
// means all postings). Accounts with a zero balance are left out.
func BuildTrialBalance(ctx context.Context, store ledger.Store, accounts []catalog.Account, asOf time.Time) (TrialBalance, error) {
	bc := ledger.BalanceCalculator{Store: store}
	tb := TrialBalance{AsOf: asOf, Rows: []TrialBalanceRow{}}

	debit, credit := decimal.Zero, decimal.Zero
	for _, acc := range accounts {
		b, err := bc.AccountBalance(ctx, acc.ID, ledger.Until(asOf))
		if err != nil {
			return TrialBalance{}, fmt.Errorf("balance for %s: %w", acc.Code, err)
		}
		if b.Closing.IsZero() {
			continue
		}
		row := TrialBalanceRow{Account: acc}
		if b.Closing.IsPositive() {
			row.Debit = b.Closing
		} else {
			row.Credit = b.Closing.Neg()
		}
		debit = debit.Add(row.Debit)
		credit = credit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}

	tb.TotalDebit = money.Round2(debit)
	tb.TotalCredit = money.Round2(credit)
	tb.Balanced = money.IsBalanced(tb.TotalDebit.Sub(tb.TotalCredit))
	return tb, nil
}

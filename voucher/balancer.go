package voucher

import (
	"github.com/shopspring/decimal"

	"github.com/warp/voucher-ledger/money"
)

// Adjustment names the account that absorbs an opening balance difference.
type Adjustment struct {
	AccountID   string
	AccountName string
}

func (a Adjustment) Enabled() bool { return a.AccountID != "" }

// AdjustmentNarration is written on every synthesized adjustment line.
const AdjustmentNarration = "Opening balance difference"

// Balance sums both columns and reports the difference.
//
//	TotalDebit  = Round2(Σ debit)
//	TotalCredit = Round2(Σ credit)
//	Difference  = TotalDebit - TotalCredit   (signed)
//	            = |TotalDebit - TotalCredit| (otherwise)
//
// A voucher is balanced when |Difference| < 0.01. An empty line set is
// trivially balanced; rejecting it is ValidateLedger's job.
func Balance(lines []Line, signed bool) LedgerTotals {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}

	totalDebit := money.Round2(debit)
	totalCredit := money.Round2(credit)
	diff := totalDebit.Sub(totalCredit)
	if !signed {
		diff = diff.Abs()
	}

	return LedgerTotals{
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Difference:  diff,
		Balanced:    money.IsBalanced(diff),
	}
}

// AutoBalance drops any previous system lines and, when the remaining lines
// do not balance, appends one system line on the short side against the
// adjustment account. The input slice is not modified.
//
// The residual is taken from the rounded column totals, so after the append
// Balance reports a difference of exactly zero.
func AutoBalance(lines []Line, adj Adjustment) []Line {
	out := StripSystem(lines)
	if !adj.Enabled() {
		return out
	}

	totals := Balance(out, true)
	if totals.Balanced {
		return out
	}

	line := Line{
		AccountID:   adj.AccountID,
		AccountName: adj.AccountName,
		Narration:   AdjustmentNarration,
		System:      true,
	}
	if totals.Difference.IsPositive() {
		line.SetCredit(totals.Difference)
	} else {
		line.SetDebit(totals.Difference.Neg())
	}
	return append(out, line)
}

// StripSystem returns a copy of lines without system lines.
func StripSystem(lines []Line) []Line {
	out := make([]Line, 0, len(lines)+1)
	for _, l := range lines {
		if !l.System {
			out = append(out, l)
		}
	}
	return out
}

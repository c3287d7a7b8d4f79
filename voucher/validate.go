package voucher

import (
	"strings"

	"github.com/warp/voucher-ledger/money"
)

// ValidateLedger applies the journal / opening balance submit rules:
// at least one user line, every user line has an account, no negative side
// and exactly one positive side, and the voucher balances. System lines are exempt from
// the per-line rules.
func ValidateLedger(lines []Line, totals LedgerTotals) ValidationErrors {
	var errs ValidationErrors

	userLines := 0
	for i, l := range lines {
		if l.System {
			continue
		}
		userLines++
		n := i + 1
		if strings.TrimSpace(l.AccountID) == "" {
			errs = append(errs, issue(n, "missing_account", ErrMissingAccount, "select an account"))
		}
		switch {
		case l.Debit.IsNegative() || l.Credit.IsNegative():
			errs = append(errs, issue(n, "negative_amount", ErrNegativeAmount, "debit and credit cannot be negative"))
		case l.Debit.IsPositive() && l.Credit.IsPositive():
			errs = append(errs, issue(n, "double_sided", ErrDoubleSidedLine, "enter either a debit or a credit, not both"))
		case !l.Debit.IsPositive() && !l.Credit.IsPositive():
			errs = append(errs, issue(n, "zero_value", ErrZeroValueLine, "enter a debit or credit amount"))
		}
	}
	if userLines == 0 {
		return ValidationErrors{issue(0, "empty", ErrEmptyVoucher, ErrEmptyVoucher.Error())}
	}

	if !totals.Balanced {
		e := issue(0, "unbalanced", ErrUnbalanced,
			"debit and credit do not match: difference "+money.Format(totals.Difference.Abs()))
		e.Difference = totals.Difference
		errs = append(errs, e)
	}
	return errs
}

// ValidateInvoice rejects empty invoices, rows whose final quantity or rate
// is not positive, and otherwise valid rows whose total is not positive.
func ValidateInvoice(items []LineItem) ValidationErrors {
	if len(items) == 0 {
		return ValidationErrors{issue(0, "empty", ErrEmptyVoucher, ErrEmptyVoucher.Error())}
	}

	var errs ValidationErrors
	for i, item := range items {
		n := i + 1
		if strings.TrimSpace(item.ProductID) == "" {
			errs = append(errs, issue(n, "missing_product", ErrMissingProduct, "select a product"))
		}
		amounts := ComputeLineItem(item)
		valid := true
		if !amounts.FinalQuantity.IsPositive() {
			valid = false
			errs = append(errs, issue(n, "invalid_item", ErrInvalidItem,
				"final quantity must be greater than zero (got "+amounts.FinalQuantity.String()+")"))
		}
		if !item.Rate.IsPositive() {
			valid = false
			errs = append(errs, issue(n, "invalid_item", ErrInvalidItem, "rate must be greater than zero"))
		}
		if valid && (!amounts.Amount.IsPositive() || !amounts.Total.IsPositive()) {
			errs = append(errs, issue(n, "zero_value", ErrZeroValueLine,
				"line total must be greater than zero (got "+money.Format(amounts.Total)+")"))
		}
	}
	return errs
}

// ValidatePayment rejects empty payments/receipts, rows without a ledger
// and rows whose amount is not positive.
func ValidatePayment(items []PaymentItem) ValidationErrors {
	if len(items) == 0 {
		return ValidationErrors{issue(0, "empty", ErrEmptyVoucher, ErrEmptyVoucher.Error())}
	}

	var errs ValidationErrors
	for i, item := range items {
		n := i + 1
		if strings.TrimSpace(item.LedgerID) == "" {
			errs = append(errs, issue(n, "missing_account", ErrMissingAccount, "select a ledger"))
		}
		if !item.Amount.IsPositive() {
			errs = append(errs, issue(n, "zero_value", ErrZeroValueLine, "amount must be greater than zero"))
		}
	}
	return errs
}

// validateHeader checks the fields outside the rows.
func validateHeader(v Voucher) ValidationErrors {
	var errs ValidationErrors
	if v.Date.IsZero() {
		errs = append(errs, issue(0, "missing_date", ErrMissingDate, ErrMissingDate.Error()))
	}
	switch v.Kind.Family() {
	case FamilyInvoice:
		if strings.TrimSpace(v.PartyAccountID) == "" {
			errs = append(errs, issue(0, "missing_party", ErrMissingParty, "select a customer or supplier account"))
		}
	case FamilyPayment:
		if strings.TrimSpace(v.CashAccountID) == "" {
			errs = append(errs, issue(0, "missing_party", ErrMissingParty, "select a cash or bank account"))
		}
	}
	return errs
}

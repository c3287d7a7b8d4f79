package voucher

// =============================================================================
// CALCULATOR - One entry point for every voucher kind
// =============================================================================

// Calculator applies the balancing and totals rules with the Policy of each
// Kind. It holds configuration only; every method is a pure function of its
// arguments.
type Calculator struct {
	policies map[Kind]Policy
}

// NewCalculator starts from DefaultPolicies and overrides with the given map.
func NewCalculator(overrides map[Kind]Policy) *Calculator {
	policies := DefaultPolicies()
	for k, p := range overrides {
		p.Kind = k
		policies[k] = p
	}
	return &Calculator{policies: policies}
}

// Policy returns the policy for kind (zero Policy for unknown kinds).
func (c *Calculator) Policy(kind Kind) Policy {
	return c.policies[kind]
}

// Policies returns a copy of the configured policies.
func (c *Calculator) Policies() map[Kind]Policy {
	out := make(map[Kind]Policy, len(c.policies))
	for k, p := range c.policies {
		out[k] = p
	}
	return out
}

// PrepareLines regenerates the adjustment line for auto-balancing kinds and
// strips stale system lines for the rest.
func (c *Calculator) PrepareLines(kind Kind, lines []Line) []Line {
	return AutoBalance(lines, c.Policy(kind).Adjustment())
}

// LedgerTotals balances lines with the kind's difference convention.
func (c *Calculator) LedgerTotals(kind Kind, lines []Line) LedgerTotals {
	return Balance(lines, c.Policy(kind).SignedDifference)
}

// InvoiceTotals aggregates items with the kind's tax base.
func (c *Calculator) InvoiceTotals(kind Kind, items []LineItem, in DiscountInput, previous Discount) InvoiceTotals {
	base := c.Policy(kind).TaxBase
	if !base.IsValid() {
		base = TaxBasePreDiscount
	}
	return AggregateInvoice(items, in, previous, base)
}

// PaymentTotals totals payment or receipt items.
func (c *Calculator) PaymentTotals(items []PaymentItem) PaymentTotals {
	return AggregatePayment(items)
}

// Compute returns v with system lines regenerated and totals recomputed from
// scratch. The previous discount on v is used when no discount input is
// supplied.
func (c *Calculator) Compute(v Voucher) Voucher {
	out := v.Clone()
	out.Totals = Totals{}
	switch v.Kind.Family() {
	case FamilyLedger:
		out.Lines = c.PrepareLines(v.Kind, v.Lines)
		out.Totals.Ledger = c.LedgerTotals(v.Kind, out.Lines)
	case FamilyInvoice:
		previous := Discount{Rate: v.Totals.Invoice.DiscountRate, Amount: v.Totals.Invoice.Discount}
		out.Totals.Invoice = c.InvoiceTotals(v.Kind, v.Items, v.DiscountInput, previous)
	case FamilyPayment:
		out.Totals.Payment = c.PaymentTotals(v.Payments)
	}
	return out
}

// Validate runs the submit-time rules for v's kind against freshly computed
// totals. It returns nil or ValidationErrors.
func (c *Calculator) Validate(v Voucher) error {
	if !v.Kind.IsValid() {
		return ValidationErrors{issue(0, "unknown_kind", ErrUnknownKind, "unknown voucher kind "+string(v.Kind))}
	}

	computed := c.Compute(v)
	errs := validateHeader(computed)
	switch v.Kind.Family() {
	case FamilyLedger:
		errs = append(errs, ValidateLedger(computed.Lines, computed.Totals.Ledger)...)
	case FamilyInvoice:
		errs = append(errs, ValidateInvoice(computed.Items)...)
	case FamilyPayment:
		errs = append(errs, ValidatePayment(computed.Payments)...)
	}
	return errs.OrNil()
}

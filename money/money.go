/*
Package money holds the rounding and coercion rules shared by every voucher
calculation.

PURPOSE:
  Voucher amounts arrive from forms as loosely typed input (strings, floats,
  blanks). Before any arithmetic they are coerced to decimal.Decimal, and
  after every aggregate they are rounded to two places. Keeping both rules in
  one package means the journal, invoice and payment calculators cannot drift
  apart on how a cent is rounded.

ROUNDING POLICY:
  Round2 rounds half away from zero on the value scaled by 100:
    Round2(1.005)  = 1.01
    Round2(-1.005) = -1.01
    Round2(2.344)  = 2.34

COERCION POLICY:
  Anything that is not a finite number becomes zero:
    Parse("")       = 0
    Parse("abc")    = 0
    FromFloat(NaN)  = 0
    FromFloat(+Inf) = 0
  A NaN must never reach a sum, since it silently poisons every total after it.

SEE ALSO:
  - voucher/balancer.go: debit/credit totals
  - voucher/aggregate.go: invoice totals
*/
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance under which a debit/credit difference counts as
// balanced. It absorbs representation noise; it is not a business tolerance.
var Epsilon = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Parse converts user input into a decimal. Blank or malformed input is zero.
// Thousands separators and surrounding whitespace are tolerated.
func Parse(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromFloat converts a float, mapping NaN and infinities to zero.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Float returns the float64 form of d, used for JSON responses.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Percent returns base * rate / 100 without rounding.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

// RatioPercent returns part / whole * 100, or zero when whole is not positive.
func RatioPercent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// Sum adds the values. An empty call returns zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// NonNegative clamps negative values to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// IsBalanced reports whether |d| is under Epsilon.
func IsBalanced(d decimal.Decimal) bool {
	return d.Abs().LessThan(Epsilon)
}

// Format renders d with exactly two decimals, e.g. "200.00".
func Format(d decimal.Decimal) string {
	return Round2(d).StringFixed(2)
}

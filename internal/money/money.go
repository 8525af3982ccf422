// Package money keeps derived currency arithmetic exact. Amounts live as
// float64 throughout the system; every derivation goes through decimal and
// comes back rounded to cents so repeated operations cannot accumulate
// binary floating point drift.
package money

import "github.com/shopspring/decimal"

// Round2 rounds an amount to cents.
func Round2(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// LineTotal computes quantity * unitCost rounded to cents.
func LineTotal(quantity, unitCost float64) float64 {
	q := decimal.NewFromFloat(quantity)
	c := decimal.NewFromFloat(unitCost)
	v, _ := q.Mul(c).Round(2).Float64()
	return v
}

// Scale computes amount * numerator / denominator rounded to cents.
// The caller guarantees denominator != 0.
func Scale(amount, numerator, denominator float64) float64 {
	a := decimal.NewFromFloat(amount)
	n := decimal.NewFromFloat(numerator)
	d := decimal.NewFromFloat(denominator)
	v, _ := a.Mul(n).Div(d).Round(2).Float64()
	return v
}

// Tolerance is the allowed drift when comparing a derived amount against
// an expected one: the larger of an absolute floor and a percentage of
// the expected value.
type Tolerance struct {
	Absolute    float64
	RelativePct float64
}

// DefaultTolerance matches the engine's default policy: one cent or 1%,
// whichever is larger.
var DefaultTolerance = Tolerance{Absolute: 0.01, RelativePct: 0.01}

// Allowed returns the drift tolerated for the given expected amount.
func (t Tolerance) Allowed(expected float64) float64 {
	rel := decimal.NewFromFloat(expected).Abs().Mul(decimal.NewFromFloat(t.RelativePct))
	abs := decimal.NewFromFloat(t.Absolute)
	if rel.GreaterThan(abs) {
		v, _ := rel.Float64()
		return v
	}
	v, _ := abs.Float64()
	return v
}

// WithinTolerance reports whether actual is close enough to expected.
func (t Tolerance) WithinTolerance(actual, expected float64) bool {
	diff := decimal.NewFromFloat(actual).Sub(decimal.NewFromFloat(expected)).Abs()
	return !diff.GreaterThan(decimal.NewFromFloat(t.Allowed(expected)))
}

// Sum adds amounts exactly and rounds the result to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	v, _ := total.Round(2).Float64()
	return v
}

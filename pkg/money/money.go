package money

import "github.com/shopspring/decimal"

// Epsilon below which a pre-clamp negative balance is treated as rounding
// drift rather than data corruption.
var Epsilon = decimal.NewFromFloat(0.01)

var hundred = decimal.NewFromInt(100)

// IsTwoDecimal reports whether d has at most two decimal places.
func IsTwoDecimal(d decimal.Decimal) bool {
	return d.Exponent() >= -2 || d.Equal(d.Round(2))
}

// ClampZero floors d at zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// MateriallyNegative reports whether d is negative beyond Epsilon.
func MateriallyNegative(d decimal.Decimal) bool {
	return d.LessThan(Epsilon.Neg())
}

// Percent applies a percentage rate to an amount, rounded to two decimals.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}

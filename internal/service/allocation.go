package service

import "github.com/shopspring/decimal"

// Allocation is the result of splitting one gross payment across the three
// outstanding components of a loan.
type Allocation struct {
	CumulativeInterest decimal.Decimal
	Interest           decimal.Decimal
	Principal          decimal.Decimal
	// Remainder is whatever the payment could not absorb once principal is
	// fully covered. A non-zero remainder is an overpayment; the caller
	// decides whether to reject it, it is never silently dropped.
	Remainder decimal.Decimal
}

// Total is the amount actually applied to the loan.
func (a Allocation) Total() decimal.Decimal {
	return a.CumulativeInterest.Add(a.Interest).Add(a.Principal)
}

// Allocate splits a payment across cumulative interest, interest and
// principal in that fixed priority. Each step takes min(remaining payment,
// component due); quantities are two-decimal fixed point throughout, so the
// three allocations sum exactly to min(payment, total due).
func Allocate(payment, cumulativeDue, interestDue, principalDue decimal.Decimal) Allocation {
	remaining := payment

	cumulative := decimal.Min(remaining, cumulativeDue)
	remaining = remaining.Sub(cumulative)

	interest := decimal.Min(remaining, interestDue)
	remaining = remaining.Sub(interest)

	principal := decimal.Min(remaining, principalDue)
	remaining = remaining.Sub(principal)

	return Allocation{
		CumulativeInterest: cumulative,
		Interest:           interest,
		Principal:          principal,
		Remainder:          remaining,
	}
}

package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAllocate_Priority(t *testing.T) {
	tests := []struct {
		name          string
		payment       string
		cumulativeDue string
		interestDue   string
		principalDue  string
		wantCum       string
		wantInterest  string
		wantPrincipal string
		wantRemainder string
	}{
		{
			name:    "cumulative interest absorbed first",
			payment: "120", cumulativeDue: "50", interestDue: "100", principalDue: "1000",
			wantCum: "50", wantInterest: "70", wantPrincipal: "0", wantRemainder: "0",
		},
		{
			name:    "payment smaller than cumulative due",
			payment: "30", cumulativeDue: "50", interestDue: "100", principalDue: "1000",
			wantCum: "30", wantInterest: "0", wantPrincipal: "0", wantRemainder: "0",
		},
		{
			name:    "spills into principal",
			payment: "400", cumulativeDue: "50", interestDue: "100", principalDue: "1000",
			wantCum: "50", wantInterest: "100", wantPrincipal: "250", wantRemainder: "0",
		},
		{
			name:    "exact settlement",
			payment: "1150", cumulativeDue: "50", interestDue: "100", principalDue: "1000",
			wantCum: "50", wantInterest: "100", wantPrincipal: "1000", wantRemainder: "0",
		},
		{
			name:    "overpayment surfaces as remainder",
			payment: "1200", cumulativeDue: "50", interestDue: "100", principalDue: "1000",
			wantCum: "50", wantInterest: "100", wantPrincipal: "1000", wantRemainder: "50",
		},
		{
			name:    "no cumulative component",
			payment: "150", cumulativeDue: "0", interestDue: "200", principalDue: "1000",
			wantCum: "0", wantInterest: "150", wantPrincipal: "0", wantRemainder: "0",
		},
		{
			name:    "cent precision",
			payment: "100.01", cumulativeDue: "0.01", interestDue: "100", principalDue: "500",
			wantCum: "0.01", wantInterest: "100", wantPrincipal: "0", wantRemainder: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(d(tt.payment), d(tt.cumulativeDue), d(tt.interestDue), d(tt.principalDue))

			assert.True(t, got.CumulativeInterest.Equal(d(tt.wantCum)),
				"cumulative: got %s want %s", got.CumulativeInterest, tt.wantCum)
			assert.True(t, got.Interest.Equal(d(tt.wantInterest)),
				"interest: got %s want %s", got.Interest, tt.wantInterest)
			assert.True(t, got.Principal.Equal(d(tt.wantPrincipal)),
				"principal: got %s want %s", got.Principal, tt.wantPrincipal)
			assert.True(t, got.Remainder.Equal(d(tt.wantRemainder)),
				"remainder: got %s want %s", got.Remainder, tt.wantRemainder)

			// The split always accounts for the full payment.
			assert.True(t, got.Total().Add(got.Remainder).Equal(d(tt.payment)))
		})
	}
}

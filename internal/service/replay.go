package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lendwell/ledger-engine/internal/domain"
	customError "github.com/lendwell/ledger-engine/pkg/errors"
	"github.com/lendwell/ledger-engine/pkg/money"
)

// replayLedger recomputes every entry's allocations and balances plus the
// loan's snapshot fields, in place, from the first entry forward. It is pure
// over its inputs: callers load the full ledger, mutate it (append, edit,
// remove an entry), run replay, and persist the result in one transaction.
//
// Running it twice with no intervening mutation is a no-op.
func replayLedger(loan *domain.Loan, entries []*domain.LedgerEntry, today time.Time) error {
	sortEntries(entries)

	principalBal := loan.Principal
	interestBal := loan.InterestDue()
	cumulativeBal := decimal.Zero

	amountPaid := decimal.Zero
	cumulativeCharged := decimal.Zero

	for _, entry := range entries {
		switch entry.Kind {
		case domain.EntryApplication, domain.EntryApproved:
			// Anchors are declarative: they restate the loan's exposure at
			// issuance, they do not allocate anything.
			entry.Amount = decimal.Zero
			entry.Principal = loan.Principal
			entry.Interest = loan.InterestDue()
			entry.CumulativeInt = decimal.Zero

		case domain.EntryDisbursed:
			entry.Amount = decimal.Zero
			entry.Principal = loan.Principal
			entry.Interest = decimal.Zero
			entry.CumulativeInt = decimal.Zero

		case domain.EntryCumulativeInterest:
			// A charge, not a payment: grows the cumulative component.
			cumulativeBal = cumulativeBal.Add(entry.Amount)
			cumulativeCharged = cumulativeCharged.Add(entry.Amount)
			entry.Principal = decimal.Zero
			entry.Interest = decimal.Zero
			entry.CumulativeInt = entry.Amount

		case domain.EntryRepayment:
			alloc := Allocate(entry.Amount, cumulativeBal, interestBal, principalBal)
			if alloc.Remainder.IsPositive() {
				return customError.WrapInvalidAmount(fmt.Sprintf(
					"repayment of %s on %s exceeds outstanding balance by %s",
					entry.Amount.StringFixed(2), entry.Date.Format("2006-01-02"),
					alloc.Remainder.StringFixed(2)))
			}

			entry.CumulativeInt = alloc.CumulativeInterest
			entry.Interest = alloc.Interest
			entry.Principal = alloc.Principal

			cumulativeBal = cumulativeBal.Sub(alloc.CumulativeInterest)
			interestBal = interestBal.Sub(alloc.Interest)
			principalBal = principalBal.Sub(alloc.Principal)
			amountPaid = amountPaid.Add(alloc.Total())

		default:
			return customError.WrapInconsistentLedger(loan.LoanID,
				fmt.Sprintf("unknown entry kind %q", entry.Kind))
		}

		var err error
		if principalBal, err = clampBalance(loan, "principal", principalBal); err != nil {
			return err
		}
		if interestBal, err = clampBalance(loan, "interest", interestBal); err != nil {
			return err
		}
		if cumulativeBal, err = clampBalance(loan, "cumulative_interest", cumulativeBal); err != nil {
			return err
		}

		entry.PrincipalBal = principalBal
		entry.InterestBal = interestBal
		entry.CumulativeIntBal = cumulativeBal
		entry.RunningBal = principalBal.Add(interestBal).Add(cumulativeBal)
	}

	loan.TotalDue = loan.Principal.Add(loan.InterestDue()).Add(cumulativeCharged)
	loan.CumulativeInt = cumulativeCharged
	loan.AmountPaid = amountPaid
	if len(entries) > 0 {
		loan.RemainingBal = entries[len(entries)-1].RunningBal
	} else {
		loan.RemainingBal = loan.TotalDue
	}

	loan.Status = loanStatus(loan, today)
	return nil
}

// clampBalance floors a component balance at zero. Drift within the rounding
// epsilon is absorbed silently; anything materially negative is data
// corruption and aborts the replay.
func clampBalance(loan *domain.Loan, component string, bal decimal.Decimal) (decimal.Decimal, error) {
	if !bal.IsNegative() {
		return bal, nil
	}
	if money.MateriallyNegative(bal) {
		return decimal.Zero, customError.WrapInconsistentLedger(loan.LoanID,
			fmt.Sprintf("%s balance went negative (%s)", component, bal.StringFixed(2)))
	}

	log.Warn().
		Str("loan_id", loan.LoanID).
		Str("component", component).
		Str("balance", bal.String()).
		Msg("clamping small negative balance to zero")

	return money.ClampZero(bal), nil
}

func loanStatus(loan *domain.Loan, today time.Time) string {
	switch {
	case loan.RemainingBal.LessThanOrEqual(decimal.Zero):
		return domain.LoanStatusPaid
	// Overdue is day-granular: the due date itself is still on time.
	case !loan.DueDate.IsZero() && dateOnly(today).After(dateOnly(loan.DueDate)):
		return domain.LoanStatusInArrears
	case loan.AmountPaid.IsPositive():
		return domain.LoanStatusPartiallyPaid
	default:
		return domain.LoanStatusPending
	}
}

// sortEntries orders by (date, seq). Seq is assigned at insertion and never
// reassigned, so same-day entries keep their original relative order across
// edits.
func sortEntries(entries []*domain.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dateOnly(entries[i].Date), dateOnly(entries[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return entries[i].Seq < entries[j].Seq
	})
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextSeq(entries []*domain.LedgerEntry) int {
	max := 0
	for _, e := range entries {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max + 1
}

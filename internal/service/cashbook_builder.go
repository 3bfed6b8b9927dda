package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendwell/ledger-engine/internal/domain"
)

// registerSources is everything the cash register is derived from: the loan
// ledger's cash-affecting entries plus the four ancillary cash logs, with
// hand-authored rows carried through unchanged.
type registerSources struct {
	Manual     []*domain.CashbookEntry
	LoanEvents []*domain.LoanCashEvent
	Transfers  []*domain.BankTransfer
	Expenses   []*domain.Expense
	Incomes    []*domain.OtherIncome
	Savings    []*domain.SavingsTransaction
}

// candidate is a register row before ordering: the sort key is (date, source
// creation time, row id), which is stable across rebuilds, so two rebuilds
// from identical sources produce identical row sets.
type candidate struct {
	row       *domain.CashbookEntry
	createdAt time.Time
}

// buildRegister derives the full cash register for one scope from scratch.
// Structural anchors (Loan Application, Loan Approved) never reach this
// function; the repository only surfaces disbursements and repayments.
func buildRegister(companyID, branchID uuid.UUID, src registerSources) []*domain.CashbookEntry {
	var candidates []candidate

	add := func(createdAt time.Time, row *domain.CashbookEntry) {
		row.CompanyID = companyID
		row.BranchID = branchID
		candidates = append(candidates, candidate{row: row, createdAt: createdAt})
	}

	for _, m := range src.Manual {
		add(m.CreatedAt, m)
	}

	for _, ev := range src.LoanEvents {
		switch ev.Kind {
		case domain.EntryDisbursed:
			add(ev.CreatedAt, derivedRow(domain.SourceLoan, ev.EntryID, "out", ev.Date,
				fmt.Sprintf("Loan disbursed to %s", ev.BorrowerName), ev.Principal, ev.CreatedBy))
			if ev.ProcessingFee.IsPositive() {
				// The fee is collected at disbursement, so it sorts right
				// after the disbursement row.
				add(ev.CreatedAt.Add(time.Microsecond), derivedRow(domain.SourceLoan,
					feeRowID(ev.EntryID), "in", ev.Date,
					fmt.Sprintf("Processing fee received from %s", ev.BorrowerName),
					ev.ProcessingFee, ev.CreatedBy))
			}
		case domain.EntryRepayment:
			add(ev.CreatedAt, derivedRow(domain.SourceLoan, ev.EntryID, "in", ev.Date,
				fmt.Sprintf("Loan repayment by %s", ev.BorrowerName), ev.Amount, ev.CreatedBy))
		}
	}

	for _, t := range src.Transfers {
		direction := "out" // deposit to bank drains the register
		particulars := fmt.Sprintf("Bank deposit - Ref: %s", orNA(t.Reference))
		if t.TransferType == domain.TransferWithdraw {
			direction = "in"
			particulars = fmt.Sprintf("Bank withdrawal - Ref: %s", orNA(t.Reference))
		}
		add(t.CreatedAt, derivedRow(domain.SourceTransfer, t.ID, direction, t.TransferDate, particulars, t.Amount, t.CreatedBy))
	}

	for _, e := range src.Expenses {
		add(e.CreatedAt, derivedRow(domain.SourceExpense, e.ID, "out", e.Date,
			fmt.Sprintf("Expense: %s", e.Description), e.Amount, e.CreatedBy))
	}

	for _, o := range src.Incomes {
		add(o.CreatedAt, derivedRow(domain.SourceOtherIncome, o.ID, "in", o.IncomeDate,
			fmt.Sprintf("Other income: %s", o.Description), o.Amount, o.CreatedBy))
	}

	for _, sv := range src.Savings {
		direction, particulars := "in", fmt.Sprintf("Savings deposit by %s", sv.BorrowerName)
		if sv.TransactionType == domain.SavingsWithdrawal {
			direction = "out"
			particulars = fmt.Sprintf("Savings withdrawal by %s", sv.BorrowerName)
		}
		add(sv.CreatedAt, derivedRow(domain.SourceSavings, sv.ID, direction, sv.Date, particulars, sv.Amount, sv.CreatedBy))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := dateOnly(candidates[i].row.Date), dateOnly(candidates[j].row.Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		if !candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].createdAt.Before(candidates[j].createdAt)
		}
		return candidates[i].row.ID.String() < candidates[j].row.ID.String()
	})

	rows := make([]*domain.CashbookEntry, 0, len(candidates))
	running := decimal.Zero
	for i, c := range candidates {
		c.row.Seq = i + 1
		running = running.Add(c.row.Credit).Sub(c.row.Debit)
		c.row.Balance = running
		rows = append(rows, c.row)
	}

	return rows
}

// derivedRow builds a register row for a source record. Row IDs are derived
// from the source ID, so rebuilding from the same sources yields the same
// IDs.
func derivedRow(source domain.CashSource, sourceID uuid.UUID, direction string, date time.Time, particulars string, amount decimal.Decimal, createdBy uuid.UUID) *domain.CashbookEntry {
	row := &domain.CashbookEntry{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(source)+":"+sourceID.String())),
		Date:        dateOnly(date),
		Particulars: particulars,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		Source:      source,
		SourceID:    sourceID,
		CreatedBy:   createdBy,
		CreatedAt:   date,
	}
	if direction == "in" {
		row.Credit = amount
	} else {
		row.Debit = amount
	}
	return row
}

// feeRowID keeps the processing-fee row distinct from the disbursement row
// derived from the same ledger entry.
func feeRowID(entryID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("fee:"+entryID.String()))
}

func orNA(ref string) string {
	if ref == "" {
		return "N/A"
	}
	return ref
}

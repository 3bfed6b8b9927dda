package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind tags a ledger entry. Anchor kinds record loan issuance state and
// are immutable; mutable kinds are created by user or system action and drive
// the waterfall allocation on replay.
type EntryKind string

const (
	EntryApplication        EntryKind = "Loan Application"
	EntryApproved           EntryKind = "Loan Approved"
	EntryDisbursed          EntryKind = "Loan Disbursed"
	EntryRepayment          EntryKind = "Loan Repayment"
	EntryCumulativeInterest EntryKind = "Cumulative Interest"
)

// IsAnchor reports whether the kind marks issuance state rather than a
// payment or charge. Anchors reject edit and delete.
func (k EntryKind) IsAnchor() bool {
	switch k {
	case EntryApplication, EntryApproved, EntryDisbursed:
		return true
	}
	return false
}

// CashAffecting reports whether entries of this kind move cash through the
// register. Application and Approved are structural only.
func (k EntryKind) CashAffecting() bool {
	return k == EntryDisbursed || k == EntryRepayment
}

// Valid reports whether k is one of the known kinds.
func (k EntryKind) Valid() bool {
	return k.IsAnchor() || k == EntryRepayment || k == EntryCumulativeInterest
}

// LedgerEntry is one row of a loan's transaction log, ordered by (Date, Seq).
// Seq is assigned at insertion and never changes, so edits that move an entry's
// date keep a stable tiebreak among same-day entries.
//
// Amount is the gross payment for repayment entries and the charge for
// cumulative-interest entries. The allocation fields (Principal, Interest,
// CumulativeInt) and every balance field are outputs of replay; whatever was
// stored before is discarded and rewritten on each mutation.
type LedgerEntry struct {
	ID     uuid.UUID `json:"id" db:"id"`
	LoanID uuid.UUID `json:"loan_id" db:"loan_id"`
	Kind   EntryKind `json:"kind" db:"kind"`
	Date   time.Time `json:"date" db:"date"`
	Seq    int       `json:"seq" db:"seq"`

	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Principal     decimal.Decimal `json:"principal" db:"principal"`
	Interest      decimal.Decimal `json:"interest" db:"interest"`
	CumulativeInt decimal.Decimal `json:"cumulative_interest" db:"cumulative_interest"`

	PrincipalBal     decimal.Decimal `json:"principal_balance" db:"principal_balance"`
	InterestBal      decimal.Decimal `json:"interest_balance" db:"interest_balance"`
	CumulativeIntBal decimal.Decimal `json:"cumulative_interest_balance" db:"cumulative_interest_balance"`
	RunningBal       decimal.Decimal `json:"running_balance" db:"running_balance"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LoanCashEvent is the flattened view of a cash-affecting ledger entry that
// the cash projection builder consumes: one per disbursement or repayment,
// joined with the borrower name and (for disbursements) the processing fee.
type LoanCashEvent struct {
	EntryID       uuid.UUID       `db:"entry_id"`
	Kind          EntryKind       `db:"kind"`
	Date          time.Time       `db:"date"`
	Seq           int             `db:"seq"`
	Amount        decimal.Decimal `db:"amount"`
	Principal     decimal.Decimal `db:"principal"`
	ProcessingFee decimal.Decimal `db:"processing_fee"`
	BorrowerName  string          `db:"borrower_name"`
	CreatedBy     uuid.UUID       `db:"created_by"`
	CreatedAt     time.Time       `db:"created_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan lifecycle status, derived by ledger replay and never written directly.
const (
	LoanStatusPending       = "Pending"
	LoanStatusPartiallyPaid = "Partially Paid"
	LoanStatusPaid          = "Paid"
	LoanStatusInArrears     = "In Arrears"
)

// Approval workflow status.
const (
	ApprovalPending   = "pending"
	ApprovalApproved  = "approved"
	ApprovalDisbursed = "disbursed"
)

// Loan is the aggregate root of a ledger. AmountPaid, RemainingBal,
// TotalDue, CumulativeInt and Status are snapshot fields rewritten by
// replay after every ledger mutation; everything else is set at creation.
type Loan struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	LoanID         string          `json:"loan_id" db:"loan_id"`
	CompanyID      uuid.UUID       `json:"company_id" db:"company_id"`
	BranchID       uuid.UUID       `json:"branch_id" db:"branch_id"`
	BorrowerName   string          `json:"borrower_name" db:"borrower_name"`
	Principal      decimal.Decimal `json:"principal" db:"principal"`
	ProcessingFee  decimal.Decimal `json:"processing_fee" db:"processing_fee"`
	InterestRate   decimal.Decimal `json:"interest_rate" db:"interest_rate"` // percent, e.g. 20 for 20%
	TotalDue       decimal.Decimal `json:"total_due" db:"total_due"`
	AmountPaid     decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	RemainingBal   decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	CumulativeInt  decimal.Decimal `json:"cumulative_interest" db:"cumulative_interest"`
	Date           time.Time       `json:"date" db:"date"`
	DueDate        time.Time       `json:"due_date" db:"due_date"`
	Status         string          `json:"status" db:"status"`
	ApprovalStatus string          `json:"approval_status" db:"approval_status"`
	CreatedBy      uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// InterestDue is the contractual interest exposure: principal * rate / 100.
func (l *Loan) InterestDue() decimal.Decimal {
	return l.Principal.Mul(l.InterestRate).Div(decimal.NewFromInt(100)).Round(2)
}

// Scope identifies the tenant, branch and acting user for a core call.
// It is always passed explicitly; there is no ambient session state.
type Scope struct {
	CompanyID uuid.UUID `json:"company_id" db:"company_id"`
	BranchID  uuid.UUID `json:"branch_id" db:"branch_id"`
	ActorID   uuid.UUID `json:"actor_id" db:"-"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	BorrowerName  string          `json:"borrower_name" validate:"required"`
	Principal     decimal.Decimal `json:"principal" validate:"required"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	InterestRate  decimal.Decimal `json:"interest_rate"` // falls back to the configured default when omitted
	DurationDays  int             `json:"duration_days" validate:"required,gt=0"`
	Date          time.Time       `json:"date" validate:"required"`
}

type AppendEntryRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Date   time.Time       `json:"date" validate:"required"`
}

type EditEntryRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Date   *time.Time       `json:"date,omitempty"`
}

type LedgerResponse struct {
	Loan    *Loan          `json:"loan"`
	Entries []*LedgerEntry `json:"entries"`
}

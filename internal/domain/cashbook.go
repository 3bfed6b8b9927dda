package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cashbook row provenance. Manual rows are hand-authored and survive rebuilds;
// every other source is derived and regenerated from scratch on each rebuild.
type CashSource string

const (
	SourceManual      CashSource = "manual"
	SourceLoan        CashSource = "loan"
	SourceTransfer    CashSource = "transfer"
	SourceExpense     CashSource = "expense"
	SourceOtherIncome CashSource = "other_income"
	SourceSavings     CashSource = "savings"
)

// CashbookEntry is one row of the consolidated cash register for a
// (company, branch) scope. Balance is the running total credit-debit in
// (Date, Seq) order and is recomputed for every row on rebuild, manual rows
// included.
type CashbookEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CompanyID   uuid.UUID       `json:"company_id" db:"company_id"`
	BranchID    uuid.UUID       `json:"branch_id" db:"branch_id"`
	Date        time.Time       `json:"date" db:"date"`
	Seq         int             `json:"seq" db:"seq"`
	Particulars string          `json:"particulars" db:"particulars"`
	Debit       decimal.Decimal `json:"debit" db:"debit"`
	Credit      decimal.Decimal `json:"credit" db:"credit"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	Source      CashSource      `json:"source" db:"source"`
	SourceID    uuid.UUID       `json:"source_id" db:"source_id"`
	CreatedBy   uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Bank transfer direction.
const (
	TransferDeposit  = "deposit"
	TransferWithdraw = "withdraw"
)

// BankTransfer moves cash between the register and the bank. A deposit takes
// cash out of the register (debit); a withdrawal brings cash in (credit).
type BankTransfer struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	CompanyID    uuid.UUID       `json:"company_id" db:"company_id"`
	BranchID     uuid.UUID       `json:"branch_id" db:"branch_id"`
	TransferType string          `json:"transfer_type" db:"transfer_type"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Reference    string          `json:"reference" db:"reference"`
	TransferDate time.Time       `json:"transfer_date" db:"transfer_date"`
	CreatedBy    uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Expense is an operating cost paid out of the register.
type Expense struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CompanyID   uuid.UUID       `json:"company_id" db:"company_id"`
	BranchID    uuid.UUID       `json:"branch_id" db:"branch_id"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category" db:"category"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Date        time.Time       `json:"date" db:"date"`
	CreatedBy   uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// OtherIncome is non-loan revenue received into the register.
type OtherIncome struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CompanyID   uuid.UUID       `json:"company_id" db:"company_id"`
	BranchID    uuid.UUID       `json:"branch_id" db:"branch_id"`
	Description string          `json:"description" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	IncomeDate  time.Time       `json:"income_date" db:"income_date"`
	CreatedBy   uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Savings transaction direction.
const (
	SavingsDeposit    = "deposit"
	SavingsWithdrawal = "withdrawal"
)

// SavingsTransaction records borrower savings moving through the register.
type SavingsTransaction struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	CompanyID       uuid.UUID       `json:"company_id" db:"company_id"`
	BranchID        uuid.UUID       `json:"branch_id" db:"branch_id"`
	AccountNumber   string          `json:"account_number" db:"account_number"`
	BorrowerName    string          `json:"borrower_name" db:"borrower_name"`
	TransactionType string          `json:"transaction_type" db:"transaction_type"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Date            time.Time       `json:"date" db:"date"`
	CreatedBy       uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// DTOs

type ManualEntryRequest struct {
	Date        time.Time       `json:"date" validate:"required"`
	Particulars string          `json:"particulars" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type TransferRequest struct {
	TransferType string          `json:"transfer_type" validate:"required,oneof=deposit withdraw"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	Reference    string          `json:"reference"`
	Date         time.Time       `json:"date" validate:"required"`
}

type ExpenseRequest struct {
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Date        time.Time       `json:"date" validate:"required"`
}

type OtherIncomeRequest struct {
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Date        time.Time       `json:"date" validate:"required"`
}

type SavingsTransactionRequest struct {
	AccountNumber   string          `json:"account_number" validate:"required"`
	BorrowerName    string          `json:"borrower_name" validate:"required"`
	TransactionType string          `json:"transaction_type" validate:"required,oneof=deposit withdrawal"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Date            time.Time       `json:"date" validate:"required"`
}

type CashbookResponse struct {
	Entries     []*CashbookEntry `json:"entries"`
	TotalDebit  decimal.Decimal  `json:"total_debit"`
	TotalCredit decimal.Decimal  `json:"total_credit"`
	Balance     decimal.Decimal  `json:"balance"`
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lendwell/ledger-engine/internal/domain"
)

// LoanRepository defines the interface for loan and ledger data operations
type LoanRepository interface {
	// Create inserts a loan together with its initial anchor entries in one
	// transaction.
	Create(ctx context.Context, loan *domain.Loan, entries []*domain.LedgerEntry) error

	// GetByID retrieves a loan by its primary key
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// ListByScope retrieves loans for a company/branch
	ListByScope(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.Loan, error)

	// ListOverdue retrieves approved loans with a due date before the cutoff
	// and a positive remaining balance
	ListOverdue(ctx context.Context, companyID, branchID uuid.UUID, cutoff time.Time) ([]*domain.Loan, error)

	// ActiveScopes retrieves every (company, branch) pair that holds open
	// loans, used by the scheduler to fan out the overdue-interest job
	ActiveScopes(ctx context.Context) ([]domain.Scope, error)

	// Delete removes a loan; ledger entries cascade
	Delete(ctx context.Context, id uuid.UUID) error

	// NextLoanSeq returns the next human-readable loan number for a
	// company: one past the highest ever issued, so deletes never free a
	// number for reuse
	NextLoanSeq(ctx context.Context, companyID uuid.UUID) (int, error)

	// Ledger retrieves all entries for a loan ordered by (date, seq)
	Ledger(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerEntry, error)

	// EntryByID retrieves a single ledger entry
	EntryByID(ctx context.Context, entryID uuid.UUID) (*domain.LedgerEntry, error)

	// ApplyReplay persists the outcome of one mutation plus replay in a
	// single transaction: an optional entry delete, an upsert of every
	// recomputed entry, and the loan snapshot update. Nothing may observe
	// the entry write without the recomputed balances.
	ApplyReplay(ctx context.Context, loan *domain.Loan, entries []*domain.LedgerEntry, deleted *uuid.UUID) error

	// CashEvents retrieves the cash-affecting ledger entries for a scope,
	// joined with borrower names and processing fees
	CashEvents(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.LoanCashEvent, error)
}

// CashbookRepository defines the interface for the cash register projection
// and its non-ledger source records
type CashbookRepository interface {
	// Entries retrieves register rows for a scope ordered by (date, seq),
	// optionally bounded by a date range
	Entries(ctx context.Context, companyID, branchID uuid.UUID, from, to *time.Time) ([]*domain.CashbookEntry, error)

	// ManualEntries retrieves only hand-authored rows for a scope
	ManualEntries(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.CashbookEntry, error)

	// ReplaceRegister atomically swaps the register for a scope: delete all
	// derived rows, upsert the rebuilt row set. Manual rows outside the
	// rebuilt set are left in place.
	ReplaceRegister(ctx context.Context, companyID, branchID uuid.UUID, rows []*domain.CashbookEntry) error

	// InsertManual adds a hand-authored register row
	InsertManual(ctx context.Context, entry *domain.CashbookEntry) error

	InsertTransfer(ctx context.Context, t *domain.BankTransfer) error
	Transfers(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.BankTransfer, error)

	InsertExpense(ctx context.Context, e *domain.Expense) error
	Expenses(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.Expense, error)

	InsertOtherIncome(ctx context.Context, o *domain.OtherIncome) error
	OtherIncomes(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.OtherIncome, error)

	InsertSavingsTransaction(ctx context.Context, s *domain.SavingsTransaction) error
	SavingsTransactions(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.SavingsTransaction, error)
}

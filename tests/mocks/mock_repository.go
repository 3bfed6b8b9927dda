package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lendwell/ledger-engine/internal/domain"
)

// MockLoanRepository is a mock implementation of repository.LoanRepository
type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan, entries []*domain.LedgerEntry) error {
	args := m.Called(ctx, loan, entries)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListByScope(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.Loan, error) {
	args := m.Called(ctx, companyID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListOverdue(ctx context.Context, companyID, branchID uuid.UUID, cutoff time.Time) ([]*domain.Loan, error) {
	args := m.Called(ctx, companyID, branchID, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ActiveScopes(ctx context.Context) ([]domain.Scope, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Scope), args.Error(1)
}

func (m *MockLoanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanRepository) NextLoanSeq(ctx context.Context, companyID uuid.UUID) (int, error) {
	args := m.Called(ctx, companyID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) Ledger(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerEntry), args.Error(1)
}

func (m *MockLoanRepository) EntryByID(ctx context.Context, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockLoanRepository) ApplyReplay(ctx context.Context, loan *domain.Loan, entries []*domain.LedgerEntry, deleted *uuid.UUID) error {
	args := m.Called(ctx, loan, entries, deleted)
	return args.Error(0)
}

func (m *MockLoanRepository) CashEvents(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.LoanCashEvent, error) {
	args := m.Called(ctx, companyID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanCashEvent), args.Error(1)
}

// MockCashbookRepository is a mock implementation of repository.CashbookRepository
type MockCashbookRepository struct {
	mock.Mock
}

func (m *MockCashbookRepository) Entries(ctx context.Context, companyID, branchID uuid.UUID, from, to *time.Time) ([]*domain.CashbookEntry, error) {
	args := m.Called(ctx, companyID, branchID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CashbookEntry), args.Error(1)
}

func (m *MockCashbookRepository) ManualEntries(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.CashbookEntry, error) {
	args := m.Called(ctx, companyID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CashbookEntry), args.Error(1)
}

func (m *MockCashbookRepository) ReplaceRegister(ctx context.Context, companyID, branchID uuid.UUID, rows []*domain.CashbookEntry) error {
	args := m.Called(ctx, companyID, branchID, rows)
	return args.Error(0)
}

func (m *MockCashbookRepository) InsertManual(ctx context.Context, entry *domain.CashbookEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockCashbookRepository) InsertTransfer(ctx context.Context, t *domain.BankTransfer) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockCashbookRepository) Transfers(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.BankTransfer, error) {
	args := m.Called(ctx, companyID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BankTransfer), args.Error(1)
}

func (m *MockCashbookRepository) InsertExpense(ctx context.Context, e *domain.Expense) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockCashbookRepository) Expenses(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.Expense, error) {
	args := m.Called(ctx, companyID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Expense), args.Error(1)
}

func (m *MockCashbookRepository) InsertOtherIncome(ctx context.Context, o *domain.OtherIncome) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockCashbookRepository) OtherIncomes(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.OtherIncome, error) {
	args := m.Called(ctx, companyID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OtherIncome), args.Error(1)
}

func (m *MockCashbookRepository) InsertSavingsTransaction(ctx context.Context, s *domain.SavingsTransaction) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockCashbookRepository) SavingsTransactions(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.SavingsTransaction, error) {
	args := m.Called(ctx, companyID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SavingsTransaction), args.Error(1)
}

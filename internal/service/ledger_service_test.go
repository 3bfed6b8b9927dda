package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lendwell/ledger-engine/internal/config"
	"github.com/lendwell/ledger-engine/internal/domain"
	customError "github.com/lendwell/ledger-engine/pkg/errors"
	"github.com/lendwell/ledger-engine/tests/mocks"
)

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) MarkDirty(ctx context.Context, companyID, branchID uuid.UUID) {
	f.calls++
}

func newTestService(repo *mocks.MockLoanRepository, register *fakeInvalidator) *LedgerService {
	return &LedgerService{
		loanRepo: repo,
		register: register,
		config: &config.Config{
			Business: config.BusinessConfig{
				DefaultInterestRate: "20",
				OverdueGraceDays:    3,
			},
		},
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC) },
	}
}

func assertBusinessCode(t *testing.T, err error, code string) {
	t.Helper()
	var bizErr *customError.BusinessError
	require.True(t, errors.As(err, &bizErr), "expected BusinessError, got %v", err)
	assert.Equal(t, code, bizErr.Code)
}

func TestCreateLoan_DefaultInterestRate(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New(), ActorID: uuid.New()}

	mockRepo.On("NextLoanSeq", mock.Anything, scope.CompanyID).Return(5, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.LoanID == fmt.Sprintf("C%s-T00005", scope.CompanyID) &&
			loan.InterestRate.Equal(d("20"))
	}), mock.MatchedBy(func(entries []*domain.LedgerEntry) bool {
		return len(entries) == 1 && entries[0].Kind == domain.EntryApplication
	})).Return(nil)

	loan, err := service.CreateLoan(context.Background(), scope, &domain.CreateLoanRequest{
		BorrowerName: "Okello James",
		Principal:    d("1000"),
		DurationDays: 30,
		Date:         time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.True(t, loan.InterestRate.Equal(d("20")))
	assert.True(t, loan.TotalDue.Equal(d("1200")))
	assert.Equal(t, domain.ApprovalPending, loan.ApprovalStatus)
	mockRepo.AssertExpectations(t)
}

func TestCreateLoan_SequenceSurvivesDeletes(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New(), ActorID: uuid.New()}

	// Five numbers issued, one loan since deleted: the next number is still
	// one past the highest, never a reused one.
	mockRepo.On("NextLoanSeq", mock.Anything, scope.CompanyID).Return(6, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.LoanID == fmt.Sprintf("C%s-T00006", scope.CompanyID)
	}), mock.Anything).Return(nil)

	loan, err := service.CreateLoan(context.Background(), scope, &domain.CreateLoanRequest{
		BorrowerName: "Amina K",
		Principal:    d("500"),
		InterestRate: d("20"),
		DurationDays: 14,
		Date:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("C%s-T00006", scope.CompanyID), loan.LoanID)
	mockRepo.AssertExpectations(t)
}

func TestGetLoan_NotFound(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	loanID := uuid.New()
	mockRepo.On("GetByID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

	loan, err := service.GetLoan(context.Background(), loanID)

	assert.Nil(t, loan)
	assertBusinessCode(t, err, customError.ErrCodeNotFound)
	assert.True(t, errors.Is(err, customError.ErrLoanNotFound))
	mockRepo.AssertExpectations(t)
}

func TestEditEntry_AnchorImmutable(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	entryID := uuid.New()
	mockRepo.On("EntryByID", mock.Anything, entryID).Return(&domain.LedgerEntry{
		ID:     entryID,
		LoanID: uuid.New(),
		Kind:   domain.EntryDisbursed,
	}, nil)

	amount := d("500")
	entry, err := service.EditEntry(context.Background(), entryID, &domain.EditEntryRequest{Amount: &amount})

	assert.Nil(t, entry)
	assertBusinessCode(t, err, customError.ErrCodeImmutable)
	mockRepo.AssertNotCalled(t, "ApplyReplay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteEntry_AnchorImmutable(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	entryID := uuid.New()
	mockRepo.On("EntryByID", mock.Anything, entryID).Return(&domain.LedgerEntry{
		ID:     entryID,
		LoanID: uuid.New(),
		Kind:   domain.EntryApplication,
	}, nil)

	err := service.DeleteEntry(context.Background(), entryID)

	assertBusinessCode(t, err, customError.ErrCodeImmutable)
	mockRepo.AssertNotCalled(t, "ApplyReplay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAppendRepayment_InvalidAmount(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-50"},
		{"sub-cent precision", "100.123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := service.AppendRepayment(context.Background(), uuid.New(), d(tt.amount), time.Now())

			assert.Nil(t, entry)
			assertBusinessCode(t, err, customError.ErrCodeInvalid)
		})
	}

	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAppendRepayment_NotDisbursed(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	loan := testLoan("1000", "20")
	loan.ApprovalStatus = domain.ApprovalApproved

	mockRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockRepo.On("Ledger", mock.Anything, loan.ID).Return(anchoredLedger(loan)[:2], nil)

	entry, err := service.AppendRepayment(context.Background(), loan.ID, d("100"), time.Now())

	assert.Nil(t, entry)
	assertBusinessCode(t, err, customError.ErrCodeLoanClosed)
	assert.True(t, errors.Is(err, customError.ErrNotDisbursed))
}

func TestAppendRepayment_LoanClosed(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	loan := testLoan("1000", "20")
	loan.Status = domain.LoanStatusPaid

	mockRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockRepo.On("Ledger", mock.Anything, loan.ID).Return(anchoredLedger(loan), nil)

	entry, err := service.AppendRepayment(context.Background(), loan.ID, d("100"), time.Now())

	assert.Nil(t, entry)
	assertBusinessCode(t, err, customError.ErrCodeLoanClosed)
	assert.True(t, errors.Is(err, customError.ErrLoanClosed))
}

func TestAppendRepayment_Success(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	register := &fakeInvalidator{}
	service := newTestService(mockRepo, register)

	loan := testLoan("1000", "20")

	mockRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockRepo.On("Ledger", mock.Anything, loan.ID).Return(anchoredLedger(loan), nil)
	mockRepo.On("ApplyReplay", mock.Anything, loan, mock.MatchedBy(func(entries []*domain.LedgerEntry) bool {
		return len(entries) == 4 && entries[3].Kind == domain.EntryRepayment
	}), (*uuid.UUID)(nil)).Return(nil)

	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	entry, err := service.AppendRepayment(context.Background(), loan.ID, d("150"), date)

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Interest.Equal(d("150")))
	assert.True(t, entry.Principal.IsZero())
	assert.True(t, loan.RemainingBal.Equal(d("1050")))
	assert.Equal(t, domain.LoanStatusPartiallyPaid, loan.Status)
	assert.Equal(t, 1, register.calls)
	mockRepo.AssertExpectations(t)
}

func TestApproveLoan_Transitions(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	register := &fakeInvalidator{}
	service := newTestService(mockRepo, register)

	loan := testLoan("1000", "20")
	loan.ApprovalStatus = domain.ApprovalPending

	mockRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockRepo.On("Ledger", mock.Anything, loan.ID).Return(anchoredLedger(loan)[:1], nil)
	mockRepo.On("ApplyReplay", mock.Anything, loan, mock.Anything, (*uuid.UUID)(nil)).Return(nil)

	got, err := service.ApproveLoan(context.Background(), loan.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, got.ApprovalStatus)
	// Approval does not move cash.
	assert.Equal(t, 0, register.calls)
}

func TestApproveLoan_AlreadyApproved(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	loan := testLoan("1000", "20")
	loan.ApprovalStatus = domain.ApprovalApproved

	mockRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockRepo.On("Ledger", mock.Anything, loan.ID).Return(anchoredLedger(loan)[:2], nil)

	got, err := service.ApproveLoan(context.Background(), loan.ID)

	assert.Nil(t, got)
	assert.True(t, errors.Is(err, customError.ErrAlreadyApproved))
	mockRepo.AssertNotCalled(t, "ApplyReplay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListLoans(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	service := newTestService(mockRepo, &fakeInvalidator{})

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New()}
	mockRepo.On("ListByScope", mock.Anything, scope.CompanyID, scope.BranchID).
		Return([]*domain.Loan{testLoan("1000", "20")}, nil)

	loans, err := service.ListLoans(context.Background(), scope)

	require.NoError(t, err)
	assert.Len(t, loans, 1)
	mockRepo.AssertExpectations(t)
}

func TestApplyOverdueInterest_ChargesOncePerDay(t *testing.T) {
	mockRepo := &mocks.MockLoanRepository{}
	register := &fakeInvalidator{}
	service := newTestService(mockRepo, register)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New()}

	fresh := testLoan("1000", "20")
	fresh.RemainingBal = d("500")
	fresh.AmountPaid = d("700")

	charged := testLoan("2000", "20")
	charged.RemainingBal = d("2400")
	chargedEntries := append(anchoredLedger(charged),
		testEntry(charged.ID, domain.EntryCumulativeInterest, 20, "400", 4))

	mockRepo.On("ListOverdue", mock.Anything, scope.CompanyID, scope.BranchID, mock.Anything).
		Return([]*domain.Loan{fresh, charged}, nil)
	mockRepo.On("GetByID", mock.Anything, fresh.ID).Return(fresh, nil)
	mockRepo.On("Ledger", mock.Anything, fresh.ID).Return(anchoredLedger(fresh), nil)
	mockRepo.On("Ledger", mock.Anything, charged.ID).Return(chargedEntries, nil)
	mockRepo.On("ApplyReplay", mock.Anything, fresh, mock.MatchedBy(func(entries []*domain.LedgerEntry) bool {
		last := entries[len(entries)-1]
		return last.Kind == domain.EntryCumulativeInterest && last.Amount.Equal(d("100"))
	}), (*uuid.UUID)(nil)).Return(nil)

	count, err := service.ApplyOverdueInterest(context.Background(), scope)

	require.NoError(t, err)
	// The loan already charged today is skipped.
	assert.Equal(t, 1, count)
	mockRepo.AssertExpectations(t)
}

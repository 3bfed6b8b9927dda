package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lendwell/ledger-engine/internal/config"
	"github.com/lendwell/ledger-engine/internal/domain"
	customError "github.com/lendwell/ledger-engine/pkg/errors"
	"github.com/lendwell/ledger-engine/tests/mocks"
)

func newTestCashbookService(cashRepo *mocks.MockCashbookRepository, loanRepo *mocks.MockLoanRepository) *CashbookService {
	return &CashbookService{
		cashRepo: cashRepo,
		loanRepo: loanRepo,
		config:   &config.Config{},
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) },
		dirty:    make(map[string]bool),
	}
}

func emptySources(cashRepo *mocks.MockCashbookRepository, loanRepo *mocks.MockLoanRepository, companyID, branchID uuid.UUID) {
	cashRepo.On("ManualEntries", mock.Anything, companyID, branchID).Return([]*domain.CashbookEntry{}, nil)
	loanRepo.On("CashEvents", mock.Anything, companyID, branchID).Return([]*domain.LoanCashEvent{}, nil)
	cashRepo.On("Transfers", mock.Anything, companyID, branchID).Return([]*domain.BankTransfer{}, nil)
	cashRepo.On("Expenses", mock.Anything, companyID, branchID).Return([]*domain.Expense{}, nil)
	cashRepo.On("OtherIncomes", mock.Anything, companyID, branchID).Return([]*domain.OtherIncome{}, nil)
	cashRepo.On("SavingsTransactions", mock.Anything, companyID, branchID).Return([]*domain.SavingsTransaction{}, nil)
}

func TestGetCashbook_RebuildsWhenDirty(t *testing.T) {
	cashRepo := &mocks.MockCashbookRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestCashbookService(cashRepo, loanRepo)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New()}

	emptySources(cashRepo, loanRepo, scope.CompanyID, scope.BranchID)
	cashRepo.On("ReplaceRegister", mock.Anything, scope.CompanyID, scope.BranchID, mock.Anything).Return(nil)
	cashRepo.On("Entries", mock.Anything, scope.CompanyID, scope.BranchID, (*time.Time)(nil), (*time.Time)(nil)).
		Return([]*domain.CashbookEntry{
			{Debit: d("100"), Credit: decimal.Zero, Balance: d("-100")},
			{Debit: decimal.Zero, Credit: d("300"), Balance: d("200")},
		}, nil)

	service.MarkDirty(context.Background(), scope.CompanyID, scope.BranchID)

	resp, err := service.GetCashbook(context.Background(), scope, nil, nil)

	require.NoError(t, err)
	assert.True(t, resp.TotalDebit.Equal(d("100")))
	assert.True(t, resp.TotalCredit.Equal(d("300")))
	assert.True(t, resp.Balance.Equal(d("200")))
	cashRepo.AssertCalled(t, "ReplaceRegister", mock.Anything, scope.CompanyID, scope.BranchID, mock.Anything)

	// The flag is consumed by the rebuild.
	assert.False(t, service.isDirty(context.Background(), scopeKey(scope.CompanyID, scope.BranchID)))
}

func TestGetCashbook_CleanScopeSkipsRebuild(t *testing.T) {
	cashRepo := &mocks.MockCashbookRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestCashbookService(cashRepo, loanRepo)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New()}

	cashRepo.On("Entries", mock.Anything, scope.CompanyID, scope.BranchID, (*time.Time)(nil), (*time.Time)(nil)).
		Return([]*domain.CashbookEntry{}, nil)

	resp, err := service.GetCashbook(context.Background(), scope, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, resp.Entries)
	cashRepo.AssertNotCalled(t, "ReplaceRegister", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddManualEntry_WaitsForRebuild(t *testing.T) {
	cashRepo := &mocks.MockCashbookRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestCashbookService(cashRepo, loanRepo)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New(), ActorID: uuid.New()}

	reading := make(chan struct{})
	release := make(chan struct{})
	var replaced atomic.Bool

	cashRepo.On("ManualEntries", mock.Anything, scope.CompanyID, scope.BranchID).
		Run(func(mock.Arguments) {
			close(reading)
			<-release
		}).
		Return([]*domain.CashbookEntry{}, nil)
	loanRepo.On("CashEvents", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.LoanCashEvent{}, nil)
	cashRepo.On("Transfers", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.BankTransfer{}, nil)
	cashRepo.On("Expenses", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.Expense{}, nil)
	cashRepo.On("OtherIncomes", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.OtherIncome{}, nil)
	cashRepo.On("SavingsTransactions", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.SavingsTransaction{}, nil)
	cashRepo.On("ReplaceRegister", mock.Anything, scope.CompanyID, scope.BranchID, mock.Anything).
		Run(func(mock.Arguments) { replaced.Store(true) }).
		Return(nil)

	// A manual row written while the rebuild holds the scope would be
	// invisible to the row set the rebuild persists. The insert must wait.
	cashRepo.On("InsertManual", mock.Anything, mock.MatchedBy(func(e *domain.CashbookEntry) bool {
		return replaced.Load()
	})).Return(nil)

	rebuildDone := make(chan error, 1)
	go func() { rebuildDone <- service.Rebuild(context.Background(), scope) }()
	<-reading

	insertDone := make(chan error, 1)
	go func() {
		_, err := service.AddManualEntry(context.Background(), scope, &domain.ManualEntryRequest{
			Date:        time.Now(),
			Particulars: "Opening float",
			Credit:      d("500"),
		})
		insertDone <- err
	}()

	// Give the insert time to reach the scope lock, then let the rebuild
	// finish.
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-rebuildDone)
	require.NoError(t, <-insertDone)
	cashRepo.AssertExpectations(t)
}

func TestRebuild_KeepsFlagForMidRebuildMutation(t *testing.T) {
	cashRepo := &mocks.MockCashbookRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestCashbookService(cashRepo, loanRepo)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New()}
	key := scopeKey(scope.CompanyID, scope.BranchID)

	// A ledger-side mutation commits and marks the scope while the rebuild
	// is reading its sources.
	cashRepo.On("ManualEntries", mock.Anything, scope.CompanyID, scope.BranchID).
		Run(func(mock.Arguments) {
			service.MarkDirty(context.Background(), scope.CompanyID, scope.BranchID)
		}).
		Return([]*domain.CashbookEntry{}, nil)
	loanRepo.On("CashEvents", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.LoanCashEvent{}, nil)
	cashRepo.On("Transfers", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.BankTransfer{}, nil)
	cashRepo.On("Expenses", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.Expense{}, nil)
	cashRepo.On("OtherIncomes", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.OtherIncome{}, nil)
	cashRepo.On("SavingsTransactions", mock.Anything, scope.CompanyID, scope.BranchID).Return([]*domain.SavingsTransaction{}, nil)
	cashRepo.On("ReplaceRegister", mock.Anything, scope.CompanyID, scope.BranchID, mock.Anything).Return(nil)

	service.MarkDirty(context.Background(), scope.CompanyID, scope.BranchID)
	require.NoError(t, service.Rebuild(context.Background(), scope))

	// The mid-rebuild mark survives, so the next read rebuilds again.
	assert.True(t, service.isDirty(context.Background(), key))
}

func TestAddManualEntry_Validation(t *testing.T) {
	cashRepo := &mocks.MockCashbookRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestCashbookService(cashRepo, loanRepo)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New(), ActorID: uuid.New()}

	tests := []struct {
		name   string
		debit  string
		credit string
	}{
		{"both zero", "0", "0"},
		{"both set", "10", "10"},
		{"negative debit", "-5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := service.AddManualEntry(context.Background(), scope, &domain.ManualEntryRequest{
				Date:        time.Now(),
				Particulars: "Float adjustment",
				Debit:       d(tt.debit),
				Credit:      d(tt.credit),
			})

			assert.Nil(t, entry)
			assertBusinessCode(t, err, customError.ErrCodeInvalid)
		})
	}

	cashRepo.AssertNotCalled(t, "InsertManual", mock.Anything, mock.Anything)
}

func TestAddManualEntry_MarksDirty(t *testing.T) {
	cashRepo := &mocks.MockCashbookRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestCashbookService(cashRepo, loanRepo)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New(), ActorID: uuid.New()}

	cashRepo.On("InsertManual", mock.Anything, mock.MatchedBy(func(e *domain.CashbookEntry) bool {
		return e.Source == domain.SourceManual && e.Credit.Equal(d("500"))
	})).Return(nil)

	entry, err := service.AddManualEntry(context.Background(), scope, &domain.ManualEntryRequest{
		Date:        time.Now(),
		Particulars: "Opening float",
		Credit:      d("500"),
	})

	require.NoError(t, err)
	assert.Equal(t, scope.ActorID, entry.CreatedBy)
	assert.True(t, service.isDirty(context.Background(), scopeKey(scope.CompanyID, scope.BranchID)))
	cashRepo.AssertExpectations(t)
}

func TestRecordTransfer_UnknownType(t *testing.T) {
	cashRepo := &mocks.MockCashbookRepository{}
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestCashbookService(cashRepo, loanRepo)

	scope := domain.Scope{CompanyID: uuid.New(), BranchID: uuid.New()}

	transfer, err := service.RecordTransfer(context.Background(), scope, &domain.TransferRequest{
		TransferType: "wire",
		Amount:       d("100"),
		Date:         time.Now(),
	})

	assert.Nil(t, transfer)
	assertBusinessCode(t, err, customError.ErrCodeInvalid)
	cashRepo.AssertNotCalled(t, "InsertTransfer", mock.Anything, mock.Anything)
}

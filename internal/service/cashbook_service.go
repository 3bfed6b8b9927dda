package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lendwell/ledger-engine/internal/config"
	"github.com/lendwell/ledger-engine/internal/domain"
	"github.com/lendwell/ledger-engine/internal/repository"
	customError "github.com/lendwell/ledger-engine/pkg/errors"
	"github.com/lendwell/ledger-engine/pkg/money"
)

// CashbookService owns the consolidated cash register. The register is a
// projection: it is never patched incrementally, only rebuilt from scratch
// for a whole (company, branch) scope. Mutations on the ledger or on any
// ancillary cash source mark the scope dirty; the rebuild runs eagerly or on
// the next read, but never later than that.
type CashbookService struct {
	cashRepo repository.CashbookRepository
	loanRepo repository.LoanRepository
	redis    *redis.Client
	config   *config.Config
	locks    *keyedMutex
	now      func() time.Time

	// In-process dirty marks. Redis carries the flag across processes; this
	// map guarantees rebuild-before-read even when redis is down.
	mu    sync.Mutex
	dirty map[string]bool
}

func NewCashbookService(
	cashRepo repository.CashbookRepository,
	loanRepo repository.LoanRepository,
	redisClient *redis.Client,
	cfg *config.Config,
) *CashbookService {
	return &CashbookService{
		cashRepo: cashRepo,
		loanRepo: loanRepo,
		redis:    redisClient,
		config:   cfg,
		locks:    newKeyedMutex(),
		now:      time.Now,
		dirty:    make(map[string]bool),
	}
}

func scopeKey(companyID, branchID uuid.UUID) string {
	return companyID.String() + ":" + branchID.String()
}

// MarkDirty flags a scope's register as stale. Never skips the in-process
// mark, so a failed redis write degrades to same-process consistency instead
// of a stale read.
func (s *CashbookService) MarkDirty(ctx context.Context, companyID, branchID uuid.UUID) {
	key := scopeKey(companyID, branchID)

	s.mu.Lock()
	s.dirty[key] = true
	s.mu.Unlock()

	if s.redis != nil {
		if err := s.redis.Set(ctx, "cashbook:dirty:"+key, "1", 0).Err(); err != nil {
			log.Warn().Err(err).Str("scope", key).Msg("failed to persist cashbook dirty flag")
		}
		if err := s.redis.Del(ctx, "cashbook:view:"+key).Err(); err != nil {
			log.Warn().Err(err).Str("scope", key).Msg("failed to drop cashbook view cache")
		}
	}
}

func (s *CashbookService) isDirty(ctx context.Context, key string) bool {
	s.mu.Lock()
	d := s.dirty[key]
	s.mu.Unlock()
	if d {
		return true
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, "cashbook:dirty:"+key).Result()
		if err != nil {
			log.Warn().Err(err).Str("scope", key).Msg("failed to read cashbook dirty flag")
			return true // can't prove the register is fresh, rebuild
		}
		return n > 0
	}

	return false
}

func (s *CashbookService) clearDirty(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.dirty, key)
	s.mu.Unlock()

	if s.redis != nil {
		if err := s.redis.Del(ctx, "cashbook:dirty:"+key).Err(); err != nil {
			log.Warn().Err(err).Str("scope", key).Msg("failed to clear cashbook dirty flag")
		}
	}
}

// Rebuild regenerates the whole register for a scope from its sources:
// re-derive, renumber, re-accumulate the running balance.
func (s *CashbookService) Rebuild(ctx context.Context, scope domain.Scope) error {
	key := scopeKey(scope.CompanyID, scope.BranchID)
	unlock := s.locks.Lock(key)
	defer unlock()

	// Clear before reading sources. A mutation that lands while the rebuild
	// is in flight re-marks the scope, so the next read rebuilds again
	// instead of serving a register missing that mutation.
	s.clearDirty(ctx, key)

	if err := s.rebuildLocked(ctx, scope.CompanyID, scope.BranchID); err != nil {
		s.MarkDirty(ctx, scope.CompanyID, scope.BranchID)
		return err
	}

	return nil
}

func (s *CashbookService) rebuildLocked(ctx context.Context, companyID, branchID uuid.UUID) error {
	var src registerSources
	var err error

	if src.Manual, err = s.cashRepo.ManualEntries(ctx, companyID, branchID); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if src.LoanEvents, err = s.loanRepo.CashEvents(ctx, companyID, branchID); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if src.Transfers, err = s.cashRepo.Transfers(ctx, companyID, branchID); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if src.Expenses, err = s.cashRepo.Expenses(ctx, companyID, branchID); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if src.Incomes, err = s.cashRepo.OtherIncomes(ctx, companyID, branchID); err != nil {
		return customError.WrapDatabaseError(err)
	}
	if src.Savings, err = s.cashRepo.SavingsTransactions(ctx, companyID, branchID); err != nil {
		return customError.WrapDatabaseError(err)
	}

	rows := buildRegister(companyID, branchID, src)

	if err := s.cashRepo.ReplaceRegister(ctx, companyID, branchID, rows); err != nil {
		return customError.WrapDatabaseError(err)
	}

	log.Debug().Str("company_id", companyID.String()).Str("branch_id", branchID.String()).
		Int("rows", len(rows)).Msg("cash register rebuilt")

	return nil
}

// GetCashbook serves the register for a scope, rebuilding first if any source
// changed since the last rebuild.
func (s *CashbookService) GetCashbook(ctx context.Context, scope domain.Scope, from, to *time.Time) (*domain.CashbookResponse, error) {
	key := scopeKey(scope.CompanyID, scope.BranchID)

	if s.isDirty(ctx, key) {
		if err := s.Rebuild(ctx, scope); err != nil {
			return nil, err
		}
	} else if cached := s.cachedView(ctx, key, from, to); cached != nil {
		return cached, nil
	}

	entries, err := s.cashRepo.Entries(ctx, scope.CompanyID, scope.BranchID, from, to)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	resp := &domain.CashbookResponse{
		Entries:     entries,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Balance:     decimal.Zero,
	}
	for _, e := range entries {
		resp.TotalDebit = resp.TotalDebit.Add(e.Debit)
		resp.TotalCredit = resp.TotalCredit.Add(e.Credit)
	}
	if len(entries) > 0 {
		resp.Balance = entries[len(entries)-1].Balance
	}

	s.cacheView(ctx, key, from, to, resp)
	return resp, nil
}

// Only the unbounded view is cached; ranged reads always hit the database.
func (s *CashbookService) cachedView(ctx context.Context, key string, from, to *time.Time) *domain.CashbookResponse {
	if s.redis == nil || from != nil || to != nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, "cashbook:view:"+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("scope", key).Msg("failed to read cashbook view cache")
		}
		return nil
	}

	var resp domain.CashbookResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.Warn().Err(err).Str("scope", key).Msg("discarding corrupt cashbook view cache")
		return nil
	}

	return &resp
}

func (s *CashbookService) cacheView(ctx context.Context, key string, from, to *time.Time, resp *domain.CashbookResponse) {
	if s.redis == nil || from != nil || to != nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, "cashbook:view:"+key, raw, s.config.Business.CashbookCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("scope", key).Msg("failed to write cashbook view cache")
	}
}

// AddManualEntry records a hand-authored register row. Exactly one of debit
// and credit must be positive.
func (s *CashbookService) AddManualEntry(ctx context.Context, scope domain.Scope, req *domain.ManualEntryRequest) (*domain.CashbookEntry, error) {
	if req.Debit.IsNegative() || req.Credit.IsNegative() {
		return nil, customError.WrapInvalidAmount("debit and credit must not be negative")
	}
	if req.Debit.IsPositive() == req.Credit.IsPositive() {
		return nil, customError.WrapInvalidAmount("exactly one of debit and credit must be set")
	}
	if !money.IsTwoDecimal(req.Debit) || !money.IsTwoDecimal(req.Credit) {
		return nil, customError.WrapInvalidAmount("amounts must have at most two decimal places")
	}

	// Manual rows are a source, not derived: inserting one mid-rebuild would
	// let the rebuild's delete-and-reinsert drop it. Serialize with rebuilds.
	unlock := s.locks.Lock(scopeKey(scope.CompanyID, scope.BranchID))
	defer unlock()

	entry := &domain.CashbookEntry{
		ID:          uuid.New(),
		CompanyID:   scope.CompanyID,
		BranchID:    scope.BranchID,
		Date:        req.Date,
		Particulars: req.Particulars,
		Debit:       req.Debit,
		Credit:      req.Credit,
		Balance:     decimal.Zero, // assigned by the next rebuild
		Source:      domain.SourceManual,
		SourceID:    uuid.Nil,
		CreatedBy:   scope.ActorID,
		CreatedAt:   s.now(),
	}

	if err := s.cashRepo.InsertManual(ctx, entry); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.MarkDirty(ctx, scope.CompanyID, scope.BranchID)
	return entry, nil
}

// RecordTransfer records a bank transfer and invalidates the register.
func (s *CashbookService) RecordTransfer(ctx context.Context, scope domain.Scope, req *domain.TransferRequest) (*domain.BankTransfer, error) {
	if err := validateAmount(req.Amount, "amount"); err != nil {
		return nil, err
	}
	if req.TransferType != domain.TransferDeposit && req.TransferType != domain.TransferWithdraw {
		return nil, customError.WrapInvalidAmount(fmt.Sprintf("unknown transfer type %q", req.TransferType))
	}

	unlock := s.locks.Lock(scopeKey(scope.CompanyID, scope.BranchID))
	defer unlock()

	transfer := &domain.BankTransfer{
		ID:           uuid.New(),
		CompanyID:    scope.CompanyID,
		BranchID:     scope.BranchID,
		TransferType: req.TransferType,
		Amount:       req.Amount,
		Reference:    req.Reference,
		TransferDate: req.Date,
		CreatedBy:    scope.ActorID,
		CreatedAt:    s.now(),
	}

	if err := s.cashRepo.InsertTransfer(ctx, transfer); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.MarkDirty(ctx, scope.CompanyID, scope.BranchID)
	return transfer, nil
}

// RecordExpense records an operating expense and invalidates the register.
func (s *CashbookService) RecordExpense(ctx context.Context, scope domain.Scope, req *domain.ExpenseRequest) (*domain.Expense, error) {
	if err := validateAmount(req.Amount, "amount"); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(scopeKey(scope.CompanyID, scope.BranchID))
	defer unlock()

	expense := &domain.Expense{
		ID:          uuid.New(),
		CompanyID:   scope.CompanyID,
		BranchID:    scope.BranchID,
		Description: req.Description,
		Category:    req.Category,
		Amount:      req.Amount,
		Date:        req.Date,
		CreatedBy:   scope.ActorID,
		CreatedAt:   s.now(),
	}

	if err := s.cashRepo.InsertExpense(ctx, expense); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.MarkDirty(ctx, scope.CompanyID, scope.BranchID)
	return expense, nil
}

// RecordOtherIncome records non-loan revenue and invalidates the register.
func (s *CashbookService) RecordOtherIncome(ctx context.Context, scope domain.Scope, req *domain.OtherIncomeRequest) (*domain.OtherIncome, error) {
	if err := validateAmount(req.Amount, "amount"); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(scopeKey(scope.CompanyID, scope.BranchID))
	defer unlock()

	income := &domain.OtherIncome{
		ID:          uuid.New(),
		CompanyID:   scope.CompanyID,
		BranchID:    scope.BranchID,
		Description: req.Description,
		Amount:      req.Amount,
		IncomeDate:  req.Date,
		CreatedBy:   scope.ActorID,
		CreatedAt:   s.now(),
	}

	if err := s.cashRepo.InsertOtherIncome(ctx, income); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.MarkDirty(ctx, scope.CompanyID, scope.BranchID)
	return income, nil
}

// RecordSavingsTransaction records a savings deposit or withdrawal and
// invalidates the register.
func (s *CashbookService) RecordSavingsTransaction(ctx context.Context, scope domain.Scope, req *domain.SavingsTransactionRequest) (*domain.SavingsTransaction, error) {
	if err := validateAmount(req.Amount, "amount"); err != nil {
		return nil, err
	}
	if req.TransactionType != domain.SavingsDeposit && req.TransactionType != domain.SavingsWithdrawal {
		return nil, customError.WrapInvalidAmount(fmt.Sprintf("unknown transaction type %q", req.TransactionType))
	}

	unlock := s.locks.Lock(scopeKey(scope.CompanyID, scope.BranchID))
	defer unlock()

	tx := &domain.SavingsTransaction{
		ID:              uuid.New(),
		CompanyID:       scope.CompanyID,
		BranchID:        scope.BranchID,
		AccountNumber:   req.AccountNumber,
		BorrowerName:    req.BorrowerName,
		TransactionType: req.TransactionType,
		Amount:          req.Amount,
		Date:            req.Date,
		CreatedBy:       scope.ActorID,
		CreatedAt:       s.now(),
	}

	if err := s.cashRepo.InsertSavingsTransaction(ctx, tx); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.MarkDirty(ctx, scope.CompanyID, scope.BranchID)
	return tx, nil
}

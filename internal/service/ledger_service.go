package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lendwell/ledger-engine/internal/config"
	"github.com/lendwell/ledger-engine/internal/domain"
	"github.com/lendwell/ledger-engine/internal/repository"
	customError "github.com/lendwell/ledger-engine/pkg/errors"
	"github.com/lendwell/ledger-engine/pkg/money"
)

// registerInvalidator is how the ledger side tells the cash projection that a
// scope's register no longer reflects its sources. The rebuild itself may be
// deferred until the next read; the flag may not.
type registerInvalidator interface {
	MarkDirty(ctx context.Context, companyID, branchID uuid.UUID)
}

// LedgerService is the only sanctioned way to mutate a loan's ledger. Every
// mutation runs under a per-loan lock and persists the entry change together
// with a full replay in one transaction.
type LedgerService struct {
	loanRepo repository.LoanRepository
	register registerInvalidator
	config   *config.Config
	locks    *keyedMutex
	now      func() time.Time
}

func NewLedgerService(loanRepo repository.LoanRepository, register registerInvalidator, cfg *config.Config) *LedgerService {
	return &LedgerService{
		loanRepo: loanRepo,
		register: register,
		config:   cfg,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// CreateLoan opens a loan in pending approval state with its Loan Application
// anchor already on the ledger.
func (s *LedgerService) CreateLoan(ctx context.Context, scope domain.Scope, req *domain.CreateLoanRequest) (*domain.Loan, error) {
	if err := validateAmount(req.Principal, "principal"); err != nil {
		return nil, err
	}
	rate := req.InterestRate
	if rate.IsZero() {
		rate = s.config.GetDefaultInterestRate()
	}
	if !rate.IsPositive() {
		return nil, customError.WrapInvalidAmount("interest rate must be greater than zero")
	}
	if req.ProcessingFee.IsNegative() || !money.IsTwoDecimal(req.ProcessingFee) {
		return nil, customError.WrapInvalidAmount("processing fee must be a non-negative amount with at most two decimal places")
	}

	seq, err := s.loanRepo.NextLoanSeq(ctx, scope.CompanyID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	loan := &domain.Loan{
		ID:             uuid.New(),
		LoanID:         fmt.Sprintf("C%s-T%05d", scope.CompanyID, seq),
		CompanyID:      scope.CompanyID,
		BranchID:       scope.BranchID,
		BorrowerName:   req.BorrowerName,
		Principal:      req.Principal,
		ProcessingFee:  req.ProcessingFee,
		InterestRate:   rate,
		Date:           req.Date,
		DueDate:        req.Date.AddDate(0, 0, req.DurationDays),
		ApprovalStatus: domain.ApprovalPending,
		CreatedBy:      scope.ActorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	entries := []*domain.LedgerEntry{newEntry(loan.ID, domain.EntryApplication, req.Date, decimal.Zero, 1, now)}
	if err := replayLedger(loan, entries, s.now()); err != nil {
		return nil, err
	}

	if err := s.loanRepo.Create(ctx, loan, entries); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	log.Info().Str("loan_id", loan.LoanID).Str("borrower", loan.BorrowerName).
		Str("principal", loan.Principal.StringFixed(2)).Msg("loan created")

	return loan, nil
}

// ApproveLoan appends the Loan Approved anchor.
func (s *LedgerService) ApproveLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.appendAnchor(ctx, loanID, domain.EntryApproved)
}

// DisburseLoan appends the Loan Disbursed anchor. Disbursement moves cash, so
// the scope's register is invalidated.
func (s *LedgerService) DisburseLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.appendAnchor(ctx, loanID, domain.EntryDisbursed)
}

func (s *LedgerService) appendAnchor(ctx context.Context, loanID uuid.UUID, kind domain.EntryKind) (*domain.Loan, error) {
	unlock := s.locks.Lock(loanID.String())
	defer unlock()

	loan, entries, err := s.loadLedger(ctx, loanID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.EntryApproved:
		if loan.ApprovalStatus != domain.ApprovalPending {
			return nil, customError.NewBusinessError(customError.ErrCodeLoanClosed,
				fmt.Sprintf("loan %s is already %s", loan.LoanID, loan.ApprovalStatus),
				customError.ErrAlreadyApproved)
		}
		loan.ApprovalStatus = domain.ApprovalApproved
	case domain.EntryDisbursed:
		if loan.ApprovalStatus != domain.ApprovalApproved {
			return nil, customError.NewBusinessError(customError.ErrCodeLoanClosed,
				fmt.Sprintf("loan %s must be approved before disbursement", loan.LoanID),
				customError.ErrNotDisbursed)
		}
		loan.ApprovalStatus = domain.ApprovalDisbursed
	}

	entries = append(entries, newEntry(loan.ID, kind, s.now(), decimal.Zero, nextSeq(entries), s.now()))
	if err := s.persistReplay(ctx, loan, entries, nil); err != nil {
		return nil, err
	}

	if kind.CashAffecting() {
		s.register.MarkDirty(ctx, loan.CompanyID, loan.BranchID)
	}

	return loan, nil
}

// AppendRepayment records a payment against a loan and replays the ledger.
func (s *LedgerService) AppendRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, date time.Time) (*domain.LedgerEntry, error) {
	return s.appendMutable(ctx, loanID, domain.EntryRepayment, amount, date)
}

// AppendCumulativeInterest records an interest charge on an overdue balance.
func (s *LedgerService) AppendCumulativeInterest(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, date time.Time) (*domain.LedgerEntry, error) {
	return s.appendMutable(ctx, loanID, domain.EntryCumulativeInterest, amount, date)
}

func (s *LedgerService) appendMutable(ctx context.Context, loanID uuid.UUID, kind domain.EntryKind, amount decimal.Decimal, date time.Time) (*domain.LedgerEntry, error) {
	if err := validateAmount(amount, "amount"); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(loanID.String())
	defer unlock()

	loan, entries, err := s.loadLedger(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.ApprovalStatus != domain.ApprovalDisbursed {
		return nil, customError.NewBusinessError(customError.ErrCodeLoanClosed,
			fmt.Sprintf("loan %s has not been disbursed", loan.LoanID),
			customError.ErrNotDisbursed)
	}
	if kind == domain.EntryRepayment && loan.Status == domain.LoanStatusPaid {
		return nil, customError.WrapLoanClosed(loan.LoanID)
	}

	entry := newEntry(loan.ID, kind, date, amount, nextSeq(entries), s.now())
	entries = append(entries, entry)

	if err := s.persistReplay(ctx, loan, entries, nil); err != nil {
		return nil, err
	}

	if kind.CashAffecting() {
		s.register.MarkDirty(ctx, loan.CompanyID, loan.BranchID)
	}

	log.Info().Str("loan_id", loan.LoanID).Str("kind", string(kind)).
		Str("amount", amount.StringFixed(2)).Str("status", loan.Status).
		Msg("ledger entry appended")

	return entry, nil
}

// EditEntry changes the amount and/or date of a mutable entry and replays.
// Anchor entries are immutable.
func (s *LedgerService) EditEntry(ctx context.Context, entryID uuid.UUID, req *domain.EditEntryRequest) (*domain.LedgerEntry, error) {
	target, err := s.loanRepo.EntryByID(ctx, entryID)
	if err != nil {
		return nil, mapEntryErr(err, entryID)
	}
	if target.Kind.IsAnchor() {
		return nil, customError.WrapImmutableEntry(string(target.Kind))
	}
	if req.Amount != nil {
		if err := validateAmount(*req.Amount, "amount"); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(target.LoanID.String())
	defer unlock()

	loan, entries, err := s.loadLedger(ctx, target.LoanID)
	if err != nil {
		return nil, err
	}

	var edited *domain.LedgerEntry
	for _, e := range entries {
		if e.ID == entryID {
			if req.Amount != nil {
				e.Amount = *req.Amount
			}
			if req.Date != nil {
				e.Date = *req.Date
			}
			edited = e
			break
		}
	}
	if edited == nil {
		return nil, customError.WrapEntryNotFound(entryID.String())
	}

	if err := s.persistReplay(ctx, loan, entries, nil); err != nil {
		return nil, err
	}

	if edited.Kind.CashAffecting() {
		s.register.MarkDirty(ctx, loan.CompanyID, loan.BranchID)
	}

	return edited, nil
}

// DeleteEntry removes a mutable entry and replays. Anchor entries are
// immutable.
func (s *LedgerService) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	target, err := s.loanRepo.EntryByID(ctx, entryID)
	if err != nil {
		return mapEntryErr(err, entryID)
	}
	if target.Kind.IsAnchor() {
		return customError.WrapImmutableEntry(string(target.Kind))
	}

	unlock := s.locks.Lock(target.LoanID.String())
	defer unlock()

	loan, entries, err := s.loadLedger(ctx, target.LoanID)
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.ID != entryID {
			kept = append(kept, e)
		}
	}

	deletedID := entryID
	if err := s.persistReplay(ctx, loan, kept, &deletedID); err != nil {
		return err
	}

	if target.Kind.CashAffecting() {
		s.register.MarkDirty(ctx, loan.CompanyID, loan.BranchID)
	}

	return nil
}

// DeleteLoan removes a loan with its ledger; derived register rows disappear
// on the next rebuild.
func (s *LedgerService) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	unlock := s.locks.Lock(loanID.String())
	defer unlock()

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return mapLoanErr(err, loanID)
	}

	if err := s.loanRepo.Delete(ctx, loanID); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.register.MarkDirty(ctx, loan.CompanyID, loan.BranchID)
	return nil
}

// GetLoan retrieves a loan with replay already applied.
func (s *LedgerService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, mapLoanErr(err, loanID)
	}
	return loan, nil
}

// ListLoans retrieves every loan in the scope.
func (s *LedgerService) ListLoans(ctx context.Context, scope domain.Scope) ([]*domain.Loan, error) {
	loans, err := s.loanRepo.ListByScope(ctx, scope.CompanyID, scope.BranchID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// GetLedger retrieves the loan and its ordered entries.
func (s *LedgerService) GetLedger(ctx context.Context, loanID uuid.UUID) (*domain.LedgerResponse, error) {
	loan, entries, err := s.loadLedger(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return &domain.LedgerResponse{Loan: loan, Entries: entries}, nil
}

// ApplyOverdueInterest charges cumulative interest to every disbursed loan in
// the scope that is past due beyond the grace period and has not been charged
// today. It returns the number of loans charged. Run by the scheduler.
func (s *LedgerService) ApplyOverdueInterest(ctx context.Context, scope domain.Scope) (int, error) {
	today := dateOnly(s.now())
	cutoff := today.AddDate(0, 0, -s.config.Business.OverdueGraceDays)

	overdue, err := s.loanRepo.ListOverdue(ctx, scope.CompanyID, scope.BranchID, cutoff)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	charged := 0
	for _, loan := range overdue {
		entries, err := s.loanRepo.Ledger(ctx, loan.ID)
		if err != nil {
			return charged, customError.WrapDatabaseError(err)
		}
		if chargedOn(entries, today) {
			continue
		}

		// Interest on the remaining balance, or on the principal when
		// nothing has been paid yet.
		base := loan.RemainingBal
		if loan.AmountPaid.IsZero() {
			base = loan.Principal
		}
		amount := money.Percent(base, loan.InterestRate)
		if !amount.IsPositive() {
			continue
		}

		if _, err := s.AppendCumulativeInterest(ctx, loan.ID, amount, today); err != nil {
			return charged, err
		}
		charged++

		log.Info().Str("loan_id", loan.LoanID).Str("amount", amount.StringFixed(2)).
			Msg("cumulative interest applied to overdue loan")
	}

	return charged, nil
}

func chargedOn(entries []*domain.LedgerEntry, day time.Time) bool {
	for _, e := range entries {
		if e.Kind == domain.EntryCumulativeInterest && dateOnly(e.Date).Equal(day) {
			return true
		}
	}
	return false
}

func (s *LedgerService) loadLedger(ctx context.Context, loanID uuid.UUID) (*domain.Loan, []*domain.LedgerEntry, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, mapLoanErr(err, loanID)
	}

	entries, err := s.loanRepo.Ledger(ctx, loanID)
	if err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	return loan, entries, nil
}

func (s *LedgerService) persistReplay(ctx context.Context, loan *domain.Loan, entries []*domain.LedgerEntry, deleted *uuid.UUID) error {
	if err := replayLedger(loan, entries, s.now()); err != nil {
		return err
	}
	if err := s.loanRepo.ApplyReplay(ctx, loan, entries, deleted); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func newEntry(loanID uuid.UUID, kind domain.EntryKind, date time.Time, amount decimal.Decimal, seq int, now time.Time) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:        uuid.New(),
		LoanID:    loanID,
		Kind:      kind,
		Date:      dateOnly(date),
		Seq:       seq,
		Amount:    amount,
		CreatedAt: now,
	}
}

func validateAmount(amount decimal.Decimal, field string) error {
	if !amount.IsPositive() {
		return customError.WrapInvalidAmount(field + " must be greater than zero")
	}
	if !money.IsTwoDecimal(amount) {
		return customError.WrapInvalidAmount(field + " must have at most two decimal places")
	}
	return nil
}

func mapLoanErr(err error, loanID uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapLoanNotFound(loanID.String())
	}
	return customError.WrapDatabaseError(err)
}

func mapEntryErr(err error, entryID uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapEntryNotFound(entryID.String())
	}
	return customError.WrapDatabaseError(err)
}

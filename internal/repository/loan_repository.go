package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lendwell/ledger-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `
	id, loan_id, company_id, branch_id, borrower_name, principal, processing_fee,
	interest_rate, total_due, amount_paid, remaining_balance, cumulative_interest,
	date, due_date, status, approval_status, created_by, created_at, updated_at
`

const entryColumns = `
	id, loan_id, kind, date, seq, amount, principal, interest, cumulative_interest,
	principal_balance, interest_balance, cumulative_interest_balance, running_balance,
	created_at
`

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan, entries []*domain.LedgerEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = tx.ExecContext(ctx, query,
		loan.ID, loan.LoanID, loan.CompanyID, loan.BranchID, loan.BorrowerName,
		loan.Principal, loan.ProcessingFee, loan.InterestRate, loan.TotalDue,
		loan.AmountPaid, loan.RemainingBal, loan.CumulativeInt,
		loan.Date, loan.DueDate, loan.Status, loan.ApprovalStatus,
		loan.CreatedBy, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err = insertEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertEntry(ctx context.Context, tx *sqlx.Tx, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			amount = EXCLUDED.amount,
			principal = EXCLUDED.principal,
			interest = EXCLUDED.interest,
			cumulative_interest = EXCLUDED.cumulative_interest,
			principal_balance = EXCLUDED.principal_balance,
			interest_balance = EXCLUDED.interest_balance,
			cumulative_interest_balance = EXCLUDED.cumulative_interest_balance,
			running_balance = EXCLUDED.running_balance
	`

	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.LoanID, entry.Kind, entry.Date, entry.Seq,
		entry.Amount, entry.Principal, entry.Interest, entry.CumulativeInt,
		entry.PrincipalBal, entry.InterestBal, entry.CumulativeIntBal, entry.RunningBal,
		entry.CreatedAt,
	)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListByScope(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE company_id = $1 AND branch_id = $2
		ORDER BY date, created_at
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, companyID, branchID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListOverdue(ctx context.Context, companyID, branchID uuid.UUID, cutoff time.Time) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE company_id = $1 AND branch_id = $2
		  AND approval_status = $3
		  AND due_date < $4
		  AND remaining_balance > 0
		ORDER BY due_date
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, companyID, branchID, domain.ApprovalDisbursed, cutoff)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ActiveScopes(ctx context.Context) ([]domain.Scope, error) {
	query := `
		SELECT DISTINCT company_id, branch_id
		FROM loans
		WHERE remaining_balance > 0
	`

	var scopes []domain.Scope
	if err := r.db.SelectContext(ctx, &scopes, query); err != nil {
		return nil, err
	}

	return scopes, nil
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// ledger_entries has ON DELETE CASCADE
	_, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	return err
}

func (r *loanRepository) NextLoanSeq(ctx context.Context, companyID uuid.UUID) (int, error) {
	// Highest trailing number ever issued, not a row count: deleted loans
	// must never free their number for reuse.
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(loan_id FROM 'T([0-9]+)$') AS INT)), 0) + 1
		FROM loans
		WHERE company_id = $1
	`

	var seq int
	err := r.db.GetContext(ctx, &seq, query, companyID)
	return seq, err
}

func (r *loanRepository) Ledger(ctx context.Context, loanID uuid.UUID) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE loan_id = $1
		ORDER BY date, seq
	`

	var entries []*domain.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, loanID); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *loanRepository) EntryByID(ctx context.Context, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	var entry domain.LedgerEntry
	if err := r.db.GetContext(ctx, &entry, query, entryID); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *loanRepository) ApplyReplay(ctx context.Context, loan *domain.Loan, entries []*domain.LedgerEntry, deleted *uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if deleted != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = $1`, *deleted); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err = insertEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	query := `
		UPDATE loans
		SET total_due = $2, amount_paid = $3, remaining_balance = $4,
		    cumulative_interest = $5, status = $6, approval_status = $7,
		    due_date = $8, updated_at = $9
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, query,
		loan.ID, loan.TotalDue, loan.AmountPaid, loan.RemainingBal,
		loan.CumulativeInt, loan.Status, loan.ApprovalStatus,
		loan.DueDate, time.Now(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) CashEvents(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.LoanCashEvent, error) {
	query := `
		SELECT e.id AS entry_id, e.kind, e.date, e.seq, e.amount, e.principal,
		       l.processing_fee, l.borrower_name, l.created_by, e.created_at
		FROM ledger_entries e
		JOIN loans l ON l.id = e.loan_id
		WHERE l.company_id = $1 AND l.branch_id = $2
		  AND e.kind IN ($3, $4)
		ORDER BY e.date, e.created_at, e.seq
	`

	var events []*domain.LoanCashEvent
	err := r.db.SelectContext(ctx, &events, query,
		companyID, branchID, domain.EntryDisbursed, domain.EntryRepayment)
	if err != nil {
		return nil, err
	}

	return events, nil
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lendwell/ledger-engine/internal/domain"
)

type cashbookRepository struct {
	db *sqlx.DB
}

func NewCashbookRepository(db *sqlx.DB) CashbookRepository {
	return &cashbookRepository{db: db}
}

const cashbookColumns = `
	id, company_id, branch_id, date, seq, particulars, debit, credit, balance,
	source, source_id, created_by, created_at
`

func (r *cashbookRepository) Entries(ctx context.Context, companyID, branchID uuid.UUID, from, to *time.Time) ([]*domain.CashbookEntry, error) {
	query := `
		SELECT ` + cashbookColumns + `
		FROM cashbook_entries
		WHERE company_id = $1 AND branch_id = $2
	`
	args := []interface{}{companyID, branchID}

	if from != nil {
		args = append(args, *from)
		query += ` AND date >= $3`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			query += ` AND date <= $4`
		} else {
			query += ` AND date <= $3`
		}
	}
	query += ` ORDER BY date, seq`

	var entries []*domain.CashbookEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *cashbookRepository) ManualEntries(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.CashbookEntry, error) {
	query := `
		SELECT ` + cashbookColumns + `
		FROM cashbook_entries
		WHERE company_id = $1 AND branch_id = $2 AND source = $3
		ORDER BY date, created_at
	`

	var entries []*domain.CashbookEntry
	err := r.db.SelectContext(ctx, &entries, query, companyID, branchID, domain.SourceManual)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *cashbookRepository) ReplaceRegister(ctx context.Context, companyID, branchID uuid.UUID, rows []*domain.CashbookEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Derived rows are regenerated wholesale. Manual rows are a source and
	// are never deleted here: the rebuilt set upserts the ones it read, and
	// one inserted concurrently survives untouched until the next rebuild
	// renumbers it.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM cashbook_entries WHERE company_id = $1 AND branch_id = $2 AND source <> $3`,
		companyID, branchID, domain.SourceManual)
	if err != nil {
		return err
	}

	insert := `
		INSERT INTO cashbook_entries (` + cashbookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			seq = EXCLUDED.seq,
			particulars = EXCLUDED.particulars,
			debit = EXCLUDED.debit,
			credit = EXCLUDED.credit,
			balance = EXCLUDED.balance
	`

	for _, row := range rows {
		_, err = tx.ExecContext(ctx, insert,
			row.ID, row.CompanyID, row.BranchID, row.Date, row.Seq,
			row.Particulars, row.Debit, row.Credit, row.Balance,
			row.Source, row.SourceID, row.CreatedBy, row.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *cashbookRepository) InsertManual(ctx context.Context, entry *domain.CashbookEntry) error {
	query := `
		INSERT INTO cashbook_entries (` + cashbookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.CompanyID, entry.BranchID, entry.Date, entry.Seq,
		entry.Particulars, entry.Debit, entry.Credit, entry.Balance,
		entry.Source, entry.SourceID, entry.CreatedBy, entry.CreatedAt,
	)
	return err
}

func (r *cashbookRepository) InsertTransfer(ctx context.Context, t *domain.BankTransfer) error {
	query := `
		INSERT INTO bank_transfers (id, company_id, branch_id, transfer_type, amount, reference, transfer_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.CompanyID, t.BranchID, t.TransferType, t.Amount,
		t.Reference, t.TransferDate, t.CreatedBy, t.CreatedAt,
	)
	return err
}

func (r *cashbookRepository) Transfers(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.BankTransfer, error) {
	query := `
		SELECT id, company_id, branch_id, transfer_type, amount, reference, transfer_date, created_by, created_at
		FROM bank_transfers
		WHERE company_id = $1 AND branch_id = $2
		ORDER BY transfer_date, created_at
	`

	var transfers []*domain.BankTransfer
	if err := r.db.SelectContext(ctx, &transfers, query, companyID, branchID); err != nil {
		return nil, err
	}

	return transfers, nil
}

func (r *cashbookRepository) InsertExpense(ctx context.Context, e *domain.Expense) error {
	query := `
		INSERT INTO expenses (id, company_id, branch_id, description, category, amount, date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.CompanyID, e.BranchID, e.Description, e.Category,
		e.Amount, e.Date, e.CreatedBy, e.CreatedAt,
	)
	return err
}

func (r *cashbookRepository) Expenses(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.Expense, error) {
	query := `
		SELECT id, company_id, branch_id, description, category, amount, date, created_by, created_at
		FROM expenses
		WHERE company_id = $1 AND branch_id = $2
		ORDER BY date, created_at
	`

	var expenses []*domain.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, companyID, branchID); err != nil {
		return nil, err
	}

	return expenses, nil
}

func (r *cashbookRepository) InsertOtherIncome(ctx context.Context, o *domain.OtherIncome) error {
	query := `
		INSERT INTO other_income (id, company_id, branch_id, description, amount, income_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.CompanyID, o.BranchID, o.Description, o.Amount,
		o.IncomeDate, o.CreatedBy, o.CreatedAt,
	)
	return err
}

func (r *cashbookRepository) OtherIncomes(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.OtherIncome, error) {
	query := `
		SELECT id, company_id, branch_id, description, amount, income_date, created_by, created_at
		FROM other_income
		WHERE company_id = $1 AND branch_id = $2
		ORDER BY income_date, created_at
	`

	var incomes []*domain.OtherIncome
	if err := r.db.SelectContext(ctx, &incomes, query, companyID, branchID); err != nil {
		return nil, err
	}

	return incomes, nil
}

func (r *cashbookRepository) InsertSavingsTransaction(ctx context.Context, s *domain.SavingsTransaction) error {
	query := `
		INSERT INTO savings_transactions (id, company_id, branch_id, account_number, borrower_name, transaction_type, amount, date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.CompanyID, s.BranchID, s.AccountNumber, s.BorrowerName,
		s.TransactionType, s.Amount, s.Date, s.CreatedBy, s.CreatedAt,
	)
	return err
}

func (r *cashbookRepository) SavingsTransactions(ctx context.Context, companyID, branchID uuid.UUID) ([]*domain.SavingsTransaction, error) {
	query := `
		SELECT id, company_id, branch_id, account_number, borrower_name, transaction_type, amount, date, created_by, created_at
		FROM savings_transactions
		WHERE company_id = $1 AND branch_id = $2
		ORDER BY date, created_at
	`

	var txs []*domain.SavingsTransaction
	if err := r.db.SelectContext(ctx, &txs, query, companyID, branchID); err != nil {
		return nil, err
	}

	return txs, nil
}

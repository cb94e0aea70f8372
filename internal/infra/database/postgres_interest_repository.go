// internal/infra/database/postgres_interest_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loan_interest_accrual/internal/domain/interest"
	"loan_interest_accrual/internal/domain/loan"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrCalculationNotFound = fmt.Errorf("daily interest calculation not found")
var ErrDuplicateCalculation = fmt.Errorf("daily interest calculation already recorded for this loan and run date")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = pq.ErrorCode("23505")

const calculationColumns = `id, loan_id, branch_id, customer_id, run_date, days_calculated,
       interest_calculated, calculated_vat, previous_balance, new_balance, due_amount,
       interest_rate, vat_rate, created_at`

var (
	_ interest.LedgerWriter = (*PostgresInterestRepository)(nil)
	_ interest.UnitOfWork   = (*PostgresInterestRepository)(nil)
)

type PostgresInterestRepository struct {
	db *sql.DB
}

func NewPostgresInterestRepository(db *sql.DB) *PostgresInterestRepository {
	return &PostgresInterestRepository{db: db}
}

// --- Ledger ---

func (r *PostgresInterestRepository) Append(ctx context.Context, calc *interest.DailyCalculation) error {
	return insertCalculation(ctx, r.db, calc)
}

func insertCalculation(ctx context.Context, ex execer, calc *interest.DailyCalculation) error {
	query := `INSERT INTO daily_interest_calculations (` + calculationColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := ex.ExecContext(ctx, query,
		calc.ID, calc.LoanID, calc.BranchID, calc.CustomerID, calc.RunDate, calc.DaysCalculated,
		calc.InterestCalculated, calc.CalculatedVat, calc.PreviousBalance, calc.NewBalance, calc.DueAmount,
		calc.InterestRate, calc.VatRate, calc.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateCalculation
		}
		return fmt.Errorf("error inserting daily interest calculation for loan %d: %w", calc.LoanID, err)
	}
	return nil
}

func scanCalculation(row rowScanner) (*interest.DailyCalculation, error) {
	c := &interest.DailyCalculation{}
	err := row.Scan(
		&c.ID, &c.LoanID, &c.BranchID, &c.CustomerID, &c.RunDate, &c.DaysCalculated,
		&c.InterestCalculated, &c.CalculatedVat, &c.PreviousBalance, &c.NewBalance, &c.DueAmount,
		&c.InterestRate, &c.VatRate, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresInterestRepository) GetByID(ctx context.Context, id uuid.UUID) (*interest.DailyCalculation, error) {
	query := `SELECT ` + calculationColumns + ` FROM daily_interest_calculations WHERE id = $1`
	c, err := scanCalculation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCalculationNotFound
		}
		return nil, fmt.Errorf("error getting daily interest calculation by ID: %w", err)
	}
	return c, nil
}

// ListByLoan returns the ledger rows of one loan, oldest first.
func (r *PostgresInterestRepository) ListByLoan(ctx context.Context, loanID int64) ([]*interest.DailyCalculation, error) {
	query := `SELECT ` + calculationColumns + `
               FROM daily_interest_calculations
               WHERE loan_id = $1
               ORDER BY run_date ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("error querying daily interest calculations for loan: %w", err)
	}
	defer rows.Close()

	calcs := make([]*interest.DailyCalculation, 0)
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning daily interest calculation row: %w", err)
		}
		calcs = append(calcs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily interest calculation rows: %w", err)
	}
	return calcs, nil
}

// --- Unit of work ---

// CommitAccrual updates the loan and appends its ledger row in one transaction.
func (r *PostgresInterestRepository) CommitAccrual(ctx context.Context, l *loan.Loan, calc *interest.DailyCalculation) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin accrual transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := updateLoan(ctx, txn, l); err != nil {
		return err
	}
	if err := insertCalculation(ctx, txn, calc); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit accrual for loan %d: %w", l.ID, err)
	}
	return nil
}

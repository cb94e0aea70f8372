// internal/infra/database/postgres_loan_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loan_interest_accrual/internal/domain/loan"
)

var ErrLoanNotFound = fmt.Errorf("loan not found")
var ErrStaleLoanUpdate = fmt.Errorf("loan was already accrued past the date being written")

const loanColumns = `id, loan_application_id, customer_id, branch_id,
       loan_amount, paid, balance, accrual_interest, tax, due_amount, last_calculated_interest,
       interest_rate, vat_rate, disbursement_date, last_interest_calculated_date, loan_duration,
       loan_status, is_deleted, updated_at`

type PostgresLoanRepository struct {
	db *sql.DB
}

func NewPostgresLoanRepository(db *sql.DB) *PostgresLoanRepository {
	return &PostgresLoanRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*loan.Loan, error) {
	l := &loan.Loan{}
	var lastCalculated sql.NullTime
	err := row.Scan(
		&l.ID, &l.LoanApplicationID, &l.CustomerID, &l.BranchID,
		&l.LoanAmount, &l.Paid, &l.Balance, &l.AccrualInterest, &l.Tax, &l.DueAmount, &l.LastCalculatedInterest,
		&l.InterestRate, &l.VatRate, &l.DisbursementDate, &lastCalculated, &l.LoanDuration,
		&l.Status, &l.IsDeleted, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastCalculated.Valid {
		l.LastInterestCalculatedDate = lastCalculated.Time
	}
	return l, nil
}

// FindOpenAccruableLoans returns every loan the accrual batch should visit, ordered by id.
func (r *PostgresLoanRepository) FindOpenAccruableLoans(ctx context.Context) ([]*loan.Loan, error) {
	query := `SELECT ` + loanColumns + `
               FROM loans
               WHERE loan_status = $1
                 AND interest_rate > 0
                 AND is_deleted = FALSE
                 AND (loan_amount - paid) > 0
               ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, loan.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("error querying open accruable loans: %w", err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning open loan row: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open loan rows: %w", err)
	}
	return loans, nil
}

func (r *PostgresLoanRepository) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("error getting loan by ID: %w", err)
	}
	return l, nil
}

func (r *PostgresLoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	return updateLoan(ctx, r.db, l)
}

// updateLoan writes the accrual-owned columns of a loan. The WHERE clause refuses to
// move last_interest_calculated_date backwards; that case is ErrStaleLoanUpdate.
func updateLoan(ctx context.Context, ex execer, l *loan.Loan) error {
	query := `UPDATE loans
               SET balance = $1, accrual_interest = $2, tax = $3, due_amount = $4,
                   last_calculated_interest = $5, vat_rate = $6, loan_duration = $7,
                   last_interest_calculated_date = $8, updated_at = NOW()
               WHERE id = $9
                 AND (last_interest_calculated_date IS NULL OR $8::timestamptz IS NULL
                      OR last_interest_calculated_date <= $8::timestamptz)`
	res, err := ex.ExecContext(ctx, query,
		l.Balance, l.AccrualInterest, l.Tax, l.DueAmount,
		l.LastCalculatedInterest, l.VatRate, l.LoanDuration,
		nullTime(l.LastInterestCalculatedDate), l.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating loan %d: %w", l.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for loan %d: %w", l.ID, err)
	}
	if affected == 0 {
		var exists bool
		if err := ex.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, l.ID).Scan(&exists); err != nil {
			return fmt.Errorf("error checking loan %d after empty update: %w", l.ID, err)
		}
		if exists {
			return ErrStaleLoanUpdate
		}
		return ErrLoanNotFound
	}
	return nil
}

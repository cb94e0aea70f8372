package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loan_interest_accrual/internal/domain/loan"
)

var ErrLoanApplicationNotFound = fmt.Errorf("loan application not found")

type PostgresLoanApplicationRepository struct {
	db *sql.DB
}

func NewPostgresLoanApplicationRepository(db *sql.DB) *PostgresLoanApplicationRepository {
	return &PostgresLoanApplicationRepository{db: db}
}

func (r *PostgresLoanApplicationRepository) FindByID(ctx context.Context, id int64) (*loan.Application, error) {
	query := `SELECT id, customer_id, loan_duration, created_at FROM loan_applications WHERE id = $1`
	a := &loan.Application{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.CustomerID, &a.LoanDuration, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanApplicationNotFound
		}
		return nil, fmt.Errorf("error getting loan application by ID: %w", err)
	}
	return a, nil
}

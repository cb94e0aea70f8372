package interest

import (
	"context"

	"github.com/google/uuid"

	"loan_interest_accrual/internal/domain/loan"
)

// LedgerWriter appends ledger rows. Rows are never updated or deleted.
type LedgerWriter interface {
	Append(ctx context.Context, calc *DailyCalculation) error
	ListByLoan(ctx context.Context, loanID int64) ([]*DailyCalculation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*DailyCalculation, error)
}

// UnitOfWork persists a loan's accrued state together with its ledger row.
// Either both are committed or neither is.
type UnitOfWork interface {
	CommitAccrual(ctx context.Context, l *loan.Loan, calc *DailyCalculation) error
}

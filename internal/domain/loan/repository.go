package loan

import "context"

// Store defines the loan operations the accrual engine needs.
type Store interface {
	// FindOpenAccruableLoans returns open, non-deleted loans with a positive rate
	// and outstanding principal, in a stable order.
	FindOpenAccruableLoans(ctx context.Context) ([]*Loan, error)
	GetByID(ctx context.Context, id int64) (*Loan, error)
	Update(ctx context.Context, l *Loan) error
}

// ApplicationLookup resolves loan applications (used to backfill LoanDuration).
type ApplicationLookup interface {
	FindByID(ctx context.Context, id int64) (*Application, error)
}

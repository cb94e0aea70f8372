package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loan_interest_accrual/internal/domain/delinquency"
	"loan_interest_accrual/internal/domain/loan"
	idb "loan_interest_accrual/internal/infra/database"
)

var ErrNegativeDays = errors.New("days past due cannot be negative")
var ErrNoBucketForDays = errors.New("no delinquency bucket configured for the given days")

// DelinquencyService resolves delinquency buckets from the shared configuration table.
type DelinquencyService struct {
	repo     delinquency.Repository
	location *time.Location
}

func NewDelinquencyService(repo delinquency.Repository) *DelinquencyService {
	return &DelinquencyService{repo: repo, location: time.Local}
}

// WithLocation sets the zone "today" is read in.
func (s *DelinquencyService) WithLocation(loc *time.Location) *DelinquencyService {
	if loc != nil {
		s.location = loc
	}
	return s
}

// LoadTable reads every bucket in one query so a batch can classify loans in memory.
func (s *DelinquencyService) LoadTable(ctx context.Context) (delinquency.Table, error) {
	configs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load delinquency configurations: %w", err)
	}
	return delinquency.Table(configs), nil
}

// FindBucketForDays returns the bucket whose range contains days.
func (s *DelinquencyService) FindBucketForDays(ctx context.Context, days int) (*delinquency.Configuration, error) {
	if days < 0 {
		return nil, ErrNegativeDays
	}
	cfg, err := s.repo.FindBucketForDays(ctx, days)
	if err != nil {
		if errors.Is(err, idb.ErrBucketNotFound) {
			return nil, ErrNoBucketForDays
		}
		return nil, fmt.Errorf("failed to look up delinquency bucket for %d days: %w", days, err)
	}
	return cfg, nil
}

// BucketNameFor classifies a loan by how many days it is past its maturity date.
func (s *DelinquencyService) BucketNameFor(ctx context.Context, l *loan.Loan, today time.Time) (string, error) {
	cfg, err := s.FindBucketForDays(ctx, DaysPastDue(l, today.In(s.location)))
	if err != nil {
		return "", err
	}
	return cfg.Name, nil
}

// DaysPastDue counts days since the loan matured (disbursement + duration months).
// Loans that have not matured yet are 0 days past due. The disbursement date is a
// calendar date and is taken as stored; today must already be in the accrual zone.
func DaysPastDue(l *loan.Loan, today time.Time) int {
	if l.DisbursementDate.IsZero() {
		return 0
	}
	maturity := l.DisbursementDate.AddDate(0, l.LoanDuration, 0)
	days := daysBetween(maturity, today)
	if days < 0 {
		return 0
	}
	return days
}

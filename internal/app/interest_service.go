// internal/app/interest_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"loan_interest_accrual/internal/domain/delinquency"
	"loan_interest_accrual/internal/domain/interest"
	"loan_interest_accrual/internal/domain/loan"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrLoanDurationUnknown is returned when neither the loan nor its application carry a duration.
var ErrLoanDurationUnknown = errors.New("loan duration is zero and could not be backfilled from the loan application")

// Outcome describes what the per-loan algorithm did with a loan.
type Outcome string

const (
	OutcomeAccrued             Outcome = "ACCRUED"
	OutcomeAlreadyCalculated   Outcome = "ALREADY_CALCULATED"
	OutcomeNoPrincipal         Outcome = "NO_PRINCIPAL"
	OutcomeNonPositiveInterest Outcome = "NON_POSITIVE_INTEREST"
	OutcomeZeroRateReset       Outcome = "ZERO_RATE_RESET"
	OutcomeNegativeVatClamped  Outcome = "NEGATIVE_VAT_CLAMPED"
)

// LoanResult is the result of running the accrual algorithm on one loan.
type LoanResult struct {
	LoanID      int64
	Outcome     Outcome
	Days        int
	Interest    decimal.Decimal
	Vat         decimal.Decimal
	Calculation *interest.DailyCalculation // Only set for OutcomeAccrued
}

// BatchResult summarises one batch run.
type BatchResult struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Eligible   int
	Attempted  int
	Accrued    int
	Skipped    int
	Failed     int
	Cancelled  bool
	Buckets    map[string]int // Delinquency bucket name -> loan count, empty without a bucket table
}

// BatchNotifier delivers operator messages about batch progress.
type BatchNotifier interface {
	SendToActiveSubscribers(ctx context.Context, message string) error
}

// BucketLoader supplies the delinquency table used for the batch summary.
type BucketLoader interface {
	LoadTable(ctx context.Context) (delinquency.Table, error)
}

// InterestService accrues daily interest and VAT on open loans.
type InterestService struct {
	loans        loan.Store
	applications loan.ApplicationLookup
	uow          interest.UnitOfWork
	notifier     BatchNotifier
	buckets      BucketLoader
	logger       *logrus.Entry
	clock        func() time.Time
	location     *time.Location
}

func NewInterestService(
	loans loan.Store,
	applications loan.ApplicationLookup,
	uow interest.UnitOfWork,
	notifier BatchNotifier,
	logger *logrus.Entry,
) *InterestService {
	return &InterestService{
		loans:        loans,
		applications: applications,
		uow:          uow,
		notifier:     notifier,
		logger:       logger,
		clock:        time.Now,
		location:     time.Local,
	}
}

// WithClock replaces the time source.
func (s *InterestService) WithClock(clock func() time.Time) *InterestService {
	s.clock = clock
	return s
}

// WithLocation sets the zone calendar days are counted in. It must match the
// scheduler's run location.
func (s *InterestService) WithLocation(loc *time.Location) *InterestService {
	if loc != nil {
		s.location = loc
	}
	return s
}

// WithBuckets enables the delinquency summary in the completion notification.
func (s *InterestService) WithBuckets(b BucketLoader) *InterestService {
	s.buckets = b
	return s
}

// RunBatch accrues interest on every eligible loan. Per-loan failures are logged and
// counted; only a failure to load the loans is returned. When ctx is cancelled the
// loan in progress is still written, the remaining loans are left for the next run.
func (s *InterestService) RunBatch(ctx context.Context) (*BatchResult, error) {
	result := &BatchResult{
		RunID:     uuid.New(),
		StartedAt: s.clock(),
		Buckets:   make(map[string]int),
	}
	log := s.logger.WithField("run_id", result.RunID.String())

	loans, err := s.loans.FindOpenAccruableLoans(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load open loans for accrual")
		return nil, fmt.Errorf("failed to load open accruable loans: %w", err)
	}
	result.Eligible = len(loans)
	log.WithField("eligible", result.Eligible).Info("Interest accrual batch starting")

	// Notifications must go out even if shutdown started mid-batch.
	notifyCtx := context.WithoutCancel(ctx)
	s.notify(notifyCtx, log, fmt.Sprintf("Loan interest calculation started for %d loans.", result.Eligible))

	table := s.loadBuckets(ctx, log)
	today := result.StartedAt.In(s.location)

	for _, l := range loans {
		if ctx.Err() != nil {
			result.Cancelled = true
			log.WithField("remaining", result.Eligible-result.Attempted).Warn("Accrual batch cancelled, remaining loans left for the next run")
			break
		}
		result.Attempted++

		loanLog := log.WithField("loan_id", l.ID)
		res, err := s.safeCalculate(context.WithoutCancel(ctx), l)
		if err != nil {
			result.Failed++
			loanLog.WithError(err).Error("Failed to calculate interest for loan")
			continue
		}
		if res.Outcome == OutcomeAccrued {
			result.Accrued++
			loanLog.WithFields(logrus.Fields{
				"days":     res.Days,
				"interest": res.Interest.String(),
				"vat":      res.Vat.String(),
			}).Debug("Interest accrued")
		} else {
			result.Skipped++
			loanLog.WithField("outcome", res.Outcome).Debug("Loan skipped")
		}
		if table != nil {
			if bucket, ok := table.Find(DaysPastDue(l, today)); ok {
				result.Buckets[bucket.Name]++
			}
		}
	}

	result.FinishedAt = s.clock()
	log.WithFields(logrus.Fields{
		"attempted": result.Attempted,
		"accrued":   result.Accrued,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
		"cancelled": result.Cancelled,
	}).Info("Interest accrual batch complete")

	s.notify(notifyCtx, log, completionMessage(result))
	return result, nil
}

// safeCalculate converts a panic in one loan's processing into an error so the batch keeps going.
func (s *InterestService) safeCalculate(ctx context.Context, l *loan.Loan) (res *LoanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while calculating interest for loan %d: %v", l.ID, r)
		}
	}()
	return s.CalculateLoanInterest(ctx, l, s.clock())
}

// CalculateLoanInterest runs the daily accrual algorithm on a single loan as of now.
// Days are counted in the service location; now and the last calculation timestamp
// are converted to it first. Calling it again on the same calendar day is a no-op. A negative VAT rate
// on a day with positive interest adds no VAT; Tax never decreases. l is only
// modified when the change was persisted.
func (s *InterestService) CalculateLoanInterest(ctx context.Context, l *loan.Loan, now time.Time) (*LoanResult, error) {
	result := &LoanResult{LoanID: l.ID, Interest: decimal.Zero, Vat: decimal.Zero}

	dailyInterestRate := l.InterestRate.Div(hundred)
	today := dateOf(now.In(s.location))

	days := daysBetween(s.accrualStartDay(l), today)
	if days <= 0 {
		result.Outcome = OutcomeAlreadyCalculated
		return result, nil
	}
	result.Days = days

	loanPrincipal := l.Principal()
	if loanPrincipal.LessThanOrEqual(decimal.Zero) {
		result.Outcome = OutcomeNoPrincipal
		return result, nil
	}

	work := *l
	if err := s.ensureDuration(ctx, &work); err != nil {
		return nil, err
	}

	previousBalance := work.Balance
	totalInterest := decimal.Zero
	totalVat := decimal.Zero

	// Every day accrues on the same principal; interest never compounds inside a run.
	for day := 0; day < days; day++ {
		dailyInterest := roundUp(loanPrincipal.Mul(dailyInterestRate).Div(daysPerRun))
		if dailyInterest.LessThanOrEqual(decimal.Zero) {
			return s.handleNonPositiveInterest(ctx, l, &work, result)
		}

		vat := roundUp(dailyInterest.Mul(vatRateFor(&work)).Div(hundred))

		work.AccrualInterest = work.AccrualInterest.Add(dailyInterest)
		work.Tax = work.Tax.Add(vat)
		work.DueAmount = work.DueAmount.Add(dailyInterest).Add(vat)
		work.Balance = work.Balance.Add(dailyInterest).Add(vat)
		totalInterest = totalInterest.Add(dailyInterest)
		totalVat = totalVat.Add(vat)

		work.LastCalculatedInterest = roundUp(dailyInterest)
	}

	if !totalInterest.GreaterThan(decimal.Zero) {
		result.Outcome = OutcomeNonPositiveInterest
		return result, nil
	}

	work.AccrualInterest = roundUp(work.AccrualInterest)
	work.Tax = roundUp(work.Tax)
	work.Balance = roundUp(work.Balance)
	work.DueAmount = roundUp(work.DueAmount)
	work.LastInterestCalculatedDate = now
	work.UpdatedAt = now

	calc := &interest.DailyCalculation{
		ID:                 uuid.New(),
		LoanID:             work.ID,
		BranchID:           work.BranchID,
		CustomerID:         work.CustomerID,
		RunDate:            today,
		DaysCalculated:     days,
		InterestCalculated: totalInterest,
		CalculatedVat:      totalVat,
		PreviousBalance:    previousBalance,
		NewBalance:         work.Balance,
		DueAmount:          work.DueAmount,
		InterestRate:       work.InterestRate,
		VatRate:            work.VatRate,
		CreatedAt:          now,
	}

	if err := s.uow.CommitAccrual(ctx, &work, calc); err != nil {
		return nil, fmt.Errorf("failed to persist accrual for loan %d: %w", l.ID, err)
	}
	*l = work

	result.Outcome = OutcomeAccrued
	result.Interest = totalInterest
	result.Vat = totalVat
	result.Calculation = calc
	return result, nil
}

// handleNonPositiveInterest covers the rate edge cases. A zero rate wipes accrued
// interest back to principal and a negative VAT rate is clamped; both are persisted
// without a ledger row. Anything else is a silent skip.
func (s *InterestService) handleNonPositiveInterest(ctx context.Context, l, work *loan.Loan, result *LoanResult) (*LoanResult, error) {
	switch {
	case work.InterestRate.IsZero():
		work.AccrualInterest = decimal.Zero
		work.Balance = work.LoanAmount.Sub(work.Paid)
		result.Outcome = OutcomeZeroRateReset
	case work.VatRate.IsNegative():
		work.VatRate = decimal.Zero
		work.LastCalculatedInterest = decimal.Zero
		result.Outcome = OutcomeNegativeVatClamped
	default:
		result.Outcome = OutcomeNonPositiveInterest
		return result, nil
	}

	if err := s.loans.Update(ctx, work); err != nil {
		return nil, fmt.Errorf("failed to persist %s for loan %d: %w", result.Outcome, l.ID, err)
	}
	*l = *work
	return result, nil
}

// accrualStartDay is the calendar day accrual counts from. The last calculation is a
// timestamp and is read in the service location; the disbursement date is a plain date.
func (s *InterestService) accrualStartDay(l *loan.Loan) time.Time {
	start := l.AccrualStartDate()
	if l.HasBeenCalculated() {
		start = start.In(s.location)
	}
	return dateOf(start)
}

func (s *InterestService) ensureDuration(ctx context.Context, l *loan.Loan) error {
	if l.LoanDuration != 0 {
		return nil
	}
	application, err := s.applications.FindByID(ctx, l.LoanApplicationID)
	if err != nil {
		return fmt.Errorf("failed to backfill duration from loan application %d: %w", l.LoanApplicationID, err)
	}
	if application.LoanDuration == 0 {
		return ErrLoanDurationUnknown
	}
	l.LoanDuration = application.LoanDuration
	return nil
}

// vatRateFor never lets a negative VAT rate reduce what the customer owes.
func vatRateFor(l *loan.Loan) decimal.Decimal {
	if l.VatRate.IsNegative() {
		return decimal.Zero
	}
	return l.VatRate
}

func (s *InterestService) notify(ctx context.Context, log *logrus.Entry, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendToActiveSubscribers(ctx, message); err != nil {
		log.WithError(err).Warn("Failed to send batch notification")
	}
}

// loadBuckets returns nil when no loader is set or the table cannot be read;
// the batch then runs without a delinquency summary.
func (s *InterestService) loadBuckets(ctx context.Context, log *logrus.Entry) delinquency.Table {
	if s.buckets == nil {
		return nil
	}
	table, err := s.buckets.LoadTable(ctx)
	if err != nil {
		log.WithError(err).Warn("Delinquency summary disabled for this batch")
		return nil
	}
	return table
}

func completionMessage(r *BatchResult) string {
	msg := fmt.Sprintf("Loan interest calculation complete: %d of %d loans processed, %d accrued, %d failed.",
		r.Attempted, r.Eligible, r.Accrued, r.Failed)
	if r.Cancelled {
		msg += " The run was interrupted by shutdown."
	}
	if len(r.Buckets) > 0 {
		msg += " Delinquency:"
		for _, name := range slices.Sorted(maps.Keys(r.Buckets)) {
			msg += fmt.Sprintf(" %s=%d", name, r.Buckets[name])
		}
	}
	return msg
}

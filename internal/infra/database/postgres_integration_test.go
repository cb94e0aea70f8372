package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"loan_interest_accrual/internal/domain/interest"
	"loan_interest_accrual/internal/domain/loan"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a disposable database named by TEST_DATABASE_URL; skipped otherwise.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewPostgresConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(schema))
	require.NoError(t, err)
	return db
}

func insertTestLoan(t *testing.T, db *sql.DB, lastCalculated sql.NullTime) int64 {
	t.Helper()
	ctx := context.Background()
	var appID, loanID int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO loan_applications (customer_id, loan_duration) VALUES (7, 6) RETURNING id`).Scan(&appID))
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO loans (loan_application_id, customer_id, branch_id, loan_amount, balance, due_amount,
                            interest_rate, vat_rate, disbursement_date, last_interest_calculated_date, loan_duration)
         VALUES ($1, 7, 1, 100000, 100000, 5000, 12, 19.25, '2024-01-10', $2, 6) RETURNING id`,
		appID, lastCalculated).Scan(&loanID))
	return loanID
}

func TestPostgresInterestRepository_CommitAccrual(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	loans := NewPostgresLoanRepository(db)
	ledger := NewPostgresInterestRepository(db)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(time.Second)
	id := insertTestLoan(t, db, sql.NullTime{Time: yesterday, Valid: true})

	l, err := loans.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, l.IsAccruable())
	assert.True(t, l.HasBeenCalculated())

	now := yesterday.AddDate(0, 0, 1)
	l.AccrualInterest = decimal.NewFromInt(400)
	l.Tax = decimal.NewFromInt(77)
	l.DueAmount = decimal.NewFromInt(5477)
	l.Balance = decimal.NewFromInt(100477)
	l.LastInterestCalculatedDate = now
	calc := &interest.DailyCalculation{
		ID:                 uuid.New(),
		LoanID:             id,
		BranchID:           l.BranchID,
		CustomerID:         l.CustomerID,
		RunDate:            now,
		DaysCalculated:     1,
		InterestCalculated: decimal.NewFromInt(400),
		CalculatedVat:      decimal.NewFromInt(77),
		PreviousBalance:    decimal.NewFromInt(100000),
		NewBalance:         l.Balance,
		DueAmount:          l.DueAmount,
		InterestRate:       l.InterestRate,
		VatRate:            l.VatRate,
		CreatedAt:          now,
	}
	require.NoError(t, ledger.CommitAccrual(ctx, l, calc))

	stored, err := loans.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5477).Equal(stored.DueAmount))
	assert.True(t, now.Equal(stored.LastInterestCalculatedDate))

	rows, err := ledger.ListByLoan(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, calc.ID, rows[0].ID)

	// A second row for the same run date is rejected and rolls the loan update back.
	l.DueAmount = decimal.NewFromInt(9999)
	dup := *calc
	dup.ID = uuid.New()
	err = ledger.CommitAccrual(ctx, l, &dup)
	assert.ErrorIs(t, err, ErrDuplicateCalculation)

	stored, err = loans.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5477).Equal(stored.DueAmount))
}

func TestPostgresLoanRepository_RefusesToMoveDateBackwards(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	loans := NewPostgresLoanRepository(db)

	today := time.Now().UTC().Truncate(time.Second)
	id := insertTestLoan(t, db, sql.NullTime{Time: today, Valid: true})

	l, err := loans.GetByID(ctx, id)
	require.NoError(t, err)
	l.LastInterestCalculatedDate = today.AddDate(0, 0, -2)

	assert.ErrorIs(t, loans.Update(ctx, l), ErrStaleLoanUpdate)

	l.ID = -1
	assert.ErrorIs(t, loans.Update(ctx, l), ErrLoanNotFound)
}

func TestPostgresLoanRepository_NeverCalculatedLoan(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	loans := NewPostgresLoanRepository(db)

	id := insertTestLoan(t, db, sql.NullTime{})

	l, err := loans.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, l.HasBeenCalculated())
	assert.Equal(t, loan.StatusOpen, l.Status)

	_, err = loans.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestPostgresInterestRepository_AppendAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ledger := NewPostgresInterestRepository(db)

	id := insertTestLoan(t, db, sql.NullTime{})
	runDate := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	calc := &interest.DailyCalculation{
		ID:                 uuid.New(),
		LoanID:             id,
		BranchID:           1,
		CustomerID:         7,
		RunDate:            runDate,
		DaysCalculated:     2,
		InterestCalculated: decimal.NewFromInt(800),
		CalculatedVat:      decimal.NewFromInt(154),
		PreviousBalance:    decimal.NewFromInt(100000),
		NewBalance:         decimal.NewFromInt(100954),
		DueAmount:          decimal.NewFromInt(5954),
		InterestRate:       decimal.NewFromInt(12),
		VatRate:            decimal.RequireFromString("19.25"),
		CreatedAt:          runDate.Add(2 * time.Hour),
	}
	require.NoError(t, ledger.Append(ctx, calc))

	got, err := ledger.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.DaysCalculated)
	assert.True(t, calc.CalculatedVat.Equal(got.CalculatedVat))
	assert.True(t, calc.VatRate.Equal(got.VatRate))

	_, err = ledger.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCalculationNotFound)
}

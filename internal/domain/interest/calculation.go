// internal/domain/interest/calculation.go
package interest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyCalculation is one immutable ledger row describing a single accrual run on a loan.
// Corresponds to the 'daily_interest_calculations' table in migration 001.
type DailyCalculation struct {
	ID                 uuid.UUID
	LoanID             int64
	BranchID           int64
	CustomerID         int64
	RunDate            time.Time // Date part of the run
	DaysCalculated     int
	InterestCalculated decimal.Decimal
	CalculatedVat      decimal.Decimal
	PreviousBalance    decimal.Decimal
	NewBalance         decimal.Decimal
	DueAmount          decimal.Decimal
	InterestRate       decimal.Decimal
	VatRate            decimal.Decimal
	CreatedAt          time.Time
}

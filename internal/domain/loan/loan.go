// internal/domain/loan/loan.go
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan is the accrual view of a disbursed loan.
// Corresponds to the 'loans' table in migration 001.
type Loan struct {
	ID                int64
	LoanApplicationID int64
	CustomerID        int64
	BranchID          int64

	LoanAmount             decimal.Decimal
	Paid                   decimal.Decimal
	Balance                decimal.Decimal
	AccrualInterest        decimal.Decimal
	Tax                    decimal.Decimal
	DueAmount              decimal.Decimal
	LastCalculatedInterest decimal.Decimal

	InterestRate decimal.Decimal // Percent, read as a monthly rate spread over 30 days
	VatRate      decimal.Decimal // Percent of interest

	DisbursementDate           time.Time
	LastInterestCalculatedDate time.Time // Zero or epoch means never calculated
	LoanDuration               int       // Months

	Status    Status
	IsDeleted bool
	UpdatedAt time.Time
}

// Principal returns the outstanding principal (LoanAmount - Paid).
func (l *Loan) Principal() decimal.Decimal {
	return l.LoanAmount.Sub(l.Paid)
}

// HasBeenCalculated reports whether interest was ever accrued on this loan.
func (l *Loan) HasBeenCalculated() bool {
	return !l.LastInterestCalculatedDate.IsZero() && l.LastInterestCalculatedDate.Unix() > 0
}

// AccrualStartDate is the date interest accrual counts from.
func (l *Loan) AccrualStartDate() time.Time {
	if l.HasBeenCalculated() {
		return l.LastInterestCalculatedDate
	}
	return l.DisbursementDate
}

// IsAccruable mirrors the eligibility filter applied by Store.FindOpenAccruableLoans.
func (l *Loan) IsAccruable() bool {
	return l.Status == StatusOpen &&
		!l.IsDeleted &&
		l.InterestRate.GreaterThan(decimal.Zero) &&
		l.Principal().GreaterThan(decimal.Zero)
}

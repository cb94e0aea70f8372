package loan

import "time"

// Application is the origination record a loan was disbursed from.
// Only the duration is read during accrual.
type Application struct {
	ID           int64
	CustomerID   int64
	LoanDuration int // Months
	CreatedAt    time.Time
}

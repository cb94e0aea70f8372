package delinquency

import "context"

// Repository reads the delinquency configuration table.
type Repository interface {
	ListAll(ctx context.Context) ([]Configuration, error)
	FindBucketForDays(ctx context.Context, days int) (*Configuration, error)
}

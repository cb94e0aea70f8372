package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loan_interest_accrual/internal/domain/delinquency"
)

var ErrBucketNotFound = fmt.Errorf("delinquency bucket not found")

type PostgresDelinquencyRepository struct {
	db *sql.DB
}

func NewPostgresDelinquencyRepository(db *sql.DB) *PostgresDelinquencyRepository {
	return &PostgresDelinquencyRepository{db: db}
}

func (r *PostgresDelinquencyRepository) ListAll(ctx context.Context) ([]delinquency.Configuration, error) {
	query := `SELECT id, bucket_id, name, days_from, days_to
               FROM loan_delinquency_configurations ORDER BY days_from`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing delinquency configurations: %w", err)
	}
	defer rows.Close()

	configs := make([]delinquency.Configuration, 0)
	for rows.Next() {
		var c delinquency.Configuration
		if err := rows.Scan(&c.ID, &c.BucketID, &c.Name, &c.DaysFrom, &c.DaysTo); err != nil {
			return nil, fmt.Errorf("error scanning delinquency configuration: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delinquency configurations: %w", err)
	}
	return configs, nil
}

func (r *PostgresDelinquencyRepository) FindBucketForDays(ctx context.Context, days int) (*delinquency.Configuration, error) {
	query := `SELECT id, bucket_id, name, days_from, days_to
               FROM loan_delinquency_configurations
               WHERE $1 BETWEEN days_from AND days_to
               ORDER BY days_from LIMIT 1`
	c := &delinquency.Configuration{}
	err := r.db.QueryRowContext(ctx, query, days).Scan(&c.ID, &c.BucketID, &c.Name, &c.DaysFrom, &c.DaysTo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBucketNotFound
		}
		return nil, fmt.Errorf("error finding delinquency bucket for %d days: %w", days, err)
	}
	return c, nil
}

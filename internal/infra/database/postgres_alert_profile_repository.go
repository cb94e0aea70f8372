package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loan_interest_accrual/internal/domain/alert"
)

var ErrAlertProfileNotFound = fmt.Errorf("alert profile not found")

type PostgresAlertProfileRepository struct {
	db *sql.DB
}

func NewPostgresAlertProfileRepository(db *sql.DB) *PostgresAlertProfileRepository {
	return &PostgresAlertProfileRepository{db: db}
}

func (r *PostgresAlertProfileRepository) ListSubscribed(ctx context.Context) ([]*alert.Profile, error) {
	query := `SELECT id, name, phone, telegram_chat_id, is_active, opted_in, created_at
               FROM alert_profiles WHERE is_active = TRUE AND opted_in = TRUE ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing subscribed alert profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*alert.Profile, 0)
	for rows.Next() {
		p := &alert.Profile{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.TelegramChatID, &p.IsActive, &p.OptedIn, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning alert profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert profiles: %w", err)
	}
	return profiles, nil
}

func (r *PostgresAlertProfileRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*alert.Profile, error) {
	query := `SELECT id, name, phone, telegram_chat_id, is_active, opted_in, created_at
               FROM alert_profiles WHERE telegram_chat_id = $1`
	p := &alert.Profile{}
	err := r.db.QueryRowContext(ctx, query, chatID).Scan(&p.ID, &p.Name, &p.Phone, &p.TelegramChatID, &p.IsActive, &p.OptedIn, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertProfileNotFound
		}
		return nil, fmt.Errorf("error getting alert profile by Telegram chat ID: %w", err)
	}
	return p, nil
}

package alert

import (
	"database/sql"
	"time"
)

// Profile is an operator subscribed to accrual batch alerts.
type Profile struct {
	ID             int64
	Name           string
	Phone          string
	TelegramChatID sql.NullInt64 // Set when the operator linked a Telegram chat
	IsActive       bool
	OptedIn        bool // Opted in to batch alerts
	CreatedAt      time.Time
}

// Subscribed reports whether the profile should receive batch alerts.
func (p *Profile) Subscribed() bool {
	return p.IsActive && p.OptedIn
}

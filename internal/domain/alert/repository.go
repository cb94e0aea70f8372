package alert

import "context"

// Repository defines read access to alert profiles.
type Repository interface {
	ListSubscribed(ctx context.Context) ([]*Profile, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*Profile, error)
}

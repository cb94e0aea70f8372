// internal/app/notifier.go
package app

import (
	"context"
	"fmt"

	"loan_interest_accrual/internal/domain/alert"
	"loan_interest_accrual/internal/domain/messaging"

	"github.com/sirupsen/logrus"
)

// Notifier fans a message out to every subscribed alert profile.
type Notifier struct {
	profiles alert.Repository
	client   messaging.Client
	logger   *logrus.Entry
}

func NewNotifier(profiles alert.Repository, client messaging.Client, logger *logrus.Entry) *Notifier {
	return &Notifier{
		profiles: profiles,
		client:   client,
		logger:   logger,
	}
}

// SendToActiveSubscribers delivers message to all active, opted-in profiles.
// A failed delivery to one profile is logged and does not stop the others;
// an error is returned only if the profiles cannot be listed or every delivery failed.
func (n *Notifier) SendToActiveSubscribers(ctx context.Context, message string) error {
	profiles, err := n.profiles.ListSubscribed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscribed alert profiles: %w", err)
	}
	if len(profiles) == 0 {
		n.logger.Debug("No subscribed alert profiles, notification not sent")
		return nil
	}

	sent, failed := 0, 0
	for _, p := range profiles {
		if !p.Subscribed() {
			continue
		}
		recipient := messaging.Recipient{Name: p.Name, Phone: p.Phone}
		if p.TelegramChatID.Valid {
			recipient.ChatID = p.TelegramChatID.Int64
		}

		if err := n.client.SendMessage(recipient, message); err != nil {
			failed++
			n.logger.WithError(err).WithField("profile_id", p.ID).Warn("Failed to notify alert profile")
			continue
		}
		sent++
	}

	n.logger.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("Batch notification delivered")
	if sent == 0 && failed > 0 {
		return fmt.Errorf("notification failed for all %d subscribed profiles", failed)
	}
	return nil
}

// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"loan_interest_accrual/internal/domain/alert"
	idb "loan_interest_accrual/internal/infra/database"
	"loan_interest_accrual/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// StatusSource exposes the accrual scheduler state to operators.
type StatusSource interface {
	Status() scheduler.Status
}

// RegisterBotCommands wires /start and /status. Only chats linked to a subscribed
// alert profile get an answer.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	profiles alert.Repository,
	status StatusSource,
	baseLogger *logrus.Entry,
) {
	b.Handle("/start", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{"command": "/start", "chat_id": c.Chat().ID})
		profile, err := authorize(ctx, profiles, c.Chat().ID)
		if err != nil {
			logCtx.WithError(err).Warn("Unauthorized chat")
			return c.Send("This chat is not linked to an active alert profile.")
		}
		logCtx.WithField("profile_id", profile.ID).Info("Operator connected")
		return c.Send(fmt.Sprintf("Hello, %s. You will receive interest accrual batch alerts here. Use /status to see the scheduler state.", profile.Name))
	})

	b.Handle("/status", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{"command": "/status", "chat_id": c.Chat().ID})
		if _, err := authorize(ctx, profiles, c.Chat().ID); err != nil {
			logCtx.WithError(err).Warn("Unauthorized chat")
			return c.Send("This chat is not linked to an active alert profile.")
		}
		return c.Send(FormatStatus(status.Status()))
	})
}

func authorize(ctx context.Context, profiles alert.Repository, chatID int64) (*alert.Profile, error) {
	profile, err := profiles.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !profile.Subscribed() {
		return nil, idb.ErrAlertProfileNotFound
	}
	return profile, nil
}

// FormatStatus renders a scheduler status as a short operator message.
func FormatStatus(s scheduler.Status) string {
	const layout = "2006-01-02 15:04"
	var sb strings.Builder
	if s.Running {
		sb.WriteString("Accrual batch: running\n")
	} else {
		sb.WriteString("Accrual batch: idle\n")
	}
	sb.WriteString("Next run: " + s.NextExecutionTime.Format(layout) + "\n")
	sb.WriteString("Last success: " + formatOptional(s.LastSuccessfulRun, layout) + "\n")
	if s.LastErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Last error (%s): %s\n", formatOptional(s.LastErrorAt, layout), s.LastErrorMessage))
	}
	if s.LastBatch != nil {
		sb.WriteString(fmt.Sprintf("Last batch: %d/%d processed, %d accrued, %d failed",
			s.LastBatch.Attempted, s.LastBatch.Eligible, s.LastBatch.Accrued, s.LastBatch.Failed))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatOptional(t time.Time, layout string) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(layout)
}

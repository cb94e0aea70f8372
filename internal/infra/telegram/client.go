// internal/infra/telegram/client.go
package telegram

import (
	"errors"

	"loan_interest_accrual/internal/domain/messaging"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var ErrNoChat = errors.New("recipient has no linked Telegram chat")

// Sender is the part of *telebot.Bot the adapter uses.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter implements messaging.Client using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot Sender
}

func NewTelebotAdapter(b Sender) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a plain text message to the recipient's linked chat.
func (tba *TelebotAdapter) SendMessage(recipient messaging.Recipient, text string) error {
	if recipient.ChatID == 0 {
		return ErrNoChat
	}
	_, err := tba.bot.Send(&telebot.Chat{ID: recipient.ChatID}, text, &telebot.SendOptions{DisableWebPagePreview: true})
	return err
}

// LogClient only logs messages. It stands in when no bot token is configured.
type LogClient struct {
	logger *logrus.Entry
}

func NewLogClient(logger *logrus.Entry) *LogClient {
	return &LogClient{logger: logger}
}

func (c *LogClient) SendMessage(recipient messaging.Recipient, text string) error {
	c.logger.WithFields(logrus.Fields{
		"recipient": recipient.Name,
		"phone":     recipient.Phone,
	}).Info(text)
	return nil
}

package messaging

// Recipient identifies where an operator message is delivered.
type Recipient struct {
	Name   string
	Phone  string
	ChatID int64 // Zero when the operator has no linked chat
}

// Client defines an interface for delivering a text message to one recipient.
// This keeps the application logic independent of the delivery channel.
type Client interface {
	SendMessage(recipient Recipient, text string) error
}

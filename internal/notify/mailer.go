package notify

import (
	"context"

	"auction-house/utils"
)

//go:generate mockgen -source=mailer.go -destination=mock_mailer.go -package=notify

// Message is a plain-text email
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer delivers a message synchronously. A returned error means the message was not accepted.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	From string
}

// Send logs msg and always succeeds
func (m LogMailer) Send(_ context.Context, msg Message) error {
	utils.Info("email", map[string]any{
		"from":    m.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
	return nil
}

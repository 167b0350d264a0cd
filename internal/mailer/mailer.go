package mailer

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("mail credentials missing")

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is a plain-text email.
type Message struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Mailer delivers messages.
type Mailer interface {
	SendMail(ctx context.Context, msg *Message) error
}

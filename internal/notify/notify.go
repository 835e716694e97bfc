// Package notify defines the outbound notification channels used for
// emergency escalation and renders the messages sent over them.
package notify

import (
	"context"
	"errors"
)

// ErrInvalidRecipient is returned when a channel is asked to deliver to an empty address.
var ErrInvalidRecipient = errors.New("invalid recipient")

// SMSSender delivers a text message and returns the provider's message reference.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
	Name() string
}

// EmailSender delivers an email and returns the provider's message reference.
type EmailSender interface {
	SendEmail(ctx context.Context, to string, email Email) (string, error)
	Name() string
}

// Email is a rendered email with plain-text and HTML bodies.
type Email struct {
	Subject string
	Text    string
	HTML    string
}

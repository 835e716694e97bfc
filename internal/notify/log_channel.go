package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogChannel is the fallback used when no SMS or email transport is configured.
// Messages are written to the log and reported as sent.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a channel that logs instead of delivering.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With().Str("channel", "log").Logger()}
}

// Name returns the provider name recorded in the audit log.
func (c *LogChannel) Name() string {
	return "log"
}

// SendSMS logs the message.
func (c *LogChannel) SendSMS(_ context.Context, to, body string) (string, error) {
	if to == "" {
		return "", ErrInvalidRecipient
	}
	ref := "log_" + uuid.New().String()[:22]
	c.logger.Info().
		Str("to", to).
		Str("ref", ref).
		Int("length", len(body)).
		Msg("sms transport not configured, message logged")
	return ref, nil
}

// SendEmail logs the email.
func (c *LogChannel) SendEmail(_ context.Context, to string, email Email) (string, error) {
	if to == "" {
		return "", ErrInvalidRecipient
	}
	ref := "log_" + uuid.New().String()[:22]
	c.logger.Info().
		Str("to", to).
		Str("ref", ref).
		Str("subject", email.Subject).
		Msg("email transport not configured, message logged")
	return ref, nil
}

var (
	_ SMSSender   = (*LogChannel)(nil)
	_ EmailSender = (*LogChannel)(nil)
)

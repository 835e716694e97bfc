// Package smtp sends email through an SMTP relay using go-mail.
package smtp

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/uyirkavalan/uyirkavalan/internal/notify"
)

// ProviderName identifies this email provider.
const ProviderName = "smtp"

// Config holds SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the envelope and header sender. Defaults to Username.
	From string

	Logger zerolog.Logger
}

// Sender delivers email through an SMTP relay.
type Sender struct {
	client *mail.Client
	from   string
	logger zerolog.Logger
}

// NewSender creates a sender for the configured relay.
func NewSender(cfg Config) (*Sender, error) {
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	return &Sender{client: client, from: from, logger: cfg.Logger}, nil
}

// Name returns the provider name.
func (s *Sender) Name() string {
	return ProviderName
}

// SendEmail delivers the email and returns its Message-ID.
func (s *Sender) SendEmail(ctx context.Context, to string, email notify.Email) (string, error) {
	if to == "" {
		return "", notify.ErrInvalidRecipient
	}

	msg, err := BuildMessage(s.from, to, email)
	if err != nil {
		return "", err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("sending email: %w", err)
	}

	ref := messageID(msg)
	s.logger.Debug().Str("to", to).Str("message_id", ref).Msg("email sent")
	return ref, nil
}

// BuildMessage assembles a multipart message with text and HTML alternatives.
func BuildMessage(from, to string, email notify.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	if email.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	}
	msg.SetMessageID()

	return msg, nil
}

func messageID(msg *mail.Msg) string {
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

var _ notify.EmailSender = (*Sender)(nil)

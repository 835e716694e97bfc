package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/fanout"
)

// ActiveWindow is how recent a message must be for its thread to count as active.
const ActiveWindow = 24 * time.Hour

// ServiceConfig holds configuration for the chat service.
type ServiceConfig struct {
	Repo      Repository
	Directory boat.Directory
	Link      Link
	Bus       bus.MessageBus
	// Concurrency bounds parallel sends in a broadcast.
	Concurrency int
	Logger      zerolog.Logger
}

// Service is the store-and-forward channel between boats.
type Service struct {
	repo      Repository
	directory boat.Directory
	link      Link
	bus       bus.MessageBus
	group     *fanout.Group
	logger    zerolog.Logger
}

// NewService creates a new chat service.
func NewService(cfg ServiceConfig) *Service {
	link := cfg.Link
	if link == nil {
		link = NewSimulatedLink(DefaultSimulatedLinkConfig())
	}
	return &Service{
		repo:      cfg.Repo,
		directory: cfg.Directory,
		link:      link,
		bus:       cfg.Bus,
		group:     fanout.New(cfg.Concurrency),
		logger:    cfg.Logger.With().Str("component", "chat").Logger(),
	}
}

// SendInput is a message to send.
type SendInput struct {
	FromBoat string
	ToBoat   string
	Body     string
	Kind     Kind
}

// Send stores a message, files a backup copy for the recipient and attempts
// one radio transmission. A failed transmission is not an error: the message
// stays undelivered and the backup copy is the recovery path.
func (s *Service) Send(ctx context.Context, input *SendInput) (*Message, error) {
	if input.Kind == "" {
		input.Kind = KindText
	}
	if fieldErrors := validateSendInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now()
	m := &Message{
		ID:              "msg_" + uuid.New().String()[:22],
		ThreadID:        ThreadID(input.FromBoat, input.ToBoat),
		FromBoat:        input.FromBoat,
		ToBoat:          input.ToBoat,
		Body:            input.Body,
		Kind:            input.Kind,
		SentAt:          now,
		TransportStatus: TransportPending,
	}

	if err := s.repo.Append(ctx, m); err != nil {
		return nil, err
	}

	// The transmission below is not cancellable once the message is stored.
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.AddBackup(ctx, &BackupEntry{Message: *copyMessage(m), BackedUpAt: now}); err != nil {
		s.logger.Error().Err(err).Str("message_id", m.ID).Str("to_boat", m.ToBoat).Msg("failed to store backup copy")
	}

	bus.PublishToBoat(s.bus, m.ToBoat, bus.KindChatMessage, copyMessage(m))

	status, err := s.link.Transmit(ctx, m)
	if err != nil {
		s.logger.Warn().Err(err).Str("message_id", m.ID).Msg("transmission error")
		status = TransportFailed
	}

	var deliveredAt *time.Time
	if status == TransportTransmitted {
		t := time.Now()
		deliveredAt = &t
		m.Delivered = true
		m.DeliveredAt = deliveredAt
	}
	m.TransportStatus = status

	if err := s.repo.SetTransport(ctx, m.ID, status, deliveredAt); err != nil {
		s.logger.Error().Err(err).Str("message_id", m.ID).Msg("failed to record transport status")
	}

	s.logger.Debug().
		Str("message_id", m.ID).
		Str("thread_id", m.ThreadID).
		Str("kind", string(m.Kind)).
		Str("transport", string(status)).
		Msg("message sent")

	return m, nil
}

// Recipient is the outcome of one send within a broadcast.
type Recipient struct {
	Boat    string
	Message *Message
	Err     error
}

// BroadcastResult lists the per-recipient outcomes of a broadcast.
type BroadcastResult struct {
	Recipients []Recipient
	Sent       int
	Failed     int
}

// Broadcast sends body to every other active boat. Each send is independent;
// a failure for one recipient neither stops the others nor rolls them back.
func (s *Service) Broadcast(ctx context.Context, fromBoat, body string, kind Kind) (*BroadcastResult, error) {
	if kind == "" {
		kind = KindText
	}
	probe := &SendInput{FromBoat: fromBoat, ToBoat: fromBoat, Body: body, Kind: kind}
	if fieldErrors := validateSendInput(probe); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	boats, err := s.directory.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(boats))
	for _, b := range boats {
		if b.ID != fromBoat {
			recipients = append(recipients, b.ID)
		}
	}

	messages := make([]*Message, len(recipients))
	tasks := make([]fanout.Task, len(recipients))
	for i, to := range recipients {
		tasks[i] = fanout.Task{
			Name: to,
			Run: func(ctx context.Context) (string, error) {
				m, err := s.Send(ctx, &SendInput{FromBoat: fromBoat, ToBoat: to, Body: body, Kind: kind})
				if err != nil {
					return "", err
				}
				messages[i] = m
				return m.ID, nil
			},
		}
	}

	results := s.group.Run(ctx, tasks)

	out := &BroadcastResult{Recipients: make([]Recipient, len(results))}
	for i, r := range results {
		out.Recipients[i] = Recipient{Boat: r.Name, Message: messages[i], Err: r.Err}
		if r.Err != nil {
			out.Failed++
			s.logger.Warn().Err(r.Err).Str("from_boat", fromBoat).Str("to_boat", r.Name).Msg("broadcast send failed")
			continue
		}
		out.Sent++
	}

	s.logger.Info().
		Str("from_boat", fromBoat).
		Str("kind", string(kind)).
		Int("sent", out.Sent).
		Int("failed", out.Failed).
		Msg("broadcast completed")

	return out, nil
}

// SendSOS broadcasts an SOS chat message to every other active boat.
func (s *Service) SendSOS(ctx context.Context, fromBoat, body string) (*BroadcastResult, error) {
	return s.Broadcast(ctx, fromBoat, strings.TrimSpace("SOS: "+body), KindSOS)
}

// MarkRead flags every unread message addressed to boat in the thread as read.
// Calling it again with nothing unread returns 0.
func (s *Service) MarkRead(ctx context.Context, threadID, boatID string) (int, error) {
	if err := checkParticipant(threadID, boatID); err != nil {
		return 0, err
	}
	return s.repo.MarkRead(ctx, threadID, boatID, time.Now())
}

// UnreadCount counts unread messages addressed to boat in the thread.
func (s *Service) UnreadCount(ctx context.Context, threadID, boatID string) (int, error) {
	if err := checkParticipant(threadID, boatID); err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, threadID, boatID)
}

// TotalUnread counts unread messages addressed to boat across all threads.
func (s *Service) TotalUnread(ctx context.Context, boatID string) (int, error) {
	threads, err := s.repo.Threads(ctx, boatID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, t := range threads {
		total += t.UnreadCount
	}
	return total, nil
}

// History returns the newest limit messages between a and b in chronological order.
func (s *Service) History(ctx context.Context, a, b string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.History(ctx, ThreadID(a, b), limit)
}

// Threads lists boat's threads, most recently active first.
func (s *Service) Threads(ctx context.Context, boatID string) ([]ThreadSummary, error) {
	return s.repo.Threads(ctx, boatID)
}

// DrainBackup returns boat's backup queue, oldest first. The queue is left intact
// until the boat acknowledges the entries it has stored with AckBackup.
func (s *Service) DrainBackup(ctx context.Context, boatID string) ([]*BackupEntry, error) {
	return s.repo.ListBackup(ctx, boatID)
}

// ClearBackup empties boat's backup queue.
func (s *Service) ClearBackup(ctx context.Context, boatID string) (int, error) {
	n, err := s.repo.ClearBackup(ctx, boatID)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("boat_id", boatID).Int("cleared", n).Msg("backup queue cleared")
	return n, nil
}

// MaxAckBatch caps how many message IDs one AckBackup call may name.
const MaxAckBatch = 500

// AckBackup removes the entries the boat has stored locally. Entries filed
// after the boat drained its queue are not named and stay queued.
func (s *Service) AckBackup(ctx context.Context, boatID string, messageIDs []string) (int, error) {
	if len(messageIDs) > MaxAckBatch {
		return 0, &ValidationError{Errors: []models.FieldError{
			{Field: "messageIds", Message: fmt.Sprintf("must name at most %d messages", MaxAckBatch)},
		}}
	}
	if len(messageIDs) == 0 {
		return 0, nil
	}
	n, err := s.repo.AckBackup(ctx, boatID, messageIDs)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("boat_id", boatID).Int("requested", len(messageIDs)).Int("acked", n).Msg("backup entries acknowledged")
	return n, nil
}

// LinkStatus reports the radio link state of a boat.
func (s *Service) LinkStatus(ctx context.Context, boatID string) (*LinkStatus, error) {
	return s.link.Status(ctx, boatID)
}

// Stats summarises a boat's chat activity.
func (s *Service) Stats(ctx context.Context, boatID string) (*Stats, error) {
	return s.repo.Stats(ctx, boatID, time.Now().Add(-ActiveWindow))
}

func checkParticipant(threadID, boatID string) error {
	if _, _, err := ParseThreadID(threadID); err != nil {
		return &ValidationError{Errors: []models.FieldError{
			{Field: "threadId", Message: "must be two boat IDs joined by _"},
		}}
	}
	if !Participant(threadID, boatID) {
		return &ValidationError{Errors: []models.FieldError{
			{Field: "boatId", Message: "is not a participant of the thread"},
		}}
	}
	return nil
}

func validateSendInput(input *SendInput) []models.FieldError {
	var errs []models.FieldError

	if !boat.ValidID(input.FromBoat) {
		errs = append(errs, models.FieldError{Field: "fromBoat", Message: "must match TN00-XX000"})
	}
	if !boat.ValidID(input.ToBoat) {
		errs = append(errs, models.FieldError{Field: "toBoat", Message: "must match TN00-XX000"})
	}

	n := utf8.RuneCountInString(input.Body)
	if n == 0 {
		errs = append(errs, models.FieldError{Field: "message", Message: "is required"})
	} else if n > MaxBodyLength {
		errs = append(errs, models.FieldError{Field: "message", Message: "must be at most 1000 characters"})
	}

	if !input.Kind.Valid() {
		errs = append(errs, models.FieldError{Field: "messageType", Message: "must be one of text, sos, location, weather"})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// IsValidation reports whether err is a chat validation error.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

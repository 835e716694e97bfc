package alert

import (
	"context"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/audit"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/dispatch"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/voice"
)

// InboxListLimit is how many inbox entries a boat sees.
const InboxListLimit = 10

// Notifier delivers an alert to boat inboxes. *dispatch.Dispatcher implements it.
type Notifier interface {
	NotifyBoats(ctx context.Context, inc dispatch.Incident, boats []string) []dispatch.Delivery
}

// VoiceResolver returns an audio URL for a text. *voice.Cache implements it.
type VoiceResolver interface {
	URL(ctx context.Context, text, language string) (string, error)
}

// ServiceConfig holds configuration for the alert service.
type ServiceConfig struct {
	Repo      Repository
	Inbox     inbox.Repository
	Directory boat.Directory
	Notifier  Notifier
	Voice     VoiceResolver
	Audit     audit.Repository
	Logger    zerolog.Logger
}

// Service manages broadcast alerts.
type Service struct {
	repo      Repository
	inbox     inbox.Repository
	directory boat.Directory
	notifier  Notifier
	voice     VoiceResolver
	audit     audit.Repository
	logger    zerolog.Logger
}

// NewService creates a new alert service.
func NewService(cfg ServiceConfig) *Service {
	v := cfg.Voice
	if v == nil {
		v = voice.NewCache(nil, cfg.Logger)
	}
	return &Service{
		repo:      cfg.Repo,
		inbox:     cfg.Inbox,
		directory: cfg.Directory,
		notifier:  cfg.Notifier,
		voice:     v,
		audit:     cfg.Audit,
		logger:    cfg.Logger.With().Str("component", "alert").Logger(),
	}
}

// CreateInput is a request to broadcast an alert.
type CreateInput struct {
	Type               Type
	Severity           Severity
	Title              string
	Description        string
	AffectedAreas      []string
	EstimatedTime      time.Time
	RecommendedActions []string
	VoiceText          string
	CreatedBy          string
}

// CreateResult is the created alert and the outcome per boat.
type CreateResult struct {
	Alert      *Alert
	Deliveries []dispatch.Delivery
}

// Create validates and stores an alert, then delivers it to every affected boat.
// A failed voice synthesis leaves the alert without audio.
func (s *Service) Create(ctx context.Context, input *CreateInput) (*CreateResult, error) {
	now := time.Now()
	if fieldErrors := validateCreateInput(input, now); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	voiceURL, err := s.voice.URL(ctx, input.VoiceText, voice.LanguageTamil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("voice synthesis failed, alert will be text only")
		voiceURL = ""
	}

	a := &Alert{
		ID:                 "alt_" + uuid.New().String()[:22],
		Type:               input.Type,
		Severity:           input.Severity,
		Title:              input.Title,
		Description:        input.Description,
		AffectedAreas:      input.AffectedAreas,
		EstimatedTime:      input.EstimatedTime,
		RecommendedActions: input.RecommendedActions,
		VoiceText:          input.VoiceText,
		VoiceURL:           voiceURL,
		Active:             true,
		AcknowledgedBy:     []string{},
		CreatedBy:          input.CreatedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, audit.Lifecycle(audit.SubjectAlert, a.ID, audit.EventCreated, a.CreatedBy))

	boats, err := s.affectedBoats(ctx, a)
	if err != nil {
		s.logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to list affected boats")
		return &CreateResult{Alert: a}, nil
	}

	deliveries := s.notifier.NotifyBoats(ctx, dispatch.Incident{
		Kind:      audit.SubjectAlert,
		ID:        a.ID,
		CreatedAt: a.CreatedAt,
		Title:     a.Title,
		Body:      a.Description,
		Severity:  string(a.Severity),
		VoiceText: a.VoiceText,
		VoiceURL:  a.VoiceURL,
	}, boats)

	s.logger.Info().
		Str("alert_id", a.ID).
		Str("type", string(a.Type)).
		Str("severity", string(a.Severity)).
		Int("boats", len(boats)).
		Msg("alert broadcast")

	return &CreateResult{Alert: a, Deliveries: deliveries}, nil
}

// affectedBoats returns the active boats that should receive a.
func (s *Service) affectedBoats(ctx context.Context, a *Alert) ([]string, error) {
	boats, err := s.directory.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, b := range boats {
		if inAffectedArea(b, a.AffectedAreas) {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

// inAffectedArea reports whether b is inside one of the named areas.
// Area geometry is not modelled: every boat with a known position counts
// as affected and boats that have never reported a position are skipped.
func inAffectedArea(b *boat.Boat, _ []string) bool {
	return b.LastKnownLocation != nil
}

// ListForBoat returns a boat's newest active inbox entries.
func (s *Service) ListForBoat(ctx context.Context, boatID string) ([]*inbox.Entry, error) {
	return s.inbox.ListForBoat(ctx, boatID, inbox.ListOptions{Limit: InboxListLimit, ActiveOnly: true})
}

// Acknowledge flags an inbox entry acknowledged and, for broadcast alerts,
// records the boat on the alert.
func (s *Service) Acknowledge(ctx context.Context, boatID, entryID string) (*inbox.Entry, error) {
	e, err := s.inbox.Acknowledge(ctx, boatID, entryID, time.Now())
	if err != nil {
		return nil, err
	}

	if e.Kind == inbox.KindAlert {
		if err := s.repo.AddAcknowledgment(ctx, e.SourceID, boatID); err != nil && !errors.Is(err, ErrAlertNotFound) {
			return nil, err
		}
	}

	s.logger.Info().Str("boat_id", boatID).Str("entry_id", entryID).Str("source_id", e.SourceID).Msg("alert acknowledged")
	return e, nil
}

// MarkRead flags an inbox entry read.
func (s *Service) MarkRead(ctx context.Context, boatID, entryID string) (*inbox.Entry, error) {
	return s.inbox.MarkRead(ctx, boatID, entryID, time.Now())
}

// Get retrieves an alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	return s.repo.Get(ctx, id)
}

// ListActive returns active alerts, newest first.
func (s *Service) ListActive(ctx context.Context) ([]*Alert, error) {
	return s.repo.ListActive(ctx)
}

// Deactivate withdraws an alert and hides it from every boat inbox.
func (s *Service) Deactivate(ctx context.Context, id, actor string) (*Alert, error) {
	a, err := s.repo.Deactivate(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}

	hidden, err := s.inbox.DeactivateBySource(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("alert_id", id).Msg("failed to withdraw alert from inboxes")
	}

	s.appendAudit(ctx, audit.Lifecycle(audit.SubjectAlert, id, audit.EventDeactivated, actor))

	s.logger.Info().Str("alert_id", id).Int("inbox_entries", hidden).Msg("alert deactivated")
	return a, nil
}

// TestVoice synthesises the test announcement for a boat.
func (s *Service) TestVoice(ctx context.Context, boatID string) (*VoiceTest, error) {
	text := TestVoiceText(boatID)
	url, err := s.voice.URL(ctx, text, voice.LanguageTamil)
	if err != nil {
		return nil, err
	}
	return &VoiceTest{Boat: boatID, Text: text, VoiceURL: url}, nil
}

// Stats counts alerts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) appendAudit(ctx context.Context, a *audit.Attempt) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("alert_id", a.SubjectID).Str("event", string(a.Event)).Msg("failed to write alert audit entry")
	}
}

func validateCreateInput(input *CreateInput, now time.Time) []models.FieldError {
	var errs []models.FieldError

	if !input.Type.Valid() {
		errs = append(errs, models.FieldError{Field: "type", Message: "must be one of weather, cyclone, tsunami, storm, emergency"})
	}
	if !input.Severity.Valid() {
		errs = append(errs, models.FieldError{Field: "severity", Message: "must be one of low, medium, high, critical"})
	}

	errs = append(errs, checkLength("title", input.Title, 5, 200)...)
	errs = append(errs, checkLength("description", input.Description, 10, 1000)...)

	if input.AffectedAreas == nil {
		errs = append(errs, models.FieldError{Field: "affectedAreas", Message: "is required"})
	}

	if input.EstimatedTime.IsZero() {
		errs = append(errs, models.FieldError{Field: "estimatedTime", Message: "is required"})
	} else if !input.EstimatedTime.After(now) {
		errs = append(errs, models.FieldError{Field: "estimatedTime", Message: "must be in the future"})
	}

	if len(input.RecommendedActions) == 0 {
		errs = append(errs, models.FieldError{Field: "recommendedActions", Message: "must contain at least 1 item"})
	}

	errs = append(errs, checkLength("voiceAlertText", input.VoiceText, 5, 500)...)

	return errs
}

func checkLength(field, value string, minLen, maxLen int) []models.FieldError {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return []models.FieldError{{Field: field, Message: "is required"}}
	case n < minLen || n > maxLen:
		return []models.FieldError{{Field: field, Message: "must be between " + strconv.Itoa(minLen) + " and " + strconv.Itoa(maxLen) + " characters"}}
	}
	return nil
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

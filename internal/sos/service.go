package sos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/audit"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/dispatch"
	"github.com/uyirkavalan/uyirkavalan/internal/fanout"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// NearbyRadiusKm is the radius passed when looking up boats near a case.
const NearbyRadiusKm = 10.0

// Notifier escalates a case. *dispatch.Dispatcher implements it.
type Notifier interface {
	NotifyContacts(ctx context.Context, inc dispatch.Incident, contacts []boat.EmergencyContact) []dispatch.Delivery
	NotifyAuthorities(ctx context.Context, inc dispatch.Incident) []dispatch.Delivery
	NotifyBoats(ctx context.Context, inc dispatch.Incident, boats []string) []dispatch.Delivery
	NearbyBoats(ctx context.Context, at geo.Point, radiusKm float64, exclude string) ([]string, error)
}

// ServiceConfig holds configuration for the SOS service.
type ServiceConfig struct {
	Repo      Repository
	Directory boat.Directory
	Notifier  Notifier
	Audit     audit.Repository
	Logger    zerolog.Logger
}

// Service manages the SOS lifecycle.
type Service struct {
	repo      Repository
	directory boat.Directory
	notifier  Notifier
	audit     audit.Repository
	group     *fanout.Group
	logger    zerolog.Logger
}

// NewService creates a new SOS service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		directory: cfg.Directory,
		notifier:  cfg.Notifier,
		audit:     cfg.Audit,
		group:     fanout.New(3),
		logger:    cfg.Logger.With().Str("component", "sos").Logger(),
	}
}

// CreateInput is a request to raise an SOS.
type CreateInput struct {
	Boat      string
	Requester string
	Location  geo.Location
	Message   string
}

// CreateResult is the raised case and the outcome of each escalation attempt.
type CreateResult struct {
	Case       *Case
	Deliveries []dispatch.Delivery
}

// Create raises an SOS for a boat and escalates it to the boat's emergency
// contacts, the authorities and nearby boats. The three escalations run
// concurrently and Create waits for all of them. Delivery failures are
// recorded, never returned.
func (s *Service) Create(ctx context.Context, input *CreateInput) (*CreateResult, error) {
	if fieldErrors := validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	b, err := s.directory.Get(ctx, input.Boat)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	message := strings.TrimSpace(input.Message)
	if message == "" {
		message = DefaultMessage
	}
	requester := input.Requester
	if requester == "" {
		requester = b.ID
	}
	location := input.Location
	if location.CapturedAt.IsZero() {
		location.CapturedAt = now
	}

	c := &Case{
		ID:                "sos_" + uuid.New().String()[:22],
		Boat:              b.ID,
		Requester:         requester,
		OwnerName:         b.OwnerName,
		Phone:             b.Phone,
		Location:          location,
		Message:           message,
		Status:            StatusActive,
		Priority:          PriorityCritical,
		EmergencyContacts: b.EmergencyContacts,
		VoiceText:         VoiceText(b.ID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, audit.Lifecycle(audit.SubjectSOS, c.ID, audit.EventCreated, requester))

	s.logger.Warn().
		Str("case_id", c.ID).
		Str("boat_id", c.Boat).
		Float64("lat", c.Location.Lat).
		Float64("lon", c.Location.Lon).
		Msg("sos raised")

	deliveries := s.escalate(ctx, c)

	return &CreateResult{Case: c, Deliveries: deliveries}, nil
}

// escalate runs the three escalation paths concurrently and joins them.
func (s *Service) escalate(ctx context.Context, c *Case) []dispatch.Delivery {
	inc := dispatch.Incident{
		Kind:      audit.SubjectSOS,
		ID:        c.ID,
		Boat:      c.Boat,
		OwnerName: c.OwnerName,
		Location:  c.Location.Point,
		Message:   c.Message,
		CreatedAt: c.CreatedAt,
		Title:     "SOS from boat " + c.Boat,
		Body:      c.Message,
		Severity:  PriorityCritical,
		VoiceText: c.VoiceText,
	}

	var contacts, authorities, boats []dispatch.Delivery

	results := s.group.Run(ctx, []fanout.Task{
		{Name: "emergency_contacts", Run: func(ctx context.Context) (string, error) {
			contacts = s.notifier.NotifyContacts(ctx, inc, c.EmergencyContacts)
			return "", nil
		}},
		{Name: "authorities", Run: func(ctx context.Context) (string, error) {
			authorities = s.notifier.NotifyAuthorities(ctx, inc)
			return "", nil
		}},
		{Name: "nearby_boats", Run: func(ctx context.Context) (string, error) {
			nearby, err := s.notifier.NearbyBoats(ctx, inc.Location, NearbyRadiusKm, c.Boat)
			if err != nil {
				return "", err
			}
			boats = s.notifier.NotifyBoats(ctx, inc, nearby)
			return "", nil
		}},
	})

	for _, r := range results {
		if r.Err != nil {
			s.logger.Error().Err(r.Err).Str("case_id", c.ID).Str("task", r.Name).Msg("sos escalation task failed")
		}
	}

	deliveries := make([]dispatch.Delivery, 0, len(contacts)+len(authorities)+len(boats))
	deliveries = append(deliveries, contacts...)
	deliveries = append(deliveries, authorities...)
	deliveries = append(deliveries, boats...)

	failed := 0
	for _, d := range deliveries {
		if !d.OK() {
			failed++
		}
	}
	s.logger.Info().
		Str("case_id", c.ID).
		Int("attempts", len(deliveries)).
		Int("failed", failed).
		Msg("sos escalation completed")

	return deliveries
}

// Resolve marks a case resolved. Resolving an already resolved case
// overwrites the resolution details.
func (s *Service) Resolve(ctx context.Context, caseID, resolvedBy, notes string) (*Case, error) {
	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	if c.Status == StatusResolved {
		s.logger.Warn().
			Str("case_id", c.ID).
			Str("previous_resolver", c.ResolvedBy).
			Str("resolved_by", resolvedBy).
			Msg("sos case resolved again, overwriting resolution")
	}

	now := time.Now()
	c.Status = StatusResolved
	c.ResolvedAt = &now
	c.ResolvedBy = resolvedBy
	c.Notes = notes
	c.UpdatedAt = now

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, audit.Lifecycle(audit.SubjectSOS, c.ID, audit.EventResolved, resolvedBy))

	s.logger.Info().Str("case_id", c.ID).Str("resolved_by", resolvedBy).Msg("sos resolved")
	return c, nil
}

// Get retrieves a case by ID.
func (s *Service) Get(ctx context.Context, caseID string) (*Case, error) {
	return s.repo.Get(ctx, caseID)
}

// ListForBoat returns the boat's ten most recent cases, newest first.
func (s *Service) ListForBoat(ctx context.Context, boatID string) ([]*Case, error) {
	return s.repo.ListForBoat(ctx, boatID, BoatListLimit)
}

// ListActive returns all active cases, newest first.
func (s *Service) ListActive(ctx context.Context) ([]*Case, error) {
	return s.repo.ListActive(ctx)
}

// Attempts returns the audit trail of a case, oldest first.
func (s *Service) Attempts(ctx context.Context, caseID string) ([]*audit.Attempt, error) {
	if _, err := s.repo.Get(ctx, caseID); err != nil {
		return nil, err
	}
	return s.audit.ListBySubject(ctx, caseID)
}

// Stats counts cases by status.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) appendAudit(ctx context.Context, a *audit.Attempt) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("case_id", a.SubjectID).Str("event", string(a.Event)).Msg("failed to write sos audit entry")
	}
}

// validateCreateInput validates an SOS request.
func validateCreateInput(input *CreateInput) []models.FieldError {
	var errs []models.FieldError

	if !boat.ValidID(input.Boat) {
		errs = append(errs, models.FieldError{Field: "boatId", Message: "must match TN00-XX000"})
	}

	errs = append(errs, geo.ValidateLocation(input.Location, "location")...)

	if len(input.Message) > MaxMessageLength {
		errs = append(errs, models.FieldError{Field: "message", Message: "must be at most 500 characters"})
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

// IsNotFound reports whether err means the case or its boat does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCaseNotFound) || errors.Is(err, boat.ErrBoatNotFound)
}

package navigation

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
)

// portIDRegex validates caller-chosen port IDs.
var portIDRegex = regexp.MustCompile(`^[a-z0-9_-]{2,40}$`)

// BoatStore is the part of the boat directory navigation writes to.
type BoatStore interface {
	boat.Directory
	UpdateLastLocation(ctx context.Context, id string, loc geo.Location) error
}

// RiskSource returns the latest risk assessment for a boat, or nil if the
// boat has no weather snapshot yet.
type RiskSource interface {
	LatestAssessment(ctx context.Context, boatID string) (*risk.Assessment, error)
}

// ServiceConfig holds configuration for the navigation service.
type ServiceConfig struct {
	Ports  PortRepository
	Tracks TrackRepository
	Boats  BoatStore
	Risk   RiskSource
	Logger zerolog.Logger
}

// Service computes navigation advisories.
type Service struct {
	ports  PortRepository
	tracks TrackRepository
	boats  BoatStore
	risk   RiskSource
	logger zerolog.Logger
}

// NewService creates a new navigation service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		ports:  cfg.Ports,
		tracks: cfg.Tracks,
		boats:  cfg.Boats,
		risk:   cfg.Risk,
		logger: cfg.Logger.With().Str("component", "navigation").Logger(),
	}
}

// UpdateLocation records a boat's position and recomputes its advisory.
func (s *Service) UpdateLocation(ctx context.Context, boatID string, loc geo.Location) (*Advisory, error) {
	var errs []models.FieldError
	if !boat.ValidID(boatID) {
		errs = append(errs, models.FieldError{Field: "boatId", Message: "must match TN00-XX000"})
	}
	errs = append(errs, geo.ValidateLocation(loc, "location")...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	now := time.Now()
	if loc.CapturedAt.IsZero() {
		loc.CapturedAt = now
	}

	if err := s.boats.UpdateLastLocation(ctx, boatID, loc); err != nil {
		return nil, err
	}

	if err := s.tracks.AppendHistory(ctx, &HistoryEntry{Boat: boatID, Location: loc, RecordedAt: now}); err != nil {
		return nil, err
	}

	advisory, err := s.computeAdvisory(ctx, boatID, loc, now)
	if err != nil {
		return nil, err
	}

	if err := s.tracks.SaveAdvisory(ctx, advisory); err != nil {
		return nil, err
	}

	ev := s.logger.Debug().
		Str("boat_id", boatID).
		Float64("distance_km", advisory.DistanceKm).
		Int("eta_minutes", advisory.ETAMinutes)
	if advisory.NearestPort != nil {
		ev = ev.Str("port_id", advisory.NearestPort.ID)
	}
	ev.Msg("advisory updated")

	return advisory, nil
}

func (s *Service) computeAdvisory(ctx context.Context, boatID string, loc geo.Location, now time.Time) (*Advisory, error) {
	advisory := &Advisory{
		Boat:            boatID,
		CurrentLocation: loc,
		ComputedAt:      now,
	}

	nearest, err := s.NearestPort(ctx, loc.Point)
	switch {
	case err == nil:
		advisory.NearestPort = nearest.Port
		advisory.DistanceKm = nearest.DistanceKm
		advisory.BearingDeg = nearest.BearingDeg
		advisory.ETAMinutes = nearest.ETAMinutes
	case errors.Is(err, ErrNoActivePort):
		s.logger.Warn().Str("boat_id", boatID).Msg("no active port for advisory")
	default:
		return nil, err
	}

	if s.risk != nil {
		assessment, err := s.risk.LatestAssessment(ctx, boatID)
		if err != nil {
			s.logger.Warn().Err(err).Str("boat_id", boatID).Msg("risk assessment unavailable")
		}
		advisory.Risk = assessment
	}

	return advisory, nil
}

// Advisory returns the latest advisory for a boat.
func (s *Service) Advisory(ctx context.Context, boatID string) (*Advisory, error) {
	return s.tracks.GetAdvisory(ctx, boatID)
}

// History returns a boat's recorded positions, newest first.
func (s *Service) History(ctx context.Context, boatID string, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.tracks.ListHistory(ctx, boatID, limit)
}

// ActiveBoatLocations returns the last known position of every active boat that has one.
func (s *Service) ActiveBoatLocations(ctx context.Context) ([]BoatPosition, error) {
	boats, err := s.boats.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]BoatPosition, 0, len(boats))
	for _, b := range boats {
		if b.LastKnownLocation == nil {
			continue
		}
		out = append(out, BoatPosition{Boat: b.ID, OwnerName: b.OwnerName, Location: *b.LastKnownLocation})
	}
	return out, nil
}

// NearestPort finds the closest active port to at.
func (s *Service) NearestPort(ctx context.Context, at geo.Point) (*Nearest, error) {
	ports, err := s.ports.List(ctx)
	if err != nil {
		return nil, err
	}

	port, distance, ok := geo.NearestActive(at, ports)
	if !ok {
		return nil, ErrNoActivePort
	}

	return &Nearest{
		Port:       port,
		DistanceKm: distance,
		BearingDeg: geo.Bearing(at, port.Location),
		ETAMinutes: geo.DefaultETA(distance),
	}, nil
}

// Route computes a direct passage. A zero speed uses geo.DefaultSpeedKmh.
func (s *Service) Route(_ context.Context, from, to geo.Point, speedKmh float64) (*Route, error) {
	errs := geo.ValidatePoint(from, "from")
	errs = append(errs, geo.ValidatePoint(to, "to")...)
	if speedKmh < 0 {
		errs = append(errs, models.FieldError{Field: "speedKmh", Message: "must be greater than 0"})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	if speedKmh == 0 {
		speedKmh = geo.DefaultSpeedKmh
	}

	distance := geo.Distance(from, to)
	eta, err := geo.ETA(distance, speedKmh)
	if err != nil {
		return nil, err
	}

	return &Route{
		DistanceKm: distance,
		BearingDeg: geo.Bearing(from, to),
		ETAMinutes: eta,
		Waypoints:  []geo.Point{from, to},
	}, nil
}

// ListPorts returns every port, active or not.
func (s *Service) ListPorts(ctx context.Context) ([]*Port, error) {
	return s.ports.List(ctx)
}

// PortInput creates a port.
type PortInput struct {
	ID            string
	Name          string
	LocalizedName string
	Location      geo.Point
	Capacity      int
	Facilities    []string
}

// AddPort creates an active port. An empty ID is generated.
func (s *Service) AddPort(ctx context.Context, input *PortInput) (*Port, error) {
	errs := validatePortFields(input.Name, input.Location, input.Capacity)
	if input.ID != "" && !portIDRegex.MatchString(input.ID) {
		errs = append(errs, models.FieldError{Field: "id", Message: "must be 2-40 lowercase letters, digits, - or _"})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	id := input.ID
	if id == "" {
		id = "prt_" + uuid.New().String()[:22]
	}
	facilities := input.Facilities
	if facilities == nil {
		facilities = []string{}
	}

	now := time.Now()
	p := &Port{
		ID:            id,
		Name:          input.Name,
		LocalizedName: input.LocalizedName,
		Location:      input.Location,
		Capacity:      input.Capacity,
		Facilities:    facilities,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.ports.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().Str("port_id", p.ID).Str("name", p.Name).Msg("port added")
	return p, nil
}

// PortUpdate changes selected port attributes.
type PortUpdate struct {
	Name          *string
	LocalizedName *string
	Location      *geo.Point
	Capacity      *int
	Facilities    []string
	Active        *bool
}

// UpdatePort applies a partial update to a port.
func (s *Service) UpdatePort(ctx context.Context, id string, input *PortUpdate) (*Port, error) {
	p, err := s.ports.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.LocalizedName != nil {
		p.LocalizedName = *input.LocalizedName
	}
	if input.Location != nil {
		p.Location = *input.Location
	}
	if input.Capacity != nil {
		p.Capacity = *input.Capacity
	}
	if input.Facilities != nil {
		p.Facilities = input.Facilities
	}
	if input.Active != nil {
		p.Active = *input.Active
		if p.Active {
			p.DeactivatedAt = nil
		}
	}

	if errs := validatePortFields(p.Name, p.Location, p.Capacity); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	p.UpdatedAt = time.Now()
	if err := s.ports.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeactivatePort takes a port out of advisory consideration.
func (s *Service) DeactivatePort(ctx context.Context, id string) (*Port, error) {
	p, err := s.ports.Deactivate(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("port_id", id).Msg("port deactivated")
	return p, nil
}

func validatePortFields(name string, at geo.Point, capacity int) []models.FieldError {
	var errs []models.FieldError

	if len(name) < 2 || len(name) > 100 {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be between 2 and 100 characters"})
	}
	errs = append(errs, geo.ValidatePoint(at, "location")...)
	if capacity < 0 {
		errs = append(errs, models.FieldError{Field: "capacity", Message: "must not be negative"})
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

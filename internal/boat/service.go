package boat

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
)

// Validation constants.
const (
	MinNameLength         = 2
	MaxNameLength         = 100
	MinRelationshipLength = 2
	MaxRelationshipLength = 50
)

// RegisterInput is the profile an administrator registers for a boat.
type RegisterInput struct {
	ID                string
	OwnerName         string
	Phone             string
	Role              Role
	Language          Language
	EmergencyContacts []EmergencyContact
}

// Service manages the boat directory.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new boat service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get retrieves a boat by ID.
func (s *Service) Get(ctx context.Context, id string) (*Boat, error) {
	return s.repo.Get(ctx, id)
}

// ListActive returns all active boats.
func (s *Service) ListActive(ctx context.Context) ([]*Boat, error) {
	return s.repo.ListActive(ctx)
}

// Register creates a boat or replaces its profile. Registering a deactivated
// boat reactivates it.
func (s *Service) Register(ctx context.Context, input *RegisterInput) (*Boat, error) {
	if fieldErrors := validateRegisterInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now()
	b := &Boat{
		ID:                input.ID,
		OwnerName:         strings.TrimSpace(input.OwnerName),
		Phone:             input.Phone,
		Role:              input.Role,
		Language:          input.Language,
		Active:            true,
		EmergencyContacts: input.EmergencyContacts,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if b.Role == "" {
		b.Role = RoleFisherman
	}
	if b.Language == "" {
		b.Language = LanguageTamil
	}

	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("boat_id", b.ID).
		Str("role", string(b.Role)).
		Int("emergency_contacts", len(b.EmergencyContacts)).
		Msg("boat registered")

	return s.repo.Get(ctx, b.ID)
}

// Deactivate marks a boat inactive. Its history is retained.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrBoatNotFound) {
			return ErrBoatNotFound
		}
		return err
	}

	s.logger.Info().Str("boat_id", id).Msg("boat deactivated")
	return nil
}

// validateRegisterInput validates a boat registration.
func validateRegisterInput(input *RegisterInput) []models.FieldError {
	var errs []models.FieldError

	if !ValidID(input.ID) {
		errs = append(errs, models.FieldError{Field: "id", Message: "must match TN00-XX000"})
	}

	name := strings.TrimSpace(input.OwnerName)
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: "ownerName", Message: "must be between 2 and 100 characters"})
	}

	if !ValidPhone(input.Phone) {
		errs = append(errs, models.FieldError{Field: "phone", Message: "must be a +91 mobile number"})
	}

	if input.Role != "" && !input.Role.Valid() {
		errs = append(errs, models.FieldError{Field: "role", Message: "must be fisherman, admin or authority"})
	}

	if input.Language != "" && input.Language != LanguageTamil && input.Language != LanguageEnglish {
		errs = append(errs, models.FieldError{Field: "language", Message: "must be tamil or english"})
	}

	for i, c := range input.EmergencyContacts {
		errs = append(errs, validateContact(c, i)...)
	}

	return errs
}

// validateContact validates one emergency contact.
func validateContact(c EmergencyContact, index int) []models.FieldError {
	var errs []models.FieldError
	prefix := "emergencyContacts[" + strconv.Itoa(index) + "]"

	name := strings.TrimSpace(c.Name)
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: prefix + ".name", Message: "must be between 2 and 100 characters"})
	}

	if !ValidPhone(c.Phone) {
		errs = append(errs, models.FieldError{Field: prefix + ".phone", Message: "must be a +91 mobile number"})
	}

	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			errs = append(errs, models.FieldError{Field: prefix + ".email", Message: "must be a valid email address"})
		}
	}

	rel := strings.TrimSpace(c.Relationship)
	if len(rel) < MinRelationshipLength || len(rel) > MaxRelationshipLength {
		errs = append(errs, models.FieldError{Field: prefix + ".relationship", Message: "must be between 2 and 50 characters"})
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

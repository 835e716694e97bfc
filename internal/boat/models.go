// Package boat holds the boat directory: registered boats, their owners and
// emergency contacts, and the last position each boat reported.
package boat

import (
	"errors"
	"regexp"
	"time"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// Repository errors.
var (
	ErrBoatNotFound = errors.New("boat not found")
)

// Role is the access role attached to a boat account.
type Role string

const (
	RoleFisherman Role = "fisherman"
	RoleAdmin     Role = "admin"
	RoleAuthority Role = "authority"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleFisherman || r == RoleAdmin || r == RoleAuthority
}

// Language is the preferred language for voice and text notifications.
type Language string

const (
	LanguageTamil   Language = "tamil"
	LanguageEnglish Language = "english"
)

var (
	boatIDRegex = regexp.MustCompile(`^TN\d{2}-[A-Z]{2}\d{3}$`)
	phoneRegex  = regexp.MustCompile(`^\+91\d{10}$`)
)

// ValidID reports whether id is a Tamil Nadu boat registration such as TN01-AB123.
func ValidID(id string) bool {
	return boatIDRegex.MatchString(id)
}

// ValidPhone reports whether phone is an Indian mobile number in +91 form.
func ValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// EmergencyContact is a person notified when the boat raises an SOS.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship"`
	Primary      bool   `json:"isPrimary"`
}

// Boat is a registered fishing boat and its owner.
// Boats are never deleted, only deactivated.
type Boat struct {
	// ID is the registration number (format: TN01-AB123).
	ID string

	OwnerName string
	Phone     string
	Role      Role
	Language  Language
	Active    bool

	// LastKnownLocation is nil until the boat first reports a position.
	LastKnownLocation *geo.Location

	EmergencyContacts []EmergencyContact

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position returns the last known position, or the zero point when unknown.
func (b *Boat) Position() geo.Point {
	if b.LastKnownLocation == nil {
		return geo.Point{}
	}
	return b.LastKnownLocation.Point
}

// IsActive reports whether the boat account is active.
func (b *Boat) IsActive() bool {
	return b.Active
}

// IsFisherman reports whether the boat belongs to a fisherman account.
func (b *Boat) IsFisherman() bool {
	return b.Role == RoleFisherman
}

// copyBoat creates a deep copy of a boat.
func copyBoat(b *Boat) *Boat {
	if b == nil {
		return nil
	}

	cpy := *b
	if b.LastKnownLocation != nil {
		loc := *b.LastKnownLocation
		if loc.Accuracy != nil {
			acc := *loc.Accuracy
			loc.Accuracy = &acc
		}
		cpy.LastKnownLocation = &loc
	}
	if b.EmergencyContacts != nil {
		cpy.EmergencyContacts = make([]EmergencyContact, len(b.EmergencyContacts))
		copy(cpy.EmergencyContacts, b.EmergencyContacts)
	}
	return &cpy
}

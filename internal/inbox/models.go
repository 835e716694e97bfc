// Package inbox stores the per-boat alert inbox: broadcast alerts and SOS
// notices from nearby boats, with read and acknowledge state.
package inbox

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// Repository errors.
var (
	ErrEntryNotFound = errors.New("inbox entry not found")
)

// Kind is the source of an inbox entry.
type Kind string

const (
	KindAlert     Kind = "alert"
	KindSOSNearby Kind = "sos_nearby"
)

// Entry is one item in a boat's inbox.
type Entry struct {
	ID       string
	Boat     string
	Kind     Kind
	SourceID string

	Title     string
	Body      string
	Severity  string
	VoiceText string
	VoiceURL  string

	// Location is set for SOS notices.
	Location *geo.Point

	Active         bool
	Read           bool
	ReadAt         *time.Time
	Acknowledged   bool
	AcknowledgedAt *time.Time
	ReceivedAt     time.Time
}

// NewEntryID returns a fresh inbox entry identifier.
func NewEntryID() string {
	return "inb_" + uuid.New().String()[:22]
}

func copyEntry(e *Entry) *Entry {
	cpy := *e
	if e.Location != nil {
		p := *e.Location
		cpy.Location = &p
	}
	if e.ReadAt != nil {
		t := *e.ReadAt
		cpy.ReadAt = &t
	}
	if e.AcknowledgedAt != nil {
		t := *e.AcknowledgedAt
		cpy.AcknowledgedAt = &t
	}
	return &cpy
}

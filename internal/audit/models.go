// Package audit keeps the append-only log of SOS and alert lifecycle events
// and of every notification delivery attempt.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// SubjectKind identifies what an attempt belongs to.
type SubjectKind string

const (
	SubjectSOS   SubjectKind = "sos"
	SubjectAlert SubjectKind = "alert"
)

// Event is the kind of log entry.
type Event string

const (
	EventCreated      Event = "created"
	EventResolved     Event = "resolved"
	EventDeactivated  Event = "deactivated"
	EventNotification Event = "notification"
)

// TargetKind is the recipient class of a notification attempt.
type TargetKind string

const (
	TargetEmergencyContact TargetKind = "emergency_contact"
	TargetAuthority        TargetKind = "authority"
	TargetNearbyBoat       TargetKind = "nearby_boat"
)

// Channel is the transport used for a notification attempt.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelInbox Channel = "inbox"
)

// Status is the outcome of a notification attempt.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Attempt is one audit log entry. Lifecycle entries leave the target fields empty.
type Attempt struct {
	ID          string
	SubjectID   string
	SubjectKind SubjectKind
	Event       Event

	TargetKind TargetKind
	Target     string
	TargetName string
	Channel    Channel

	Provider    string
	Status      Status
	ProviderRef string
	Error       string

	Actor     string
	Timestamp time.Time
}

// NewAttemptID returns a fresh attempt identifier.
func NewAttemptID() string {
	return "att_" + uuid.New().String()[:22]
}

// Lifecycle builds a lifecycle entry such as created or resolved.
func Lifecycle(kind SubjectKind, subjectID string, event Event, actor string) *Attempt {
	return &Attempt{
		ID:          NewAttemptID(),
		SubjectID:   subjectID,
		SubjectKind: kind,
		Event:       event,
		Actor:       actor,
		Timestamp:   time.Now(),
	}
}

// Package sos manages emergency cases raised by boats: creation with
// multi-channel escalation, resolution, and the case audit trail.
package sos

import (
	"errors"
	"time"

	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// Repository errors.
var (
	ErrCaseNotFound = errors.New("sos case not found")
)

// Status is the lifecycle state of a case. It only moves from active to resolved.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

// Case defaults.
const (
	PriorityCritical = "critical"
	DefaultMessage   = "Emergency SOS signal sent"
	MaxMessageLength = 500
	BoatListLimit    = 10
)

// Case is one emergency raised by a boat.
type Case struct {
	ID        string
	Boat      string
	Requester string
	OwnerName string
	Phone     string
	Location  geo.Location
	Message   string
	Status    Status
	Priority  string

	// EmergencyContacts is a snapshot taken when the case was raised.
	EmergencyContacts []boat.EmergencyContact

	VoiceText string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
	ResolvedBy string
	Notes      string
}

// Stats counts cases by status.
type Stats struct {
	Active   int
	Resolved int
	Total    int
}

// VoiceText returns the Tamil voice announcement for an SOS from boatID.
func VoiceText(boatID string) string {
	return "அவசர SOS சிக்னல். படகு " + boatID + " இருந்து. உதவி தேவை. அவசரமாக பதிலளிக்கவும்."
}

func copyCase(c *Case) *Case {
	cpy := *c
	if c.Location.Accuracy != nil {
		acc := *c.Location.Accuracy
		cpy.Location.Accuracy = &acc
	}
	if c.EmergencyContacts != nil {
		cpy.EmergencyContacts = make([]boat.EmergencyContact, len(c.EmergencyContacts))
		copy(cpy.EmergencyContacts, c.EmergencyContacts)
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		cpy.ResolvedAt = &t
	}
	return &cpy
}

// Package alert manages broadcast safety alerts (cyclone, tsunami, storm)
// and their delivery to boat inboxes.
package alert

import (
	"errors"
	"time"
)

// Domain errors.
var (
	ErrAlertNotFound = errors.New("alert not found")
)

// Type is the hazard an alert warns about.
type Type string

const (
	TypeWeather   Type = "weather"
	TypeCyclone   Type = "cyclone"
	TypeTsunami   Type = "tsunami"
	TypeStorm     Type = "storm"
	TypeEmergency Type = "emergency"
)

// Valid reports whether t is a known alert type.
func (t Type) Valid() bool {
	switch t {
	case TypeWeather, TypeCyclone, TypeTsunami, TypeStorm, TypeEmergency:
		return true
	}
	return false
}

// Severity ranks an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alert is a broadcast warning.
type Alert struct {
	ID                 string
	Type               Type
	Severity           Severity
	Title              string
	Description        string
	AffectedAreas      []string
	EstimatedTime      time.Time
	RecommendedActions []string
	VoiceText          string
	VoiceURL           string
	Active             bool
	// AcknowledgedBy holds boat IDs, each at most once.
	AcknowledgedBy []string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeactivatedAt  *time.Time
}

// Acknowledged reports whether boat has acknowledged the alert.
func (a *Alert) Acknowledged(boat string) bool {
	for _, b := range a.AcknowledgedBy {
		if b == boat {
			return true
		}
	}
	return false
}

// Stats counts alerts.
type Stats struct {
	Total           int
	Active          int
	Acknowledgments int
	BySeverity      map[Severity]int
}

// VoiceTest is the result of a test announcement.
type VoiceTest struct {
	Boat     string
	Text     string
	VoiceURL string
}

// TestVoiceText returns the Tamil test announcement for a boat.
func TestVoiceText(boatID string) string {
	return "சோதனை எச்சரிக்கை. படகு " + boatID + " இருந்து. இது ஒரு சோதனை செய்தி மட்டும்."
}

func copyAlert(a *Alert) *Alert {
	cp := *a
	cp.AffectedAreas = append([]string(nil), a.AffectedAreas...)
	cp.RecommendedActions = append([]string(nil), a.RecommendedActions...)
	cp.AcknowledgedBy = append([]string(nil), a.AcknowledgedBy...)
	if a.DeactivatedAt != nil {
		t := *a.DeactivatedAt
		cp.DeactivatedAt = &t
	}
	return &cp
}

package models

// SOSCreateRequest raises an emergency for a boat.
type SOSCreateRequest struct {
	BoatID   string   `json:"boatId" validate:"required"`
	Location Location `json:"location" validate:"required"`
	Message  string   `json:"message,omitempty" validate:"omitempty,max=500"`
}

// SOSCase is an emergency case.
type SOSCase struct {
	ID                string             `json:"id"`
	BoatID            string             `json:"boatId"`
	RequestedBy       string             `json:"requestedBy"`
	OwnerName         string             `json:"ownerName"`
	Phone             string             `json:"phone"`
	Location          Location           `json:"location"`
	Message           string             `json:"message"`
	Status            string             `json:"status"`
	Priority          string             `json:"priority"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts"`
	VoiceText         string             `json:"voiceText"`
	CreatedAt         Timestamp          `json:"createdAt"`
	UpdatedAt         Timestamp          `json:"updatedAt"`
	ResolvedAt        *Timestamp         `json:"resolvedAt,omitempty"`
	ResolvedBy        string             `json:"resolvedBy,omitempty"`
	Notes             string             `json:"notes,omitempty"`
}

// DeliveryResult is the outcome of one notification attempt.
type DeliveryResult struct {
	TargetKind string `json:"targetKind"`
	Target     string `json:"target"`
	TargetName string `json:"targetName,omitempty"`
	Channel    string `json:"channel"`
	Provider   string `json:"provider,omitempty"`
	Success    bool   `json:"success"`
	Reference  string `json:"reference,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SOSCreateResponse is the raised case and its escalation outcomes.
type SOSCreateResponse struct {
	Case          SOSCase          `json:"case"`
	Notifications []DeliveryResult `json:"notifications"`
}

// SOSCaseList lists cases.
type SOSCaseList struct {
	Items []SOSCase `json:"items"`
	Meta  ListMeta  `json:"meta"`
}

// SOSResolveRequest resolves a case.
type SOSResolveRequest struct {
	Notes string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// SOSStats counts cases by status.
type SOSStats struct {
	Active   int `json:"active"`
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

// NotificationAttempt is one entry of a case's audit trail.
type NotificationAttempt struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	TargetKind  string    `json:"targetKind,omitempty"`
	Target      string    `json:"target,omitempty"`
	TargetName  string    `json:"targetName,omitempty"`
	Channel     string    `json:"channel,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Status      string    `json:"status,omitempty"`
	ProviderRef string    `json:"providerRef,omitempty"`
	Error       string    `json:"error,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Timestamp   Timestamp `json:"timestamp"`
}

// NotificationAttemptList is an audit trail, oldest first.
type NotificationAttemptList struct {
	Items []NotificationAttempt `json:"items"`
	Meta  ListMeta              `json:"meta"`
}

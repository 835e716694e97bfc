package models

// EmergencyContact is a person notified when a boat raises an SOS.
type EmergencyContact struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" validate:"required"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship" validate:"required,min=2,max=50"`
	IsPrimary    bool   `json:"isPrimary"`
}

// Boat is a registered boat as returned by the API.
type Boat struct {
	BoatID            string             `json:"boatId"`
	OwnerName         string             `json:"ownerName"`
	Phone             string             `json:"phone"`
	Role              string             `json:"role"`
	Language          string             `json:"language"`
	IsActive          bool               `json:"isActive"`
	LastKnownLocation *Location          `json:"lastKnownLocation,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts"`
	CreatedAt         Timestamp          `json:"createdAt"`
	UpdatedAt         Timestamp          `json:"updatedAt"`
}

// BoatUpsertRequest registers a boat or replaces its profile.
type BoatUpsertRequest struct {
	OwnerName         string             `json:"ownerName" validate:"required,min=2,max=100"`
	Phone             string             `json:"phone" validate:"required"`
	Role              string             `json:"role,omitempty" validate:"omitempty,oneof=fisherman admin authority"`
	Language          string             `json:"language,omitempty" validate:"omitempty,oneof=tamil english"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty"`
}

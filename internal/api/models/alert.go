package models

// AlertCreateRequest broadcasts a safety alert.
type AlertCreateRequest struct {
	Type               string    `json:"type" validate:"required,oneof=weather cyclone tsunami storm emergency"`
	Severity           string    `json:"severity" validate:"required,oneof=low medium high critical"`
	Title              string    `json:"title" validate:"required,min=5,max=200"`
	Description        string    `json:"description" validate:"required,min=10,max=1000"`
	AffectedAreas      []string  `json:"affectedAreas" validate:"required"`
	EstimatedTime      Timestamp `json:"estimatedTime" validate:"required"`
	RecommendedActions []string  `json:"recommendedActions" validate:"required,min=1"`
	VoiceAlertText     string    `json:"voiceAlertText" validate:"required,min=5,max=500"`
}

// Alert is a broadcast warning.
type Alert struct {
	ID                 string     `json:"id"`
	Type               string     `json:"type"`
	Severity           string     `json:"severity"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AffectedAreas      []string   `json:"affectedAreas"`
	EstimatedTime      Timestamp  `json:"estimatedTime"`
	RecommendedActions []string   `json:"recommendedActions"`
	VoiceAlertText     string     `json:"voiceAlertText"`
	VoiceURL           string     `json:"voiceUrl,omitempty"`
	IsActive           bool       `json:"isActive"`
	AcknowledgedBy     []string   `json:"acknowledgedBy"`
	CreatedBy          string     `json:"createdBy"`
	CreatedAt          Timestamp  `json:"createdAt"`
	UpdatedAt          Timestamp  `json:"updatedAt"`
	DeactivatedAt      *Timestamp `json:"deactivatedAt,omitempty"`
}

// AlertCreateResponse is the created alert and its delivery outcomes.
type AlertCreateResponse struct {
	Alert      Alert            `json:"alert"`
	Deliveries []DeliveryResult `json:"deliveries"`
	Delivered  int              `json:"delivered"`
	Failed     int              `json:"failed"`
}

// AlertList lists alerts.
type AlertList struct {
	Items []Alert  `json:"items"`
	Meta  ListMeta `json:"meta"`
}

// AlertStats counts alerts.
type AlertStats struct {
	Total           int            `json:"total"`
	Active          int            `json:"active"`
	Acknowledgments int            `json:"acknowledgments"`
	BySeverity      map[string]int `json:"bySeverity"`
}

// InboxEntry is one item of a boat's alert inbox.
type InboxEntry struct {
	ID             string     `json:"id"`
	BoatID         string     `json:"boatId"`
	Kind           string     `json:"kind"`
	SourceID       string     `json:"sourceId"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	Severity       string     `json:"severity,omitempty"`
	VoiceText      string     `json:"voiceText,omitempty"`
	VoiceURL       string     `json:"voiceUrl,omitempty"`
	Location       *Point     `json:"location,omitempty"`
	IsActive       bool       `json:"isActive"`
	IsRead         bool       `json:"isRead"`
	ReadAt         *Timestamp `json:"readAt,omitempty"`
	IsAcknowledged bool       `json:"isAcknowledged"`
	AcknowledgedAt *Timestamp `json:"acknowledgedAt,omitempty"`
	ReceivedAt     Timestamp  `json:"receivedAt"`
}

// InboxList lists inbox entries, newest first.
type InboxList struct {
	Items []InboxEntry `json:"items"`
	Meta  ListMeta     `json:"meta"`
}

// VoiceTest is the result of a test announcement.
type VoiceTest struct {
	BoatID   string `json:"boatId"`
	Text     string `json:"text"`
	VoiceURL string `json:"voiceUrl,omitempty"`
}

package models

// Port is a safe harbour.
type Port struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	LocalizedName string     `json:"localizedName,omitempty"`
	Location      Point      `json:"location"`
	Capacity      int        `json:"capacity"`
	Facilities    []string   `json:"facilities"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     Timestamp  `json:"createdAt"`
	UpdatedAt     Timestamp  `json:"updatedAt"`
	DeactivatedAt *Timestamp `json:"deactivatedAt,omitempty"`
}

// PortList lists ports.
type PortList struct {
	Items []Port   `json:"items"`
	Meta  ListMeta `json:"meta"`
}

// PortCreateRequest adds a port. An empty ID is generated.
type PortCreateRequest struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name" validate:"required,min=2,max=100"`
	LocalizedName string   `json:"localizedName,omitempty"`
	Location      Point    `json:"location" validate:"required"`
	Capacity      int      `json:"capacity" validate:"gte=0"`
	Facilities    []string `json:"facilities,omitempty"`
}

// PortUpdateRequest changes selected port attributes.
type PortUpdateRequest struct {
	Name          *string  `json:"name,omitempty"`
	LocalizedName *string  `json:"localizedName,omitempty"`
	Location      *Point   `json:"location,omitempty"`
	Capacity      *int     `json:"capacity,omitempty"`
	Facilities    []string `json:"facilities,omitempty"`
	IsActive      *bool    `json:"isActive,omitempty"`
}

// RiskAssessment is the traffic-light risk for a boat.
type RiskAssessment struct {
	Level      string    `json:"level"`
	Color      string    `json:"color"`
	Score      int       `json:"score"`
	Reasons    []string  `json:"reasons"`
	ComputedAt Timestamp `json:"computedAt"`
}

// NavigationAdvisory is the latest navigation picture for a boat.
type NavigationAdvisory struct {
	BoatID          string          `json:"boatId"`
	CurrentLocation Location        `json:"currentLocation"`
	NearestPort     *Port           `json:"nearestPort,omitempty"`
	DistanceKm      float64         `json:"distanceKm"`
	BearingDeg      float64         `json:"bearingDeg"`
	ETAMinutes      int             `json:"etaMinutes"`
	Risk            *RiskAssessment `json:"risk,omitempty"`
	ComputedAt      Timestamp       `json:"computedAt"`
}

// LocationUpdateRequest reports a boat's position.
type LocationUpdateRequest struct {
	Location Location `json:"location" validate:"required"`
}

// LocationHistoryEntry is one recorded position.
type LocationHistoryEntry struct {
	Location   Location  `json:"location"`
	RecordedAt Timestamp `json:"recordedAt"`
}

// LocationHistory lists a boat's positions, newest first. Track carries the
// same positions oldest first as an encoded polyline.
type LocationHistory struct {
	BoatID        string                 `json:"boatId"`
	Items         []LocationHistoryEntry `json:"items"`
	Track         string                 `json:"track,omitempty"`
	TrackLengthKm float64                `json:"trackLengthKm"`
	Meta          ListMeta               `json:"meta"`
}

// BoatPosition is the last known position of an active boat.
type BoatPosition struct {
	BoatID    string   `json:"boatId"`
	OwnerName string   `json:"ownerName"`
	Location  Location `json:"location"`
}

// BoatPositionList lists active boat positions.
type BoatPositionList struct {
	Items []BoatPosition `json:"items"`
	Meta  ListMeta       `json:"meta"`
}

// RouteRequest asks for a direct passage.
type RouteRequest struct {
	From     Point   `json:"from" validate:"required"`
	To       Point   `json:"to" validate:"required"`
	SpeedKmh float64 `json:"speedKmh,omitempty" validate:"omitempty,gt=0"`
}

// Route is a straight-line passage.
type Route struct {
	DistanceKm float64 `json:"distanceKm"`
	BearingDeg float64 `json:"bearingDeg"`
	ETAMinutes int     `json:"etaMinutes"`
	Waypoints  []Point `json:"waypoints"`
	Polyline   string  `json:"polyline"`
}

// NearestPortRequest asks for the closest active port.
type NearestPortRequest struct {
	Location Point `json:"location" validate:"required"`
}

// NearestPort is the closest active port.
type NearestPort struct {
	Port       Port    `json:"port"`
	DistanceKm float64 `json:"distanceKm"`
	BearingDeg float64 `json:"bearingDeg"`
	ETAMinutes int     `json:"etaMinutes"`
}

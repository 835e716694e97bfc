// Package navigation keeps boat positions, safe harbours and the per-boat
// navigation advisory derived from them.
package navigation

import (
	"errors"
	"time"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
)

// Domain errors.
var (
	ErrPortNotFound = errors.New("port not found")
	ErrPortExists   = errors.New("port already exists")
	ErrNoAdvisory   = errors.New("no navigation advisory for boat")
	ErrNoActivePort = errors.New("no active port")
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Port is a safe harbour. Ports are never deleted, only deactivated.
type Port struct {
	ID            string
	Name          string
	LocalizedName string
	Location      geo.Point
	Capacity      int
	Facilities    []string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeactivatedAt *time.Time
}

// Position implements geo.Site.
func (p *Port) Position() geo.Point { return p.Location }

// IsActive implements geo.Site.
func (p *Port) IsActive() bool { return p.Active }

// Advisory is the latest navigation picture for a boat. It is recomputed
// wholesale on every location update.
type Advisory struct {
	Boat            string
	CurrentLocation geo.Location
	// NearestPort is nil when every port is inactive.
	NearestPort *Port
	DistanceKm  float64
	BearingDeg  float64
	ETAMinutes  int
	Risk        *risk.Assessment
	ComputedAt  time.Time
}

// HistoryEntry is one recorded position of a boat.
type HistoryEntry struct {
	Boat       string
	Location   geo.Location
	RecordedAt time.Time
}

// BoatPosition is the last known position of an active boat.
type BoatPosition struct {
	Boat      string
	OwnerName string
	Location  geo.Location
}

// Route is a straight-line passage between two points.
type Route struct {
	DistanceKm float64
	BearingDeg float64
	ETAMinutes int
	Waypoints  []geo.Point
}

// Nearest is the closest active port to a point.
type Nearest struct {
	Port       *Port
	DistanceKm float64
	BearingDeg float64
	ETAMinutes int
}

// DefaultPorts returns the Tamil Nadu harbours seeded into an empty store.
func DefaultPorts(now time.Time) []*Port {
	port := func(id, name, localized string, lat, lon float64, capacity int, facilities ...string) *Port {
		return &Port{
			ID:            id,
			Name:          name,
			LocalizedName: localized,
			Location:      geo.Point{Lat: lat, Lon: lon},
			Capacity:      capacity,
			Facilities:    facilities,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	return []*Port{
		port("chennai", "Chennai Port", "சென்னை துறைமுகம்", 13.0827, 80.2707, 100, "fuel", "repair", "medical", "emergency"),
		port("tuticorin", "Tuticorin Port", "தூத்துக்குடி துறைமுகம்", 8.7642, 78.1348, 80, "fuel", "repair", "medical", "emergency"),
		port("enayam", "Enayam Port", "எண்ணாயம் துறைமுகம்", 8.1833, 77.4167, 60, "fuel", "repair", "emergency"),
		port("kanyakumari", "Kanyakumari Port", "கன்னியாகுமரி துறைமுகம்", 8.0883, 77.5385, 40, "fuel", "emergency"),
		port("rameshwaram", "Rameshwaram Port", "ராமேஸ்வரம் துறைமுகம்", 9.2881, 79.3129, 50, "fuel", "repair", "emergency"),
	}
}

func copyPort(p *Port) *Port {
	cp := *p
	cp.Facilities = append([]string(nil), p.Facilities...)
	if p.DeactivatedAt != nil {
		t := *p.DeactivatedAt
		cp.DeactivatedAt = &t
	}
	return &cp
}

func copyAdvisory(a *Advisory) *Advisory {
	cp := *a
	if a.NearestPort != nil {
		cp.NearestPort = copyPort(a.NearestPort)
	}
	if a.Risk != nil {
		r := *a.Risk
		r.Reasons = append([]string(nil), a.Risk.Reasons...)
		cp.Risk = &r
	}
	if a.CurrentLocation.Accuracy != nil {
		acc := *a.CurrentLocation.Accuracy
		cp.CurrentLocation.Accuracy = &acc
	}
	return &cp
}

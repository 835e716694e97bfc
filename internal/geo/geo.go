// Package geo provides the great-circle math used for navigation advisories:
// distance, initial bearing, ETA and nearest-harbour search.
//
// Every function here is pure and deterministic.
package geo

import (
	"errors"
	"math"
	"time"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// DefaultSpeedKmh is the cruising speed assumed when the caller does not supply one.
const DefaultSpeedKmh = 20.0

// ErrInvalidSpeed is returned by ETA when the speed is not positive.
var ErrInvalidSpeed = errors.New("speed must be greater than zero")

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Location is a point captured by a boat's GPS.
type Location struct {
	Point
	// Accuracy in metres, if reported by the device.
	Accuracy   *float64
	CapturedAt time.Time
}

// Distance returns the haversine great-circle distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	deltaLat := toRadians(b.Lat - a.Lat)
	deltaLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// Bearing returns the initial compass bearing from a to b in degrees, normalised to [0, 360).
// The reverse bearing is not exactly Bearing(a, b)+180 on a sphere.
func Bearing(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	deltaLon := toRadians(b.Lon - a.Lon)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	bearing := math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

// ETA returns the travel time in whole minutes for distanceKm at speedKmh.
func ETA(distanceKm, speedKmh float64) (int, error) {
	if speedKmh <= 0 || math.IsNaN(speedKmh) {
		return 0, ErrInvalidSpeed
	}
	return int(math.Round(distanceKm / speedKmh * 60)), nil
}

// DefaultETA is ETA at DefaultSpeedKmh.
func DefaultETA(distanceKm float64) int {
	minutes, _ := ETA(distanceKm, DefaultSpeedKmh)
	return minutes
}

// Site is anything with a position that can be switched off, such as a safe harbour.
type Site interface {
	Position() Point
	IsActive() bool
}

// NearestActive returns the active site closest to from together with its distance in km.
// Ties are broken by the first site encountered in the order of sites; no secondary key
// is consulted. ok is false when no site is active.
func NearestActive[S Site](from Point, sites []S) (nearest S, distanceKm float64, ok bool) {
	distanceKm = math.Inf(1)
	for _, site := range sites {
		if !site.IsActive() {
			continue
		}
		d := Distance(from, site.Position())
		if d < distanceKm {
			nearest = site
			distanceKm = d
			ok = true
		}
	}
	if !ok {
		distanceKm = 0
	}
	return nearest, distanceKm, ok
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

package weather

import (
	"errors"
	"math"
	"time"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoWeatherData       = errors.New("no weather data for boat")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation represents weather data at a specific point and time.
type Observation struct {
	// Location coordinates
	Lat float64
	Lon float64

	// Temperature in Celsius
	Temperature float64

	// Humidity percentage (0-100)
	Humidity float64

	// Wind data
	WindSpeed     float64 // km/h
	WindDirection float64 // degrees (0-360, 0=N, 90=E, 180=S, 270=W)
	WindGust      float64 // km/h (optional, 0 if not available)

	// Atmospheric pressure in hPa
	Pressure float64

	// Weather condition
	Condition   Condition
	Description string

	// Cloud cover percentage (0-100)
	CloudCover float64

	// Visibility in kilometres
	VisibilityKm float64

	// Timestamps
	ObservedAt time.Time
	FetchedAt  time.Time
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSquall       Condition = "SQUALL"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Forecast represents weather forecast data.
type Forecast struct {
	Lat float64
	Lon float64

	// Entries are in chronological order, typically three hours apart.
	Entries []ForecastEntry

	FetchedAt time.Time
}

// ForecastEntry is the forecast for one time step.
type ForecastEntry struct {
	Time          time.Time
	Temperature   float64
	Humidity      float64
	WindSpeed     float64 // km/h
	WindDirection float64
	WindGust      float64 // km/h, 0 when not reported
	Condition     Condition
	Description   string
	PrecipProb    float64 // 0-1
}

// SeaCondition returns the sea state implied by the forecast wind.
func (e *ForecastEntry) SeaCondition() risk.SeaCondition {
	return risk.SeaConditionFor(e.WindSpeed)
}

// Snapshot is the weather a boat last reported conditions for. There is one
// per boat and it is overwritten on every refresh.
type Snapshot struct {
	Boat          string
	WindSpeed     float64 // km/h
	WindDirection float64
	Temperature   float64
	Humidity      float64
	Pressure      float64
	VisibilityKm  float64
	SeaCondition  risk.SeaCondition
	TideSpeed     float64
	Description   string
	Location      geo.Point
	CapturedAt    time.Time
}

// Conditions returns the fields the risk scorer looks at.
func (s *Snapshot) Conditions() risk.Conditions {
	return risk.Conditions{
		WindSpeed:    s.WindSpeed,
		SeaCondition: s.SeaCondition,
		VisibilityKm: s.VisibilityKm,
		Temperature:  s.Temperature,
	}
}

// BoatConditions pairs a boat's snapshot with the assessment computed from it.
type BoatConditions struct {
	Snapshot   *Snapshot
	Assessment *risk.Assessment
}

// ist is the coastal local time used for the tide model.
var ist = time.FixedZone("IST", 5*3600+1800)

// TideSpeed is a simulated tidal current in knots. It follows a daily sine
// over the local hour and stays within [0, 3].
func TideSpeed(at time.Time) float64 {
	hour := float64(at.In(ist).Hour())
	return math.Abs(math.Sin(hour/24*2*math.Pi)*2 + 1)
}

// NewSnapshot builds a boat snapshot from a provider observation.
func NewSnapshot(boatID string, at geo.Point, obs *Observation, now time.Time) *Snapshot {
	return &Snapshot{
		Boat:          boatID,
		WindSpeed:     obs.WindSpeed,
		WindDirection: obs.WindDirection,
		Temperature:   obs.Temperature,
		Humidity:      obs.Humidity,
		Pressure:      obs.Pressure,
		VisibilityKm:  obs.VisibilityKm,
		SeaCondition:  risk.SeaConditionFor(obs.WindSpeed),
		TideSpeed:     TideSpeed(now),
		Description:   obs.Description,
		Location:      at,
		CapturedAt:    now,
	}
}

// Validate checks every measurement against its physical range.
func (s *Snapshot) Validate() []models.FieldError {
	var errs []models.FieldError
	check := func(field string, v, lo, hi float64, msg string) {
		if math.IsNaN(v) || v < lo || v > hi {
			errs = append(errs, models.FieldError{Field: field, Message: msg})
		}
	}

	check("windSpeed", s.WindSpeed, 0, 200, "must be between 0 and 200")
	check("windDirection", s.WindDirection, 0, 360, "must be between 0 and 360")
	check("temperature", s.Temperature, -50, 60, "must be between -50 and 60")
	check("humidity", s.Humidity, 0, 100, "must be between 0 and 100")
	check("pressure", s.Pressure, 800, 1200, "must be between 800 and 1200")
	check("visibility", s.VisibilityKm, 0, 50, "must be between 0 and 50")
	check("tideSpeed", s.TideSpeed, 0, 10, "must be between 0 and 10")
	if !s.SeaCondition.Valid() {
		errs = append(errs, models.FieldError{Field: "seaCondition", Message: "is not a known sea state"})
	}
	errs = append(errs, geo.ValidatePoint(s.Location, "location")...)
	return errs
}

func copySnapshot(s *Snapshot) *Snapshot {
	c := *s
	return &c
}

func copyAssessment(a *risk.Assessment) *risk.Assessment {
	if a == nil {
		return nil
	}
	c := *a
	c.Reasons = append([]string(nil), a.Reasons...)
	return &c
}

// ValidationError reports a snapshot that failed range validation.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

package models

// Weather is the current weather at a point.
type Weather struct {
	Location      Point     `json:"location"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
	WindGust      float64   `json:"windGust,omitempty"`
	Pressure      float64   `json:"pressure"`
	Visibility    float64   `json:"visibility"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description,omitempty"`
	SeaCondition  string    `json:"seaCondition"`
	ObservedAt    Timestamp `json:"observedAt"`
}

// ForecastEntry is the forecast for one time step.
type ForecastEntry struct {
	Time          Timestamp `json:"time"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
	WindGust      float64   `json:"windGust,omitempty"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description,omitempty"`
	PrecipProb    float64   `json:"precipitationProbability"`
	SeaCondition  string    `json:"seaCondition"`
}

// Forecast is the short-range forecast at a point.
type Forecast struct {
	Location Point           `json:"location"`
	Entries  []ForecastEntry `json:"entries"`
}

// WeatherSnapshot is the weather last captured for a boat.
type WeatherSnapshot struct {
	BoatID        string    `json:"boatId"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	Pressure      float64   `json:"pressure"`
	Visibility    float64   `json:"visibility"`
	SeaCondition  string    `json:"seaCondition"`
	TideSpeed     float64   `json:"tideSpeed"`
	Description   string    `json:"description,omitempty"`
	Location      Point     `json:"location"`
	CapturedAt    Timestamp `json:"capturedAt"`
}

// BoatWeather pairs a boat's snapshot with its risk assessment.
type BoatWeather struct {
	Weather WeatherSnapshot `json:"weather"`
	Risk    *RiskAssessment `json:"risk,omitempty"`
}

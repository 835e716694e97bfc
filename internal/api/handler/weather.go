package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/uyirkavalan/uyirkavalan/internal/api/models"
	"github.com/uyirkavalan/uyirkavalan/internal/api/response"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

// WeatherHandler handles weather and per-boat risk endpoints.
type WeatherHandler struct {
	weatherService *weather.Service
	boats          boat.Directory
	bus            bus.MessageBus
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(weatherService *weather.Service, boats boat.Directory, messageBus bus.MessageBus) *WeatherHandler {
	return &WeatherHandler{weatherService: weatherService, boats: boats, bus: messageBus}
}

// GetCurrent handles GET /v1/weather/current?lat=&lon=.
func (h *WeatherHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(w, r)
	if !ok {
		return
	}

	obs, err := h.weatherService.Current(r.Context(), lat, lon)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIWeather(obs))
}

// GetForecast handles GET /v1/weather/forecast?lat=&lon=.
func (h *WeatherHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(w, r)
	if !ok {
		return
	}

	f, err := h.weatherService.Forecast(r.Context(), lat, lon)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIForecast(f))
}

// GetBoatWeather handles GET /v1/weather/boats/{boatId} - the boat's latest
// snapshot and risk assessment.
func (h *WeatherHandler) GetBoatWeather(w http.ResponseWriter, r *http.Request) {
	c, err := h.weatherService.BoatConditions(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIBoatWeather(c))
}

// RefreshBoatWeather handles POST /v1/weather/boats/{boatId}/refresh - fetch
// weather at the boat's last known position and rescore its risk.
func (h *WeatherHandler) RefreshBoatWeather(w http.ResponseWriter, r *http.Request) {
	b, err := h.boats.Get(r.Context(), chi.URLParam(r, "boatId"))
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}
	if b.LastKnownLocation == nil {
		response.Conflict(w, r, "boat has no known location")
		return
	}

	c, err := h.weatherService.RefreshBoat(r.Context(), b.ID, b.Position())
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}

	bus.PublishToBoat(h.bus, b.ID, bus.KindRisk, c.Assessment)
	response.JSON(w, r, http.StatusOK, toAPIBoatWeather(c))
}

// parseLatLon reads the lat and lon query parameters.
func parseLatLon(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	var fieldErrors []models.FieldError

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: "is required and must be a number"})
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lon", Message: "is required and must be a number"})
	}

	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return 0, 0, false
	}
	return lat, lon, true
}

func writeWeatherError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *weather.ValidationError
	switch {
	case errors.As(err, &vErr):
		// The provider returned values outside physical ranges.
		response.BadGateway(w, r, "weather provider returned out-of-range data")
	case errors.Is(err, weather.ErrInvalidCoordinates):
		response.BadRequest(w, r, "invalid coordinates", []models.FieldError{
			{Field: "lat", Message: "must be between -90 and 90"},
			{Field: "lon", Message: "must be between -180 and 180"},
		})
	case errors.Is(err, weather.ErrNoWeatherData):
		response.NotFound(w, r, "no weather data for boat yet")
	case errors.Is(err, boat.ErrBoatNotFound):
		response.NotFound(w, r, "boat not found")
	case errors.Is(err, weather.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "weather provider unavailable")
	default:
		response.InternalError(w, r, "internal server error")
	}
}

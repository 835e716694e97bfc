// Package openweathermap fetches current conditions and the 5 day / 3 hour
// forecast from OpenWeatherMap, converted to km/h winds for the sea-state
// scale.
package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

const (
	ProviderName   = "openweathermap"
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	msToKmh = 3.6
)

// ErrUnauthorized means the API key was rejected. Retrying will not help.
var ErrUnauthorized = errors.New("openweathermap: api key rejected")

// StatusError is a non-200 reply from the API.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openweathermap %s: unexpected status %d", e.Endpoint, e.StatusCode)
}

type ClientConfig struct {
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient *resilience.Client
	Logger     zerolog.Logger
}

// Client implements weather.Provider.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentWeather fetches the latest observation nearest to lat, lon.
func (c *Client) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	var resp currentWeatherResponse
	if err := c.fetch(ctx, "weather", lat, lon, &resp); err != nil {
		return nil, err
	}
	return toObservation(&resp, time.Now()), nil
}

// GetForecast fetches the 3-hourly forecast for the next five days.
func (c *Client) GetForecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	var resp forecastResponse
	if err := c.fetch(ctx, "forecast", lat, lon, &resp); err != nil {
		return nil, err
	}
	return toForecast(&resp, time.Now()), nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, lat, lon float64, out any) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openweathermap %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("provider call")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

func toObservation(resp *currentWeatherResponse, fetchedAt time.Time) *weather.Observation {
	pressure := resp.Main.Pressure
	if resp.Main.SeaLevel > 0 {
		pressure = resp.Main.SeaLevel
	}

	obs := &weather.Observation{
		Lat:           resp.Coord.Lat,
		Lon:           resp.Coord.Lon,
		Temperature:   resp.Main.Temp,
		Humidity:      resp.Main.Humidity,
		WindSpeed:     resp.Wind.Speed * msToKmh,
		WindDirection: resp.Wind.Deg,
		WindGust:      resp.Wind.Gust * msToKmh,
		Pressure:      pressure,
		CloudCover:    resp.Clouds.All,
		VisibilityKm:  float64(resp.Visibility) / 1000,
		ObservedAt:    time.Unix(resp.Dt, 0),
		FetchedAt:     fetchedAt,
	}
	obs.Condition, obs.Description = condition(resp.Weather)
	return obs
}

func toForecast(resp *forecastResponse, fetchedAt time.Time) *weather.Forecast {
	forecast := &weather.Forecast{
		Lat:       resp.City.Coord.Lat,
		Lon:       resp.City.Coord.Lon,
		Entries:   make([]weather.ForecastEntry, 0, len(resp.List)),
		FetchedAt: fetchedAt,
	}
	for _, item := range resp.List {
		entry := weather.ForecastEntry{
			Time:          time.Unix(item.Dt, 0),
			Temperature:   item.Main.Temp,
			Humidity:      item.Main.Humidity,
			WindSpeed:     item.Wind.Speed * msToKmh,
			WindDirection: item.Wind.Deg,
			WindGust:      item.Wind.Gust * msToKmh,
			PrecipProb:    item.Pop,
		}
		entry.Condition, entry.Description = condition(item.Weather)
		forecast.Entries = append(forecast.Entries, entry)
	}
	return forecast
}

func condition(ws []owmWeather) (weather.Condition, string) {
	if len(ws) == 0 {
		return weather.ConditionUnknown, ""
	}
	w := ws[0]
	if w.ID != 0 {
		return conditionByID(w.ID), w.Description
	}
	return conditionByGroup(w.Main), w.Description
}

// conditionByID maps OpenWeatherMap condition codes. Codes are finer than
// the group name: 771 (squall) and 781 (tornado) sit in the 7xx
// "atmosphere" group alongside haze.
func conditionByID(id int) weather.Condition {
	switch {
	case id >= 200 && id < 300:
		return weather.ConditionThunderstorm
	case id >= 300 && id < 400:
		return weather.ConditionDrizzle
	case id >= 500 && id < 600:
		return weather.ConditionRain
	case id == 701:
		return weather.ConditionMist
	case id == 741:
		return weather.ConditionFog
	case id == 771 || id == 781:
		return weather.ConditionSquall
	case id >= 700 && id < 800:
		return weather.ConditionHaze
	case id == 800:
		return weather.ConditionClear
	case id > 800 && id < 900:
		return weather.ConditionClouds
	default:
		return weather.ConditionUnknown
	}
}

func conditionByGroup(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionClouds
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Thunderstorm":
		return weather.ConditionThunderstorm
	case "Mist":
		return weather.ConditionMist
	case "Fog":
		return weather.ConditionFog
	case "Squall", "Tornado":
		return weather.ConditionSquall
	case "Haze", "Dust", "Sand", "Ash", "Smoke":
		return weather.ConditionHaze
	default:
		return weather.ConditionUnknown
	}
}

type owmWeather struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmWind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
	Gust  float64 `json:"gust"`
}

type currentWeatherResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []owmWeather `json:"weather"`
	Main    struct {
		Temp     float64 `json:"temp"`
		Pressure float64 `json:"pressure"`
		SeaLevel float64 `json:"sea_level"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Visibility int     `json:"visibility"`
	Wind       owmWind `json:"wind"`
	Clouds     struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Dt int64 `json:"dt"`
}

type forecastResponse struct {
	City struct {
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind    owmWind      `json:"wind"`
		Pop     float64      `json:"pop"`
		Weather []owmWeather `json:"weather"`
	} `json:"list"`
}

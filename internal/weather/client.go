package weather

import (
	"context"
	"log/slog"
	"net/http"

	"materialhub/internal/models"
	"materialhub/internal/rest"
)

const (
	DefaultBaseURL      = "https://api.weatherapi.com/"
	DefaultForecastDays = 5
)

// Client calls the WeatherAPI v1 endpoints. Locations are passed as "lat,lon".
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a WeatherAPI client. An empty baseURL selects DefaultBaseURL.
func NewClient(logger *slog.Logger, httpClient *http.Client, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, logger: logger}
}

// Current calls v1/current.json.
func (c *Client) Current(ctx context.Context, location string) (models.WeatherSnapshot, error) {
	req := rest.NewRequest(c.baseURL, "v1/current.json").
		Param("key", c.apiKey).
		Param("q", location).
		Param("aqi", "no")

	c.logger.Debug("Requesting current weather.", "location", location)
	var snapshot models.WeatherSnapshot
	if err := rest.GetJSON(ctx, c.httpClient, req, &snapshot); err != nil {
		return models.WeatherSnapshot{}, err
	}
	return snapshot, nil
}

type forecastResponse struct {
	Location models.Location `json:"location"`
	Current  models.Current  `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC  float64          `json:"maxtemp_c"`
				MinTempC  float64          `json:"mintemp_c"`
				Condition models.Condition `json:"condition"`
			} `json:"day"`
			Astro struct {
				Sunrise string `json:"sunrise"`
				Sunset  string `json:"sunset"`
			} `json:"astro"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// Forecast calls v1/forecast.json for the given number of days.
func (c *Client) Forecast(ctx context.Context, location string, days int) (models.Forecast, error) {
	req := rest.NewRequest(c.baseURL, "v1/forecast.json").
		Param("key", c.apiKey).
		Param("q", location).
		IntParam("days", days).
		Param("aqi", "no").
		Param("alerts", "no")

	c.logger.Debug("Requesting forecast.", "location", location, "days", days)
	var resp forecastResponse
	if err := rest.GetJSON(ctx, c.httpClient, req, &resp); err != nil {
		return models.Forecast{}, err
	}

	forecast := models.Forecast{
		Location: resp.Location,
		Current:  resp.Current,
		Days:     make([]models.ForecastDay, 0, len(resp.Forecast.ForecastDay)),
	}
	for _, fd := range resp.Forecast.ForecastDay {
		forecast.Days = append(forecast.Days, models.ForecastDay{
			Date:      fd.Date,
			MaxTempC:  fd.Day.MaxTempC,
			MinTempC:  fd.Day.MinTempC,
			Condition: fd.Day.Condition,
			Sunrise:   fd.Astro.Sunrise,
			Sunset:    fd.Astro.Sunset,
		})
	}
	return forecast, nil
}

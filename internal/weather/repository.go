// Package weather fetches current conditions and forecasts by coordinate pair.
package weather

import (
	"context"
	"log/slog"
	"strconv"

	"materialhub/internal/models"
)

// API is the subset of Client the repository depends on.
type API interface {
	Current(ctx context.Context, location string) (models.WeatherSnapshot, error)
	Forecast(ctx context.Context, location string, days int) (models.Forecast, error)
}

// Repository validates coordinates and maps every failure into *Error.
type Repository struct {
	api    API
	logger *slog.Logger
}

func NewRepository(logger *slog.Logger, api API) *Repository {
	return &Repository{api: api, logger: logger}
}

// Current returns the conditions at (lat, lon). (0,0) is rejected with ErrLocation.
func (r *Repository) Current(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	if !validCoordinates(lat, lon) {
		return models.WeatherSnapshot{}, ErrLocation
	}

	snapshot, err := r.api.Current(ctx, locationQuery(lat, lon))
	if err != nil {
		werr := classify(err)
		r.logger.Warn("Weather request failed.", "kind", werr.Kind, "error", err)
		return models.WeatherSnapshot{}, werr
	}
	r.logger.Info("Fetched current weather.", "location", snapshot.Location.Name)
	return snapshot, nil
}

// Forecast returns a days-long forecast at (lat, lon). Non-positive days selects
// DefaultForecastDays.
func (r *Repository) Forecast(ctx context.Context, lat, lon float64, days int) (models.Forecast, error) {
	if !validCoordinates(lat, lon) {
		return models.Forecast{}, ErrLocation
	}
	if days <= 0 {
		days = DefaultForecastDays
	}

	forecast, err := r.api.Forecast(ctx, locationQuery(lat, lon), days)
	if err != nil {
		werr := classify(err)
		r.logger.Warn("Forecast request failed.", "kind", werr.Kind, "error", err)
		return models.Forecast{}, werr
	}
	r.logger.Info("Fetched forecast.", "location", forecast.Location.Name, "days", len(forecast.Days))
	return forecast, nil
}

// (0,0) is the "no fix" sentinel.
func validCoordinates(lat, lon float64) bool {
	return lat != 0 || lon != 0
}

func locationQuery(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

package screens

import (
	"context"
	"log/slog"

	"materialhub/internal/models"
	"materialhub/internal/viewstate"
	"materialhub/internal/weather"
)

// New York, used when the device has no location to offer.
const (
	FallbackLat = 40.7128
	FallbackLon = -74.0060
)

// WeatherScreen shows current conditions and a multi-day forecast.
type WeatherScreen struct {
	repo     *weather.Repository
	logger   *slog.Logger
	current  *viewstate.Holder[models.WeatherSnapshot]
	forecast *viewstate.Holder[models.Forecast]
}

func NewWeatherScreen(ctx context.Context, logger *slog.Logger, repo *weather.Repository) *WeatherScreen {
	return &WeatherScreen{
		repo:     repo,
		logger:   logger,
		current:  viewstate.NewHolder[models.WeatherSnapshot](ctx),
		forecast: viewstate.NewHolder[models.Forecast](ctx),
	}
}

func (s *WeatherScreen) Current() viewstate.State[models.WeatherSnapshot] {
	return s.current.State()
}

func (s *WeatherScreen) Forecast() viewstate.State[models.Forecast] {
	return s.forecast.State()
}

func (s *WeatherScreen) SubscribeCurrent(ctx context.Context) <-chan viewstate.State[models.WeatherSnapshot] {
	return s.current.Subscribe(ctx)
}

func (s *WeatherScreen) SubscribeForecast(ctx context.Context) <-chan viewstate.State[models.Forecast] {
	return s.forecast.Subscribe(ctx)
}

func (s *WeatherScreen) FetchWeather(lat, lon float64) {
	s.current.Load(func(ctx context.Context) (models.WeatherSnapshot, error) {
		return s.repo.Current(ctx, lat, lon)
	})
}

// FetchForecast loads a days-long forecast. Non-positive days selects the default length.
func (s *WeatherScreen) FetchForecast(lat, lon float64, days int) {
	s.forecast.Load(func(ctx context.Context) (models.Forecast, error) {
		return s.repo.Forecast(ctx, lat, lon, days)
	})
}

// FetchFallback loads both views for the fallback location.
func (s *WeatherScreen) FetchFallback() {
	s.logger.Info("No location available, using fallback.", "lat", FallbackLat, "lon", FallbackLon)
	s.FetchWeather(FallbackLat, FallbackLon)
	s.FetchForecast(FallbackLat, FallbackLon, weather.DefaultForecastDays)
}

func (s *WeatherScreen) Wait() {
	s.current.Wait()
	s.forecast.Wait()
}

func (s *WeatherScreen) Close() {
	s.current.Close()
	s.forecast.Close()
}

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"materialhub/internal/models"
	"materialhub/internal/rest"
	"materialhub/internal/screens"
	"materialhub/internal/weather"
)

func weatherCommand() *cli.Command {
	location := []cli.Flag{
		&cli.Float64Flag{Name: "lat", Usage: "latitude; defaults to New York with --lon"},
		&cli.Float64Flag{Name: "lon", Usage: "longitude"},
	}
	return &cli.Command{
		Name:  "weather",
		Usage: "Show current conditions or a forecast.",
		Subcommands: []*cli.Command{
			{
				Name:  "current",
				Usage: "Show current conditions.",
				Flags: location,
				Action: func(c *cli.Context) error {
					screen, err := newWeatherScreen(c)
					if err != nil {
						return err
					}
					defer screen.Close()

					lat, lon := coordinates(c)
					screen.FetchWeather(lat, lon)
					screen.Wait()

					snapshot, err := result(screen.Current())
					if err != nil {
						return err
					}
					printConditions(snapshot.Location, snapshot.Current)
					return nil
				},
			},
			{
				Name:  "forecast",
				Usage: "Show a daily forecast.",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "days", Value: weather.DefaultForecastDays},
				}, location...),
				Action: func(c *cli.Context) error {
					screen, err := newWeatherScreen(c)
					if err != nil {
						return err
					}
					defer screen.Close()

					lat, lon := coordinates(c)
					screen.FetchForecast(lat, lon, c.Int("days"))
					screen.Wait()

					forecast, err := result(screen.Forecast())
					if err != nil {
						return err
					}
					printConditions(forecast.Location, forecast.Current)
					for _, day := range forecast.Days {
						fmt.Printf("%s  %5.1f / %5.1f °C  %s  (sunrise %s, sunset %s)\n",
							day.Date, day.MinTempC, day.MaxTempC, day.Condition.Text, day.Sunrise, day.Sunset)
					}
					return nil
				},
			},
		},
	}
}

func newWeatherScreen(c *cli.Context) (*screens.WeatherScreen, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	if err := cfg.CheckWeather(); err != nil {
		return nil, err
	}
	client := weather.NewClient(logger, rest.NewHTTPClient(cfg.HTTPTimeout, userAgent), cfg.WeatherBaseURL, cfg.WeatherAPIKey)
	return screens.NewWeatherScreen(c.Context, logger, weather.NewRepository(logger, client)), nil
}

// coordinates falls back to New York when no location was given.
func coordinates(c *cli.Context) (float64, float64) {
	if !c.IsSet("lat") && !c.IsSet("lon") {
		return screens.FallbackLat, screens.FallbackLon
	}
	return c.Float64("lat"), c.Float64("lon")
}

func printConditions(loc models.Location, cur models.Current) {
	fmt.Printf("%s, %s, %s (%s)\n", loc.Name, loc.Region, loc.Country, loc.LocalTime)
	fmt.Printf("%.1f °C  %s  wind %.1f km/h  humidity %d%%  precip %.1f mm  UV %.1f\n",
		cur.TempC, cur.Condition.Text, cur.WindKph, cur.Humidity, cur.PrecipMM, cur.UV)
}

// Package config reads the hub's settings from the environment, after loading a .env file if
// one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendDevice = "device"
	BackendCalDAV = "caldav"
	BackendGoogle = "google"
)

type Config struct {
	DataDir    string
	TodoDBPath string

	NewsAPIKey  string
	NewsBaseURL string
	NewsCountry string

	WeatherAPIKey  string
	WeatherBaseURL string

	HTTPTimeout time.Duration

	CalendarBackend     string
	DeviceCalendarPath  string
	CalendarPermissions string

	CalDAVEndpoint     string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarName string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleAccount      string

	PrimaryTimeZone string
	LogLevel        string
}

// Default returns the settings used when the environment says nothing.
func Default() Config {
	return Config{
		DataDir:             ".materialhub",
		NewsBaseURL:         "https://newsapi.org/",
		NewsCountry:         "us",
		WeatherBaseURL:      "https://api.weatherapi.com/",
		HTTPTimeout:         30 * time.Second,
		CalendarBackend:     BackendDevice,
		CalendarPermissions: "read,write",
		CalDAVEndpoint:      "https://caldav.icloud.com/",
		PrimaryTimeZone:     "UTC",
		LogLevel:            "info",
	}
}

// Load reads .env (a missing file is fine) and then the process environment.
func Load() (Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from Default overlaid with the variables lookup finds.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("MATERIALHUB_DATA_DIR", &cfg.DataDir)
	str("TODO_DB_PATH", &cfg.TodoDBPath)
	str("NEWS_API_KEY", &cfg.NewsAPIKey)
	str("NEWS_BASE_URL", &cfg.NewsBaseURL)
	str("NEWS_COUNTRY", &cfg.NewsCountry)
	str("WEATHER_API_KEY", &cfg.WeatherAPIKey)
	str("WEATHER_BASE_URL", &cfg.WeatherBaseURL)
	str("CALENDAR_BACKEND", &cfg.CalendarBackend)
	str("DEVICE_CALENDAR_PATH", &cfg.DeviceCalendarPath)
	str("CALENDAR_PERMISSIONS", &cfg.CalendarPermissions)
	str("CALDAV_ENDPOINT", &cfg.CalDAVEndpoint)
	str("CALDAV_USERNAME", &cfg.CalDAVUsername)
	str("CALDAV_PASSWORD", &cfg.CalDAVPassword)
	str("CALDAV_CALENDAR_NAME", &cfg.CalDAVCalendarName)
	str("GOOGLE_CLIENT_ID", &cfg.GoogleClientID)
	str("GOOGLE_CLIENT_SECRET", &cfg.GoogleClientSecret)
	str("GOOGLE_ACCOUNT", &cfg.GoogleAccount)
	str("PRIMARY_TIMEZONE", &cfg.PrimaryTimeZone)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("HTTP_TIMEOUT_SECONDS"); ok && strings.TrimSpace(v) != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS %q", v)
		}
		cfg.HTTPTimeout = time.Duration(secs) * time.Second
	}

	cfg.CalendarBackend = strings.ToLower(cfg.CalendarBackend)
	if cfg.TodoDBPath == "" {
		cfg.TodoDBPath = filepath.Join(cfg.DataDir, "todos.db")
	}
	if cfg.DeviceCalendarPath == "" {
		cfg.DeviceCalendarPath = filepath.Join(cfg.DataDir, "calendar.db")
	}
	return cfg, nil
}

// Validate checks the calendar backend settings and the time zone.
func (c Config) Validate() error {
	var errs []error
	switch c.CalendarBackend {
	case BackendDevice:
		if c.DeviceCalendarPath == "" {
			errs = append(errs, errors.New("DEVICE_CALENDAR_PATH is required for the device backend"))
		}
	case BackendCalDAV:
		if c.CalDAVUsername == "" || c.CalDAVPassword == "" {
			errs = append(errs, errors.New("CALDAV_USERNAME and CALDAV_PASSWORD are required for the caldav backend"))
		}
	case BackendGoogle:
		// GOOGLE_ACCOUNT may stay empty when DATA_DIR holds a single token file.
	default:
		errs = append(errs, fmt.Errorf("unknown CALENDAR_BACKEND %q (want device, caldav or google)", c.CalendarBackend))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CheckNews reports a missing NewsAPI key.
func (c Config) CheckNews() error {
	if c.NewsAPIKey == "" {
		return errors.New("NEWS_API_KEY environment variable not set")
	}
	return nil
}

// CheckWeather reports a missing WeatherAPI key.
func (c Config) CheckWeather() error {
	if c.WeatherAPIKey == "" {
		return errors.New("WEATHER_API_KEY environment variable not set")
	}
	return nil
}

// Location loads PRIMARY_TIMEZONE.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.PrimaryTimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.PrimaryTimeZone, err)
	}
	return loc, nil
}

// EnsureDataDir creates the data directory.
func (c Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

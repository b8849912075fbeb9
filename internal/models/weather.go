package models

// WeatherSnapshot holds current conditions for one location.
type WeatherSnapshot struct {
	Location Location `json:"location"`
	Current  Current  `json:"current"`
}

// Forecast is a WeatherSnapshot plus an ordered list of daily summaries.
type Forecast struct {
	Location Location      `json:"location"`
	Current  Current       `json:"current"`
	Days     []ForecastDay `json:"-"`
}

type Location struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	LocalTime string  `json:"localtime"`
}

type Current struct {
	TempC     float64   `json:"temp_c"`
	Condition Condition `json:"condition"`
	WindKph   float64   `json:"wind_kph"`
	Humidity  int       `json:"humidity"`
	PrecipMM  float64   `json:"precip_mm"`
	IsDay     int       `json:"is_day"`
	UV        float64   `json:"uv"`
}

type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// ForecastDay summarises a single forecast day.
type ForecastDay struct {
	Date      string
	MaxTempC  float64
	MinTempC  float64
	Condition Condition
	Sunrise   string
	Sunset    string
}

package types

import "time"

// WeatherReport is one forecast snapshot. A new row is appended each update
// cycle; the latest report is the one with the newest FetchedAt.
type WeatherReport struct {
	ID            int64      `json:"id"`
	Location      string     `json:"location"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	FetchedAt     time.Time  `json:"fetched_at"`
	ForecastJSON  string     `json:"forecast_json,omitempty"`
	AIReport      string     `json:"ai_report,omitempty"`
	AIModel       string     `json:"ai_model,omitempty"`
	AIGeneratedAt *time.Time `json:"ai_generated_at,omitempty"`
}

// FallbackWeatherNarrative is stored when the AI summary fails all attempts.
const FallbackWeatherNarrative = "Weather report unavailable — showing raw forecast data."

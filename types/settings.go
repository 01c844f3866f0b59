package types

import "time"

// Settings is the single-row AI and unit configuration, editable at runtime.
type Settings struct {
	AIBaseURL string     `json:"ai_base_url,omitempty"`
	AIModel   string     `json:"ai_model,omitempty"`
	TempUnit  string     `json:"temp_unit,omitempty"` // "F" or "C"
	WindUnit  string     `json:"wind_unit,omitempty"` // "mph" or "kmh"
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// LocationConfig is the single-row resolved location shared by the feed
// gatherer and the weather updater.
type LocationConfig struct {
	Name       string     `json:"location"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Timezone   string     `json:"timezone,omitempty"`
	Source     string     `json:"source,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

package weather

const (
	mphToKmh = 1.60934
	kmhToMph = 0.621371
)

// ConvertWindUnits rewrites the wind-speed fields of a forecast payload in
// place when the preferred unit differs from what the service returned.
// Open-Meteo reports wind in km/h unless told otherwise, so a "mph"
// preference converts the current windspeed and the daily maxima and updates
// the unit labels to match.
func ConvertWindUnits(forecast map[string]any, windUnit string) {
	if forecast == nil {
		return
	}

	native := "km/h"
	if units, ok := forecast["current_weather_units"].(map[string]any); ok {
		if u, ok := units["windspeed"].(string); ok && u != "" {
			native = u
		}
	}

	var factor float64
	var label string
	switch {
	case windUnit == "mph" && native != "mph":
		factor, label = kmhToMph, "mph"
	case windUnit == "kmh" && native != "km/h":
		factor, label = mphToKmh, "km/h"
	default:
		return
	}

	if cw, ok := forecast["current_weather"].(map[string]any); ok {
		if v, ok := cw["windspeed"].(float64); ok {
			cw["windspeed"] = v * factor
		}
	}
	if units, ok := forecast["current_weather_units"].(map[string]any); ok {
		units["windspeed"] = label
	}

	if daily, ok := forecast["daily"].(map[string]any); ok {
		if speeds, ok := daily["wind_speed_10m_max"].([]any); ok {
			for i, s := range speeds {
				if v, ok := s.(float64); ok {
					speeds[i] = v * factor
				}
			}
		}
	}
	if units, ok := forecast["daily_units"].(map[string]any); ok {
		units["wind_speed_10m_max"] = label
	}
}

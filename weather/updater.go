package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"localwire/config"
	"localwire/types"
)

const forecastEndpoint = "https://api.open-meteo.com/v1/forecast"

const dailyFields = "temperature_2m_max,temperature_2m_min,precipitation_sum," +
	"precipitation_probability_max,wind_speed_10m_max,sunrise,sunset,weathercode"

// ReportStore persists forecast snapshots.
type ReportStore interface {
	CreateWeatherReport(ctx context.Context, wr *types.WeatherReport) error
}

// Updater fetches Open-Meteo forecasts and appends WeatherReport rows. The AI
// narrative is attached afterwards by the orchestrator, so a report is useful
// even when the summary step fails.
type Updater struct {
	store  ReportStore
	client *http.Client
}

func NewUpdater(store ReportStore) *Updater {
	return &Updater{
		store:  store,
		client: &http.Client{Timeout: config.ForecastTimeout},
	}
}

// Update fetches a forecast for the location and persists a new report row.
// Coordinates on loc are reused when present; otherwise the orchestrator
// should have resolved them already and this returns an error.
func (u *Updater) Update(ctx context.Context, loc types.LocationConfig, settings types.Settings) (*types.WeatherReport, error) {
	if loc.Latitude == nil || loc.Longitude == nil {
		return nil, fmt.Errorf("location %q has no coordinates", loc.Name)
	}

	forecast, err := u.fetchForecast(ctx, *loc.Latitude, *loc.Longitude, loc.Timezone, settings.TempUnit)
	if err != nil {
		return nil, err
	}
	ConvertWindUnits(forecast, settings.WindUnit)

	payload, err := json.Marshal(forecast)
	if err != nil {
		return nil, fmt.Errorf("encode forecast: %w", err)
	}

	wr := &types.WeatherReport{
		Location:     loc.Name,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		FetchedAt:    time.Now().UTC(),
		ForecastJSON: string(payload),
	}
	if err := u.store.CreateWeatherReport(ctx, wr); err != nil {
		return nil, fmt.Errorf("persist weather report: %w", err)
	}
	return wr, nil
}

func (u *Updater) fetchForecast(ctx context.Context, lat, lon float64, tz, tempUnit string) (map[string]any, error) {
	q := url.Values{
		"latitude":        {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":       {strconv.FormatFloat(lon, 'f', -1, 64)},
		"current_weather": {"true"},
		"daily":           {dailyFields},
		"timezone":        {tz},
	}
	if tempUnit == "F" {
		q.Set("temperature_unit", "fahrenheit")
	} else if tempUnit == "C" {
		q.Set("temperature_unit", "celsius")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, forecastEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<12))
		return nil, fmt.Errorf("forecast service returned status %d", resp.StatusCode)
	}

	var forecast map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	return forecast, nil
}

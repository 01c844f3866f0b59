package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"localwire/types"
)

var weatherColumns = []string{
	"id", "location", "latitude", "longitude", "fetched_at",
	"forecast_json", "ai_report", "ai_model", "ai_generated_at",
}

// CreateWeatherReport appends a new forecast snapshot; reports are never
// overwritten in place.
func (s *Store) CreateWeatherReport(ctx context.Context, wr *types.WeatherReport) error {
	res, err := s.sb.Insert("weather_reports").
		Columns("location", "latitude", "longitude", "fetched_at",
			"forecast_json", "ai_report", "ai_model", "ai_generated_at").
		Values(wr.Location, wr.Latitude, wr.Longitude, wr.FetchedAt,
			wr.ForecastJSON, wr.AIReport, wr.AIModel, wr.AIGeneratedAt).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert weather report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	wr.ID = id
	return nil
}

// AttachWeatherNarrative stores the AI (or fallback) narrative on a report.
func (s *Store) AttachWeatherNarrative(ctx context.Context, id int64, report, model string, generatedAt time.Time) error {
	_, err := s.sb.Update("weather_reports").
		Set("ai_report", report).
		Set("ai_model", model).
		Set("ai_generated_at", generatedAt).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("attach weather narrative: %w", err)
	}
	return nil
}

// LatestWeatherReport returns the newest snapshot by fetch time, or nil when
// no report exists yet.
func (s *Store) LatestWeatherReport(ctx context.Context) (*types.WeatherReport, error) {
	row := s.sb.Select(weatherColumns...).From("weather_reports").
		OrderBy("fetched_at DESC", "id DESC").Limit(1).
		QueryRowContext(ctx)

	var wr types.WeatherReport
	var lat, lon sql.NullFloat64
	var aiGeneratedAt sql.NullTime
	err := row.Scan(&wr.ID, &wr.Location, &lat, &lon, &wr.FetchedAt,
		&wr.ForecastJSON, &wr.AIReport, &wr.AIModel, &aiGeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest weather: %w", err)
	}
	if lat.Valid {
		wr.Latitude = &lat.Float64
	}
	if lon.Valid {
		wr.Longitude = &lon.Float64
	}
	if aiGeneratedAt.Valid {
		t := aiGeneratedAt.Time
		wr.AIGeneratedAt = &t
	}
	return &wr, nil
}

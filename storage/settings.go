package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"localwire/types"
)

// GetSettings loads the single settings row; zero value when unset.
func (s *Store) GetSettings(ctx context.Context) (types.Settings, error) {
	row := s.sb.Select("ai_base_url", "ai_model", "temp_unit", "wind_unit", "updated_at").
		From("settings").Where("id = 1").QueryRowContext(ctx)

	var set types.Settings
	var updatedAt sql.NullTime
	err := row.Scan(&set.AIBaseURL, &set.AIModel, &set.TempUnit, &set.WindUnit, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Settings{}, nil
	}
	if err != nil {
		return types.Settings{}, fmt.Errorf("query settings: %w", err)
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		set.UpdatedAt = &t
	}
	return set, nil
}

// SaveSettings upserts the single settings row.
func (s *Store) SaveSettings(ctx context.Context, set types.Settings) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (id, ai_base_url, ai_model, temp_unit, wind_unit, updated_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	ai_base_url = excluded.ai_base_url,
	ai_model = excluded.ai_model,
	temp_unit = excluded.temp_unit,
	wind_unit = excluded.wind_unit,
	updated_at = excluded.updated_at`,
		set.AIBaseURL, set.AIModel, set.TempUnit, set.WindUnit, now)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// GetLocation loads the resolved-location row; zero value when unset.
func (s *Store) GetLocation(ctx context.Context) (types.LocationConfig, error) {
	row := s.sb.Select("name", "latitude", "longitude", "timezone", "source", "resolved_at").
		From("location_config").Where("id = 1").QueryRowContext(ctx)

	var cfg types.LocationConfig
	var lat, lon sql.NullFloat64
	var resolvedAt sql.NullTime
	err := row.Scan(&cfg.Name, &lat, &lon, &cfg.Timezone, &cfg.Source, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.LocationConfig{}, nil
	}
	if err != nil {
		return types.LocationConfig{}, fmt.Errorf("query location: %w", err)
	}
	if lat.Valid {
		cfg.Latitude = &lat.Float64
	}
	if lon.Valid {
		cfg.Longitude = &lon.Float64
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		cfg.ResolvedAt = &t
	}
	return cfg, nil
}

// SaveLocation upserts the resolved-location row.
func (s *Store) SaveLocation(ctx context.Context, cfg types.LocationConfig) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO location_config (id, name, latitude, longitude, timezone, source, resolved_at)
VALUES (1, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	timezone = excluded.timezone,
	source = excluded.source,
	resolved_at = excluded.resolved_at`,
		cfg.Name, cfg.Latitude, cfg.Longitude, cfg.Timezone, cfg.Source, now)
	if err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

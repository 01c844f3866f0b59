package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"localwire/config"
	"localwire/types"
)

// LocationStore persists the single resolved location row.
type LocationStore interface {
	GetLocation(ctx context.Context) (types.LocationConfig, error)
	SaveLocation(ctx context.Context, cfg types.LocationConfig) error
}

// Resolver figures out where the server is and keeps the answer in the
// database. Resolution order: env override, then IP geolocation, then a
// configured fallback name. Open-Meteo geocoding enriches whichever name wins
// with coordinates and a timezone.
type Resolver struct {
	store    LocationStore
	client   *http.Client
	override string // LOCATION_NAME env value, may be empty
	fallback string
	timezone string

	geocodeURL  string
	ipLookupURL string
}

func NewResolver(store LocationStore, cfg config.Config) *Resolver {
	return &Resolver{
		store:       store,
		client:      &http.Client{Timeout: config.GeocodeTimeout},
		override:    cfg.LocationName,
		fallback:    cfg.FallbackLocation,
		timezone:    cfg.Timezone,
		geocodeURL:  "https://geocoding-api.open-meteo.com/v1/search",
		ipLookupURL: "http://ip-api.com/json",
	}
}

// Resolve returns the persisted location, detecting and saving one if none
// exists yet. A stored name without coordinates (saved while geocoding was
// unreachable) is re-geocoded so the weather updater gets usable coordinates.
func (r *Resolver) Resolve(ctx context.Context) (types.LocationConfig, error) {
	loc, err := r.store.GetLocation(ctx)
	if err != nil {
		return types.LocationConfig{}, fmt.Errorf("load location: %w", err)
	}
	if loc.Name != "" {
		if loc.Latitude != nil && loc.Longitude != nil {
			return loc, nil
		}
		if g := r.geocode(ctx, loc.Name); g != nil {
			loc.Latitude, loc.Longitude = &g.Latitude, &g.Longitude
			if loc.Timezone == "" {
				loc.Timezone = g.Timezone
			}
			return r.save(ctx, loc)
		}
		return loc, nil
	}
	return r.detect(ctx)
}

// AutoDetect re-runs detection and overwrites the stored location.
func (r *Resolver) AutoDetect(ctx context.Context) (types.LocationConfig, error) {
	return r.detect(ctx)
}

// Set stores a manual location override, geocoded when possible.
func (r *Resolver) Set(ctx context.Context, name string) (types.LocationConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.LocationConfig{}, fmt.Errorf("location name is empty")
	}
	loc := types.LocationConfig{Timezone: r.timezone, Source: "manual"}
	if g := r.geocode(ctx, name); g != nil {
		applyGeocode(&loc, g)
		loc.Source = "manual+openmeteo"
	} else {
		loc.Name = name
	}
	return r.save(ctx, loc)
}

func (r *Resolver) detect(ctx context.Context) (types.LocationConfig, error) {
	loc := types.LocationConfig{Timezone: r.timezone}

	if r.override != "" {
		if g := r.geocode(ctx, r.override); g != nil {
			applyGeocode(&loc, g)
			loc.Source = "env+openmeteo"
		} else {
			loc.Name = r.override
			loc.Source = "env"
		}
	}

	if loc.Name == "" {
		if ip := r.ipLookup(ctx); ip != nil {
			name := strings.Trim(strings.TrimSpace(ip.City+", "+ip.RegionName), ", ")
			if name == "" {
				name = firstNonEmpty(ip.RegionName, ip.City, "Local")
			}
			loc.Name = name
			lat, lon := ip.Lat, ip.Lon
			loc.Latitude, loc.Longitude = &lat, &lon
			if ip.Timezone != "" {
				loc.Timezone = ip.Timezone
			}
			loc.Source = "ip-api"
		}
	}

	// Enrich a name-only result with coordinates.
	if loc.Name != "" && (loc.Latitude == nil || loc.Longitude == nil) {
		if g := r.geocode(ctx, loc.Name); g != nil {
			loc.Latitude, loc.Longitude = &g.Latitude, &g.Longitude
			if loc.Timezone == "" {
				loc.Timezone = g.Timezone
			}
			loc.Source += "+openmeteo"
		}
	}

	if loc.Name == "" {
		loc.Name = r.fallback
		loc.Source += "+fallback"
		log.Printf("geo: detection failed, using fallback location %q", loc.Name)
	}
	loc.Source = strings.TrimPrefix(loc.Source, "+")

	return r.save(ctx, loc)
}

func (r *Resolver) save(ctx context.Context, loc types.LocationConfig) (types.LocationConfig, error) {
	if loc.Timezone == "" {
		loc.Timezone = r.timezone
	}
	now := time.Now().UTC()
	loc.ResolvedAt = &now
	if err := r.store.SaveLocation(ctx, loc); err != nil {
		return types.LocationConfig{}, fmt.Errorf("save location: %w", err)
	}
	return loc, nil
}

type geocodeResult struct {
	Name      string  `json:"name"`
	Admin1    string  `json:"admin1"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

func (r *Resolver) geocode(ctx context.Context, name string) *geocodeResult {
	q := url.Values{
		"name":     {name},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.geocodeURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("geo: geocode %q failed: %v", name, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var payload struct {
		Results []geocodeResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Results) == 0 {
		return nil
	}
	return &payload.Results[0]
}

type ipResult struct {
	Status     string  `json:"status"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timezone   string  `json:"timezone"`
}

func (r *Resolver) ipLookup(ctx context.Context) *ipResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.ipLookupURL, nil)
	if err != nil {
		return nil
	}
	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("geo: ip lookup failed: %v", err)
		return nil
	}
	defer resp.Body.Close()
	var out ipResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Status != "success" {
		return nil
	}
	return &out
}

func applyGeocode(loc *types.LocationConfig, g *geocodeResult) {
	loc.Name = strings.Trim(strings.TrimSpace(g.Name+", "+g.Admin1), ", ")
	loc.Latitude, loc.Longitude = &g.Latitude, &g.Longitude
	if g.Timezone != "" {
		loc.Timezone = g.Timezone
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"localwire/config"
	"localwire/geo"
	"localwire/orchestrator"
	"localwire/progress"
	"localwire/rewrite"
	"localwire/scheduler"
	"localwire/storage"
	"localwire/types"
)

type noopFetcher struct{}

func (noopFetcher) FetchNewArticles(ctx context.Context, minCount int) ([]*types.Article, error) {
	return nil, nil
}

type noopWeather struct{}

func (noopWeather) Update(ctx context.Context, loc types.LocationConfig, settings types.Settings) (*types.WeatherReport, error) {
	return nil, fmt.Errorf("not configured in tests")
}

type noopProvider struct{}

func (noopProvider) Rewrite(ctx context.Context, req rewrite.Request) (*rewrite.Result, error) {
	return nil, fmt.Errorf("not configured in tests")
}

func (noopProvider) Summarize(ctx context.Context, forecastJSON, location string) (string, error) {
	return "", fmt.Errorf("not configured in tests")
}

func (noopProvider) Name() string { return "noop" }

func newTestServer(t *testing.T) (*Server, *storage.Store, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Config{
		Timezone:          "America/New_York",
		FallbackLocation:  "Schenectady, NY",
		MinArticlesPerRun: 10,
		ScheduleMorning:   "07:30",
		ScheduleNoon:      "12:00",
		ScheduleEvening:   "19:30",
	}
	resolver := geo.NewResolver(store, cfg)
	factory := func(types.Settings) rewrite.Provider { return noopProvider{} }
	orch := orchestrator.New(store, noopFetcher{}, resolver, noopWeather{}, factory,
		progress.NewTracker(), nil, nil, cfg.MinArticlesPerRun)
	sched := scheduler.New(cfg.Timezone)

	srv := NewServer(store, orch, sched, resolver, cfg)
	return srv, store, NewRouter(srv)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var payload map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode %s %s response: %v: %s", method, path, err, w.Body.String())
		}
	}
	return w, payload
}

func TestHealth(t *testing.T) {
	_, _, router := newTestServer(t)
	w, payload := doJSON(t, router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if payload["ok"] != true {
		t.Errorf("ok = %v", payload["ok"])
	}
}

func TestListArticlesPagination(t *testing.T) {
	_, store, router := newTestServer(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		a := &types.Article{
			SourceURL:   fmt.Sprintf("https://example.com/story-%d", i),
			SourceTitle: fmt.Sprintf("Story %d", i),
			FetchedAt:   base.Add(time.Duration(i) * time.Minute),
			RawContent:  "content",
		}
		if err := store.CreateArticle(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	w, payload := doJSON(t, router, http.MethodGet, "/api/articles?page=2&limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if payload["total"].(float64) != 25 || payload["pages"].(float64) != 3 {
		t.Errorf("total/pages = %v/%v", payload["total"], payload["pages"])
	}
	items := payload["items"].([]any)
	if len(items) != 10 {
		t.Fatalf("page 2 has %d items, want 10", len(items))
	}
	// Newest first: page 2 starts at the 11th newest, Story 14.
	first := items[0].(map[string]any)
	if first["title"] != "Story 14" {
		t.Errorf("first item on page 2 = %v, want Story 14", first["title"])
	}

	// Out-of-range pages clamp to the last page.
	_, payload = doJSON(t, router, http.MethodGet, "/api/articles?page=99&limit=10", "")
	if payload["page"].(float64) != 3 {
		t.Errorf("page = %v, want clamp to 3", payload["page"])
	}
}

func TestListArticlesFallbackNote(t *testing.T) {
	_, store, router := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	a := &types.Article{
		SourceURL:   "https://example.com/fallback",
		SourceTitle: "Raw Story",
		FetchedAt:   now,
		RawContent:  "raw text",
	}
	if err := store.CreateArticle(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateArticleAI(ctx, a.ID, "Raw Story", "raw text", types.FallbackSourceModel, now); err != nil {
		t.Fatal(err)
	}

	_, payload := doJSON(t, router, http.MethodGet, "/api/articles", "")
	item := payload["items"].([]any)[0].(map[string]any)
	if item["rewrite_note"] != "Showing original text (AI unavailable)" {
		t.Errorf("rewrite_note = %v", item["rewrite_note"])
	}
}

func TestWeatherReportNotes(t *testing.T) {
	_, store, router := newTestServer(t)
	ctx := context.Background()

	// No report yet: pending note.
	_, payload := doJSON(t, router, http.MethodGet, "/api/weather", "")
	if payload["report_note"] != "AI report pending…" {
		t.Errorf("report_note = %v, want pending", payload["report_note"])
	}

	wr := &types.WeatherReport{
		Location:     "Schenectady, NY",
		FetchedAt:    time.Now().UTC(),
		ForecastJSON: `{"current_weather":{"temperature":70}}`,
	}
	if err := store.CreateWeatherReport(ctx, wr); err != nil {
		t.Fatal(err)
	}
	if err := store.AttachWeatherNarrative(ctx, wr.ID, types.FallbackWeatherNarrative, types.FallbackForecastModel, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	_, payload = doJSON(t, router, http.MethodGet, "/api/weather", "")
	if payload["report_note"] != "AI report unavailable — showing raw forecast data." {
		t.Errorf("report_note = %v, want fallback framing", payload["report_note"])
	}
	if payload["report"] != types.FallbackWeatherNarrative {
		t.Errorf("report = %v", payload["report"])
	}

	if err := store.AttachWeatherNarrative(ctx, wr.ID, "Sunny and mild all week.", "llama3.2", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	_, payload = doJSON(t, router, http.MethodGet, "/api/weather", "")
	if _, ok := payload["report_note"]; ok {
		t.Errorf("report_note present for a real narrative: %v", payload["report_note"])
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	_, _, router := newTestServer(t)

	w, _ := doJSON(t, router, http.MethodPost, "/api/settings",
		`{"ai_model":" llama3.2 ","ai_base_url":"http://localhost:11434/","temp_unit":"c","wind_unit":"KM/H"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	_, payload := doJSON(t, router, http.MethodGet, "/api/settings", "")
	if payload["ai_model"] != "llama3.2" {
		t.Errorf("ai_model = %v", payload["ai_model"])
	}
	if payload["ai_base_url"] != "http://localhost:11434" {
		t.Errorf("ai_base_url = %v", payload["ai_base_url"])
	}
	if payload["temp_unit"] != "C" {
		t.Errorf("temp_unit = %v", payload["temp_unit"])
	}
	if payload["wind_unit"] != "kmh" {
		t.Errorf("wind_unit = %v", payload["wind_unit"])
	}
}

func TestSettingsDefaultsToFahrenheit(t *testing.T) {
	_, _, router := newTestServer(t)
	_, payload := doJSON(t, router, http.MethodGet, "/api/settings", "")
	if payload["temp_unit"] != "F" {
		t.Errorf("temp_unit = %v, want F default", payload["temp_unit"])
	}
}

func TestSetLocationRejectsShortNames(t *testing.T) {
	_, _, router := newTestServer(t)
	w, _ := doJSON(t, router, http.MethodPost, "/api/location", `{"location":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMaintenanceDedup(t *testing.T) {
	_, store, router := newTestServer(t)
	ctx := context.Background()

	fetched := time.Now().UTC()
	for i, url := range []string{"https://a.example.com/x", "https://b.example.com/y"} {
		a := &types.Article{
			SourceURL:   url,
			SourceTitle: "Same Headline",
			FetchedAt:   fetched.Add(time.Duration(i) * time.Minute),
			RawContent:  "content",
		}
		if err := store.CreateArticle(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	w, payload := doJSON(t, router, http.MethodPost, "/api/maintenance/dedup", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if payload["deleted"].(float64) != 1 {
		t.Errorf("deleted = %v, want 1", payload["deleted"])
	}
}

func TestOllamaModelsProxiesConfiguredEndpoint(t *testing.T) {
	_, _, router := newTestServer(t)

	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2"}]}`))
	}))
	defer ollama.Close()

	w, payload := doJSON(t, router, http.MethodGet, "/api/ollama/models?base_url="+ollama.URL, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	models := payload["models"].([]any)
	if len(models) != 1 || models[0] != "llama3.2" {
		t.Errorf("models = %v", models)
	}
}

func TestRunNowAccepted(t *testing.T) {
	_, _, router := newTestServer(t)
	w, payload := doJSON(t, router, http.MethodPost, "/api/run-now", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if payload["status"] != "started" {
		t.Errorf("status field = %v", payload["status"])
	}
}

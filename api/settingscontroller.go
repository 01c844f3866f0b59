package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"localwire/rewrite"
	"localwire/types"
)

// RegisterSettingsRoutes registers runtime configuration endpoints.
func (s *Server) RegisterSettingsRoutes(r *gin.Engine) {
	r.GET("/api/config", s.handleGetConfig)
	r.GET("/api/settings", s.handleGetSettings)
	r.POST("/api/settings", s.handleSetSettings)
	r.POST("/api/location", s.handleSetLocation)
	r.POST("/api/location/auto", s.handleAutoLocation)
	r.GET("/api/ollama/models", s.handleOllamaModels)
}

// handleOllamaModels lists the models the configured Ollama endpoint serves,
// so the settings UI can offer a picker and verify connectivity.
func (s *Server) handleOllamaModels(c *gin.Context) {
	settings, err := s.store.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	baseURL := settings.AIBaseURL
	if q := strings.TrimSpace(c.Query("base_url")); q != "" {
		baseURL = normalizeBaseURL(q)
	}
	if baseURL == "" {
		baseURL = s.cfg.OllamaBaseURL
	}

	provider := rewrite.NewOllamaProvider(baseURL, settings.AIModel)
	models, err := provider.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "base_url": baseURL})
		return
	}
	c.JSON(http.StatusOK, gin.H{"base_url": baseURL, "models": models})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	loc, err := s.store.GetLocation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	timezone := loc.Timezone
	if timezone == "" {
		timezone = s.cfg.Timezone
	}
	c.JSON(http.StatusOK, gin.H{
		"location":     loc.Name,
		"timezone":     timezone,
		"min_articles": s.cfg.MinArticlesPerRun,
		"schedules": gin.H{
			"morning": s.cfg.ScheduleMorning,
			"noon":    s.cfg.ScheduleNoon,
			"evening": s.cfg.ScheduleEvening,
		},
	})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.store.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings.TempUnit == "" {
		settings.TempUnit = "F"
	}
	c.JSON(http.StatusOK, settings)
}

// settingsPatch distinguishes absent fields from empty ones so a POST only
// changes what it names.
type settingsPatch struct {
	AIBaseURL *string `json:"ai_base_url"`
	AIModel   *string `json:"ai_model"`
	TempUnit  *string `json:"temp_unit"`
	WindUnit  *string `json:"wind_unit"`
}

// handleSetSettings merges the patch into the stored settings. A temperature
// or wind unit change triggers a background weather refresh so the stored
// forecast matches the new units.
func (s *Server) handleSetSettings(c *gin.Context) {
	var patch settingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	unitChanged := false
	if patch.AIBaseURL != nil {
		settings.AIBaseURL = normalizeBaseURL(*patch.AIBaseURL)
	}
	if patch.AIModel != nil {
		settings.AIModel = strings.TrimSpace(*patch.AIModel)
	}
	if patch.TempUnit != nil {
		unit := normalizeTempUnit(*patch.TempUnit)
		unitChanged = unitChanged || unit != settings.TempUnit
		settings.TempUnit = unit
	}
	if patch.WindUnit != nil {
		unit := normalizeWindUnit(*patch.WindUnit)
		unitChanged = unitChanged || unit != settings.WindUnit
		settings.WindUnit = unit
	}

	if err := s.store.SaveSettings(ctx, settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if unitChanged {
		go s.orch.RefreshWeather(context.Background())
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type locationRequest struct {
	Location string `json:"location"`
	Name     string `json:"name"`
}

// handleSetLocation stores a manual location and refreshes the weather for it.
func (s *Server) handleSetLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Location)
	if name == "" {
		name = strings.TrimSpace(req.Name)
	}
	if len(name) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location string required"})
		return
	}

	loc, err := s.resolver.Set(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	go s.orch.RefreshWeather(context.Background())
	c.JSON(http.StatusOK, locationResponse(loc))
}

// handleAutoLocation re-detects the server location and refreshes the weather.
func (s *Server) handleAutoLocation(c *gin.Context) {
	loc, err := s.resolver.AutoDetect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	go s.orch.RefreshWeather(context.Background())
	c.JSON(http.StatusOK, locationResponse(loc))
}

func locationResponse(loc types.LocationConfig) gin.H {
	return gin.H{
		"location":  loc.Name,
		"timezone":  loc.Timezone,
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"source":    loc.Source,
	}
}

func normalizeBaseURL(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), "/")
}

func normalizeTempUnit(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "C" {
		return "C"
	}
	if v == "" {
		return ""
	}
	return "F"
}

func normalizeWindUnit(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "kmh" || v == "km/h" {
		return "kmh"
	}
	if v == "" {
		return ""
	}
	return "mph"
}

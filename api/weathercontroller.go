package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"localwire/types"
)

// RegisterWeatherRoutes registers weather endpoints.
func (s *Server) RegisterWeatherRoutes(r *gin.Engine) {
	r.GET("/api/weather", s.handleGetWeather)
	r.POST("/api/weather/refresh", s.handleRefreshWeather)
}

// handleGetWeather returns the latest report with the stored location. When
// the narrative is a fallback or still pending, a report_note explains what
// the caller is looking at.
func (s *Server) handleGetWeather(c *gin.Context) {
	ctx := c.Request.Context()
	wr, err := s.store.LatestWeatherReport(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	loc, err := s.store.GetLocation(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := gin.H{
		"location":  loc.Name,
		"timezone":  loc.Timezone,
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"report":    nil,
		"forecast":  gin.H{},
	}
	if wr != nil {
		var forecast map[string]any
		if wr.ForecastJSON != "" {
			if err := json.Unmarshal([]byte(wr.ForecastJSON), &forecast); err != nil {
				forecast = map[string]any{}
			}
		}
		result["forecast"] = forecast
		result["updated_at"] = wr.FetchedAt.UTC().Format(time.RFC3339)
		if wr.AIReport != "" {
			result["report"] = wr.AIReport
		}
	}
	switch {
	case wr != nil && strings.HasPrefix(wr.AIModel, types.FallbackModelPrefix):
		result["report_note"] = "AI report unavailable — showing raw forecast data."
	case wr == nil || wr.AIReport == "":
		result["report_note"] = "AI report pending…"
	}
	c.JSON(http.StatusOK, result)
}

// handleRefreshWeather queues a forecast update in the background.
func (s *Server) handleRefreshWeather(c *gin.Context) {
	go s.orch.RefreshWeather(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

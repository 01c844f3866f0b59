package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterStatusRoutes registers run-state and lifecycle endpoints.
func (s *Server) RegisterStatusRoutes(r *gin.Engine) {
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/status", s.handleStatus)
	r.POST("/api/run-now", s.handleRunNow)
	r.GET("/api/scheduler/next-runs", s.handleNextRuns)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
}

// handleStatus returns the progress snapshot plus upcoming scheduled runs.
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"progress":  s.orch.Tracker().Snapshot(),
		"next_runs": s.sched.NextRuns(),
	})
}

// handleRunNow starts a harvest in the background and returns immediately.
// A run already in flight is not interrupted; the new request is rejected.
func (s *Server) handleRunNow(c *gin.Context) {
	if s.orch.Tracker().Running() {
		c.JSON(http.StatusConflict, gin.H{"status": "busy"})
		return
	}
	go s.orch.RunHarvestOnce(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) handleNextRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"next_runs": s.sched.NextRuns()})
}

package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterMaintenanceRoutes registers on-demand maintenance endpoints.
func (s *Server) RegisterMaintenanceRoutes(r *gin.Engine) {
	g := r.Group("/api/maintenance")
	g.POST("/dedup", s.handleDedup)
	g.POST("/rewrite-missing", s.handleRewriteMissing)
}

// handleDedup runs the duplicate merger synchronously and reports counts.
func (s *Server) handleDedup(c *gin.Context) {
	res, err := s.orch.PurgeDuplicates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleRewriteMissing queues a rewrite pass over articles with no AI text
// or a fallback rewrite. limit <= 0 processes everything eligible.
func (s *Server) handleRewriteMissing(c *gin.Context) {
	limit := queryInt(c, "limit", 0)
	go func() {
		if _, err := s.orch.RewriteMissing(context.Background(), limit); err != nil {
			log.Printf("api: rewrite-missing failed: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "limit": limit})
}

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"localwire/types"
)

// RegisterArticleRoutes registers article read endpoints.
func (s *Server) RegisterArticleRoutes(r *gin.Engine) {
	r.GET("/api/articles", s.handleListArticles)
	r.GET("/api/articles/:id", s.handleGetArticle)
}

// articleItem is the list-view shape of one article.
type articleItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	SourceURL   string `json:"source_url"`
	ImageURL    string `json:"image_url,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	FetchedAt   string `json:"fetched_at"`
	AIModel     string `json:"ai_model,omitempty"`
	AIBody      string `json:"ai_body,omitempty"`
	RewriteNote string `json:"rewrite_note,omitempty"`
}

func toItem(a *types.Article) articleItem {
	item := articleItem{
		ID:        a.ID,
		Title:     a.SourceTitle,
		Source:    a.SourceName,
		SourceURL: a.SourceURL,
		ImageURL:  a.ImageURL,
		FetchedAt: a.FetchedAt.UTC().Format(time.RFC3339),
		AIModel:   a.AIModel,
		AIBody:    a.AIBody,
	}
	if a.AITitle != "" {
		item.Title = a.AITitle
	}
	if a.PublishedAt != nil {
		item.PublishedAt = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	if strings.HasPrefix(a.AIModel, types.FallbackModelPrefix) {
		item.RewriteNote = "Showing original text (AI unavailable)"
	}
	return item
}

// handleListArticles returns a page of articles, newest first.
func (s *Server) handleListArticles(c *gin.Context) {
	page := clamp(queryInt(c, "page", 1), 1, 1<<30)
	limit := clamp(queryInt(c, "limit", 10), 1, 100)

	total, err := s.store.CountArticles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	articles, err := s.store.ListArticles(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]articleItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, toItem(a))
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"page":  page,
		"limit": limit,
		"total": total,
		"pages": pages,
	})
}

func (s *Server) handleGetArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}
	a, err := s.store.GetArticle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package types

import (
	"strings"
	"time"
)

// FallbackModelPrefix marks AI fields that were filled from source content
// because the AI service never produced a usable result.
const (
	FallbackModelPrefix   = "fallback:"
	FallbackSourceModel   = "fallback:source"
	FallbackForecastModel = "fallback:forecast"
)

// Article is one harvested news item. Raw fields are immutable after creation;
// the AI fields are written once by the rewrite phase.
type Article struct {
	ID          int64      `json:"id"`
	SourceURL   string     `json:"source_url"`
	SourceName  string     `json:"source_name,omitempty"`
	SourceTitle string     `json:"source_title,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Location    string     `json:"location,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`

	RawContent    string     `json:"raw_content,omitempty"`
	AITitle       string     `json:"ai_title,omitempty"`
	AIBody        string     `json:"ai_body,omitempty"`
	AIModel       string     `json:"ai_model,omitempty"`
	AIGeneratedAt *time.Time `json:"ai_generated_at,omitempty"`

	IsPublished bool `json:"is_published"`
}

// HasFallbackBody reports whether the AI body is a copy of the source content.
func (a *Article) HasFallbackBody() bool {
	return strings.HasPrefix(a.AIModel, FallbackModelPrefix)
}

// NeedsRewrite reports whether the rewrite phase should process this article:
// raw content must be present and the AI body either missing or fallback-marked.
func (a *Article) NeedsRewrite() bool {
	if a.RawContent == "" {
		return false
	}
	return a.AIBody == "" || a.HasFallbackBody()
}

// Candidate is an unvalidated article reference produced by the feed gatherer,
// before content extraction.
type Candidate struct {
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	SourceName  string     `json:"source_name,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

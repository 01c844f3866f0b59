package rewrite

import (
	"context"

	"localwire/config"
)

// Result is a structured rewrite of one article.
type Result struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Author string `json:"author"`
}

// Empty reports whether the model produced nothing usable.
func (r *Result) Empty() bool {
	return r == nil || (r.Title == "" && r.Body == "")
}

// Request carries one article rewrite job.
type Request struct {
	Content     string
	SourceTitle string
	Location    string
}

// Provider is a single AI text backend. Implementations never panic; any
// transport or parse failure comes back as an error and the orchestrator's
// bounded retry loop decides what to do next.
type Provider interface {
	// Rewrite transforms raw article text into a publishable article.
	Rewrite(ctx context.Context, req Request) (*Result, error)
	// Summarize writes a short weather narrative from a serialized forecast.
	Summarize(ctx context.Context, forecastJSON, location string) (string, error)
	// Name identifies the model for the ai_model column.
	Name() string
}

const (
	rewriteSystemPrompt = "You are a careful local news editor. Rewrite the article below for a local news site. " +
		"Preserve all facts, quotes, and numbers. Do not add new information. " +
		"Keep a neutral, concise, journalistic tone. Make it about 10-20% shorter but retain substance."

	weatherSystemPrompt = "You are a concise meteorologist. Using the provided forecast JSON, write a short, clear local weather report. " +
		"Include current conditions and a 5-day outlook. Keep it factual and neutral."
)

// Truncate bounds model input; oversized articles and forecast payloads are
// cut rather than rejected.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func rewriteUserPrompt(req Request) string {
	title := req.SourceTitle
	if title == "" {
		title = "N/A"
	}
	return "Location: " + req.Location + "\n" +
		"Original Title: " + title + "\n\n" +
		"Article Content to Rewrite:\n" + Truncate(req.Content, config.MaxRewriteInput) + "\n\n" +
		"Output strict JSON with keys: title (string), body (string), author (string)."
}

func weatherUserPrompt(forecastJSON, location string) string {
	return "Location: " + location + "\n" +
		"Forecast JSON: " + Truncate(forecastJSON, config.MaxForecastInput) + "\n\n" +
		"Write 2-3 short paragraphs."
}

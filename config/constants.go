package config

import "time"

// Harvest pipeline constants
const (
	// MaxFeedsPerRun caps the number of feed queries consulted in one run
	MaxFeedsPerRun = 12

	// MaxCandidatesPerRun caps the combined candidate list after URL dedup
	MaxCandidatesPerRun = 60

	// MinContentLength is the minimum extracted text length for an article
	// to be persisted; shorter extractions are treated as paywall stubs
	MinContentLength = 120

	// ExtractionFallbackThreshold triggers the <article> tag fallback when
	// the readability pass yields less text than this
	ExtractionFallbackThreshold = 200

	// RewriteAttempts bounds retries against the AI service per item
	RewriteAttempts = 3

	// MaxRewriteInput truncates article text before submission
	MaxRewriteInput = 12000

	// MaxForecastInput truncates the serialized forecast payload
	MaxForecastInput = 8000
)

// Network timeouts
const (
	FeedTimeout     = 6 * time.Second
	RedirectTimeout = 15 * time.Second
	PageTimeout     = 20 * time.Second
	GeocodeTimeout  = 15 * time.Second
	ForecastTimeout = 20 * time.Second
	AITimeout       = 600 * time.Second
)

// UserAgent is sent on feed and page fetches; some local outlets reject
// default Go client UAs.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

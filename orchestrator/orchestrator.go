package orchestrator

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"localwire/archive"
	"localwire/config"
	"localwire/dedup"
	"localwire/events"
	"localwire/progress"
	"localwire/rewrite"
	"localwire/types"
)

const maxAITitleLen = 500

// Store is the persistence surface the orchestrator drives.
type Store interface {
	dedup.ArticleStore
	GetArticle(ctx context.Context, id int64) (*types.Article, error)
	ListRewriteEligible(ctx context.Context, limit int) ([]*types.Article, error)
	UpdateArticleAI(ctx context.Context, id int64, title, body, model string, generatedAt time.Time) error
	GetSettings(ctx context.Context) (types.Settings, error)
	AttachWeatherNarrative(ctx context.Context, id int64, report, model string, generatedAt time.Time) error
}

// Fetcher is the fetch phase: gather, extract, persist new raw articles.
type Fetcher interface {
	FetchNewArticles(ctx context.Context, minCount int) ([]*types.Article, error)
}

// LocationSource supplies the resolved location for rewrites and weather.
type LocationSource interface {
	Resolve(ctx context.Context) (types.LocationConfig, error)
}

// WeatherUpdater fetches a forecast and persists a report row.
type WeatherUpdater interface {
	Update(ctx context.Context, loc types.LocationConfig, settings types.Settings) (*types.WeatherReport, error)
}

// ProviderFactory builds an AI provider honoring runtime settings overrides.
type ProviderFactory func(settings types.Settings) rewrite.Provider

// Orchestrator drives one harvest cycle end to end: fetch, rewrite, dedup,
// weather. The rewrite mutex serializes AI work so a scheduled run and a
// manual rewrite never touch the same article in overlapping windows.
type Orchestrator struct {
	store       Store
	fetcher     Fetcher
	location    LocationSource
	weather     WeatherUpdater
	providerFor ProviderFactory
	tracker     *progress.Tracker
	publisher   *events.Publisher
	archiver    *archive.Archiver

	minArticles int
	rewriteMu   sync.Mutex
}

func New(store Store, fetcher Fetcher, location LocationSource, weather WeatherUpdater, providerFor ProviderFactory, tracker *progress.Tracker, publisher *events.Publisher, archiver *archive.Archiver, minArticles int) *Orchestrator {
	return &Orchestrator{
		store:       store,
		fetcher:     fetcher,
		location:    location,
		weather:     weather,
		providerFor: providerFor,
		tracker:     tracker,
		publisher:   publisher,
		archiver:    archiver,
		minArticles: minArticles,
	}
}

// Tracker exposes the shared progress handle for the API layer.
func (o *Orchestrator) Tracker() *progress.Tracker { return o.tracker }

// RunHarvestOnce executes a full harvest cycle. Each phase degrades rather
// than aborting the run: a failed fetch still runs weather, a failed dedup is
// logged, and rewrite failures fall back to the source text.
func (o *Orchestrator) RunHarvestOnce(ctx context.Context) {
	o.tracker.Start()
	runID := o.tracker.Snapshot().RunID
	o.publisher.RunStarted(runID)
	log.Printf("orchestrator: harvest %s started (min %d articles)", runID, o.minArticles)

	var summary events.RunSummary
	var runErr string

	o.tracker.Phase(progress.PhaseFetch, "Fetching news sources")
	created, err := o.fetcher.FetchNewArticles(ctx, o.minArticles)
	if err != nil {
		log.Printf("orchestrator: fetch phase failed: %v", err)
		runErr = err.Error()
	}
	summary.Created = len(created)
	for _, a := range created {
		o.publisher.ArticleCreated(runID, a)
	}

	settings, err := o.store.GetSettings(ctx)
	if err != nil {
		log.Printf("orchestrator: load settings: %v", err)
	}
	provider := o.providerFor(settings)

	o.tracker.Phase(progress.PhaseRewrite, "Rewriting articles")
	o.tracker.SetRewriteTotal(len(created))
	o.rewriteMu.Lock()
	rewritten, fallbacks := o.rewriteAndStore(ctx, created, provider)
	o.rewriteMu.Unlock()
	summary.Rewritten = rewritten
	summary.Fallbacks = fallbacks

	// Post-run dedup runs unconditionally to collapse lookalikes.
	if res, err := dedup.Purge(ctx, o.store); err != nil {
		log.Printf("orchestrator: post-run dedup failed: %v", err)
	} else {
		summary.Deduped = res.Deleted
	}

	o.updateWeather(ctx, settings, provider)

	summary.Error = runErr
	o.publisher.RunCompleted(runID, summary)
	log.Printf("orchestrator: harvest %s complete (created=%d rewritten=%d fallbacks=%d deduped=%d)",
		runID, summary.Created, summary.Rewritten, summary.Fallbacks, summary.Deduped)
	o.tracker.Finish(runErr)
}

// RewriteMissing reprocesses articles with no AI text or a fallback rewrite,
// newest first, sharing the rewrite mutex with scheduled runs. limit <= 0
// means no limit.
func (o *Orchestrator) RewriteMissing(ctx context.Context, limit int) (int, error) {
	settings, err := o.store.GetSettings(ctx)
	if err != nil {
		log.Printf("orchestrator: load settings: %v", err)
	}
	provider := o.providerFor(settings)

	// List under the mutex so an invocation overlapping a scheduled run sees
	// the other holder's committed AI fields instead of a stale candidate set.
	o.rewriteMu.Lock()
	defer o.rewriteMu.Unlock()

	articles, err := o.store.ListRewriteEligible(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list rewrite candidates: %w", err)
	}

	o.tracker.Phase(progress.PhaseRewrite, "Rewriting missing/fallback articles")
	o.tracker.SetRewriteTotal(len(articles))

	rewritten, _ := o.rewriteAndStore(ctx, articles, provider)
	o.tracker.Finish("")
	return rewritten, nil
}

// RefreshWeather re-runs the weather phases outside a harvest, for manual
// refreshes and unit or location changes.
func (o *Orchestrator) RefreshWeather(ctx context.Context) {
	settings, err := o.store.GetSettings(ctx)
	if err != nil {
		log.Printf("orchestrator: load settings: %v", err)
	}
	o.updateWeather(ctx, settings, o.providerFor(settings))
}

// PurgeDuplicates runs the dedup merger on demand.
func (o *Orchestrator) PurgeDuplicates(ctx context.Context) (dedup.Result, error) {
	return dedup.Purge(ctx, o.store)
}

// rewriteAndStore processes each article with a bounded retry loop. Success
// stores the model output; exhaustion copies the raw text under the fallback
// sentinel so every processed article ends up with a body either way. Caller
// holds the rewrite mutex.
func (o *Orchestrator) rewriteAndStore(ctx context.Context, articles []*types.Article, provider rewrite.Provider) (rewritten, fallbacks int) {
	location := o.locationName(ctx)
	total := len(articles)

	for i, art := range articles {
		// Reload so eligibility reflects writes committed by a previous
		// mutex holder, not the caller's pre-lock snapshot. A load failure
		// means the row was deleted (dedup) or the store is down; skip.
		fresh, err := o.store.GetArticle(ctx, art.ID)
		if err != nil {
			o.tracker.IncRewrite(1)
			continue
		}
		art = fresh
		if !art.NeedsRewrite() {
			o.tracker.IncRewrite(1)
			continue
		}
		o.tracker.SetCurrent(art.ID, art.SourceTitle, art.SourceURL)
		o.tracker.Phase(progress.PhaseRewrite, fmt.Sprintf("Rewriting (%d/%d): %s", i+1, total, itemLabel(art)))

		loc := art.Location
		if loc == "" {
			loc = location
		}

		var res *rewrite.Result
		for attempt := 0; attempt < config.RewriteAttempts; attempt++ {
			r, err := provider.Rewrite(ctx, rewrite.Request{
				Content:     art.RawContent,
				SourceTitle: art.SourceTitle,
				Location:    loc,
			})
			if err != nil {
				log.Printf("orchestrator: rewrite attempt %d/%d for article %d failed: %v",
					attempt+1, config.RewriteAttempts, art.ID, err)
				continue
			}
			if !r.Empty() {
				res = r
				break
			}
		}

		var title, body, model string
		if res != nil {
			title = strings.TrimSpace(res.Title)
			if title == "" {
				title = strings.TrimSpace(art.SourceTitle)
			}
			body = strings.TrimSpace(res.Body)
			model = provider.Name()
		} else {
			title = strings.TrimSpace(art.SourceTitle)
			body = strings.TrimSpace(art.RawContent)
			model = types.FallbackSourceModel
		}
		if len(title) > maxAITitleLen {
			title = title[:maxAITitleLen]
		}

		now := time.Now().UTC()
		if err := o.store.UpdateArticleAI(ctx, art.ID, title, body, model, now); err != nil {
			log.Printf("orchestrator: store rewrite for article %d: %v", art.ID, err)
			o.tracker.IncRewrite(1)
			continue
		}
		art.AITitle, art.AIBody, art.AIModel, art.AIGeneratedAt = title, body, model, &now
		if res != nil {
			rewritten++
		} else {
			fallbacks++
		}
		o.archiver.SaveArticle(ctx, art)
		o.tracker.IncRewrite(1)
	}
	return rewritten, fallbacks
}

// updateWeather fetches a fresh forecast and attaches an AI narrative with
// the same bounded retry as article rewrites. A forecast failure skips the
// narrative step; a narrative failure stores the fallback text.
func (o *Orchestrator) updateWeather(ctx context.Context, settings types.Settings, provider rewrite.Provider) {
	loc, err := o.location.Resolve(ctx)
	if err != nil {
		log.Printf("orchestrator: resolve location for weather: %v", err)
		return
	}

	o.tracker.Phase(progress.PhaseWeatherFetch, "Updating weather forecast")
	wr, err := o.weather.Update(ctx, loc, settings)
	if err != nil {
		log.Printf("orchestrator: weather update failed: %v", err)
		return
	}

	o.tracker.Phase(progress.PhaseWeatherGenerate, "Generating weather report")
	var narrative string
	for attempt := 0; attempt < config.RewriteAttempts; attempt++ {
		text, err := provider.Summarize(ctx, wr.ForecastJSON, loc.Name)
		if err != nil {
			log.Printf("orchestrator: weather narrative attempt %d/%d failed: %v",
				attempt+1, config.RewriteAttempts, err)
			continue
		}
		if text != "" {
			narrative = text
			break
		}
	}

	now := time.Now().UTC()
	if narrative != "" {
		if err := o.store.AttachWeatherNarrative(ctx, wr.ID, narrative, provider.Name(), now); err != nil {
			log.Printf("orchestrator: attach weather narrative: %v", err)
		}
	} else {
		if err := o.store.AttachWeatherNarrative(ctx, wr.ID, types.FallbackWeatherNarrative, types.FallbackForecastModel, now); err != nil {
			log.Printf("orchestrator: attach fallback narrative: %v", err)
		}
	}
	o.archiver.SaveWeatherReport(ctx, wr)
}

func (o *Orchestrator) locationName(ctx context.Context) string {
	loc, err := o.location.Resolve(ctx)
	if err != nil {
		return ""
	}
	return loc.Name
}

func itemLabel(a *types.Article) string {
	label := strings.TrimSpace(a.SourceTitle)
	if label == "" {
		if u, err := url.Parse(a.SourceURL); err == nil && u.Host != "" {
			label = u.Host
		} else {
			label = "article"
		}
	}
	if len(label) > 80 {
		label = label[:80] + "…"
	}
	return label
}

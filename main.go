package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"localwire/api"
	"localwire/archive"
	"localwire/config"
	"localwire/events"
	"localwire/geo"
	"localwire/orchestrator"
	"localwire/progress"
	"localwire/rewrite"
	"localwire/rssfeeds"
	"localwire/scheduler"
	"localwire/storage"
	"localwire/types"
	"localwire/weather"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database %s: %v", cfg.DBPath, err)
	}
	defer store.Close()

	resolver := geo.NewResolver(store, cfg)
	loc, err := resolver.Resolve(ctx)
	if err != nil {
		log.Fatalf("resolve location: %v", err)
	}
	log.Printf("Serving local news for %s (tz %s, source %s)", loc.Name, loc.Timezone, loc.Source)

	tracker := progress.NewTracker()
	seen := rssfeeds.NewSeenCache(cfg.RedisAddr, cfg.RedisPassword)
	gatherer := rssfeeds.NewGatherer(cfg.ExtraFeedURLs)
	extractor := rssfeeds.NewExtractor()
	fetcher := rssfeeds.NewFetcher(gatherer, extractor, store, resolver, seen, tracker)

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()
	archiver := archive.New(ctx, cfg)

	providerFor := func(set types.Settings) rewrite.Provider {
		if cfg.CohereAPIKey != "" {
			return rewrite.NewCohereProvider(cfg.CohereAPIKey, set.AIModel)
		}
		baseURL := set.AIBaseURL
		if baseURL == "" {
			baseURL = cfg.OllamaBaseURL
		}
		model := set.AIModel
		if model == "" {
			model = cfg.OllamaModel
		}
		return rewrite.NewOllamaProvider(baseURL, model)
	}

	orch := orchestrator.New(store, fetcher, resolver, weather.NewUpdater(store), providerFor,
		tracker, publisher, archiver, cfg.MinArticlesPerRun)

	sched := scheduler.New(loc.Timezone)
	harvest := func() { orch.RunHarvestOnce(context.Background()) }
	for _, job := range []struct{ name, at string }{
		{"harvest_morning", cfg.ScheduleMorning},
		{"harvest_noon", cfg.ScheduleNoon},
		{"harvest_evening", cfg.ScheduleEvening},
	} {
		if err := sched.AddDaily(job.name, job.at, harvest); err != nil {
			log.Fatalf("schedule %s harvest: %v", job.name, err)
		}
	}
	sched.Start()

	// First harvest on a fresh database runs in the background so the API is
	// available immediately.
	if count, err := store.CountArticles(ctx); err == nil && count == 0 {
		log.Println("Empty database, starting first harvest in background")
		go harvest()
	}

	srv := api.NewServer(store, orch, sched, resolver, cfg)
	r := api.NewRouter(srv)

	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

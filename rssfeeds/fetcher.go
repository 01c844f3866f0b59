package rssfeeds

import (
	"context"
	"fmt"
	"log"
	"time"

	"localwire/config"
	"localwire/progress"
	"localwire/types"
)

// ArticleStore is the slice of persistence the fetch phase needs.
type ArticleStore interface {
	ExistingURLSet(ctx context.Context) (map[string]struct{}, error)
	CreateArticle(ctx context.Context, a *types.Article) error
}

// SeedSource supplies location-derived keyword seeds and the location label.
type SeedSource interface {
	Keywords(ctx context.Context) []string
	LocationName(ctx context.Context) string
}

// CandidateSource produces feed candidates for a set of keyword seeds.
type CandidateSource interface {
	Gather(ctx context.Context, seeds []string) []types.Candidate
}

// ContentExtractor pulls readable text and a lead image from a page.
type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (text, imageURL string)
}

// Fetcher runs the fetch phase: gather candidates, skip known URLs, extract
// content, and persist new articles until the minimum count is reached or
// candidates run out.
type Fetcher struct {
	gatherer  CandidateSource
	extractor ContentExtractor
	store     ArticleStore
	seeds     SeedSource
	seen      *SeenCache
	tracker   *progress.Tracker
}

func NewFetcher(gatherer CandidateSource, extractor ContentExtractor, store ArticleStore, seeds SeedSource, seen *SeenCache, tracker *progress.Tracker) *Fetcher {
	return &Fetcher{
		gatherer:  gatherer,
		extractor: extractor,
		store:     store,
		seeds:     seeds,
		seen:      seen,
		tracker:   tracker,
	}
}

// FetchNewArticles persists and returns up to minCount new articles. Raw
// fields are set at creation; AI fields stay empty for the rewrite phase.
func (f *Fetcher) FetchNewArticles(ctx context.Context, minCount int) ([]*types.Article, error) {
	location := f.seeds.LocationName(ctx)

	f.tracker.Phase(progress.PhaseFetch, "Gathering feed candidates")
	candidates := f.gatherer.Gather(ctx, f.seeds.Keywords(ctx))
	f.tracker.Phase(progress.PhaseFetch, fmt.Sprintf("Found %d candidates", len(candidates)))

	existing, err := f.store.ExistingURLSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing urls: %w", err)
	}

	var fresh []types.Candidate
	for _, c := range candidates {
		if _, ok := existing[c.URL]; ok {
			continue
		}
		if f.seen.Contains(ctx, c.URL) {
			continue
		}
		fresh = append(fresh, c)
	}
	log.Printf("fetcher: %d candidates not yet persisted", len(fresh))

	var created []*types.Article
	for i, c := range fresh {
		if len(created) >= minCount {
			break
		}
		f.tracker.Phase(progress.PhaseFetch, fmt.Sprintf("Fetching content %d/%d", i+1, len(fresh)))

		text, imageURL := f.extractor.Extract(ctx, c.URL)
		if len(text) < config.MinContentLength {
			continue
		}

		art := &types.Article{
			SourceURL:   c.URL,
			SourceName:  c.SourceName,
			SourceTitle: c.Title,
			ImageURL:    imageURL,
			Location:    location,
			PublishedAt: c.PublishedAt,
			FetchedAt:   time.Now().UTC(),
			RawContent:  text,
			IsPublished: true,
		}
		if err := f.store.CreateArticle(ctx, art); err != nil {
			log.Printf("fetcher: persist failed for %s: %v", c.URL, err)
			continue
		}
		f.seen.Add(ctx, c.URL)
		created = append(created, art)
	}
	log.Printf("fetcher: created %d articles", len(created))
	return created, nil
}

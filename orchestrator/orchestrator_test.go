package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"localwire/progress"
	"localwire/rewrite"
	"localwire/storage"
	"localwire/types"
)

// scriptedProvider returns the scripted outcomes in order, then repeats the
// last one. A nil entry means an error.
type scriptedProvider struct {
	mu       sync.Mutex
	script   []*rewrite.Result
	calls    int
	rewrites int
	inFlight int32
	maxSeen  int32
	block    time.Duration
}

func (p *scriptedProvider) Rewrite(ctx context.Context, req rewrite.Request) (*rewrite.Result, error) {
	cur := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&p.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&p.maxSeen, seen, cur) {
			break
		}
	}
	if p.block > 0 {
		time.Sleep(p.block)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rewrites++
	idx := p.calls
	p.calls++
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	if p.script[idx] == nil {
		return nil, fmt.Errorf("scripted failure %d", idx)
	}
	return p.script[idx], nil
}

func (p *scriptedProvider) Summarize(ctx context.Context, forecastJSON, location string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	p.calls++
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	if p.script[idx] == nil {
		return "", fmt.Errorf("scripted failure %d", idx)
	}
	return p.script[idx].Body, nil
}

func (p *scriptedProvider) Name() string { return "test-model" }

type stubFetcher struct {
	articles []*types.Article
}

func (f *stubFetcher) FetchNewArticles(ctx context.Context, minCount int) ([]*types.Article, error) {
	return f.articles, nil
}

type stubLocation struct{}

func (stubLocation) Resolve(ctx context.Context) (types.LocationConfig, error) {
	lat, lon := 42.81, -73.94
	return types.LocationConfig{Name: "Schenectady, NY", Latitude: &lat, Longitude: &lon, Timezone: "America/New_York"}, nil
}

type stubWeather struct {
	store *storage.Store
	fail  bool
}

func (w *stubWeather) Update(ctx context.Context, loc types.LocationConfig, settings types.Settings) (*types.WeatherReport, error) {
	if w.fail {
		return nil, fmt.Errorf("forecast service down")
	}
	wr := &types.WeatherReport{
		Location:     loc.Name,
		FetchedAt:    time.Now().UTC(),
		ForecastJSON: `{"current_weather":{"temperature":70}}`,
	}
	if err := w.store.CreateWeatherReport(ctx, wr); err != nil {
		return nil, err
	}
	return wr, nil
}

func seedArticle(t *testing.T, store *storage.Store, url, title string) *types.Article {
	t.Helper()
	a := &types.Article{
		SourceURL:   url,
		SourceTitle: title,
		Location:    "Schenectady, NY",
		FetchedAt:   time.Now().UTC(),
		RawContent:  strings.Repeat("City council met on Tuesday to discuss the budget. ", 5),
		IsPublished: true,
	}
	if err := store.CreateArticle(context.Background(), a); err != nil {
		t.Fatalf("seed article: %v", err)
	}
	return a
}

func newTestOrchestrator(t *testing.T, store *storage.Store, fetcher Fetcher, weather WeatherUpdater, provider rewrite.Provider) *Orchestrator {
	t.Helper()
	factory := func(types.Settings) rewrite.Provider { return provider }
	return New(store, fetcher, stubLocation{}, weather, factory, progress.NewTracker(), nil, nil, 10)
}

func TestRewriteSucceedsOnThirdAttempt(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	art := seedArticle(t, store, "https://example.com/budget", "Budget Vote")
	provider := &scriptedProvider{script: []*rewrite.Result{
		nil,
		nil,
		{Title: "Council Passes Budget", Body: "The council passed the budget."},
	}}

	o := newTestOrchestrator(t, store, &stubFetcher{}, &stubWeather{store: store}, provider)
	n, err := o.RewriteMissing(ctx, 0)
	if err != nil {
		t.Fatalf("RewriteMissing: %v", err)
	}
	if n != 1 {
		t.Fatalf("rewritten = %d, want 1", n)
	}

	got, err := store.GetArticle(ctx, art.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AIModel != "test-model" {
		t.Errorf("ai_model = %q, want test-model", got.AIModel)
	}
	if got.AIBody != "The council passed the budget." {
		t.Errorf("ai_body = %q", got.AIBody)
	}
	if got.HasFallbackBody() {
		t.Error("article should not carry the fallback sentinel")
	}
}

func TestRewriteExhaustionFallsBackToSource(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	art := seedArticle(t, store, "https://example.com/fire", "House Fire Downtown")
	provider := &scriptedProvider{script: []*rewrite.Result{nil}}

	o := newTestOrchestrator(t, store, &stubFetcher{}, &stubWeather{store: store}, provider)
	if _, err := o.RewriteMissing(ctx, 0); err != nil {
		t.Fatalf("RewriteMissing: %v", err)
	}

	got, err := store.GetArticle(ctx, art.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AIModel != types.FallbackSourceModel {
		t.Errorf("ai_model = %q, want %q", got.AIModel, types.FallbackSourceModel)
	}
	if got.AIBody != strings.TrimSpace(art.RawContent) {
		t.Error("fallback body should copy the raw content")
	}
	if got.AITitle != "House Fire Downtown" {
		t.Errorf("fallback title = %q", got.AITitle)
	}
	if !got.NeedsRewrite() {
		t.Error("fallback article stays eligible for a later rewrite pass")
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3 bounded attempts", provider.calls)
	}
}

func TestRunHarvestOnceFullCycle(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a1 := seedArticle(t, store, "https://a.example.com/story", "Town Hall Approves Budget")
	a2 := seedArticle(t, store, "https://b.example.com/story", "TOWN HALL APPROVES BUDGET!!")
	provider := &scriptedProvider{script: []*rewrite.Result{
		{Title: "Budget Approved", Body: "The town hall approved the budget."},
	}}

	o := newTestOrchestrator(t, store, &stubFetcher{articles: []*types.Article{a1, a2}}, &stubWeather{store: store}, provider)
	o.RunHarvestOnce(ctx)

	snap := o.Tracker().Snapshot()
	if snap.Running {
		t.Error("tracker still running after the run finished")
	}
	if snap.Error != "" {
		t.Errorf("unexpected run error %q", snap.Error)
	}

	count, err := store.CountArticles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("post-run dedup left %d articles, want 1", count)
	}

	wr, err := store.LatestWeatherReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if wr == nil {
		t.Fatal("no weather report persisted")
	}
	if wr.AIReport == "" || wr.AIModel != "test-model" {
		t.Errorf("weather narrative not attached: %+v", wr)
	}
}

func TestWeatherNarrativeFallback(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	provider := &scriptedProvider{script: []*rewrite.Result{nil}}
	o := newTestOrchestrator(t, store, &stubFetcher{}, &stubWeather{store: store}, provider)
	o.RunHarvestOnce(ctx)

	wr, err := store.LatestWeatherReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if wr == nil {
		t.Fatal("no weather report persisted")
	}
	if wr.AIReport != types.FallbackWeatherNarrative {
		t.Errorf("ai_report = %q, want fallback narrative", wr.AIReport)
	}
	if wr.AIModel != types.FallbackForecastModel {
		t.Errorf("ai_model = %q, want %q", wr.AIModel, types.FallbackForecastModel)
	}
}

func TestWeatherFetchFailureSkipsNarrative(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	provider := &scriptedProvider{script: []*rewrite.Result{{Body: "sunny"}}}
	o := newTestOrchestrator(t, store, &stubFetcher{}, &stubWeather{store: store, fail: true}, provider)
	o.RunHarvestOnce(ctx)

	wr, err := store.LatestWeatherReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if wr != nil {
		t.Errorf("no report should exist when the forecast fetch fails, got %+v", wr)
	}
}

func TestRewritePhasesAreMutuallyExclusive(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for i := 0; i < 4; i++ {
		seedArticle(t, store, fmt.Sprintf("https://example.com/story-%d", i), fmt.Sprintf("Story %d", i))
	}
	provider := &scriptedProvider{
		script: []*rewrite.Result{{Title: "T", Body: "B"}},
		block:  10 * time.Millisecond,
	}
	o := newTestOrchestrator(t, store, &stubFetcher{}, &stubWeather{store: store}, provider)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.RewriteMissing(ctx, 0); err != nil {
				t.Errorf("RewriteMissing: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak := atomic.LoadInt32(&provider.maxSeen); peak > 1 {
		t.Errorf("observed %d concurrent rewrites, want at most 1", peak)
	}
}

func TestOverlappingRewritePassesProcessEachArticleOnce(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	seedArticle(t, store, "https://example.com/parade", "Parade Route Announced")
	provider := &scriptedProvider{
		script: []*rewrite.Result{{Title: "Parade Route Set", Body: "The parade route is set."}},
		block:  10 * time.Millisecond,
	}
	o := newTestOrchestrator(t, store, &stubFetcher{}, &stubWeather{store: store}, provider)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.RewriteMissing(ctx, 0); err != nil {
				t.Errorf("RewriteMissing: %v", err)
			}
		}()
	}
	wg.Wait()

	if provider.rewrites != 1 {
		t.Errorf("article rewritten %d times across overlapping passes, want 1", provider.rewrites)
	}
}

func TestHarvestSkipsArticlesRewrittenSinceFetch(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	// Stale pointer: its AI fields stay empty after the store is updated.
	art := seedArticle(t, store, "https://example.com/bridge", "Bridge Reopens")
	provider := &scriptedProvider{script: []*rewrite.Result{
		{Title: "Bridge Back Open", Body: "The bridge reopened to traffic."},
	}}

	o := newTestOrchestrator(t, store, &stubFetcher{articles: []*types.Article{art}}, &stubWeather{store: store}, provider)
	if _, err := o.RewriteMissing(ctx, 0); err != nil {
		t.Fatalf("RewriteMissing: %v", err)
	}
	if provider.rewrites != 1 {
		t.Fatalf("provider.rewrites = %d after first pass, want 1", provider.rewrites)
	}

	o.RunHarvestOnce(ctx)

	if provider.rewrites != 1 {
		t.Errorf("harvest re-rewrote an already-processed article (%d calls, want 1)", provider.rewrites)
	}
}

func TestRewriteMissingClearsProgress(t *testing.T) {
	ctx := context.Background()
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	seedArticle(t, store, "https://example.com/fair", "County Fair Opens")
	provider := &scriptedProvider{script: []*rewrite.Result{
		{Title: "Fair Opens", Body: "The county fair opened."},
	}}
	o := newTestOrchestrator(t, store, &stubFetcher{}, &stubWeather{store: store}, provider)
	if _, err := o.RewriteMissing(ctx, 0); err != nil {
		t.Fatalf("RewriteMissing: %v", err)
	}

	snap := o.Tracker().Snapshot()
	if snap.Running {
		t.Error("tracker still running after the rewrite pass")
	}
	if snap.CurrentID != 0 || snap.CurrentTitle != "" || snap.CurrentURL != "" {
		t.Errorf("current-item fields not cleared: %+v", snap)
	}
}

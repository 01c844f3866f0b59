package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"localwire/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleArticle(url string) *types.Article {
	return &types.Article{
		SourceURL:   url,
		SourceTitle: "Some Story",
		SourceName:  "paper.example.com",
		Location:    "Springfield, OH",
		FetchedAt:   time.Now().UTC(),
		RawContent:  "raw body of the story with enough words to matter",
		IsPublished: true,
	}
}

func TestCreateArticleUniqueURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleArticle("https://paper.example.com/story")
	require.NoError(t, s.CreateArticle(ctx, a))
	require.NotZero(t, a.ID)

	dup := sampleArticle("https://paper.example.com/story")
	err := s.CreateArticle(ctx, dup)
	require.ErrorIs(t, err, ErrDuplicateURL)

	n, err := s.CountArticles(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestExistingURLSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateArticle(ctx, sampleArticle("https://a.example.com/1")))
	require.NoError(t, s.CreateArticle(ctx, sampleArticle("https://a.example.com/2")))

	set, err := s.ExistingURLSet(ctx)
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Contains(t, set, "https://a.example.com/1")
}

func TestListRewriteEligible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Eligible: no AI body yet
	pending := sampleArticle("https://a.example.com/pending")
	require.NoError(t, s.CreateArticle(ctx, pending))

	// Eligible: fallback-marked body
	fallback := sampleArticle("https://a.example.com/fallback")
	fallback.AIBody = fallback.RawContent
	fallback.AIModel = types.FallbackSourceModel
	require.NoError(t, s.CreateArticle(ctx, fallback))

	// Not eligible: real AI body
	done := sampleArticle("https://a.example.com/done")
	done.AIBody = "rewritten text"
	done.AIModel = "llama3.2"
	require.NoError(t, s.CreateArticle(ctx, done))

	// Not eligible: no raw content
	empty := sampleArticle("https://a.example.com/empty")
	empty.RawContent = ""
	require.NoError(t, s.CreateArticle(ctx, empty))

	got, err := s.ListRewriteEligible(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	urls := []string{got[0].SourceURL, got[1].SourceURL}
	require.ElementsMatch(t, urls,
		[]string{"https://a.example.com/pending", "https://a.example.com/fallback"})

	got, err = s.ListRewriteEligible(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestUpdateArticleAIRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleArticle("https://a.example.com/1")
	require.NoError(t, s.CreateArticle(ctx, a))

	gen := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateArticleAI(ctx, a.ID, "New Title", "New Body", "llama3.2", gen))

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "New Title", got.AITitle)
	require.Equal(t, "New Body", got.AIBody)
	require.Equal(t, "llama3.2", got.AIModel)
	require.NotNil(t, got.AIGeneratedAt)
	require.False(t, got.NeedsRewrite())
}

func TestDeleteArticlesByIDSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, u := range []string{"https://a.example.com/1", "https://a.example.com/2", "https://a.example.com/3"} {
		a := sampleArticle(u)
		require.NoError(t, s.CreateArticle(ctx, a))
		ids = append(ids, a.ID)
	}

	require.NoError(t, s.DeleteArticles(ctx, ids[:2]))
	n, err := s.CountArticles(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.DeleteArticles(ctx, nil)) // no-op
}

func TestWeatherReportAppendAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	latest, err := s.LatestWeatherReport(ctx)
	require.NoError(t, err)
	require.Nil(t, latest)

	lat, lon := 42.81, -73.94
	older := &types.WeatherReport{
		Location:     "Springfield, OH",
		Latitude:     &lat,
		Longitude:    &lon,
		FetchedAt:    time.Now().UTC().Add(-time.Hour),
		ForecastJSON: `{"current_weather":{"temperature":61}}`,
	}
	require.NoError(t, s.CreateWeatherReport(ctx, older))

	newer := &types.WeatherReport{
		Location:     "Springfield, OH",
		FetchedAt:    time.Now().UTC(),
		ForecastJSON: `{"current_weather":{"temperature":64}}`,
	}
	require.NoError(t, s.CreateWeatherReport(ctx, newer))

	latest, err = s.LatestWeatherReport(ctx)
	require.NoError(t, err)
	require.Equal(t, newer.ID, latest.ID)

	gen := time.Now().UTC()
	require.NoError(t, s.AttachWeatherNarrative(ctx, newer.ID, "Mild and dry.", "llama3.2", gen))
	latest, err = s.LatestWeatherReport(ctx)
	require.NoError(t, err)
	require.Equal(t, "Mild and dry.", latest.AIReport)
	require.Equal(t, "llama3.2", latest.AIModel)
}

func TestSettingsAndLocationUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	set, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.Empty(t, set.AIModel)

	require.NoError(t, s.SaveSettings(ctx, types.Settings{
		AIBaseURL: "http://ollama:11434", AIModel: "llama3.2", TempUnit: "F", WindUnit: "mph",
	}))
	require.NoError(t, s.SaveSettings(ctx, types.Settings{
		AIBaseURL: "http://ollama:11434", AIModel: "llama3.3", TempUnit: "F", WindUnit: "mph",
	}))

	set, err = s.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "llama3.3", set.AIModel)
	require.NotNil(t, set.UpdatedAt)

	lat, lon := 42.81, -73.94
	require.NoError(t, s.SaveLocation(ctx, types.LocationConfig{
		Name: "Springfield, OH", Latitude: &lat, Longitude: &lon,
		Timezone: "America/New_York", Source: "env+geocode",
	}))
	cfg, err := s.GetLocation(ctx)
	require.NoError(t, err)
	require.Equal(t, "Springfield, OH", cfg.Name)
	require.InDelta(t, 42.81, *cfg.Latitude, 0.001)
}

package rssfeeds

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"localwire/config"
	"localwire/types"
)

// Gatherer queries the configured feed backends and yields a bounded,
// URL-deduplicated candidate list. Individual feed failures are logged and
// skipped; the run continues with whatever feeds succeeded.
type Gatherer struct {
	feedClient     *http.Client
	redirectClient *http.Client
	parser         *gofeed.Parser
	extraFeeds     []string
}

func NewGatherer(extraFeeds []string) *Gatherer {
	return &Gatherer{
		feedClient:     &http.Client{Timeout: config.FeedTimeout},
		redirectClient: &http.Client{Timeout: config.RedirectTimeout},
		parser:         gofeed.NewParser(),
		extraFeeds:     extraFeeds,
	}
}

// Gather fetches up to MaxFeedsPerRun feeds built from the location seeds,
// resolves publisher links, and returns at most MaxCandidatesPerRun unique
// candidates, first occurrence winning.
func (g *Gatherer) Gather(ctx context.Context, seeds []string) []types.Candidate {
	feeds := append(BuildBingNewsFeeds(seeds), BuildGoogleNewsFeeds(seeds)...)
	feeds = append(feeds, g.extraFeeds...)
	log.Printf("gatherer: consulting %d feeds", len(feeds))

	var items []types.Candidate
	consulted := 0
	for _, feedURL := range feeds {
		if consulted >= config.MaxFeedsPerRun {
			break
		}
		consulted++

		feed, err := g.fetchFeed(ctx, feedURL)
		if err != nil {
			log.Printf("gatherer: feed failed %s: %v", feedURL, err)
			continue
		}
		log.Printf("gatherer: feed ok %s (%d entries)", feedURL, len(feed.Items))

		for _, item := range feed.Items {
			u := NormalizeURL(g.resolveEntryURL(ctx, item))
			if u == "" {
				continue
			}
			items = append(items, types.Candidate{
				URL:         u,
				Title:       strings.TrimSpace(item.Title),
				SourceName:  sourceNameFor(u),
				PublishedAt: publishedTime(item),
			})
		}
	}

	// Deduplicate by normalized URL, keeping the first occurrence
	seen := make(map[string]struct{}, len(items))
	out := make([]types.Candidate, 0, len(items))
	for _, c := range items {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
		if len(out) == config.MaxCandidatesPerRun {
			break
		}
	}
	log.Printf("gatherer: %d unique candidates", len(out))
	return out
}

func (g *Gatherer) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", config.UserAgent)

	resp, err := g.feedClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &FeedStatusError{URL: feedURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return g.parser.ParseString(string(body))
}

// FeedStatusError reports a non-200 feed response.
type FeedStatusError struct {
	URL    string
	Status int
}

func (e *FeedStatusError) Error() string {
	return "feed returned status " + http.StatusText(e.Status) + ": " + e.URL
}

// resolveEntryURL unwraps aggregator redirect and click-tracking links to
// reach the canonical publisher URL.
func (g *Gatherer) resolveEntryURL(ctx context.Context, item *gofeed.Item) string {
	if orig := feedburnerOrigLink(item); orig != "" {
		return orig
	}
	link := item.Link
	if link == "" {
		return ""
	}

	if !strings.Contains(link, "news.google.com") {
		// Bing click-tracking links carry the publisher URL as a query param
		if strings.Contains(link, "bing.com/news/apiclick.aspx") {
			if target := queryParam(link, "url"); target != "" {
				return target
			}
		}
		return link
	}

	// Google redirect: prefer the url param, else follow the redirect chain
	if target := queryParam(link, "url"); target != "" {
		return target
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return link
	}
	req.Header.Set("User-Agent", config.UserAgent)
	resp, err := g.redirectClient.Do(req)
	if err != nil {
		return link
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return link
}

func feedburnerOrigLink(item *gofeed.Item) string {
	ext, ok := item.Extensions["feedburner"]
	if !ok {
		return ""
	}
	for _, key := range []string{"origLink", "origlink"} {
		if vals, ok := ext[key]; ok && len(vals) > 0 && vals[0].Value != "" {
			return vals[0].Value
		}
	}
	return ""
}

func queryParam(raw, key string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}

func publishedTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// sourceNameFor derives a display name from the publisher host.
func sourceNameFor(articleURL string) string {
	u, err := url.Parse(articleURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

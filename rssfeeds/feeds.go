package rssfeeds

import (
	"fmt"
	"net/url"
)

// BuildGoogleNewsFeeds derives Google News RSS search feeds from location
// keyword seeds. Capped to keep the per-run feed count bounded.
func BuildGoogleNewsFeeds(seeds []string) []string {
	if len(seeds) > 6 {
		seeds = seeds[:6]
	}
	suffixes := []string{"", " local news", " breaking", " news"}
	var feeds []string
	for _, q := range seeds {
		for _, s := range suffixes {
			q2 := url.QueryEscape(q + s)
			feeds = append(feeds, fmt.Sprintf(
				"https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en", q2))
		}
		// Geo-local headline section
		feeds = append(feeds, fmt.Sprintf(
			"https://news.google.com/rss/headlines/section/geo/%s?hl=en-US&gl=US&ceid=US:en",
			url.QueryEscape(q)))
	}
	return dedupeStrings(feeds, 10)
}

// BuildBingNewsFeeds derives Bing News RSS feeds from the same seeds. Bing is
// queried first at run time since it throttles less aggressively.
func BuildBingNewsFeeds(seeds []string) []string {
	if len(seeds) > 6 {
		seeds = seeds[:6]
	}
	var feeds []string
	for _, q := range seeds {
		q2 := url.QueryEscape(q + " local news")
		feeds = append(feeds, fmt.Sprintf("https://www.bing.com/news/search?q=%s&format=rss", q2))
	}
	return dedupeStrings(feeds, 6)
}

func dedupeStrings(in []string, limit int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

package dedup

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"localwire/types"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9 ]+`)
)

// NormalizeTitle reduces a headline to a comparison key: lowercase, unified
// dashes and quotes, collapsed whitespace, punctuation stripped. Empty string
// means no usable key.
func NormalizeTitle(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}
	s = strings.NewReplacer("–", "-", "—", "-", "’", "'").Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NormalizeImage reduces an image URL to host+path, lowercased host, query
// and fragment dropped, trailing slash trimmed. Empty string means unusable.
func NormalizeImage(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	path := strings.TrimRight(u.Path, "/")
	if host == "" && path == "" {
		return ""
	}
	return host + path
}

// titleKey prefers the AI headline over the source headline.
func titleKey(a *types.Article) string {
	if k := NormalizeTitle(a.AITitle); k != "" {
		return k
	}
	return NormalizeTitle(a.SourceTitle)
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

// moreUpdated reports whether a should be kept over b. Criteria, highest
// first: non-fallback AI body, any AI body, newest ai_generated_at, newest
// fetched_at, newest published_at, longer raw content, higher id.
func moreUpdated(a, b *types.Article) bool {
	aHasAI := strings.TrimSpace(a.AIBody) != ""
	bHasAI := strings.TrimSpace(b.AIBody) != ""
	aNonFB := aHasAI && !strings.HasPrefix(a.AIModel, types.FallbackModelPrefix)
	bNonFB := bHasAI && !strings.HasPrefix(b.AIModel, types.FallbackModelPrefix)

	if aNonFB != bNonFB {
		return aNonFB
	}
	if aHasAI != bHasAI {
		return aHasAI
	}
	if at, bt := unixOrZero(a.AIGeneratedAt), unixOrZero(b.AIGeneratedAt); at != bt {
		return at > bt
	}
	if at, bt := a.FetchedAt.Unix(), b.FetchedAt.Unix(); at != bt {
		return at > bt
	}
	if at, bt := unixOrZero(a.PublishedAt), unixOrZero(b.PublishedAt); at != bt {
		return at > bt
	}
	if la, lb := len(a.RawContent), len(b.RawContent); la != lb {
		return la > lb
	}
	return a.ID > b.ID
}

// Plan holds the outcome of a duplicate scan: rows to delete and how many
// distinct title groups remain.
type Plan struct {
	DeleteIDs  []int64
	KeptGroups int
}

// BuildPlan scans articles in two passes. The first groups by normalized
// title and keeps the most updated row of each group. The second groups the
// survivors by normalized image URL to catch republished stories with reworded
// headlines; rows without a usable title are excluded there so a shared stock
// image cannot collapse unrelated articles.
func BuildPlan(articles []*types.Article) Plan {
	var plan Plan
	doomed := make(map[int64]bool)

	titleGroups := make(map[string][]*types.Article)
	for _, a := range articles {
		key := titleKey(a)
		if key == "" {
			continue
		}
		titleGroups[key] = append(titleGroups[key], a)
	}
	plan.KeptGroups = len(titleGroups)
	for _, group := range titleGroups {
		for _, a := range losers(group) {
			doomed[a.ID] = true
		}
	}

	imageGroups := make(map[string][]*types.Article)
	for _, a := range articles {
		if doomed[a.ID] {
			continue
		}
		imgKey := NormalizeImage(a.ImageURL)
		if imgKey == "" || titleKey(a) == "" {
			continue
		}
		imageGroups[imgKey] = append(imageGroups[imgKey], a)
	}
	for _, group := range imageGroups {
		for _, a := range losers(group) {
			doomed[a.ID] = true
		}
	}

	plan.DeleteIDs = make([]int64, 0, len(doomed))
	for id := range doomed {
		plan.DeleteIDs = append(plan.DeleteIDs, id)
	}
	sort.Slice(plan.DeleteIDs, func(i, j int) bool { return plan.DeleteIDs[i] < plan.DeleteIDs[j] })
	return plan
}

// losers returns every row of a group except the most updated one.
func losers(group []*types.Article) []*types.Article {
	if len(group) <= 1 {
		return nil
	}
	sorted := make([]*types.Article, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool { return moreUpdated(sorted[i], sorted[j]) })
	return sorted[1:]
}

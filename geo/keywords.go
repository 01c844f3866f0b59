package geo

import (
	"context"
	"strings"
)

// Keywords expands the resolved location into search seeds for the feed
// builders: city/state combinations plus regional aliases for upstate NY.
func (r *Resolver) Keywords(ctx context.Context) []string {
	loc, err := r.Resolve(ctx)
	if err != nil || loc.Name == "" {
		return ExpandKeywords(r.fallback)
	}
	return ExpandKeywords(loc.Name)
}

// LocationName returns the resolved display name, falling back to the
// configured default when resolution fails.
func (r *Resolver) LocationName(ctx context.Context) string {
	loc, err := r.Resolve(ctx)
	if err != nil || loc.Name == "" {
		return r.fallback
	}
	return loc.Name
}

// ExpandKeywords derives search seeds from a "City, State" location name.
func ExpandKeywords(base string) []string {
	base = strings.TrimSpace(base)
	parts := strings.Split(base, ",")
	city := strings.TrimSpace(parts[0])
	state := ""
	if len(parts) > 1 {
		state = strings.TrimSpace(parts[1])
	}

	seeds := []string{base}
	if city != "" {
		seeds = append(seeds, strings.TrimSpace(city+" "+state), city+" County", city+" local news")
	}
	if state != "" {
		seeds = append(seeds, state+" local news")
	}

	sLow := strings.ToLower(state)
	if sLow == "ny" || strings.Contains(sLow, "new york") {
		seeds = append(seeds,
			"Capital Region NY",
			"Albany Schenectady Troy",
			"Upstate New York",
		)
	}

	out := seeds[:0]
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

package rssfeeds

import (
	"net/url"
	"strings"
)

// trackingParams are dropped from every URL before it is used as a dedup key.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "utm_id": {}, "gclid": {}, "fbclid": {}, "mc_cid": {},
	"mc_eid": {}, "msclkid": {}, "igshid": {}, "ref": {}, "ref_src": {},
	"tid": {}, "c": {}, "mkt": {},
}

// NormalizeURL canonicalizes an article URL for use as the uniqueness key:
// lower-cases scheme and host, strips AMP suffixes, drops the fragment and
// tracking query params, and re-encodes the remaining query in sorted order.
// It is idempotent; unparseable input is returned unchanged.
func NormalizeURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	host := strings.ToLower(u.Host)

	path := u.Path
	switch {
	case strings.HasSuffix(path, "/amp/"):
		path = strings.TrimSuffix(path, "/amp/")
	case strings.HasSuffix(path, "/amp"):
		path = strings.TrimSuffix(path, "/amp")
	case strings.HasSuffix(path, ".amp"):
		path = strings.TrimSuffix(path, ".amp")
	}

	kept := url.Values{}
	for key, vals := range u.Query() {
		if _, drop := trackingParams[strings.ToLower(key)]; drop {
			continue
		}
		for _, v := range vals {
			if v == "" {
				continue
			}
			kept.Add(key, v)
		}
	}

	out := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: kept.Encode(), // Encode sorts keys, giving a stable order
	}
	return out.String()
}

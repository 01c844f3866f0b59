package rssfeeds

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"localwire/config"
)

// Extractor fetches a candidate page and pulls out the readable article text
// plus a lead image. All failures collapse to an empty result; the caller
// decides whether the text is long enough to keep.
type Extractor struct {
	client *http.Client
}

func NewExtractor() *Extractor {
	return &Extractor{client: &http.Client{Timeout: config.PageTimeout}}
}

var blankLines = regexp.MustCompile(`\n{2,}`)

// Extract returns the readable text and optional lead-image URL for pageURL.
// It never returns an error to the caller; a failed fetch or parse yields
// ("", "").
func (e *Extractor) Extract(ctx context.Context, pageURL string) (text, imageURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", ""
	}
	req.Header.Set("User-Agent", config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", ""
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", ""
	}
	return ExtractFromHTML(html, pageURL)
}

// ExtractFromHTML runs the extraction pipeline over already-fetched HTML.
// Split out so tests can exercise it without a network.
func ExtractFromHTML(html []byte, pageURL string) (text, imageURL string) {
	parsed, _ := url.Parse(pageURL)

	if article, err := readability.FromReader(bytes.NewReader(html), parsed); err == nil {
		text = cleanupText(article.TextContent)
	}

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if docErr == nil {
		imageURL = leadImage(doc)
		// Readability came up short; a bare <article> tag sometimes holds more
		if len(text) < config.ExtractionFallbackThreshold {
			if alt := cleanupText(doc.Find("article").First().Text()); len(alt) > len(text) {
				text = alt
			}
		}
	}
	return text, imageURL
}

// leadImage reads the standard meta-tag conventions in preference order.
func leadImage(doc *goquery.Document) string {
	for _, prop := range []string{"og:image", "twitter:image", "image"} {
		for _, sel := range []string{
			`meta[property="` + prop + `"]`,
			`meta[name="` + prop + `"]`,
		} {
			if content, ok := doc.Find(sel).First().Attr("content"); ok {
				if content = strings.TrimSpace(content); content != "" {
					return content
				}
			}
		}
	}
	return ""
}

func cleanupText(s string) string {
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

package rewrite

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"localwire/config"
)

// CohereProvider is the hosted alternative to a local Ollama instance,
// selected when COHERE_API_KEY is present.
type CohereProvider struct {
	client *cohereclient.Client
	model  string
}

func NewCohereProvider(apiKey, model string) *CohereProvider {
	if model == "" || strings.HasPrefix(model, "fallback:") {
		model = "command-r-08-2024"
	}
	// Force HTTP/1.1; the Cohere edge intermittently breaks HTTP/2 streams.
	httpClient := &http.Client{
		Timeout: config.AITimeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereProvider{client: client, model: model}
}

func (p *CohereProvider) Name() string { return p.model }

func (p *CohereProvider) Rewrite(ctx context.Context, req Request) (*Result, error) {
	if len(strings.TrimSpace(req.Content)) < 100 {
		return nil, fmt.Errorf("content too short to rewrite")
	}

	text, err := p.chat(ctx, rewriteSystemPrompt, rewriteUserPrompt(req))
	if err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &res); err != nil {
		return nil, fmt.Errorf("model returned malformed json: %w", err)
	}
	return &res, nil
}

func (p *CohereProvider) Summarize(ctx context.Context, forecastJSON, location string) (string, error) {
	text, err := p.chat(ctx, weatherSystemPrompt, weatherUserPrompt(forecastJSON, location))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *CohereProvider) chat(ctx context.Context, preamble, message string) (string, error) {
	temperature := 0.2
	resp, err := p.client.Chat(ctx, &cohere.ChatRequest{
		Message:     message,
		Model:       &p.model,
		Preamble:    &preamble,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return "", fmt.Errorf("cohere returned empty response")
	}
	return resp.Text, nil
}

// extractJSONObject trims any prose the model wraps around the JSON body.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"localwire/config"
)

// OllamaProvider talks to an Ollama-compatible /api/generate endpoint.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: config.AITimeout},
	}
}

func (p *OllamaProvider) Name() string { return p.model }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
	Format  string         `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (p *OllamaProvider) Rewrite(ctx context.Context, req Request) (*Result, error) {
	if len(strings.TrimSpace(req.Content)) < 100 {
		return nil, fmt.Errorf("content too short to rewrite")
	}

	raw, err := p.generate(ctx, generateRequest{
		Model:   p.model,
		Prompt:  "<SYSTEM>" + rewriteSystemPrompt + "</SYSTEM>\n<USER>" + rewriteUserPrompt(req) + "</USER>",
		Stream:  false,
		Options: map[string]any{"temperature": 0.2},
		Format:  "json",
	})
	if err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("model returned malformed json: %w", err)
	}
	return &res, nil
}

func (p *OllamaProvider) Summarize(ctx context.Context, forecastJSON, location string) (string, error) {
	raw, err := p.generate(ctx, generateRequest{
		Model:   p.model,
		Prompt:  "<SYSTEM>" + weatherSystemPrompt + "</SYSTEM>\n<USER>" + weatherUserPrompt(forecastJSON, location) + "</USER>",
		Stream:  false,
		Options: map[string]any{"temperature": 0.2},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// ListModels queries /api/tags, used by the settings API to test connectivity.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 5 * config.FeedTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags returned status %d", resp.StatusCode)
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

func (p *OllamaProvider) generate(ctx context.Context, gen generateRequest) (string, error) {
	body, err := json.Marshal(gen)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<12))
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("ollama returned empty response")
	}
	return out.Response, nil
}

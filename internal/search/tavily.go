package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/factsearch/factsearch/internal/model"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyBackend searches the web through the Tavily API
type TavilyBackend struct {
	apiKey     string
	perQuery   int
	endpoint   string
	httpClient *http.Client
}

// NewTavilyBackend creates a Tavily search backend
func NewTavilyBackend(cfg model.SearchConfig, httpClient *http.Client) *TavilyBackend {
	return &TavilyBackend{
		apiKey:     cfg.APIKey,
		perQuery:   cfg.ResultsPerQuery,
		endpoint:   tavilyEndpoint,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (b *TavilyBackend) Name() string {
	return "tavily"
}

type tavilyResponse struct {
	Results []struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		Content    string `json:"content"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Search runs one query via Tavily. Raw page content, when Tavily
// returns it, becomes the item's full text.
func (b *TavilyBackend) Search(ctx context.Context, query string) ([]model.Evidence, error) {
	payload, err := json.Marshal(map[string]any{
		"query":               query,
		"max_results":         b.perQuery,
		"topic":               "general",
		"include_raw_content": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily search: status %d: %s", resp.StatusCode, body)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse tavily response: %w", err)
	}

	var evidence []model.Evidence
	for _, item := range parsed.Results {
		if item.URL == "" && item.Content == "" {
			continue
		}
		evidence = append(evidence, model.Evidence{
			URL:      item.URL,
			Title:    item.Title,
			Text:     truncate(item.Content, 2000),
			FullText: item.RawContent,
		})
	}

	return capEvidence(evidence, b.perQuery), nil
}

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

const exaEndpoint = "https://api.exa.ai/search"

// ExaBackend searches the web through the Exa neural search API
type ExaBackend struct {
	apiKey     string
	perQuery   int
	endpoint   string
	httpClient *http.Client
}

// NewExaBackend creates an Exa search backend
func NewExaBackend(cfg model.SearchConfig, httpClient *http.Client) *ExaBackend {
	return &ExaBackend{
		apiKey:     cfg.APIKey,
		perQuery:   cfg.ResultsPerQuery,
		endpoint:   exaEndpoint,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (b *ExaBackend) Name() string {
	return "exa"
}

type exaResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"results"`
}

// Search runs one neural query via Exa
func (b *ExaBackend) Search(ctx context.Context, query string) ([]model.Evidence, error) {
	payload, err := json.Marshal(map[string]any{
		"query":      query,
		"numResults": b.perQuery,
		"type":       "neural",
		"contents": map[string]any{
			"text": map[string]any{"maxCharacters": 2000},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exa search: status %d: %s", resp.StatusCode, body)
	}

	var parsed exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse exa response: %w", err)
	}

	var evidence []model.Evidence
	for _, item := range parsed.Results {
		if item.URL == "" && item.Text == "" {
			continue
		}
		evidence = append(evidence, model.Evidence{
			URL:   item.URL,
			Title: item.Title,
			Text:  truncate(item.Text, 2000),
		})
	}

	return capEvidence(evidence, b.perQuery), nil
}

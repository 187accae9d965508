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

const serperEndpoint = "https://google.serper.dev/search"

// SerperBackend searches Google through the Serper API
type SerperBackend struct {
	apiKey     string
	gl, hl     string
	perQuery   int
	opts       string
	endpoint   string
	httpClient *http.Client
}

// NewSerperBackend creates a Serper search backend
func NewSerperBackend(cfg model.SearchConfig, httpClient *http.Client) *SerperBackend {
	return &SerperBackend{
		apiKey:     cfg.APIKey,
		gl:         cfg.GL,
		hl:         cfg.HL,
		perQuery:   cfg.ResultsPerQuery,
		opts:       cfg.SearchOpts,
		endpoint:   serperEndpoint,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (b *SerperBackend) Name() string {
	return "serper"
}

type serperResponse struct {
	Organic []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	AnswerBox      json.RawMessage `json:"answerBox"`
	KnowledgeGraph json.RawMessage `json:"knowledgeGraph"`
}

// Search runs one Google query via Serper
func (b *SerperBackend) Search(ctx context.Context, query string) ([]model.Evidence, error) {
	if b.opts != "" {
		query += " " + b.opts
	}

	payload, err := json.Marshal(map[string]any{
		"q":  query,
		"gl": b.gl,
		"hl": b.hl,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper search: status %d: %s", resp.StatusCode, body)
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse serper response: %w", err)
	}

	var evidence []model.Evidence
	for _, item := range parsed.Organic {
		if item.Link == "" && item.Snippet == "" {
			continue
		}
		evidence = append(evidence, model.Evidence{
			URL:   item.Link,
			Title: item.Title,
			Text:  truncate(item.Snippet, 2000),
		})
	}

	// Summary fallback when there are no organic results
	if len(evidence) == 0 {
		if summary := firstNonEmpty(parsed.AnswerBox, parsed.KnowledgeGraph); summary != "" {
			evidence = append(evidence, model.Evidence{
				Title:    "Serper Summary",
				Text:     truncate(summary, 2000),
				FullText: summary,
			})
		}
	}

	return capEvidence(evidence, b.perQuery), nil
}

func firstNonEmpty(raws ...json.RawMessage) string {
	for _, raw := range raws {
		if len(raw) > 0 && string(raw) != "null" {
			return string(raw)
		}
	}
	return ""
}

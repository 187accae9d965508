package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/factsearch/factsearch/internal/cache"
	"github.com/factsearch/factsearch/internal/llm"
	"github.com/factsearch/factsearch/internal/model"
	"github.com/factsearch/factsearch/internal/reduce"
	"github.com/factsearch/factsearch/internal/search"
	"github.com/factsearch/factsearch/internal/verifier"
)

// components holds everything a verification workflow needs, built once
// from configuration
type components struct {
	llm       llm.Client
	backend   search.Backend
	fetcher   *search.Fetcher
	evaluator *verifier.Evaluator
	cfg       *model.Config
}

// buildComponents wires the collaborators from configuration
func buildComponents(cfg *model.Config) (*components, error) {
	client, err := llm.NewClient(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("an LLM provider is required (set llm.provider)")
	}

	apiClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy: search.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		},
	}
	backend, err := search.NewBackend(cfg.Search, apiClient)
	if err != nil {
		return nil, fmt.Errorf("initialize search backend: %w", err)
	}

	var fetcher *search.Fetcher
	if cfg.Search.FetchFullText {
		pageCache := cache.NewMemoryCache(cfg.Search.CacheTTL, 10*time.Minute)
		fetcher = search.NewFetcher(cfg.HTTP, pageCache, cfg.Search.CacheTTL)
	}

	var reducer *reduce.Reducer
	if cfg.Reducer.VectorsPath != "" {
		vectors, err := reduce.LoadVectors(cfg.Reducer.VectorsPath)
		if err != nil {
			// Oversized documents fall back to hard truncation
			fmt.Fprintf(os.Stderr, "Warning: word vectors unavailable (%v), excerpt selection disabled\n", err)
		} else {
			reducer = reduce.NewReducer(vectors)
		}
	}

	evaluator := verifier.NewEvaluator(client, reducer, cfg.Evaluation.MaxEvidenceLength)

	return &components{
		llm:       client,
		backend:   backend,
		fetcher:   fetcher,
		evaluator: evaluator,
		cfg:       cfg,
	}, nil
}

// newWorkflow builds one workflow instance around emit
func (c *components) newWorkflow(emit verifier.EmitFunc) *verifier.Workflow {
	var enricher verifier.Enricher
	if c.fetcher != nil {
		enricher = c.fetcher
	}
	return verifier.NewWorkflow(c.llm, c.backend, c.llm, c.evaluator, enricher,
		c.cfg.Iteration.MaxIterations, emit)
}

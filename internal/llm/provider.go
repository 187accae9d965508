package llm

import (
	"context"

	"github.com/factsearch/factsearch/internal/model"
)

// QueryGenerator produces a web search query for a claim. Implementations
// must not fail the workflow: callers fall back to the claim text when an
// error or empty query is returned.
type QueryGenerator interface {
	// GenerateQuery creates a search query. priorQueries and
	// missingAspects feed the iterative rounds and may be empty.
	GenerateQuery(ctx context.Context, claim string, priorQueries, missingAspects []string) (string, error)
}

// Decision is the outcome of an evidence sufficiency check
type Decision struct {
	NeedsMoreEvidence bool     `json:"needs_more_evidence"`
	MissingAspects    []string `json:"missing_aspects,omitempty"`
}

// SearchDecider votes on whether another retrieval round is worthwhile.
// The vote is advisory only; the workflow's iteration cap always wins.
type SearchDecider interface {
	Decide(ctx context.Context, claim string, evidence []model.Evidence, iteration int) (Decision, error)
}

// Assessment is the structured output of a verdict judgement
type Assessment struct {
	Assessment string         `json:"assessment"`
	Veracity   model.Veracity `json:"veracity"`
}

// Judge evaluates an evidence context into an assessment. It returns an
// explicit error on failure, never a partial result.
type Judge interface {
	Judge(ctx context.Context, evalContext string) (Assessment, error)
}

// Client bundles the three model collaborators the workflow needs
type Client interface {
	QueryGenerator
	SearchDecider
	Judge

	// Name returns the provider name
	Name() string
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g. an Ollama OpenAI-compatible API)
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Timeout:   60,
		MaxTokens: 1000,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(cfg model.LLMConfig) Config {
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	}
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/factsearch/factsearch/internal/model"
)

// OpenAIClient implements the model collaborators over the OpenAI Chat
// Completions API. Any endpoint speaking the same protocol (e.g. an
// Ollama server) works through BaseURL.
type OpenAIClient struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIClient creates a client for the OpenAI API
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "openai",
	}, nil
}

// NewOllamaClient creates a client for an Ollama server through its
// OpenAI-compatible endpoint
func NewOllamaClient(config Config) (*OpenAIClient, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434/v1"
	}
	if config.APIKey == "" {
		config.APIKey = "ollama" // the endpoint requires a non-empty key
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "ollama",
	}, nil
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return c.name
}

// GenerateQuery implements QueryGenerator
func (c *OpenAIClient) GenerateQuery(ctx context.Context, claim string, priorQueries, missingAspects []string) (string, error) {
	iteration := len(priorQueries)
	system := queryGenerationPrompt(iteration, priorQueries, missingAspects)

	var out struct {
		Query string `json:"query"`
	}
	if err := c.structured(ctx, system, "Claim: "+claim, &out); err != nil {
		return "", fmt.Errorf("query generation: %w", err)
	}
	if strings.TrimSpace(out.Query) == "" {
		return "", fmt.Errorf("query generation: empty query")
	}
	return out.Query, nil
}

// Decide implements SearchDecider
func (c *OpenAIClient) Decide(ctx context.Context, claim string, evidence []model.Evidence, iteration int) (Decision, error) {
	system := fmt.Sprintf(searchDecisionSystemPrompt, currentTimestamp())
	human := searchDecisionPrompt(claim, evidence)

	var out Decision
	if err := c.structured(ctx, system, human, &out); err != nil {
		return Decision{}, fmt.Errorf("search decision: %w", err)
	}
	return out, nil
}

// Judge implements Judge
func (c *OpenAIClient) Judge(ctx context.Context, evalContext string) (Assessment, error) {
	system := fmt.Sprintf(judgeSystemPrompt, currentTimestamp())

	var out Assessment
	if err := c.structured(ctx, system, evalContext, &out); err != nil {
		return Assessment{}, fmt.Errorf("judge: %w", err)
	}
	if strings.TrimSpace(out.Assessment) == "" {
		return Assessment{}, fmt.Errorf("judge: empty assessment")
	}
	if !out.Veracity.Valid() {
		return Assessment{}, fmt.Errorf("judge: invalid veracity %q", out.Veracity)
	}
	return out, nil
}

// structured makes one chat completion call and unmarshals the JSON body
// of the reply into out. Temperature is pinned to zero for reproducible
// results.
func (c *OpenAIClient) structured(ctx context.Context, system, human string, out any) error {
	timeout := time.Duration(c.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: human},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if req.Model == "" {
		req.Model = openai.GPT4oMini
	}

	resp, err := c.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("no response choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("parse structured output: %w", err)
	}
	return nil
}

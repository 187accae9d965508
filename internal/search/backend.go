package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/factsearch/factsearch/internal/model"
)

// Backend retrieves evidence for a search query. Implementations return
// an explicit error on provider failure; the workflow decides how to
// degrade.
type Backend interface {
	// Name returns the provider name
	Name() string

	// Search runs one query and returns at most the configured number
	// of evidence items, in provider ranking order.
	Search(ctx context.Context, query string) ([]model.Evidence, error)
}

// NewBackend creates a search backend based on configuration
func NewBackend(cfg model.SearchConfig, httpClient *http.Client) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case "serper":
		return NewSerperBackend(cfg, httpClient), nil

	case "tavily":
		return NewTavilyBackend(cfg, httpClient), nil

	case "exa":
		return NewExaBackend(cfg, httpClient), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: serper, tavily, exa)", cfg.Provider)
	}
}

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func capEvidence(items []model.Evidence, max int) []model.Evidence {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

// truncate caps s at max runes, never splitting a UTF-8 sequence
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

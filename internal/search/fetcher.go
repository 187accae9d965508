package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/factsearch/factsearch/internal/cache"
	"github.com/factsearch/factsearch/internal/model"
)

// Fetcher retrieves the full text of evidence pages. Failures of any
// kind degrade to an empty full text for that item, never an error for
// the batch.
type Fetcher struct {
	httpClient *http.Client
	robots     *robotsChecker
	cache      cache.Cache
	cfg        model.HTTPConfig
	cacheTTL   time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a fetcher honoring robots.txt, per-host rate
// limits and a response cache.
func NewFetcher(cfg model.HTTPConfig, pageCache cache.Cache, cacheTTL time.Duration) *Fetcher {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	return &Fetcher{
		httpClient: httpClient,
		robots:     newRobotsChecker(httpClient, cfg.UserAgent),
		cache:      pageCache,
		cfg:        cfg,
		cacheTTL:   cacheTTL,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Enrich fetches full texts for all evidence items that have a URL but
// no full text yet, concurrently. The input slice is modified in place
// and returned.
func (f *Fetcher) Enrich(ctx context.Context, items []model.Evidence) []model.Evidence {
	var wg sync.WaitGroup
	for i := range items {
		if items[i].URL == "" || items[i].FullText != "" {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i].FullText = f.FetchText(ctx, items[i].URL)
		}(i)
	}
	wg.Wait()
	return items
}

// FetchText retrieves one page and extracts its text. Returns "" on any
// failure.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) string {
	key := cache.Key(rawURL)
	if f.cache != nil {
		if cached, ok := f.cache.Get(key); ok {
			return string(cached)
		}
	}

	if !f.robots.canFetch(ctx, rawURL) {
		slog.Debug("robots.txt disallows fetch", "url", rawURL)
		return ""
	}

	if err := f.waitHost(ctx, rawURL); err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		slog.Debug("page fetch failed", "url", rawURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		slog.Debug("unsupported content type", "url", rawURL, "content_type", contentType)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return ""
	}

	text := string(body)
	if strings.Contains(contentType, "text/html") {
		text = ExtractText(text)
	}

	if f.cache != nil {
		f.cache.Set(key, []byte(text), f.cacheTTL)
	}
	return text
}

// waitHost blocks on the per-host rate limiter for rawURL
func (f *Fetcher) waitHost(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	f.mu.Lock()
	limiter, ok := f.limiters[parsed.Host]
	if !ok {
		perHost := f.cfg.RatePerHost
		if perHost <= 0 {
			perHost = 2
		}
		burst := f.cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(perHost), burst)
		f.limiters[parsed.Host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}

package model

import "time"

// Config is the complete factsearch configuration
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Search     SearchConfig     `yaml:"search"`
	Iteration  IterationConfig  `yaml:"iteration"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Reducer    ReducerConfig    `yaml:"reducer"`
	Session    SessionConfig    `yaml:"session"`
	LLM        LLMConfig        `yaml:"llm"`
	Server     ServerConfig     `yaml:"server"`
}

// HTTPConfig controls outbound page fetching
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	RatePerHost  float64       `yaml:"rate_per_host"` // requests per second per host
	RateBurst    int           `yaml:"rate_burst"`
	HTTPProxy    string        `yaml:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy"`
}

// SearchConfig selects and tunes the web search provider
type SearchConfig struct {
	Provider        string        `yaml:"provider"` // serper, tavily, exa
	APIKey          string        `yaml:"api_key"`
	ResultsPerQuery int           `yaml:"results_per_query"`
	GL              string        `yaml:"gl"` // Google country code
	HL              string        `yaml:"hl"` // Google language code
	SearchOpts      string        `yaml:"search_opts"` // Appended to every query
	FetchFullText   bool          `yaml:"fetch_full_text"`
	CacheTTL        time.Duration `yaml:"cache_ttl"` // Full-text fetch cache
}

// IterationConfig bounds the retrieval loop
type IterationConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

// EvaluationConfig tunes the final evidence evaluation
type EvaluationConfig struct {
	MaxEvidenceLength int `yaml:"max_evidence_length"` // Documents above this are reduced
}

// ReducerConfig locates the word vectors used for excerpt selection
type ReducerConfig struct {
	VectorsPath string `yaml:"vectors_path"` // fastText .vec text format
}

// SessionConfig controls stream session lifecycle
type SessionConfig struct {
	SubmitTimeout time.Duration `yaml:"submit_timeout"` // Wait for the initial claim_text
	DoneTTL       time.Duration `yaml:"done_ttl"`       // Completed sessions are reaped after this
	AuthTTL       time.Duration `yaml:"auth_ttl"`       // Login token lifetime
}

// LLMConfig selects the model backend for query generation, search
// decisions and verdict judging
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Timeout   int    `yaml:"timeout"` // seconds, per call
	MaxTokens int    `yaml:"max_tokens"`
}

// ServerConfig controls the websocket server
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	UsersFile      string   `yaml:"users_file"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      10 * time.Second,
			UserAgent:    "factsearch/0.1 (+https://github.com/factsearch/factsearch)",
			MaxBodyBytes: 2_000_000,
			RatePerHost:  2,
			RateBurst:    4,
		},
		Search: SearchConfig{
			Provider:        "serper",
			ResultsPerQuery: 5,
			GL:              "en",
			HL:              "en",
			SearchOpts:      "-site:politifact.com -site:factcheck.org -site:snopes.com -filetype:pdf -filetype:docx",
			FetchFullText:   true,
			CacheTTL:        30 * time.Minute,
		},
		Iteration: IterationConfig{
			MaxIterations: 3,
		},
		Evaluation: EvaluationConfig{
			MaxEvidenceLength: 50_000,
		},
		Reducer: ReducerConfig{
			VectorsPath: "data/vectors/cc.en.300.vec",
		},
		Session: SessionConfig{
			SubmitTimeout: 10 * time.Second,
			DoneTTL:       time.Hour,
			AuthTTL:       8 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 1000,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:5174", "http://localhost:4173"},
			UsersFile:      "users.json",
		},
	}
}

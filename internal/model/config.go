package model

import "time"

// Config holds the full openplag configuration.
// Tags serve both the YAML config file and viper's decoder.
type Config struct {
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus" mapstructure:"corpus"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
	Web       WebConfig       `yaml:"web" mapstructure:"web"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Summary   SummaryConfig   `yaml:"summary" mapstructure:"summary"`
}

// NormalizeConfig controls segmentation
type NormalizeConfig struct {
	MinSegmentChars int `yaml:"min_segment_chars" mapstructure:"min_segment_chars"`
	MaxSegmentChars int `yaml:"max_segment_chars" mapstructure:"max_segment_chars"`
	MinTextChars    int `yaml:"min_text_chars" mapstructure:"min_text_chars"` // Shorter submissions are rejected
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // hashing, openai, ollama
	Model       string        `yaml:"model" mapstructure:"model"`
	BaseURL     string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey      string        `yaml:"-" mapstructure:"api_key"` // Never written to disk
	Dimension   int           `yaml:"dimension" mapstructure:"dimension"`
	BatchSize   int           `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	CacheSize   int           `yaml:"cache_size" mapstructure:"cache_size"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CorpusConfig locates the local submission store
type CorpusConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	TopK int    `yaml:"top_k" mapstructure:"top_k"`
}

// MatchConfig holds the scoring thresholds
type MatchConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	Excerpts  int     `yaml:"excerpts" mapstructure:"excerpts"` // Excerpts per source in reports
}

// WebConfig controls web evidence gathering
type WebConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	SearchURL         string        `yaml:"search_url" mapstructure:"search_url"`
	MaxQueries        int           `yaml:"max_queries" mapstructure:"max_queries"`
	ResultsPerQuery   int           `yaml:"results_per_query" mapstructure:"results_per_query"`
	MaxURLs           int           `yaml:"max_urls" mapstructure:"max_urls"`
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	Budget            time.Duration `yaml:"budget" mapstructure:"budget"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxPageChars      int           `yaml:"max_page_chars" mapstructure:"max_page_chars"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	QueryDelay        time.Duration `yaml:"query_delay" mapstructure:"query_delay"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the fetched page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// SummaryConfig selects the optional reviewer summary provider.
// An empty provider disables summaries.
type SummaryConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string        `yaml:"model" mapstructure:"model"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey    string        `yaml:"-" mapstructure:"api_key"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Normalize: NormalizeConfig{
			MinSegmentChars: 20,
			MaxSegmentChars: 1000,
			MinTextChars:    50,
		},
		Embedding: EmbeddingConfig{
			Provider:    "hashing",
			Dimension:   384,
			BatchSize:   32,
			Concurrency: 4,
			CacheSize:   10000,
			Timeout:     30 * time.Second,
		},
		Corpus: CorpusConfig{
			Path: "openplag.db",
			TopK: 5,
		},
		Match: MatchConfig{
			Threshold: 0.75,
			Excerpts:  3,
		},
		Web: WebConfig{
			Enabled:           true,
			SearchURL:         "https://html.duckduckgo.com/html/",
			MaxQueries:        3,
			ResultsPerQuery:   5,
			MaxURLs:           10,
			RequestTimeout:    10 * time.Second,
			Budget:            60 * time.Second,
			Workers:           4,
			MaxBodyBytes:      2_000_000,
			MaxPageChars:      20000,
			UserAgent:         "Mozilla/5.0 (compatible; openplag/0.1; +https://github.com/ppiankov/openplag)",
			RespectRobots:     true,
			RequestsPerSecond: 2,
			BurstSize:         2,
			QueryDelay:        500 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".openplag-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 10 << 20,
		},
		Summary: SummaryConfig{
			Timeout:   30 * time.Second,
			MaxTokens: 600,
		},
	}
}

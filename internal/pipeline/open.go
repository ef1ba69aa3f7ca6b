// Package pipeline wires normalization, embedding, local matching, web
// evidence, aggregation and reporting into a single check.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/openplag/internal/cache"
	"github.com/ppiankov/openplag/internal/corpus"
	"github.com/ppiankov/openplag/internal/embed"
	"github.com/ppiankov/openplag/internal/llm"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/normalize"
	"github.com/ppiankov/openplag/internal/web"
	"github.com/ppiankov/openplag/internal/worker"
)

// Open builds a pipeline from configuration: the corpus at cfg.Corpus.Path
// (SQLite, or process-local for ":memory:"), the configured embedding provider behind an LRU memo,
// the DuckDuckGo gatherer when web evidence is enabled, and the reviewer
// summarizer when a summary provider is configured. The corpus
// index is loaded before Open returns.
func Open(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := embed.NewProvider(embed.ConfigFromModel(cfg.Embedding, cfg.Web))
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	if cfg.Embedding.CacheSize > 0 {
		cached, err := embed.NewCached(provider, cfg.Embedding.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		provider = cached
	}

	summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.Summary, cfg.Web), logger)
	if err != nil {
		return nil, fmt.Errorf("summary provider: %w", err)
	}

	store, err := corpus.Open(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}

	var gatherer Gatherer
	if cfg.Web.Enabled {
		gatherer = newGatherer(cfg, logger)
	}

	p := New(cfg, store, provider, gatherer, logger).WithSummarizer(summarizer)
	if err := p.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return p, nil
}

// newGatherer assembles the web stack. Search and fetch share one
// per-host limiter.
func newGatherer(cfg *model.Config, logger *slog.Logger) *web.Gatherer {
	limiter := worker.NewLimiter(cfg.Web.RequestsPerSecond, cfg.Web.BurstSize)

	fetcher := web.NewFetcher(web.FetcherConfig{
		Timeout:       cfg.Web.RequestTimeout,
		UserAgent:     cfg.Web.UserAgent,
		MaxBodyBytes:  cfg.Web.MaxBodyBytes,
		MaxPageChars:  cfg.Web.MaxPageChars,
		RespectRobots: cfg.Web.RespectRobots,
		HTTPProxy:     cfg.Web.HTTPProxy,
		HTTPSProxy:    cfg.Web.HTTPSProxy,
	}, limiter, cache.New(cfg.Cache), logger)

	searcher := web.NewDuckDuckGo(web.SearchConfig{
		SearchURL:  cfg.Web.SearchURL,
		UserAgent:  cfg.Web.UserAgent,
		Timeout:    cfg.Web.RequestTimeout,
		QueryDelay: cfg.Web.QueryDelay,
		HTTPProxy:  cfg.Web.HTTPProxy,
		HTTPSProxy: cfg.Web.HTTPSProxy,
	}, limiter, logger)

	return web.NewGatherer(searcher, fetcher,
		normalize.New(cfg.Normalize.MinSegmentChars, cfg.Normalize.MaxSegmentChars),
		web.GathererConfig{
			MaxQueries:      cfg.Web.MaxQueries,
			ResultsPerQuery: cfg.Web.ResultsPerQuery,
			MaxURLs:         cfg.Web.MaxURLs,
			Workers:         cfg.Web.Workers,
			Budget:          cfg.Web.Budget,
		}, logger)
}

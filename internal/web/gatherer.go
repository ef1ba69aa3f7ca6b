// Package web discovers candidate sources on the open web: it searches for
// a document's most distinctive sentences and fetches the result pages.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ppiankov/openplag/internal/cache"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/normalize"
	"github.com/ppiankov/openplag/internal/worker"
)

// PageFetcher retrieves the extracted text of one URL
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*cache.Page, model.FetchStatus, error)
}

// GathererConfig bounds one gather
type GathererConfig struct {
	MaxQueries      int
	ResultsPerQuery int
	MaxURLs         int
	Workers         int
	Budget          time.Duration // Wall clock for search and fetch together
}

// GatherResult is the web evidence for one document
type GatherResult struct {
	Sources      []model.CandidateSource
	Queries      []string
	URLs         []string
	SearchErrors []error
	FetchErrors  []error
	Partial      bool // Budget ran out before every URL was processed
}

// SearchFailed reports whether every query failed
func (r *GatherResult) SearchFailed() bool {
	return len(r.Queries) > 0 && len(r.SearchErrors) == len(r.Queries)
}

// Gatherer runs the search and fetch phases under a hard budget
type Gatherer struct {
	searcher   Searcher
	fetcher    PageFetcher
	normalizer *normalize.Normalizer
	cfg        GathererConfig
	logger     *slog.Logger
}

// NewGatherer creates a gatherer. Zero config fields take defaults.
func NewGatherer(searcher Searcher, fetcher PageFetcher, normalizer *normalize.Normalizer, cfg GathererConfig, logger *slog.Logger) *Gatherer {
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = 3
	}
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = 5
	}
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatherer{
		searcher:   searcher,
		fetcher:    fetcher,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Gather searches for doc and fetches the result pages. Search and fetch
// failures are recorded in the result, never returned. The only error is
// cancellation of ctx itself.
func (g *Gatherer) Gather(ctx context.Context, doc *model.Document) (*GatherResult, error) {
	budgetCtx, cancel := context.WithTimeout(ctx, g.cfg.Budget)
	defer cancel()

	result := &GatherResult{
		Sources: []model.CandidateSource{},
		Queries: SelectQueries(doc.Segments, g.cfg.MaxQueries),
	}

	// 1. Search
	seen := make(map[string]bool)
	for _, query := range result.Queries {
		urls, err := g.searcher.Search(budgetCtx, query, g.cfg.ResultsPerQuery)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if budgetCtx.Err() != nil {
				result.Partial = true
				break
			}
			g.logger.Warn("web search failed", "error", err)
			result.SearchErrors = append(result.SearchErrors, err)
			continue
		}
		for _, u := range urls {
			if len(result.URLs) >= g.cfg.MaxURLs {
				break
			}
			if !seen[u] {
				seen[u] = true
				result.URLs = append(result.URLs, u)
			}
		}
	}

	if len(result.URLs) == 0 || result.Partial {
		return result, nil
	}

	// 2. Fetch
	pool := worker.NewPool(budgetCtx, g.cfg.Workers)
	pool.Start()
	go func() {
		for i, u := range result.URLs {
			if !pool.Submit(&fetchJob{index: i, url: u, gatherer: g}) {
				break
			}
		}
		pool.Close()
	}()

	pending := len(result.URLs)
	var fetched []fetchOutcome
collect:
	for pending > 0 {
		select {
		case r, ok := <-pool.Results():
			if !ok {
				break collect
			}
			pending--
			out := r.(*fetchOutcome)
			if out.err != nil && budgetCtx.Err() != nil {
				// Cut short by the budget, not a fetch failure
				if ctx.Err() != nil {
					pool.Abandon()
					return nil, ctx.Err()
				}
				result.Partial = true
				continue
			}
			if out.err != nil {
				g.logger.Debug("web fetch skipped", "url", out.url, "error", out.err)
				result.FetchErrors = append(result.FetchErrors, out.err)
				continue
			}
			fetched = append(fetched, *out)
		case <-budgetCtx.Done():
			// Outstanding fetches are abandoned, not awaited
			pool.Abandon()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Partial = true
			break collect
		}
	}

	sort.Slice(fetched, func(i, j int) bool { return fetched[i].index < fetched[j].index })
	for _, f := range fetched {
		result.Sources = append(result.Sources, f.source)
	}

	g.logger.Debug("web evidence gathered",
		"queries", len(result.Queries),
		"urls", len(result.URLs),
		"sources", len(result.Sources),
		"fetch_errors", len(result.FetchErrors),
		"partial", result.Partial)

	return result, nil
}

// errNoText marks a page that fetched fine but yielded no segments
var errNoText = errors.New("no usable text")

type fetchJob struct {
	index    int
	url      string
	gatherer *Gatherer
}

type fetchOutcome struct {
	index  int
	url    string
	source model.CandidateSource
	err    error
}

func (o *fetchOutcome) GetError() error { return o.err }

func (j *fetchJob) Execute(ctx context.Context) worker.Result {
	out := &fetchOutcome{index: j.index, url: j.url}

	page, status, err := j.gatherer.fetcher.FetchPage(ctx, j.url)
	if err != nil {
		out.err = err
		return out
	}

	segments := j.gatherer.normalizer.Normalize(page.Text)
	if len(segments) == 0 {
		out.err = &model.FetchError{URL: j.url, Err: fmt.Errorf("%w after extraction", errNoText)}
		return out
	}

	out.source = model.CandidateSource{
		ID:          j.url,
		Label:       model.LabelWeb,
		Title:       page.Title,
		URL:         j.url,
		Segments:    segments,
		FetchStatus: status,
	}
	return out
}

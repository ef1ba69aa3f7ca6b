package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ppiankov/openplag/internal/extract"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/util"
	"github.com/ppiankov/openplag/internal/worker"
	"github.com/sony/gobreaker"
)

// DefaultSearchURL is DuckDuckGo's script-free results page
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

// Searcher turns a query into an ordered list of result URLs
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// SearchConfig tunes the DuckDuckGo searcher
type SearchConfig struct {
	SearchURL  string
	UserAgent  string
	Timeout    time.Duration
	QueryDelay time.Duration // Pause before every query
	MaxRetries uint64
	HTTPProxy  string
	HTTPSProxy string
}

// DuckDuckGo scrapes the HTML results page. It needs no API key but rate
// limits aggressively, so queries are spaced, retried with backoff and
// guarded by a circuit breaker.
type DuckDuckGo struct {
	searchURL  string
	userAgent  string
	delay      time.Duration
	httpClient *http.Client
	limiter    *worker.Limiter
	breaker    *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// NewDuckDuckGo creates a searcher sharing limiter with the fetcher
func NewDuckDuckGo(cfg SearchConfig, limiter *worker.Limiter, logger *slog.Logger) *DuckDuckGo {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = worker.NewLimiter(1, 1)
	}

	d := &DuckDuckGo{
		searchURL:  cfg.SearchURL,
		userAgent:  cfg.UserAgent,
		delay:      cfg.QueryDelay,
		httpClient: util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy),
		limiter:    limiter,
		logger:     logger,
	}

	d.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		b.MaxInterval = 8 * time.Second
		b.MaxElapsedTime = 30 * time.Second
		return backoff.WithMaxRetries(b, cfg.MaxRetries)
	}

	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "duckduckgo",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("search circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return d
}

// Search returns up to maxResults result URLs for query. Every failure is
// a *model.SearchError.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if err := d.limiter.WaitWithDelay(ctx, d.searchURL, d.delay); err != nil {
		return nil, &model.SearchError{Query: query, Err: err}
	}

	out, err := d.breaker.Execute(func() (interface{}, error) {
		var links []string
		op := func() error {
			var err error
			links, err = d.searchOnce(ctx, query, maxResults)
			return err
		}
		notify := func(err error, wait time.Duration) {
			d.logger.Debug("search retry", "query", query, "wait", wait, "error", err)
		}
		err := backoff.RetryNotify(op, backoff.WithContext(d.newBackOff(), ctx), notify)
		return links, err
	})
	if err != nil {
		return nil, &model.SearchError{Query: query, Err: err}
	}
	return out.([]string), nil
}

// errRateLimited marks a throttled response worth retrying
var errRateLimited = errors.New("rate limited by search engine")

func (d *DuckDuckGo) searchOnce(ctx context.Context, query string, maxResults int) ([]string, error) {
	u, err := url.Parse(d.searchURL)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse search URL: %w", err))
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	// DuckDuckGo answers 202 with a challenge page when throttling
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusAccepted:
		return nil, fmt.Errorf("%w: status %d", errRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("search status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	links, err := extract.ResultLinks(string(body), resp.Request.URL.String(), maxResults)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse results: %w", err))
	}
	return links, nil
}

package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/ppiankov/openplag/internal/cache"
	"github.com/ppiankov/openplag/internal/extract/adapters"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/util"
	"github.com/ppiankov/openplag/internal/worker"
)

const fetchMaxAttempts = 3

var (
	errRobotsDisallowed = errors.New("disallowed by robots.txt")
	errNotText          = errors.New("not a text document")
	errTooManyRedirects = errors.New("stopped after 3 redirects")
)

// statusError is a non-2xx HTTP response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

// FetcherConfig tunes page retrieval
type FetcherConfig struct {
	Timeout       time.Duration // Per request
	UserAgent     string
	MaxBodyBytes  int64
	MaxPageChars  int
	RespectRobots bool
	HTTPProxy     string
	HTTPSProxy    string
}

// Fetcher downloads candidate pages and extracts their text
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxChars   int
	robots     *util.RobotsChecker
	adapters   *adapters.Registry
	limiter    *worker.Limiter
	pages      *cache.PageCache
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// NewFetcher creates a fetcher. limiter and pages may be nil.
func NewFetcher(cfg FetcherConfig, limiter *worker.Limiter, pages *cache.PageCache, logger *slog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2_000_000
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return errTooManyRedirects
		}
		return nil
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxChars:   cfg.MaxPageChars,
		adapters:   adapters.NewRegistry(),
		limiter:    limiter,
		pages:      pages,
		logger:     logger,
	}
	f.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		b.MaxInterval = 4 * time.Second
		return backoff.WithMaxRetries(b, fetchMaxAttempts-1)
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, client)
	}
	return f
}

// FetchResult is one raw HTTP response body
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
}

// Fetch performs a single GET
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var result *FetchResult
	op := func() error {
		var err error
		result, err = f.Fetch(ctx, rawURL)
		if err != nil && !isRetryableFetchError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Debug("fetch retry", "url", rawURL, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(f.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return result, nil
}

// isRetryableFetchError reports transient failures: 5xx, 429 and transport
// errors before a response arrived. Cancellation and redirect loops are
// final.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errTooManyRedirects) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}

	var ue *url.Error
	return errors.As(err, &ue)
}

// FetchPage returns the extracted text of rawURL, from cache when possible.
// Every failure comes back as a *model.FetchError.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (*cache.Page, model.FetchStatus, error) {
	if f.pages != nil {
		if page, ok := f.pages.Get(rawURL); ok {
			return page, model.FetchCached, nil
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err == nil && !allowed {
			return nil, model.FetchSkipped, &model.FetchError{URL: rawURL, Err: errRobotsDisallowed}
		}
		if delay > 0 && f.limiter != nil {
			if u, err := url.Parse(rawURL); err == nil {
				f.limiter.SlowDown(u.Host, delay)
			}
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, model.FetchFailed, &model.FetchError{URL: rawURL, Err: err}
		}
	}

	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		fe := &model.FetchError{URL: rawURL, Err: err}
		var se *statusError
		if errors.As(err, &se) {
			fe.StatusCode = se.code
		}
		return nil, model.FetchFailed, fe
	}

	title, text, err := f.extract(result)
	if err != nil {
		status := model.FetchFailed
		if errors.Is(err, errNotText) {
			status = model.FetchSkipped
		}
		return nil, status, &model.FetchError{URL: rawURL, StatusCode: result.StatusCode, Err: err}
	}

	if title == "" {
		title = extractSubject(result.FinalURL)
	}

	page := &cache.Page{
		URL:       rawURL,
		Title:     title,
		Text:      truncateRunes(text, f.maxChars),
		FetchedAt: time.Now().UTC(),
	}
	if f.pages != nil {
		if err := f.pages.Put(page); err != nil {
			f.logger.Debug("page cache write failed", "url", rawURL, "error", err)
		}
	}
	return page, model.FetchOK, nil
}

func (f *Fetcher) extract(result *FetchResult) (string, string, error) {
	mediaType := "text/html"
	if result.ContentType != "" {
		mt, _, err := mime.ParseMediaType(result.ContentType)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", errNotText, result.ContentType)
		}
		mediaType = mt
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return f.adapters.Extract(result.FinalURL, bytes.NewReader(result.Body))
	case "text/plain":
		if !utf8.Valid(result.Body) {
			return "", "", fmt.Errorf("%w: invalid UTF-8", errNotText)
		}
		return "", string(result.Body), nil
	}
	return "", "", fmt.Errorf("%w: %s", errNotText, mediaType)
}

// extractSubject derives a readable title from the URL path
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	// De-slugify
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

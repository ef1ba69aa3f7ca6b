package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ppiankov/openplag/internal/cache"
	"github.com/ppiankov/openplag/internal/model"
)

func newTestFetcher(pages *cache.PageCache) *Fetcher {
	f := NewFetcher(FetcherConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
	}, nil, pages, nil)
	f.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, fetchMaxAttempts-1)
	}
	return f
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(nil).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result.Body) != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	result, err := newTestFetcher(nil).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(result.Body) != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(nil).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 404 not to be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := newTestFetcher(nil).FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	if _, err := newTestFetcher(nil).FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	transport := func(err error) error {
		return fmt.Errorf("fetch: %w", &url.Error{Op: "Get", URL: "https://example.com", Err: err})
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &statusError{code: 503, status: "503 Service Unavailable"}, true},
		{"500", &statusError{code: 500, status: "500 Internal Server Error"}, true},
		{"429", &statusError{code: 429, status: "429 Too Many Requests"}, true},
		{"404", &statusError{code: 404, status: "404 Not Found"}, false},
		{"403", &statusError{code: 403, status: "403 Forbidden"}, false},
		{"connection refused", transport(syscall.ECONNREFUSED), true},
		{"connection reset", transport(syscall.ECONNRESET), true},
		{"too many redirects", transport(errTooManyRedirects), false},
		{"canceled", transport(context.Canceled), false},
		{"deadline", transport(context.DeadlineExceeded), false},
		{"bad request", errors.New("create request: invalid URL"), false},
		{"short body", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestFetchWithRetry_CanceledContextStops(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(nil).FetchWithRetry(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if attempts.Load() != 0 {
		t.Errorf("Expected no request on a canceled context, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_RedirectLoopNotRetried(t *testing.T) {
	var attempts atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Redirect(w, r, server.URL+"/loop", http.StatusFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(nil).FetchWithRetry(context.Background(), server.URL)
	if !errors.Is(err, errTooManyRedirects) {
		t.Fatalf("Expected redirect error, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected one redirect chain (3 requests), got %d", attempts.Load())
	}
}

func TestFetchPage_ExtractsAndCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>On Copying</title></head><body>
<nav>Home | About</nav>
<article><p>The essay argues that copying is an old habit of scholars.</p></article>
<script>track()</script></body></html>`)
	}))
	defer server.Close()

	pages := cache.NewPageCache(cache.NewMemoryCache(time.Minute, time.Minute), 0)
	f := newTestFetcher(pages)

	page, status, err := f.FetchPage(context.Background(), server.URL+"/essay")
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if status != model.FetchOK {
		t.Errorf("Expected status ok, got %s", status)
	}
	if page.Title != "On Copying" {
		t.Errorf("Unexpected title: %s", page.Title)
	}
	if !strings.Contains(page.Text, "copying is an old habit") || strings.Contains(page.Text, "track()") || strings.Contains(page.Text, "Home | About") {
		t.Errorf("Unexpected text: %q", page.Text)
	}

	_, status, err = f.FetchPage(context.Background(), server.URL+"/essay")
	if err != nil || status != model.FetchCached {
		t.Errorf("Expected cached page, got %s (%v)", status, err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected one network fetch, got %d", hits.Load())
	}
}

func TestFetchPage_NonTextSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer server.Close()

	_, status, err := newTestFetcher(nil).FetchPage(context.Background(), server.URL+"/paper.pdf")
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
	if status != model.FetchSkipped {
		t.Errorf("Expected skipped, got %s", status)
	}
}

func TestFetchPage_StatusCodeRecorded(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, status, err := newTestFetcher(nil).FetchPage(context.Background(), server.URL)
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound || status != model.FetchFailed {
		t.Errorf("Unexpected error: %+v (%s)", fe, status)
	}
}

func TestFetchPage_RespectsRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		t.Errorf("Disallowed path fetched: %s", r.URL.Path)
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "openplag", RespectRobots: true}, nil, nil, nil)
	_, status, err := f.FetchPage(context.Background(), server.URL+"/private/page")
	if !errors.Is(err, errRobotsDisallowed) {
		t.Errorf("Expected robots error, got %v", err)
	}
	if status != model.FetchSkipped {
		t.Errorf("Expected skipped, got %s", status)
	}
}

func TestFetchPage_PlainTextTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, strings.Repeat("é", 50))
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{MaxPageChars: 10}, nil, nil, nil)
	page, _, err := f.FetchPage(context.Background(), server.URL+"/notes_on-copying.txt")
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if page.Text != strings.Repeat("é", 10) {
		t.Errorf("Expected 10 runes, got %q", page.Text)
	}
	if page.Title != "notes on copying" {
		t.Errorf("Expected title from URL, got %q", page.Title)
	}
}

func TestExtractSubject(t *testing.T) {
	tests := map[string]string{
		"https://example.com/":                      "example.com",
		"https://example.com/wiki/Academic_honesty": "Academic honesty",
		"https://example.com/a/b/my-essay.html":     "my essay",
	}
	for in, want := range tests {
		if got := extractSubject(in); got != want {
			t.Errorf("extractSubject(%q) = %q, want %q", in, got, want)
		}
	}
}

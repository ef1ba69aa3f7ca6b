package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/worker"
	"github.com/sony/gobreaker"
)

const ddgPage = `<html><body>
<div class="results">
  <div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fessay&amp;rut=1">Essay</a></div>
  <div class="result result--ad"><a class="result__a" href="https://duckduckgo.com/y.js?ad=1">Ad</a></div>
  <div class="result"><a class="result__a" href="https://blog.example.org/post">Post</a></div>
  <div class="result"><a class="result__a" href="https://third.example.net/a">Third</a></div>
</div>
</body></html>`

func newTestSearcher(serverURL string) *DuckDuckGo {
	d := NewDuckDuckGo(SearchConfig{SearchURL: serverURL + "/html/", UserAgent: "test-agent"}, worker.NewLimiter(0, 1), nil)
	d.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return d
}

func TestDuckDuckGo_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "copying is an old habit" {
			t.Errorf("Unexpected query: %q", got)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}
		_, _ = fmt.Fprint(w, ddgPage)
	}))
	defer server.Close()

	links, err := newTestSearcher(server.URL).Search(context.Background(), "copying is an old habit", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	expected := []string{"https://example.com/essay", "https://blog.example.org/post"}
	if len(links) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, links)
	}
	for i := range expected {
		if links[i] != expected[i] {
			t.Errorf("link %d: expected %s, got %s", i, expected[i], links[i])
		}
	}
}

func TestDuckDuckGo_RetriesWhenThrottled(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		_, _ = fmt.Fprint(w, ddgPage)
	}))
	defer server.Close()

	links, err := newTestSearcher(server.URL).Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Expected success after throttling, got %v", err)
	}
	if len(links) != 3 {
		t.Errorf("Expected 3 links, got %v", links)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestDuckDuckGo_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestSearcher(server.URL).Search(context.Background(), "query", 5)
	var se *model.SearchError
	if !errors.As(err, &se) {
		t.Fatalf("Expected SearchError, got %v", err)
	}
	if se.Query != "query" {
		t.Errorf("Unexpected query in error: %s", se.Query)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 403 not to be retried, got %d attempts", attempts.Load())
	}
}

func TestDuckDuckGo_BreakerOpens(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	d := newTestSearcher(server.URL)
	for i := 0; i < 3; i++ {
		if _, err := d.Search(context.Background(), "query", 5); err == nil {
			t.Fatal("Expected error")
		}
	}

	_, err := d.Search(context.Background(), "query", 5)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected open breaker, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected no request while open, got %d", attempts.Load())
	}
}

func TestDuckDuckGo_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, ddgPage)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSearcher(server.URL).Search(ctx, "query", 5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// Manual check of the web evidence path: searches DuckDuckGo for each
// sentence given on the command line and fetches the top results.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/web"
	"github.com/ppiankov/openplag/internal/worker"
)

func main() {
	fmt.Println("=== Web Evidence Check ===")
	fmt.Println()

	sentences := os.Args[1:]
	if len(sentences) == 0 {
		sentences = []string{
			"The mitochondrion is the powerhouse of the cell",
			"It was the best of times, it was the worst of times",
		}
	}

	cfg := model.DefaultConfig().Web
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)

	searcher := web.NewDuckDuckGo(web.SearchConfig{
		SearchURL:  cfg.SearchURL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.RequestTimeout,
		QueryDelay: cfg.QueryDelay,
	}, limiter, logger)
	fetcher := web.NewFetcher(web.FetcherConfig{
		Timeout:       cfg.RequestTimeout,
		UserAgent:     cfg.UserAgent,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		MaxPageChars:  cfg.MaxPageChars,
		RespectRobots: cfg.RespectRobots,
	}, limiter, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, sentence := range sentences {
		fmt.Printf("Query: %s\n", sentence)
		fmt.Println(strings.Repeat("-", 60))

		urls, err := searcher.Search(ctx, sentence, 3)
		if err != nil {
			fmt.Printf("  Search error: %v\n\n", err)
			continue
		}
		if len(urls) == 0 {
			fmt.Printf("  No results\n\n")
			continue
		}

		for _, u := range urls {
			page, status, err := fetcher.FetchPage(ctx, u)
			if err != nil {
				fmt.Printf("  ✗ %s (%s): %v\n", u, status, err)
				continue
			}
			fmt.Printf("  ✓ %s (%s)\n", u, status)
			fmt.Printf("     - Title: %s\n", page.Title)
			fmt.Printf("     - Text: %d characters\n", len(page.Text))
		}
		fmt.Println()
	}
}

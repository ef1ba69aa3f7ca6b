// Package llm writes an optional reviewer summary of a report with a
// chat model. Summaries may only cite URLs of the report's own sources.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/openplag/internal/model"
)

// ErrCitationLeak is returned when a summary cites a URL outside the
// report's sources
var ErrCitationLeak = errors.New("summary cited a URL that is not a report source")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a reviewer summary of the report
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
}

// SummarizeRequest contains the input for summarization
type SummarizeRequest struct {
	Report model.Report

	// EvidenceURLs is the allowlist of URLs the summary may cite
	EvidenceURLs []string

	// Prompt overrides the default prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// SummarizeResponse contains the generated summary
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "" (disabled)
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	Timeout   time.Duration
	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
}

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 600

	// Sources listed in the prompt
	promptSources = 10
)

const systemPrompt = "You help academic reviewers read plagiarism similarity reports. " +
	"You describe overlap between a submission and its sources. You never conclude that misconduct occurred."

// BuildPrompt constructs the default summarization prompt
func BuildPrompt(report model.Report, evidenceURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Summarize this similarity report for a human reviewer.

RULES:
1. You may ONLY cite URLs from this list:
%s

2. Do not cite, infer or invent any other source.
3. Similarity is evidence for review, not proof of plagiarism. Never state that the author copied or cheated.
4. Mention common-knowledge or quotation as possible explanations when overlap is short.
5. Note any degraded conditions listed below, since they limit what the report can show.

Report:
- Document: %s
- Overall similarity: %.1f%% (%s)
- Segments compared: %d
- Flagged segments: %d
- Sources: %d

`, joinURLs(evidenceURLs), displayName(report), report.OverallScore*100, report.Severity,
		report.SegmentCount, len(report.FlaggedSegments), len(report.Sources))

	if len(report.Sources) > 0 {
		b.WriteString("Top sources:\n")
		for i, s := range report.Sources {
			if i >= promptSources {
				fmt.Fprintf(&b, "... and %d more\n", len(report.Sources)-promptSources)
				break
			}
			label := s.Title
			if s.URL != "" {
				label = s.URL
			}
			if label == "" {
				label = s.ID
			}
			fmt.Fprintf(&b, "%d. [%s] %s: %.1f%% of segments, %d matched\n",
				s.Rank, s.Label, label, s.Score*100, s.MatchedSegments)
			if len(s.Excerpts) > 0 {
				fmt.Fprintf(&b, "   submitted: %q\n   source: %q\n",
					truncate(s.Excerpts[0].TargetText, 200), truncate(s.Excerpts[0].SourceText, 200))
			}
		}
		b.WriteString("\n")
	}

	if len(report.Annotations) > 0 {
		b.WriteString("Degraded conditions:\n")
		for _, a := range report.Annotations {
			fmt.Fprintf(&b, "- %s: %s\n", a.Code, a.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("Write 3-5 sentences in plain prose.")
	return b.String()
}

// EvidenceURLs returns the web source URLs of report in rank order
func EvidenceURLs(report model.Report) []string {
	var urls []string
	for _, s := range report.Sources {
		if s.URL != "" && !slices.Contains(urls, s.URL) {
			urls = append(urls, s.URL)
		}
	}
	return urls
}

func displayName(report model.Report) string {
	if report.Name != "" {
		return report.Name
	}
	return report.DocumentID
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No URLs: do not cite any)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 20 {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", u)
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"]+`)

// extractURLs returns the distinct URLs cited in text
func extractURLs(text string) []string {
	var unique []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?'")
		if !slices.Contains(unique, u) {
			unique = append(unique, u)
		}
	}
	return unique
}

// checkCitations extracts cited URLs and rejects any outside allowed
func checkCitations(summary string, allowed []string) ([]string, error) {
	cited := extractURLs(summary)
	for _, u := range cited {
		if !slices.Contains(allowed, u) {
			return nil, fmt.Errorf("%w: %s", ErrCitationLeak, u)
		}
	}
	return cited, nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c Config) maxTokens(requested int) int {
	switch {
	case requested > 0:
		return requested
	case c.MaxTokens > 0:
		return c.MaxTokens
	default:
		return defaultMaxTokens
	}
}

package llm

import (
	"context"
	"log/slog"

	"github.com/ppiankov/openplag/internal/model"
)

// Summarizer attaches reviewer summaries to reports
type Summarizer struct {
	provider Provider
	logger   *slog.Logger
}

// NewSummarizer builds a summarizer from config. A disabled provider
// yields a summarizer whose IsEnabled is false.
func NewSummarizer(config Config, logger *slog.Logger) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return NewSummarizerWithProvider(provider, logger), nil
}

// NewSummarizerWithProvider wraps an existing provider; provider may be nil
func NewSummarizerWithProvider(provider Provider, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{provider: provider, logger: logger}
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider, or "disabled"
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return "disabled"
	}
	return s.provider.Name()
}

// Summarize generates a reviewer summary for report. It returns nil and
// no error when summaries are disabled.
func (s *Summarizer) Summarize(ctx context.Context, report *model.Report) (*model.ReviewerSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:       *report,
		EvidenceURLs: EvidenceURLs(*report),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("reviewer summary generated",
		"provider", s.provider.Name(),
		"model", resp.Model,
		"tokens", resp.TokensUsed,
		"cited", len(resp.CitedURLs))

	return &model.ReviewerSummary{
		Text:      resp.Summary,
		Provider:  s.provider.Name(),
		Model:     resp.Model,
		CitedURLs: resp.CitedURLs,
	}, nil
}

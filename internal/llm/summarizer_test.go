package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/openplag/internal/model"
)

type mockProvider struct {
	resp *SummarizeResponse
	err  error
	got  SummarizeRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.got = req
	return m.resp, m.err
}

func sampleReport() model.Report {
	return model.Report{
		DocumentID:   "doc-1",
		Name:         "alice (essay.txt)",
		OverallScore: 0.6,
		Severity:     model.SeverityModerate,
		SegmentCount: 10,
		FlaggedSegments: []model.FlaggedSegment{
			{Position: 0}, {Position: 1},
		},
		Sources: []model.SourceSummary{
			{
				Rank: 1, ID: "https://example.com/a", Label: model.LabelWeb, URL: "https://example.com/a",
				Score: 0.4, MatchedSegments: 4,
				Excerpts: []model.Excerpt{{TargetText: "the cell divides", SourceText: "cells divide", Score: 0.9}},
			},
			{Rank: 2, ID: "local-1", Label: model.LabelLocal, Title: "bob (old.txt)", Score: 0.2, MatchedSegments: 2},
			{Rank: 3, ID: "https://example.com/a", Label: model.LabelWeb, URL: "https://example.com/a", Score: 0.1},
		},
		Annotations: []model.Annotation{{Code: model.NoteFetchFailures, Message: "1 of 3 pages could not be fetched"}},
	}
}

func TestNewSummarizer_Disabled(t *testing.T) {
	s, err := NewSummarizer(Config{}, nil)
	if err != nil {
		t.Fatalf("NewSummarizer failed: %v", err)
	}
	if s.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if s.ProviderName() != "disabled" {
		t.Errorf("Expected provider name disabled, got %s", s.ProviderName())
	}

	r := sampleReport()
	summary, err := s.Summarize(context.Background(), &r)
	if err != nil || summary != nil {
		t.Errorf("Expected nil summary and error, got %v %v", summary, err)
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "gemini"}, nil); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestSummarizer_Summarize(t *testing.T) {
	mock := &mockProvider{resp: &SummarizeResponse{
		Summary:   "Overlap centres on https://example.com/a.",
		CitedURLs: []string{"https://example.com/a"},
		Model:     "mock-1",
	}}
	s := NewSummarizerWithProvider(mock, nil)

	r := sampleReport()
	summary, err := s.Summarize(context.Background(), &r)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary.Provider != "mock" || summary.Model != "mock-1" {
		t.Errorf("Unexpected summary metadata: %+v", summary)
	}
	if len(mock.got.EvidenceURLs) != 1 || mock.got.EvidenceURLs[0] != "https://example.com/a" {
		t.Errorf("Expected deduplicated web URLs, got %v", mock.got.EvidenceURLs)
	}
}

func TestSummarizer_ProviderError(t *testing.T) {
	s := NewSummarizerWithProvider(&mockProvider{err: errors.New("boom")}, nil)
	r := sampleReport()
	if _, err := s.Summarize(context.Background(), &r); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestBuildPrompt(t *testing.T) {
	r := sampleReport()
	prompt := BuildPrompt(r, EvidenceURLs(r))

	for _, want := range []string{
		"- https://example.com/a",
		"Document: alice (essay.txt)",
		"Overall similarity: 60.0% (moderate)",
		"Flagged segments: 2",
		"1. [web] https://example.com/a: 40.0% of segments, 4 matched",
		"2. [local] bob (old.txt)",
		`submitted: "the cell divides"`,
		"fetch_failures: 1 of 3 pages could not be fetched",
		"not proof of plagiarism",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_NoEvidence(t *testing.T) {
	prompt := BuildPrompt(model.Report{DocumentID: "doc"}, nil)
	if !strings.Contains(prompt, "(No URLs: do not cite any)") {
		t.Error("Expected no-URL notice")
	}
	if !strings.Contains(prompt, "Document: doc") {
		t.Error("Expected document ID fallback")
	}
}

func TestJoinURLs_Many(t *testing.T) {
	urls := make([]string, 25)
	for i := range urls {
		urls[i] = "https://example.com/" + string(rune('a'+i))
	}
	if got := joinURLs(urls); !strings.Contains(got, "... and 5 more URLs") {
		t.Errorf("Expected truncation notice, got %s", got)
	}
}

func TestExtractURLs(t *testing.T) {
	got := extractURLs("See https://a.example/x, and (https://b.example/y). Again https://a.example/x.")
	if len(got) != 2 || got[0] != "https://a.example/x" || got[1] != "https://b.example/y" {
		t.Errorf("Unexpected URLs: %v", got)
	}
}

package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewDocument_FreshIdentity(t *testing.T) {
	a := NewDocument("alice", "the same essay text", nil, time.Now())
	b := NewDocument("bob", "the same essay text", nil, time.Now())

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected distinct IDs for separate submissions, got %q and %q", a.ID, b.ID)
	}
	if a.Label != LabelLocal || a.RawText != "the same essay text" {
		t.Errorf("Unexpected document: %+v", a)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name, file, want string
	}{
		{"Student", "essay.docx", "Student (essay.docx)"},
		{"Student", "", "Student"},
		{"", "essay.txt", "essay.txt"},
		{"", "", ""},
	}
	for _, tt := range tests {
		d := &Document{Name: tt.name, Filename: tt.file}
		if got := d.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.name, tt.file, got, tt.want)
		}
	}
}

func TestEarlierThan(t *testing.T) {
	early := &CandidateSource{CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	late := &CandidateSource{CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	web := &CandidateSource{}

	if !early.EarlierThan(late) || late.EarlierThan(early) {
		t.Error("Dated sources should order by submission time")
	}
	if !late.EarlierThan(web) || web.EarlierThan(late) {
		t.Error("Undated sources should order after dated ones")
	}
	if web.EarlierThan(&CandidateSource{}) {
		t.Error("Two undated sources are not ordered")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	base := errors.New("boom")
	errs := []error{
		&ExtractionError{Err: base},
		&EmbeddingError{Err: base},
		&FetchError{URL: "https://example.com", Err: base},
		&SearchError{Query: "q", Err: base},
	}
	for _, err := range errs {
		wrapped := fmt.Errorf("context: %w", err)
		if !errors.Is(wrapped, base) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}

func TestVerdictHasNote(t *testing.T) {
	v := &Verdict{Notes: []Annotation{{Code: NoteEmptyCorpus}}}
	if !v.HasNote(NoteEmptyCorpus) || v.HasNote(NoteWebDisabled) {
		t.Error("HasNote mismatch")
	}
}

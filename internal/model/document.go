package model

import (
	"time"

	"github.com/google/uuid"
)

// SourceLabel tells where a document or candidate source came from
type SourceLabel string

const (
	LabelLocal SourceLabel = "local" // Prior submission from the corpus
	LabelWeb   SourceLabel = "web"   // Page discovered through web search
)

// Document is a submitted text split into ordered segments.
// Once stored in the corpus it is never modified.
type Document struct {
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`     // Submitter
	Filename  string      `json:"filename,omitempty"` // Original upload name
	RawText   string      `json:"-"`
	Segments  []Segment   `json:"segments"`
	Label     SourceLabel `json:"label"`
	CreatedAt time.Time   `json:"created_at"`
}

// Segment is a normalized unit of text with its cached embedding.
// A nil Embedding marks the segment as unembeddable.
type Segment struct {
	Position  int       `json:"position"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// Embedded reports whether the segment carries a usable vector
func (s Segment) Embedded() bool {
	return len(s.Embedding) > 0
}

// NewDocument builds a local document with a fresh random ID. Every
// submission is its own document, even when its text repeats an archived
// one; the corpus deduplicates by content hash on archive.
func NewDocument(name, rawText string, segments []Segment, createdAt time.Time) *Document {
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		RawText:   rawText,
		Segments:  segments,
		Label:     LabelLocal,
		CreatedAt: createdAt,
	}
}

// DisplayName renders the submitter and file as "name (file)"
func (d *Document) DisplayName() string {
	switch {
	case d.Name == "":
		return d.Filename
	case d.Filename == "":
		return d.Name
	}
	return d.Name + " (" + d.Filename + ")"
}

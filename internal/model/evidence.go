package model

import "time"

// FetchStatus records how a candidate source was obtained
type FetchStatus string

const (
	FetchOK      FetchStatus = "ok"      // Fetched and extracted
	FetchCached  FetchStatus = "cached"  // Served from the page cache
	FetchStored  FetchStatus = "stored"  // Loaded from the local corpus
	FetchFailed  FetchStatus = "failed"  // Fetch or extraction failed
	FetchSkipped FetchStatus = "skipped" // Disallowed by robots.txt or non-text
)

// CandidateSource is a document (local or web) compared against the target.
// Web candidates are transient and discarded after scoring.
type CandidateSource struct {
	ID          string      `json:"id"`              // Document ID or URL
	Label       SourceLabel `json:"label"`           // local or web
	Title       string      `json:"title,omitempty"` // Submitter name or page title
	URL         string      `json:"url,omitempty"`
	CreatedAt   time.Time   `json:"created_at,omitempty"` // Submission time for local sources
	Segments    []Segment   `json:"-"`
	FetchStatus FetchStatus `json:"fetch_status"`
}

// Match links a target segment to a source segment by position.
// Score is the cosine similarity of both embeddings clipped to [0,1].
type Match struct {
	TargetPosition int     `json:"target_position"`
	SourceID       string  `json:"source_id"`
	SourcePosition int     `json:"source_position"`
	Score          float64 `json:"score"`
}

// SegmentText returns the text of the segment at the given position
func (c *CandidateSource) SegmentText(position int) string {
	for _, s := range c.Segments {
		if s.Position == position {
			return s.Text
		}
	}
	return ""
}

// EarlierThan reports whether c was submitted before other. Sources
// without a submission time (web pages) order after every dated source.
func (c *CandidateSource) EarlierThan(other *CandidateSource) bool {
	switch {
	case c.CreatedAt.IsZero():
		return false
	case other.CreatedAt.IsZero():
		return true
	}
	return c.CreatedAt.Before(other.CreatedAt)
}

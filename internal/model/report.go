package model

// Report is the presentation-agnostic result of a check.
// Any UI renders this structure; field names are a stable contract.
type Report struct {
	DocumentID      string           `json:"document_id"`
	Name            string           `json:"name,omitempty"`
	OverallScore    float64          `json:"overall_score"`
	Severity        Severity         `json:"severity"`
	SegmentCount    int              `json:"segment_count"`
	FlaggedSegments []FlaggedSegment `json:"flagged_segments"`
	Sources         []SourceSummary  `json:"sources"`
	Annotations     []Annotation     `json:"annotations,omitempty"`
	Summary         *ReviewerSummary `json:"reviewer_summary,omitempty"`
}

// ReviewerSummary is an optional generated narrative of the report.
// It may only cite URLs of the report's own sources.
type ReviewerSummary struct {
	Text      string   `json:"text"`
	Provider  string   `json:"provider"`
	Model     string   `json:"model"`
	CitedURLs []string `json:"cited_urls,omitempty"`
}

// FlaggedSegment is a target segment covered by at least one match,
// annotated with its best-matching source.
type FlaggedSegment struct {
	Position    int         `json:"position"`
	Text        string      `json:"text"`
	SourceID    string      `json:"source_id"`
	SourceLabel SourceLabel `json:"source_label"`
	SourceText  string      `json:"source_text,omitempty"`
	Score       float64     `json:"score"`
}

// SourceSummary describes one ranked source with example excerpts
type SourceSummary struct {
	Rank            int         `json:"rank"`
	ID              string      `json:"id"`
	Label           SourceLabel `json:"label"`
	Title           string      `json:"title,omitempty"`
	URL             string      `json:"url,omitempty"`
	Score           float64     `json:"score"`
	MatchedSegments int         `json:"matched_segments"`
	Excerpts        []Excerpt   `json:"excerpts"`
}

// Excerpt pairs a target passage with the source passage it matched
type Excerpt struct {
	TargetText string  `json:"target_text"`
	SourceText string  `json:"source_text"`
	Score      float64 `json:"score"`
}

// Severity bands the overall score for display
type Severity string

const (
	SeverityClean    Severity = "clean"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

// SeverityFor maps an overall score to its band
func SeverityFor(score float64) Severity {
	switch {
	case score > 0.8:
		return SeverityCritical
	case score > 0.5:
		return SeverityModerate
	case score > 0:
		return SeverityLow
	default:
		return SeverityClean
	}
}

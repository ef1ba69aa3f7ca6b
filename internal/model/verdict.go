package model

// Verdict is the scored outcome of one check.
// It is constructed once by the aggregator and never mutated afterwards.
type Verdict struct {
	DocumentID   string         `json:"document_id"`
	SegmentCount int            `json:"segment_count"`
	OverallScore float64        `json:"overall_score"` // Union coverage in [0,1]
	Sources      []RankedSource `json:"sources"`
	Notes        []Annotation   `json:"notes,omitempty"`

	// Target keeps the checked document's segments for excerpting
	Target *Document `json:"-"`
}

// RankedSource is one candidate source with its aggregate score and
// deduplicated matches (at most one per target segment).
type RankedSource struct {
	Source          CandidateSource `json:"source"`
	Score           float64         `json:"score"`            // Coverage ratio of target segments
	MatchedSegments int             `json:"matched_segments"` // Distinct target segments matched
	Matches         []Match         `json:"matches"`          // Ordered by target position
}

// AnnotationCode classifies a degraded-result condition
type AnnotationCode string

const (
	NoteEmptyDocument          AnnotationCode = "empty_document"
	NoteEmptyCorpus            AnnotationCode = "empty_corpus"
	NoteUnembeddableSegments   AnnotationCode = "unembeddable_segments"
	NoteWebDisabled            AnnotationCode = "web_disabled"
	NoteWebSearchFailed        AnnotationCode = "web_search_failed"
	NoteWebEvidenceUnavailable AnnotationCode = "web_evidence_unavailable"
	NoteFetchFailures          AnnotationCode = "fetch_failures"
	NotePartialWebEvidence     AnnotationCode = "partial_web_evidence"
	NoteLocalMatchFailed       AnnotationCode = "local_match_failed"
	NoteSummaryFailed          AnnotationCode = "summary_failed"
)

// Annotation surfaces a degraded condition in the report
type Annotation struct {
	Code    AnnotationCode `json:"code"`
	Message string         `json:"message"`
}

// HasNote reports whether the verdict carries the given annotation
func (v *Verdict) HasNote(code AnnotationCode) bool {
	for _, n := range v.Notes {
		if n.Code == code {
			return true
		}
	}
	return false
}

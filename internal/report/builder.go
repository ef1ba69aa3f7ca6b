// Package report turns a verdict into the presentation-agnostic report
// and renders it as JSON, Markdown, XLSX or a terminal summary.
package report

import (
	"sort"

	"github.com/ppiankov/openplag/internal/model"
)

// DefaultExcerpts is the number of excerpt pairs kept per source
const DefaultExcerpts = 3

// Build assembles the report for v. It has no side effects; the same
// verdict always yields the same report.
func Build(v model.Verdict, excerpts int) model.Report {
	if excerpts <= 0 {
		excerpts = DefaultExcerpts
	}

	r := model.Report{
		DocumentID:      v.DocumentID,
		OverallScore:    v.OverallScore,
		Severity:        model.SeverityFor(v.OverallScore),
		SegmentCount:    v.SegmentCount,
		FlaggedSegments: flaggedSegments(v),
		Sources:         make([]model.SourceSummary, 0, len(v.Sources)),
	}
	if v.Target != nil {
		r.Name = v.Target.DisplayName()
	}

	for i := range v.Sources {
		r.Sources = append(r.Sources, summarize(v, i, excerpts))
	}

	if len(v.Notes) > 0 {
		r.Annotations = append([]model.Annotation(nil), v.Notes...)
	}

	return r
}

// flaggedSegments lists every matched target segment with its best source.
// Sources are already ranked, so on equal scores the higher-ranked one wins.
func flaggedSegments(v model.Verdict) []model.FlaggedSegment {
	best := make(map[int]model.FlaggedSegment)
	for i := range v.Sources {
		src := &v.Sources[i].Source
		for _, m := range v.Sources[i].Matches {
			if cur, ok := best[m.TargetPosition]; ok && cur.Score >= m.Score {
				continue
			}
			best[m.TargetPosition] = model.FlaggedSegment{
				Position:    m.TargetPosition,
				Text:        targetText(v, m.TargetPosition),
				SourceID:    src.ID,
				SourceLabel: src.Label,
				SourceText:  src.SegmentText(m.SourcePosition),
				Score:       m.Score,
			}
		}
	}

	flagged := make([]model.FlaggedSegment, 0, len(best))
	for _, f := range best {
		flagged = append(flagged, f)
	}
	sort.Slice(flagged, func(i, j int) bool { return flagged[i].Position < flagged[j].Position })
	return flagged
}

func summarize(v model.Verdict, i int, excerpts int) model.SourceSummary {
	rs := v.Sources[i]

	matches := append([]model.Match(nil), rs.Matches...)
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].TargetPosition < matches[b].TargetPosition
	})
	if len(matches) > excerpts {
		matches = matches[:excerpts]
	}

	summary := model.SourceSummary{
		Rank:            i + 1,
		ID:              rs.Source.ID,
		Label:           rs.Source.Label,
		Title:           rs.Source.Title,
		URL:             rs.Source.URL,
		Score:           rs.Score,
		MatchedSegments: rs.MatchedSegments,
		Excerpts:        make([]model.Excerpt, 0, len(matches)),
	}
	for _, m := range matches {
		summary.Excerpts = append(summary.Excerpts, model.Excerpt{
			TargetText: targetText(v, m.TargetPosition),
			SourceText: rs.Source.SegmentText(m.SourcePosition),
			Score:      m.Score,
		})
	}
	return summary
}

func targetText(v model.Verdict, position int) string {
	if v.Target == nil {
		return ""
	}
	for _, s := range v.Target.Segments {
		if s.Position == position {
			return s.Text
		}
	}
	return ""
}

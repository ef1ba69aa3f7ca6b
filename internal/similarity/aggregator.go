package similarity

import (
	"sort"

	"github.com/ppiankov/openplag/internal/model"
)

// DefaultThreshold is the minimum cosine similarity that counts as a match
const DefaultThreshold = 0.75

// Aggregator turns pairwise segment similarity into a ranked verdict
type Aggregator struct {
	threshold float64
}

// NewAggregator creates an aggregator. Thresholds outside (0,1] fall back
// to DefaultThreshold.
func NewAggregator(threshold float64) *Aggregator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Aggregator{threshold: threshold}
}

// Threshold returns the effective match threshold
func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

// Aggregate scores target against every source. The result depends only on
// the embeddings, so identical inputs always yield an identical verdict.
func (a *Aggregator) Aggregate(target *model.Document, sources []model.CandidateSource) model.Verdict {
	verdict := model.Verdict{
		DocumentID:   target.ID,
		SegmentCount: len(target.Segments),
		Sources:      []model.RankedSource{},
		Target:       target,
	}
	if verdict.SegmentCount == 0 {
		return verdict
	}

	covered := make(map[int]bool)
	for i := range sources {
		src := &sources[i]
		if src.ID == target.ID {
			continue
		}

		// 1-2. Threshold pairs, keep the best match per target segment
		matches := a.bestMatches(target, src)
		if len(matches) == 0 {
			continue
		}

		// 3. Coverage ratio for this source
		for _, m := range matches {
			covered[m.TargetPosition] = true
		}
		verdict.Sources = append(verdict.Sources, model.RankedSource{
			Source:          *src,
			Score:           float64(len(matches)) / float64(verdict.SegmentCount),
			MatchedSegments: len(matches),
			Matches:         matches,
		})
	}

	// 4. Union coverage so a segment matching many sources counts once
	verdict.OverallScore = float64(len(covered)) / float64(verdict.SegmentCount)

	// 5. Total order over sources
	sort.SliceStable(verdict.Sources, func(i, j int) bool {
		return rankBefore(&verdict.Sources[i], &verdict.Sources[j])
	})

	return verdict
}

// bestMatches keeps at most one match per target segment, the highest
// scoring one, with ties going to the lowest source position
func (a *Aggregator) bestMatches(target *model.Document, src *model.CandidateSource) []model.Match {
	best := make(map[int]model.Match)
	for _, ts := range target.Segments {
		if !ts.Embedded() {
			continue
		}
		for _, ss := range src.Segments {
			if !ss.Embedded() {
				continue
			}
			score := Cosine(ts.Embedding, ss.Embedding)
			if score < a.threshold {
				continue
			}
			cur, ok := best[ts.Position]
			if ok && (score < cur.Score || (score == cur.Score && ss.Position >= cur.SourcePosition)) {
				continue
			}
			best[ts.Position] = model.Match{
				TargetPosition: ts.Position,
				SourceID:       src.ID,
				SourcePosition: ss.Position,
				Score:          score,
			}
		}
	}

	matches := make([]model.Match, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].TargetPosition < matches[j].TargetPosition
	})
	return matches
}

// rankBefore orders by score, then matched count, then earlier submission,
// then ID
func rankBefore(x, y *model.RankedSource) bool {
	if x.Score != y.Score {
		return x.Score > y.Score
	}
	if x.MatchedSegments != y.MatchedSegments {
		return x.MatchedSegments > y.MatchedSegments
	}
	if x.Source.EarlierThan(&y.Source) {
		return true
	}
	if y.Source.EarlierThan(&x.Source) {
		return false
	}
	return x.Source.ID < y.Source.ID
}

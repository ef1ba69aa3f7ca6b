package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/openplag/internal/model"
)

// DefaultTopK is the number of stored segments retrieved per target segment
const DefaultTopK = 5

// Matcher finds prior submissions similar to a document and archives new
// ones. It owns the index kept in step with the store.
type Matcher struct {
	store    Store
	index    *Index
	topK     int
	minScore float64
}

// NewMatcher creates a matcher over store. Hits scoring below minScore do
// not pull their document in as a candidate.
func NewMatcher(store Store, index *Index, topK int, minScore float64) *Matcher {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if index == nil {
		index = NewIndex()
	}
	return &Matcher{store: store, index: index, topK: topK, minScore: minScore}
}

// Load fills the index from the store
func (m *Matcher) Load(ctx context.Context) error {
	return m.index.Load(ctx, m.store)
}

// Store returns the underlying corpus store
func (m *Matcher) Store() Store { return m.store }

// Indexed returns the number of searchable segments
func (m *Matcher) Indexed() int { return m.index.Len() }

// MatchLocal returns the stored documents holding one of the top-K
// segments for an embedded segment of doc. Only the index narrows the
// corpus here; scoring is left to the aggregator, which compares every
// segment pair of the returned sources. A stored document being re-checked
// under its own ID never matches itself. Sources are ordered by submission
// time, then ID.
func (m *Matcher) MatchLocal(ctx context.Context, doc *model.Document) ([]model.CandidateSource, error) {
	selected := make(map[string]bool)
	for _, seg := range doc.Segments {
		if !seg.Embedded() {
			continue
		}
		for _, hit := range m.index.Search(seg.Embedding, m.topK, doc.ID) {
			if hit.Score >= m.minScore {
				selected[hit.DocumentID] = true
			}
		}
	}

	out := make([]model.CandidateSource, 0, len(selected))
	for id := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stored, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load candidate %s: %w", id, err)
		}
		out = append(out, model.CandidateSource{
			ID:          stored.ID,
			Label:       model.LabelLocal,
			Title:       stored.DisplayName(),
			CreatedAt:   stored.CreatedAt,
			Segments:    stored.Segments,
			FetchStatus: model.FetchStored,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// Archive stores doc and makes it searchable. An identical document
// already in the corpus returns its ID with model.ErrAlreadyArchived.
func (m *Matcher) Archive(ctx context.Context, doc *model.Document) (string, error) {
	id, err := m.store.Store(ctx, doc)
	if errors.Is(err, model.ErrAlreadyArchived) {
		return id, err
	}
	if err != nil {
		return "", err
	}

	// Pick up the stored timestamp so tie-breaks agree with the store
	stored, err := m.store.Get(ctx, id)
	if err != nil {
		return id, fmt.Errorf("reload archived document: %w", err)
	}
	m.index.Add(stored)
	return id, nil
}

// Clear empties the corpus and the index
func (m *Matcher) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.index.Reset()
	return nil
}

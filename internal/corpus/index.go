package corpus

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/openplag/internal/model"
)

// Hit is one stored segment returned by an index search
type Hit struct {
	DocumentID string
	Position   int
	CreatedAt  time.Time
	Score      float64
}

type entry struct {
	docID    string
	position int
	created  time.Time
	vec      []float32 // unit length
}

// Index is a flat in-memory index over every stored embedding. Readers
// search an immutable snapshot without locking; writers build a new
// snapshot and swap it in.
type Index struct {
	mu      sync.Mutex // serializes writers
	entries atomic.Pointer[[]entry]
	docs    map[string]bool
}

// NewIndex creates an empty index
func NewIndex() *Index {
	ix := &Index{docs: make(map[string]bool)}
	empty := []entry{}
	ix.entries.Store(&empty)
	return ix
}

// Load streams every embedding from store into the index. Documents
// already indexed are skipped.
func (ix *Index) Load(ctx context.Context, store Store) error {
	var loaded []entry
	seen := make(map[string]bool)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for rec, err := range store.Embeddings(ctx) {
		if err != nil {
			return fmt.Errorf("load index: %w", err)
		}
		if ix.docs[rec.DocumentID] {
			continue
		}
		seen[rec.DocumentID] = true
		if e, ok := newEntry(rec.DocumentID, rec.Position, rec.CreatedAt, rec.Embedding); ok {
			loaded = append(loaded, e)
		}
	}

	ix.publish(loaded)
	for id := range seen {
		ix.docs[id] = true
	}
	return nil
}

// Add indexes the embedded segments of a newly stored document
func (ix *Index) Add(doc *model.Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.docs[doc.ID] {
		return
	}

	var added []entry
	for _, seg := range doc.Segments {
		if e, ok := newEntry(doc.ID, seg.Position, doc.CreatedAt, seg.Embedding); ok {
			added = append(added, e)
		}
	}
	ix.publish(added)
	ix.docs[doc.ID] = true
}

// publish appends to a fresh snapshot; callers hold mu
func (ix *Index) publish(added []entry) {
	if len(added) == 0 {
		return
	}
	old := *ix.entries.Load()
	// Capping capacity forces a copy so readers of old never see new entries
	next := append(old[:len(old):len(old)], added...)
	ix.entries.Store(&next)
}

// Reset empties the index
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	empty := []entry{}
	ix.entries.Store(&empty)
	ix.docs = make(map[string]bool)
}

// Len returns the number of indexed segments
func (ix *Index) Len() int {
	return len(*ix.entries.Load())
}

// Search returns the k stored segments most similar to vec, skipping the
// excluded document. Equal scores prefer the earlier submission.
func (ix *Index) Search(vec []float32, k int, exclude string) []Hit {
	if k <= 0 {
		return nil
	}
	query, ok := unit(vec)
	if !ok {
		return nil
	}

	snapshot := *ix.entries.Load()
	top := make([]Hit, 0, k+1)
	for i := range snapshot {
		e := &snapshot[i]
		if e.docID == exclude || len(e.vec) != len(query) {
			continue
		}

		var dot float64
		for j, x := range query {
			dot += float64(x) * float64(e.vec[j])
		}
		hit := Hit{DocumentID: e.docID, Position: e.position, CreatedAt: e.created, Score: clip(dot)}

		if len(top) == k && !hitBefore(hit, top[k-1]) {
			continue
		}
		// Insertion keeps top sorted; k is small
		pos := len(top)
		for pos > 0 && hitBefore(hit, top[pos-1]) {
			pos--
		}
		top = append(top, Hit{})
		copy(top[pos+1:], top[pos:])
		top[pos] = hit
		if len(top) > k {
			top = top[:k]
		}
	}
	return top
}

func hitBefore(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.DocumentID != b.DocumentID {
		return a.DocumentID < b.DocumentID
	}
	return a.Position < b.Position
}

func newEntry(docID string, position int, created time.Time, vec []float32) (entry, bool) {
	u, ok := unit(vec)
	if !ok {
		return entry{}, false
	}
	return entry{docID: docID, position: position, created: created, vec: u}, true
}

// unit returns a normalized copy of v, or false for degenerate vectors
func unit(v []float32) ([]float32, bool) {
	var norm float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		norm += f * f
	}
	if norm == 0 {
		return nil, false
	}
	inv := 1 / math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out, true
}

func clip(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

package corpus

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/ppiankov/openplag/internal/model"
)

// MemoryStore is the process-local Store behind corpus.path ":memory:"
type MemoryStore struct {
	mu     sync.RWMutex
	docs   []*model.Document
	byID   map[string]*model.Document
	byHash map[string]string
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory corpus
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*model.Document),
		byHash: make(map[string]string),
		now:    time.Now,
	}
}

// Store appends a copy of doc
func (m *MemoryStore) Store(ctx context.Context, doc *model.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hash := ContentHash(doc.RawText)

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byHash[hash]; ok {
		return id, model.ErrAlreadyArchived
	}
	if _, ok := m.byID[doc.ID]; ok {
		return doc.ID, model.ErrAlreadyArchived
	}

	stored := *doc
	stored.Label = model.LabelLocal
	stored.Segments = cloneSegments(doc.Segments)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.now()
	}

	m.docs = append(m.docs, &stored)
	m.byID[stored.ID] = &stored
	m.byHash[hash] = stored.ID
	return stored.ID, nil
}

// Get returns a copy of one document
func (m *MemoryStore) Get(ctx context.Context, id string) (*model.Document, error) {
	m.mu.RLock()
	doc, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, model.ErrNotFound)
	}
	out := *doc
	out.Segments = cloneSegments(doc.Segments)
	return &out, nil
}

// QueryAll iterates over a snapshot of the stored documents
func (m *MemoryStore) QueryAll(ctx context.Context) iter.Seq2[*model.Document, error] {
	m.mu.RLock()
	snapshot := m.docs[:len(m.docs):len(m.docs)]
	m.mu.RUnlock()

	return func(yield func(*model.Document, error) bool) {
		for _, doc := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			out := *doc
			out.Segments = cloneSegments(doc.Segments)
			if !yield(&out, nil) {
				return
			}
		}
	}
}

// Segments returns the segments of one document
func (m *MemoryStore) Segments(ctx context.Context, id string) ([]model.Segment, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Segments, nil
}

// Embeddings iterates over every embedded segment of a snapshot
func (m *MemoryStore) Embeddings(ctx context.Context) iter.Seq2[SegmentRecord, error] {
	m.mu.RLock()
	snapshot := m.docs[:len(m.docs):len(m.docs)]
	m.mu.RUnlock()

	return func(yield func(SegmentRecord, error) bool) {
		for _, doc := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(SegmentRecord{}, err)
				return
			}
			for _, seg := range doc.Segments {
				if !seg.Embedded() {
					continue
				}
				rec := SegmentRecord{
					DocumentID: doc.ID,
					Position:   seg.Position,
					CreatedAt:  doc.CreatedAt,
					Embedding:  seg.Embedding,
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// Count returns the number of stored documents
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

// Clear drops every document
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	m.byID = make(map[string]*model.Document)
	m.byHash = make(map[string]string)
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }

func cloneSegments(segs []model.Segment) []model.Segment {
	if segs == nil {
		return nil
	}
	out := make([]model.Segment, len(segs))
	copy(out, segs)
	return out
}

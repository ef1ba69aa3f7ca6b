// Package corpus holds prior submissions and finds the stored segments
// closest to a new document.
//
// The store is append-only: documents are never modified once written, so
// concurrent checks may read while a new submission is archived. Clear is
// the one exception and is meant for maintenance, not concurrent use.
package corpus

import (
	"bytes"
	"context"
	"encoding/binary"
	"iter"
	"time"

	"github.com/ppiankov/openplag/internal/model"
)

// Store is the durable corpus. Implementations must allow concurrent reads
// alongside appends.
type Store interface {
	// Store appends doc and returns its ID. A document with the same
	// content returns the existing ID and model.ErrAlreadyArchived.
	Store(ctx context.Context, doc *model.Document) (string, error)

	// Get returns one document with its segments and embeddings
	Get(ctx context.Context, id string) (*model.Document, error)

	// QueryAll streams stored documents in submission order without
	// loading the corpus into memory
	QueryAll(ctx context.Context) iter.Seq2[*model.Document, error]

	// Segments returns the segments of one document
	Segments(ctx context.Context, id string) ([]model.Segment, error)

	// Embeddings streams every embedded segment in submission order
	Embeddings(ctx context.Context) iter.Seq2[SegmentRecord, error]

	// Count returns the number of stored documents
	Count(ctx context.Context) (int64, error)

	// Clear deletes every stored document
	Clear(ctx context.Context) error

	Close() error
}

// MemoryPath selects a process-local corpus that is discarded on exit
const MemoryPath = ":memory:"

// Open returns the store for a configured corpus path
func Open(path string) (Store, error) {
	if path == MemoryPath {
		return NewMemoryStore(), nil
	}
	return OpenSQLite(path)
}

// SegmentRecord is one stored embedding with enough context to rank it
type SegmentRecord struct {
	DocumentID string
	Position   int
	CreatedAt  time.Time
	Embedding  []float32
}

// EncodeVector packs v as little-endian float32s
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// DecodeVector unpacks a vector written by EncodeVector
func DecodeVector(b []byte) []float32 {
	n := len(b) / 4
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	_ = binary.Read(bytes.NewReader(b[:n*4]), binary.LittleEndian, &out)
	return out
}

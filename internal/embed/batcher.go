package embed

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/ppiankov/openplag/internal/model"
	"golang.org/x/sync/errgroup"
)

// Batcher embeds segments in concurrent batches and degrades failures to
// unembeddable segments instead of failing the document
type Batcher struct {
	provider    Provider
	batchSize   int
	concurrency int
	logger      *slog.Logger
	dimension   atomic.Int64
}

// Stats counts the outcome of one EmbedSegments call
type Stats struct {
	Embedded int
	Failed   int
}

// NewBatcher creates a batcher around provider
func NewBatcher(provider Provider, batchSize, concurrency int, logger *slog.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = 32
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batcher{
		provider:    provider,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
	b.dimension.Store(int64(provider.Dimension()))
	return b
}

// EmbedSegments fills in Embedding for every segment in place. Segments
// whose text the provider rejects, or whose vector is degenerate, keep a
// nil embedding. Only context cancellation is returned as an error.
func (b *Batcher) EmbedSegments(ctx context.Context, segments []model.Segment) (Stats, error) {
	var stats Stats
	if len(segments) == 0 {
		return stats, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(segments); start += b.batchSize {
		end := min(start+b.batchSize, len(segments))
		batch := segments[start:end]
		g.Go(func() error {
			return b.embedBatch(gctx, batch)
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, s := range segments {
		if s.Embedded() {
			stats.Embedded++
		} else {
			stats.Failed++
		}
	}
	return stats, nil
}

func (b *Batcher) embedBatch(ctx context.Context, batch []model.Segment) error {
	texts := make([]string, len(batch))
	for i, s := range batch {
		texts[i] = s.Text
	}

	vecs, err := b.provider.Embed(ctx, texts)
	if err == nil && len(vecs) == len(batch) {
		for i := range batch {
			batch[i].Embedding = b.accept(vecs[i])
		}
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b.logger.Warn("embedding batch failed, retrying per segment",
		"provider", b.provider.Name(),
		"error", &model.EmbeddingError{Provider: b.provider.Name(), Count: len(texts), Err: err})

	// One bad input must not sink its whole batch
	for i := range batch {
		vec, err := b.provider.Embed(ctx, texts[i:i+1])
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil || len(vec) != 1 {
			b.logger.Debug("segment unembeddable", "position", batch[i].Position, "error", err)
			batch[i].Embedding = nil
			continue
		}
		batch[i].Embedding = b.accept(vec[0])
	}
	return nil
}

// accept validates v and returns a unit-length copy, or nil when v is
// degenerate. A provider without a fixed dimension is pinned to the size
// of its first valid vector.
func (b *Batcher) accept(v []float32) []float32 {
	dim := int(b.dimension.Load())
	if dim == 0 && len(v) > 0 {
		b.dimension.CompareAndSwap(0, int64(len(v)))
		dim = int(b.dimension.Load())
	}
	if !Valid(v, dim) {
		return nil
	}
	return Normalize(append([]float32(nil), v...))
}

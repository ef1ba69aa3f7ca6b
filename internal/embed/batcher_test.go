package embed

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProvider fails any batch containing "poison" and returns a zero
// vector for "blank"
type flakyProvider struct {
	calls atomic.Int32
}

func (p *flakyProvider) Name() string   { return "flaky" }
func (p *flakyProvider) Dimension() int { return 0 }

func (p *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		switch {
		case strings.Contains(text, "poison"):
			return nil, errors.New("rejected input")
		case strings.Contains(text, "blank"):
			out[i] = []float32{0, 0, 0}
		case strings.Contains(text, "short"):
			out[i] = []float32{1, 1}
		default:
			out[i] = []float32{3, 4, 0}
		}
	}
	return out, nil
}

func segments(texts ...string) []model.Segment {
	segs := make([]model.Segment, len(texts))
	for i, text := range texts {
		segs[i] = model.Segment{Position: i, Text: text}
	}
	return segs
}

func TestBatcher_EmbedsAndNormalizes(t *testing.T) {
	b := NewBatcher(NewHashingProvider(64), 2, 2, nil)
	segs := segments("the quick brown fox jumps", "over the lazy dog again", "a third sentence here")

	stats, err := b.EmbedSegments(context.Background(), segs)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Embedded)
	assert.Zero(t, stats.Failed)

	for _, s := range segs {
		require.Len(t, s.Embedding, 64)
		var norm float64
		for _, x := range s.Embedding {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestBatcher_DegradesBadSegments(t *testing.T) {
	p := &flakyProvider{}
	b := NewBatcher(p, 4, 1, nil)
	segs := segments("fine one", "poison pill", "blank page", "fine two", "short vector")

	stats, err := b.EmbedSegments(context.Background(), segs)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Embedded)
	assert.Equal(t, 3, stats.Failed)
	assert.True(t, segs[0].Embedded())
	assert.False(t, segs[1].Embedded(), "rejected text is unembeddable")
	assert.False(t, segs[2].Embedded(), "zero vector is unembeddable")
	assert.True(t, segs[3].Embedded())
	assert.False(t, segs[4].Embedded(), "dimension mismatch is unembeddable")

	assert.InDelta(t, 0.6, segs[0].Embedding[0], 1e-6)
}

func TestBatcher_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBatcher(NewHashingProvider(16), 1, 1, nil)
	_, err := b.EmbedSegments(ctx, segments("some text to embed"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatcher_Empty(t *testing.T) {
	b := NewBatcher(&flakyProvider{}, 8, 2, nil)
	stats, err := b.EmbedSegments(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestCached_ServesRepeats(t *testing.T) {
	p := &flakyProvider{}
	c, err := NewCached(p, 16)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load())

	vecs, err := c.Embed(context.Background(), []string{"beta", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.calls.Load(), "second call should be fully cached")
	assert.Len(t, vecs, 2)

	_, err = c.Embed(context.Background(), []string{"alpha", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.calls.Load())
	assert.Equal(t, 3, c.Len())
}

func TestCached_SkipsDegenerate(t *testing.T) {
	c, err := NewCached(&flakyProvider{}, 16)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), []string{"blank"})
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestHashingProvider_Deterministic(t *testing.T) {
	p := NewHashingProvider(128)
	a, err := p.Embed(context.Background(), []string{"Plagiarism is the copying of ideas."})
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), []string{"Plagiarism is the copying of ideas."})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashingProvider_SimilarTextsCloser(t *testing.T) {
	p := NewHashingProvider(384)
	vecs, err := p.Embed(context.Background(), []string{
		"The mitochondria is the powerhouse of the cell and produces energy.",
		"The mitochondria is the powerhouse of the cell, producing energy.",
		"Stock markets fell sharply after the central bank raised rates.",
	})
	require.NoError(t, err)

	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}

	near := dot(vecs[0], vecs[1])
	far := dot(vecs[0], vecs[2])
	assert.Greater(t, near, 0.75)
	assert.Less(t, far, near)
	assert.InDelta(t, dot(vecs[1], vecs[0]), near, 1e-9)
}

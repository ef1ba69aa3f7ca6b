package embed

import (
	"context"
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes a provider's vectors by text hash. Segments repeat
// across checks (shared boilerplate, resubmissions, cached web pages), so
// a bounded LRU saves most provider calls.
type Cached struct {
	inner Provider
	cache *lru.Cache[[sha256.Size]byte, []float32]
}

// NewCached wraps inner with an LRU of the given size
func NewCached(inner Provider, size int) (*Cached, error) {
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[[sha256.Size]byte, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Name returns the wrapped provider name
func (c *Cached) Name() string { return c.inner.Name() }

// Dimension returns the wrapped provider dimension
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Embed serves cached vectors and forwards only the misses
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][sha256.Size]byte, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = sha256.Sum256([]byte(c.inner.Name() + "\x00" + text))
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, i := range missIdx {
		if j >= len(vecs) {
			break
		}
		out[i] = vecs[j]
		if Valid(vecs[j], 0) {
			c.cache.Add(keys[i], vecs[j])
		}
	}
	return out, nil
}

// Len returns the number of cached vectors
func (c *Cached) Len() int { return c.cache.Len() }

// Package embed maps text segments to fixed-length vectors.
//
// A Provider must be deterministic (the same text always yields the same
// vector within float tolerance) and its vectors must be comparable by
// cosine similarity. The pipeline never looks inside a provider.
package embed

import (
	"context"
	"math"
	"time"
)

// Provider defines the interface for embedding backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Dimension returns the fixed vector length
	Dimension() int

	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds embedding provider configuration
type Config struct {
	// Provider name: "hashing", "openai", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (OpenAI-compatible servers, Ollama)
	BaseURL string

	// Dimension of produced vectors
	Dimension int

	// Timeout for one API request
	Timeout time.Duration

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// Valid reports whether v is a usable vector of the given dimension.
// Zero-norm, NaN or Inf vectors are degenerate and cannot be matched.
func Valid(v []float32, dimension int) bool {
	if len(v) == 0 || (dimension > 0 && len(v) != dimension) {
		return false
	}
	var norm float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
		norm += f * f
	}
	return norm > 0
}

// Normalize scales v to unit length in place and returns it
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := 1 / math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

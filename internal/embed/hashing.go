package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// HashingProvider is an offline embedder that hashes word unigrams and
// bigrams into a fixed number of signed buckets. It catches verbatim and
// lightly edited copying without any model download; paraphrase detection
// needs a neural provider.
type HashingProvider struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// NewHashingProvider creates a hashing embedder with the given dimension
func NewHashingProvider(dimension int) *HashingProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashingProvider{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
	}
}

// Name returns the provider name
func (p *HashingProvider) Name() string { return "hashing" }

// Dimension returns the vector length
func (p *HashingProvider) Dimension() int { return p.dimension }

// Embed hashes every text independently. Texts without tokens produce a
// zero vector, which callers treat as unembeddable.
func (p *HashingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embedOne(text)
	}
	return out, nil
}

func (p *HashingProvider) embedOne(text string) []float32 {
	vec := make([]float32, p.dimension)
	tokens := p.tokenize(text)
	for i, tok := range tokens {
		p.add(vec, tok, 1)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return Normalize(vec)
}

func (p *HashingProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dimension))
	// The top bit picks the sign so collisions cancel out on average
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func (p *HashingProvider) tokenize(text string) []string {
	raw := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if stopwords[t] {
			continue
		}
		out = append(out, stem(t))
	}
	return out
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "or": true, "so": true, "than": true, "these": true, "those": true,
	"been": true, "being": true, "into": true, "which": true, "also": true,
}

// stem strips the most common English suffixes
func stem(word string) string {
	if len(word) < 4 {
		return word
	}
	for _, suffix := range []string{"ations", "ation", "ings", "ing", "edly", "ies", "ed", "es", "ly", "s"} {
		if strings.HasSuffix(word, suffix) && len(word)-len(suffix) >= 3 {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

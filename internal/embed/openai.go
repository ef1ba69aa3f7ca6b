package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/openplag/internal/util"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider embeds text through the OpenAI embeddings API or any
// OpenAI-compatible server
type OpenAIProvider struct {
	name      string
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	timeout   time.Duration
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := openai.EmbeddingModel(config.Model)
	if model == "" {
		model = openai.SmallEmbedding3
	}

	// Older models have a fixed size; it is learned from the first response
	dimension := config.Dimension
	if model != openai.SmallEmbedding3 && model != openai.LargeEmbedding3 {
		dimension = 0
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return newEmbeddingsProvider("openai", config, model, dimension, timeout), nil
}

func newEmbeddingsProvider(name string, config Config, model openai.EmbeddingModel, dimension int, timeout time.Duration) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = util.NewHTTPClient(0, config.HTTPProxy, config.HTTPSProxy)

	return &OpenAIProvider{
		name:      name,
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		dimension: dimension,
		timeout:   timeout,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Dimension returns the requested vector length, or 0 when the model decides
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Embed sends all texts in a single embeddings request
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	}
	if p.dimension > 0 {
		req.Dimensions = p.dimension
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", p.name, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("%s returned out-of-range index %d", p.name, item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

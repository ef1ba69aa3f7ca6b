package embed

import (
	"fmt"
	"strings"

	"github.com/ppiankov/openplag/internal/model"
)

// NewProvider creates an embedding provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "", "hashing":
		return NewHashingProvider(config.Dimension), nil

	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hashing, openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.EmbeddingConfig to embed.Config
func ConfigFromModel(cfg model.EmbeddingConfig, web model.WebConfig) Config {
	return Config{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Dimension:  cfg.Dimension,
		Timeout:    cfg.Timeout,
		HTTPProxy:  web.HTTPProxy,
		HTTPSProxy: web.HTTPSProxy,
	}
}

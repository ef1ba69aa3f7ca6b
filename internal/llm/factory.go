package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/openplag/internal/model"
)

// NewProvider creates an LLM provider based on configuration. An empty
// provider name returns nil: summaries are disabled.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown summary provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.SummaryConfig to llm.Config
func ConfigFromModel(cfg model.SummaryConfig, web model.WebConfig) Config {
	return Config{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxTokens:  cfg.MaxTokens,
		HTTPProxy:  web.HTTPProxy,
		HTTPSProxy: web.HTTPSProxy,
	}
}

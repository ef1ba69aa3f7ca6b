package embed

import (
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// NewOllamaProvider embeds text with a local Ollama server through its
// OpenAI-compatible /v1/embeddings endpoint. A base URL without the /v1
// suffix (as OLLAMA_BASE_URL is usually exported) gets it appended.
func NewOllamaProvider(config Config) (*OpenAIProvider, error) {
	config.BaseURL = ollamaBaseURL(config.BaseURL)
	if config.APIKey == "" {
		// Ignored by Ollama but sent by the client
		config.APIKey = "ollama"
	}

	model := config.Model
	if model == "" {
		model = "all-minilm"
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // Local models can be slow on first load
	}

	// Vector size is fixed by the pulled model
	return newEmbeddingsProvider("ollama", config, openai.EmbeddingModel(model), 0, timeout), nil
}

func ollamaBaseURL(raw string) string {
	if raw == "" {
		return defaultOllamaBaseURL
	}
	raw = strings.TrimSuffix(raw, "/")
	if !strings.HasSuffix(raw, "/v1") {
		raw += "/v1"
	}
	return raw
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/pipeline"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// loadConfig merges defaults, the config file, OPENPLAG_* variables and
// bound flags into a model.Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := setDefaults(cfg); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every default key with viper so that environment
// variables can override keys absent from the config file
func setDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	registerDefaults("", tree)
	return nil
}

func registerDefaults(prefix string, tree map[string]interface{}) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			registerDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// openPipeline loads configuration, lets the command adjust it and opens
// the pipeline
func openPipeline(ctx context.Context, adjust func(*model.Config)) (*pipeline.Pipeline, *model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}

	// Summary providers read their conventional key variables
	if cfg.Summary.APIKey == "" {
		switch cfg.Summary.Provider {
		case "openai":
			cfg.Summary.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.Summary.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Corpus: %s\n", cfg.Corpus.Path)
		fmt.Fprintf(os.Stderr, "Embedding: %s %s\n", cfg.Embedding.Provider, cfg.Embedding.Model)
		fmt.Fprintf(os.Stderr, "Web evidence: %v\n", cfg.Web.Enabled)
		if cfg.Summary.Provider != "" {
			fmt.Fprintf(os.Stderr, "Summary: %s %s\n", cfg.Summary.Provider, cfg.Summary.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open pipeline: %w", err)
	}
	return p, cfg, nil
}

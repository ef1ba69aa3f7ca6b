package cli

import (
	"testing"
	"time"

	"github.com/ppiankov/openplag/internal/cache"
	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Match.Threshold != 0.75 {
		t.Errorf("Expected threshold 0.75, got %v", cfg.Match.Threshold)
	}
	if cfg.Web.Budget != 60*time.Second {
		t.Errorf("Expected web budget 60s, got %v", cfg.Web.Budget)
	}
	if cfg.Corpus.Path != "openplag.db" {
		t.Errorf("Expected corpus path openplag.db, got %s", cfg.Corpus.Path)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("OPENPLAG_MATCH_THRESHOLD", "0.8")
	t.Setenv("OPENPLAG_WEB_ENABLED", "false")
	t.Setenv("OPENPLAG_WEB_BUDGET", "15s")
	t.Setenv("OPENPLAG_SUMMARY_PROVIDER", "anthropic")
	t.Setenv("OPENPLAG_EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	bindEnv()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Match.Threshold != 0.8 {
		t.Errorf("Expected threshold 0.8, got %v", cfg.Match.Threshold)
	}
	if cfg.Web.Enabled {
		t.Error("Expected web evidence disabled")
	}
	if cfg.Web.Budget != 15*time.Second {
		t.Errorf("Expected web budget 15s, got %v", cfg.Web.Budget)
	}
	if cfg.Summary.Provider != "anthropic" {
		t.Errorf("Expected summary provider anthropic, got %s", cfg.Summary.Provider)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("Expected API key from OPENAI_API_KEY, got %q", cfg.Embedding.APIKey)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"essays/My Essay: draft?.txt", "My-Essay_-draft_"},
		{"/tmp/report.md", "report"},
		{"noext", "noext"},
		{".txt", "document"},
		{"", "document"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCacheClear(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	viper.Set("cache.dir", dir)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if err := cache.New(cfg.Cache).Put(&cache.Page{URL: "https://example.com/a", Text: "Body."}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := cacheClearCmd.RunE(cacheClearCmd, nil); err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if _, ok := cache.New(cfg.Cache).Get("https://example.com/a"); ok {
		t.Error("Expected the cached page to be gone")
	}
}

func TestCacheClear_Disabled(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("cache.enabled", false)
	if err := cacheClearCmd.RunE(cacheClearCmd, nil); err != nil {
		t.Errorf("Expected no error with the cache disabled, got %v", err)
	}
}

package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/rootcauseai/rootcause/internal/llm"
)

// nopProvider satisfies llm.Provider for wiring tests.
type nopProvider struct{}

func (nopProvider) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	return &llm.Response{Content: "ok", Model: "test"}, nil
}

func (nopProvider) Heartbeat(ctx context.Context) error { return nil }

func (nopProvider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return true, nil
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("default provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("default openai model = %q, want gpt-4o-mini", cfg.LLM.OpenAI.Model)
	}
	if cfg.Analyze.ChunkSize != 2000 || cfg.Analyze.ChunkOverlap != 200 {
		t.Errorf("default chunking = %d/%d, want 2000/200", cfg.Analyze.ChunkSize, cfg.Analyze.ChunkOverlap)
	}
	if cfg.Analyze.MaxConcurrent != 5 {
		t.Errorf("default max_concurrent = %d, want 5", cfg.Analyze.MaxConcurrent)
	}
	if !cfg.Analyze.Preprocess || !cfg.Analyze.FilterDebug {
		t.Error("preprocessing should be enabled by default")
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("default cache ttl = %v, want 24h", cfg.Cache.TTL)
	}
	if cfg.RateLimit.PerMinute != 10 || cfg.RateLimit.PerHour != 100 || cfg.RateLimit.PerDay != 1000 {
		t.Errorf("default rate limits = %d/%d/%d, want 10/100/1000",
			cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour, cfg.RateLimit.PerDay)
	}
	if cfg.Costs.DailyBudget != 10.0 || cfg.Costs.MonthlyBudget != 100.0 {
		t.Errorf("default budgets = %v/%v, want 10/100", cfg.Costs.DailyBudget, cfg.Costs.MonthlyBudget)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes != 10485760 {
		t.Errorf("default max upload = %d, want 10485760", cfg.Server.MaxUploadBytes)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	viper.Reset()
	viper.SetEnvPrefix("ROOTCAUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	t.Setenv("ROOTCAUSE_ANALYZE_CHUNK_SIZE", "512")
	t.Setenv("ROOTCAUSE_LLM_PROVIDER", "ollama")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Analyze.ChunkSize != 512 {
		t.Errorf("chunk size = %d, want 512 from environment", cfg.Analyze.ChunkSize)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama from environment", cfg.LLM.Provider)
	}
}

func TestModelFor(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Ollama.Model = "llama3.2"
	cfg.LLM.OpenAI.Model = "gpt-4o-mini"
	cfg.LLM.Anthropic.Model = "claude-3-5-haiku-latest"

	tests := []struct {
		provider string
		want     string
	}{
		{"ollama", "llama3.2"},
		{"openai", "gpt-4o-mini"},
		{"anthropic", "claude-3-5-haiku-latest"},
		{"", ""},
	}

	for _, tt := range tests {
		cfg.LLM.Provider = tt.provider
		if got := modelFor(cfg); got != tt.want {
			t.Errorf("modelFor(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestNewEngineInvalidPrompt(t *testing.T) {
	cfg := &config.Config{}
	cfg.Analyze.Prompt = "bogus"

	_, err := newEngine(cfg, nopProvider{}, nil, nil, newLogger(false))
	if err == nil {
		t.Fatal("expected error for invalid prompt config, got nil")
	}
	if !strings.Contains(err.Error(), "unknown prompt type") {
		t.Errorf("expected unknown prompt type error, got: %v", err)
	}
}

func TestNewEngineFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Analyze.Prompt = "quick"
	cfg.Analyze.ChunkSize = 500
	cfg.Analyze.ChunkOverlap = 50
	cfg.Analyze.MaxConcurrent = 2
	cfg.Analyze.Preprocess = true
	cfg.Analyze.MinSeverity = "error"

	engine, err := newEngine(cfg, nopProvider{}, nil, nil, newLogger(false))
	if err != nil {
		t.Fatalf("newEngine() error = %v", err)
	}
	if engine == nil {
		t.Fatal("expected an engine, got nil")
	}
}

package llm

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// apiKeyFor returns the configured key, falling back to the named
// environment variable. Cloud providers refuse to start without one.
func apiKeyFor(configured, envVar string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("api key not configured: set the %s environment variable or the api_key config entry", envVar)
}

// newCloudAdapter wraps a langchaingo model in the Provider interface.
func newCloudAdapter(name string, model llms.Model, defaultModel string, logger *slog.Logger) Provider {
	logger.Info("llm provider ready", "provider", name, "model", defaultModel)
	return &langchainAdapter{
		model:        model,
		defaultModel: defaultModel,
		providerType: name,
		logger:       logger,
	}
}

func newOpenAIProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	key, err := apiKeyFor(cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	opts := []openai.Option{
		openai.WithToken(key),
		openai.WithModel(cfg.LLM.OpenAI.Model),
	}
	if cfg.LLM.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.OpenAI.BaseURL))
	}
	orgID := cfg.LLM.OpenAI.OrgID
	if orgID == "" {
		orgID = os.Getenv("OPENAI_ORG_ID")
	}
	if orgID != "" {
		opts = append(opts, openai.WithOrganization(orgID))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai provider: %w", err)
	}
	return newCloudAdapter("openai", model, cfg.LLM.OpenAI.Model, logger), nil
}

func newAnthropicProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	key, err := apiKeyFor(cfg.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	model, err := anthropic.New(
		anthropic.WithToken(key),
		anthropic.WithModel(cfg.LLM.Anthropic.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic provider: %w", err)
	}
	return newCloudAdapter("anthropic", model, cfg.LLM.Anthropic.Model, logger), nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/rootcauseai/rootcause/internal/llm/ollama"
)

// Provider is a single LLM backend. Implementations must be safe for
// concurrent use: the analysis workers share one instance.
type Provider interface {
	// Chat sends a conversation and blocks until the full completion
	// arrives or ctx is canceled.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)

	// Heartbeat reports whether the backend is reachable.
	Heartbeat(ctx context.Context) error

	// ModelAvailable reports whether the named model is ready to serve,
	// as opposed to needing a pull or download first.
	ModelAvailable(ctx context.Context, model string) (bool, error)
}

// Message is one turn of a conversation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string

	Content string
}

// ChatOptions tunes a single request. A nil value means provider defaults.
type ChatOptions struct {
	// Model overrides the configured default model (e.g. "gpt-4o-mini").
	Model string

	// Temperature controls sampling randomness. Keep it near zero when
	// the same logs should produce the same analysis.
	Temperature float32

	// MaxTokens caps the completion length. Zero means no cap.
	MaxTokens int
}

// Usage reports the token consumption of a single request.
// When the provider does not return token counts, values are estimated
// from character length.
type Usage struct {
	// InputTokens is the number of tokens in the prompt
	InputTokens int

	// OutputTokens is the number of tokens in the completion
	OutputTokens int
}

// Total returns the combined prompt and completion token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response is a completed chat turn.
type Response struct {
	Content string

	// Model is the model that actually served the request, which may
	// differ from the one asked for when the backend aliases names.
	Model string

	// Usage reports the tokens consumed by this request
	Usage Usage
}

// Sentinel errors shared by all provider implementations. Callers
// classify failures with errors.Is rather than string matching.
var (
	// ErrProviderUnavailable means the backend could not be reached.
	ErrProviderUnavailable = errors.New("llm provider is not reachable")

	// ErrModelNotFound means the requested model is not installed or served.
	ErrModelNotFound = errors.New("requested model is not available")

	// ErrRateLimited means the provider rejected the request for quota reasons.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrContextTooLong means the prompt exceeded the model's context window.
	ErrContextTooLong = errors.New("prompt exceeds model context window")

	// ErrAuthFailed means the API key was rejected.
	ErrAuthFailed = errors.New("provider authentication failed")

	// ErrInvalidResponse means the provider answered with something unusable.
	ErrInvalidResponse = errors.New("provider returned invalid response")
)

// NewProvider builds the Provider named by cfg.LLM.Provider.
func NewProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	providerType := strings.ToLower(cfg.LLM.Provider)
	logger.Debug("creating llm provider", "type", providerType)

	switch providerType {
	case "ollama":
		ollamaProvider, err := ollama.New(ollama.Config{
			Host:  cfg.LLM.Ollama.Host,
			Model: cfg.LLM.Ollama.Model,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &ollamaProviderAdapter{provider: ollamaProvider}, nil

	case "openai":
		return newOpenAIProvider(cfg, logger)

	case "anthropic":
		return newAnthropicProvider(cfg, logger)

	case "":
		return nil, errors.New("llm provider not specified in configuration")

	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: ollama, openai, anthropic)", providerType)
	}
}

// ollamaProviderAdapter bridges ollama's package-local types to the
// Provider interface. The ollama package keeps its own types so it does
// not import this package back.
type ollamaProviderAdapter struct {
	provider *ollama.Provider
}

func (a *ollamaProviderAdapter) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	ollamaMessages := make([]ollama.Message, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollama.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	var ollamaOpts *ollama.ChatOptions
	if opts != nil {
		ollamaOpts = &ollama.ChatOptions{
			Model:       opts.Model,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		}
	}

	resp, err := a.provider.Chat(ctx, ollamaMessages, ollamaOpts)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content: resp.Content,
		Model:   resp.Model,
		Usage: Usage{
			InputTokens:  resp.TokensPrompt,
			OutputTokens: resp.TokensCompletion,
		},
	}, nil
}

func (a *ollamaProviderAdapter) Heartbeat(ctx context.Context) error {
	return a.provider.Heartbeat(ctx)
}

func (a *ollamaProviderAdapter) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return a.provider.ModelAvailable(ctx, model)
}

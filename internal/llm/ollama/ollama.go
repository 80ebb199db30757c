// Package ollama implements the llm.Provider contract against a local
// Ollama server using the official API client.
//
// The package defines its own message and option types so the parent llm
// package can depend on it without an import cycle; the parent bridges
// the types at the boundary.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = "llama3.2"

// Sentinel errors surfaced to the parent package.
var (
	ErrProviderUnavailable = errors.New("llm provider is not reachable")
	ErrContextCanceled     = errors.New("operation was canceled")
)

// Config holds the connection settings for one Ollama server.
type Config struct {
	// Host is the API endpoint, e.g. "http://localhost:11434". When empty
	// the OLLAMA_HOST environment variable decides, falling back to the
	// standard local endpoint.
	Host string

	// Model is used when a request names no model.
	Model string
}

// Message is one turn of a conversation.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// ChatOptions override per-request generation settings.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response is a completed generation.
type Response struct {
	Content          string
	Model            string
	TokensPrompt     int
	TokensCompletion int
}

// Provider talks to one Ollama server.
type Provider struct {
	client *api.Client
	config Config
	logger *slog.Logger
}

// New builds a Provider for the configured host.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client, err := newAPIClient(cfg.Host)
	if err != nil {
		logger.Error("ollama client setup failed", "host", cfg.Host, "error", err)
		return nil, err
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	logger.Debug("ollama client ready", "host", cfg.Host, "model", cfg.Model)

	return &Provider{client: client, config: cfg, logger: logger}, nil
}

// newAPIClient builds the underlying client. An explicit host wins over
// the environment.
func newAPIClient(host string) (*api.Client, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return client, nil
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	return api.NewClient(base, http.DefaultClient), nil
}

// Chat sends the conversation and waits for the complete response.
func (p *Provider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	model := p.config.Model
	var temperature float32
	maxTokens := 0
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		temperature = opts.Temperature
		maxTokens = opts.MaxTokens
	}

	req := &api.ChatRequest{
		Model:    model,
		Messages: toAPIMessages(messages),
		Options:  generationOptions(temperature, maxTokens),
		Stream:   new(bool), // complete responses only
	}

	p.logger.Debug("ollama chat", "model", model, "messages", len(messages), "temperature", temperature)

	var last api.ChatResponse
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		p.logger.Error("ollama chat failed", "model", model, "error", err)
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.logger.Debug("ollama chat done",
		"model", last.Model,
		"prompt_tokens", last.PromptEvalCount,
		"completion_tokens", last.EvalCount)

	return &Response{
		Content:          last.Message.Content,
		Model:            last.Model,
		TokensPrompt:     last.PromptEvalCount,
		TokensCompletion: last.EvalCount,
	}, nil
}

func toAPIMessages(messages []Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, msg := range messages {
		out[i] = api.Message{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// generationOptions maps request settings onto Ollama's option map.
// num_predict is the server-side name for the completion token cap.
func generationOptions(temperature float32, maxTokens int) map[string]any {
	options := map[string]any{"temperature": temperature}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	return options
}

// Heartbeat reports whether the server answers at all.
func (p *Provider) Heartbeat(ctx context.Context) error {
	if err := p.client.Heartbeat(ctx); err != nil {
		p.logger.Error("ollama heartbeat failed", "error", err)
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// ModelAvailable reports whether the named model has been pulled. Both
// the bare name and the name:tag form match.
func (p *Provider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	list, err := p.client.List(ctx)
	if err != nil {
		p.logger.Error("ollama model list failed", "error", err)
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	for _, m := range list.Models {
		if m.Name == model || m.Model == model {
			return true, nil
		}
	}

	p.logger.Debug("model not pulled", "model", model, "available", len(list.Models))
	return false, nil
}

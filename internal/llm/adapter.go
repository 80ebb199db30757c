package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// langchainAdapter serves the cloud providers through langchaingo's
// llms.Model, translating message shapes, call options, and errors.
type langchainAdapter struct {
	model        llms.Model
	defaultModel string
	providerType string
	logger       *slog.Logger
}

func (a *langchainAdapter) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	resp, err := a.model.GenerateContent(ctx, convertMessages(messages), convertOptions(opts, a.defaultModel)...)
	if err != nil {
		return nil, wrapError(err)
	}

	out := convertResponse(resp, a.defaultModel)

	// Some providers omit token counts; estimate from character length
	// so downstream cost accounting never sees zeros for real traffic.
	if out.Usage == (Usage{}) {
		out.Usage = estimateUsage(messages, out.Content)
	}

	return out, nil
}

// Heartbeat sends a one-token ping. Cloud APIs have no health endpoint,
// so a minimal completion is the cheapest reachability check available.
// The Ollama path uses the native client health check instead.
func (a *langchainAdapter) Heartbeat(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := a.Chat(ctx, []Message{
		{Role: "user", Content: "ping"},
	}, &ChatOptions{
		MaxTokens: 1,
	})

	return err
}

// ModelAvailable assumes cloud models exist. A bad model name fails at
// request time with a clear message, which is soon enough.
func (a *langchainAdapter) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return true, nil
}

func convertMessages(messages []Message) []llms.MessageContent {
	result := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		result[i] = llms.TextParts(convertRole(msg.Role), msg.Content)
	}
	return result
}

func convertRole(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "user":
		return llms.ChatMessageTypeHuman
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeGeneric
	}
}

func convertOptions(opts *ChatOptions, defaultModel string) []llms.CallOption {
	if opts == nil {
		return []llms.CallOption{llms.WithModel(defaultModel)}
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	callOpts := []llms.CallOption{
		llms.WithModel(model),
		llms.WithTemperature(float64(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	return callOpts
}

func convertResponse(lcResp *llms.ContentResponse, defaultModel string) *Response {
	if lcResp == nil || len(lcResp.Choices) == 0 {
		return &Response{Model: defaultModel}
	}

	choice := lcResp.Choices[0]

	return &Response{
		Content: choice.Content,
		Model:   getStringFromInfo(choice.GenerationInfo, "Model", defaultModel),
		Usage:   usageFromInfo(choice.GenerationInfo),
	}
}

// usageFromInfo extracts token counts from GenerationInfo. The key names
// differ per backend: OpenAI reports PromptTokens/CompletionTokens,
// Anthropic reports InputTokens/OutputTokens.
func usageFromInfo(info map[string]any) Usage {
	return Usage{
		InputTokens:  firstIntFromInfo(info, "PromptTokens", "InputTokens"),
		OutputTokens: firstIntFromInfo(info, "CompletionTokens", "OutputTokens"),
	}
}

func firstIntFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		if v := getIntFromInfo(info, key); v != 0 {
			return v
		}
	}
	return 0
}

func getIntFromInfo(info map[string]any, key string) int {
	if v, ok := info[key].(int); ok {
		return v
	}
	if v, ok := info[key].(float64); ok {
		return int(v)
	}
	return 0
}

func getStringFromInfo(info map[string]any, key string, defaultVal string) string {
	if v, ok := info[key].(string); ok {
		return v
	}
	return defaultVal
}

// estimateUsage approximates token counts at roughly four characters per
// token, the standard heuristic for English text.
func estimateUsage(messages []Message, completion string) Usage {
	promptChars := 0
	for _, msg := range messages {
		promptChars += len(msg.Content)
	}

	return Usage{
		InputTokens:  promptChars / 4,
		OutputTokens: len(completion) / 4,
	}
}

// wrapError classifies provider errors into the package sentinels so
// callers can branch with errors.Is. Providers surface failures as
// HTTP-layer errors with inconsistent shapes, so this matches on
// status codes and well-known message fragments.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "status code: 429", "rate limit", "too many requests", "quota exceeded"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case containsAny(msg, "status code: 401", "status code: 403", "unauthorized", "invalid api key", "authentication", "invalid x-api-key"):
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	case containsAny(msg, "context length", "context_length_exceeded", "maximum context", "prompt is too long", "too many tokens"):
		return fmt.Errorf("%w: %v", ErrContextTooLong, err)
	case containsAny(msg, "model not found", "model_not_found", "does not exist or you do not have access"):
		return fmt.Errorf("%w: %v", ErrModelNotFound, err)
	case containsAny(msg, "connection refused", "no such host", "connection reset", "timeout", "status code: 500", "status code: 502", "status code: 503", "overloaded"):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		return err
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

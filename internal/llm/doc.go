// Package llm routes chat requests to one of several Large Language Model
// backends behind a single Provider interface.
//
// # Providers
//
// Three backends are supported. Ollama is driven natively through its
// official API client, which is what exposes heartbeat and model-pull
// checks. OpenAI and Anthropic are driven through langchaingo, wrapped in
// a thin adapter that normalizes options, token accounting, and error
// classification.
//
// The ollama subpackage keeps its own message and option types so it never
// imports this package; NewProvider bridges the two.
//
// # Creating a provider
//
//	provider, err := llm.NewProvider(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	if err := provider.Heartbeat(ctx); err != nil {
//	    return fmt.Errorf("llm backend down: %w", err)
//	}
//
// With Ollama it is worth confirming the model is pulled before starting
// an analysis run:
//
//	ok, err := provider.ModelAvailable(ctx, cfg.LLM.Ollama.Model)
//	if err == nil && !ok {
//	    return fmt.Errorf("model missing, run: ollama pull %s", cfg.LLM.Ollama.Model)
//	}
//
// # Sending a chat
//
//	resp, err := provider.Chat(ctx, []llm.Message{
//	    {Role: "system", Content: systemPrompt},
//	    {Role: "user", Content: chunk},
//	}, &llm.ChatOptions{Temperature: 0.2})
//	if err != nil {
//	    return err
//	}
//	costs.Record(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
//
// Response.Usage carries prompt and completion token counts. When a
// backend does not report them they are estimated from text length, so
// cost metering keeps working either way.
//
// # Errors
//
// Failures are wrapped in sentinel errors so callers can branch with
// errors.Is instead of parsing provider-specific messages:
//
//	if errors.Is(err, llm.ErrRateLimited) {
//	    // back off, the orchestrator retries
//	}
//
// See ErrProviderUnavailable, ErrModelNotFound, ErrRateLimited,
// ErrContextTooLong, ErrAuthFailed, and ErrInvalidResponse.
//
// # Configuration
//
// The provider, models, and hosts come from the llm section of
// ~/.rootcause.yaml, or from ROOTCAUSE_LLM_* environment variables:
//
//	llm:
//	  provider: anthropic
//	  temperature: 0.2
//	  openai:
//	    model: gpt-4o-mini
//	  anthropic:
//	    model: claude-3-5-haiku-latest
//	  ollama:
//	    host: http://localhost:11434
//	    model: llama3.2
//
// Cloud API keys come from the api_key config entries or from the
// OPENAI_API_KEY and ANTHROPIC_API_KEY environment variables.
//
// All Provider implementations are safe for concurrent use; the analysis
// workers share one instance across goroutines.
package llm

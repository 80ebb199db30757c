// Package analyzer coordinates log analysis end to end: documents are
// preprocessed, checked against the cache, split into chunks, analyzed
// concurrently under a dispatch cap, and reassembled in chunk order.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rootcauseai/rootcause/internal/cache"
	"github.com/rootcauseai/rootcause/internal/chunk"
	"github.com/rootcauseai/rootcause/internal/cost"
	"github.com/rootcauseai/rootcause/internal/llm"
	"github.com/rootcauseai/rootcause/internal/preprocess"
	"github.com/rootcauseai/rootcause/internal/prompt"
)

// EmptyAnalysis is returned when a document yields no chunks to analyze.
const EmptyAnalysis = "No log content to analyze."

// DefaultMaxConcurrent caps in-flight LLM calls per Analyze run.
const DefaultMaxConcurrent = 5

// DefaultTemperature keeps analysis output mostly deterministic.
const DefaultTemperature = 0.2

// Report describes one completed analysis.
type Report struct {
	Analysis     string        `json:"analysis"`
	Chunks       int           `json:"chunks"`
	FailedChunks int           `json:"failed_chunks"`
	Cached       bool          `json:"cached"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	CostUSD      float64       `json:"cost_usd"`
	Elapsed      time.Duration `json:"-"`
}

// Analyzer runs documents through the analysis pipeline. Configuration
// is fixed at construction; one Analyzer is safe for concurrent use.
type Analyzer struct {
	provider      llm.Provider
	splitter      *chunk.Splitter
	cache         *cache.Cache
	costs         *cost.Tracker
	pre           *preprocess.Preprocessor
	promptType    prompt.Type
	model         string
	temperature   float32
	maxTokens     int
	maxConcurrent int
	logger        *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCache stores combined results keyed by document content, so an
// identical document within the TTL never reaches the provider again.
// A nil cache disables caching.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithCosts records token usage and cost for every successfully
// analyzed chunk. A nil tracker disables cost accounting.
func WithCosts(t *cost.Tracker) Option {
	return func(a *Analyzer) {
		a.costs = t
	}
}

// WithPreprocessor filters noise from documents before they are cached
// or chunked. A nil preprocessor sends documents through unchanged.
func WithPreprocessor(p *preprocess.Preprocessor) Option {
	return func(a *Analyzer) {
		a.pre = p
	}
}

// WithChunking sets the chunk size and overlap used to split documents.
func WithChunking(size, overlap int) Option {
	return func(a *Analyzer) {
		a.splitter = chunk.NewSplitter(size, overlap)
	}
}

// WithMaxConcurrent caps how many chunks may be in flight to the
// provider at once. Values below 1 degrade to sequential processing.
func WithMaxConcurrent(n int) Option {
	return func(a *Analyzer) {
		a.maxConcurrent = n
	}
}

// WithPromptType forces a prompt style. The default selects one from
// the document's estimated complexity.
func WithPromptType(t prompt.Type) Option {
	return func(a *Analyzer) {
		a.promptType = t
	}
}

// WithModel sets the model requested from the provider. Empty means
// the provider's configured default.
func WithModel(model string) Option {
	return func(a *Analyzer) {
		a.model = model
	}
}

// WithTemperature sets the sampling temperature for chunk analysis.
func WithTemperature(t float32) Option {
	return func(a *Analyzer) {
		a.temperature = t
	}
}

// WithMaxTokens caps the provider's response length per chunk. Zero
// leaves the provider default in place.
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) {
		a.maxTokens = n
	}
}

// New creates an Analyzer backed by provider.
func New(provider llm.Provider, logger *slog.Logger, opts ...Option) (*Analyzer, error) {
	if provider == nil {
		return nil, fmt.Errorf("analyzer: provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("analyzer: logger cannot be nil")
	}

	a := &Analyzer{
		provider:      provider,
		splitter:      chunk.NewSplitter(chunk.DefaultSize, chunk.DefaultOverlap),
		temperature:   DefaultTemperature,
		maxConcurrent: DefaultMaxConcurrent,
		logger:        logger,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.maxConcurrent < 1 {
		a.maxConcurrent = 1
	}

	return a, nil
}

// Analyze runs document through the pipeline and returns a combined
// report. A chunk whose LLM call fails degrades its own segment of the
// analysis instead of failing the run; only context cancellation and
// splitter errors surface as errors.
func (a *Analyzer) Analyze(ctx context.Context, document string) (*Report, error) {
	start := time.Now()

	text := document
	if a.pre != nil {
		processed, stats := a.pre.Process(document)
		text = processed
		a.logger.Debug("preprocessed document",
			"chars_in", len(document),
			"chars_out", len(text),
			"kept_lines", stats.KeptLines,
			"redacted", stats.Redacted,
			"fallback", stats.Fallback)
	}

	if a.cache != nil {
		if analysis, ok := a.cache.Get(text); ok {
			return &Report{
				Analysis: analysis,
				Cached:   true,
				Elapsed:  time.Since(start),
			}, nil
		}
	}

	units, err := a.splitter.Split(text)
	if err != nil {
		return nil, fmt.Errorf("split document: %w", err)
	}
	if len(units) == 0 {
		return &Report{Analysis: EmptyAnalysis, Elapsed: time.Since(start)}, nil
	}

	promptType := a.promptType
	if promptType == "" {
		promptType = prompt.ForComplexity(preprocess.EstimateComplexity(text))
	}

	a.logger.Info("analyzing document",
		"chunks", len(units),
		"prompt", string(promptType),
		"max_concurrent", a.maxConcurrent)

	results := runUnits(ctx, units, a.maxConcurrent, a.logger, a.processWith(promptType))

	// A canceled run has nothing valid to combine or cache.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Chunks: len(units)}
	segments := make([]string, len(results))
	for i, res := range results {
		if res.err != nil {
			segments[i] = fmt.Sprintf("[Error analyzing chunk %d: %v]", i+1, res.err)
			report.FailedChunks++
			continue
		}
		segments[i] = res.text
		report.InputTokens += res.usage.InputTokens
		report.OutputTokens += res.usage.OutputTokens
		report.CostUSD += res.cost
	}
	report.Analysis = strings.Join(segments, "\n\n")

	if a.cache != nil {
		a.cache.Set(text, report.Analysis)
	}

	report.Elapsed = time.Since(start)

	a.logger.Info("analysis complete",
		"chunks", report.Chunks,
		"failed_chunks", report.FailedChunks,
		"input_tokens", report.InputTokens,
		"output_tokens", report.OutputTokens,
		"cost_usd", report.CostUSD,
		"elapsed", report.Elapsed)

	return report, nil
}

// unitResult is the terminal state of one chunk: either analysis text
// with its usage and recorded cost, or an error. Results always come
// back as values so a failing chunk never cancels its siblings.
type unitResult struct {
	text  string
	usage llm.Usage
	cost  float64
	err   error
}

// unitFunc analyzes one chunk, returning its text, the tokens consumed,
// and the cost recorded for them. The dispatch machinery below knows
// nothing about what processing happens inside.
type unitFunc func(ctx context.Context, unit chunk.Unit) (string, llm.Usage, float64, error)

// processWith builds the unitFunc that Analyze hands to the dispatcher:
// prompt assembly, the provider call, and cost recording for one chunk.
func (a *Analyzer) processWith(promptType prompt.Type) unitFunc {
	return func(ctx context.Context, unit chunk.Unit) (string, llm.Usage, float64, error) {
		start := time.Now()

		messages, err := prompt.Build(promptType, prompt.BuildOptions{
			LogText:    unit.Text,
			Format:     preprocess.DetectFormat(unit.Text),
			Complexity: preprocess.EstimateComplexity(unit.Text),
		})
		if err != nil {
			return "", llm.Usage{}, 0, err
		}

		resp, err := a.provider.Chat(ctx, messages, &llm.ChatOptions{
			Model:       a.model,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		})
		if err != nil {
			a.logger.Warn("chunk analysis failed",
				"chunk", unit.Index+1, "error", err)
			return "", llm.Usage{}, 0, err
		}

		var recorded float64
		if a.costs != nil {
			recorded = a.costs.Record(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}

		a.logger.Debug("chunk analyzed",
			"chunk", unit.Index+1,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"elapsed", time.Since(start))

		return resp.Content, resp.Usage, recorded, nil
	}
}

// runUnits dispatches every chunk concurrently, with the semaphore
// holding in-flight process calls at maxConcurrent. The results slice
// is indexed by chunk, so reassembly order is independent of
// completion order.
func runUnits(ctx context.Context, units []chunk.Unit, maxConcurrent int, logger *slog.Logger, process unitFunc) []unitResult {
	results := make([]unitResult, len(units))
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	var wg sync.WaitGroup
	for _, unit := range units {
		wg.Go(func() {
			results[unit.Index] = runUnit(ctx, sem, unit, logger, process)
		})
	}
	wg.Wait()

	return results
}

// runUnit processes a single chunk, holding a dispatch slot for the
// duration. Panics inside process are converted to failure values like
// any other error; the slot is released either way.
func runUnit(ctx context.Context, sem *semaphore.Weighted, unit chunk.Unit, logger *slog.Logger, process unitFunc) (res unitResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered panic while analyzing chunk",
				"chunk", unit.Index+1, "panic", r)
			res = unitResult{err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		return unitResult{err: err}
	}
	defer sem.Release(1)

	text, usage, recorded, err := process(ctx, unit)
	if err != nil {
		return unitResult{err: err}
	}

	return unitResult{text: text, usage: usage, cost: recorded}
}

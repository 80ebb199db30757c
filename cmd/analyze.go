package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rootcauseai/rootcause/internal/cache"
	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/rootcauseai/rootcause/internal/cost"
	"github.com/rootcauseai/rootcause/internal/output"
	"github.com/rootcauseai/rootcause/internal/prompt"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <file|glob ...>",
	Short: "Analyze log files for root causes using AI",
	Long: `Analyze log files for root causes using an LLM.

Each file is noise-filtered, split into chunks, and analyzed
concurrently. Chunk results are combined in order into a single report.
Repeated analyses of identical content are served from the local cache.

Examples:
  rootcause analyze /var/log/app.log
  rootcause analyze --prompt detailed --show-cost app.log
  rootcause analyze --no-cache --min-severity error "logs/*.log"
  rootcause analyze --format json app.log api.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("prompt", "", "analysis prompt (auto, standard, detailed, quick)")
	analyzeCmd.Flags().Bool("no-cache", false, "bypass the result cache")
	analyzeCmd.Flags().Bool("no-preprocess", false, "send raw file content without noise filtering")
	analyzeCmd.Flags().String("min-severity", "", "lowest severity kept during preprocessing (debug, info, warn, error, fatal)")
	analyzeCmd.Flags().Bool("show-cost", false, "print token usage and cost after each analysis")

	rootCmd.AddCommand(analyzeCmd)
}

// analyzeResult is the per-file JSON payload.
type analyzeResult struct {
	File         string  `json:"file"`
	Analysis     string  `json:"analysis"`
	Chunks       int     `json:"chunks"`
	FailedChunks int     `json:"failed_chunks,omitempty"`
	Cached       bool    `json:"cached"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	ElapsedMS    int64   `json:"elapsed_ms"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	promptFlag, _ := cmd.Flags().GetString("prompt")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	noPreprocess, _ := cmd.Flags().GetBool("no-preprocess")
	minSeverity, _ := cmd.Flags().GetString("min-severity")
	showCost, _ := cmd.Flags().GetBool("show-cost")

	format := output.ParseFormat(viper.GetString("format"))
	verbose := viper.GetBool("verbose")
	ctx := cmd.Context()

	// Validate flags before any provider setup.
	if promptFlag != "" && promptFlag != "auto" {
		if _, err := prompt.ParseType(promptFlag); err != nil {
			return err
		}
	}
	if minSeverity != "" {
		if config.ParseLevel(minSeverity) == config.LevelUnknown {
			return fmt.Errorf("invalid min-severity: %s (must be one of: debug, info, warn, error, fatal)", minSeverity)
		}
	}

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	logger := newLogger(verbose)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flag overrides
	if promptFlag != "" {
		cfg.Analyze.Prompt = promptFlag
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noPreprocess {
		cfg.Analyze.Preprocess = false
	}
	if minSeverity != "" {
		cfg.Analyze.MinSeverity = minSeverity
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	// Health check
	if err := provider.Heartbeat(ctx); err != nil {
		if cfg.LLM.Provider == "ollama" {
			return fmt.Errorf("cannot connect to Ollama at %s: %w\n\nStart Ollama with: ollama serve",
				cfg.LLM.Ollama.Host, err)
		}
		return fmt.Errorf("LLM provider %s unavailable: %w", cfg.LLM.Provider, err)
	}

	var store *cache.Cache
	if cfg.Cache.Enabled {
		store, err = cache.New(cfg.Cache.Dir, cfg.Cache.TTL, logger)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
	}

	costs, err := cost.NewTracker(cfg.Costs.Path, logger)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, provider, store, costs, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	multiFile := len(files) > 1

	if format == output.FormatText && verbose {
		fmt.Fprintf(out, "Analyzing %d file(s) with %s...\n\n", len(files), cfg.LLM.Provider)
	}

	results := make([]analyzeResult, 0, len(files))

	for i, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		report, err := engine.Analyze(ctx, string(content))
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", file, err)
		}

		results = append(results, analyzeResult{
			File:         file,
			Analysis:     report.Analysis,
			Chunks:       report.Chunks,
			FailedChunks: report.FailedChunks,
			Cached:       report.Cached,
			InputTokens:  report.InputTokens,
			OutputTokens: report.OutputTokens,
			CostUSD:      report.CostUSD,
			ElapsedMS:    report.Elapsed.Milliseconds(),
		})

		if format != output.FormatText {
			continue
		}

		if multiFile {
			fmt.Fprintf(out, "=== %s ===\n\n", file)
		}
		fmt.Fprintln(out, report.Analysis)

		if verbose {
			fmt.Fprintf(out, "\nChunks: %d (%d failed), cached: %t, elapsed: %s\n",
				report.Chunks, report.FailedChunks, report.Cached,
				report.Elapsed.Round(time.Millisecond))
		}
		if showCost {
			fmt.Fprintf(out, "\nTokens: %d in / %d out\n", report.InputTokens, report.OutputTokens)
			fmt.Fprintf(out, "Cost: $%.4f (today: $%.4f)\n", report.CostUSD, costs.DailyCost(""))
		}
		if multiFile && i < len(files)-1 {
			fmt.Fprintln(out)
		}
	}

	if format == output.FormatJSON {
		if multiFile {
			return output.WriteJSON(out, results)
		}
		return output.WriteJSON(out, results[0])
	}

	return nil
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rootcauseai/rootcause/internal/analyzer"
	"github.com/rootcauseai/rootcause/internal/cache"
	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/rootcauseai/rootcause/internal/cost"
	"github.com/rootcauseai/rootcause/internal/llm"
	"github.com/rootcauseai/rootcause/internal/preprocess"
	"github.com/rootcauseai/rootcause/internal/prompt"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rootcause",
	Short: "AI-assisted root cause analysis for log files",
	Long: `Rootcause sends log files to an LLM for root cause analysis.

Large files are filtered, split into chunks, and analyzed concurrently,
with results cached and per-day API costs tracked. It runs against a
local Ollama instance or cloud providers (OpenAI, Anthropic).

Examples:
  rootcause analyze /var/log/app.log
  rootcause analyze --prompt quick --show-cost "logs/*.log"
  rootcause serve --port 8000
  rootcause usage --days 30
  rootcause cache clear --older-than 7d`,
}

// Execute runs the root command. main.main calls it exactly once.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rootcause.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".rootcause")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ROOTCAUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func setDefaults() {
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 0)
	viper.SetDefault("llm.openai.model", "gpt-4o-mini")
	viper.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	viper.SetDefault("llm.ollama.host", "http://localhost:11434")
	viper.SetDefault("llm.ollama.model", "llama3.2")

	viper.SetDefault("analyze.chunk_size", 2000)
	viper.SetDefault("analyze.chunk_overlap", 200)
	viper.SetDefault("analyze.max_concurrent", 5)
	viper.SetDefault("analyze.preprocess", true)
	viper.SetDefault("analyze.filter_debug", true)
	viper.SetDefault("analyze.min_severity", "warn")
	viper.SetDefault("analyze.prompt", "auto")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", ".rootcause-cache")
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("costs.path", "rootcause-usage.json")
	viper.SetDefault("costs.daily_budget", 10.0)
	viper.SetDefault("costs.monthly_budget", 100.0)

	viper.SetDefault("rate_limit.per_minute", 10)
	viper.SetDefault("rate_limit.per_hour", 100)
	viper.SetDefault("rate_limit.per_day", 1000)

	viper.SetDefault("redaction.enabled", false)
	viper.SetDefault("redaction.patterns", []string{})

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.max_upload_bytes", 10485760)
}

// loadConfig unmarshals the merged viper state into a typed Config.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger shared by commands. Errors only by
// default; verbose raises the level to info.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// newProvider builds the configured LLM provider, decorating failures
// with setup hints.
func newProvider(cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w\n\nTroubleshooting:\n- Ensure Ollama is running: ollama serve\n- Check provider config in ~/.rootcause.yaml\n- For cloud providers, verify API keys are set", err)
	}
	return provider, nil
}

// modelFor returns the model configured for the active provider.
func modelFor(cfg *config.Config) string {
	switch cfg.LLM.Provider {
	case "ollama":
		return cfg.LLM.Ollama.Model
	case "openai":
		return cfg.LLM.OpenAI.Model
	case "anthropic":
		return cfg.LLM.Anthropic.Model
	default:
		return ""
	}
}

// newEngine assembles the analysis pipeline from configuration. The
// cache and cost tracker are optional; nil disables them.
func newEngine(cfg *config.Config, provider llm.Provider, store *cache.Cache, costs *cost.Tracker, logger *slog.Logger) (*analyzer.Analyzer, error) {
	opts := []analyzer.Option{
		analyzer.WithChunking(cfg.Analyze.ChunkSize, cfg.Analyze.ChunkOverlap),
		analyzer.WithMaxConcurrent(cfg.Analyze.MaxConcurrent),
		analyzer.WithModel(modelFor(cfg)),
		analyzer.WithTemperature(cfg.LLM.Temperature),
		analyzer.WithMaxTokens(cfg.LLM.MaxTokens),
	}

	if cfg.Analyze.Preprocess {
		opts = append(opts, analyzer.WithPreprocessor(preprocess.New(
			preprocess.WithMinLevel(config.ParseLevel(cfg.Analyze.MinSeverity)),
			preprocess.WithDebugFilter(cfg.Analyze.FilterDebug),
			preprocess.WithRedaction(cfg.Redaction.Enabled),
			preprocess.WithRedactionPatterns(cfg.Redaction.Patterns),
		)))
	}

	if cfg.Analyze.Prompt != "" && cfg.Analyze.Prompt != "auto" {
		promptType, err := prompt.ParseType(cfg.Analyze.Prompt)
		if err != nil {
			return nil, err
		}
		opts = append(opts, analyzer.WithPromptType(promptType))
	}

	if store != nil {
		opts = append(opts, analyzer.WithCache(store))
	}
	if costs != nil {
		opts = append(opts, analyzer.WithCosts(costs))
	}

	return analyzer.New(provider, logger, opts...)
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rootcauseai/rootcause/internal/cache"
	"github.com/rootcauseai/rootcause/internal/cost"
	"github.com/rootcauseai/rootcause/internal/ratelimit"
	"github.com/rootcauseai/rootcause/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the log analysis HTTP service",
	Long: `Run the HTTP service that accepts log file uploads for analysis.

Endpoints:
  POST /analyze   multipart upload of a .txt log file
  GET  /health    provider, cost, and cache status
  GET  /metrics   Prometheus metrics

Requests are rate limited per client. Editing the config file while the
service runs applies new rate limits without a restart.

Examples:
  rootcause serve
  rootcause serve --host 127.0.0.1 --port 9000
  rootcause serve --config /etc/rootcause.yaml --verbose`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen address (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	verbose := viper.GetBool("verbose")
	ctx := cmd.Context()

	// The service logs requests at info; verbose adds per-chunk debug.
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	// The service starts even when the provider is down; /health reports
	// it as degraded until it comes back.
	if err := provider.Heartbeat(ctx); err != nil {
		logger.Warn("llm provider not reachable at startup",
			"provider", cfg.LLM.Provider, "error", err)
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

	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour, cfg.RateLimit.PerDay)

	srv, err := server.New(cfg, engine, limiter, store, costs, provider, logger)
	if err != nil {
		return err
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		updated, err := loadConfig()
		if err != nil {
			logger.Warn("config reload failed", "file", e.Name, "error", err)
			return
		}
		srv.SetLimits(ratelimit.Limits{
			PerMinute: updated.RateLimit.PerMinute,
			PerHour:   updated.RateLimit.PerHour,
			PerDay:    updated.RateLimit.PerDay,
		})
		logger.Info("rate limits reloaded",
			"file", e.Name,
			"per_minute", updated.RateLimit.PerMinute,
			"per_hour", updated.RateLimit.PerHour,
			"per_day", updated.RateLimit.PerDay)
	})

	return srv.Run(ctx)
}

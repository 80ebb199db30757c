package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rootcauseai/rootcause/internal/cache"
	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/rootcauseai/rootcause/internal/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the analysis result cache",
	Long: `Inspect and clear the on-disk cache of analysis results.

Examples:
  rootcause cache stats
  rootcause cache clear
  rootcause cache clear --older-than 7d`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size on disk",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached analysis results",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheClearCmd.Flags().String("older-than", "", "only remove entries older than this age (e.g. 90s, 2h, 7d)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	format := output.ParseFormat(viper.GetString("format"))
	logger := newLogger(viper.GetBool("verbose"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, logger)
	if err != nil {
		return err
	}

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if format == output.FormatJSON {
		return output.WriteJSON(out, map[string]interface{}{
			"dir":         cfg.Cache.Dir,
			"enabled":     cfg.Cache.Enabled,
			"ttl":         cfg.Cache.TTL.String(),
			"entries":     stats.Entries,
			"total_bytes": stats.TotalBytes,
		})
	}

	fmt.Fprintf(out, "Cache directory: %s\n", cfg.Cache.Dir)
	fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
	fmt.Fprintf(out, "Size: %s\n", humanize.IBytes(uint64(stats.TotalBytes)))
	fmt.Fprintf(out, "TTL: %s\n", cfg.Cache.TTL)
	if !cfg.Cache.Enabled {
		fmt.Fprintln(out, "Caching is disabled in the configuration.")
	}

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	olderThanStr, _ := cmd.Flags().GetString("older-than")

	format := output.ParseFormat(viper.GetString("format"))
	logger := newLogger(viper.GetBool("verbose"))

	var olderThan time.Duration
	if olderThanStr != "" {
		var err error
		olderThan, err = config.ParseDuration(olderThanStr)
		if err != nil {
			return fmt.Errorf("invalid --older-than value: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, logger)
	if err != nil {
		return err
	}

	removed, err := store.Clear(olderThan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if format == output.FormatJSON {
		return output.WriteJSON(out, map[string]interface{}{
			"removed":    removed,
			"older_than": olderThanStr,
		})
	}

	if olderThanStr != "" {
		fmt.Fprintf(out, "Removed %d cache entries older than %s\n", removed, olderThanStr)
	} else {
		fmt.Fprintf(out, "Removed %d cache entries\n", removed)
	}

	return nil
}

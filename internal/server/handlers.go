package server

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rootcauseai/rootcause/internal/analyzer"
	"github.com/rootcauseai/rootcause/internal/metrics"
)

// Failure categories let callers distinguish bad input from exhausted
// quota from a broken service without parsing error text.
const (
	categoryValidation = "validation"
	categoryRateLimit  = "rate_limit"
	categoryService    = "service"
)

// handleAnalyze accepts a .txt upload in the multipart field "file",
// runs the analysis pipeline, and returns the combined report.
func (s *Server) handleAnalyze(c *gin.Context) {
	maxBytes := s.cfg.Server.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":    "Log file exceeds the upload size limit",
				"category": categoryValidation,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    `Log file is required in the multipart field "file"`,
			"category": categoryValidation,
		})
		return
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".txt") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Only .txt log files are supported",
			"category": categoryValidation,
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Failed to read log file: " + err.Error(),
			"category": categoryValidation,
		})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Failed to read log file: " + err.Error(),
			"category": categoryValidation,
		})
		return
	}

	// Invalid byte sequences are dropped rather than rejected, logs
	// are frequently dirty around crashes.
	logText := strings.ToValidUTF8(string(content), "")
	if strings.TrimSpace(logText) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Log file is empty",
			"category": categoryValidation,
		})
		return
	}

	report, err := s.engine.Analyze(c.Request.Context(), logText)
	if err != nil {
		s.logger.Error("analysis failed",
			"file", fileHeader.Filename,
			"error", err,
			"request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Analysis failed: " + err.Error(),
			"category": categoryService,
		})
		return
	}

	s.observeReport(report)

	c.JSON(http.StatusOK, gin.H{
		"analysis": report.Analysis,
		"cached":   report.Cached,
		"chunks":   report.Chunks,
		"cost_usd": report.CostUSD,
	})
}

// observeReport feeds the pipeline counters from a completed report.
func (s *Server) observeReport(r *analyzer.Report) {
	if s.cfg.Cache.Enabled {
		if r.Cached {
			s.metrics.CacheHitsTotal.Inc()
		} else {
			s.metrics.CacheMissesTotal.Inc()
		}
	}
	if r.Cached {
		return
	}

	s.metrics.UnitsDispatchedTotal.Add(float64(r.Chunks))
	s.metrics.UnitFailuresTotal.Add(float64(r.FailedChunks))
	s.metrics.TokensTotal.WithLabelValues(metrics.DirectionInput).Add(float64(r.InputTokens))
	s.metrics.TokensTotal.WithLabelValues(metrics.DirectionOutput).Add(float64(r.OutputTokens))
	s.metrics.CostUSDTotal.Add(r.CostUSD)
}

// handleHealth reports provider reachability, cache occupancy, and
// current spend. The endpoint itself always answers 200; a failing
// provider downgrades the status field instead.
func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":   "healthy",
		"provider": s.cfg.LLM.Provider,
		"optimization": gin.H{
			"cache_enabled":  s.cfg.Cache.Enabled,
			"max_concurrent": s.cfg.Analyze.MaxConcurrent,
		},
	}

	if err := s.provider.Heartbeat(c.Request.Context()); err != nil {
		health["status"] = "degraded"
		health["provider_error"] = err.Error()
	}

	if s.costs != nil {
		stats := s.costs.Stats(7)
		health["costs"] = gin.H{
			"daily_usd":           round(s.costs.DailyCost(""), 4),
			"monthly_usd":         round(s.costs.MonthlyCost(), 4),
			"average_per_request": round(stats.AverageCostPerRequest, 4),
		}
	}

	if s.store != nil {
		if stats, err := s.store.Stats(); err == nil {
			health["cache"] = gin.H{
				"entries": stats.Entries,
				"size_mb": round(float64(stats.TotalBytes)/(1<<20), 2),
			}
		}
	}

	c.JSON(http.StatusOK, health)
}

func round(x float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(x*shift) / shift
}

// Package config provides configuration types and helpers for rootcause.
package config

import (
	"strings"
	"time"
)

// Config carries every tunable the CLI and the HTTP service read,
// loaded from ~/.rootcause.yaml and ROOTCAUSE_* environment variables.
type Config struct {
	Format    string          `mapstructure:"format"`
	Verbose   bool            `mapstructure:"verbose"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Analyze   AnalyzeConfig   `mapstructure:"analyze"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Costs     CostsConfig     `mapstructure:"costs"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redaction RedactionConfig `mapstructure:"redaction"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LLMConfig selects and tunes the model backend.
type LLMConfig struct {
	// Provider names the backend: "ollama", "openai", or "anthropic"
	Provider string `mapstructure:"provider"`

	// Defaults applied whatever the provider
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// Per-backend connection settings
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OllamaConfig points at a local or remote Ollama daemon.
type OllamaConfig struct {
	Host  string `mapstructure:"host"`  // API endpoint
	Model string `mapstructure:"model"` // default model name
}

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`  // falls back to OPENAI_API_KEY
	Model   string `mapstructure:"model"`    // e.g. "gpt-4o-mini"
	BaseURL string `mapstructure:"base_url"` // override for OpenAI-compatible gateways
	OrgID   string `mapstructure:"org_id"`   // falls back to OPENAI_ORG_ID
}

// AnthropicConfig configures the Anthropic backend.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"` // falls back to ANTHROPIC_API_KEY
	Model  string `mapstructure:"model"`   // e.g. "claude-3-5-haiku-latest"
}

// AnalyzeConfig holds settings for the analysis pipeline.
type AnalyzeConfig struct {
	// ChunkSize is the maximum characters per chunk sent to the LLM
	ChunkSize int `mapstructure:"chunk_size"`

	// ChunkOverlap is the characters carried between consecutive chunks
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// MaxConcurrent caps in-flight LLM calls for one document
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// Preprocess enables noise filtering before chunking
	Preprocess bool `mapstructure:"preprocess"`

	// FilterDebug drops DEBUG-level lines during preprocessing
	FilterDebug bool `mapstructure:"filter_debug"`

	// MinSeverity is the lowest level kept by the severity filter
	MinSeverity string `mapstructure:"min_severity"`

	// Prompt selects the analysis prompt: "auto", "standard", "detailed", "quick"
	Prompt string `mapstructure:"prompt"`
}

// CacheConfig holds settings for the analysis result cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// CostsConfig holds settings for usage tracking and budgets.
type CostsConfig struct {
	Path          string  `mapstructure:"path"`
	DailyBudget   float64 `mapstructure:"daily_budget"`
	MonthlyBudget float64 `mapstructure:"monthly_budget"`
}

// RateLimitConfig holds per-client admission limits for the HTTP service.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	PerHour   int `mapstructure:"per_hour"`
	PerDay    int `mapstructure:"per_day"`
}

// RedactionConfig controls secret scrubbing during preprocessing.
type RedactionConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Patterns names the detectors to apply. Available: ipv4, email,
	// api_key, aws_key, jwt, private_key. Empty means the default set.
	Patterns []string `mapstructure:"patterns"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// LogLevel is a log line severity, ordered from least to most severe.
// LevelUnknown sorts below everything so unclassifiable lines are never
// mistaken for high-severity ones.
type LogLevel int

const (
	LevelUnknown LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

// levelNames maps the spellings found in config files and log lines to a
// severity. FATAL-style and CRITICAL-style top levels collapse to the
// same value.
var levelNames = map[string]LogLevel{
	"trace":    LevelDebug,
	"debug":    LevelDebug,
	"dbg":      LevelDebug,
	"info":     LevelInfo,
	"inf":      LevelInfo,
	"notice":   LevelInfo,
	"warn":     LevelWarning,
	"warning":  LevelWarning,
	"error":    LevelError,
	"err":      LevelError,
	"critical": LevelCritical,
	"crit":     LevelCritical,
	"fatal":    LevelCritical,
	"panic":    LevelCritical,
}

// String returns the conventional uppercase name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a severity name to its LogLevel. Unrecognized names,
// including the empty string, parse as LevelUnknown.
func ParseLevel(s string) LogLevel {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return level
	}
	return LevelUnknown
}

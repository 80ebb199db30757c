// Package preprocess reduces log noise before text is chunked and sent
// to an LLM. It filters lines below a severity threshold while always
// keeping lines that match critical failure patterns, and optionally
// redacts secrets with correlation-preserving placeholders.
package preprocess

import (
	"regexp"
	"strings"

	"github.com/rootcauseai/rootcause/internal/config"
)

// Lines matching any of these are kept regardless of severity.
var criticalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(fatal|critical|error|exception|failed|failure|crash|timeout)`),
	regexp.MustCompile(`(?i)(panic|abort|segfault|oom|out of memory)`),
	regexp.MustCompile(`(?i)(connection.*refused|connection.*timeout|connection.*failed)`),
	regexp.MustCompile(`(?i)(database.*error|sql.*error|query.*failed)`),
	regexp.MustCompile(`(?i)(authentication.*failed|authorization.*denied|permission.*denied)`),
}

var (
	debugWord = regexp.MustCompile(`(?i)\bDEBUG\b`)
	infoWord  = regexp.MustCompile(`(?i)\bINFO\b`)
)

// Preprocessor filters and redacts log text.
type Preprocessor struct {
	minLevel    config.LogLevel
	filterDebug bool
	filterInfo  bool
	redactor    *Redactor
}

// Stats describes what one Process call did.
type Stats struct {
	InputLines int
	KeptLines  int
	Redacted   int

	// Fallback is set when filtering would have kept less than 10% of
	// the input, in which case the original text is passed through.
	Fallback bool
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithMinLevel sets the lowest severity kept by the filter. Default WARNING.
func WithMinLevel(level config.LogLevel) Option {
	return func(p *Preprocessor) {
		p.minLevel = level
	}
}

// WithDebugFilter controls dropping of DEBUG-marked lines. Default on.
func WithDebugFilter(enabled bool) Option {
	return func(p *Preprocessor) {
		p.filterDebug = enabled
	}
}

// WithInfoFilter controls dropping of INFO-marked lines that carry no
// error keywords. Default off.
func WithInfoFilter(enabled bool) Option {
	return func(p *Preprocessor) {
		p.filterInfo = enabled
	}
}

// WithRedaction enables or disables secret redaction. Default off.
func WithRedaction(enabled bool) Option {
	return func(p *Preprocessor) {
		p.redactor.enabled = enabled
	}
}

// WithRedactionPatterns narrows redaction to the named detectors.
func WithRedactionPatterns(names []string) Option {
	return func(p *Preprocessor) {
		p.redactor = NewRedactor(p.redactor.enabled, names)
	}
}

// New creates a Preprocessor with the specified options.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		minLevel:    config.LevelWarning,
		filterDebug: true,
		filterInfo:  false,
		redactor:    NewRedactor(false, DefaultPatterns()),
	}

	for _, opt := range opts {
		opt(p)
	}

	// Treat unparsable thresholds as INFO rather than filtering everything.
	if p.minLevel < config.LevelDebug || p.minLevel > config.LevelCritical {
		p.minLevel = config.LevelInfo
	}

	return p
}

// Process filters noise from text and redacts secrets in what remains.
func (p *Preprocessor) Process(text string) (string, Stats) {
	filtered, stats := p.filter(text)
	out, redacted := p.redactor.RedactAndCount(filtered)
	stats.Redacted = redacted
	return out, stats
}

// filter applies the severity and noise rules line by line. If the result
// would keep less than 10% of the input, the original text is returned so
// the analysis does not lose surrounding context.
func (p *Preprocessor) filter(text string) (string, Stats) {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if strings.HasPrefix(stripped, "#") {
			continue
		}

		if p.filterDebug && debugWord.MatchString(line) {
			continue
		}
		if p.filterInfo && infoWord.MatchString(line) && !hasErrorKeyword(line) {
			continue
		}

		if isCritical(line) {
			kept = append(kept, line)
			continue
		}

		level, ok := classifyLine(line)
		if !ok {
			// No recognizable severity marker; keep application-specific lines.
			kept = append(kept, line)
			continue
		}

		switch level {
		case config.LevelInfo:
			if p.filterInfo {
				continue
			}
		case config.LevelDebug:
			if p.filterDebug {
				continue
			}
		}

		if level >= p.minLevel {
			kept = append(kept, line)
		}
	}

	stats := Stats{InputLines: len(lines), KeptLines: len(kept)}

	if float64(len(kept)) < float64(len(lines))*0.1 {
		stats.KeptLines = len(lines)
		stats.Fallback = true
		return text, stats
	}

	return strings.Join(kept, "\n"), stats
}

// classifyLine maps a raw line to a severity by marker substrings.
func classifyLine(line string) (config.LogLevel, bool) {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "FATAL") || strings.Contains(upper, "CRITICAL"):
		return config.LevelCritical, true
	case strings.Contains(upper, "ERROR") || strings.Contains(upper, "EXCEPTION"):
		return config.LevelError, true
	case strings.Contains(upper, "WARN"):
		return config.LevelWarning, true
	case strings.Contains(upper, "INFO"):
		return config.LevelInfo, true
	case strings.Contains(upper, "DEBUG"):
		return config.LevelDebug, true
	default:
		return config.LevelUnknown, false
	}
}

func isCritical(line string) bool {
	for _, re := range criticalPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func hasErrorKeyword(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range []string{"ERROR", "WARN", "FATAL", "EXCEPTION"} {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

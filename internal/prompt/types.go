package prompt

import (
	"errors"
	"fmt"

	"github.com/rootcauseai/rootcause/internal/preprocess"
)

// Type identifies the analysis prompt sent with each chunk. Each type
// pairs a system persona with a task-specific user message structure.
type Type string

const (
	// TypeStandard walks the model through systematic root cause
	// analysis: error identification, pattern grouping, cause
	// reasoning, impact, and remediation. The default.
	TypeStandard Type = "standard"

	// TypeDetailed is for complex incidents: timeline reconstruction,
	// error chain mapping, and a full post-incident report.
	TypeDetailed Type = "detailed"

	// TypeQuick trades depth for speed and token count: errors, one
	// root cause sentence, one fix.
	TypeQuick Type = "quick"
)

// ParseType converts a flag or config string to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "standard":
		return TypeStandard, nil
	case "detailed":
		return TypeDetailed, nil
	case "quick":
		return TypeQuick, nil
	default:
		return "", fmt.Errorf("unknown prompt type: %q (must be standard, detailed, or quick)", s)
	}
}

// ForComplexity selects a prompt type from estimated log complexity:
// complex incidents get the detailed prompt, everything else standard.
func ForComplexity(c preprocess.Complexity) Type {
	if c == preprocess.ComplexityComplex {
		return TypeDetailed
	}
	return TypeStandard
}

// BuildOptions holds the contextual information required to build a
// chunk's messages.
type BuildOptions struct {
	// LogText is the chunk content to analyze. Required.
	LogText string

	// Format is the detected log format, included as context.
	Format preprocess.Format

	// Complexity is the estimated incident complexity, included as context.
	Complexity preprocess.Complexity
}

// ErrMissingField is returned by [Build] when a required field is
// absent from [BuildOptions].
var ErrMissingField = errors.New("prompt: missing required field")

func missingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

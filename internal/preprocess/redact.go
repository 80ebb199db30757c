package preprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// Redactor removes sensitive data from log text while preserving
// correlation between identical values: the same secret always maps to
// the same placeholder, so the LLM can still see that two lines refer
// to the same host or key without seeing the value itself.
type Redactor struct {
	enabled  bool
	patterns []RedactionPattern

	mu      sync.Mutex
	hashMap map[string]string // original value -> placeholder
}

// NewRedactor creates a Redactor using the named patterns. Unknown names
// are ignored; an empty selection falls back to the default set.
func NewRedactor(enabled bool, patternNames []string) *Redactor {
	patterns := GetPatterns(patternNames)
	if len(patterns) == 0 {
		patterns = GetPatterns(DefaultPatterns())
	}

	return &Redactor{
		enabled:  enabled,
		patterns: patterns,
		hashMap:  make(map[string]string),
	}
}

// RedactAndCount replaces every pattern match with its placeholder and
// reports how many replacements were made. Disabled redactors return the
// text unchanged.
//
//	"refused from 10.0.0.7" -> "refused from [IPV4:9b1c]"
func (r *Redactor) RedactAndCount(text string) (string, int) {
	if !r.enabled || len(r.patterns) == 0 {
		return text, 0
	}

	count := 0
	result := text

	for _, pattern := range r.patterns {
		result = pattern.Regex.ReplaceAllStringFunc(result, func(match string) string {
			count++
			return r.placeholder(match, pattern.Type)
		})
	}

	return result, count
}

// placeholder returns the stable placeholder for a value.
func (r *Redactor) placeholder(value, patternType string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.hashMap[value]; ok {
		return p
	}

	sum := sha256.Sum256([]byte(value))
	p := fmt.Sprintf("[%s:%s]", patternType, hex.EncodeToString(sum[:2]))
	r.hashMap[value] = p
	return p
}

// Reset clears remembered value-to-placeholder mappings. Call between
// unrelated documents so correlations do not leak across them.
func (r *Redactor) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashMap = make(map[string]string)
}

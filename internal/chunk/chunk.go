// Package chunk splits documents into bounded, overlapping units for
// independent analysis. Splitting is pure: identical input and settings
// always produce identical units.
package chunk

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Default splitting parameters, tuned for log text.
const (
	DefaultSize    = 2000
	DefaultOverlap = 200
)

// Unit is one chunk of a document. Indices are dense and zero-based;
// reassembly relies on them regardless of completion order.
type Unit struct {
	Index int
	Text  string
}

// Splitter produces Units via recursive character splitting, preferring
// paragraph boundaries, then line boundaries, then word boundaries.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter. Out-of-range settings are normalized:
// a non-positive size falls back to DefaultSize, a negative overlap to
// zero, and an overlap reaching the chunk size to a quarter of it.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split breaks text into ordered Units no longer than the configured
// size, with the configured overlap carried between consecutive units.
// Whitespace-only input yields no units.
func (s *Splitter) Split(text string) ([]Unit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.size),
		textsplitter.WithChunkOverlap(s.overlap),
	)

	segments, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split document: %w", err)
	}

	units := make([]Unit, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		units = append(units, Unit{Index: len(units), Text: segment})
	}

	return units, nil
}

package prompt_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/rootcauseai/rootcause/internal/preprocess"
	"github.com/rootcauseai/rootcause/internal/prompt"
)

const testLogText = `2024-01-15 14:32:01 ERROR database connection refused
2024-01-15 14:32:02 ERROR dial tcp 127.0.0.1:5432: connect: connection refused
2024-01-15 14:32:05 WARN retry attempt 1 of 3
2024-01-15 14:32:10 FATAL giving up after 3 retries`

// TestBuild_RequiresLogText verifies that ErrMissingField is returned when
// LogText is empty, for every Type.
func TestBuild_RequiresLogText(t *testing.T) {
	types := []prompt.Type{
		prompt.TypeStandard,
		prompt.TypeDetailed,
		prompt.TypeQuick,
	}

	for _, pt := range types {
		t.Run(string(pt), func(t *testing.T) {
			opts := prompt.BuildOptions{Format: preprocess.FormatStandard}
			_, err := prompt.Build(pt, opts)
			if !errors.Is(err, prompt.ErrMissingField) {
				t.Errorf("expected ErrMissingField, got %v", err)
			}
		})
	}
}

// TestBuild_MessageStructure pins the system-then-user shape for each type.
func TestBuild_MessageStructure(t *testing.T) {
	types := []prompt.Type{
		prompt.TypeStandard,
		prompt.TypeDetailed,
		prompt.TypeQuick,
	}

	for _, pt := range types {
		t.Run(string(pt), func(t *testing.T) {
			msgs, err := prompt.Build(pt, prompt.BuildOptions{LogText: testLogText})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(msgs) != 2 {
				t.Fatalf("message count: got %d, want 2", len(msgs))
			}
			if msgs[0].Role != "system" {
				t.Errorf("msgs[0].Role = %q, want %q", msgs[0].Role, "system")
			}
			if msgs[1].Role != "user" {
				t.Errorf("msgs[1].Role = %q, want %q", msgs[1].Role, "user")
			}
		})
	}
}

// TestBuild_SystemPromptDistinctPerType checks that different Types produce
// different system prompts (no copy-paste accident).
func TestBuild_SystemPromptDistinctPerType(t *testing.T) {
	types := []prompt.Type{
		prompt.TypeStandard,
		prompt.TypeDetailed,
		prompt.TypeQuick,
	}

	seen := make(map[string]prompt.Type)
	for _, pt := range types {
		msgs, err := prompt.Build(pt, prompt.BuildOptions{LogText: testLogText})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", pt, err)
		}

		systemContent := msgs[0].Content
		if prior, exists := seen[systemContent]; exists {
			t.Errorf("prompt type %q has identical system prompt to %q", pt, prior)
		}
		seen[systemContent] = pt
	}
}

// TestBuild_UserPromptContainsLogText verifies the chunk content appears in
// the user message for all types.
func TestBuild_UserPromptContainsLogText(t *testing.T) {
	snippet := "database connection refused"

	types := []prompt.Type{
		prompt.TypeStandard,
		prompt.TypeDetailed,
		prompt.TypeQuick,
	}

	for _, pt := range types {
		t.Run(string(pt), func(t *testing.T) {
			msgs, err := prompt.Build(pt, prompt.BuildOptions{LogText: testLogText})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !strings.Contains(msgs[1].Content, snippet) {
				t.Errorf("user message does not contain log snippet %q", snippet)
			}
		})
	}
}

// TestBuild_ContextMetadata verifies that detected format and complexity
// appear in the user message when set, and are omitted when empty.
func TestBuild_ContextMetadata(t *testing.T) {
	opts := prompt.BuildOptions{
		LogText:    testLogText,
		Format:     preprocess.FormatJSON,
		Complexity: preprocess.ComplexityComplex,
	}

	msgs, err := prompt.Build(prompt.TypeStandard, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := msgs[1].Content
	if !strings.Contains(user, string(preprocess.FormatJSON)) {
		t.Errorf("user message missing format context:\n%s", user)
	}
	if !strings.Contains(user, string(preprocess.ComplexityComplex)) {
		t.Errorf("user message missing complexity context:\n%s", user)
	}

	bare, err := prompt.Build(prompt.TypeStandard, prompt.BuildOptions{LogText: testLogText})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(bare[1].Content, "Log format:") {
		t.Errorf("format line should be omitted when unset:\n%s", bare[1].Content)
	}
}

// TestParseType covers the flag strings accepted by ParseType.
func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    prompt.Type
		wantErr bool
	}{
		{in: "standard", want: prompt.TypeStandard},
		{in: "detailed", want: prompt.TypeDetailed},
		{in: "quick", want: prompt.TypeQuick},
		{in: "Standard", wantErr: true},
		{in: "thorough", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := prompt.ParseType(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseType(%q): expected error, got %q", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseType(%q): unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseType(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// TestForComplexity verifies the complexity-to-type selection.
func TestForComplexity(t *testing.T) {
	tests := []struct {
		c    preprocess.Complexity
		want prompt.Type
	}{
		{c: preprocess.ComplexitySimple, want: prompt.TypeStandard},
		{c: preprocess.ComplexityModerate, want: prompt.TypeStandard},
		{c: preprocess.ComplexityComplex, want: prompt.TypeDetailed},
	}

	for _, tc := range tests {
		t.Run(string(tc.c), func(t *testing.T) {
			if got := prompt.ForComplexity(tc.c); got != tc.want {
				t.Errorf("ForComplexity(%q) = %q, want %q", tc.c, got, tc.want)
			}
		})
	}
}

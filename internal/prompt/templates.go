package prompt

import (
	"fmt"
	"strings"

	"github.com/rootcauseai/rootcause/internal/llm"
)

// Build assembles the conversation for one analysis request: a system
// message chosen by t, then a single user message carrying the task
// instruction and the log context.
//
// Returns ErrMissingField if opts.LogText is empty.
func Build(t Type, opts BuildOptions) ([]llm.Message, error) {
	if opts.LogText == "" {
		return nil, missingField("LogText")
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt(t)},
		{Role: "user", Content: buildUserMessage(t, opts)},
	}, nil
}

// buildUserMessage assembles the user-turn content for the given type.
func buildUserMessage(t Type, opts BuildOptions) string {
	var sb strings.Builder

	switch t {
	case TypeDetailed:
		sb.WriteString("Conduct a post-incident analysis of the following logs:\n\n")
	case TypeQuick:
		sb.WriteString("Scan the following logs for errors:\n\n")
	default: // TypeStandard
		sb.WriteString("Analyze the following logs:\n\n")
	}

	appendLogContext(&sb, opts)

	switch t {
	case TypeQuick:
		// No closing instruction; the system prompt fixes the output format.
	case TypeDetailed:
		sb.WriteString("\nProduce the incident report:")
	default:
		sb.WriteString("\nBegin your systematic analysis:")
	}

	return sb.String()
}

// appendLogContext writes the detected format and complexity metadata,
// followed by the log data itself, into sb.
func appendLogContext(sb *strings.Builder, opts BuildOptions) {
	if opts.Format != "" {
		sb.WriteString(fmt.Sprintf("Log format: %s\n", opts.Format))
	}
	if opts.Complexity != "" {
		sb.WriteString(fmt.Sprintf("Estimated complexity: %s\n", opts.Complexity))
	}
	if opts.Format != "" || opts.Complexity != "" {
		sb.WriteString("\n")
	}

	sb.WriteString("Log data:\n")
	sb.WriteString(opts.LogText)
	sb.WriteString("\n")
}

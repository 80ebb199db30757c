// Package prompt provides structured prompt templates for LLM-powered
// log analysis.
//
// # Overview
//
// The package defines a set of [Type] constants, each representing a
// distinct analysis depth. Callers construct a [BuildOptions] value
// describing the chunk and its detected context and call [Build] to
// receive a fully-formed []llm.Message slice that can be sent directly
// to any [llm.Provider].
//
// # Prompt types
//
//   - [TypeStandard]: systematic root cause analysis (the default)
//   - [TypeDetailed]: full post-incident report for complex failures
//   - [TypeQuick]: terse errors / cause / fix triage
//
// # Basic usage
//
//	opts := prompt.BuildOptions{
//	    LogText:    chunkText,
//	    Format:     detectedFormat,
//	    Complexity: estimatedComplexity,
//	}
//	messages, err := prompt.Build(prompt.TypeStandard, opts)
//	if err != nil {
//	    return err
//	}
//	// Pass messages directly to llm.Provider.Chat(ctx, messages, chatOpts)
//
// When the caller has no explicit preference, [ForComplexity] selects a
// type from the complexity estimate produced by the preprocess package.
package prompt

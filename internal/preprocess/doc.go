// Package preprocess provides log filtering and redaction for LLM consumption.
//
// The preprocessing pipeline shrinks raw logs before they are chunked and
// sent to a model:
//
//  1. Severity Filtering - Drops debug/info noise while always keeping
//     critical lines (panics, fatals, stack traces)
//  2. Secret Redaction - Replaces PII/credentials with correlation-preserving
//     hash placeholders
//
// If filtering would remove more than 90% of the input, the original text is
// kept so the model still has something to work with.
//
// Basic usage:
//
//	pre := preprocess.New(
//	    preprocess.WithMinLevel(config.LevelWarning),
//	    preprocess.WithRedaction(true),
//	)
//	filtered, stats := pre.Process(logText)
//
// The package also detects the log format and estimates failure complexity,
// which drives prompt selection:
//
//	format := preprocess.DetectFormat(logText)
//	complexity := preprocess.EstimateComplexity(logText)
//
// Configuration via ~/.rootcause.yaml:
//
//	analyze:
//	  preprocess: true
//	  filter_debug: true
//	  min_severity: ""
//	redaction:
//	  enabled: true
//	  patterns:
//	    - ipv4
//	    - email
//	    - api_key
package preprocess

package preprocess

import (
	"regexp"
	"strings"
)

// Format identifies the structural style of a log document.
type Format string

const (
	FormatJSON        Format = "json"
	FormatApacheNginx Format = "apache_nginx"
	FormatSyslog      Format = "syslog"
	FormatStructured  Format = "structured"
	FormatStandard    Format = "standard"
)

// Complexity is a coarse estimate of how tangled a document's failures
// are, used to pick an analysis prompt.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

var (
	accessLogLine = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+.*\[.*\].*"`)
	syslogLine    = regexp.MustCompile(`^\w{3}\s+\d+\s+\d{2}:\d{2}:\d{2}`)
	keyValuePair  = regexp.MustCompile(`\w+=\w+`)
)

// DetectFormat samples the first 50 lines and classifies the document.
func DetectFormat(text string) Format {
	lines := strings.Split(text, "\n")
	if len(lines) > 50 {
		lines = lines[:50]
	}

	jsonCount := 0
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "{") && strings.Contains(line, "}") {
			jsonCount++
		}
	}
	if float64(jsonCount) > float64(len(lines))*0.5 {
		return FormatJSON
	}

	for _, line := range lines {
		if accessLogLine.MatchString(line) {
			return FormatApacheNginx
		}
	}

	for _, line := range lines {
		if syslogLine.MatchString(line) {
			return FormatSyslog
		}
	}

	head := lines
	if len(head) > 10 {
		head = head[:10]
	}
	for _, line := range head {
		if keyValuePair.MatchString(line) {
			return FormatStructured
		}
	}

	return FormatStandard
}

// EstimateComplexity counts error lines and distinct error messages.
func EstimateComplexity(text string) Complexity {
	lines := strings.Split(text, "\n")

	errorCount := 0
	unique := make(map[string]struct{})

	for _, line := range lines {
		upper := strings.ToUpper(line)
		for _, kw := range []string{"ERROR", "FATAL", "EXCEPTION", "FAILED"} {
			if strings.Contains(upper, kw) {
				errorCount++
				break
			}
		}
		if strings.Contains(upper, "ERROR") {
			unique[strings.TrimSpace(line)] = struct{}{}
		}
	}

	switch {
	case errorCount == 0:
		return ComplexitySimple
	case errorCount < 10 && len(unique) < 5:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

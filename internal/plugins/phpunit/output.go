package phpunit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	okPattern         = regexp.MustCompile(`OK\s*\(\s*(\d+)\s+tests?`)
	testsPattern      = regexp.MustCompile(`Tests:\s*(\d+)`)
	failuresPattern   = regexp.MustCompile(`Failures:\s*(\d+)`)
	errorsPattern     = regexp.MustCompile(`Errors:\s*(\d+)`)
	skippedPattern    = regexp.MustCompile(`Skipped:\s*(\d+)`)
	incompletePattern = regexp.MustCompile(`Incomplete:\s*(\d+)`)
	headerPattern     = regexp.MustCompile(`^\d+\)\s+(\S+)::(\S+)`)
	tracePattern      = regexp.MustCompile(`\.php:\d+$`)
)

// Summary holds the counts PHPUnit prints at the end of a run.
type Summary struct {
	Tests      int
	Failures   int
	Errors     int
	Skipped    int
	Incomplete int
}

func count(re *regexp.Regexp, output string) int {
	m := re.FindStringSubmatch(output)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ParseSummary extracts the test counts from PHPUnit output.
func ParseSummary(output string) Summary {
	// OK (N tests, ...) - all passed
	if n := count(okPattern, output); n > 0 {
		return Summary{Tests: n}
	}
	// FAILURES! or ERRORS! - Tests: N, Assertions: ..., Failures: F, Errors: E
	return Summary{
		Tests:      count(testsPattern, output),
		Failures:   count(failuresPattern, output),
		Errors:     count(errorsPattern, output),
		Skipped:    count(skippedPattern, output),
		Incomplete: count(incompletePattern, output),
	}
}

// Failure is one failed, errored or skipped case reported by PHPUnit.
type Failure struct {
	Class      string
	Method     string
	Message    string
	Details    string
	StackTrace []string
	File       string
	Line       int
	Reproduce  string
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Message)
	if f.Details != "" {
		b.WriteString("\n")
		b.WriteString(f.Details)
	}
	if len(f.StackTrace) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(f.StackTrace, "\n"))
	}
	if f.Reproduce != "" {
		b.WriteString("\n\nReproduce: ")
		b.WriteString(f.Reproduce)
	}
	return b.String()
}

// ParseFailures parses every numbered case block of PHPUnit output.
func ParseFailures(output string) []*Failure {
	var failures []*Failure
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if m := headerPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			failures = append(failures, parseFailureCase(lines[i+1:], m[1], m[2]))
		}
	}
	return failures
}

// parseFailureCase reads the message, the JSON details block and the
// stack trace that follow a case header.
func parseFailureCase(lines []string, class, method string) *Failure {
	f := &Failure{Class: class, Method: strings.TrimSuffix(method, ":")}

	var messageLines, jsonLines []string
	inJSON := false
	braces := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Check if we hit the next case or the summary
		if headerPattern.MatchString(trimmed) || strings.HasPrefix(trimmed, "FAILURES!") ||
			strings.HasPrefix(trimmed, "ERRORS!") || strings.HasPrefix(trimmed, "OK, but") ||
			strings.HasPrefix(trimmed, "There w") || strings.HasPrefix(trimmed, "--") {
			break
		}

		if trimmed == "{" && !inJSON {
			inJSON = true
			braces = 1
			jsonLines = append(jsonLines, line)
			continue
		}
		if inJSON {
			jsonLines = append(jsonLines, line)
			braces += strings.Count(line, "{") - strings.Count(line, "}")
			if braces == 0 {
				f.Details = strings.Join(jsonLines, "\n")
				inJSON = false
			}
			continue
		}

		// Stack trace lines are file paths with line numbers: /path/to/file.php:123
		if tracePattern.MatchString(trimmed) {
			f.StackTrace = append(f.StackTrace, trimmed)
			if f.File == "" && !strings.Contains(trimmed, "/vendor/") {
				if i := strings.LastIndex(trimmed, ":"); i > 0 {
					f.File = trimmed[:i]
					fmt.Sscanf(trimmed[i+1:], "%d", &f.Line)
				}
			}
			continue
		}

		// Skip empty lines at the very start
		if len(messageLines) == 0 && trimmed == "" {
			continue
		}
		messageLines = append(messageLines, line)
	}

	for len(messageLines) > 0 && strings.TrimSpace(messageLines[len(messageLines)-1]) == "" {
		messageLines = messageLines[:len(messageLines)-1]
	}
	f.Message = strings.Join(messageLines, "\n")
	return f
}

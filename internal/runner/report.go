package runner

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"nosey/internal/domain"
	"nosey/internal/suite"
)

// maxStackLines bounds the stack kept per failure in the saved report.
const maxStackLines = 40

// NewOutput converts the results of a run into its persisted form.
func NewOutput(runID, workingDir string, names []string, results *suite.Results, elapsed time.Duration) *domain.TestResultsOutput {
	out := &domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{
			RunID:           runID,
			WorkingDir:      workingDir,
			Names:           names,
			TestsRun:        results.TestsRun,
			Passed:          results.Successes,
			Failures:        len(results.Failures),
			Errors:          len(results.Errors),
			Skipped:         len(results.Skips),
			Duration:        elapsed.String(),
			DurationSeconds: elapsed.Seconds(),
			Timestamp:       time.Now().Format(time.RFC3339),
		},
		Details: []domain.TestFailure{},
	}
	for _, rec := range results.Errors {
		out.Details = append(out.Details, NewFailure(workingDir, rec))
	}
	for _, rec := range results.Failures {
		out.Details = append(out.Details, NewFailure(workingDir, rec))
	}
	return out
}

// NewFailure describes one failed or errored test.
func NewFailure(workingDir string, rec suite.Record) domain.TestFailure {
	addr := rec.Test.Address()
	f := domain.TestFailure{
		TestName: rec.Test.String(),
		Outcome:  rec.Outcome.String(),
	}
	if !addr.IsZero() {
		f.Address = addr.String()
	}
	f.FilePath = relativePath(workingDir, addr.Filename)
	if rec.Err != nil {
		f.ErrorType = errorType(rec.Err)
		f.Message = rec.Err.Error()
	}
	f.StackTrace, f.File, f.Line = stackOf(rec.Err)
	return f
}

// NewTestEntry describes a collected test for listing.
func NewTestEntry(workingDir string, t suite.Test) domain.Test {
	addr := t.Address()
	entry := domain.Test{
		Name:        t.String(),
		FilePath:    relativePath(workingDir, addr.Filename),
		Description: t.ShortDescription(),
	}
	if !addr.IsZero() {
		entry.Address = addr.String()
	}
	return entry
}

// relativePath returns path relative to workingDir when it lies inside it.
func relativePath(workingDir, path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(workingDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// errorType names the innermost error of a chain.
func errorType(err error) string {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok || u.Unwrap() == nil {
			return fmt.Sprintf("%T", err)
		}
		err = u.Unwrap()
	}
}

// stackOf extracts the stack of a panic together with the first frame
// outside the runtime and the suite package.
func stackOf(err error) (lines []string, file string, line int) {
	var p *suite.PanicError
	if !errors.As(err, &p) || len(p.Stack) == 0 {
		return nil, "", 0
	}
	for _, l := range strings.Split(strings.TrimSpace(string(p.Stack)), "\n") {
		if len(lines) == maxStackLines {
			break
		}
		lines = append(lines, l)
		trimmed := strings.TrimSpace(l)
		if file != "" || !strings.HasPrefix(l, "\t") {
			continue
		}
		if strings.Contains(trimmed, "/runtime/") || strings.Contains(trimmed, "/internal/suite/") {
			continue
		}
		loc := strings.Fields(trimmed)[0]
		if i := strings.LastIndex(loc, ":"); i > 0 {
			if _, err := fmt.Sscanf(loc[i+1:], "%d", &line); err == nil {
				file = loc[:i]
			}
		}
	}
	return lines, file, line
}

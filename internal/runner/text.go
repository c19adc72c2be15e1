package runner

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"nosey/internal/suite"
	"nosey/internal/ui"
)

const (
	separator1 = "======================================================================"
	separator2 = "----------------------------------------------------------------------"
)

// TextResult reports outcomes to a console stream while accumulating
// them. Verbosity 0 shows a progress bar, 1 a character per test and 2 a
// line per test.
type TextResult struct {
	*suite.Results

	w         io.Writer
	verbosity int
	describe  func(suite.Test) string
	progress  *ui.ProgressBar
}

// NewTextResult creates a new TextResult. describe may supply test
// descriptions; an empty answer falls back to the test's own.
func NewTextResult(w io.Writer, verbosity int, stopOnFailure bool, describe func(suite.Test) string) *TextResult {
	return &TextResult{
		Results:   suite.NewResults(stopOnFailure),
		w:         w,
		verbosity: verbosity,
		describe:  describe,
	}
}

// Description returns the text a test is reported under.
func (r *TextResult) Description(t suite.Test) string {
	if r.describe != nil {
		if d := r.describe(t); d != "" {
			return d
		}
	}
	if r.verbosity > 1 {
		if d := t.ShortDescription(); d != "" {
			return d
		}
	}
	return t.String()
}

func (r *TextResult) StartTest(t suite.Test) {
	r.Results.StartTest(t)
	switch {
	case r.verbosity > 1:
		fmt.Fprintf(r.w, "%s ... ", r.Description(t))
	case r.verbosity == 0 && r.progress == nil:
		r.progress = ui.NewProgressBar(r.w, -1)
	}
}

func (r *TextResult) AddSuccess(t suite.Test) {
	r.Results.AddSuccess(t)
	r.mark(color.GreenString("ok"), ".")
}

func (r *TextResult) AddFailure(t suite.Test, err error) {
	r.Results.AddFailure(t, err)
	r.mark(color.RedString("FAIL"), "F")
}

func (r *TextResult) AddError(t suite.Test, err error) {
	r.Results.AddError(t, err)
	r.mark(color.RedString("ERROR"), "E")
}

func (r *TextResult) AddSkip(t suite.Test, reason string) {
	r.Results.AddSkip(t, reason)
	r.mark(color.YellowString("SKIP: %s", reason), "S")
}

func (r *TextResult) mark(long, short string) {
	switch {
	case r.verbosity > 1:
		fmt.Fprintln(r.w, long)
	case r.verbosity == 1:
		fmt.Fprint(r.w, short)
	case r.progress != nil:
		r.progress.Update(r.Successes, len(r.Failures)+len(r.Errors), len(r.Skips))
	}
}

// PrintErrors lists every error and failure with its details.
func (r *TextResult) PrintErrors() {
	if r.progress != nil {
		r.progress.Finish()
		r.progress = nil
	}
	if r.verbosity > 0 {
		fmt.Fprintln(r.w)
	}
	r.printList("ERROR", r.Errors)
	r.printList("FAIL", r.Failures)
}

func (r *TextResult) printList(flavour string, records []suite.Record) {
	for _, rec := range records {
		fmt.Fprintln(r.w, separator1)
		fmt.Fprintf(r.w, "%s: %s\n", color.RedString(flavour), r.Description(rec.Test))
		fmt.Fprintln(r.w, separator2)
		fmt.Fprintln(r.w, FormatErr(rec.Err))
	}
}

// PrintSummary prints the count, the time taken and the verdict.
func (r *TextResult) PrintSummary(elapsed time.Duration) {
	fmt.Fprintln(r.w, separator2)
	plural := "s"
	if r.TestsRun == 1 {
		plural = ""
	}
	fmt.Fprintf(r.w, "Ran %d test%s in %.3fs\n\n", r.TestsRun, plural, elapsed.Seconds())

	var details []string
	if n := len(r.Failures); n > 0 {
		details = append(details, fmt.Sprintf("failures=%d", n))
	}
	if n := len(r.Errors); n > 0 {
		details = append(details, fmt.Sprintf("errors=%d", n))
	}
	if n := len(r.Skips); n > 0 {
		details = append(details, fmt.Sprintf("SKIP=%d", n))
	}
	verdict := color.GreenString("OK")
	if !r.WasSuccessful() {
		verdict = color.RedString("FAILED")
	}
	if len(details) > 0 {
		fmt.Fprintf(r.w, "%s (%s)\n", verdict, strings.Join(details, ", "))
		return
	}
	fmt.Fprintln(r.w, verdict)
}

// FormatErr renders an error for the console, with the stack of a panic.
func FormatErr(err error) string {
	if err == nil {
		return ""
	}
	var p *suite.PanicError
	if errors.As(err, &p) && len(p.Stack) > 0 {
		return err.Error() + "\n\n" + strings.TrimRight(string(p.Stack), "\n")
	}
	return err.Error()
}

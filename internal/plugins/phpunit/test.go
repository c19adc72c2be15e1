package phpunit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alessio/shellescape"

	"nosey/internal/address"
	"nosey/internal/suite"
)

// Test runs a single PHP test method through PHPUnit.
type Test struct {
	File   string
	Class  string
	Method string

	runner *Runner
}

// Args returns the PHPUnit arguments selecting this test.
func (t *Test) Args() []string {
	return []string{"--filter", fmt.Sprintf("/::%s( .*)?$/", t.Method), t.File}
}

// Command returns a shell command reproducing the test.
func (t *Test) Command() string {
	return shellescape.QuoteCommand(append([]string{t.runner.Bin}, t.Args()...))
}

// Run executes PHPUnit and reports the outcome it prints.
func (t *Test) Run(ctx context.Context, result suite.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result.StartTest(t)
	defer result.StopTest(t)

	output, err := t.runner.Run(ctx, t.Args()...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	s := ParseSummary(output)
	switch {
	case s.Errors > 0:
		result.AddError(t, t.failure(output))
	case s.Failures > 0:
		result.AddFailure(t, t.failure(output))
	case err != nil:
		result.AddError(t, fmt.Errorf("phpunit: %w\n%s", err, strings.TrimSpace(output)))
	case s.Tests == 0:
		result.AddError(t, errors.New("phpunit executed no tests"))
	case s.Skipped+s.Incomplete >= s.Tests:
		reason := "skipped by phpunit"
		if fs := ParseFailures(output); len(fs) > 0 && fs[0].Message != "" {
			reason = fs[0].Message
		}
		result.AddSkip(t, reason)
	default:
		result.AddSuccess(t)
	}
	return nil
}

func (t *Test) failure(output string) *Failure {
	f := &Failure{Class: t.Class, Method: t.Method, Message: strings.TrimSpace(output)}
	if fs := ParseFailures(output); len(fs) > 0 {
		f = fs[0]
	}
	f.Reproduce = t.Command()
	return f
}

func (t *Test) Address() address.Address {
	return address.Address{Filename: t.File, Call: t.Method}
}

func (t *Test) String() string { return t.Class + "::" + t.Method }

func (t *Test) ShortDescription() string { return "" }

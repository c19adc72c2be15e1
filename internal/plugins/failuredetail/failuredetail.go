// Package failuredetail adds the cause chain of a failure and the test it
// came from to the failure report.
package failuredetail

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

// DetailedError is a failure with its detail appended.
type DetailedError struct {
	Err    error
	Detail string
}

func (e *DetailedError) Error() string { return e.Err.Error() + "\n" + e.Detail }

func (e *DetailedError) Unwrap() error { return e.Err }

// Plugin rewrites failures into DetailedErrors.
type Plugin struct {
	plugin.Base
	plugin.NopErrorFormatter

	on bool
}

// New creates a new failure detail plugin
func New() *Plugin {
	return &Plugin{Base: plugin.Base{
		PluginName: "failuredetail",
		Help:       "add detail to failure output",
	}}
}

func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	fs.BoolVarP(&p.on, "detailed-errors", "d", env.Bool("NOSEY_DETAILED_ERRORS", false),
		"Add the cause chain and test address to failures [NOSEY_DETAILED_ERRORS]")
}

func (p *Plugin) Configure(*config.Config) error {
	p.SetEnabled(p.on)
	return nil
}

// FormatFailure appends the detail of err.
func (p *Plugin) FormatFailure(t suite.Test, err error) error {
	if err == nil {
		return nil
	}
	return &DetailedError{Err: err, Detail: Detail(t, err)}
}

// Detail describes the test and every error in the chain of err.
func Detail(t suite.Test, err error) string {
	var b strings.Builder
	b.WriteString("Failure detail:")
	if t != nil {
		fmt.Fprintf(&b, "\n  test: %s", t)
		if addr := t.Address(); !addr.IsZero() {
			fmt.Fprintf(&b, " (%s)", addr)
		}
	}
	n := 0
	var walk func(err error, depth int)
	walk = func(err error, depth int) {
		for err != nil {
			n++
			fmt.Fprintf(&b, "\n  %scause %d: %T: %s", strings.Repeat("  ", depth), n, err, firstLine(err.Error()))
			switch u := err.(type) {
			case interface{ Unwrap() []error }:
				for _, e := range u.Unwrap() {
					walk(e, depth+1)
				}
				return
			case interface{ Unwrap() error }:
				err = u.Unwrap()
			default:
				return
			}
		}
	}
	walk(err, 0)
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

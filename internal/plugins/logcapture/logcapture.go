// Package logcapture collects the slog records emitted while a test runs
// and attaches them to the error or failure of that test.
package logcapture

import (
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/logging"
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

const (
	// DefaultFormat lays out one captured record.
	DefaultFormat = "{logger}: {level}: {message} {attrs}"

	beginMarker = "-------------------- >> begin captured logging << --------------------"
	endMarker   = "--------------------- >> end captured logging << ---------------------"
)

// builtin is the handler of the default logger slog starts with. It writes
// through the log package, which SetDefault redirects, so records are
// never forwarded to it.
var builtin = slog.Default().Handler()

// CapturedError is an error with the records logged by its test.
type CapturedError struct {
	Err     error
	Records []string
}

func (e *CapturedError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	b.WriteString("\n")
	b.WriteString(beginMarker)
	for _, r := range e.Records {
		b.WriteString("\n")
		b.WriteString(r)
	}
	b.WriteString("\n")
	b.WriteString(endMarker)
	return b.String()
}

func (e *CapturedError) Unwrap() error { return e.Err }

// Plugin installs a capturing default logger for the duration of a run.
type Plugin struct {
	plugin.Base
	plugin.NopReporter
	plugin.NopErrorFormatter
	plugin.NopLifecycle

	format        string
	filterSpec    string
	level         string
	clearHandlers bool

	buf       buffer
	previous  *slog.Logger
	logWriter io.Writer
	logFlags  int
}

// New creates a new log capture plugin. It is enabled by default.
func New() *Plugin {
	return &Plugin{Base: plugin.Base{
		PluginName: "logcapture",
		Help:       "capture logging during tests",
		DefaultOn:  true,
	}}
}

// Options registers --nologcapture and the --logging-* settings.
func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	p.Base.Options(fs, env)
	fs.StringVar(&p.format, "logging-format", env.String("NOSEY_LOGFORMAT", DefaultFormat),
		"Layout of captured records; {time} {level} {logger} {message} {attrs} are replaced [NOSEY_LOGFORMAT]")
	fs.StringVar(&p.filterSpec, "logging-filter", env.String("NOSEY_LOGFILTER", ""),
		"Capture only these comma separated loggers; prefix a name with - to drop it [NOSEY_LOGFILTER]")
	fs.StringVar(&p.level, "logging-level", env.String("NOSEY_LOGLEVEL", "debug"),
		"Capture records at this level and above [NOSEY_LOGLEVEL]")
	fs.BoolVar(&p.clearHandlers, "logging-clear-handlers", false,
		"Do not pass captured records on to the logger configured before the run")
}

func (p *Plugin) Configure(cfg *config.Config) error {
	if err := p.Base.Configure(cfg); err != nil {
		return err
	}
	if p.format == "" {
		p.format = DefaultFormat
	}
	return nil
}

// Begin swaps the default logger for a capturing one.
func (p *Plugin) Begin() error {
	p.previous = slog.Default()
	p.logWriter = log.Writer()
	p.logFlags = log.Flags()

	h := &handler{
		buf:    &p.buf,
		level:  logging.ParseLevel(p.level),
		format: p.format,
		filter: newFilter(p.filterSpec),
	}
	if prev := p.previous.Handler(); !p.clearHandlers && prev != builtin {
		h.forward = prev
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// Finalize restores the loggers that were installed before Begin.
func (p *Plugin) Finalize(*suite.Results) error {
	if p.previous == nil {
		return nil
	}
	slog.SetDefault(p.previous)
	log.SetOutput(p.logWriter)
	log.SetFlags(p.logFlags)
	p.previous = nil
	return nil
}

// BeforeTest drops the records of the previous test.
func (p *Plugin) BeforeTest(suite.Test) { p.buf.truncate() }

// Records returns the records captured for the current test.
func (p *Plugin) Records() []string { return p.buf.snapshot() }

func (p *Plugin) FormatError(_ suite.Test, err error) error { return p.attach(err) }

func (p *Plugin) FormatFailure(_ suite.Test, err error) error { return p.attach(err) }

func (p *Plugin) attach(err error) error {
	records := p.buf.snapshot()
	if err == nil || len(records) == 0 {
		return err
	}
	return &CapturedError{Err: err, Records: records}
}

// Package testid numbers tests as they run so that a later run can
// select them by number:
//
//	nosey run --with-id -v          prints "#1 calc.test_add ... ok"
//	nosey run --with-id '#1' '#4'   reruns tests 1 and 4
//
// Ids are kept in a JSON file between runs and stay stable for tests
// whose address does not change. Tests produced by a generator share the
// generator's address, so they share one id, and selecting that id runs
// the whole generator again.
package testid

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

// DefaultIDFile is the id file name, relative to the working directory.
const DefaultIDFile = ".noseids"

// idFile is the persisted form of the id map.
type idFile struct {
	IDs map[string]string `json:"ids"`
}

// Plugin assigns ids and translates "#N" names into addresses.
type Plugin struct {
	plugin.Base
	plugin.NopReporter
	plugin.NopPreparer
	plugin.NopLifecycle

	path      string
	verbosity int
	stream    io.Writer
	loaded    bool

	ids    map[int]string
	byAddr map[string]int
	next   int
}

// New creates a new test id plugin
func New() *Plugin {
	return &Plugin{Base: plugin.Base{
		PluginName: "id",
		Help:       "number tests and select them by number",
	}}
}

// Options registers --with-id and --id-file.
func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	p.Base.Options(fs, env)
	fs.StringVar(&p.path, "id-file", env.String("NOSEY_ID_FILE", DefaultIDFile),
		"Store test ids in this file, relative to the working directory [NOSEY_ID_FILE]")
}

func (p *Plugin) Configure(cfg *config.Config) error {
	if err := p.Base.Configure(cfg); err != nil {
		return err
	}
	if p.path == "" {
		p.path = DefaultIDFile
	}
	if !filepath.IsAbs(p.path) {
		p.path = filepath.Join(cfg.WorkingDir, p.path)
	}
	p.verbosity = cfg.Verbosity
	return nil
}

// Path returns the location of the id file.
func (p *Plugin) Path() string { return p.path }

// load reads the id file once. A missing file is an empty map.
func (p *Plugin) load() error {
	if p.loaded {
		return nil
	}
	p.loaded = true
	p.ids = map[int]string{}
	p.byAddr = map[string]int{}
	p.next = 1

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read id file: %w", err)
	}
	var f idFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse id file %s: %w", p.path, err)
	}
	for k, addr := range f.IDs {
		id, err := strconv.Atoi(k)
		if err != nil || id < 1 {
			continue
		}
		p.ids[id] = addr
		p.byAddr[addr] = id
		if id >= p.next {
			p.next = id + 1
		}
	}
	return nil
}

// parseID returns the number of an id name: "#3" or "3".
func parseID(name string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(name, "#"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// LoadTestsFromNames replaces id names with the addresses they stand for.
// Unknown ids are left alone.
func (p *Plugin) LoadTestsFromNames(names []string, _ *namespace.Module) (iter.Seq[suite.Test], []string, error) {
	if err := p.load(); err != nil {
		return nil, nil, err
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := parseID(name); ok {
			if addr, known := p.ids[id]; known {
				out = append(out, addr)
				continue
			}
		}
		out = append(out, name)
	}
	return nil, out, nil
}

// SetOutputStream keeps the stream ids are printed to.
func (p *Plugin) SetOutputStream(w io.Writer) io.Writer {
	p.stream = w
	return nil
}

// Begin makes sure existing ids are loaded before numbering.
func (p *Plugin) Begin() error { return p.load() }

// StartTest gives the test an id and prints it at high verbosity.
func (p *Plugin) StartTest(t suite.Test) {
	addr := t.Address()
	if addr.IsZero() {
		return
	}
	id := p.idFor(addr.String())
	if p.verbosity > 1 && p.stream != nil {
		fmt.Fprintf(p.stream, "#%d ", id)
	}
}

func (p *Plugin) idFor(addr string) int {
	if id, ok := p.byAddr[addr]; ok {
		return id
	}
	id := p.next
	p.next++
	p.ids[id] = addr
	p.byAddr[addr] = id
	return id
}

// ID returns the id assigned to addr.
func (p *Plugin) ID(addr string) (int, bool) {
	id, ok := p.byAddr[addr]
	return id, ok
}

// Finalize writes the id map.
func (p *Plugin) Finalize(*suite.Results) error {
	if len(p.ids) == 0 {
		return nil
	}
	f := idFile{IDs: make(map[string]string, len(p.ids))}
	for id, addr := range p.ids {
		f.IDs[strconv.Itoa(id)] = addr
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal test ids: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write id file: %w", err)
	}
	return nil
}

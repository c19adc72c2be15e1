package plugin

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"

	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/logging"
	"nosey/internal/namespace"
	"nosey/internal/suite"
)

// HookError wraps an error returned by a plugin from one of its hooks.
type HookError struct {
	Plugin string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %s: %s: %v", e.Plugin, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Manager holds the plugins of a run and dispatches every hook to the
// enabled ones, in priority order, under the hook's policy.
type Manager struct {
	plugins []Plugin
	active  []Plugin
	frozen  bool
	log     *slog.Logger
}

// NewManager creates a new Manager
func NewManager(log *slog.Logger, plugins ...Plugin) *Manager {
	return &Manager{plugins: plugins, log: logging.For(log, "plugins")}
}

// Add registers another plugin. It has no effect once configured.
func (m *Manager) Add(p Plugin) {
	if m.frozen {
		m.log.Warn("plugin added after configure is ignored", "plugin", p.Name())
		return
	}
	m.plugins = append(m.plugins, p)
}

// Plugins returns every registered plugin, enabled or not.
func (m *Manager) Plugins() []Plugin {
	return m.plugins
}

// Get returns the registered plugin with the given name.
func (m *Manager) Get(name string) (Plugin, bool) {
	for _, p := range m.plugins {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Active returns the enabled plugins, higher priority first, ties in
// registration order.
func (m *Manager) Active() []Plugin {
	if m.frozen {
		return m.active
	}
	return m.sorted()
}

func (m *Manager) sorted() []Plugin {
	var out []Plugin
	for _, p := range m.plugins {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Plugin) int {
		return b.Priority() - a.Priority()
	})
	return out
}

// Options lets every plugin register its flags.
func (m *Manager) Options(fs *pflag.FlagSet, env Env) {
	for _, p := range m.plugins {
		if o, ok := p.(Optioner); ok {
			o.Options(fs, env)
		}
	}
}

// Configure configures every plugin and freezes the active list.
func (m *Manager) Configure(cfg *config.Config) error {
	for _, p := range m.plugins {
		if c, ok := p.(Configurer); ok {
			if err := c.Configure(cfg); err != nil {
				return &HookError{Plugin: p.Name(), Hook: "Configure", Err: err}
			}
		}
	}
	m.active = m.sorted()
	m.frozen = true
	names := make([]string, 0, len(m.active))
	for _, p := range m.active {
		names = append(names, p.Name())
	}
	m.log.Debug("plugins configured", "active", names)
	return nil
}

// hooks yields the active plugins implementing T.
func hooks[T any](m *Manager) iter.Seq2[Plugin, T] {
	return func(yield func(Plugin, T) bool) {
		for _, p := range m.Active() {
			if h, ok := p.(T); ok {
				if !yield(p, h) {
					return
				}
			}
		}
	}
}

// Concat joins sequences lazily, skipping nil ones.
func Concat(seqs ...iter.Seq[suite.Test]) iter.Seq[suite.Test] {
	return func(yield func(suite.Test) bool) {
		for _, seq := range seqs {
			if seq == nil {
				continue
			}
			for t := range seq {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// firstOpinion implements the first-wins policy.
func firstOpinion(m *Manager, hook string, ask func(Selector) Opinion) Opinion {
	for p, s := range hooks[Selector](m) {
		if o := ask(s); o != Abstain {
			m.log.Debug("selection decided by plugin", "hook", hook, "plugin", p.Name(), "opinion", o)
			return o
		}
	}
	return Abstain
}

func (m *Manager) WantDirectory(path string) Opinion {
	return firstOpinion(m, "WantDirectory", func(s Selector) Opinion { return s.WantDirectory(path) })
}

func (m *Manager) WantFile(path string) Opinion {
	return firstOpinion(m, "WantFile", func(s Selector) Opinion { return s.WantFile(path) })
}

func (m *Manager) WantModule(mod *namespace.Module) Opinion {
	return firstOpinion(m, "WantModule", func(s Selector) Opinion { return s.WantModule(mod) })
}

func (m *Manager) WantClass(c *namespace.Class) Opinion {
	return firstOpinion(m, "WantClass", func(s Selector) Opinion { return s.WantClass(c) })
}

func (m *Manager) WantFunction(f *namespace.Function) Opinion {
	return firstOpinion(m, "WantFunction", func(s Selector) Opinion { return s.WantFunction(f) })
}

func (m *Manager) WantMethod(meth *namespace.Method) Opinion {
	return firstOpinion(m, "WantMethod", func(s Selector) Opinion { return s.WantMethod(meth) })
}

// collect asks every collector and returns the lazy concatenation of the
// non-nil answers, and whether there was any.
func collect(m *Manager, hook string, ask func(Collector) (iter.Seq[suite.Test], error)) (iter.Seq[suite.Test], bool, error) {
	var seqs []iter.Seq[suite.Test]
	for p, c := range hooks[Collector](m) {
		seq, err := ask(c)
		if err != nil {
			return nil, false, &HookError{Plugin: p.Name(), Hook: hook, Err: err}
		}
		if seq != nil {
			seqs = append(seqs, seq)
		}
	}
	return Concat(seqs...), len(seqs) > 0, nil
}

// LoadTestsFromDir returns the tests plugins add for a directory.
func (m *Manager) LoadTestsFromDir(path string) (iter.Seq[suite.Test], error) {
	seq, _, err := collect(m, "LoadTestsFromDir", func(c Collector) (iter.Seq[suite.Test], error) {
		return c.LoadTestsFromDir(path)
	})
	return seq, err
}

// LoadTestsFromModule returns the tests plugins add for a module.
func (m *Manager) LoadTestsFromModule(mod *namespace.Module) (iter.Seq[suite.Test], error) {
	seq, _, err := collect(m, "LoadTestsFromModule", func(c Collector) (iter.Seq[suite.Test], error) {
		return c.LoadTestsFromModule(mod)
	})
	return seq, err
}

// LoadTestsFromTestClass returns the tests plugins add for a plain class.
func (m *Manager) LoadTestsFromTestClass(cls *namespace.Class) (iter.Seq[suite.Test], error) {
	seq, _, err := collect(m, "LoadTestsFromTestClass", func(c Collector) (iter.Seq[suite.Test], error) {
		return c.LoadTestsFromTestClass(cls)
	})
	return seq, err
}

// LoadTestsFromTestCase returns the tests plugins add for a test case class.
func (m *Manager) LoadTestsFromTestCase(cls *namespace.Class) (iter.Seq[suite.Test], error) {
	seq, _, err := collect(m, "LoadTestsFromTestCase", func(c Collector) (iter.Seq[suite.Test], error) {
		return c.LoadTestsFromTestCase(cls)
	})
	return seq, err
}

// LoadTestsFromName lets plugins claim a name.
func (m *Manager) LoadTestsFromName(name string, mod *namespace.Module) (iter.Seq[suite.Test], bool, error) {
	return collect(m, "LoadTestsFromName", func(c Collector) (iter.Seq[suite.Test], error) {
		return c.LoadTestsFromName(name, mod)
	})
}

// LoadTestsFromFile lets plugins claim a file that is not a source module.
func (m *Manager) LoadTestsFromFile(path string) (iter.Seq[suite.Test], bool, error) {
	return collect(m, "LoadTestsFromFile", func(c Collector) (iter.Seq[suite.Test], error) {
		return c.LoadTestsFromFile(path)
	})
}

// MakeTest lets plugins claim the conversion of an object into tests.
func (m *Manager) MakeTest(obj, parent namespace.Object) (iter.Seq[suite.Test], bool, error) {
	return collect(m, "MakeTest", func(c Collector) (iter.Seq[suite.Test], error) {
		return c.MakeTest(obj, parent)
	})
}

// LoadTestsFromNames runs the name list through every translator.
func (m *Manager) LoadTestsFromNames(names []string, mod *namespace.Module) (iter.Seq[suite.Test], []string, error) {
	var seqs []iter.Seq[suite.Test]
	for p, t := range hooks[NamesTranslator](m) {
		tests, rest, err := t.LoadTestsFromNames(names, mod)
		if err != nil {
			return nil, names, &HookError{Plugin: p.Name(), Hook: "LoadTestsFromNames", Err: err}
		}
		if tests != nil {
			seqs = append(seqs, tests)
		}
		if rest != nil {
			names = rest
		}
	}
	if len(seqs) == 0 {
		return nil, names, nil
	}
	return Concat(seqs...), names, nil
}

func (m *Manager) BeforeImport(filename, module string) {
	for _, h := range hooks[ImportObserver](m) {
		h.BeforeImport(filename, module)
	}
}

func (m *Manager) AfterImport(filename, module string) {
	for _, h := range hooks[ImportObserver](m) {
		h.AfterImport(filename, module)
	}
}

func (m *Manager) BeforeDirectory(path string) {
	for _, h := range hooks[DirectoryObserver](m) {
		h.BeforeDirectory(path)
	}
}

func (m *Manager) AfterDirectory(path string) {
	for _, h := range hooks[DirectoryObserver](m) {
		h.AfterDirectory(path)
	}
}

func (m *Manager) BeforeContext() {
	for _, h := range hooks[ContextObserver](m) {
		h.BeforeContext()
	}
}

func (m *Manager) AfterContext() {
	for _, h := range hooks[ContextObserver](m) {
		h.AfterContext()
	}
}

// StartContext satisfies suite.ContextObserver.
func (m *Manager) StartContext(c suite.Context) {
	for _, h := range hooks[ContextObserver](m) {
		h.StartContext(c)
	}
}

// StopContext satisfies suite.ContextObserver.
func (m *Manager) StopContext(c suite.Context) {
	for _, h := range hooks[ContextObserver](m) {
		h.StopContext(c)
	}
}

func (m *Manager) BeforeTest(t suite.Test) {
	for _, h := range hooks[Reporter](m) {
		h.BeforeTest(t)
	}
}

func (m *Manager) AfterTest(t suite.Test) {
	for _, h := range hooks[Reporter](m) {
		h.AfterTest(t)
	}
}

func (m *Manager) StartTest(t suite.Test) {
	for _, h := range hooks[Reporter](m) {
		h.StartTest(t)
	}
}

func (m *Manager) StopTest(t suite.Test) {
	for _, h := range hooks[Reporter](m) {
		h.StopTest(t)
	}
}

func (m *Manager) AddSuccess(t suite.Test) {
	for _, h := range hooks[Reporter](m) {
		h.AddSuccess(t)
	}
}

func (m *Manager) AddFailure(t suite.Test, err error) {
	for _, h := range hooks[Reporter](m) {
		h.AddFailure(t, err)
	}
}

func (m *Manager) AddError(t suite.Test, err error) {
	for _, h := range hooks[Reporter](m) {
		h.AddError(t, err)
	}
}

func (m *Manager) AddSkip(t suite.Test, reason string) {
	for _, h := range hooks[Reporter](m) {
		h.AddSkip(t, reason)
	}
}

// FormatError passes err through every formatter.
func (m *Manager) FormatError(t suite.Test, err error) error {
	for _, h := range hooks[ErrorFormatter](m) {
		err = h.FormatError(t, err)
	}
	return err
}

// FormatFailure passes err through every formatter.
func (m *Manager) FormatFailure(t suite.Test, err error) error {
	for _, h := range hooks[ErrorFormatter](m) {
		err = h.FormatFailure(t, err)
	}
	return err
}

// HandleError reports whether a plugin handled the error.
func (m *Manager) HandleError(t suite.Test, err error) bool {
	for _, h := range hooks[ErrorHandler](m) {
		if h.HandleError(t, err) {
			return true
		}
	}
	return false
}

// HandleFailure reports whether a plugin handled the failure.
func (m *Manager) HandleFailure(t suite.Test, err error) bool {
	for _, h := range hooks[ErrorHandler](m) {
		if h.HandleFailure(t, err) {
			return true
		}
	}
	return false
}

// Begin starts the run for every plugin.
func (m *Manager) Begin() error {
	for p, h := range hooks[Lifecycle](m) {
		if err := h.Begin(); err != nil {
			return &HookError{Plugin: p.Name(), Hook: "Begin", Err: err}
		}
	}
	return nil
}

// Report lets plugins write their reports to w, stopping at the first
// plugin that returns true.
func (m *Manager) Report(w io.Writer) bool {
	for _, h := range hooks[Lifecycle](m) {
		if h.Report(w) {
			return true
		}
	}
	return false
}

// Finalize ends the run for every plugin.
func (m *Manager) Finalize(result *suite.Results) error {
	for p, h := range hooks[Lifecycle](m) {
		if err := h.Finalize(result); err != nil {
			return &HookError{Plugin: p.Name(), Hook: "Finalize", Err: err}
		}
	}
	return nil
}

// PrepareTest returns the first replacement test, or t.
func (m *Manager) PrepareTest(t suite.Test) suite.Test {
	for _, h := range hooks[Preparer](m) {
		if r := h.PrepareTest(t); r != nil {
			return r
		}
	}
	return t
}

// PrepareTestResult returns the first replacement result, or r.
func (m *Manager) PrepareTestResult(r suite.Result) suite.Result {
	for _, h := range hooks[Preparer](m) {
		if rr := h.PrepareTestResult(r); rr != nil {
			return rr
		}
	}
	return r
}

// SetOutputStream returns the first replacement stream, or w.
func (m *Manager) SetOutputStream(w io.Writer) io.Writer {
	for _, h := range hooks[Preparer](m) {
		if ww := h.SetOutputStream(w); ww != nil {
			return ww
		}
	}
	return w
}

// DescribeTest returns the first non-empty description, or "".
func (m *Manager) DescribeTest(t suite.Test) string {
	for _, h := range hooks[Describer](m) {
		if d := h.DescribeTest(t); d != "" {
			return d
		}
	}
	return ""
}

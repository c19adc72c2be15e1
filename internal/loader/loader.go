// Package loader turns names, directories and modules into trees of
// context suites ready to run.
package loader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"nosey/internal/address"
	"nosey/internal/config"
	"nosey/internal/logging"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/selector"
	"nosey/internal/suite"
)

// Loader collects tests for one run.
type Loader struct {
	cfg      *config.Config
	importer *namespace.Importer
	selector *selector.Selector
	plugins  *plugin.Manager
	factory  *suite.Factory
	resolver *address.Resolver
	log      *slog.Logger
	err      error
}

// New creates a new Loader over the sources of reg.
func New(cfg *config.Config, reg *namespace.Registry, plugins *plugin.Manager, log *slog.Logger) *Loader {
	if plugins == nil {
		plugins = plugin.NewManager(log)
	}
	importer := namespace.NewImporter(reg, logging.For(log, "importer"))
	return &Loader{
		cfg:      cfg,
		importer: importer,
		selector: selector.New(cfg, plugins),
		plugins:  plugins,
		factory:  suite.NewFactory(plugins),
		resolver: address.NewResolver(cfg.WorkingDir, cfg.SourceSuffixes, importer),
		log:      logging.For(log, "loader"),
	}
}

// Factory returns the suite factory owning the fixtures of this run.
func (l *Loader) Factory() *suite.Factory { return l.factory }

// Importer returns the importer of this run.
func (l *Loader) Importer() *namespace.Importer { return l.importer }

// Selector returns the selector used for discovery.
func (l *Loader) Selector() *selector.Selector { return l.selector }

// Err returns the first plugin error raised while a lazy suite was being
// produced. Such an error stops that suite; the run should report it.
func (l *Loader) Err() error { return l.err }

func (l *Loader) abort(err error) {
	if l.err == nil {
		l.err = err
	}
	l.log.Error("discovery aborted", "error", err)
}

// LoadTestsFromNames loads every name into one suite. Plugins may
// translate the names first.
func (l *Loader) LoadTestsFromNames(names []string, mod *namespace.Module) (suite.Test, error) {
	extra, rest, err := l.plugins.LoadTestsFromNames(names, mod)
	if err != nil {
		return nil, err
	}
	var tests []suite.Test
	if extra != nil {
		tests = append(tests, l.factory.Suite(nil, slices.Collect(extra)...))
	}
	for _, name := range rest {
		t, err := l.LoadTestsFromName(name, mod, false)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return l.factory.Suite(nil, tests...), nil
}

// LoadTestsFromName loads the entity a name refers to: a directory, a
// file, a module, or an object inside a module. When mod is given the
// name is resolved inside it. discovered is set for names found while
// walking a directory.
func (l *Loader) LoadTestsFromName(name string, mod *namespace.Module, discovered bool) (suite.Test, error) {
	l.log.Debug("load from name", "name", name, "module", moduleName(mod), "discovered", discovered)

	claimed, ok, err := l.plugins.LoadTestsFromName(name, mod)
	if err != nil {
		return nil, err
	}
	if ok {
		return l.factory.Lazy(nil, func(context.Context) iter.Seq[suite.Test] { return claimed }), nil
	}

	addr, err := l.resolver.Resolve(name)
	if mod != nil {
		call := name
		if err == nil && addr.Call != "" {
			call = addr.Call
		}
		return l.loadFromModule(call, mod)
	}
	if err != nil {
		return l.failure(&ResolutionError{Name: name, Err: err}, address.Address{}), nil
	}

	switch {
	case addr.Module != "":
		return l.loadModuleAddress(addr, discovered)
	case addr.Filename != "" && addr.Call != "":
		return l.failure(&ResolutionError{Name: name, Err: fmt.Errorf("can't find callable %s in file %s: file is not a source module", addr.Call, addr.Filename)}, addr), nil
	case addr.Filename != "":
		info, err := os.Stat(addr.Filename)
		if err != nil {
			return l.failure(err, addr), nil
		}
		if info.IsDir() {
			path := addr.Filename
			return l.factory.Lazy(nil, func(ctx context.Context) iter.Seq[suite.Test] {
				return l.LoadTestsFromDir(ctx, path)
			}), nil
		}
		return l.LoadTestsFromFile(addr.Filename)
	default:
		return l.failure(&ResolutionError{Name: name}, addr), nil
	}
}

func (l *Loader) loadModuleAddress(addr address.Address, discovered bool) (suite.Test, error) {
	var (
		mod  *namespace.Module
		call = addr.Call
		err  error
	)
	if addr.Filename == "" {
		var rest string
		mod, rest, err = l.importer.ImportPrefix(addr.Module)
		if err == nil && rest != "" {
			call = joinCall(rest, call)
		}
	} else {
		l.plugins.BeforeImport(addr.Filename, addr.Module)
		mod, err = l.importer.ImportFromPath(addr.Filename, addr.Module)
		l.plugins.AfterImport(addr.Filename, addr.Module)
	}
	if err != nil {
		return l.failure(err, addr), nil
	}
	if call != "" {
		return l.LoadTestsFromName(call, mod, false)
	}
	t, err := l.LoadTestsFromModule(mod, discovered)
	if err != nil || discovered {
		return t, err
	}
	return l.ancestry(t, mod.Parent()), nil
}

// loadFromModule resolves a dotted name inside mod and wraps the test in
// the contexts it lives in.
func (l *Loader) loadFromModule(name string, mod *namespace.Module) (suite.Test, error) {
	parent, obj, err := namespace.ResolveIn(mod, name)
	if err != nil {
		return l.failure(&ResolutionError{Name: name, Err: err}, mod.Address().WithCall(name)), nil
	}
	t, err := l.MakeTest(obj, parent)
	if err != nil {
		return nil, err
	}
	switch p := parent.(type) {
	case *namespace.Class:
		return l.ancestry(l.factory.Suite(p, t), p.Module()), nil
	case *namespace.Module:
		if obj.Kind() == namespace.KindModule {
			return l.ancestry(t, p), nil
		}
		return l.ancestry(l.factory.Suite(p, t), p.Parent()), nil
	default:
		return t, nil
	}
}

// ancestry wraps t in the contexts of mod and every package above it.
func (l *Loader) ancestry(t suite.Test, mod *namespace.Module) suite.Test {
	for m := mod; m != nil; m = m.Parent() {
		t = l.factory.Suite(m, t)
	}
	return t
}

// LoadTestsFromDir lazily yields the tests of a directory. Entries that
// look like tests are visited last. The directory stays on the importer
// search path until the sequence ends.
func (l *Loader) LoadTestsFromDir(ctx context.Context, path string) iter.Seq[suite.Test] {
	return func(yield func(suite.Test) bool) {
		l.log.Debug("load from dir", "path", path)
		l.plugins.BeforeDirectory(path)
		defer l.plugins.AfterDirectory(path)
		if l.cfg.AddPaths {
			release := l.importer.AddPath(path)
			defer release()
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			yield(l.failure(err, address.Address{Filename: path}))
			return
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		SortEntries(names, l.cfg.TestMatch)

		for _, entry := range names {
			if ctx.Err() != nil {
				return
			}
			if strings.HasPrefix(entry, ".") || strings.HasPrefix(entry, "_") {
				continue
			}
			entryPath := filepath.Join(path, entry)
			info, err := os.Stat(entryPath)
			if err != nil {
				if !l.selector.WantFile(entryPath) && !l.selector.Matches(entry) {
					l.log.Warn("skipping unreadable entry", "path", entryPath, "error", err)
					continue
				}
				if !yield(l.failure(err, address.Address{Filename: entryPath})) {
					return
				}
				continue
			}
			isFile := info.Mode().IsRegular()
			isDir := info.IsDir()
			wanted := false
			if isFile {
				wanted = l.selector.WantFile(entryPath)
			} else if isDir {
				wanted = l.selector.WantDirectory(entryPath)
			}

			switch {
			case isFile && wanted:
				l.plugins.BeforeContext()
				var t suite.Test
				if l.cfg.HasSourceSuffix(entry) {
					t, err = l.LoadTestsFromName(entryPath, nil, true)
				} else {
					t, err = l.LoadTestsFromFile(entryPath)
				}
				l.plugins.AfterContext()
				if !l.emit(yield, t, err, entryPath) {
					return
				}
			case isDir && l.importer.IsPackage(entryPath):
				t, err := l.LoadTestsFromName(entryPath, nil, true)
				if !l.emit(yield, t, err, entryPath) {
					return
				}
			case isDir && wanted:
				dir := entryPath
				lazy := l.factory.Lazy(nil, func(ctx context.Context) iter.Seq[suite.Test] {
					return l.LoadTestsFromDir(ctx, dir)
				})
				if !yield(lazy) {
					return
				}
			}
		}

		extra, err := l.plugins.LoadTestsFromDir(path)
		if err != nil {
			l.emit(yield, nil, err, path)
			return
		}
		for t := range extra {
			if !yield(t) {
				return
			}
		}
	}
}

// emit yields t, or a failure for a plugin error, which also stops the
// sequence.
func (l *Loader) emit(yield func(suite.Test) bool, t suite.Test, err error, path string) bool {
	if err != nil {
		l.abort(err)
		yield(l.failure(err, address.Address{Filename: path}))
		return false
	}
	return yield(t)
}

// SortEntries orders directory entries by name, with entries matching
// the test pattern after all others.
func SortEntries(names []string, match *regexp.Regexp) {
	slices.SortStableFunc(names, func(a, b string) int {
		am, bm := match.MatchString(a), match.MatchString(b)
		switch {
		case am && !bm:
			return 1
		case bm && !am:
			return -1
		}
		return strings.Compare(a, b)
	})
}

// LoadTestsFromFile loads a file that is not a source module. Only
// plugins can do that.
func (l *Loader) LoadTestsFromFile(path string) (suite.Test, error) {
	l.log.Debug("load from non-module file", "path", path)
	tests, ok, err := l.plugins.LoadTestsFromFile(path)
	if err != nil {
		return nil, err
	}
	if ok {
		return l.factory.Lazy(nil, func(context.Context) iter.Seq[suite.Test] { return tests }), nil
	}
	addr := address.Address{Filename: path}
	if _, err := os.Stat(path); err != nil {
		return l.failure(err, addr), nil
	}
	return l.failure(fmt.Errorf("unable to load tests from file %s", path), addr), nil
}

// LoadTestsFromModule collects the wanted classes (by name) and functions
// (by source line) of a module, then the contents of its package
// directory, then whatever plugins add. A discovered module that does not
// look like a test contributes only the latter two.
func (l *Loader) LoadTestsFromModule(mod *namespace.Module, discovered bool) (suite.Test, error) {
	l.log.Debug("load from module", "module", mod.Name(), "discovered", discovered)
	var tests []suite.Test

	if !discovered || l.selector.WantModule(mod) {
		var objs []namespace.Object
		for _, c := range mod.Classes() {
			if l.selector.WantClass(c) {
				objs = append(objs, c)
			}
		}
		for _, f := range mod.Functions() {
			if l.selector.WantFunction(f) {
				objs = append(objs, f)
			}
		}
		for _, tv := range mod.Tests() {
			objs = append(objs, tv)
		}
		for _, o := range objs {
			t, err := l.MakeTest(o, mod)
			if err != nil {
				return nil, err
			}
			tests = append(tests, t)
		}
	}

	for _, p := range mod.Paths() {
		dir := p
		tests = append(tests, l.factory.Lazy(nil, func(ctx context.Context) iter.Seq[suite.Test] {
			return l.LoadTestsFromDir(ctx, dir)
		}))
	}

	extra, err := l.plugins.LoadTestsFromModule(mod)
	if err != nil {
		return nil, err
	}
	tests = append(tests, slices.Collect(extra)...)
	return l.factory.Suite(mod, tests...), nil
}

// LoadTestsFromTestClass makes one test per wanted method of a class
// that does not follow the test-case contract.
func (l *Loader) LoadTestsFromTestClass(c *namespace.Class) (suite.Test, error) {
	tests, err := l.methodTests(c)
	if err != nil {
		return nil, err
	}
	extra, err := l.plugins.LoadTestsFromTestClass(c)
	if err != nil {
		return nil, err
	}
	tests = append(tests, slices.Collect(extra)...)
	return l.factory.Suite(c, tests...), nil
}

// LoadTestsFromTestCase makes one test per wanted method of a test case
// class. A test case without test methods runs its RunTest method.
func (l *Loader) LoadTestsFromTestCase(c *namespace.Class) (suite.Test, error) {
	tests, err := l.methodTests(c)
	if err != nil {
		return nil, err
	}
	if len(tests) == 0 {
		if m, ok := c.Method("RunTest"); ok {
			tests = append(tests, l.methodCase(m))
		}
	}
	extra, err := l.plugins.LoadTestsFromTestCase(c)
	if err != nil {
		return nil, err
	}
	tests = append(tests, slices.Collect(extra)...)
	return l.factory.Suite(c, tests...), nil
}

func (l *Loader) methodTests(c *namespace.Class) ([]suite.Test, error) {
	var tests []suite.Test
	for _, m := range c.Methods() {
		if !l.selector.WantMethod(m) {
			continue
		}
		t, err := l.MakeTest(m, c)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, nil
}

// MakeTest converts an object into a runnable test. Plugins may claim it
// first.
func (l *Loader) MakeTest(obj, parent namespace.Object) (suite.Test, error) {
	claimed, ok, err := l.plugins.MakeTest(obj, parent)
	if err != nil {
		return nil, err
	}
	if ok {
		return l.factory.Suite(nil, slices.Collect(claimed)...), nil
	}

	switch o := obj.(type) {
	case *namespace.TestValue:
		if o.Test() == nil {
			return l.failure(&StructuralError{Object: o.Name(), Reason: "nil test"}, o.Address()), nil
		}
		return o.Test(), nil
	case *namespace.Class:
		if o.IsTestCase() {
			return l.LoadTestsFromTestCase(o)
		}
		return l.LoadTestsFromTestClass(o)
	case *namespace.Method:
		if o.IsGenerator() {
			return l.generatorMethod(o), nil
		}
		return l.methodCase(o), nil
	case *namespace.Function:
		if o.IsGenerator() {
			return l.generatorFunction(o), nil
		}
		return l.functionCase(o), nil
	case *namespace.Module:
		return l.LoadTestsFromModule(o, false)
	default:
		name := "<nil>"
		var addr address.Address
		if obj != nil {
			name = obj.Name()
			addr = obj.Address()
		}
		return l.failure(&StructuralError{Object: name, Reason: fmt.Sprintf("unsupported %T", obj)}, addr), nil
	}
}

func (l *Loader) functionCase(f *namespace.Function) *suite.FunctionCase {
	setUp, tearDown := f.Fixtures()
	return &suite.FunctionCase{
		Name:     f.String(),
		Addr:     f.Address(),
		Fn:       f.Value(),
		SetUp:    setUp,
		TearDown: tearDown,
		Doc:      f.Doc(),
	}
}

func (l *Loader) methodCase(m *namespace.Method) *suite.MethodCase {
	return &suite.MethodCase{
		Class:  m.Class().String(),
		Method: m.Name(),
		Addr:   m.Address(),
		New:    m.Class().New,
		Doc:    methodDoc(m),
	}
}

func (l *Loader) failure(err error, addr address.Address) suite.Test {
	var ie *namespace.ImportError
	if errors.As(err, &ie) {
		l.log.Warn("import failed", "module", ie.Name, "error", ie.Err)
	} else {
		l.log.Debug("load failed", "address", addr.String(), "error", err)
	}
	return suite.NewFailure(err, addr)
}

func methodDoc(m *namespace.Method) string {
	if v, ok := m.OwnAttr("doc"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func joinCall(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

func moduleName(mod *namespace.Module) string {
	if mod == nil {
		return ""
	}
	return mod.Name()
}

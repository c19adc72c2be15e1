package plugin

import (
	"io"
	"iter"

	"nosey/internal/namespace"
	"nosey/internal/suite"
)

// Selector hooks are first-wins: the first plugin that does not Abstain
// decides, and the built-in selector is only asked when all abstain.
type Selector interface {
	WantDirectory(path string) Opinion
	WantFile(path string) Opinion
	WantModule(m *namespace.Module) Opinion
	WantClass(c *namespace.Class) Opinion
	WantFunction(f *namespace.Function) Opinion
	WantMethod(m *namespace.Method) Opinion
}

// NopSelector abstains from every selection.
type NopSelector struct{}

func (NopSelector) WantDirectory(string) Opinion             { return Abstain }
func (NopSelector) WantFile(string) Opinion                  { return Abstain }
func (NopSelector) WantModule(*namespace.Module) Opinion     { return Abstain }
func (NopSelector) WantClass(*namespace.Class) Opinion       { return Abstain }
func (NopSelector) WantFunction(*namespace.Function) Opinion { return Abstain }
func (NopSelector) WantMethod(*namespace.Method) Opinion     { return Abstain }

// Collector hooks contribute tests. A nil sequence means no opinion.
//
// LoadTestsFromDir, LoadTestsFromModule, LoadTestsFromTestClass and
// LoadTestsFromTestCase are generative: contributions of all plugins are
// concatenated, in priority order, into one lazy sequence that runs after
// the built-in tests.
//
// LoadTestsFromName, LoadTestsFromFile and MakeTest are claims: when any
// plugin returns a non-nil sequence the loader uses the concatenated
// contributions instead of its own handling.
type Collector interface {
	LoadTestsFromDir(path string) (iter.Seq[suite.Test], error)
	LoadTestsFromModule(m *namespace.Module) (iter.Seq[suite.Test], error)
	LoadTestsFromTestClass(c *namespace.Class) (iter.Seq[suite.Test], error)
	LoadTestsFromTestCase(c *namespace.Class) (iter.Seq[suite.Test], error)
	LoadTestsFromName(name string, m *namespace.Module) (iter.Seq[suite.Test], error)
	LoadTestsFromFile(path string) (iter.Seq[suite.Test], error)
	MakeTest(obj, parent namespace.Object) (iter.Seq[suite.Test], error)
}

// NopCollector contributes nothing.
type NopCollector struct{}

func (NopCollector) LoadTestsFromDir(string) (iter.Seq[suite.Test], error) { return nil, nil }
func (NopCollector) LoadTestsFromModule(*namespace.Module) (iter.Seq[suite.Test], error) {
	return nil, nil
}
func (NopCollector) LoadTestsFromTestClass(*namespace.Class) (iter.Seq[suite.Test], error) {
	return nil, nil
}
func (NopCollector) LoadTestsFromTestCase(*namespace.Class) (iter.Seq[suite.Test], error) {
	return nil, nil
}
func (NopCollector) LoadTestsFromName(string, *namespace.Module) (iter.Seq[suite.Test], error) {
	return nil, nil
}
func (NopCollector) LoadTestsFromFile(string) (iter.Seq[suite.Test], error) { return nil, nil }
func (NopCollector) MakeTest(namespace.Object, namespace.Object) (iter.Seq[suite.Test], error) {
	return nil, nil
}

// NamesTranslator may rewrite the names given on the command line. It is
// chained on the name list: every plugin sees the names returned by the
// one before it. Non-nil tests replace name loading entirely.
type NamesTranslator interface {
	LoadTestsFromNames(names []string, m *namespace.Module) (iter.Seq[suite.Test], []string, error)
}

// ImportObserver is told about module imports. Observer policy.
type ImportObserver interface {
	BeforeImport(filename, module string)
	AfterImport(filename, module string)
}

// NopImportObserver ignores imports.
type NopImportObserver struct{}

func (NopImportObserver) BeforeImport(string, string) {}
func (NopImportObserver) AfterImport(string, string)  {}

// DirectoryObserver is told when a directory traversal starts and ends.
// Observer policy.
type DirectoryObserver interface {
	BeforeDirectory(path string)
	AfterDirectory(path string)
}

// NopDirectoryObserver ignores directories.
type NopDirectoryObserver struct{}

func (NopDirectoryObserver) BeforeDirectory(string) {}
func (NopDirectoryObserver) AfterDirectory(string)  {}

// ContextObserver is told about contexts. BeforeContext and AfterContext
// wrap the loading of each file found in a directory; StartContext and
// StopContext wrap the fixtures of a running context. Observer policy.
type ContextObserver interface {
	BeforeContext()
	AfterContext()
	StartContext(c suite.Context)
	StopContext(c suite.Context)
}

// NopContextObserver ignores contexts.
type NopContextObserver struct{}

func (NopContextObserver) BeforeContext()             {}
func (NopContextObserver) AfterContext()              {}
func (NopContextObserver) StartContext(suite.Context) {}
func (NopContextObserver) StopContext(suite.Context)  {}

// Reporter observes test outcomes. Observer policy.
type Reporter interface {
	BeforeTest(t suite.Test)
	AfterTest(t suite.Test)
	StartTest(t suite.Test)
	StopTest(t suite.Test)
	AddSuccess(t suite.Test)
	AddFailure(t suite.Test, err error)
	AddError(t suite.Test, err error)
	AddSkip(t suite.Test, reason string)
}

// NopReporter ignores outcomes.
type NopReporter struct{}

func (NopReporter) BeforeTest(suite.Test)        {}
func (NopReporter) AfterTest(suite.Test)         {}
func (NopReporter) StartTest(suite.Test)         {}
func (NopReporter) StopTest(suite.Test)          {}
func (NopReporter) AddSuccess(suite.Test)        {}
func (NopReporter) AddFailure(suite.Test, error) {}
func (NopReporter) AddError(suite.Test, error)   {}
func (NopReporter) AddSkip(suite.Test, string)   {}

// ErrorFormatter rewrites errors before they are reported. Chainable:
// each plugin receives the error returned by the previous one.
type ErrorFormatter interface {
	FormatError(t suite.Test, err error) error
	FormatFailure(t suite.Test, err error) error
}

// NopErrorFormatter passes errors through.
type NopErrorFormatter struct{}

func (NopErrorFormatter) FormatError(_ suite.Test, err error) error   { return err }
func (NopErrorFormatter) FormatFailure(_ suite.Test, err error) error { return err }

// ErrorHandler may swallow an error or failure. Stoppable: the first
// plugin returning true handles it and it is not reported further.
type ErrorHandler interface {
	HandleError(t suite.Test, err error) bool
	HandleFailure(t suite.Test, err error) bool
}

// NopErrorHandler handles nothing.
type NopErrorHandler struct{}

func (NopErrorHandler) HandleError(suite.Test, error) bool   { return false }
func (NopErrorHandler) HandleFailure(suite.Test, error) bool { return false }

// Lifecycle hooks run once per run. Begin and Finalize are observers whose
// errors abort the run. Report is stoppable: a plugin returning true
// replaces the remaining reports.
type Lifecycle interface {
	Begin() error
	Report(w io.Writer) bool
	Finalize(result *suite.Results) error
}

// NopLifecycle does nothing.
type NopLifecycle struct{}

func (NopLifecycle) Begin() error                  { return nil }
func (NopLifecycle) Report(io.Writer) bool         { return false }
func (NopLifecycle) Finalize(*suite.Results) error { return nil }

// Preparer may replace the test, the result or the output stream of a
// run. The first non-nil answer wins.
type Preparer interface {
	PrepareTest(t suite.Test) suite.Test
	PrepareTestResult(r suite.Result) suite.Result
	SetOutputStream(w io.Writer) io.Writer
}

// NopPreparer replaces nothing.
type NopPreparer struct{}

func (NopPreparer) PrepareTest(suite.Test) suite.Test           { return nil }
func (NopPreparer) PrepareTestResult(suite.Result) suite.Result { return nil }
func (NopPreparer) SetOutputStream(io.Writer) io.Writer         { return nil }

// Describer supplies test descriptions. The first non-empty one wins.
type Describer interface {
	DescribeTest(t suite.Test) string
}

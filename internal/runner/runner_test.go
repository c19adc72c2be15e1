package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nosey/internal/address"
	"nosey/internal/config"
	"nosey/internal/loader"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/storage"
	"nosey/internal/suite"
)

func init() {
	color.NoColor = true
}

func testPass() {}

func testFail() error { return errors.New("off by one") }

func testBoom() { panic("boom") }

func testSkip() error { return suite.Skip("not today") }

type recorder struct {
	plugin.Base
	plugin.NopReporter
	plugin.NopErrorFormatter
	plugin.NopErrorHandler
	plugin.NopLifecycle

	events   []string
	beginErr error
	report   string
}

func newRecorder() *recorder {
	r := &recorder{}
	r.PluginName = "recorder"
	r.SetEnabled(true)
	return r
}

func (r *recorder) BeforeTest(t suite.Test) { r.events = append(r.events, "before "+t.String()) }
func (r *recorder) StartTest(t suite.Test)  { r.events = append(r.events, "start "+t.String()) }
func (r *recorder) StopTest(t suite.Test)   { r.events = append(r.events, "stop "+t.String()) }
func (r *recorder) AfterTest(t suite.Test)  { r.events = append(r.events, "after "+t.String()) }

func (r *recorder) AddError(t suite.Test, err error) {
	r.events = append(r.events, "error "+t.String())
}

func (r *recorder) FormatFailure(_ suite.Test, err error) error {
	return fmt.Errorf("formatted: %w", err)
}

func (r *recorder) HandleError(t suite.Test, err error) bool {
	return errors.Is(err, errSwallowed)
}

func (r *recorder) Begin() error { return r.beginErr }

func (r *recorder) Report(w io.Writer) bool {
	if r.report == "" {
		return false
	}
	fmt.Fprintln(w, r.report)
	return true
}

var errSwallowed = errors.New("swallowed")

type fixture struct {
	cfg     *config.Config
	loader  *loader.Loader
	plugins *plugin.Manager
	out     bytes.Buffer
}

func newFixture(t *testing.T, verbosity int, plugins ...plugin.Plugin) *fixture {
	t.Helper()
	root := t.TempDir()
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Add(namespace.Source{
		Name:     "test_sample",
		Location: filepath.Join(root, "test_sample.go"),
		Build: func(b *namespace.Builder) error {
			b.Func("test_pass", testPass)
			b.Func("test_fail", testFail)
			b.Func("test_boom", testBoom)
			b.Func("test_skip", testSkip)
			return nil
		},
	}))

	cfg := config.New()
	cfg.WorkingDir = root
	cfg.Verbosity = verbosity
	m := plugin.NewManager(nil, plugins...)
	require.NoError(t, m.Configure(cfg))
	return &fixture{cfg: cfg, loader: loader.New(cfg, reg, m, nil), plugins: m}
}

func TestRunner_Verbose(t *testing.T) {
	f := newFixture(t, 2)
	st := storage.NewJSONStorage(f.cfg)

	test, err := f.loader.LoadTestsFromName("test_sample", nil, false)
	require.NoError(t, err)
	output, err := NewRunner(f.cfg, f.loader, f.plugins, st, &f.out, nil).Run(context.Background(), test, []string{"test_sample"})
	require.NoError(t, err)

	text := f.out.String()
	assert.Contains(t, text, "test_sample.test_pass ... ok\n")
	assert.Contains(t, text, "test_sample.test_fail ... FAIL\n")
	assert.Contains(t, text, "test_sample.test_boom ... ERROR\n")
	assert.Contains(t, text, "test_sample.test_skip ... SKIP: not today\n")
	assert.Contains(t, text, "ERROR: test_sample.test_boom\n")
	assert.Contains(t, text, "FAIL: test_sample.test_fail\n"+separator2+"\noff by one\n")
	assert.Contains(t, text, "Ran 4 tests in ")
	assert.Contains(t, text, "FAILED (failures=1, errors=1, SKIP=1)\n")

	assert.Equal(t, 4, output.Meta.TestsRun)
	assert.Equal(t, 1, output.Meta.Passed)
	assert.Equal(t, 1, output.Meta.Failures)
	assert.Equal(t, 1, output.Meta.Errors)
	assert.Equal(t, 1, output.Meta.Skipped)
	assert.False(t, output.Meta.Successful())
	assert.NotEmpty(t, output.Meta.RunID)
	require.Len(t, output.Details, 2)
	assert.Equal(t, "ERROR", output.Details[0].Outcome)
	assert.Equal(t, "FAIL", output.Details[1].Outcome)
	assert.True(t, strings.HasSuffix(output.Details[1].Address, "test_sample.go:test_fail"), output.Details[1].Address)

	saved, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, output.Meta.RunID, saved.Meta.RunID)
	assert.Equal(t, []string{"test_sample"}, saved.Meta.Names)
}

func TestRunner_Dots(t *testing.T) {
	f := newFixture(t, 1)

	test, err := f.loader.LoadTestsFromName("test_sample", nil, false)
	require.NoError(t, err)
	_, err = NewRunner(f.cfg, f.loader, f.plugins, nil, &f.out, nil).Run(context.Background(), test, nil)
	require.NoError(t, err)

	assert.Regexp(t, `^\.FES\n`, f.out.String())
}

func TestRunner_StopOnFailure(t *testing.T) {
	f := newFixture(t, 1)
	f.cfg.StopOnFailure = true

	test, err := f.loader.LoadTestsFromName("test_sample", nil, false)
	require.NoError(t, err)
	output, err := NewRunner(f.cfg, f.loader, f.plugins, nil, &f.out, nil).Run(context.Background(), test, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, output.Meta.TestsRun)
	assert.Regexp(t, `^\.F\n`, f.out.String())
}

func TestRunner_PluginHooks(t *testing.T) {
	rec := newRecorder()
	rec.report = "recorder report"
	f := newFixture(t, 1, rec)

	test, err := f.loader.LoadTestsFromName("test_sample:test_fail", nil, false)
	require.NoError(t, err)
	output, err := NewRunner(f.cfg, f.loader, f.plugins, nil, &f.out, nil).Run(context.Background(), test, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"before test_sample.test_fail",
		"start test_sample.test_fail",
		"stop test_sample.test_fail",
		"after test_sample.test_fail",
	}, rec.events)
	require.Len(t, output.Details, 1)
	assert.Equal(t, "formatted: off by one", output.Details[0].Message)
	assert.True(t, strings.HasSuffix(f.out.String(), "FAILED (failures=1)\nrecorder report\n"), f.out.String())
}

func TestRunner_BeginError(t *testing.T) {
	rec := newRecorder()
	rec.beginErr = errors.New("no database")
	f := newFixture(t, 1, rec)

	test, err := f.loader.LoadTestsFromName("test_sample", nil, false)
	require.NoError(t, err)
	output, err := NewRunner(f.cfg, f.loader, f.plugins, nil, &f.out, nil).Run(context.Background(), test, nil)

	var he *plugin.HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "Begin", he.Hook)
	assert.Nil(t, output)
	assert.Empty(t, f.out.String())
}

func TestRunner_Interrupted(t *testing.T) {
	f := newFixture(t, 1)

	test, err := f.loader.LoadTestsFromName("test_sample", nil, false)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(f.cfg, f.loader, f.plugins, nil, &f.out, nil).Run(ctx, test, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultProxy_HandledErrorsAreDropped(t *testing.T) {
	rec := newRecorder()
	m := plugin.NewManager(nil, rec)
	require.NoError(t, m.Configure(config.New()))
	res := suite.NewResults(false)
	proxy := NewResultProxy(res, m)

	test := &suite.FunctionCase{Name: "swallow", Fn: func() { panic(errSwallowed) }}
	require.NoError(t, test.Run(context.Background(), proxy))

	assert.Empty(t, res.Errors)
	assert.NotContains(t, rec.events, "error swallow")
	assert.Equal(t, 1, res.TestsRun)
}

func TestNewFailure(t *testing.T) {
	root := "/src/proj"
	stack := "goroutine 1 [running]:\n" +
		"runtime/debug.Stack()\n\t/usr/lib/go/src/runtime/debug/stack.go:26 +0x5e\n" +
		"nosey/internal/suite.Invoke.func1()\n\t/src/nosey/internal/suite/invoke.go:80 +0x1\n" +
		"proj.testBoom()\n\t/src/proj/test_boom.go:12 +0x2\n"

	tests := []struct {
		name    string
		rec     suite.Record
		path    string
		errType string
		file    string
		line    int
	}{
		{
			name: "wrapped failure",
			rec: suite.Record{
				Test:    &suite.FunctionCase{Name: "proj.test_x", Addr: address.Address{Filename: "/src/proj/pkg/test_x.go", Module: "pkg.test_x", Call: "test_x"}},
				Outcome: suite.Failed,
				Err:     fmt.Errorf("read config: %w", io.EOF),
			},
			path:    "pkg/test_x.go",
			errType: "*errors.errorString",
		},
		{
			name: "panic",
			rec: suite.Record{
				Test:    &suite.FunctionCase{Name: "proj.test_boom", Addr: address.Address{Filename: "/src/proj/test_boom.go", Call: "test_boom"}},
				Outcome: suite.Errored,
				Err:     &suite.PanicError{Value: "boom", Stack: []byte(stack)},
			},
			path:    "test_boom.go",
			errType: "*suite.PanicError",
			file:    "/src/proj/test_boom.go",
			line:    12,
		},
		{
			name: "collection failure outside the tree",
			rec: suite.Record{
				Test:    suite.NewFailure(errors.New("no module"), address.Address{Filename: "/elsewhere/test_y.go"}),
				Outcome: suite.Errored,
				Err:     errors.New("no module"),
			},
			path:    "/elsewhere/test_y.go",
			errType: "*errors.errorString",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFailure(root, tt.rec)
			assert.Equal(t, tt.path, f.FilePath)
			assert.Equal(t, tt.errType, f.ErrorType)
			assert.Equal(t, tt.file, f.File)
			assert.Equal(t, tt.line, f.Line)
			assert.Equal(t, tt.rec.Test.Address().String(), f.Address)
			assert.Equal(t, tt.rec.Outcome.String(), f.Outcome)
		})
	}
}

func TestNewTestEntry(t *testing.T) {
	inside := &suite.FunctionCase{
		Name: "calc.test_ops.test_add",
		Addr: address.Address{Filename: "/src/proj/calc/test_ops.go", Module: "calc.test_ops", Call: "test_add"},
		Doc:  "Adds.\n\nMore detail.",
	}
	entry := NewTestEntry("/src/proj", inside)
	assert.Equal(t, "calc.test_ops.test_add", entry.Name)
	assert.Equal(t, "calc/test_ops.go", entry.FilePath)
	assert.Equal(t, inside.Addr.String(), entry.Address)
	assert.Equal(t, "Adds.", entry.Description)

	outside := NewTestEntry("/src/proj", suite.NewFailure(errors.New("no module"), address.Address{}))
	assert.Empty(t, outside.FilePath)
	assert.Empty(t, outside.Address)
}

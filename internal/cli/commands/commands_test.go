package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nosey/internal/config"
	"nosey/internal/domain"
	"nosey/internal/namespace"
	"nosey/internal/plugins"
	"nosey/internal/plugins/dbreport"
	"nosey/internal/storage"
)

func init() {
	color.NoColor = true
}

func testAdd() {}

func testSub() error { return errors.New("off by one") }

// project lays out a directory holding one test module, test_calc.
func project(t *testing.T) (string, *namespace.Registry) {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "test_calc.go")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	reg := namespace.NewRegistry()
	require.NoError(t, reg.Add(namespace.Source{
		Name:     "test_calc",
		Location: path,
		Build: func(b *namespace.Builder) error {
			b.Func("test_add", testAdd, namespace.Doc("Adds two numbers."))
			b.Func("test_sub", testSub)
			return nil
		},
	}))
	return root, reg
}

func execute(t *testing.T, reg *namespace.Registry, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	app := NewApp(reg, plugins.Builtin()...)
	app.Out = &out
	app.Err = &logs
	root := NewRootCommand(app, "test")
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func lastRun(t *testing.T, dir string) *domain.TestResultsOutput {
	t.Helper()
	cfg := config.New()
	cfg.WorkingDir = dir
	out, err := storage.NewJSONStorage(cfg).Load()
	require.NoError(t, err)
	return out
}

func TestRun(t *testing.T) {
	dir, reg := project(t)

	out, err := execute(t, reg, "--where", dir, "run")
	require.ErrorIs(t, err, ErrTestsFailed)
	assert.Contains(t, out, "FAIL: test_calc.test_sub")
	assert.Contains(t, out, "Test Execution Statistics")
	assert.Contains(t, out, "└── test_calc.go\n    └── FAIL test_calc.test_sub\n")

	run := lastRun(t, dir)
	assert.Equal(t, 2, run.Meta.TestsRun)
	assert.Equal(t, 1, run.Meta.Passed)
	require.Len(t, run.Details, 1)
	assert.Equal(t, filepath.Join(dir, "test_calc.go")+":test_sub", run.Details[0].Address)
}

func TestRun_Failed(t *testing.T) {
	dir, reg := project(t)

	_, err := execute(t, reg, "--where", dir, "run")
	require.ErrorIs(t, err, ErrTestsFailed)

	_, err = execute(t, reg, "--where", dir, "run", "--failed")
	require.ErrorIs(t, err, ErrTestsFailed)

	run := lastRun(t, dir)
	assert.Equal(t, 1, run.Meta.TestsRun)
	assert.Equal(t, 1, run.Meta.Failures)
	assert.Equal(t, []string{filepath.Join(dir, "test_calc.go") + ":test_sub"}, run.Meta.Names)
}

func TestRun_FailedWithoutLastRun(t *testing.T) {
	dir, reg := project(t)

	_, err := execute(t, reg, "--where", dir, "run", "--failed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load last run")
}

func TestRun_Names(t *testing.T) {
	dir, reg := project(t)

	out, err := execute(t, reg, "--where", dir, "-v", "run", "test_calc:test_add")
	require.NoError(t, err)
	assert.Contains(t, out, "Adds two numbers. ... ok\n")
	assert.Contains(t, out, "✓ All tests passed!")
	assert.Equal(t, 1, lastRun(t, dir).Meta.TestsRun)
}

func TestRun_BadConfig(t *testing.T) {
	dir, reg := project(t)

	_, err := execute(t, reg, "--where", dir, "--match", "([", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid test match pattern")
}

func TestList(t *testing.T) {
	dir, reg := project(t)

	out, err := execute(t, reg, "--where", dir, "list")
	require.NoError(t, err)
	assert.Equal(t, "Found 2 test(s):\n\n"+
		"└── test_calc.go\n"+
		"    ├── test_calc.test_add - Adds two numbers.\n"+
		"    └── test_calc.test_sub\n", out)

	_, err = execute(t, reg, "--where", dir, "run")
	require.ErrorIs(t, err, ErrTestsFailed)

	out, err = execute(t, reg, "--where", dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "test_calc.test_sub [F]\n")
	assert.NotContains(t, out, "test_calc.test_add [F]")
}

func TestList_Empty(t *testing.T) {
	out, err := execute(t, namespace.NewRegistry(), "--where", t.TempDir(), "list")
	require.NoError(t, err)
	assert.Equal(t, "No tests found\n", out)
}

func TestFailures(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, namespace.NewRegistry(), "--where", dir, "failures")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results from a previous run")

	cfg := config.New()
	cfg.WorkingDir = dir
	require.NoError(t, storage.NewJSONStorage(cfg).Save(&domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{TestsRun: 1, Passed: 1},
	}))

	out, err := execute(t, namespace.NewRegistry(), "--where", dir, "failures")
	require.NoError(t, err)
	assert.Equal(t, "✓ No test failures found!\n", out)
}

func TestDBInit(t *testing.T) {
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("NOSEY_DB_DATABASE", "reports_test")

	var out bytes.Buffer
	app := NewApp(namespace.NewRegistry(), dbreport.New())
	app.Out = &out
	app.Err = &bytes.Buffer{}
	app.Flags.Where = t.TempDir()
	require.NoError(t, app.Setup(nil, nil))

	var got dbreport.Settings
	dc := NewDBInitCommand(app)
	dc.initSchema = func(ctx context.Context, s dbreport.Settings) ([]domain.SchemaResult, error) {
		got = s
		return []domain.SchemaResult{
			{Table: "reports_test", Created: true},
			{Table: "nosey_runs"},
			{Table: "nosey_failures", Error: errors.New("access denied")},
		}, nil
	}
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err := dc.Execute(cmd, nil)
	require.Error(t, err)
	assert.Equal(t, "failed to create 1 table(s)", err.Error())
	assert.Equal(t, "db.local", got.Host)
	assert.Equal(t, "3307", got.Port)
	assert.Equal(t, "reports_test", got.Database)
	assert.Equal(t, "Preparing database reports_test on db.local:3307\n"+
		"✓ reports_test created\n"+
		"• nosey_runs already exists\n"+
		"✗ nosey_failures: access denied\n", out.String())
}

func TestDBInit_ConnectionError(t *testing.T) {
	app := NewApp(namespace.NewRegistry(), dbreport.New())
	app.Out = &bytes.Buffer{}
	app.Flags.Where = t.TempDir()
	require.NoError(t, app.Setup(nil, nil))

	dc := NewDBInitCommand(app)
	dc.initSchema = func(context.Context, dbreport.Settings) ([]domain.SchemaResult, error) {
		return nil, errors.New("connection refused")
	}
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err := dc.Execute(cmd, nil)
	require.Error(t, err)
	assert.Equal(t, "failed to prepare database: connection refused", err.Error())
}

package phpunit

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nosey/internal/config"
	"nosey/internal/loader"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

// outputs maps a test method to the output PHPUnit prints for it.
var outputs = map[string]string{
	"testCreateUser":         passOutput,
	"testUpdateUser":         failOutput,
	"testDeleteUser":         errorOutput,
	"it_skips_without_redis": skipOutput,
}

type call struct {
	dir  string
	name string
	args []string
}

func configured(t *testing.T, dir string, args ...string) (*Plugin, *[]call) {
	t.Helper()
	p := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	p.Options(fs, config.Env{})
	require.NoError(t, fs.Parse(append([]string{"--with-phpunit"}, args...)))
	cfg := config.New()
	cfg.WorkingDir = dir
	require.NoError(t, p.Configure(cfg))
	return p, fake(p)
}

// fake replaces the PHPUnit process of the configured runner.
func fake(p *Plugin) *[]call {
	var calls []call
	p.Runner().exec = func(_ context.Context, dir string, _ []string, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{dir: dir, name: name, args: args})
		method := strings.TrimSuffix(strings.TrimPrefix(args[1], "/::"), "( .*)?$/")
		out, ok := outputs[method]
		if !ok {
			return nil, exec.ErrNotFound
		}
		if strings.Contains(out, "FAILURES!") || strings.Contains(out, "ERRORS!") {
			return []byte(out), errors.New("exit status 1")
		}
		return []byte(out), nil
	}
	return &calls
}

func TestPlugin_Selection(t *testing.T) {
	p, _ := configured(t, "/app")

	assert.Equal(t, plugin.Accept, p.WantFile("/app/tests/Unit/UserTest.php"))
	assert.Equal(t, plugin.Abstain, p.WantFile("/app/tests/helpers.php"))
	assert.Equal(t, plugin.Reject, p.WantDirectory("/app/vendor"))
	assert.Equal(t, plugin.Reject, p.WantDirectory("/app/node_modules"))
	assert.Equal(t, plugin.Abstain, p.WantDirectory("/app/tests"))

	custom, _ := configured(t, "/app", "--phpunit-ignore", "legacy")
	assert.Equal(t, plugin.Reject, custom.WantDirectory("/app/legacy"))
	assert.Equal(t, plugin.Abstain, custom.WantDirectory("/app/vendor"))
}

func TestPlugin_Bin(t *testing.T) {
	p, _ := configured(t, "/app")
	assert.Equal(t, filepath.Join("/app", "vendor", "bin", "phpunit"), p.Runner().Bin)

	p, _ = configured(t, "/app", "--phpunit-bin", "phpunit")
	assert.Equal(t, "phpunit", p.Runner().Bin)
}

func TestPlugin_LoadTestsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeUserTest(t, dir)
	p, calls := configured(t, dir)

	seq, err := p.LoadTestsFromFile(path)
	require.NoError(t, err)
	tests := slices.Collect(seq)
	require.Len(t, tests, 4)
	assert.Equal(t, `Tests\Unit\UserTest::it_skips_without_redis`, tests[0].String())
	assert.Equal(t, path+":testCreateUser", tests[1].Address().String())

	results := suite.NewResults(false)
	for _, test := range tests {
		require.NoError(t, test.Run(context.Background(), results))
	}
	assert.Equal(t, 4, results.TestsRun)
	assert.Equal(t, 1, results.Successes)
	require.Len(t, results.Skips, 1)
	assert.Equal(t, "needs redis", results.Skips[0].Reason)
	require.Len(t, results.Failures, 1)
	require.Len(t, results.Errors, 1)

	var failure *Failure
	require.ErrorAs(t, results.Failures[0].Err, &failure)
	assert.Equal(t, "testUpdateUser", failure.Method)
	assert.Equal(t, 14, failure.Line)
	assert.Contains(t, failure.Reproduce, "--filter '/::testUpdateUser( .*)?$/'")
	assert.Contains(t, results.Errors[0].Err.Error(), "Call to undefined method")

	require.Len(t, *calls, 4)
	assert.Equal(t, dir, (*calls)[0].dir)
	assert.Equal(t, path, (*calls)[0].args[2])

	none, err := p.LoadTestsFromFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPlugin_LoadTestsFromName(t *testing.T) {
	dir := t.TempDir()
	path := writeUserTest(t, dir)
	p, _ := configured(t, dir)

	seq, err := p.LoadTestsFromName("tests/Unit/UserTest.php:testCreateUser", nil)
	require.NoError(t, err)
	tests := slices.Collect(seq)
	require.Len(t, tests, 1)
	assert.Equal(t, path, tests[0].(*Test).File)

	seq, err = p.LoadTestsFromName(path, nil)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 4)

	seq, err = p.LoadTestsFromName("tests/Unit/UserTest.php:testMissing", nil)
	require.NoError(t, err)
	tests = slices.Collect(seq)
	require.Len(t, tests, 1)
	assert.IsType(t, &suite.Failure{}, tests[0])

	seq, err = p.LoadTestsFromName("calc.test_add", nil)
	require.NoError(t, err)
	assert.Nil(t, seq)

	seq, err = p.LoadTestsFromName("UserTest.php", &namespace.Module{})
	require.NoError(t, err)
	assert.Nil(t, seq)
}

func TestTest_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	path := writeUserTest(t, dir)
	p, _ := configured(t, dir)

	test := &Test{File: path, Class: "UserTest", Method: "testUnknown", runner: p.Runner()}
	results := suite.NewResults(false)
	require.NoError(t, test.Run(context.Background(), results))
	require.Len(t, results.Errors, 1)
	assert.ErrorIs(t, results.Errors[0].Err, exec.ErrNotFound)
}

func TestTest_Cancelled(t *testing.T) {
	p, calls := configured(t, t.TempDir())
	test := &Test{File: "UserTest.php", Class: "UserTest", Method: "testCreateUser", runner: p.Runner()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := suite.NewResults(false)
	assert.ErrorIs(t, test.Run(ctx, results), context.Canceled)
	assert.Zero(t, results.TestsRun)
	assert.Empty(t, *calls)
}

func TestPlugin_DiscoveredByLoader(t *testing.T) {
	dir := t.TempDir()
	writeUserTest(t, dir)
	p, _ := configured(t, dir)

	cfg := config.New()
	cfg.WorkingDir = dir
	m := plugin.NewManager(nil, p)
	require.NoError(t, m.Configure(cfg))
	fake(p)
	l := loader.New(cfg, namespace.NewRegistry(), m, nil)

	test, err := l.LoadTestsFromName(dir, nil, false)
	require.NoError(t, err)
	results := suite.NewResults(false)
	require.NoError(t, test.Run(context.Background(), results))

	assert.Equal(t, 4, results.TestsRun)
	assert.Equal(t, 1, results.Successes)
	assert.Len(t, results.Failures, 1)
	assert.Len(t, results.Errors, 1)
	assert.Len(t, results.Skips, 1)
}

// Package phpunit collects PHPUnit test classes during discovery and runs
// each test method through PHPUnit, so PHP tests are reported alongside
// Go ones.
package phpunit

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"nosey/internal/address"
	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

// DefaultBin is the PHPUnit binary, relative to the working directory.
var DefaultBin = filepath.Join("vendor", "bin", "phpunit")

// DefaultPathsToIgnore are the directories never searched for PHP tests.
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"public",
	"storage",
	"bootstrap",
	"config",
	"database",
	"resources",
	"routes",
}

// Plugin selects *Test.php files and loads their test methods.
type Plugin struct {
	plugin.Base
	plugin.NopSelector
	plugin.NopCollector

	bin    string
	ignore []string

	workingDir string
	skip       map[string]bool
	runner     *Runner
}

// New creates a new PHPUnit plugin
func New() *Plugin {
	return &Plugin{Base: plugin.Base{
		PluginName: "phpunit",
		Help:       "collect and run PHPUnit tests",
	}}
}

func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	p.Base.Options(fs, env)
	fs.StringVar(&p.bin, "phpunit-bin", env.String("NOSEY_PHPUNIT_BIN", DefaultBin),
		"PHPUnit binary, relative to the working directory [NOSEY_PHPUNIT_BIN]")
	fs.StringSliceVar(&p.ignore, "phpunit-ignore", DefaultPathsToIgnore,
		"Directories to skip when looking for PHP tests")
}

func (p *Plugin) Configure(cfg *config.Config) error {
	if err := p.Base.Configure(cfg); err != nil {
		return err
	}
	p.workingDir = cfg.WorkingDir
	bin := p.bin
	if bin == "" {
		bin = DefaultBin
	}
	if strings.ContainsRune(bin, filepath.Separator) && !filepath.IsAbs(bin) {
		bin = filepath.Join(cfg.WorkingDir, bin)
	}
	p.skip = make(map[string]bool, len(p.ignore))
	for _, dir := range p.ignore {
		p.skip[dir] = true
	}
	p.runner = NewRunner(bin, cfg.WorkingDir, cfg.Env)
	return nil
}

// Runner returns the runner tests execute PHPUnit with.
func (p *Plugin) Runner() *Runner { return p.runner }

// WantDirectory rejects ignored directories.
func (p *Plugin) WantDirectory(path string) plugin.Opinion {
	if p.skip[filepath.Base(path)] {
		return plugin.Reject
	}
	return plugin.Abstain
}

// WantFile accepts PHPUnit test classes.
func (p *Plugin) WantFile(path string) plugin.Opinion {
	if strings.HasSuffix(filepath.Base(path), "Test.php") {
		return plugin.Accept
	}
	return plugin.Abstain
}

// LoadTestsFromFile loads every test method of a PHP file.
func (p *Plugin) LoadTestsFromFile(path string) (iter.Seq[suite.Test], error) {
	if !strings.HasSuffix(path, ".php") {
		return nil, nil
	}
	return p.fileTests(path, ""), nil
}

// LoadTestsFromName loads "File.php" or "File.php:method".
func (p *Plugin) LoadTestsFromName(name string, mod *namespace.Module) (iter.Seq[suite.Test], error) {
	if mod != nil {
		return nil, nil
	}
	file, method := name, ""
	if i := strings.LastIndex(name, ":"); i > 1 {
		file, method = name[:i], name[i+1:]
	}
	if !strings.HasSuffix(file, ".php") {
		return nil, nil
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(p.workingDir, file)
	}
	return p.fileTests(file, method), nil
}

// fileTests lists the tests of path, or only the one named method.
func (p *Plugin) fileTests(path, method string) iter.Seq[suite.Test] {
	return func(yield func(suite.Test) bool) {
		tf, err := FindTestCases(path)
		if err != nil {
			yield(suite.NewFailure(err, address.Address{Filename: path}))
			return
		}
		if method != "" {
			if !tf.Has(method) {
				err := fmt.Errorf("no test case %s in %s", method, path)
				yield(suite.NewFailure(err, address.Address{Filename: path, Call: method}))
				return
			}
			yield(p.newTest(tf, method))
			return
		}
		for _, c := range tf.Cases {
			if !yield(p.newTest(tf, c)) {
				return
			}
		}
	}
}

func (p *Plugin) newTest(tf *TestFile, method string) *Test {
	return &Test{File: tf.Path, Class: tf.Class, Method: method, runner: p.runner}
}

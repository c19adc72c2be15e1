// Package nosey collects tests registered by Go packages, runs them, and
// reports on the results. A test binary registers its modules from init
// functions and hands control to Main:
//
//	func init() {
//		nosey.Register("test_calc", func(b *nosey.Builder) error {
//			b.Func("test_add", testAdd)
//			return nil
//		})
//	}
//
//	func main() { nosey.Main() }
package nosey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"nosey/internal/cli/commands"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/plugins"
	"nosey/internal/suite"
)

// Version is reported by --version.
var Version = "dev"

type (
	// Builder declares the members of a registered module.
	Builder = namespace.Builder
	// Option customizes a registered member.
	Option = namespace.Option
	// Yield hands one generated test to the loader.
	Yield = namespace.Yield
	// Case is embedded by structs whose methods run as separate tests.
	Case = suite.Case
	// Plugin is implemented by every plugin.
	Plugin = plugin.Plugin
)

var (
	Doc        = namespace.Doc
	Attr       = namespace.Attr
	MethodAttr = namespace.MethodAttr
	WithSetup  = namespace.WithSetup
	Named      = namespace.Named
)

// Skip returns an error that marks the calling test as skipped.
func Skip(reason string) error { return suite.Skip(reason) }

// Register registers a module defined in the calling file.
func Register(name string, build func(*Builder) error) {
	mustAdd(namespace.Source{Name: name, Location: namespace.CallerFile(2), Build: build})
}

// RegisterPackage registers the calling file's directory as a package.
// Its build function declares the package fixtures.
func RegisterPackage(name string, build func(*Builder) error) {
	mustAdd(namespace.Source{Name: name, Location: filepath.Dir(namespace.CallerFile(2)), Package: true, Build: build})
}

func mustAdd(src namespace.Source) {
	if err := namespace.Default.Add(src); err != nil {
		panic("nosey: " + err.Error())
	}
}

// Main runs the command line against every registered module with the
// bundled plugins and extra, then exits.
func Main(extra ...Plugin) {
	os.Exit(Run(os.Args[1:], extra...))
}

// Run runs the command line with args and returns the exit code.
func Run(args []string, extra ...Plugin) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commands.NewApp(namespace.Default, append(plugins.Builtin(), extra...)...)
	rootCmd := commands.NewRootCommand(app, Version)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, commands.ErrTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

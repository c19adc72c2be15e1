package cli

import (
	"github.com/spf13/pflag"

	"nosey/internal/config"
)

// Flags holds command-line flags
type Flags struct {
	Where            string
	Match            string
	Include          []string
	Exclude          []string
	IgnoreFiles      []string
	NoPathAdjustment bool
	Stop             bool
	Verbose          int
	Quiet            bool
	ConfigFile       string
	OnlyFailed       bool
	OpenFailures     bool
	LogLevel         string
	LogFormat        string
}

// Register adds the flags shared by every command to fs
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Where, "where", "w", "", "Look for tests in this directory [NOSEY_WHERE]")
	fs.StringVarP(&f.Match, "match", "m", "", "Files, directories, function names and class names matching this regular expression are collected as tests [NOSEY_TESTMATCH]")
	fs.StringArrayVarP(&f.Include, "include", "i", nil, "Also collect names matching this regular expression (repeatable) [NOSEY_INCLUDE]")
	fs.StringArrayVarP(&f.Exclude, "exclude", "e", nil, "Never collect names matching this regular expression (repeatable) [NOSEY_EXCLUDE]")
	fs.StringArrayVarP(&f.IgnoreFiles, "ignore-files", "I", nil, "Completely ignore files matching this regular expression (repeatable) [NOSEY_IGNORE_FILES]")
	fs.BoolVarP(&f.NoPathAdjustment, "no-path-adjustment", "P", false, "Do not derive module names from package directories [NOSEY_NOPATH]")
	fs.BoolVarP(&f.Stop, "stop", "x", false, "Stop running tests after the first error or failure [NOSEY_STOP]")
	fs.CountVarP(&f.Verbose, "verbose", "v", "Be more verbose (repeatable) [NOSEY_VERBOSE]")
	fs.BoolVarP(&f.Quiet, "quiet", "q", false, "Show a progress bar instead of per-test output")
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "Load configuration from this YAML file (default "+config.DefaultConfigFile+" in the working directory)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Level of nosey's own log output: debug, info, warn or error [NOSEY_LOG_LEVEL]")
	fs.StringVar(&f.LogFormat, "log-format", "", "Format of nosey's own log output: text or json")
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Where:            f.Where,
		Match:            f.Match,
		Include:          f.Include,
		Exclude:          f.Exclude,
		IgnoreFiles:      f.IgnoreFiles,
		NoPathAdjustment: f.NoPathAdjustment,
		Stop:             f.Stop,
		Verbose:          f.Verbose,
		Quiet:            f.Quiet,
		ConfigFile:       f.ConfigFile,
		OnlyFailed:       f.OnlyFailed,
		OpenFailures:     f.OpenFailures,
		LogLevel:         f.LogLevel,
		LogFormat:        f.LogFormat,
	}
}

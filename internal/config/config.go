package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a run. It is built once, before
// plugins are configured, and not modified afterwards.
type Config struct {
	// Discovery settings
	WorkingDir     string
	TestMatch      *regexp.Regexp
	Include        []*regexp.Regexp
	Exclude        []*regexp.Regexp
	IgnoreFiles    []*regexp.Regexp
	SourceSuffixes []string
	AddPaths       bool

	// Execution settings
	StopOnFailure bool
	Verbosity     int

	// Output settings
	OutputJSONFile string
	OutputJSONDir  string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Environment, with .env values merged in
	Env Env

	// Command flags
	Flags Flags
}

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

// fileConfig is the shape of the YAML config file
type fileConfig struct {
	Where          string   `yaml:"where"`
	Match          string   `yaml:"match"`
	Include        []string `yaml:"include"`
	Exclude        []string `yaml:"exclude"`
	IgnoreFiles    []string `yaml:"ignore_files"`
	SourceSuffixes []string `yaml:"source_suffixes"`
	AddPaths       *bool    `yaml:"add_paths"`
	Stop           bool     `yaml:"stop"`
	Verbosity      *int     `yaml:"verbosity"`
	OutputDir      string   `yaml:"output_dir"`
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format"`
}

// settings is the uncompiled form of the discovery options
type settings struct {
	match       string
	include     []string
	exclude     []string
	ignoreFiles []string
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		WorkingDir:     DefaultWorkingDir,
		TestMatch:      regexp.MustCompile(DefaultTestMatch),
		AddPaths:       true,
		Verbosity:      DefaultVerbosity,
		OutputJSONFile: DefaultOutputJSONFile,
		OutputJSONDir:  DefaultOutputJSONDir,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		Env:            Env{},
	}
	for _, p := range DefaultIgnoreFiles {
		cfg.IgnoreFiles = append(cfg.IgnoreFiles, regexp.MustCompile(p))
	}
	cfg.SourceSuffixes = make([]string, len(DefaultSourceSuffixes))
	copy(cfg.SourceSuffixes, DefaultSourceSuffixes)
	return cfg
}

// Load creates a config from defaults, the config file, the environment
// and flags, later sources overriding earlier ones.
func Load(flags Flags, env Env) (*Config, error) {
	cfg := New()
	cfg.Flags = flags
	if env != nil {
		cfg.Env = env
	}

	where := flags.Where
	if where == "" {
		where = cfg.Env.String("NOSEY_WHERE", DefaultWorkingDir)
	}
	wd, err := filepath.Abs(where)
	if err != nil {
		return nil, fmt.Errorf("resolve working dir: %w", err)
	}
	cfg.WorkingDir = wd

	s := settings{match: DefaultTestMatch, ignoreFiles: DefaultIgnoreFiles}

	if err := cfg.applyFile(flags.ConfigFile, &s); err != nil {
		return nil, err
	}
	cfg.applyEnv(&s)
	cfg.applyFlags(flags, &s)

	if err := cfg.compile(s); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string, s *settings) error {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(c.WorkingDir, DefaultConfigFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Where != "" {
		if filepath.IsAbs(fc.Where) {
			c.WorkingDir = fc.Where
		} else {
			c.WorkingDir = filepath.Join(filepath.Dir(path), fc.Where)
		}
	}
	if fc.Match != "" {
		s.match = fc.Match
	}
	s.include = append(s.include, fc.Include...)
	s.exclude = append(s.exclude, fc.Exclude...)
	if len(fc.IgnoreFiles) > 0 {
		s.ignoreFiles = fc.IgnoreFiles
	}
	if len(fc.SourceSuffixes) > 0 {
		c.SourceSuffixes = fc.SourceSuffixes
	}
	if fc.AddPaths != nil {
		c.AddPaths = *fc.AddPaths
	}
	if fc.Stop {
		c.StopOnFailure = true
	}
	if fc.Verbosity != nil {
		c.Verbosity = *fc.Verbosity
	}
	if fc.OutputDir != "" {
		c.OutputJSONDir = fc.OutputDir
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	return nil
}

func (c *Config) applyEnv(s *settings) {
	e := c.Env
	s.match = e.String("NOSEY_TESTMATCH", s.match)
	s.include = append(s.include, e.List("NOSEY_INCLUDE")...)
	s.exclude = append(s.exclude, e.List("NOSEY_EXCLUDE")...)
	if files := e.List("NOSEY_IGNORE_FILES"); len(files) > 0 {
		s.ignoreFiles = files
	}
	if e.Bool("NOSEY_NOPATH", false) {
		c.AddPaths = false
	}
	if e.Bool("NOSEY_STOP", false) {
		c.StopOnFailure = true
	}
	if v, err := strconv.Atoi(e.String("NOSEY_VERBOSE", "")); err == nil {
		c.Verbosity = v
	}
	c.LogLevel = e.String("NOSEY_LOG_LEVEL", c.LogLevel)
}

func (c *Config) applyFlags(flags Flags, s *settings) {
	if flags.Match != "" {
		s.match = flags.Match
	}
	s.include = append(s.include, flags.Include...)
	s.exclude = append(s.exclude, flags.Exclude...)
	if len(flags.IgnoreFiles) > 0 {
		s.ignoreFiles = flags.IgnoreFiles
	}
	if flags.NoPathAdjustment {
		c.AddPaths = false
	}
	if flags.Stop {
		c.StopOnFailure = true
	}
	if flags.Verbose > 0 {
		c.Verbosity = DefaultVerbosity + flags.Verbose
	}
	if flags.Quiet {
		c.Verbosity = 0
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		c.LogFormat = flags.LogFormat
	}
}

func (c *Config) compile(s settings) error {
	match, err := regexp.Compile(s.match)
	if err != nil {
		return fmt.Errorf("invalid test match pattern: %w", err)
	}
	c.TestMatch = match

	compileAll := func(kind string, patterns []string) ([]*regexp.Regexp, error) {
		var out []*regexp.Regexp
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid %s pattern %q: %w", kind, p, err)
			}
			out = append(out, re)
		}
		return out, nil
	}
	if c.Include, err = compileAll("include", s.include); err != nil {
		return err
	}
	if c.Exclude, err = compileAll("exclude", s.exclude); err != nil {
		return err
	}
	if c.IgnoreFiles, err = compileAll("ignore-files", s.ignoreFiles); err != nil {
		return err
	}
	return nil
}

// Matches reports whether name looks like a test: it matches the test
// pattern or an include pattern, and no exclude pattern. Exclusion wins.
func (c *Config) Matches(name string) bool {
	for _, re := range c.Exclude {
		if re.MatchString(name) {
			return false
		}
	}
	if c.TestMatch != nil && c.TestMatch.MatchString(name) {
		return true
	}
	for _, re := range c.Include {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsExcluded reports whether an exclude pattern matches name.
func (c *Config) IsExcluded(name string) bool {
	for _, re := range c.Exclude {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsIgnoredFile reports whether a file base name is never collected.
func (c *Config) IsIgnoredFile(base string) bool {
	for _, re := range c.IgnoreFiles {
		if re.MatchString(base) {
			return true
		}
	}
	return false
}

// HasSourceSuffix reports whether path names a source module.
func (c *Config) HasSourceSuffix(path string) bool {
	for _, s := range c.SourceSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// GetOutputPath returns the absolute path of the results JSON file under
// the working directory, so run and failures always agree on it.
func (c *Config) GetOutputPath() string {
	dir := c.OutputJSONDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.WorkingDir, dir)
	}
	p := filepath.Join(dir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Env is the environment options take their defaults from.
type Env map[string]string

// LoadEnv reads the process environment, with values from a .env file in
// dir filling in anything unset.
func LoadEnv(dir string) Env {
	env := Env{}
	if dir != "" {
		if values, err := godotenv.Read(filepath.Join(dir, ".env")); err == nil {
			for k, v := range values {
				env[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// String returns the value of key or def.
func (e Env) String(key, def string) string {
	if v, ok := e[key]; ok && v != "" {
		return v
	}
	return def
}

// Bool returns the boolean value of key or def.
func (e Env) Bool(key string, def bool) bool {
	if v, ok := e[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// List splits a path-list separated value.
func (e Env) List(key string) []string {
	v := e.String(key, "")
	if v == "" {
		return nil
	}
	return filepath.SplitList(v)
}

// Package namefilter keeps only the test functions and methods whose name
// matches a wildcard pattern given with --filter.
package namefilter

import (
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
)

// Plugin rejects functions and methods not matching the pattern.
type Plugin struct {
	plugin.Base
	plugin.NopSelector

	pattern string
}

// New creates a new name filter plugin
func New() *Plugin {
	return &Plugin{Base: plugin.Base{
		PluginName: "namefilter",
		Help:       "select tests by name pattern",
	}}
}

func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	fs.StringVar(&p.pattern, "filter", env.String("NOSEY_FILTER", ""),
		`Run only tests whose name matches, e.g. "*Payment*" or "test_add" [NOSEY_FILTER]`)
}

// Configure enables the plugin when a pattern is set.
func (p *Plugin) Configure(*config.Config) error {
	p.SetEnabled(p.pattern != "")
	return nil
}

// Match reports whether name matches pattern. Patterns with * or ? are
// wildcards; a pattern whose wildcard match fails still matches when
// every fragment between the stars occurs in name. Plain patterns match
// as substrings.
func Match(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") {
		hasPart := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			if !strings.Contains(name, part) {
				return false
			}
			hasPart = true
		}
		return hasPart
	}
	if !strings.Contains(pattern, "?") {
		return strings.Contains(name, pattern)
	}
	return false
}

// matches tries the simple name and then the qualified one.
func (p *Plugin) matches(simple, full string) plugin.Opinion {
	if Match(p.pattern, simple) || Match(p.pattern, full) {
		return plugin.Abstain
	}
	return plugin.Reject
}

func (p *Plugin) WantFunction(f *namespace.Function) plugin.Opinion {
	return p.matches(f.Name(), f.String())
}

func (p *Plugin) WantMethod(m *namespace.Method) plugin.Opinion {
	return p.matches(m.Name(), m.String())
}

// Package attrib selects tests by the attributes attached to them at
// registration.
//
//	nosey run -a slow            tests with a truthy "slow" attribute
//	nosey run -a '!slow'         tests without it
//	nosey run -a speed=fast,db   both conditions
//	nosey run -a slow -a db      either group
package attrib

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
)

// term is one condition of a group.
type term struct {
	key    string
	value  string
	hasVal bool
	negate bool
}

// Plugin rejects functions, methods and classes whose attributes match
// none of the configured groups.
type Plugin struct {
	plugin.Base
	plugin.NopSelector

	specs  []string
	groups [][]term
}

// New creates a new attribute selection plugin
func New() *Plugin {
	return &Plugin{Base: plugin.Base{
		PluginName: "attrib",
		Help:       "select tests by attribute",
	}}
}

// Options registers -a/--attr.
func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	var def []string
	if v := env.String("NOSEY_ATTR", ""); v != "" {
		def = []string{v}
	}
	fs.StringArrayVarP(&p.specs, "attr", "a", def,
		"Run only tests that have attributes specified by ATTR [NOSEY_ATTR]")
}

// Configure parses the specs; the plugin is enabled when there are any.
func (p *Plugin) Configure(cfg *config.Config) error {
	groups, err := parse(p.specs)
	if err != nil {
		return err
	}
	p.groups = groups
	p.SetEnabled(len(groups) > 0)
	return nil
}

// parse converts attribute specs into groups of terms. Terms within a
// spec are joined by commas and must all hold.
func parse(specs []string) ([][]term, error) {
	var groups [][]term
	for _, spec := range specs {
		var group []term
		for _, raw := range strings.Split(spec, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			var t term
			if strings.HasPrefix(raw, "!") {
				t.negate = true
				raw = raw[1:]
			}
			if k, v, ok := strings.Cut(raw, "="); ok {
				t.key, t.value, t.hasVal = strings.TrimSpace(k), strings.TrimSpace(v), true
			} else {
				t.key = raw
			}
			if t.key == "" {
				return nil, fmt.Errorf("invalid attribute spec %q", spec)
			}
			group = append(group, t)
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// Validate reports whether the attributes of obj satisfy any group.
func (p *Plugin) Validate(obj namespace.Attributed) bool {
	for _, group := range p.groups {
		if matchesAll(obj, group) {
			return true
		}
	}
	return false
}

func matchesAll(obj namespace.Attributed, group []term) bool {
	for _, t := range group {
		v, ok := obj.Attr(t.key)
		var hit bool
		if t.hasVal {
			hit = ok && equals(v, t.value)
		} else {
			hit = ok && truthy(v)
		}
		if hit == t.negate {
			return false
		}
	}
	return true
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case []string:
		return len(x) > 0
	default:
		return true
	}
}

func equals(v any, want string) bool {
	switch x := v.(type) {
	case []string:
		return slices.ContainsFunc(x, func(s string) bool { return strings.EqualFold(s, want) })
	case string:
		return strings.EqualFold(x, want)
	default:
		return strings.EqualFold(fmt.Sprint(x), want)
	}
}

func (p *Plugin) opinion(ok bool) plugin.Opinion {
	if ok {
		return plugin.Abstain
	}
	return plugin.Reject
}

// WantClass keeps a class when it, or one of its methods, matches.
func (p *Plugin) WantClass(c *namespace.Class) plugin.Opinion {
	if p.Validate(c) {
		return plugin.Abstain
	}
	for _, m := range c.Methods() {
		if p.Validate(m) {
			return plugin.Abstain
		}
	}
	return plugin.Reject
}

func (p *Plugin) WantFunction(f *namespace.Function) plugin.Opinion {
	return p.opinion(p.Validate(f))
}

func (p *Plugin) WantMethod(m *namespace.Method) plugin.Opinion {
	return p.opinion(p.Validate(m))
}

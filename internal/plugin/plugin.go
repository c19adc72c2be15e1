// Package plugin defines the plugin contract and the Manager that fans
// hook calls out to the active plugins under a fixed policy per hook.
package plugin

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"nosey/internal/config"
)

// DefaultPriority is the priority of plugins that do not set one.
const DefaultPriority = 100

// Plugin is the base contract every plugin satisfies. Hooks are opted
// into by implementing the capability interfaces in hooks.go.
type Plugin interface {
	Name() string
	Enabled() bool
	Priority() int
}

// Optioner registers command line options. It is called for every
// plugin, enabled or not.
type Optioner interface {
	Options(fs *pflag.FlagSet, env Env)
}

// Configurer reads its settings once options have been parsed.
type Configurer interface {
	Configure(cfg *config.Config) error
}

// Opinion is the answer of a selection hook.
type Opinion int

const (
	Abstain Opinion = iota
	Accept
	Reject
)

// Wants converts a decision into an Opinion.
func Wants(want bool) Opinion {
	if want {
		return Accept
	}
	return Reject
}

func (o Opinion) String() string {
	switch o {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "abstain"
	}
}

// Env is the environment plugins read option defaults from.
type Env = config.Env

// EnvName returns the variable that enables the named plugin.
func EnvName(name string) string {
	return "NOSEY_WITH_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// Base supplies name, priority and the --with-<name> switch. Plugins
// embed it and set the fields in their constructor.
type Base struct {
	PluginName string
	Score      int
	Help       string
	// DefaultOn enables the plugin unless switched off with --no<name>.
	DefaultOn bool

	enabled bool
	offFlag *bool
}

func (b *Base) Name() string { return b.PluginName }

func (b *Base) Priority() int {
	if b.Score == 0 {
		return DefaultPriority
	}
	return b.Score
}

func (b *Base) Enabled() bool { return b.enabled }

// SetEnabled switches the plugin on or off.
func (b *Base) SetEnabled(on bool) { b.enabled = on }

// Options registers the enabling switch.
func (b *Base) Options(fs *pflag.FlagSet, env Env) {
	if b.DefaultOn {
		b.enabled = !env.Bool("NOSEY_NO"+strings.ToUpper(b.PluginName), false)
		var off bool
		fs.BoolVar(&off, "no"+b.PluginName, false, fmt.Sprintf("Disable plugin %s: %s [NOSEY_NO%s]", b.PluginName, b.Help, strings.ToUpper(b.PluginName)))
		b.offFlag = &off
		return
	}
	fs.BoolVar(&b.enabled, "with-"+b.PluginName, env.Bool(EnvName(b.PluginName), b.enabled),
		fmt.Sprintf("Enable plugin %s: %s [%s]", b.PluginName, b.Help, EnvName(b.PluginName)))
}

// Configure applies the off switch of default-on plugins.
func (b *Base) Configure(cfg *config.Config) error {
	if b.offFlag != nil && *b.offFlag {
		b.enabled = false
	}
	return nil
}

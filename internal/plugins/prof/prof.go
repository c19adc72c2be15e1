// Package prof times every test and reports the slowest ones after the
// run. With --profile-stats-file it also writes a CPU profile of the
// whole run for go tool pprof.
package prof

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

// Stat is the accumulated time of one test name.
type Stat struct {
	Name  string
	Calls int
	Total time.Duration
}

// Plugin collects per-test timings.
type Plugin struct {
	plugin.Base
	plugin.NopReporter
	plugin.NopLifecycle

	sortBy    string
	restrict  string
	statsFile string

	limit   int
	pattern *regexp.Regexp
	now     func() time.Time
	started map[string]time.Time
	stats   map[string]*Stat
	profile *os.File
}

// New creates a new profiling plugin
func New() *Plugin {
	return &Plugin{
		Base: plugin.Base{
			PluginName: "profile",
			Help:       "report test timings",
		},
		now: time.Now,
	}
}

func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	p.Base.Options(fs, env)
	fs.StringVar(&p.sortBy, "profile-sort", env.String("NOSEY_PROFILE_SORT", "time"),
		"Sort timings by time or name [NOSEY_PROFILE_SORT]")
	fs.StringVar(&p.restrict, "profile-restrict", env.String("NOSEY_PROFILE_RESTRICT", ""),
		"Report only the first N timings, or tests whose name matches a pattern [NOSEY_PROFILE_RESTRICT]")
	fs.StringVar(&p.statsFile, "profile-stats-file", env.String("NOSEY_PROFILE_STATS_FILE", ""),
		"Write a CPU profile of the run to this file [NOSEY_PROFILE_STATS_FILE]")
}

func (p *Plugin) Configure(cfg *config.Config) error {
	if err := p.Base.Configure(cfg); err != nil {
		return err
	}
	if p.sortBy != "time" && p.sortBy != "name" {
		return fmt.Errorf("invalid profile sort %q: want time or name", p.sortBy)
	}
	p.limit, p.pattern = 0, nil
	if p.restrict != "" {
		if n, err := strconv.Atoi(p.restrict); err == nil {
			p.limit = n
		} else {
			re, err := regexp.Compile(p.restrict)
			if err != nil {
				return fmt.Errorf("invalid profile restriction: %w", err)
			}
			p.pattern = re
		}
	}
	p.started = map[string]time.Time{}
	p.stats = map[string]*Stat{}
	return nil
}

// Begin starts the CPU profile when a stats file is set.
func (p *Plugin) Begin() error {
	if p.statsFile == "" {
		return nil
	}
	f, err := os.Create(p.statsFile)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to start profile: %w", err)
	}
	p.profile = f
	return nil
}

func (p *Plugin) StartTest(t suite.Test) {
	p.started[t.String()] = p.now()
}

func (p *Plugin) StopTest(t suite.Test) {
	name := t.String()
	start, ok := p.started[name]
	if !ok {
		return
	}
	delete(p.started, name)
	s := p.stats[name]
	if s == nil {
		s = &Stat{Name: name}
		p.stats[name] = s
	}
	s.Calls++
	s.Total += p.now().Sub(start)
}

// Stats returns the timings in report order, restricted as configured.
func (p *Plugin) Stats() []Stat {
	out := make([]Stat, 0, len(p.stats))
	for _, s := range p.stats {
		if p.pattern != nil && !p.pattern.MatchString(s.Name) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if p.sortBy == "time" && out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	if p.limit > 0 && len(out) > p.limit {
		out = out[:p.limit]
	}
	return out
}

// Report prints the timing table. Other reports still run.
func (p *Plugin) Report(w io.Writer) bool {
	stats := p.Stats()
	if len(stats) == 0 {
		return false
	}
	width := len("Test")
	for _, s := range stats {
		width = max(width, len(s.Name))
	}
	line := func(l, m, r string) {
		fmt.Fprintf(w, "%s%s%s%s%s%s%s\n", l, strings.Repeat("─", width+2), m, strings.Repeat("─", 8), m, strings.Repeat("─", 12), r)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.CyanString("Test timings"))
	line("┌", "┬", "┐")
	fmt.Fprintf(w, "│ %-*s │ %6s │ %10s │\n", width, "Test", "Calls", "Time")
	line("├", "┼", "┤")
	for _, s := range stats {
		fmt.Fprintf(w, "│ %-*s │ %6d │ %s │\n", width, s.Name, s.Calls, color.YellowString("%9.3fs", s.Total.Seconds()))
	}
	line("└", "┴", "┘")
	return false
}

// Finalize stops the CPU profile.
func (p *Plugin) Finalize(*suite.Results) error {
	if p.profile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := p.profile.Close()
	p.profile = nil
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// Package selector decides which directories, files, modules, classes,
// functions and methods are collected as tests.
package selector

import (
	"path/filepath"
	"strings"

	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
)

// DeclaredKey is the attribute that overrides name matching: an object
// registered with namespace.Attr(DeclaredKey, false) is never collected,
// one with true always is.
const DeclaredKey = "test"

// Opinions are consulted before the default policy. The first answer
// other than Abstain wins.
type Opinions interface {
	WantDirectory(path string) plugin.Opinion
	WantFile(path string) plugin.Opinion
	WantModule(m *namespace.Module) plugin.Opinion
	WantClass(c *namespace.Class) plugin.Opinion
	WantFunction(f *namespace.Function) plugin.Opinion
	WantMethod(m *namespace.Method) plugin.Opinion
}

// Selector applies the default selection policy
type Selector struct {
	cfg      *config.Config
	opinions Opinions
}

// New creates a new Selector. opinions may be nil.
func New(cfg *config.Config, opinions Opinions) *Selector {
	if opinions == nil {
		opinions = plugin.NopSelector{}
	}
	return &Selector{cfg: cfg, opinions: opinions}
}

// Matches reports whether name looks like a test.
func (s *Selector) Matches(name string) bool {
	return s.cfg.Matches(name)
}

// WantDirectory reports whether a directory should be traversed.
func (s *Selector) WantDirectory(path string) bool {
	if o := s.opinions.WantDirectory(path); o != plugin.Abstain {
		return o == plugin.Accept
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
		return false
	}
	return !s.cfg.IsExcluded(base)
}

// WantFile reports whether a file should be loaded. Ignored files are
// never wanted, whatever the plugins say.
func (s *Selector) WantFile(path string) bool {
	base := filepath.Base(path)
	if s.cfg.IsIgnoredFile(base) {
		return false
	}
	wanted := s.cfg.HasSourceSuffix(base) && s.Matches(base)
	if o := s.opinions.WantFile(path); o != plugin.Abstain {
		return o == plugin.Accept
	}
	return wanted
}

// WantModule reports whether the members of a discovered module should be
// collected.
func (s *Selector) WantModule(m *namespace.Module) bool {
	if o := s.opinions.WantModule(m); o != plugin.Abstain {
		return o == plugin.Accept
	}
	name := m.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return s.Matches(name)
}

// WantClass reports whether a class is a test class.
func (s *Selector) WantClass(c *namespace.Class) bool {
	if o := s.opinions.WantClass(c); o != plugin.Abstain {
		return o == plugin.Accept
	}
	if declared, ok := declaredOf(c); ok {
		return declared
	}
	if strings.HasPrefix(c.Name(), "_") || s.cfg.IsExcluded(c.Name()) {
		return false
	}
	if c.IsTestCase() {
		return true
	}
	if !s.Matches(c.Name()) {
		return false
	}
	for _, m := range c.Methods() {
		if s.Matches(m.Name()) {
			return true
		}
	}
	return false
}

// WantFunction reports whether a module function is a test.
func (s *Selector) WantFunction(f *namespace.Function) bool {
	if o := s.opinions.WantFunction(f); o != plugin.Abstain {
		return o == plugin.Accept
	}
	if f.IsNested() || !f.Value().IsValid() {
		return false
	}
	if declared, ok := declaredOf(f); ok {
		return declared
	}
	return !strings.HasPrefix(f.Name(), "_") && s.Matches(f.Name())
}

// WantMethod reports whether a class method is a test.
func (s *Selector) WantMethod(m *namespace.Method) bool {
	if o := s.opinions.WantMethod(m); o != plugin.Abstain {
		return o == plugin.Accept
	}
	if v, ok := m.OwnAttr(DeclaredKey); ok {
		if declared, ok := v.(bool); ok {
			return declared
		}
	}
	return s.Matches(m.Name())
}

func declaredOf(o namespace.Attributed) (bool, bool) {
	v, ok := o.Attr(DeclaredKey)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

package namespace

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
)

// Source is a registered, not yet imported, module or package.
type Source struct {
	Name     string
	Location string
	Package  bool
	Build    func(*Builder) error
}

// Registry holds every registered source, keyed by location and name.
type Registry struct {
	mu         sync.RWMutex
	byLocation map[string]*Source
	byName     map[string][]*Source
}

// Default is the registry populated by package-level Register calls.
var Default = NewRegistry()

// NewRegistry creates a new Registry
func NewRegistry() *Registry {
	return &Registry{
		byLocation: map[string]*Source{},
		byName:     map[string][]*Source{},
	}
}

// Add registers src. Locations are made absolute; a location may only be
// registered once.
func (r *Registry) Add(src Source) error {
	if src.Name == "" {
		return fmt.Errorf("source at %s has no name", src.Location)
	}
	loc, err := filepath.Abs(src.Location)
	if err != nil {
		return fmt.Errorf("resolve location of %s: %w", src.Name, err)
	}
	src.Location = loc

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, dup := r.byLocation[loc]; dup {
		return fmt.Errorf("%s already registered at %s as %s", src.Name, loc, prev.Name)
	}
	s := &src
	r.byLocation[loc] = s
	r.byName[src.Name] = append(r.byName[src.Name], s)
	return nil
}

// Register registers a module defined in the calling file. It panics if
// the file already registered a module.
func (r *Registry) Register(name string, build func(*Builder) error) {
	r.mustAdd(Source{Name: name, Location: CallerFile(2), Build: build})
}

// RegisterPackage registers the calling file's directory as a package.
func (r *Registry) RegisterPackage(name string, build func(*Builder) error) {
	r.mustAdd(Source{Name: name, Location: filepath.Dir(CallerFile(2)), Package: true, Build: build})
}

func (r *Registry) mustAdd(src Source) {
	if err := r.Add(src); err != nil {
		panic("namespace: " + err.Error())
	}
}

// Lookup returns the source registered at location.
func (r *Registry) Lookup(location string) (*Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byLocation[filepath.Clean(location)]
	return s, ok
}

// ByName returns every source registered under a dotted name.
func (r *Registry) ByName(name string) []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Source(nil), r.byName[name]...)
}

// IsPackage reports whether a package is registered for dir.
func (r *Registry) IsPackage(dir string) bool {
	s, ok := r.Lookup(dir)
	return ok && s.Package
}

// CallerFile returns the source file skip frames above its caller.
func CallerFile(skip int) string {
	_, file, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return file
}

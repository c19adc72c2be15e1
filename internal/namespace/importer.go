package namespace

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
)

// ImportError reports a module that could not be imported.
type ImportError struct {
	Name     string
	Location string
	Err      error
}

func (e *ImportError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("import %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("import %s (%s): %v", e.Name, e.Location, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Importer imports registered sources for one run. It owns the import
// cache and the search path used to pick between same-named modules.
type Importer struct {
	registry *Registry
	modules  map[string]*Module
	failed   map[string]error
	path     []string
	log      *slog.Logger
}

// NewImporter creates a new Importer
func NewImporter(reg *Registry, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		registry: reg,
		modules:  map[string]*Module{},
		failed:   map[string]error{},
		log:      log,
	}
}

// IsPackage reports whether dir is a registered package.
func (im *Importer) IsPackage(dir string) bool {
	return im.registry.IsPackage(dir)
}

// SearchPath returns the current search path, most recent entry last.
func (im *Importer) SearchPath() []string {
	return slices.Clone(im.path)
}

// AddPath pushes dir (or, inside a package, the directory holding the
// outermost package) onto the search path. The returned release pops it
// again; calling release more than once is harmless.
func (im *Importer) AddPath(dir string) (release func()) {
	dir = filepath.Clean(dir)
	for im.IsPackage(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	im.path = append(im.path, dir)
	im.log.Debug("search path pushed", "dir", dir, "depth", len(im.path))

	released := false
	return func() {
		if released {
			return
		}
		released = true
		for i := len(im.path) - 1; i >= 0; i-- {
			if im.path[i] == dir {
				im.path = slices.Delete(im.path, i, i+1)
				break
			}
		}
		im.log.Debug("search path popped", "dir", dir, "depth", len(im.path))
	}
}

// ImportFromPath imports the module at path (a file, or a package
// directory) under the dotted name fqname, importing its parent packages
// first.
func (im *Importer) ImportFromPath(path, fqname string) (*Module, error) {
	path = filepath.Clean(path)
	parts := strings.Split(fqname, ".")

	base := path
	for range parts {
		base = filepath.Dir(base)
	}

	var parent *Module
	for i := range parts {
		name := strings.Join(parts[:i+1], ".")
		loc := path
		if i < len(parts)-1 {
			loc = filepath.Join(append([]string{base}, parts[:i+1]...)...)
		}
		mod, err := im.importOne(name, loc, parent, i < len(parts)-1)
		if err != nil {
			return nil, err
		}
		parent = mod
	}
	return parent, nil
}

// Import imports a module by dotted name. When several sources share the
// name, the one found under the most recent search path entry wins.
func (im *Importer) Import(fqname string) (*Module, error) {
	src, err := im.choose(fqname)
	if err != nil {
		return nil, err
	}
	return im.ImportFromPath(src.Location, fqname)
}

// ImportPrefix imports the longest importable prefix of a dotted name and
// returns the rest of the name unresolved.
func (im *Importer) ImportPrefix(dotted string) (*Module, string, error) {
	parts := strings.Split(dotted, ".")
	for i := len(parts); i > 0; i-- {
		name := strings.Join(parts[:i], ".")
		if len(im.registry.ByName(name)) == 0 {
			continue
		}
		mod, err := im.Import(name)
		if err != nil {
			return nil, "", err
		}
		return mod, strings.Join(parts[i:], "."), nil
	}
	return nil, "", &ImportError{Name: dotted, Err: fmt.Errorf("no module named %s", parts[0])}
}

func (im *Importer) choose(fqname string) (*Source, error) {
	cands := im.registry.ByName(fqname)
	if len(cands) == 0 {
		return nil, &ImportError{Name: fqname, Err: fmt.Errorf("no module named %s", fqname)}
	}
	rel := filepath.Join(strings.Split(fqname, ".")...)
	for i := len(im.path) - 1; i >= 0; i-- {
		want := filepath.Join(im.path[i], rel)
		for _, c := range cands {
			if c.Location == want || strings.TrimSuffix(c.Location, filepath.Ext(c.Location)) == want {
				return c, nil
			}
		}
	}
	if len(cands) == 1 {
		return cands[0], nil
	}
	return nil, &ImportError{Name: fqname, Err: fmt.Errorf("%d modules named %s; none is on the search path", len(cands), fqname)}
}

func (im *Importer) importOne(name, loc string, parent *Module, needPackage bool) (*Module, error) {
	if mod, ok := im.modules[loc]; ok {
		return mod, nil
	}
	if err, ok := im.failed[loc]; ok {
		return nil, err
	}

	src, ok := im.registry.Lookup(loc)
	if !ok {
		err := &ImportError{Name: name, Location: loc, Err: fmt.Errorf("no module registered for %s", loc)}
		im.failed[loc] = err
		return nil, err
	}
	if needPackage && !src.Package {
		return nil, &ImportError{Name: name, Location: loc, Err: fmt.Errorf("%s is not a package", loc)}
	}
	if src.Name != name {
		im.log.Warn("module imported under a different name than registered", "registered", src.Name, "imported", name, "location", loc)
	}

	mod, err := im.build(name, src, parent)
	if err != nil {
		im.failed[loc] = err
		return nil, err
	}
	im.modules[loc] = mod
	if parent != nil {
		parent.children[name[strings.LastIndex(name, ".")+1:]] = mod
	}
	im.log.Debug("imported module", "module", name, "location", loc)
	return mod, nil
}

func (im *Importer) build(name string, src *Source, parent *Module) (mod *Module, err error) {
	mod = newModule(name, src.Location, src.Package, parent)
	b := &Builder{mod: mod}

	defer func() {
		if r := recover(); r != nil {
			mod = nil
			err = &ImportError{Name: name, Location: src.Location, Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
	}()

	if src.Build != nil {
		if err := src.Build(b); err != nil {
			return nil, &ImportError{Name: name, Location: src.Location, Err: err}
		}
	}
	if err := b.err(); err != nil {
		return nil, &ImportError{Name: name, Location: src.Location, Err: err}
	}
	return mod, nil
}

package address

import (
	"os"
	"path/filepath"
	"strings"
)

// Packages answers whether a directory is a package, i.e. has package-level
// fixtures registered for it.
type Packages interface {
	IsPackage(dir string) bool
}

// Resolver turns names into absolute addresses relative to a working directory.
type Resolver struct {
	WorkingDir string
	Suffixes   []string
	Packages   Packages
}

// NewResolver creates a new Resolver
func NewResolver(workingDir string, suffixes []string, pkgs Packages) *Resolver {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	return &Resolver{WorkingDir: workingDir, Suffixes: suffixes, Packages: pkgs}
}

// Resolve splits name and fills in whichever of filename and module can be
// derived from the other.
func (r *Resolver) Resolve(name string) (Address, error) {
	addr, err := Split(name, r.Suffixes)
	if err != nil {
		return Address{}, err
	}
	if addr.Filename != "" {
		if !filepath.IsAbs(addr.Filename) {
			addr.Filename = filepath.Join(r.WorkingDir, addr.Filename)
		}
		addr.Filename = filepath.Clean(addr.Filename)
		if addr.Module == "" {
			addr.Module = r.PackageName(addr.Filename)
		}
	} else if addr.Module != "" {
		addr.Filename = r.Filename(addr.Module)
	}
	return addr, nil
}

// PackageName returns the dotted module name of a source file or package
// directory, walking up while the parent directories are packages. It
// returns "" for paths that are neither.
func (r *Resolver) PackageName(path string) string {
	isPkg := r.isPackage(path)
	if !isPkg && !HasSuffix(path, r.Suffixes) {
		return ""
	}
	base := filepath.Base(path)
	if !isPkg {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	parts := []string{base}
	dir := filepath.Dir(path)
	for r.isPackage(dir) {
		parts = append([]string{filepath.Base(dir)}, parts...)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return strings.Join(parts, ".")
}

// Filename finds the source location of a dotted module name relative to
// the working directory: a package directory or a file with a source suffix.
func (r *Resolver) Filename(module string) string {
	path := filepath.Join(append([]string{r.WorkingDir}, strings.Split(module, ".")...)...)
	if r.isPackage(path) {
		return path
	}
	for _, suffix := range r.Suffixes {
		if _, err := os.Stat(path + suffix); err == nil {
			return path + suffix
		}
	}
	return ""
}

func (r *Resolver) isPackage(dir string) bool {
	return r.Packages != nil && r.Packages.IsPackage(dir)
}

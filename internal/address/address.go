// Package address parses and resolves test names of the form
// file_or_module:callable into Address values.
package address

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultSuffixes are the source-file suffixes recognized when no others are configured.
var DefaultSuffixes = []string{".go"}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Address identifies a test or test container. Any field may be empty, but
// not all of them. Address is comparable and can be used as a map key.
type Address struct {
	Filename string `json:"filename,omitempty"`
	Module   string `json:"module,omitempty"`
	Call     string `json:"call,omitempty"`
}

// IsZero reports whether no part of the address is set.
func (a Address) IsZero() bool {
	return a.Filename == "" && a.Module == "" && a.Call == ""
}

// String renders the address back into the name grammar. Filenames are
// preferred over module names since they resolve without a search path.
func (a Address) String() string {
	left := a.Filename
	if left == "" {
		left = a.Module
	}
	if a.Call == "" {
		return left
	}
	return left + ":" + a.Call
}

// WithCall returns a copy of the address pointing at call.
func (a Address) WithCall(call string) Address {
	a.Call = call
	return a
}

// AmbiguousError is returned for names whose single colon may be either a
// drive-letter separator or a file:callable separator.
type AmbiguousError struct {
	Name string
	Part string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("test name %q is ambiguous; can't tell if ':%s' refers to a module or callable", e.Name, e.Part)
}

// HasSuffix reports whether name ends in one of the source suffixes.
func HasSuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// FileLike reports whether name looks like a filesystem path rather than a
// dotted module name: it exists, has a directory part, ends in a source
// suffix, or its stem is not an identifier.
func FileLike(name string, suffixes []string) bool {
	if _, err := os.Stat(name); err == nil {
		return true
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return true
	}
	if HasSuffix(name, suffixes) {
		return true
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return !identRE.MatchString(stem)
}

// Split breaks a test name into its file, module and callable parts
// without touching the working directory.
func Split(name string, suffixes []string) (Address, error) {
	parts := strings.Split(name, ":")
	var left, call string
	switch {
	case len(parts) == 1:
		if FileLike(name, suffixes) {
			return Address{Filename: name}, nil
		}
		return Address{Module: name}, nil
	case len(parts) >= 3:
		left = strings.Join(parts[:len(parts)-1], ":")
		call = parts[len(parts)-1]
	default:
		left, call = parts[0], parts[1]
		if len(left) == 1 {
			if !FileLike(call, suffixes) {
				return Address{}, &AmbiguousError{Name: name, Part: call}
			}
			return Address{Filename: name}, nil
		}
	}

	if left == "" {
		return Address{Call: call}, nil
	}
	if FileLike(left, suffixes) {
		return Address{Filename: left, Call: call}, nil
	}
	return Address{Module: left, Call: call}, nil
}

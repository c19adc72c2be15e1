package loader

import "fmt"

// ResolutionError reports a name that does not map to anything loadable.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unresolvable test name %s", e.Name)
	}
	return fmt.Sprintf("cannot resolve %s: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// StructuralError reports an object that cannot be turned into a test.
type StructuralError struct {
	Object string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("can't make a test from %s: %s", e.Object, e.Reason)
}

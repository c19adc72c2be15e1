package suite

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// SkipError marks a test as skipped rather than failed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns an error that reports the running test as skipped.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// SkipNow skips the running test from anywhere in its call stack.
func SkipNow(reason string) {
	panic(&SkipError{Reason: reason})
}

// PanicError is a panic recovered while calling a test callable.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes panics raised with an error value.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// NotCallableError is returned when a value is not a function.
type NotCallableError struct {
	Value any
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("%v (%T) is not a function or method", e.Value, e.Value)
}

// IsCallable reports whether v is a function value.
func IsCallable(v any) bool {
	if rv, ok := v.(reflect.Value); ok {
		return rv.IsValid() && rv.Kind() == reflect.Func && !rv.IsNil()
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// Invoke calls fn with args. A leading context.Context parameter receives
// ctx; a trailing error result is returned; panics are recovered as
// *PanicError, except skips which come back as *SkipError.
func Invoke(ctx context.Context, fn any, args ...any) (err error) {
	v, ok := fn.(reflect.Value)
	if !ok {
		v = reflect.ValueOf(fn)
	}
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return &NotCallableError{Value: fn}
	}

	in, err := buildArgs(ctx, v.Type(), args)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			var skip *SkipError
			if e, ok := r.(error); ok && errors.As(e, &skip) {
				err = skip
				return
			}
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	out := v.Call(in)
	if n := len(out); n > 0 && out[n-1].Type() == errorType && !out[n-1].IsNil() {
		return out[n-1].Interface().(error)
	}
	return nil
}

func buildArgs(ctx context.Context, t reflect.Type, args []any) ([]reflect.Value, error) {
	var in []reflect.Value
	offset := 0
	if t.NumIn() > 0 && t.In(0) == contextType && (t.NumIn() == len(args)+1 || t.IsVariadic()) {
		in = append(in, reflect.ValueOf(ctx))
		offset = 1
	}

	want := t.NumIn() - offset
	if t.IsVariadic() {
		if len(args) < want-1 {
			return nil, fmt.Errorf("%s: expected at least %d arguments, got %d", t, want-1, len(args))
		}
	} else if len(args) != want {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", t, want, len(args))
	}

	for i, a := range args {
		var pt reflect.Type
		if t.IsVariadic() && i+offset >= t.NumIn()-1 {
			pt = t.In(t.NumIn() - 1).Elem()
		} else {
			pt = t.In(i + offset)
		}
		if a == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		av := reflect.ValueOf(a)
		if !av.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("%s: argument %d is %s, want %s", t, i, av.Type(), pt)
		}
		in = append(in, av)
	}
	return in, nil
}

// callNamed invokes the first method on inst whose name is in names.
func callNamed(ctx context.Context, inst any, names ...string) error {
	if inst == nil {
		return nil
	}
	v := reflect.ValueOf(inst)
	for _, name := range names {
		if m := v.MethodByName(name); m.IsValid() {
			return Invoke(ctx, m)
		}
	}
	return nil
}

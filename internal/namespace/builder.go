package namespace

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"

	"nosey/internal/suite"
)

// Yield is the callback a generator receives. Each call hands over one
// test: a callable (or the name of one) and the arguments to call it with.
// It returns false when the consumer wants no more tests.
type Yield = func(test any, args ...any) bool

var yieldType = reflect.TypeOf((Yield)(nil))

// fixtureMethods are never collected as tests.
var fixtureMethods = map[string]bool{
	"SetUp":    true,
	"Setup":    true,
	"TearDown": true,
	"Teardown": true,
}

// Option customizes a registered member.
type Option func(*memberOptions)

type memberOptions struct {
	name        string
	doc         string
	attrs       map[string]any
	methodAttrs map[string]map[string]any
	setup       func() error
	teardown    func() error
	line        int
}

// Doc attaches documentation; its first line is the short description.
func Doc(doc string) Option {
	return func(o *memberOptions) { o.doc = doc }
}

// Attr sets an attribute used by attribute selection.
func Attr(key string, value any) Option {
	return func(o *memberOptions) {
		if o.attrs == nil {
			o.attrs = map[string]any{}
		}
		o.attrs[key] = value
	}
}

// MethodAttr sets an attribute on a single method of a class.
func MethodAttr(method, key string, value any) Option {
	return func(o *memberOptions) {
		if o.methodAttrs == nil {
			o.methodAttrs = map[string]map[string]any{}
		}
		if o.methodAttrs[method] == nil {
			o.methodAttrs[method] = map[string]any{}
		}
		o.methodAttrs[method][key] = value
	}
}

// WithSetup attaches fixtures. For a function they wrap every call; for a
// class they run once around all of its tests.
func WithSetup(setup, teardown func() error) Option {
	return func(o *memberOptions) {
		o.setup = setup
		o.teardown = teardown
	}
}

// Named overrides the name a class is registered under.
func Named(name string) Option {
	return func(o *memberOptions) { o.name = name }
}

// Line overrides the source line used to order functions.
func Line(n int) Option {
	return func(o *memberOptions) { o.line = n }
}

func collect(opts []Option) memberOptions {
	var o memberOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Builder populates a Module while its source is imported.
type Builder struct {
	mod  *Module
	errs []error
}

// Module returns the module being built.
func (b *Builder) Module() *Module { return b.mod }

// Setup adds a module (or package) level setup function.
func (b *Builder) Setup(fn func() error) *Builder {
	b.mod.setups = append(b.mod.setups, fn)
	return b
}

// Teardown adds a module (or package) level teardown function.
func (b *Builder) Teardown(fn func() error) *Builder {
	b.mod.teardowns = append(b.mod.teardowns, fn)
	return b
}

// Func registers a function. Functions with the Yield signature are
// generators.
func (b *Builder) Func(name string, fn any, opts ...Option) *Function {
	return b.function(name, fn, false, opts)
}

// Helper registers a function that generators can refer to by name but
// that is never collected on its own.
func (b *Builder) Helper(name string, fn any, opts ...Option) *Function {
	return b.function(name, fn, true, opts)
}

func (b *Builder) function(name string, fn any, nested bool, opts []Option) *Function {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		b.errs = append(b.errs, fmt.Errorf("%s.%s: %T is not a function", b.mod.name, name, fn))
		return nil
	}
	o := collect(opts)
	file, line := funcLocation(v)
	if o.line > 0 {
		line = o.line
	}
	f := &Function{
		name:      name,
		module:    b.mod,
		fn:        v,
		file:      file,
		line:      line,
		generator: isGenerator(v.Type(), 0),
		nested:    nested,
		setup:     o.setup,
		teardown:  o.teardown,
		attrs:     o.attrs,
		doc:       o.doc,
	}
	if err := b.mod.add(name, f); err != nil {
		b.errs = append(b.errs, err)
	}
	return f
}

// Class registers a struct type given a sample value (or pointer) of it.
func (b *Builder) Class(sample any, opts ...Option) *Class {
	t := reflect.TypeOf(sample)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		b.errs = append(b.errs, fmt.Errorf("%s: %T is not a struct type", b.mod.name, sample))
		return nil
	}
	o := collect(opts)
	name := o.name
	if name == "" {
		name = t.Name()
	}
	c := &Class{
		name:        name,
		module:      b.mod,
		typ:         t,
		attrs:       o.attrs,
		methodAttrs: o.methodAttrs,
		doc:         o.doc,
		line:        o.line,
	}
	if o.setup != nil {
		c.setups = append(c.setups, o.setup)
	}
	if o.teardown != nil {
		c.teardowns = append(c.teardowns, o.teardown)
	}
	c.methods = classMethods(c)
	if err := b.mod.add(name, c); err != nil {
		b.errs = append(b.errs, err)
	}
	return c
}

// Test registers an already runnable test.
func (b *Builder) Test(name string, t suite.Test) *TestValue {
	tv := &TestValue{name: name, module: b.mod, test: t}
	if err := b.mod.add(name, tv); err != nil {
		b.errs = append(b.errs, err)
	}
	return tv
}

func (b *Builder) err() error {
	return errors.Join(b.errs...)
}

func classMethods(c *Class) []*Method {
	inherited := suite.CaseMethods()
	pt := reflect.PointerTo(c.typ)
	var methods []*Method
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if fixtureMethods[m.Name] || inherited[m.Name] {
			continue
		}
		methods = append(methods, &Method{
			class:     c,
			name:      m.Name,
			generator: isGenerator(m.Type, 1),
		})
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].name < methods[j].name })
	return methods
}

// isGenerator reports whether a function type (with skip leading receiver
// parameters) takes a Yield and returns nothing.
func isGenerator(t reflect.Type, skip int) bool {
	return t.NumIn() == skip+1 && t.NumOut() == 0 && t.In(skip) == yieldType
}

func funcLocation(v reflect.Value) (string, int) {
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "", 0
	}
	return fn.FileLine(fn.Entry())
}

// Package namespace is the in-process module system tests are collected
// from. Test code registers sources; importing a source builds a Module
// whose members are classes, functions and prebuilt tests.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"nosey/internal/address"
	"nosey/internal/suite"
)

// Kind tags the variants of Object.
type Kind int

const (
	KindModule Kind = iota
	KindClass
	KindFunction
	KindMethod
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindTest:
		return "test"
	default:
		return "unknown"
	}
}

// Object is anything a test address can resolve to.
type Object interface {
	Kind() Kind
	Name() string
	Address() address.Address
}

// Attributed is implemented by objects carrying user attributes.
type Attributed interface {
	Attr(key string) (any, bool)
}

// Module is an imported source: a file module or a package directory.
type Module struct {
	name      string
	location  string
	pkg       bool
	parent    *Module
	setups    []func() error
	teardowns []func() error
	members   []Object
	byName    map[string]Object
	children  map[string]*Module
}

func newModule(name, location string, pkg bool, parent *Module) *Module {
	return &Module{
		name:     name,
		location: location,
		pkg:      pkg,
		parent:   parent,
		byName:   map[string]Object{},
		children: map[string]*Module{},
	}
}

func (m *Module) Kind() Kind { return KindModule }

// Name returns the dotted module name.
func (m *Module) Name() string { return m.name }

// Location returns the module file, or the directory of a package.
func (m *Module) Location() string { return m.location }

func (m *Module) IsPackage() bool { return m.pkg }

func (m *Module) Parent() *Module { return m.parent }

// Paths lists the directories whose contents belong to this module.
func (m *Module) Paths() []string {
	if !m.pkg {
		return nil
	}
	return []string{m.location}
}

// Members returns classes, functions and tests in registration order.
func (m *Module) Members() []Object { return m.members }

// Classes returns the classes of the module sorted by name.
func (m *Module) Classes() []*Class {
	var out []*Class
	for _, o := range m.members {
		if c, ok := o.(*Class); ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Functions returns the collectable functions sorted by source line.
func (m *Module) Functions() []*Function {
	var out []*Function
	for _, o := range m.members {
		if f, ok := o.(*Function); ok && !f.nested {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].line != out[j].line {
			return out[i].line < out[j].line
		}
		return out[i].name < out[j].name
	})
	return out
}

// Tests returns the prebuilt tests of the module in registration order.
func (m *Module) Tests() []*TestValue {
	var out []*TestValue
	for _, o := range m.members {
		if t, ok := o.(*TestValue); ok {
			out = append(out, t)
		}
	}
	return out
}

// Lookup finds a member or an imported submodule by simple name.
func (m *Module) Lookup(name string) (Object, bool) {
	if o, ok := m.byName[name]; ok {
		return o, true
	}
	if c, ok := m.children[name]; ok {
		return c, true
	}
	return nil, false
}

func (m *Module) Address() address.Address {
	return address.Address{Filename: m.location, Module: m.name}
}

// Setup runs the module fixtures in registration order.
func (m *Module) Setup(ctx context.Context) error {
	for _, fn := range m.setups {
		if err := suite.Invoke(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

// Teardown runs the module teardowns in reverse registration order.
func (m *Module) Teardown(ctx context.Context) error {
	var errs []error
	for i := len(m.teardowns) - 1; i >= 0; i-- {
		if err := suite.Invoke(ctx, m.teardowns[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Module) String() string { return m.name }

func (m *Module) add(name string, o Object) error {
	if _, dup := m.byName[name]; dup {
		return fmt.Errorf("%s: duplicate member %s", m.name, name)
	}
	m.byName[name] = o
	m.members = append(m.members, o)
	return nil
}

// Class is a struct type whose exported methods may be tests.
type Class struct {
	name        string
	module      *Module
	typ         reflect.Type
	setups      []func() error
	teardowns   []func() error
	attrs       map[string]any
	methodAttrs map[string]map[string]any
	doc         string
	line        int
	methods     []*Method
}

func (c *Class) Kind() Kind { return KindClass }

func (c *Class) Name() string { return c.name }

func (c *Class) Module() *Module { return c.module }

// Type returns the struct type of the class.
func (c *Class) Type() reflect.Type { return c.typ }

// New returns a pointer to a fresh zero instance.
func (c *Class) New() any { return reflect.New(c.typ).Interface() }

// IsTestCase reports whether the class follows the test-case contract.
func (c *Class) IsTestCase() bool { return suite.IsTestCase(c.typ) }

// Methods returns the exported methods of the class sorted by name, minus
// fixtures and the methods every test case inherits.
func (c *Class) Methods() []*Method { return c.methods }

// Method finds a method by name.
func (c *Class) Method(name string) (*Method, bool) {
	for _, m := range c.methods {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

func (c *Class) Doc() string { return c.doc }

func (c *Class) Attr(key string) (any, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

func (c *Class) Address() address.Address {
	a := c.module.Address()
	a.Call = c.name
	return a
}

func (c *Class) Setup(ctx context.Context) error {
	for _, fn := range c.setups {
		if err := suite.Invoke(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Class) Teardown(ctx context.Context) error {
	var errs []error
	for i := len(c.teardowns) - 1; i >= 0; i-- {
		if err := suite.Invoke(ctx, c.teardowns[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Class) String() string { return c.module.name + "." + c.name }

// Method is one exported method of a Class.
type Method struct {
	class     *Class
	name      string
	generator bool
}

func (m *Method) Kind() Kind { return KindMethod }

func (m *Method) Name() string { return m.name }

func (m *Method) Class() *Class { return m.class }

// IsGenerator reports whether the method yields tests instead of being one.
func (m *Method) IsGenerator() bool { return m.generator }

// Bind returns the method bound to inst.
func (m *Method) Bind(inst any) reflect.Value {
	return reflect.ValueOf(inst).MethodByName(m.name)
}

// Attr looks up a method attribute, falling back to the class.
func (m *Method) Attr(key string) (any, bool) {
	if v, ok := m.OwnAttr(key); ok {
		return v, true
	}
	return m.class.Attr(key)
}

// OwnAttr looks up an attribute set on the method itself.
func (m *Method) OwnAttr(key string) (any, bool) {
	v, ok := m.class.methodAttrs[m.name][key]
	return v, ok
}

func (m *Method) Address() address.Address {
	a := m.class.module.Address()
	a.Call = m.class.name + "." + m.name
	return a
}

func (m *Method) String() string { return m.class.String() + "." + m.name }

// Function is a registered test function, generator or helper.
type Function struct {
	name      string
	module    *Module
	fn        reflect.Value
	file      string
	line      int
	generator bool
	nested    bool
	setup     func() error
	teardown  func() error
	attrs     map[string]any
	doc       string
}

func (f *Function) Kind() Kind { return KindFunction }

func (f *Function) Name() string { return f.name }

func (f *Function) Module() *Module { return f.module }

// Value returns the function value.
func (f *Function) Value() reflect.Value { return f.fn }

// Line returns the source line the function is defined on.
func (f *Function) Line() int { return f.line }

// File returns the source file the function is defined in.
func (f *Function) File() string { return f.file }

func (f *Function) IsGenerator() bool { return f.generator }

// IsNested reports whether the function is a helper that is never collected.
func (f *Function) IsNested() bool { return f.nested }

// Fixtures returns the per-call setup and teardown, if any.
func (f *Function) Fixtures() (setup, teardown func() error) { return f.setup, f.teardown }

func (f *Function) Doc() string { return f.doc }

func (f *Function) Attr(key string) (any, bool) {
	v, ok := f.attrs[key]
	return v, ok
}

func (f *Function) Address() address.Address {
	a := f.module.Address()
	a.Call = f.name
	return a
}

func (f *Function) String() string { return f.module.name + "." + f.name }

// TestValue is a module member that is already runnable.
type TestValue struct {
	name   string
	module *Module
	test   suite.Test
}

func (t *TestValue) Kind() Kind { return KindTest }

func (t *TestValue) Name() string { return t.name }

// Test returns the runnable value.
func (t *TestValue) Test() suite.Test { return t.test }

func (t *TestValue) Address() address.Address {
	a := t.module.Address()
	a.Call = t.name
	return a
}

// ResolveIn walks a dotted name starting at obj and returns the object it
// names together with the object it was found in.
func ResolveIn(obj Object, dotted string) (parent, found Object, err error) {
	found = obj
	for _, part := range strings.Split(dotted, ".") {
		parent = found
		var ok bool
		switch o := found.(type) {
		case *Module:
			found, ok = o.Lookup(part)
		case *Class:
			var m *Method
			m, ok = o.Method(part)
			found = m
		}
		if !ok {
			return nil, nil, fmt.Errorf("no such test %s in %s", dotted, obj.Name())
		}
	}
	return parent, found, nil
}

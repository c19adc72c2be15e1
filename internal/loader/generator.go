package loader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"

	"nosey/internal/address"
	"nosey/internal/namespace"
	"nosey/internal/suite"
)

// generatorFunction returns a lazy suite with one test per value the
// generator yields. Yielded names are looked up in the generator's module.
func (l *Loader) generatorFunction(f *namespace.Function) suite.Test {
	mod := f.Module()
	return l.factory.Lazy(nil, func(ctx context.Context) iter.Seq[suite.Test] {
		return l.expand(ctx, f.Value(), f.Address(), func(test any, args []any) suite.Test {
			target := test
			if name, ok := test.(string); ok {
				o, found := mod.Lookup(name)
				fn, isFunc := o.(*namespace.Function)
				if !found || !isFunc {
					return l.failure(&StructuralError{Object: name, Reason: fmt.Sprintf("no function %s in %s", name, mod.Name())}, f.Address())
				}
				target = fn.Value()
			}
			if !suite.IsCallable(target) {
				return l.failure(&StructuralError{Object: fmt.Sprint(test), Reason: "not a function or method"}, f.Address())
			}
			return &suite.FunctionCase{
				Name: f.String(),
				Addr: f.Address(),
				Fn:   target,
				Args: args,
				Doc:  f.Doc(),
			}
		})
	})
}

// generatorMethod is generatorFunction for methods. The generator runs on
// one instance, which yielded callables share; yielded names are methods
// run on fresh instances.
func (l *Loader) generatorMethod(m *namespace.Method) suite.Test {
	cls := m.Class()
	return l.factory.Lazy(nil, func(ctx context.Context) iter.Seq[suite.Test] {
		inst := cls.New()
		return l.expand(ctx, m.Bind(inst), m.Address(), func(test any, args []any) suite.Test {
			if name, ok := test.(string); ok {
				if _, found := cls.Method(name); !found {
					return l.failure(&StructuralError{Object: name, Reason: fmt.Sprintf("no method %s in %s", name, cls.String())}, m.Address())
				}
				return &suite.MethodCase{
					Class:  cls.String(),
					Method: name,
					Addr:   m.Address(),
					New:    cls.New,
					Args:   args,
				}
			}
			if !suite.IsCallable(test) {
				return l.failure(&StructuralError{Object: fmt.Sprint(test), Reason: "not a function or method"}, m.Address())
			}
			return &suite.MethodCase{
				Class:    cls.String(),
				Method:   m.Name(),
				Addr:     m.Address(),
				Instance: inst,
				Target:   test,
				Args:     args,
			}
		})
	})
}

// expand calls gen with a Yield that turns every yielded value into a test
// and hands it to the consumer. A value that cannot become a test ends the
// generator after its failure is handed on. An error or panic of the
// generator itself becomes a failure; a panic raised by the consumer is
// re-raised.
func (l *Loader) expand(ctx context.Context, gen reflect.Value, addr address.Address, build func(test any, args []any) suite.Test) iter.Seq[suite.Test] {
	return func(yield func(suite.Test) bool) {
		stopped := false
		inConsumer := false
		cb := namespace.Yield(func(test any, args ...any) bool {
			if stopped || ctx.Err() != nil {
				return false
			}
			t := build(test, args)
			_, bad := t.(*suite.Failure)
			inConsumer = true
			more := yield(t)
			inConsumer = false
			if !more || bad {
				stopped = true
			}
			return !stopped && ctx.Err() == nil
		})

		err := suite.Invoke(ctx, gen, cb)
		if inConsumer {
			var p *suite.PanicError
			if errors.As(err, &p) {
				panic(p.Value)
			}
		}
		if err != nil && !stopped && ctx.Err() == nil {
			yield(l.failure(err, addr))
		}
	}
}

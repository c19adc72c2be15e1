package suite

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"nosey/internal/address"
)

// Producer lazily generates the members of a suite.
type Producer func(ctx context.Context) iter.Seq[Test]

// ContextObserver is told when a context's fixtures are entered and left.
type ContextObserver interface {
	StartContext(c Context)
	StopContext(c Context)
}

// SetupError is reported for every test under a context whose setup failed.
type SetupError struct {
	Context string
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup of %s failed: %v", e.Context, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// TeardownError is reported against a suite whose context failed to tear down.
type TeardownError struct {
	Context string
	Err     error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown of %s failed: %v", e.Context, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }

type fixtureState int

const (
	statePending fixtureState = iota
	stateSetUp
	stateTornDown
)

type fixture struct {
	context Context
	state   fixtureState
	err     error
	suites  int
	done    int
}

// Factory builds context suites and owns the fixture state of every
// context for one run, so suites sharing a context share its setup.
type Factory struct {
	observer ContextObserver
	fixtures map[Context]*fixture
	order    []*fixture
}

// NewFactory creates a new Factory
func NewFactory(observer ContextObserver) *Factory {
	return &Factory{observer: observer, fixtures: map[Context]*fixture{}}
}

// Suite returns an eager, re-iterable suite over tests.
func (f *Factory) Suite(c Context, tests ...Test) *ContextSuite {
	return &ContextSuite{factory: f, context: c, tests: tests, fixture: f.register(c)}
}

// Lazy returns a single-pass suite whose members are produced on demand.
func (f *Factory) Lazy(c Context, produce Producer) *ContextSuite {
	return &ContextSuite{factory: f, context: c, produce: produce, lazy: true, fixture: f.register(c)}
}

func (f *Factory) register(c Context) *fixture {
	if c == nil {
		return nil
	}
	fx, ok := f.fixtures[c]
	if !ok {
		fx = &fixture{context: c}
		f.fixtures[c] = fx
	}
	fx.suites++
	return fx
}

func (f *Factory) setUp(ctx context.Context, fx *fixture) error {
	if fx.state == stateSetUp {
		return fx.err
	}
	if f.observer != nil {
		f.observer.StartContext(fx.context)
	}
	fx.err = fx.context.Setup(ctx)
	fx.state = stateSetUp
	f.order = append(f.order, fx)
	return fx.err
}

func (f *Factory) tearDown(ctx context.Context, fx *fixture) error {
	if fx.state != stateSetUp {
		return nil
	}
	err := fx.context.Teardown(ctx)
	fx.state = stateTornDown
	fx.suites, fx.done = 0, 0
	if i := slices.Index(f.order, fx); i >= 0 {
		f.order = slices.Delete(f.order, i, i+1)
	}
	if f.observer != nil {
		f.observer.StopContext(fx.context)
	}
	return err
}

// Close tears down every context still set up, innermost first. It covers
// suites that were built but never ran because the run stopped early.
func (f *Factory) Close(ctx context.Context) error {
	var errs []error
	for len(f.order) > 0 {
		fx := f.order[len(f.order)-1]
		if err := f.tearDown(ctx, fx); err != nil {
			errs = append(errs, &TeardownError{Context: fx.context.String(), Err: err})
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ContextSuite runs its members inside the fixtures of its context.
// Setup happens once, before the first member runs; teardown happens after
// the last suite sharing the context has finished.
type ContextSuite struct {
	factory *Factory
	context Context
	tests   []Test
	produce Producer
	lazy    bool
	drained bool
	ran     bool
	fixture *fixture
}

// Context returns the fixture owner, or nil.
func (s *ContextSuite) Context() Context { return s.context }

// Lazy reports whether the suite is single-pass.
func (s *ContextSuite) Lazy() bool { return s.lazy }

// Children yields the members of the suite. A lazy suite yields its
// members only once.
func (s *ContextSuite) Children(ctx context.Context) iter.Seq[Test] {
	if !s.lazy {
		return slices.Values(s.tests)
	}
	if s.drained {
		return func(func(Test) bool) {}
	}
	s.drained = true
	return s.produce(ctx)
}

// Run sets up the context, runs every member, and tears the context down.
func (s *ContextSuite) Run(ctx context.Context, result Result) error {
	first := !s.ran
	s.ran = true
	fx := s.fixture
	if !first || fx == nil {
		return s.runTests(ctx, result)
	}

	if err := s.factory.setUp(ctx, fx); err != nil {
		s.failAll(ctx, result, err)
		s.finish(ctx, result)
		return ctx.Err()
	}
	err := s.runTests(ctx, result)
	s.finish(ctx, result)
	return err
}

func (s *ContextSuite) runTests(ctx context.Context, result Result) error {
	for t := range s.Children(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if result.ShouldStop() {
			break
		}
		if err := t.Run(ctx, result); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *ContextSuite) failAll(ctx context.Context, result Result, cause error) {
	err := &SetupError{Context: s.context.String(), Err: cause}
	count := 0
	for t := range Leaves(ctx, s) {
		count++
		result.StartTest(t)
		result.AddError(t, err)
		result.StopTest(t)
	}
	if count == 0 {
		result.StartTest(s)
		result.AddError(s, err)
		result.StopTest(s)
	}
}

func (s *ContextSuite) finish(ctx context.Context, result Result) {
	fx := s.fixture
	fx.done++
	if fx.done < fx.suites {
		return
	}
	if err := s.factory.tearDown(ctx, fx); err != nil {
		result.AddError(s, &TeardownError{Context: s.context.String(), Err: err})
	}
}

// Address returns the address of the context, if it has one.
func (s *ContextSuite) Address() address.Address {
	if a, ok := s.context.(interface{ Address() address.Address }); ok {
		return a.Address()
	}
	return address.Address{}
}

func (s *ContextSuite) String() string {
	if s.context == nil {
		return "suite"
	}
	return "suite(" + s.context.String() + ")"
}

// ShortDescription is empty for suites.
func (s *ContextSuite) ShortDescription() string { return "" }

package suite

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"nosey/internal/address"
)

// Case is embedded by struct types that follow the test-case contract.
// Every test method runs on its own instance, which knows the method name.
type Case struct {
	method string
}

// MethodName returns the name of the test method this instance was created for.
func (c *Case) MethodName() string {
	return c.method
}

func (c *Case) testCase() *Case {
	return c
}

// TestCase is satisfied by any type embedding Case.
type TestCase interface {
	testCase() *Case
}

var testCaseType = reflect.TypeOf((*TestCase)(nil)).Elem()

// IsTestCase reports whether values of t (or *t) follow the test-case contract.
func IsTestCase(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return t.Implements(testCaseType) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(testCaseType))
}

// CaseMethods lists the methods every Case embedder gets for free.
func CaseMethods() map[string]bool {
	names := map[string]bool{}
	t := reflect.TypeOf(&Case{})
	for i := 0; i < t.NumMethod(); i++ {
		names[t.Method(i).Name] = true
	}
	return names
}

// FunctionCase runs a plain function as a test.
type FunctionCase struct {
	Name     string
	Addr     address.Address
	Fn       any
	Args     []any
	SetUp    func() error
	TearDown func() error
	Doc      string
}

// Run executes the function between its optional fixtures.
func (c *FunctionCase) Run(ctx context.Context, result Result) error {
	return runCase(ctx, c, result,
		func(ctx context.Context) error { return callFixture(ctx, c.SetUp) },
		func(ctx context.Context) error { return Invoke(ctx, c.Fn, c.Args...) },
		func(ctx context.Context) error { return callFixture(ctx, c.TearDown) },
	)
}

// Address returns the address of the function (or of its generator).
func (c *FunctionCase) Address() address.Address { return c.Addr }

func (c *FunctionCase) String() string {
	return c.Name + formatArgs(c.Args)
}

// ShortDescription returns the first line of the documentation, if any.
func (c *FunctionCase) ShortDescription() string { return firstLine(c.Doc) }

// MethodCase runs one method of a class on a fresh instance. Generated
// cases share the generator's instance and may run a yielded callable
// instead of a named method.
type MethodCase struct {
	Class    string
	Method   string
	Addr     address.Address
	New      func() any
	Instance any
	Target   any
	Args     []any
	Doc      string
}

// Run creates the instance, runs its SetUp, the method, and its TearDown.
func (c *MethodCase) Run(ctx context.Context, result Result) error {
	inst := c.Instance
	if inst == nil && c.New != nil {
		inst = c.New()
	}
	if tc, ok := inst.(TestCase); ok {
		tc.testCase().method = c.Method
	}

	return runCase(ctx, c, result,
		func(ctx context.Context) error { return callNamed(ctx, inst, "SetUp", "Setup") },
		func(ctx context.Context) error {
			target := c.Target
			if target == nil {
				m := reflect.ValueOf(inst).MethodByName(c.Method)
				if !m.IsValid() {
					return fmt.Errorf("%s has no method %s", c.Class, c.Method)
				}
				target = m
			}
			return Invoke(ctx, target, c.Args...)
		},
		func(ctx context.Context) error { return callNamed(ctx, inst, "TearDown", "Teardown") },
	)
}

// Address returns the address of the method.
func (c *MethodCase) Address() address.Address { return c.Addr }

func (c *MethodCase) String() string {
	return c.Class + "." + c.Method + formatArgs(c.Args)
}

// ShortDescription returns the first line of the documentation, if any.
func (c *MethodCase) ShortDescription() string { return firstLine(c.Doc) }

// runCase is the execution contract shared by all cases: setUp, body,
// tearDown, with the outcome classified into the result.
func runCase(ctx context.Context, t Test, result Result, setUp, body, tearDown func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result.StartTest(t)
	defer result.StopTest(t)

	if err := setUp(ctx); err != nil {
		var skip *SkipError
		if errors.As(err, &skip) {
			result.AddSkip(t, skip.Reason)
		} else {
			result.AddError(t, err)
		}
		return nil
	}

	passed := true
	if err := body(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			_ = tearDown(ctx)
			return ctxErr
		}
		passed = false
		var skip *SkipError
		var panicked *PanicError
		switch {
		case errors.As(err, &skip):
			result.AddSkip(t, skip.Reason)
		case errors.As(err, &panicked):
			result.AddError(t, err)
		default:
			result.AddFailure(t, err)
		}
	}

	if err := tearDown(ctx); err != nil {
		passed = false
		result.AddError(t, err)
	}
	if passed {
		result.AddSuccess(t)
	}
	return nil
}

func callFixture(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	return Invoke(ctx, fn)
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok {
			parts[i] = fmt.Sprintf("%q", s)
			continue
		}
		parts[i] = fmt.Sprint(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func firstLine(doc string) string {
	doc = strings.TrimSpace(doc)
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		return strings.TrimSpace(doc[:i])
	}
	return doc
}

package suite

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nosey/internal/address"
)

type recordingContext struct {
	name     string
	log      *[]string
	setupErr error
}

func (c *recordingContext) Setup(ctx context.Context) error {
	*c.log = append(*c.log, "setup "+c.name)
	return c.setupErr
}

func (c *recordingContext) Teardown(ctx context.Context) error {
	*c.log = append(*c.log, "teardown "+c.name)
	return nil
}

func (c *recordingContext) String() string { return c.name }

func recordingCase(name string, log *[]string) *FunctionCase {
	return &FunctionCase{
		Name: name,
		Addr: address.Address{Module: "m", Call: name},
		Fn:   func() { *log = append(*log, "run "+name) },
	}
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()

	t.Run("plain function", func(t *testing.T) {
		called := false
		require.NoError(t, Invoke(ctx, func() { called = true }))
		assert.True(t, called)
	})

	t.Run("returned error", func(t *testing.T) {
		err := Invoke(ctx, func() error { return errors.New("nope") })
		assert.EqualError(t, err, "nope")
	})

	t.Run("context and arguments", func(t *testing.T) {
		var got int
		err := Invoke(ctx, func(c context.Context, a, b int) { got = a + b }, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, 5, got)
	})

	t.Run("variadic", func(t *testing.T) {
		var got []string
		require.NoError(t, Invoke(ctx, func(s ...string) { got = s }, "a", "b"))
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("panic", func(t *testing.T) {
		err := Invoke(ctx, func() { panic("kaboom") })
		var p *PanicError
		require.ErrorAs(t, err, &p)
		assert.Equal(t, "kaboom", p.Value)
	})

	t.Run("skip", func(t *testing.T) {
		err := Invoke(ctx, func() { SkipNow("later") })
		var s *SkipError
		require.ErrorAs(t, err, &s)
		assert.Equal(t, "later", s.Reason)
	})

	t.Run("not callable", func(t *testing.T) {
		var nc *NotCallableError
		assert.ErrorAs(t, Invoke(ctx, 42), &nc)
	})

	t.Run("wrong arity", func(t *testing.T) {
		assert.Error(t, Invoke(ctx, func(a int) {}))
	})
}

func TestFunctionCase_Outcomes(t *testing.T) {
	ctx := context.Background()
	res := NewResults(false)

	cases := []Test{
		&FunctionCase{Name: "pass", Fn: func() {}},
		&FunctionCase{Name: "fail", Fn: func() error { return errors.New("wrong") }},
		&FunctionCase{Name: "error", Fn: func() { panic("bug") }},
		&FunctionCase{Name: "skip", Fn: func() error { return Skip("not today") }},
		&FunctionCase{Name: "setup", Fn: func() {}, SetUp: func() error { return errors.New("no db") }},
	}
	for _, c := range cases {
		require.NoError(t, c.Run(ctx, res))
	}

	assert.Equal(t, 5, res.TestsRun)
	assert.Equal(t, 1, res.Successes)
	assert.Len(t, res.Failures, 1)
	assert.Len(t, res.Errors, 2)
	assert.Len(t, res.Skips, 1)
	assert.False(t, res.WasSuccessful())
}

func TestFunctionCase_String(t *testing.T) {
	c := &FunctionCase{Name: "calc.test_gen", Args: []any{1, "x"}}
	assert.Equal(t, `calc.test_gen(1, "x")`, c.String())
}

type sample struct {
	Case
	log *[]string
}

func (s *sample) SetUp()    { *s.log = append(*s.log, "setup") }
func (s *sample) TearDown() { *s.log = append(*s.log, "teardown") }
func (s *sample) TestOne()  { *s.log = append(*s.log, "one:"+s.MethodName()) }

func TestMethodCase_Run(t *testing.T) {
	var log []string
	c := &MethodCase{
		Class:  "m.sample",
		Method: "TestOne",
		New:    func() any { return &sample{log: &log} },
	}
	res := NewResults(false)
	require.NoError(t, c.Run(context.Background(), res))

	assert.Equal(t, []string{"setup", "one:TestOne", "teardown"}, log)
	assert.Equal(t, 1, res.Successes)
	assert.True(t, IsTestCase(reflect.TypeOf(sample{})))
}

func TestContextSuite_SetupOnce(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	c := &recordingContext{name: "mod", log: &log}
	s := f.Suite(c, recordingCase("a", &log), recordingCase("b", &log))

	res := NewResults(false)
	require.NoError(t, s.Run(context.Background(), res))
	require.NoError(t, s.Run(context.Background(), res))

	assert.Equal(t, []string{"setup mod", "run a", "run b", "teardown mod", "run a", "run b"}, log)
}

func TestContextSuite_EmptySuiteStillSetsUpOnce(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	s := f.Suite(&recordingContext{name: "mod", log: &log})

	require.NoError(t, s.Run(context.Background(), NewResults(false)))
	assert.Equal(t, []string{"setup mod", "teardown mod"}, log)
}

func TestContextSuite_SetupFailure(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	c := &recordingContext{name: "mod", log: &log, setupErr: errors.New("db down")}
	s := f.Suite(c, recordingCase("a", &log), recordingCase("b", &log), recordingCase("c", &log))

	res := NewResults(false)
	require.NoError(t, s.Run(context.Background(), res))

	assert.Equal(t, []string{"setup mod", "teardown mod"}, log)
	require.Len(t, res.Errors, 3)
	for _, rec := range res.Errors {
		var se *SetupError
		require.ErrorAs(t, rec.Err, &se)
		assert.EqualError(t, se.Err, "db down")
	}
}

func TestContextSuite_NestedOrder(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	outer := &recordingContext{name: "pkg", log: &log}
	inner := &recordingContext{name: "mod", log: &log}
	s := f.Suite(outer, f.Suite(inner, recordingCase("a", &log)))

	require.NoError(t, s.Run(context.Background(), NewResults(false)))
	assert.Equal(t, []string{"setup pkg", "setup mod", "run a", "teardown mod", "teardown pkg"}, log)
}

func TestContextSuite_SharedContext(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	c := &recordingContext{name: "cls", log: &log}
	first := f.Suite(c, recordingCase("a", &log))
	second := f.Suite(c, recordingCase("b", &log))
	s := f.Suite(nil, first, second)

	require.NoError(t, s.Run(context.Background(), NewResults(false)))
	assert.Equal(t, []string{"setup cls", "run a", "run b", "teardown cls"}, log)
}

func TestContextSuite_LazyIsSinglePass(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	produced := 0
	s := f.Lazy(nil, func(ctx context.Context) iter.Seq[Test] {
		return func(yield func(Test) bool) {
			for _, name := range []string{"a", "b"} {
				produced++
				if !yield(recordingCase(name, &log)) {
					return
				}
			}
		}
	})

	res := NewResults(false)
	require.NoError(t, s.Run(context.Background(), res))
	require.NoError(t, s.Run(context.Background(), res))

	assert.Equal(t, 2, produced)
	assert.Equal(t, []string{"run a", "run b"}, log)
	assert.True(t, s.Lazy())
}

func TestContextSuite_StopsOnFailure(t *testing.T) {
	f := NewFactory(nil)
	ran := 0
	s := f.Suite(nil,
		&FunctionCase{Name: "a", Fn: func() error { ran++; return errors.New("x") }},
		&FunctionCase{Name: "b", Fn: func() { ran++ }},
	)
	require.NoError(t, s.Run(context.Background(), NewResults(true)))
	assert.Equal(t, 1, ran)
}

func TestContextSuite_Interrupted(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	ctx, cancel := context.WithCancel(context.Background())
	s := f.Suite(&recordingContext{name: "mod", log: &log},
		&FunctionCase{Name: "a", Fn: func() { cancel() }},
		recordingCase("b", &log),
	)

	err := s.Run(ctx, NewResults(false))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"setup mod", "teardown mod"}, log)
}

func TestFactory_CloseTearsDownLeftovers(t *testing.T) {
	var log []string
	f := NewFactory(nil)
	c := &recordingContext{name: "cls", log: &log}
	first := f.Suite(c, recordingCase("a", &log))
	_ = f.Suite(c, recordingCase("b", &log))

	require.NoError(t, first.Run(context.Background(), NewResults(false)))
	assert.Equal(t, []string{"setup cls", "run a"}, log)

	require.NoError(t, f.Close(context.Background()))
	assert.Equal(t, []string{"setup cls", "run a", "teardown cls"}, log)
}

func TestFailure_Run(t *testing.T) {
	res := NewResults(false)
	f := NewFailure(errors.New("import failed"), address.Address{Module: "broken"})
	require.NoError(t, f.Run(context.Background(), res))
	assert.Equal(t, 1, res.TestsRun)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, f.String(), "broken")
}

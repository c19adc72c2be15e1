// Package suite holds the runnable side of the test tree: cases, failures,
// context suites with their fixtures, and the result contract they report to.
package suite

import (
	"context"
	"iter"

	"nosey/internal/address"
)

// Test is anything that can be run against a Result. Run returns an error
// only when the run was interrupted; test outcomes go to the Result.
type Test interface {
	Run(ctx context.Context, result Result) error
	Address() address.Address
	String() string
	ShortDescription() string
}

// Suite is a Test composed of other tests.
type Suite interface {
	Test
	Children(ctx context.Context) iter.Seq[Test]
}

// Context is the fixture owner of a suite: a module, package or class.
type Context interface {
	Setup(ctx context.Context) error
	Teardown(ctx context.Context) error
	String() string
}

// Result receives the outcome of every test as it runs.
type Result interface {
	StartTest(t Test)
	StopTest(t Test)
	AddSuccess(t Test)
	AddFailure(t Test, err error)
	AddError(t Test, err error)
	AddSkip(t Test, reason string)
	ShouldStop() bool
}

// Leaves walks t depth first and yields every non-suite test without
// running any fixtures.
func Leaves(ctx context.Context, t Test) iter.Seq[Test] {
	return func(yield func(Test) bool) {
		walkLeaves(ctx, t, yield)
	}
}

func walkLeaves(ctx context.Context, t Test, yield func(Test) bool) bool {
	s, ok := t.(Suite)
	if !ok {
		return yield(t)
	}
	for child := range s.Children(ctx) {
		if ctx.Err() != nil {
			return false
		}
		if !walkLeaves(ctx, child, yield) {
			return false
		}
	}
	return true
}

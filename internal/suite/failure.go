package suite

import (
	"context"
	"fmt"

	"nosey/internal/address"
)

// Failure stands in for a test that could not be collected. Running it
// reports its error, so collection problems are counted like any other error.
type Failure struct {
	Err  error
	Addr address.Address
}

// NewFailure creates a new Failure for err at addr.
func NewFailure(err error, addr address.Address) *Failure {
	return &Failure{Err: err, Addr: addr}
}

// Run reports the collection error.
func (f *Failure) Run(ctx context.Context, result Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result.StartTest(f)
	result.AddError(f, f.Err)
	result.StopTest(f)
	return nil
}

// Address returns the address that failed to load, if known.
func (f *Failure) Address() address.Address { return f.Addr }

func (f *Failure) String() string {
	if f.Addr.IsZero() {
		return fmt.Sprintf("Failure: %T", f.Err)
	}
	return fmt.Sprintf("Failure: %T (%s)", f.Err, f.Addr)
}

// ShortDescription returns the error message.
func (f *Failure) ShortDescription() string {
	if f.Err == nil {
		return ""
	}
	return firstLine(f.Err.Error())
}

// Unwrap returns the collection error.
func (f *Failure) Unwrap() error { return f.Err }

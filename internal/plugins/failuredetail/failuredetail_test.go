package failuredetail

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nosey/internal/address"
	"nosey/internal/config"
	"nosey/internal/suite"
)

func TestPlugin_Switch(t *testing.T) {
	for _, args := range [][]string{{"-d"}, {"--detailed-errors"}} {
		p := New()
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		p.Options(fs, config.Env{})
		require.NoError(t, fs.Parse(args))
		require.NoError(t, p.Configure(config.New()))
		assert.True(t, p.Enabled(), args)
	}

	p := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	p.Options(fs, config.Env{})
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, p.Configure(config.New()))
	assert.False(t, p.Enabled())
}

func TestFormatFailure(t *testing.T) {
	test := &suite.FunctionCase{Name: "calc.test_sub", Addr: address.Address{Filename: "/src/calc.go", Call: "test_sub"}}
	cause := fmt.Errorf("read config: %w", io.EOF)

	err := New().FormatFailure(test, cause)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "read config: EOF\n"+
		"Failure detail:\n"+
		"  test: calc.test_sub (/src/calc.go:test_sub)\n"+
		"  cause 1: *fmt.wrapError: read config: EOF\n"+
		"  cause 2: *errors.errorString: EOF", err.Error())
	assert.NoError(t, New().FormatFailure(test, nil))
}

func TestDetail_Joined(t *testing.T) {
	err := errors.Join(errors.New("first\nsecond line"), io.ErrUnexpectedEOF)
	assert.Equal(t, "Failure detail:\n"+
		"  cause 1: *errors.joinError: first\n"+
		"    cause 2: *errors.errorString: first\n"+
		"    cause 3: *errors.errorString: unexpected EOF", Detail(nil, err))
}

package attrib

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
)

type TestNetwork struct{}

func (t *TestNetwork) TestDial()    {}
func (t *TestNetwork) TestResolve() {}

type TestLocal struct{}

func (t *TestLocal) TestRead() {}

func testFast() {}

func testSlow() {}

func loadModule(t *testing.T) *namespace.Module {
	t.Helper()
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Add(namespace.Source{
		Name:     "test_attrs",
		Location: filepath.Join(t.TempDir(), "test_attrs.go"),
		Build: func(b *namespace.Builder) error {
			b.Class(TestNetwork{}, namespace.Attr("net", true), namespace.MethodAttr("TestResolve", "speed", "slow"))
			b.Class(TestLocal{}, namespace.MethodAttr("TestRead", "tags", []string{"io", "disk"}))
			b.Func("test_fast", testFast, namespace.Attr("speed", "fast"))
			b.Func("test_slow", testSlow, namespace.Attr("speed", "slow"), namespace.Attr("slow", true))
			return nil
		},
	}))
	mod, err := namespace.NewImporter(reg, nil).Import("test_attrs")
	require.NoError(t, err)
	return mod
}

func configured(t *testing.T, args ...string) *Plugin {
	t.Helper()
	p := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	p.Options(fs, config.Env{})
	require.NoError(t, fs.Parse(args))
	require.NoError(t, p.Configure(config.New()))
	return p
}

func TestParse(t *testing.T) {
	groups, err := parse([]string{"slow, !net", "speed=fast", ""})
	require.NoError(t, err)
	assert.Equal(t, [][]term{
		{{key: "slow"}, {key: "net", negate: true}},
		{{key: "speed", value: "fast", hasVal: true}},
	}, groups)

	_, err = parse([]string{"!"})
	assert.Error(t, err)
}

func TestPlugin_DisabledWithoutSpecs(t *testing.T) {
	assert.False(t, configured(t).Enabled())
	assert.True(t, configured(t, "-a", "slow").Enabled())
}

func TestPlugin_EnvDefault(t *testing.T) {
	p := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	p.Options(fs, config.Env{"NOSEY_ATTR": "net"})
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, p.Configure(config.New()))
	assert.True(t, p.Enabled())
}

func TestPlugin_Functions(t *testing.T) {
	mod := loadModule(t)
	fast, _ := mod.Lookup("test_fast")
	slow, _ := mod.Lookup("test_slow")

	tests := []struct {
		name string
		args []string
		fast plugin.Opinion
		slow plugin.Opinion
	}{
		{"truthy", []string{"-a", "slow"}, plugin.Reject, plugin.Abstain},
		{"negated", []string{"-a", "!slow"}, plugin.Abstain, plugin.Reject},
		{"value", []string{"-a", "speed=FAST"}, plugin.Abstain, plugin.Reject},
		{"and", []string{"-a", "speed=slow,!slow"}, plugin.Reject, plugin.Reject},
		{"or", []string{"-a", "speed=fast", "--attr", "slow"}, plugin.Abstain, plugin.Abstain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := configured(t, tt.args...)
			assert.Equal(t, tt.fast, p.WantFunction(fast.(*namespace.Function)))
			assert.Equal(t, tt.slow, p.WantFunction(slow.(*namespace.Function)))
		})
	}
}

func TestPlugin_ClassesAndMethods(t *testing.T) {
	mod := loadModule(t)
	network, _ := mod.Lookup("TestNetwork")
	local, _ := mod.Lookup("TestLocal")
	netClass := network.(*namespace.Class)
	localClass := local.(*namespace.Class)
	dial, _ := netClass.Method("TestDial")
	resolve, _ := netClass.Method("TestResolve")
	read, _ := localClass.Method("TestRead")

	p := configured(t, "-a", "net")
	assert.Equal(t, plugin.Abstain, p.WantClass(netClass))
	assert.Equal(t, plugin.Reject, p.WantClass(localClass))
	assert.Equal(t, plugin.Abstain, p.WantMethod(dial), "inherits the class attribute")

	p = configured(t, "-a", "speed=slow")
	assert.Equal(t, plugin.Abstain, p.WantClass(netClass), "one method matches")
	assert.Equal(t, plugin.Reject, p.WantMethod(dial))
	assert.Equal(t, plugin.Abstain, p.WantMethod(resolve))

	p = configured(t, "-a", "tags=disk")
	assert.Equal(t, plugin.Abstain, p.WantMethod(read))
	assert.Equal(t, plugin.Reject, p.WantClass(netClass))
}

package selector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/suite"
)

type Widget struct{}

func (w *Widget) Render() {}

type TestWidget struct{}

func (w *TestWidget) TestRender() {}
func (w *TestWidget) Helper()     {}

type TestNothing struct{}

func (t *TestNothing) Render() {}

type Smoke struct {
	suite.Case
}

func (s *Smoke) Runs() {}

func testAlpha()   {}
func beta()        {}
func test_hidden() {}

type fileRejecter struct {
	plugin.NopSelector
}

func (fileRejecter) WantFile(string) plugin.Opinion { return plugin.Reject }

func loadModule(t *testing.T) *namespace.Module {
	t.Helper()
	reg := namespace.NewRegistry()
	require.NoError(t, reg.Add(namespace.Source{
		Name:     "test_widgets",
		Location: filepath.Join(t.TempDir(), "test_widgets.go"),
		Build: func(b *namespace.Builder) error {
			b.Class(Widget{})
			b.Class(TestWidget{}, namespace.MethodAttr("Helper", DeclaredKey, true))
			b.Class(TestNothing{})
			b.Class(Smoke{})
			b.Func("test_alpha", testAlpha)
			b.Func("beta", beta)
			b.Func("_test_hidden", test_hidden)
			b.Func("check_declared", beta, namespace.Attr(DeclaredKey, true))
			b.Func("test_off", testAlpha, namespace.Attr(DeclaredKey, false))
			b.Helper("test_nested", testAlpha)
			return nil
		},
	}))
	mod, err := namespace.NewImporter(reg, nil).Import("test_widgets")
	require.NoError(t, err)
	return mod
}

func lookup[T namespace.Object](t *testing.T, mod *namespace.Module, name string) T {
	t.Helper()
	o, ok := mod.Lookup(name)
	require.True(t, ok, name)
	return o.(T)
}

func TestSelector_Files(t *testing.T) {
	s := New(config.New(), nil)

	tests := []struct {
		path     string
		expected bool
	}{
		{"/src/test_foo.go", true},
		{"/src/foo_helper.go", false},
		{"/src/test_foo.txt", false},
		{"/src/.test_hidden.go", false},
		{"/src/_test_private.go", false},
		{"/src/foo_test.go", false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.expected, s.WantFile(tt.path))
		})
	}
}

func TestSelector_Directories(t *testing.T) {
	cfg, err := config.Load(config.Flags{Where: t.TempDir(), Exclude: []string{"^fixtures$"}}, config.Env{})
	require.NoError(t, err)
	s := New(cfg, nil)

	assert.False(t, s.WantDirectory("/repo/.git"))
	assert.False(t, s.WantDirectory("/repo/_build"))
	assert.False(t, s.WantDirectory("/repo/fixtures"))
	assert.True(t, s.WantDirectory("/repo/lib"))
	assert.True(t, s.WantDirectory("/repo/tests"))
}

func TestSelector_PluginOpinionWins(t *testing.T) {
	s := New(config.New(), fileRejecter{})

	assert.False(t, s.WantFile("/src/test_foo.go"))
	assert.True(t, s.WantDirectory("/src/lib"), "abstaining hooks fall through to defaults")
}

func TestSelector_Classes(t *testing.T) {
	mod := loadModule(t)
	s := New(config.New(), nil)

	tests := []struct {
		class    string
		expected bool
	}{
		{"Widget", false},
		{"TestWidget", true},
		{"TestNothing", false},
		{"Smoke", true},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.WantClass(lookup[*namespace.Class](t, mod, tt.class)))
		})
	}
}

func TestSelector_Functions(t *testing.T) {
	mod := loadModule(t)
	s := New(config.New(), nil)

	tests := []struct {
		function string
		expected bool
	}{
		{"test_alpha", true},
		{"beta", false},
		{"_test_hidden", false},
		{"check_declared", true},
		{"test_off", false},
		{"test_nested", false},
	}

	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.WantFunction(lookup[*namespace.Function](t, mod, tt.function)))
		})
	}
}

func TestSelector_Methods(t *testing.T) {
	mod := loadModule(t)
	s := New(config.New(), nil)
	cls := lookup[*namespace.Class](t, mod, "TestWidget")

	render, ok := cls.Method("TestRender")
	require.True(t, ok)
	helper, ok := cls.Method("Helper")
	require.True(t, ok)

	assert.True(t, s.WantMethod(render))
	assert.True(t, s.WantMethod(helper), "declared attribute overrides the name")
}

func TestSelector_Modules(t *testing.T) {
	mod := loadModule(t)
	s := New(config.New(), nil)

	assert.True(t, s.WantModule(mod))
}

func TestSelector_ExclusionWinsOverInclusion(t *testing.T) {
	cfg, err := config.Load(config.Flags{
		Where:   t.TempDir(),
		Include: []string{"widget"},
		Exclude: []string{"widget"},
	}, config.Env{})
	require.NoError(t, err)
	s := New(cfg, nil)

	assert.False(t, s.Matches("widget"))
	assert.False(t, s.Matches("test_widget"))
	assert.True(t, s.Matches("test_gadget"))
}

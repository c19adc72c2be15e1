package namefilter

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		input    string
		expected bool
	}{
		{
			name:     "empty pattern matches all",
			pattern:  "",
			input:    "test_add",
			expected: true,
		},
		{
			name:     "wildcard pattern matches suffix",
			pattern:  "*UserTest",
			input:    "TestUserTest",
			expected: true,
		},
		{
			name:     "wildcard pattern matches substring",
			pattern:  "*Payment*",
			input:    "billing.TestPaymentService.TestRefund",
			expected: true,
		},
		{
			name:     "fragments in any position",
			pattern:  "*Refund*Payment",
			input:    "TestPaymentRefund",
			expected: true,
		},
		{
			name:     "simple contains match",
			pattern:  "add",
			input:    "test_add_many",
			expected: true,
		},
		{
			name:     "question mark",
			pattern:  "test_?ub",
			input:    "test_sub",
			expected: true,
		},
		{
			name:     "question mark without match",
			pattern:  "test_?",
			input:    "test_sub",
			expected: false,
		},
		{
			name:     "no matches",
			pattern:  "*NonExistent*",
			input:    "test_add",
			expected: false,
		},
		{
			name:     "only stars",
			pattern:  "**",
			input:    "",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.pattern, tt.input); got != tt.expected {
				t.Errorf("Match(%q, %q) = %v, expected %v", tt.pattern, tt.input, got, tt.expected)
			}
		})
	}
}

type TestBilling struct{}

func (b *TestBilling) TestRefund() {}
func (b *TestBilling) TestCharge() {}

func testAdd() {}

func TestPlugin_Selection(t *testing.T) {
	reg := namespace.NewRegistry()
	err := reg.Add(namespace.Source{
		Name:     "test_billing",
		Location: filepath.Join(t.TempDir(), "test_billing.go"),
		Build: func(b *namespace.Builder) error {
			b.Class(TestBilling{})
			b.Func("test_add", testAdd)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	mod, err := namespace.NewImporter(reg, nil).Import("test_billing")
	if err != nil {
		t.Fatal(err)
	}
	cls, _ := mod.Lookup("TestBilling")
	refund, _ := cls.(*namespace.Class).Method("TestRefund")
	charge, _ := cls.(*namespace.Class).Method("TestCharge")
	add, _ := mod.Lookup("test_add")

	p := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	p.Options(fs, config.Env{})
	if err := fs.Parse([]string{"--filter", "*TestBilling.TestRef*"}); err != nil {
		t.Fatal(err)
	}
	if err := p.Configure(config.New()); err != nil {
		t.Fatal(err)
	}

	if !p.Enabled() {
		t.Fatal("expected the plugin to be enabled")
	}
	if got := p.WantMethod(refund); got != plugin.Abstain {
		t.Errorf("WantMethod(TestRefund) = %v, expected abstain", got)
	}
	if got := p.WantMethod(charge); got != plugin.Reject {
		t.Errorf("WantMethod(TestCharge) = %v, expected reject", got)
	}
	if got := p.WantFunction(add.(*namespace.Function)); got != plugin.Reject {
		t.Errorf("WantFunction(test_add) = %v, expected reject", got)
	}
	if got := p.WantClass(cls.(*namespace.Class)); got != plugin.Abstain {
		t.Errorf("WantClass = %v, expected abstain", got)
	}
}

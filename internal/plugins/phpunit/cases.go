package phpunit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// Methods starting with "test":
	// - public function testCreateUser()
	// - function test_user_login()
	// - protected static function testSomething()
	// - final public function testSomething()
	testMethodPattern = regexp.MustCompile(`(?m)^\s*(?:(?:public|protected|private|static|final)\s+)*(?:public|protected|private)?\s*function\s+(test\w+|test_\w+)\s*\(`)

	// Methods with a @test annotation
	annotatedPatterns = []*regexp.Regexp{
		// @test on previous line(s) followed by function
		regexp.MustCompile(`(?m)@test\s*\n\s*(?:/\*\*.*?\*/)?\s*(?:(?:public|protected|private|static|final)\s+)*(?:public|protected|private)?\s*function\s+(\w+)\s*\(`),
		// @test in docblock (handles multi-line docblocks)
		regexp.MustCompile(`(?m)/\*\*[\s\S]*?@test[\s\S]*?\*/\s*(?:(?:public|protected|private|static|final)\s+)*(?:public|protected|private)?\s*function\s+(\w+)\s*\(`),
		// @test on same line as function
		regexp.MustCompile(`(?m)@test.*?function\s+(\w+)\s*\(`),
		// #[Test] attribute
		regexp.MustCompile(`(?m)#\[Test\]\s*(?:(?:public|protected|private|static|final)\s+)*function\s+(\w+)\s*\(`),
	}

	namespacePattern = regexp.MustCompile(`(?m)^\s*namespace\s+([\w\\]+)\s*;`)
	classPattern     = regexp.MustCompile(`(?m)^\s*(?:(?:abstract|final|readonly)\s+)*class\s+(\w+)`)
)

// TestFile is a PHP test class and its test methods.
type TestFile struct {
	Path  string
	Class string // fully qualified, e.g. Tests\Unit\UserTest
	Cases []string
}

// FindTestCases finds all test cases in a test file. Cases are sorted.
func FindTestCases(path string) (*TestFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	src := string(content)

	found := make(map[string]bool)
	for _, match := range testMethodPattern.FindAllStringSubmatch(src, -1) {
		found[match[1]] = true
	}
	for _, pattern := range annotatedPatterns {
		for _, match := range pattern.FindAllStringSubmatch(src, -1) {
			found[match[1]] = true
		}
	}

	tf := &TestFile{Path: path, Class: className(src, path)}
	for name := range found {
		tf.Cases = append(tf.Cases, name)
	}
	sort.Strings(tf.Cases)
	return tf, nil
}

// className returns the qualified class declared in src, falling back to
// the file name.
func className(src, path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".php")
	if m := classPattern.FindStringSubmatch(src); m != nil {
		name = m[1]
	}
	if m := namespacePattern.FindStringSubmatch(src); m != nil {
		return m[1] + `\` + name
	}
	return name
}

// Has reports whether name is one of the cases.
func (tf *TestFile) Has(name string) bool {
	i := sort.SearchStrings(tf.Cases, name)
	return i < len(tf.Cases) && tf.Cases[i] == name
}

package phpunit

import (
	"os"
	"path/filepath"
	"testing"
)

const userTestPHP = `<?php

namespace Tests\Unit;

use PHPUnit\Framework\TestCase;

class UserTest extends TestCase
{
    public function testCreateUser()
    {
        // test code
    }

    protected function testUpdateUser()
    {
        // test code
    }

    private function testDeleteUser()
    {
        // test code
    }

    /** @test */
    public function it_skips_without_redis()
    {
        // test code
    }

    public function helperMethod()
    {
        // not a test
    }
}
`

func writeUserTest(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tests", "Unit", "UserTest.php")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(userTestPHP), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestFindTestCases(t *testing.T) {
	path := writeUserTest(t, t.TempDir())

	t.Run("finds test methods", func(t *testing.T) {
		tf, err := FindTestCases(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{"it_skips_without_redis", "testCreateUser", "testDeleteUser", "testUpdateUser"}
		if len(tf.Cases) != len(expected) {
			t.Fatalf("expected %d test cases, got %d: %v", len(expected), len(tf.Cases), tf.Cases)
		}
		for i, name := range expected {
			if tf.Cases[i] != name {
				t.Errorf("case %d: expected %s, got %s", i, name, tf.Cases[i])
			}
		}
		if tf.Has("helperMethod") {
			t.Error("should not find helperMethod as a test case")
		}
		if !tf.Has("testDeleteUser") {
			t.Error("expected to find testDeleteUser")
		}
	})

	t.Run("qualifies the class", func(t *testing.T) {
		tf, err := FindTestCases(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tf.Class != `Tests\Unit\UserTest` {
			t.Errorf("expected class Tests\\Unit\\UserTest, got %s", tf.Class)
		}
	})

	t.Run("falls back to the file name", func(t *testing.T) {
		if got := className("<?php\nfunction testLoose() {}\n", "/x/LooseTest.php"); got != "LooseTest" {
			t.Errorf("expected LooseTest, got %s", got)
		}
	})

	t.Run("returns error for non-existent file", func(t *testing.T) {
		if _, err := FindTestCases("/non/existent/file.php"); err == nil {
			t.Error("expected error for non-existent file")
		}
	})
}

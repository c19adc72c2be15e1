package phpunit

import (
	"context"
	"os"
	"os/exec"
	"sort"
)

// Runner executes PHPUnit in the project directory.
type Runner struct {
	Bin string
	Dir string
	Env map[string]string

	exec func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// NewRunner creates a new Runner
func NewRunner(bin, dir string, env map[string]string) *Runner {
	return &Runner{Bin: bin, Dir: dir, Env: env, exec: combinedOutput}
}

// Run executes PHPUnit with args and returns its combined output.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	out, err := r.exec(ctx, r.Dir, r.environ(), r.Bin, args...)
	return string(out), err
}

// environ returns Env, which includes values from .env, or the process
// environment when Env is empty.
func (r *Runner) environ() []string {
	if len(r.Env) == 0 {
		return os.Environ()
	}
	keys := make([]string, 0, len(r.Env))
	for k := range r.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+r.Env[k])
	}
	return env
}

func combinedOutput(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

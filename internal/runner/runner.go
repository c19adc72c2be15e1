// Package runner drives a run: it prepares the result chain, runs the
// collected tests, prints the report and saves the results.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nosey/internal/config"
	"nosey/internal/domain"
	"nosey/internal/loader"
	"nosey/internal/logging"
	"nosey/internal/plugin"
	"nosey/internal/storage"
	"nosey/internal/suite"
)

// Runner runs the tests of one loader.
type Runner struct {
	config  *config.Config
	loader  *loader.Loader
	plugins *plugin.Manager
	storage storage.Storage
	stream  io.Writer
	log     *slog.Logger
}

// NewRunner creates a new Runner. st may be nil, in which case results
// are not saved.
func NewRunner(cfg *config.Config, l *loader.Loader, plugins *plugin.Manager, st storage.Storage, stream io.Writer, log *slog.Logger) *Runner {
	if plugins == nil {
		plugins = plugin.NewManager(log)
	}
	return &Runner{
		config:  cfg,
		loader:  l,
		plugins: plugins,
		storage: st,
		stream:  stream,
		log:     logging.For(log, "runner"),
	}
}

// Run runs test and reports on it. names are recorded in the saved
// results. The returned error is set when the run was interrupted, a
// plugin failed, or the results could not be saved; test outcomes are
// in the returned output.
func (r *Runner) Run(ctx context.Context, test suite.Test, names []string) (*domain.TestResultsOutput, error) {
	runID := uuid.NewString()
	r.log.Info("run started", "run_id", runID, "names", names)

	if err := r.plugins.Begin(); err != nil {
		return nil, err
	}

	stream := r.plugins.SetOutputStream(r.stream)
	text := NewTextResult(stream, r.config.Verbosity, r.config.StopOnFailure, r.plugins.DescribeTest)
	result := NewResultProxy(r.plugins.PrepareTestResult(text), r.plugins)
	test = r.plugins.PrepareTest(test)

	start := time.Now()
	runErr := test.Run(ctx, result)
	if err := r.loader.Factory().Close(context.WithoutCancel(ctx)); err != nil {
		result.AddError(test, err)
	}
	elapsed := time.Since(start)

	text.PrintErrors()
	text.PrintSummary(elapsed)
	r.plugins.Report(stream)

	var errs []error
	if runErr != nil {
		errs = append(errs, fmt.Errorf("run interrupted: %w", runErr))
	}
	if err := r.loader.Err(); err != nil {
		errs = append(errs, fmt.Errorf("discovery aborted: %w", err))
	}
	if err := r.plugins.Finalize(text.Results); err != nil {
		errs = append(errs, err)
	}

	output := NewOutput(runID, r.config.WorkingDir, names, text.Results, elapsed)
	if r.storage != nil {
		if err := r.storage.Save(output); err != nil {
			errs = append(errs, fmt.Errorf("failed to save test results: %w", err))
		}
	}
	r.log.Info("run finished", "run_id", runID, "tests", output.Meta.TestsRun, "successful", output.Meta.Successful())
	return output, errors.Join(errs...)
}

package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nosey/internal/domain"
	"nosey/internal/loader"
	"nosey/internal/runner"
	"nosey/internal/suite"
	"nosey/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	app *App
}

// NewListCommand creates a new ListCommand
func NewListCommand(app *App) *ListCommand {
	return &ListCommand{app: app}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := lc.app.Config

	l := loader.New(cfg, lc.app.Registry, lc.app.Plugins, lc.app.Log)
	test, err := l.LoadTestsFromNames(defaultNames(cfg, args), nil)
	if err != nil {
		return fmt.Errorf("failed to load tests: %w", err)
	}

	var tests []domain.Test
	for t := range suite.Leaves(cmd.Context(), test) {
		tests = append(tests, runner.NewTestEntry(cfg.WorkingDir, t))
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if err := l.Err(); err != nil {
		return fmt.Errorf("discovery aborted: %w", err)
	}

	if len(tests) == 0 {
		color.New(color.FgYellow).Fprintln(lc.app.Out, "No tests found")
		return nil
	}

	// Mark tests that failed in the last run, if there was one
	failed := map[string]bool{}
	if last, err := lc.app.Storage().Load(); err == nil {
		for _, addr := range last.FailedAddresses() {
			failed[addr] = true
		}
	}

	ui.NewFormatter(lc.app.Out).PrintTestList(tests, failed)
	return nil
}

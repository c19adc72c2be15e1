package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nosey/internal/loader"
	"nosey/internal/runner"
	"nosey/internal/ui"
)

// RunCommand handles the run command
type RunCommand struct {
	app *App
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(app *App) *RunCommand {
	return &RunCommand{app: app}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := rc.app.Config
	st := rc.app.Storage()

	names := args
	if cfg.Flags.OnlyFailed {
		last, err := st.Load()
		if err != nil {
			return fmt.Errorf("failed to load last run: %w", err)
		}
		names = last.FailedAddresses()
		if len(names) == 0 {
			color.New(color.FgYellow).Fprintln(rc.app.Out, "No failed tests in the last run")
			return nil
		}
	}
	names = defaultNames(cfg, names)

	l := loader.New(cfg, rc.app.Registry, rc.app.Plugins, rc.app.Log)
	test, err := l.LoadTestsFromNames(names, nil)
	if err != nil {
		return fmt.Errorf("failed to load tests: %w", err)
	}

	output, err := runner.NewRunner(cfg, l, rc.app.Plugins, st, rc.app.Out, rc.app.Log).Run(cmd.Context(), test, names)
	if output == nil {
		return err
	}

	ui.NewFormatter(rc.app.Out).PrintMetaStats(output)
	if err != nil {
		return err
	}

	if !output.Meta.Successful() {
		if cfg.Flags.OpenFailures {
			if err := ui.NewErrorViewer(st, rc.app.Out).View(output); err != nil {
				return err
			}
		}
		return ErrTestsFailed
	}
	return nil
}

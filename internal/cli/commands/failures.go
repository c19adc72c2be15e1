package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"nosey/internal/ui"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	app *App
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(app *App) *FailuresCommand {
	return &FailuresCommand{app: app}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	st := fc.app.Storage()
	results, err := st.Load()
	if err != nil {
		return fmt.Errorf("no results from a previous run: %w", err)
	}

	return ui.NewErrorViewer(st, fc.app.Out).View(results)
}

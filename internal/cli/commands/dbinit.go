package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nosey/internal/domain"
	"nosey/internal/plugins/dbreport"
)

// DBInitCommand handles the db init command
type DBInitCommand struct {
	app        *App
	initSchema func(ctx context.Context, s dbreport.Settings) ([]domain.SchemaResult, error)
}

// NewDBInitCommand creates a new DBInitCommand
func NewDBInitCommand(app *App) *DBInitCommand {
	return &DBInitCommand{app: app, initSchema: dbreport.InitSchema}
}

// Execute runs the command
func (dc *DBInitCommand) Execute(cmd *cobra.Command, args []string) error {
	p, ok := dc.app.Plugins.Get("dbreport")
	if !ok {
		return errors.New("dbreport plugin is not registered")
	}
	settings := p.(*dbreport.Plugin).Settings()

	fmt.Fprintf(dc.app.Out, "Preparing database %s on %s:%s\n", settings.Database, settings.Host, settings.Port)
	results, err := dc.initSchema(cmd.Context(), settings)
	failed := 0
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
			color.New(color.FgRed).Fprintf(dc.app.Out, "✗ %s: %v\n", r.Table, r.Error)
		case r.Created:
			color.New(color.FgGreen).Fprintf(dc.app.Out, "✓ %s created\n", r.Table)
		default:
			color.New(color.FgCyan).Fprintf(dc.app.Out, "• %s already exists\n", r.Table)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to prepare database: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("failed to create %d table(s)", failed)
	}
	return nil
}

// Package dbreport stores the outcome of every run in MySQL so results
// can be compared across runs and machines. The tables are created with
// "nosey db init".
package dbreport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"nosey/internal/config"
	"nosey/internal/domain"
	"nosey/internal/plugin"
	"nosey/internal/runner"
	"nosey/internal/suite"
)

// saveTimeout bounds writing one run.
const saveTimeout = 30 * time.Second

type saver interface {
	Save(ctx context.Context, out *domain.TestResultsOutput) error
	Close() error
}

// Plugin writes the results of a run at Finalize.
type Plugin struct {
	plugin.Base
	plugin.NopLifecycle

	database string

	settings   Settings
	workingDir string
	started    time.Time
	open       func(ctx context.Context, s Settings) (saver, error)
}

// New creates a new database report plugin
func New() *Plugin {
	return &Plugin{
		Base: plugin.Base{
			PluginName: "dbreport",
			Help:       "store run results in MySQL",
		},
		open: openStore,
	}
}

func openStore(ctx context.Context, s Settings) (saver, error) {
	db, err := Open(ctx, s, true)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

func (p *Plugin) Options(fs *pflag.FlagSet, env plugin.Env) {
	p.Base.Options(fs, env)
	fs.StringVar(&p.database, "dbreport-database", "",
		"Database to store results in (default $NOSEY_DB_DATABASE or "+DefaultDatabase+")")
}

// Configure reads the connection settings from the environment.
func (p *Plugin) Configure(cfg *config.Config) error {
	if err := p.Base.Configure(cfg); err != nil {
		return err
	}
	p.settings = SettingsFromEnv(cfg.Env)
	if p.database != "" {
		p.settings.Database = p.database
	}
	if !isValidDatabaseName(p.settings.Database) {
		return fmt.Errorf("invalid database name: %s", p.settings.Database)
	}
	p.workingDir = cfg.WorkingDir
	return nil
}

// Settings returns the connection settings.
func (p *Plugin) Settings() Settings { return p.settings }

func (p *Plugin) Begin() error {
	p.started = time.Now()
	return nil
}

// Finalize saves the run.
func (p *Plugin) Finalize(result *suite.Results) error {
	if result == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	st, err := p.open(ctx, p.settings)
	if err != nil {
		return err
	}
	defer st.Close()

	out := runner.NewOutput(uuid.NewString(), p.workingDir, nil, result, time.Since(p.started))
	if err := st.Save(ctx, out); err != nil {
		return fmt.Errorf("failed to save run to %s: %w", p.settings.Database, err)
	}
	return nil
}

package commands

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nosey/internal/cli"
	"nosey/internal/config"
	"nosey/internal/logging"
	"nosey/internal/namespace"
	"nosey/internal/plugin"
	"nosey/internal/storage"
)

// ErrTestsFailed is returned by run when any test failed or errored.
var ErrTestsFailed = errors.New("tests failed")

// App holds what every command needs. Config, Plugins and Log are set by
// Setup once the flags are parsed.
type App struct {
	Flags    cli.Flags
	Registry *namespace.Registry
	Out      io.Writer
	Err      io.Writer

	Config  *config.Config
	Plugins *plugin.Manager
	Log     *slog.Logger

	plugins []plugin.Plugin
}

// NewApp creates a new App serving the modules of reg with the given
// plugins
func NewApp(reg *namespace.Registry, plugins ...plugin.Plugin) *App {
	return &App{
		Registry: reg,
		Out:      os.Stdout,
		Err:      os.Stderr,
		plugins:  plugins,
	}
}

// Setup loads the configuration and configures the plugins
func (a *App) Setup(cmd *cobra.Command, args []string) error {
	dir := a.Flags.Where
	if dir == "" {
		dir = config.DefaultWorkingDir
	}
	cfg, err := config.Load(a.Flags.ToConfigFlags(), config.LoadEnv(dir))
	if err != nil {
		return err
	}

	log := logging.New(a.Err, cfg.LogLevel, cfg.LogFormat)
	manager := plugin.NewManager(log, a.plugins...)
	if err := manager.Configure(cfg); err != nil {
		return err
	}

	a.Config = cfg
	a.Plugins = manager
	a.Log = log
	logging.For(log, "cli").Debug("configured", "working_dir", cfg.WorkingDir, "verbosity", cfg.Verbosity)
	return nil
}

// Storage returns the store of the last run's results
func (a *App) Storage() storage.Storage {
	return storage.NewJSONStorage(a.Config)
}

// Commands holds all CLI commands
type Commands struct {
	app      *App
	Run      *RunCommand
	List     *ListCommand
	Failures *FailuresCommand
	DBInit   *DBInitCommand
}

// NewCommands creates all commands with dependencies
func NewCommands(app *App) *Commands {
	return &Commands{
		app:      app,
		Run:      NewRunCommand(app),
		List:     NewListCommand(app),
		Failures: NewFailuresCommand(app),
		DBInit:   NewDBInitCommand(app),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command) {
	flags := &c.app.Flags
	pf := rootCmd.PersistentFlags()
	flags.Register(pf)
	plugin.NewManager(nil, c.app.plugins...).Options(pf, config.LoadEnv(config.DefaultWorkingDir))
	rootCmd.PersistentPreRunE = c.app.Setup

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [names...]",
		Short: "Collect and run tests",
		Long: "Collect tests from the given names and run them. A name is a directory, a file, " +
			"a module, or an address such as path/to/file.go:Class.Method. With no names the " +
			"working directory is searched.",
		RunE: c.Run.Execute,
	}
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only tests that failed in the last run (from "+config.DefaultOutputJSONDir+"/"+config.DefaultOutputJSONFile+")")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list [names...]",
		Short: "List collected tests",
		Long:  "Collect tests from the given names and list them without running them",
		RunE:  c.List.Execute,
	}
	rootCmd.AddCommand(listCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:   "failures",
		Short: "View test failures interactively",
		Long:  "Display the failures of the last run in an interactive viewer",
		Args:  cobra.NoArgs,
		RunE:  c.Failures.Execute,
	}
	rootCmd.AddCommand(failuresCmd)

	// DB commands
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the results database",
	}
	dbInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the results database and tables",
		Long:  "Create the database and tables the dbreport plugin stores runs in. Connection settings come from DB_HOST, DB_PORT, DB_USERNAME and DB_PASSWORD.",
		Args:  cobra.NoArgs,
		RunE:  c.DBInit.Execute,
	}
	dbCmd.AddCommand(dbInitCmd)
	rootCmd.AddCommand(dbCmd)
}

// NewRootCommand creates the nosey command with every subcommand registered
func NewRootCommand(app *App, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nosey",
		Short:         "Test discovery and loading with plugins",
		Long:          `Collects tests from directories, files, modules and addresses, runs them, and reports on the results. Plugins select, collect, format and report tests.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(app.Out)
	rootCmd.SetErr(app.Err)
	NewCommands(app).Register(rootCmd)
	return rootCmd
}

// defaultNames returns names, or the working directory when there are none
func defaultNames(cfg *config.Config, names []string) []string {
	if len(names) > 0 {
		return names
	}
	return []string{cfg.WorkingDir}
}

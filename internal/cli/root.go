// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradefolio/internal/config"
	"tradefolio/internal/journal"
	"tradefolio/internal/logging"
	"tradefolio/internal/models"
	"tradefolio/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.DataStore
	Journal *journal.Service
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize SQLite store
	dataStore, err := store.NewSQLiteStore(cfg.Journal.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, journal commands unavailable")
	} else {
		app.Store = dataStore
		app.Journal = journal.NewService(dataStore, cfg.Method(), logger)
		app.Journal.SetDefaultCapital(cfg.Journal.DefaultCapital)
		app.Journal.SetRenumber(cfg.Journal.RenumberOnRecalc)
		logger.Debug().Str("db", cfg.Journal.DBPath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "tradefolio",
		Short: "Tradefolio - trading journal and portfolio valuation CLI",
		Long: `Tradefolio is a trading journal: log trades, record deposits and
withdrawals, and let the engine derive position sizing, FIFO realized
P/L, monthly portfolio snapshots and annualized returns under cash or
accrual accounting.

Use 'tradefolio help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			// Per-invocation accounting method override
			if method, _ := cmd.Flags().GetString("method"); method != "" && app.Journal != nil {
				if err := app.Journal.SetMethod(models.AccountingMethod(method)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradefolio)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("method", "", "accounting method override: cash or accrual")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addCapitalCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addReturnsCommands(rootCmd, app)
	addJournalFileCommands(rootCmd, app)
	addRecalcCommand(rootCmd, app)

	return rootCmd
}

// requireJournal fails fast when the store could not be opened, so
// individual commands don't nil-check the service themselves.
func requireJournal(app *App) error {
	if app.Journal == nil {
		return fmt.Errorf("journal store unavailable, check database path %q", app.Config.Journal.DBPath)
	}
	return nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Tradefolio v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Journal")
			output.Printf("  Database:          %s\n", app.Config.Journal.DBPath)
			output.Printf("  Accounting method: %s\n", app.Config.Journal.AccountingMethod)
			output.Printf("  Default capital:   %s\n", FormatCurrency(app.Config.Journal.DefaultCapital))
			output.Printf("  Debounce window:   %dms\n", app.Config.Journal.DebounceMillis)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if err := config.WriteTemplate(dir); err != nil {
				return err
			}
			output.Success("Config template ready in %s", dir)
			return nil
		},
	})

	return cmd
}

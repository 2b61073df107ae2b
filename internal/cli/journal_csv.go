package cli

import (
	"os"

	"github.com/spf13/cobra"

	"tradefolio/internal/errors"
	"tradefolio/internal/recalc"
	"tradefolio/internal/store"
)

// importRows saves a burst of rows and collapses the per-row
// recalculation triggers into one settled full pass.
func importRows(cmd *cobra.Command, app *App, n int, save func(i int) error) error {
	var recalcErr error
	sched := recalc.NewScheduler(app.Config.Journal.DebounceWindow(), nil, func() {
		_, recalcErr = app.Journal.Recalculate(cmd.Context(), false)
	})
	for i := 0; i < n; i++ {
		if err := save(i); err != nil {
			return err
		}
		sched.Trigger()
	}
	sched.Flush()
	return recalcErr
}

// addJournalFileCommands adds CSV import and export commands.
func addJournalFileCommands(rootCmd *cobra.Command, app *App) {
	exportCmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export the journal to CSV",
		Long: `Export trades (or capital changes with --capital) to a CSV file.
The format round-trips through 'import'.`,
		Example: `  tradefolio export trades.csv
  tradefolio export flows.csv --capital`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return errors.Wrapf(err, "creating %s", args[0])
			}
			defer f.Close()

			capital, _ := cmd.Flags().GetBool("capital")
			if capital {
				if err := store.ExportCapitalChangesCSV(f, state.Changes); err != nil {
					return err
				}
				output.Success("Exported %d capital changes to %s", len(state.Changes), args[0])
				return nil
			}
			if err := store.ExportTradesCSV(f, state.Trades); err != nil {
				return err
			}
			output.Success("Exported %d trades to %s", len(state.Trades), args[0])
			return nil
		},
	}
	exportCmd.Flags().Bool("capital", false, "export capital changes instead of trades")

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import journal rows from CSV",
		Long: `Import trades (or capital changes with --capital) from a CSV file.
Malformed numeric and date cells import as zero rather than failing
the whole file; a recalculation runs once after the last row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "opening %s", args[0])
			}
			defer f.Close()

			capital, _ := cmd.Flags().GetBool("capital")
			if capital {
				changes, err := store.ImportCapitalChangesCSV(f)
				if err != nil {
					return err
				}
				// Rows bypass the service's capital methods, so drop
				// memoized results before the recalculation fires.
				app.Journal.Invalidate()
				err = importRows(cmd, app, len(changes), func(i int) error {
					if err := app.Store.SaveCapitalChange(cmd.Context(), changes[i]); err != nil {
						return errors.NewStoreError("capital_changes", "save", err)
					}
					return nil
				})
				if err != nil {
					return err
				}
				output.Success("Imported %d capital changes from %s", len(changes), args[0])
				return nil
			}

			trades, err := store.ImportTradesCSV(f)
			if err != nil {
				return err
			}
			err = importRows(cmd, app, len(trades), func(i int) error {
				if err := app.Store.SaveTrade(cmd.Context(), trades[i]); err != nil {
					return errors.NewStoreError("trades", "save", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			output.Success("Imported %d trades from %s", len(trades), args[0])
			return nil
		},
	}
	importCmd.Flags().Bool("capital", false, "import capital changes instead of trades")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"tradefolio/internal/errors"
	"tradefolio/internal/journal"
)

// addReturnsCommands adds the annualized-return command.
func addReturnsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "returns",
		Short: "Annualized return (XIRR)",
		Long: `Compute the money-weighted annualized return over a month range.
Deposits and withdrawals inside the range count as dated cash flows,
so the rate reflects performance rather than funding.`,
		Example: `  tradefolio returns --year 2024
  tradefolio returns --from 2024-01 --to 2024-06`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}

			fromMonth, fromYear, toMonth, toYear, err := returnRange(cmd, app, state)
			if err != nil {
				return err
			}

			rate := app.Journal.AnnualizedReturn(state, fromMonth, fromYear, toMonth, toYear)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"from":   fromMonth.String() + " " + itoa(fromYear),
					"to":     toMonth.String() + " " + itoa(toYear),
					"xirr":   rate,
					"method": string(app.Journal.Method()),
				})
			}
			output.Bold("Annualized return %s %d to %s %d", fromMonth, fromYear, toMonth, toYear)
			output.Printf("  XIRR: %s\n", output.FormatPercent(rate))
			if rate == 0 {
				output.Dim("A zero rate can also mean too little data to solve")
			}
			return nil
		},
	}

	cmd.Flags().Int("year", 0, "full calendar year")
	cmd.Flags().String("from", "", "range start (YYYY-MM)")
	cmd.Flags().String("to", "", "range end (YYYY-MM)")

	rootCmd.AddCommand(cmd)
}

// returnRange resolves the month range from flags. Default is the span
// of the journal's snapshot series; --year takes a calendar year and
// --from/--to an explicit month range.
func returnRange(cmd *cobra.Command, app *App, state *journal.State) (time.Month, int, time.Month, int, error) {
	if year, _ := cmd.Flags().GetInt("year"); year > 0 {
		return time.January, year, time.December, year, nil
	}

	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	if fromStr != "" || toStr != "" {
		from, err := time.Parse("2006-01", fromStr)
		if err != nil {
			return 0, 0, 0, 0, errors.NewValidationError("from", fromStr, "expected YYYY-MM")
		}
		to, err := time.Parse("2006-01", toStr)
		if err != nil {
			return 0, 0, 0, 0, errors.NewValidationError("to", toStr, "expected YYYY-MM")
		}
		if to.Before(from) {
			return 0, 0, 0, 0, errors.NewValidationError("to", toStr, "range end precedes range start")
		}
		return from.Month(), from.Year(), to.Month(), to.Year(), nil
	}

	snapshots := app.Journal.Snapshots(state)
	if len(snapshots) == 0 {
		now := time.Now()
		return time.January, now.Year(), now.Month(), now.Year(), nil
	}
	first, last := snapshots[0], snapshots[len(snapshots)-1]
	return first.Month, first.Year, last.Month, last.Year, nil
}

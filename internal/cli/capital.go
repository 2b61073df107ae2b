package cli

import (
	"time"

	"github.com/spf13/cobra"

	"tradefolio/internal/errors"
	"tradefolio/internal/models"
)

// addCapitalCommands adds capital configuration commands.
func addCapitalCommands(rootCmd *cobra.Command, app *App) {
	capitalCmd := &cobra.Command{
		Use:   "capital",
		Short: "Capital configuration",
		Long: `Manage starting capital, deposits, withdrawals and monthly
overrides. Monthly starting capital resolves in priority order:
explicit override, then the January anchor for that year, then the
previous month's ending value.`,
	}

	capitalCmd.AddCommand(newCapitalSetYearCmd(app))
	capitalCmd.AddCommand(newCapitalAddCmd(app, "deposit", models.Deposit))
	capitalCmd.AddCommand(newCapitalAddCmd(app, "withdraw", models.Withdraw))
	capitalCmd.AddCommand(newCapitalListCmd(app))
	capitalCmd.AddCommand(newCapitalOverrideCmd(app))

	rootCmd.AddCommand(capitalCmd)
}

func newCapitalSetYearCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "set-year YEAR AMOUNT",
		Short:   "Set the starting capital anchor for a year",
		Example: `  tradefolio capital set-year 2024 500000`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			year, err := parseInt(args[0])
			if err != nil {
				return errors.NewValidationError("year", args[0], "expected a year")
			}
			amount, err := parseFloat(args[1])
			if err != nil || amount <= 0 {
				return errors.Wrapf(errors.ErrInvalidAmount, "amount %q", args[1])
			}

			if _, err := app.Journal.SetYearlyCapital(cmd.Context(), year, amount); err != nil {
				return err
			}
			output.Success("Starting capital for %d set to %s", year, FormatCurrency(amount))
			return nil
		},
	}
	return cmd
}

func newCapitalAddCmd(app *App, use string, changeType models.CapitalChangeType) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " AMOUNT",
		Short: "Record a " + use,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			amount, err := parseFloat(args[0])
			if err != nil || amount <= 0 {
				return errors.Wrapf(errors.ErrInvalidAmount, "amount %q", args[0])
			}
			dateStr, _ := cmd.Flags().GetString("date")
			desc, _ := cmd.Flags().GetString("description")
			date := time.Now()
			if dateStr != "" {
				if date, err = time.Parse(dateLayout, dateStr); err != nil {
					return errors.NewValidationError("date", dateStr, "expected YYYY-MM-DD")
				}
			}

			change := models.CapitalChange{
				Type:        changeType,
				Amount:      amount,
				Date:        date,
				Description: desc,
			}
			if _, err := app.Journal.AddCapitalChange(cmd.Context(), change); err != nil {
				return err
			}
			output.Success("Recorded %s of %s on %s", use, FormatCurrency(amount), FormatDate(date))
			return nil
		},
	}
	cmd.Flags().String("date", "", "effective date (YYYY-MM-DD, default today)")
	cmd.Flags().String("description", "", "description")
	return cmd
}

func newCapitalListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List capital changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}
			if len(state.Changes) == 0 {
				output.Info("No capital changes recorded")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(state.Changes)
			}

			table := NewTable(output, "Date", "Type", "Amount", "Description")
			var net float64
			for _, c := range state.Changes {
				net += c.Signed()
				table.AddRow(
					FormatDate(c.Date),
					string(c.Type),
					output.FormatPnL(c.Signed()),
					TruncateString(c.Description, 40),
				)
			}
			table.Render()
			output.Dim("Net flow: %s", FormatPnL(net))
			return nil
		},
	}
}

func newCapitalOverrideCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override YEAR MONTH AMOUNT",
		Short: "Pin one month's starting capital",
		Long: `Pin the starting capital of a single month, overriding the cascade
from the previous month. Use this after external account adjustments
the cascade cannot see.`,
		Example: `  tradefolio capital override 2024 7 550000`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			year, err := parseInt(args[0])
			if err != nil {
				return errors.NewValidationError("year", args[0], "expected a year")
			}
			month, err := parseInt(args[1])
			if err != nil || month < 1 || month > 12 {
				return errors.NewValidationError("month", args[1], "expected 1-12")
			}
			amount, err := parseFloat(args[2])
			if err != nil || amount <= 0 {
				return errors.Wrapf(errors.ErrInvalidAmount, "amount %q", args[2])
			}

			override := models.MonthlyOverride{
				Year:   year,
				Month:  time.Month(month),
				Amount: amount,
			}
			if _, err := app.Journal.SetMonthlyOverride(cmd.Context(), override); err != nil {
				return err
			}
			output.Success("Starting capital for %s %d pinned at %s",
				override.Month, year, FormatCurrency(amount))
			return nil
		},
	}
	return cmd
}

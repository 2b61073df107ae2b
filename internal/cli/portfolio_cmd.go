package cli

import (
	"github.com/spf13/cobra"

	"tradefolio/internal/analytics"
	"tradefolio/internal/models"
)

// addPortfolioCommands adds portfolio valuation commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio valuation",
		Long: `Monthly portfolio snapshots, drawdown analysis and summary
statistics derived from the journal under the active accounting method.`,
	}

	portfolioCmd.AddCommand(newPortfolioMonthlyCmd(app))
	portfolioCmd.AddCommand(newPortfolioYearlyCmd(app))
	portfolioCmd.AddCommand(newPortfolioCurveCmd(app))
	portfolioCmd.AddCommand(newPortfolioDrawdownCmd(app))
	portfolioCmd.AddCommand(newPortfolioSummaryCmd(app))

	rootCmd.AddCommand(portfolioCmd)
}

func newPortfolioMonthlyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Monthly capital snapshots",
		Long: `Show the month-by-month capital statement. Each month's ending
value equals its starting value plus net deposits and withdrawals plus
attributed trade P/L, and cascades into the next month's starting
value unless an override or a new yearly anchor interrupts it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}
			snapshots := app.Journal.Snapshots(state)
			if year, _ := cmd.Flags().GetInt("year"); year > 0 {
				filtered := snapshots[:0]
				for _, s := range snapshots {
					if s.Year == year {
						filtered = append(filtered, s)
					}
				}
				snapshots = filtered
			}
			if len(snapshots) == 0 {
				output.Info("No snapshots; set a yearly capital with 'capital set-year'")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(snapshots)
			}

			table := NewTable(output, "Month", "Starting", "Net Flow", "P/L", "Ending")
			for _, s := range snapshots {
				table.AddRow(
					s.Month.String()[:3]+" "+itoa(s.Year),
					FormatCurrency(s.Starting),
					output.FormatPnL(s.CapitalChange),
					output.FormatPnL(s.PL),
					FormatCurrency(s.Ending),
				)
			}
			table.Render()
			output.Dim("Method: %s", app.Journal.Method())
			return nil
		},
	}
	cmd.Flags().Int("year", 0, "limit to one year")
	return cmd
}

func newPortfolioYearlyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "yearly",
		Short: "Yearly capital rollup",
		Long: `Aggregate the monthly snapshots into one row per year: January's
starting capital, the year's net deposits and withdrawals, attributed
trade P/L, and December's ending value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}
			snapshots := app.Journal.Snapshots(state)
			if len(snapshots) == 0 {
				output.Info("No snapshots; set a yearly capital with 'capital set-year'")
				return nil
			}

			type yearRow struct {
				Year     int     `json:"year"`
				Starting float64 `json:"starting"`
				NetFlow  float64 `json:"net_flow"`
				PL       float64 `json:"pl"`
				Ending   float64 `json:"ending"`
			}
			var rows []yearRow
			for _, s := range snapshots {
				if len(rows) == 0 || rows[len(rows)-1].Year != s.Year {
					rows = append(rows, yearRow{Year: s.Year, Starting: s.Starting})
				}
				r := &rows[len(rows)-1]
				r.NetFlow += s.CapitalChange
				r.PL += s.PL
				r.Ending = s.Ending
			}
			if output.IsJSON() {
				return output.JSON(rows)
			}

			table := NewTable(output, "Year", "Starting", "Net Flow", "P/L", "Ending", "Return")
			for _, r := range rows {
				var ret float64
				if r.Starting != 0 {
					ret = r.PL / r.Starting * 100
				}
				table.AddRow(
					itoa(r.Year),
					FormatCurrency(r.Starting),
					output.FormatPnL(r.NetFlow),
					output.FormatPnL(r.PL),
					FormatCurrency(r.Ending),
					FormatPercent(ret),
				)
			}
			table.Render()
			output.Dim("Method: %s", app.Journal.Method())
			return nil
		},
	}
}

func newPortfolioCurveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "curve",
		Short: "Dated equity curve of cumulative portfolio impact",
		Long: `Plot the cumulative portfolio performance by attribution date.
Cash basis puts one point per exit leg; accrual one per trade entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}
			points := analytics.EquityCurve(state.Trades, app.Journal.Method())
			if len(points) == 0 {
				output.Info("No closed trades yet")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(points)
			}

			table := NewTable(output, "Date", "Cum PF%")
			for _, p := range points {
				table.AddRow(FormatDate(p.Date), output.FormatPercent(p.CumPF))
			}
			table.Render()
			output.Dim("Method: %s", app.Journal.Method())
			return nil
		},
	}
}

func newPortfolioDrawdownCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "drawdown",
		Short: "Drawdown of cumulative portfolio impact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}
			points := analytics.Drawdown(state.Trades)
			if len(points) == 0 {
				output.Info("No closed trades yet")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(points)
			}

			table := NewTable(output, "#", "Cum PF%", "Peak%", "Drawdown%")
			for i, p := range points {
				table.AddRow(
					itoa(i+1),
					output.FormatPercent(p.Cumulative),
					FormatPercent(p.Peak),
					FormatPercent(-p.Drawdown),
				)
			}
			table.Render()
			var maxDD float64
			for _, p := range points {
				if p.Drawdown > maxDD {
					maxDD = p.Drawdown
				}
			}
			output.Bold("Max drawdown: %s", FormatPercent(maxDD))
			return nil
		},
	}
}

func newPortfolioSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Journal summary statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}
			summary := analytics.Summarize(state.Trades, app.Journal.Method())
			if output.IsJSON() {
				return output.JSON(summary)
			}

			var open int
			for _, t := range state.Trades {
				if t.Status.Value == models.StatusOpen {
					open++
				}
			}
			output.Bold("Journal summary (%s)", app.Journal.Method())
			output.Printf("  Closed trades: %d (%d still open)\n", summary.Trades, open)
			output.Printf("  Win rate:      %s (%d W / %d L)\n",
				FormatPercent(summary.WinRate), summary.Wins, summary.Losses)
			output.Printf("  Total P/L:     %s\n", output.FormatPnL(summary.TotalPL))
			output.Printf("  Avg win:       %s   Avg loss: %s\n",
				FormatPnL(summary.AvgWin), FormatPnL(summary.AvgLoss))
			output.Printf("  Expectancy:    %s per trade\n", FormatPnL(summary.Expectancy))
			return nil
		},
	}
}

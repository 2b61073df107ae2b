package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradefolio/internal/accounting"
	"tradefolio/internal/errors"
	"tradefolio/internal/journal"
	"tradefolio/internal/models"
	"tradefolio/internal/store"
)

const dateLayout = "2006-01-02"

// addTradeCommands adds the trade journal commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	tradeCmd := &cobra.Command{
		Use:   "trade",
		Short: "Trade journal operations",
		Long:  "Log, edit, close and list trades. Every mutation triggers a full recalculation.",
	}

	tradeCmd.AddCommand(newTradeAddCmd(app))
	tradeCmd.AddCommand(newTradeListCmd(app))
	tradeCmd.AddCommand(newTradeShowCmd(app))
	tradeCmd.AddCommand(newTradeCloseCmd(app))
	tradeCmd.AddCommand(newTradeEditCmd(app))
	tradeCmd.AddCommand(newTradeDeleteCmd(app))

	rootCmd.AddCommand(tradeCmd)
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add SYMBOL",
		Short: "Log a new trade",
		Long: `Log a new trade entry. Entry price and quantity are required;
everything else is optional and can be filled in later with 'trade edit'.`,
		Example: `  tradefolio trade add RELIANCE --entry 2450 --qty 10 --sl 2380
  tradefolio trade add TCS --entry 3600 --qty 5 --date 2024-03-12 --direction short`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			entry, _ := cmd.Flags().GetFloat64("entry")
			qty, _ := cmd.Flags().GetFloat64("qty")
			sl, _ := cmd.Flags().GetFloat64("sl")
			cmp, _ := cmd.Flags().GetFloat64("cmp")
			direction, _ := cmd.Flags().GetString("direction")
			dateStr, _ := cmd.Flags().GetString("date")
			setup, _ := cmd.Flags().GetString("setup")
			notes, _ := cmd.Flags().GetString("notes")

			trade := &models.Trade{
				Symbol:    strings.ToUpper(args[0]),
				Direction: models.Long,
				Entry:     entry,
				Quantity:  qty,
				StopLoss:  sl,
				CMP:       cmp,
				Setup:     setup,
				Notes:     notes,
				EntryDate: time.Now(),
				Status:    models.Derived(models.StatusOpen),
			}
			if strings.EqualFold(direction, "short") {
				trade.Direction = models.Short
			}
			if dateStr != "" {
				d, err := time.Parse(dateLayout, dateStr)
				if err != nil {
					return errors.NewValidationError("date", dateStr, "expected YYYY-MM-DD")
				}
				trade.EntryDate = d
			}

			state, err := app.Journal.AddTrade(cmd.Context(), trade)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Logged %s %s: %s @ %s",
				trade.Direction, trade.Symbol, FormatQty(trade.Quantity), FormatPrice(trade.Entry))
			output.Dim("Trade #%d of %d, allocation %s",
				trade.TradeNo, len(state.Trades), FormatPercent(trade.Allocation))
			return nil
		},
	}

	cmd.Flags().Float64("entry", 0, "entry price (required)")
	cmd.Flags().Float64("qty", 0, "quantity (required)")
	cmd.Flags().Float64("sl", 0, "stop loss price")
	cmd.Flags().Float64("cmp", 0, "current market price")
	cmd.Flags().String("direction", "long", "trade direction: long or short")
	cmd.Flags().String("date", "", "entry date (YYYY-MM-DD, default today)")
	cmd.Flags().String("setup", "", "setup name")
	cmd.Flags().String("notes", "", "trade notes")
	cmd.MarkFlagRequired("entry")
	cmd.MarkFlagRequired("qty")

	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades",
		Long: `List journal trades with derived metrics. Under the cash method,
trades with multiple exit dates appear once per realized month in the
snapshots but are re-grouped into a single row here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			state, err := app.Journal.Load(cmd.Context())
			if err != nil {
				return err
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			status, _ := cmd.Flags().GetString("status")
			year, _ := cmd.Flags().GetInt("year")
			openOnly, _ := cmd.Flags().GetBool("open")
			if openOnly {
				status = string(models.StatusOpen)
			}
			filter := store.TradeFilter{
				Symbol: strings.ToUpper(symbol),
				Status: models.TradeStatus(strings.ToUpper(status)),
			}
			if year > 0 {
				filter.StartDate = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
				filter.EndDate = time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
			}

			var trades []*models.Trade
			for _, t := range state.Trades {
				if filter.Match(t) {
					trades = append(trades, t)
				}
			}
			if len(trades) == 0 {
				output.Info("No trades match")
				return nil
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}

			rows := accounting.GroupForDisplay(accounting.ExpandAll(trades))
			table := NewTable(output, "#", "Symbol", "Dir", "Entry", "Qty", "Avg Exit", "P/L", "PF%", "Status", "Days")
			for _, row := range rows {
				t := row.Trade
				table.AddRow(
					fmt.Sprintf("%d", t.TradeNo),
					t.Symbol,
					string(t.Direction),
					FormatPrice(t.AvgEntry),
					FormatQty(t.Quantity+t.Pyramid1.Qty+t.Pyramid2.Qty),
					FormatPrice(t.AvgExit),
					output.FormatPnL(row.PL),
					output.FormatPercent(t.PFImpact),
					output.StatusTag(string(t.Status.Value)),
					FormatHoldingDays(t.HoldingDays),
				)
			}
			table.Render()
			output.Dim("%d trades, method: %s", len(rows), app.Journal.Method())
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().String("status", "", "filter by status: open, partial, closed")
	cmd.Flags().Int("year", 0, "filter by entry year")
	cmd.Flags().Bool("open", false, "show open trades only")

	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show TRADE_NO",
		Short: "Show one trade in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			trade, _, err := findTrade(cmd, app, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}

			output.Bold("#%d %s %s  %s", trade.TradeNo, trade.Symbol, trade.Direction,
				output.StatusTag(string(trade.Status.Value)))
			output.Printf("  Entry:       %s x %s on %s\n",
				FormatPrice(trade.Entry), FormatQty(trade.Quantity), FormatDate(trade.EntryDate))
			for i, leg := range []models.Leg{trade.Pyramid1, trade.Pyramid2} {
				if leg.Valid() {
					output.Printf("  Pyramid %d:   %s x %s on %s\n",
						i+1, FormatPrice(leg.Price), FormatQty(leg.Qty), FormatDate(leg.Date))
				}
			}
			for i, leg := range trade.ExitLegs() {
				if leg.Valid() {
					output.Printf("  Exit %d:      %s x %s on %s\n",
						i+1, FormatPrice(leg.Price), FormatQty(leg.Qty), FormatDate(leg.Date))
				}
			}
			output.Printf("  Avg entry:   %s   Avg exit: %s\n",
				FormatPrice(trade.AvgEntry), FormatPrice(trade.AvgExit))
			output.Printf("  Position:    %s (%s of portfolio)\n",
				FormatCurrency(trade.PositionSize), FormatPercent(trade.Allocation))
			output.Printf("  Stop loss:   %s (%s risk)\n",
				FormatPrice(trade.StopLoss), FormatPercent(trade.SLPercent))
			output.Printf("  Move:        %s   R:R %s\n",
				output.FormatPercent(trade.StockMove), FormatRiskReward(trade.RewardRisk))
			output.Printf("  Realized:    %s   Accrual: %s   Cash: %s\n",
				output.FormatPnL(trade.RealizedPL),
				output.FormatPnL(trade.AccrualPL),
				output.FormatPnL(trade.CashPL))
			output.Printf("  PF impact:   %s   Cumulative: %s\n",
				output.FormatPercent(trade.PFImpact), output.FormatPercent(trade.CumPF))
			if trade.Setup != "" {
				output.Printf("  Setup:       %s\n", trade.Setup)
			}
			if trade.Notes != "" {
				output.Printf("  Notes:       %s\n", trade.Notes)
			}
			return nil
		},
	}
}

func newTradeCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close TRADE_NO",
		Short: "Record an exit on a trade",
		Long: `Record an exit leg. Up to three staged exits fit on one trade; the
first empty exit slot is used. A full exit closes the trade, a partial
one marks it PARTIAL.`,
		Example: `  tradefolio trade close 12 --price 2580 --qty 10
  tradefolio trade close 12 --price 2580 --qty 5 --date 2024-04-02`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			trade, _, err := findTrade(cmd, app, args[0])
			if err != nil {
				return err
			}

			price, _ := cmd.Flags().GetFloat64("price")
			qty, _ := cmd.Flags().GetFloat64("qty")
			dateStr, _ := cmd.Flags().GetString("date")
			date := time.Now()
			if dateStr != "" {
				if date, err = time.Parse(dateLayout, dateStr); err != nil {
					return errors.NewValidationError("date", dateStr, "expected YYYY-MM-DD")
				}
			}
			if qty <= 0 {
				qty = trade.OpenQty
			}

			leg := models.Leg{Price: price, Qty: qty, Date: date}
			switch {
			case !trade.Exit1.Valid():
				trade.Exit1 = leg
			case !trade.Exit2.Valid():
				trade.Exit2 = leg
			case !trade.Exit3.Valid():
				trade.Exit3 = leg
			default:
				return errors.NewValidationError("exit", args[0], "all three exit slots are used")
			}

			if _, err := app.Journal.UpdateTrade(cmd.Context(), trade); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Exited %s x %s @ %s", trade.Symbol, FormatQty(qty), FormatPrice(price))
			output.Printf("  Status: %s   Realized P/L: %s\n",
				output.StatusTag(string(trade.Status.Value)), output.FormatPnL(trade.RealizedPL))
			return nil
		},
	}

	cmd.Flags().Float64("price", 0, "exit price (required)")
	cmd.Flags().Float64("qty", 0, "exit quantity (default: full open quantity)")
	cmd.Flags().String("date", "", "exit date (YYYY-MM-DD, default today)")
	cmd.MarkFlagRequired("price")

	return cmd
}

func newTradeEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit TRADE_NO",
		Short: "Edit trade fields",
		Long: `Edit raw trade fields. Only flags that are set change anything.
Setting --status pins the status as a manual override; --derive-status
clears the override and lets recalculation own it again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			trade, _, err := findTrade(cmd, app, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("entry") {
				trade.Entry, _ = cmd.Flags().GetFloat64("entry")
			}
			if cmd.Flags().Changed("qty") {
				trade.Quantity, _ = cmd.Flags().GetFloat64("qty")
			}
			if cmd.Flags().Changed("sl") {
				trade.StopLoss, _ = cmd.Flags().GetFloat64("sl")
			}
			if cmd.Flags().Changed("tsl") {
				trade.TrailingSL, _ = cmd.Flags().GetFloat64("tsl")
			}
			if cmd.Flags().Changed("cmp") {
				trade.CMP, _ = cmd.Flags().GetFloat64("cmp")
			}
			if cmd.Flags().Changed("setup") {
				trade.Setup, _ = cmd.Flags().GetString("setup")
			}
			if cmd.Flags().Changed("notes") {
				trade.Notes, _ = cmd.Flags().GetString("notes")
			}
			if cmd.Flags().Changed("plan-followed") {
				trade.PlanFollowed, _ = cmd.Flags().GetBool("plan-followed")
			}
			if cmd.Flags().Changed("date") {
				dateStr, _ := cmd.Flags().GetString("date")
				d, err := time.Parse(dateLayout, dateStr)
				if err != nil {
					return errors.NewValidationError("date", dateStr, "expected YYYY-MM-DD")
				}
				trade.EntryDate = d
			}
			if cmd.Flags().Changed("status") {
				statusStr, _ := cmd.Flags().GetString("status")
				status := models.TradeStatus(strings.ToUpper(statusStr))
				if status != models.StatusOpen && status != models.StatusPartial && status != models.StatusClosed {
					return errors.NewValidationError("status", statusStr, "expected open, partial or closed")
				}
				trade.Status.Override(status)
			}
			if derive, _ := cmd.Flags().GetBool("derive-status"); derive {
				trade.Status.ClearOverride()
			}

			if _, err := app.Journal.UpdateTrade(cmd.Context(), trade); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Updated trade #%d %s", trade.TradeNo, trade.Symbol)
			return nil
		},
	}

	cmd.Flags().Float64("entry", 0, "entry price")
	cmd.Flags().Float64("qty", 0, "quantity")
	cmd.Flags().Float64("sl", 0, "stop loss price")
	cmd.Flags().Float64("tsl", 0, "trailing stop loss price")
	cmd.Flags().Float64("cmp", 0, "current market price")
	cmd.Flags().String("date", "", "entry date (YYYY-MM-DD)")
	cmd.Flags().String("setup", "", "setup name")
	cmd.Flags().String("notes", "", "trade notes")
	cmd.Flags().String("status", "", "pin status: open, partial or closed")
	cmd.Flags().Bool("derive-status", false, "clear a pinned status")
	cmd.Flags().Bool("plan-followed", false, "whether the plan was followed")

	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete TRADE_NO",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			trade, _, err := findTrade(cmd, app, args[0])
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				output.Warning("Deleting #%d %s. Re-run with --force to confirm.",
					trade.TradeNo, trade.Symbol)
				return nil
			}
			if _, err := app.Journal.DeleteTrade(cmd.Context(), trade.ID); err != nil {
				return err
			}
			output.Success("Deleted trade #%d %s", trade.TradeNo, trade.Symbol)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "skip confirmation")
	return cmd
}

// findTrade resolves a trade by journal number, the id users actually
// see. Numbers shift on recalculation, so lookups always go through the
// freshly loaded state.
func findTrade(cmd *cobra.Command, app *App, arg string) (*models.Trade, *journal.State, error) {
	state, err := app.Journal.Load(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	var no int
	if _, err := fmt.Sscanf(arg, "%d", &no); err != nil {
		return nil, nil, errors.NewValidationError("trade", arg, "expected a trade number")
	}
	for _, t := range state.Trades {
		if t.TradeNo == no {
			return t, state, nil
		}
	}
	return nil, nil, errors.Wrapf(errors.ErrTradeNotFound, "trade #%d", no)
}

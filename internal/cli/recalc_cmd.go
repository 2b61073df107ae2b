package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// addRecalcCommand adds the explicit recalculation command. Mutating
// commands recalculate on their own; this one exists for imports done
// out of band and for switching accounting methods on stored data.
func addRecalcCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate all derived trade fields",
		Long: `Re-derive every computed field on every trade: averages, sizing,
FIFO realized P/L, portfolio impacts and cumulative performance, then
renumber trades chronologically and persist the result.

With --fast only the ordering and numbering are refreshed, which is
enough while typing raw values that do not move money.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			fast, _ := cmd.Flags().GetBool("fast")
			started := time.Now()
			state, err := app.Journal.Recalculate(cmd.Context(), fast)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"trades":   len(state.Trades),
					"fast":     fast,
					"method":   string(app.Journal.Method()),
					"duration": time.Since(started).String(),
				})
			}
			mode := "full"
			if fast {
				mode = "fast"
			}
			output.Success("Recalculated %d trades (%s, %s) in %s",
				len(state.Trades), mode, app.Journal.Method(),
				time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().Bool("fast", false, "sort and renumber only, skip derived metrics")
	rootCmd.AddCommand(cmd)
}

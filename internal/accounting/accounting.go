// Package accounting decides which date and which P/L value represent a
// trade under the active accounting convention, and expands multi-exit
// trades into per-leg records for cash-basis attribution. Resolution
// never mutates the underlying trade, so running it twice on the same
// inputs yields identical output.
package accounting

import (
	"time"

	"tradefolio/internal/metrics"
	"tradefolio/internal/models"
)

// Expanded is one synthetic record produced by cash-basis expansion: a
// single exit leg of a trade, carrying a back-reference to the original
// trade. A fully open trade expands to a single record with Open set
// and zero P/L.
type Expanded struct {
	Trade    *models.Trade
	LegIndex int // index into the trade's exit legs, -1 when Open
	Date     time.Time
	Qty      float64
	Price    float64
	PL       float64
	Open     bool
}

// ResolveDateAndPL returns the date and P/L value that represent the
// trade for attribution purposes under the given accounting method.
//
// Accrual: the entry date and the full P/L, unrealized included.
// Cash: the latest exit date (entry date while fully open) and only the
// FIFO-realized P/L; the open quantity contributes nothing.
func ResolveDateAndPL(t *models.Trade, method models.AccountingMethod) (time.Time, float64) {
	if method == models.Cash {
		exit := t.LatestExitDate()
		if exit.IsZero() {
			return t.EntryDate, 0
		}
		return exit, metrics.RealizedPL(t)
	}
	return t.EntryDate, metrics.TotalPL(t)
}

// ExpandForCashBasis splits a trade into one record per valid exit leg,
// each carrying that leg's date and its FIFO-matched share of realized
// P/L. A trade with no exits expands to itself unchanged.
func ExpandForCashBasis(t *models.Trade) []Expanded {
	exits := t.ExitLegs()
	match := metrics.FIFOMatch(t.EntryLegs(), exits, t.Direction.Sign())

	var out []Expanded
	for i, leg := range exits {
		if !leg.Valid() {
			continue
		}
		out = append(out, Expanded{
			Trade:    t,
			LegIndex: i,
			Date:     leg.Date,
			Qty:      leg.Qty,
			Price:    leg.Price,
			PL:       match.PerExit[i],
		})
	}
	if len(out) == 0 {
		out = append(out, Expanded{
			Trade:    t,
			LegIndex: -1,
			Date:     t.EntryDate,
			Open:     true,
		})
	}
	return out
}

// ExpandAll expands every trade in the slice, preserving trade order and
// leg order within each trade.
func ExpandAll(trades []*models.Trade) []Expanded {
	var out []Expanded
	for _, t := range trades {
		out = append(out, ExpandForCashBasis(t)...)
	}
	return out
}

// DisplayRow is an expanded trade re-aggregated back to one row per
// original trade. The per-leg breakdown is retained for cumulative
// sequencing; the row-level fields are what the user sees.
type DisplayRow struct {
	Trade    *models.Trade
	PL       float64   // sum of leg P/Ls
	ExitDate time.Time // latest leg date, zero while fully open
	Legs     []Expanded
}

// GroupForDisplay merges expanded records sharing an original trade back
// into one row each. Row order follows the first appearance of each
// trade in the expanded sequence.
func GroupForDisplay(expanded []Expanded) []DisplayRow {
	index := make(map[string]int)
	var rows []DisplayRow
	for _, e := range expanded {
		i, ok := index[e.Trade.ID]
		if !ok {
			i = len(rows)
			index[e.Trade.ID] = i
			rows = append(rows, DisplayRow{Trade: e.Trade})
		}
		row := &rows[i]
		row.Legs = append(row.Legs, e)
		if !e.Open {
			row.PL += e.PL
			if e.Date.After(row.ExitDate) {
				row.ExitDate = e.Date
			}
		}
	}
	return rows
}

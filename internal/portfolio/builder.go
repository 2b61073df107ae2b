package portfolio

import (
	"sort"
	"time"

	"tradefolio/internal/accounting"
	"tradefolio/internal/metrics"
	"tradefolio/internal/models"
)

// Builder computes monthly portfolio snapshots on demand. Snapshots are
// derived state: nothing here is persisted as authoritative.
//
// Trade allocation reads portfolio size while snapshot P/L reads trade
// P/L, a circular dependency resolved by a two-pass protocol: pass 1
// sizes trades with CapitalOnlySizeAt (anchors and capital changes only,
// no trade P/L), pass 2 rebuilds snapshot P/L from the now-known trade
// values. The recalculation orchestrator drives the ordering; this type
// exposes the two views as distinct lookups.
type Builder struct {
	ledger *Ledger
}

// NewBuilder creates a snapshot builder over the given capital ledger.
func NewBuilder(l *Ledger) *Builder {
	return &Builder{ledger: l}
}

// Ledger exposes the underlying capital ledger.
func (b *Builder) Ledger() *Ledger { return b.ledger }

// startingCapital resolves the starting capital of a month: an explicit
// override wins, January derives from the year's anchor, and any other
// month cascades from the previous month's ending capital. pl supplies
// the per-month P/L contribution; passing a nil pl yields the
// capital-only view used in pass 1. Recursion terminates because every
// cascade chain reaches January of its own year.
func (b *Builder) startingCapital(month time.Month, year int, pl func(time.Month, int) float64) float64 {
	if amount, ok := b.ledger.Override(month, year); ok {
		return amount
	}
	if month == time.January {
		return b.ledger.YearlyAnchor(year)
	}
	prev := month - 1
	starting := b.startingCapital(prev, year, pl)
	ending := starting + b.ledger.NetChangeIn(prev, year)
	if pl != nil {
		ending += pl(prev, year)
	}
	return ending
}

// CapitalOnlySizeAt is the month's starting capital derived from anchors
// and capital changes alone, ignoring trade P/L. Pass 1 of the two-pass
// protocol uses this for allocation and portfolio-impact sizing.
func (b *Builder) CapitalOnlySizeAt(month time.Month, year int) float64 {
	return b.startingCapital(month, year, nil)
}

// CapitalOnlySizeFunc adapts CapitalOnlySizeAt to the metrics
// calculator's date-keyed lookup. The zero date yields 0 so the
// calculator's default-size fallback applies.
func (b *Builder) CapitalOnlySizeFunc() metrics.SizeAt {
	return func(date time.Time) float64 {
		if date.IsZero() {
			return 0
		}
		return b.CapitalOnlySizeAt(date.Month(), date.Year())
	}
}

// MonthlyPL sums trade P/L attributable to the month under the active
// accounting method. Accrual attributes each trade's full P/L to its
// entry month; cash expands trades into exit legs first, so every leg's
// realized P/L lands in exactly one month and is never double-counted.
func MonthlyPL(trades []*models.Trade, method models.AccountingMethod, month time.Month, year int) float64 {
	var total float64
	if method == models.Cash {
		for _, e := range accounting.ExpandAll(trades) {
			if e.Open {
				continue
			}
			if e.Date.Year() == year && e.Date.Month() == month {
				total += e.PL
			}
		}
		return total
	}
	for _, t := range trades {
		date, pl := accounting.ResolveDateAndPL(t, models.Accrual)
		if date.Year() == year && date.Month() == month {
			total += pl
		}
	}
	return total
}

// Monthly computes the snapshot for one month. Months with no trades and
// no capital changes still produce a snapshot with the capital carried
// flat.
func (b *Builder) Monthly(month time.Month, year int, trades []*models.Trade, method models.AccountingMethod) models.MonthlyPortfolioSnapshot {
	pl := func(m time.Month, y int) float64 { return MonthlyPL(trades, method, m, y) }
	starting := b.startingCapital(month, year, pl)
	change := b.ledger.NetChangeIn(month, year)
	periodPL := MonthlyPL(trades, method, month, year)
	return models.MonthlyPortfolioSnapshot{
		Month:         month,
		Year:          year,
		Starting:      starting,
		CapitalChange: change,
		PL:            periodPL,
		Ending:        starting + change + periodPL,
	}
}

// SizeAt is the month's starting capital including cascaded trade P/L,
// the pass-2 view consumed by reporting.
func (b *Builder) SizeAt(month time.Month, year int, trades []*models.Trade, method models.AccountingMethod) float64 {
	return b.Monthly(month, year, trades, method).Starting
}

// AllMonthly computes snapshots for every month of every year touched by
// the ledger configuration or the trade log, each year as a complete
// 12-month series. Results are ordered chronologically.
func (b *Builder) AllMonthly(trades []*models.Trade, method models.AccountingMethod) []models.MonthlyPortfolioSnapshot {
	years := b.ledger.Years()
	for _, t := range trades {
		if !t.EntryDate.IsZero() {
			years[t.EntryDate.Year()] = true
		}
		if exit := t.LatestExitDate(); !exit.IsZero() {
			years[exit.Year()] = true
		}
	}
	if len(years) == 0 {
		return nil
	}

	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)

	var out []models.MonthlyPortfolioSnapshot
	for _, year := range sorted {
		// Cascade forward within the year instead of recursing per month.
		var carry float64
		haveCarry := false
		for month := time.January; month <= time.December; month++ {
			starting := carry
			if amount, ok := b.ledger.Override(month, year); ok {
				starting = amount
			} else if month == time.January || !haveCarry {
				starting = b.startingCapital(month, year, func(m time.Month, y int) float64 {
					return MonthlyPL(trades, method, m, y)
				})
			}
			change := b.ledger.NetChangeIn(month, year)
			pl := MonthlyPL(trades, method, month, year)
			out = append(out, models.MonthlyPortfolioSnapshot{
				Month:         month,
				Year:          year,
				Starting:      starting,
				CapitalChange: change,
				PL:            pl,
				Ending:        starting + change + pl,
			})
			carry = starting + change + pl
			haveCarry = true
		}
	}
	return out
}

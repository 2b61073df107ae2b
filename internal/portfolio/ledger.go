// Package portfolio derives monthly capital snapshots from yearly
// starting-capital anchors, dated capital changes and the trade log.
package portfolio

import (
	"time"

	"tradefolio/internal/models"
)

type monthKey struct {
	year  int
	month time.Month
}

// Ledger holds the capital configuration: one optional anchor per year,
// optional per-month overrides, and the dated deposit/withdrawal events.
// It is read-only once built; rebuild it when the configuration changes.
type Ledger struct {
	yearly    map[int]models.YearlyStartingCapital
	overrides map[monthKey]models.MonthlyOverride
	changes   []models.CapitalChange
	fallback  float64
}

// NewLedger builds a ledger from persisted capital state. Duplicate
// yearly anchors keep the last entry; duplicate overrides likewise.
func NewLedger(yearly []models.YearlyStartingCapital, overrides []models.MonthlyOverride, changes []models.CapitalChange) *Ledger {
	l := &Ledger{
		yearly:    make(map[int]models.YearlyStartingCapital, len(yearly)),
		overrides: make(map[monthKey]models.MonthlyOverride, len(overrides)),
		changes:   changes,
		fallback:  models.DefaultPortfolioSize,
	}
	for _, y := range yearly {
		l.yearly[y.Year] = y
	}
	for _, o := range overrides {
		l.overrides[monthKey{o.Year, o.Month}] = o
	}
	return l
}

// SetFallback replaces the default capital used when no anchor is
// configured. Non-positive amounts keep the built-in default.
func (l *Ledger) SetFallback(amount float64) {
	if amount > 0 {
		l.fallback = amount
	}
}

// YearlyAnchor returns the starting capital anchored for a year, or the
// fallback when none is configured.
func (l *Ledger) YearlyAnchor(year int) float64 {
	if y, ok := l.yearly[year]; ok && y.Amount > 0 {
		return y.Amount
	}
	return l.fallback
}

// Override returns the manual starting-capital override for a month, if
// one exists.
func (l *Ledger) Override(month time.Month, year int) (float64, bool) {
	if o, ok := l.overrides[monthKey{year, month}]; ok {
		return o.Amount, true
	}
	return 0, false
}

// NetChangeIn sums the signed capital changes dated within the month.
func (l *Ledger) NetChangeIn(month time.Month, year int) float64 {
	var net float64
	for _, c := range l.changes {
		if c.Date.Year() == year && c.Date.Month() == month {
			net += c.Signed()
		}
	}
	return net
}

// Years returns every year touched by the ledger's configuration:
// anchored years, overridden years and capital-change years.
func (l *Ledger) Years() map[int]bool {
	years := make(map[int]bool)
	for y := range l.yearly {
		years[y] = true
	}
	for k := range l.overrides {
		years[k.year] = true
	}
	for _, c := range l.changes {
		if !c.Date.IsZero() {
			years[c.Date.Year()] = true
		}
	}
	return years
}

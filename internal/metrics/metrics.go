// Package metrics computes the derived fields of a single trade. Every
// function is pure: it reads the trade's raw legs plus a portfolio-size
// lookup and returns numbers. Malformed numeric input is substituted
// with zero, never raised as an error, so one bad record cannot stall a
// recalculation pass.
package metrics

import (
	"math"
	"time"

	"tradefolio/internal/models"
)

// SizeAt resolves the portfolio size effective on a date. Lookups that
// fail return 0 and the calculator falls back to
// models.DefaultPortfolioSize.
type SizeAt func(date time.Time) float64

// sanitize maps NaN and infinities to zero.
func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// lookupSize applies the fallback rule for portfolio-size lookups.
func lookupSize(sizeAt SizeAt, date time.Time) float64 {
	if sizeAt != nil {
		if s := sanitize(sizeAt(date)); s > 0 {
			return s
		}
	}
	return models.DefaultPortfolioSize
}

// weightedAvg returns the quantity-weighted mean price over valid legs.
func weightedAvg(legs []models.Leg) float64 {
	var qty, notional float64
	for _, l := range legs {
		if !l.Valid() {
			continue
		}
		qty += sanitize(l.Qty)
		notional += sanitize(l.Qty) * sanitize(l.Price)
	}
	if qty == 0 {
		return 0
	}
	return notional / qty
}

// AvgEntryPrice returns the quantity-weighted mean over all entry legs.
func AvgEntryPrice(t *models.Trade) float64 {
	return weightedAvg(t.EntryLegs())
}

// AvgExitPrice returns the quantity-weighted mean over all exit legs.
func AvgExitPrice(t *models.Trade) float64 {
	return weightedAvg(t.ExitLegs())
}

// PositionSize is average entry price times total entered quantity.
func PositionSize(t *models.Trade) float64 {
	return AvgEntryPrice(t) * t.TotalEntryQty()
}

// Allocation expresses position size as a percentage of the portfolio at
// the trade's entry date.
func Allocation(t *models.Trade, sizeAt SizeAt) float64 {
	size := lookupSize(sizeAt, t.EntryDate)
	return PositionSize(t) / size * 100
}

// SLPercent is the stop distance from average entry, as a percentage.
func SLPercent(t *models.Trade) float64 {
	entry := AvgEntryPrice(t)
	if entry == 0 || t.StopLoss <= 0 {
		return 0
	}
	return math.Abs(entry-sanitize(t.StopLoss)) / entry * 100
}

// ExitedQty sums the quantities of all valid exit legs.
func ExitedQty(t *models.Trade) float64 {
	var total float64
	for _, l := range t.ExitLegs() {
		if l.Valid() {
			total += sanitize(l.Qty)
		}
	}
	return total
}

// OpenQty is the entered quantity not yet exited, clamped at zero.
func OpenQty(t *models.Trade) float64 {
	open := t.TotalEntryQty() - ExitedQty(t)
	if open < 0 {
		return 0
	}
	return open
}

// DeriveStatus maps quantities to a lifecycle status: nothing exited is
// OPEN, everything exited is CLOSED, anything between is PARTIAL.
func DeriveStatus(t *models.Trade) models.TradeStatus {
	total := t.TotalEntryQty()
	exited := ExitedQty(t)
	switch {
	case exited <= 0:
		return models.StatusOpen
	case exited >= total && total > 0:
		return models.StatusClosed
	default:
		return models.StatusPartial
	}
}

// effectivePrice is the per-share price the position is measured against:
// current market price while open, average exit once closed, and a
// quantity-weighted blend of the two for partially exited trades.
func effectivePrice(t *models.Trade, status models.TradeStatus) float64 {
	switch status {
	case models.StatusClosed:
		return AvgExitPrice(t)
	case models.StatusPartial:
		total := t.TotalEntryQty()
		if total == 0 {
			return 0
		}
		exited := ExitedQty(t)
		open := total - exited
		return (AvgExitPrice(t)*exited + sanitize(t.CMP)*open) / total
	default:
		return sanitize(t.CMP)
	}
}

// StockMove is the percentage move of the stock relative to average
// entry, signed by trade direction so a favorable move is positive for
// both longs and shorts.
func StockMove(t *models.Trade, status models.TradeStatus) float64 {
	entry := AvgEntryPrice(t)
	if entry == 0 {
		return 0
	}
	price := effectivePrice(t, status)
	if price == 0 {
		return 0
	}
	return (price - entry) / entry * 100 * t.Direction.Sign()
}

// RewardRisk is |reward per share| over |risk per share|, where risk is
// the stop distance and the reward basis mirrors StockMove. Zero risk
// yields a zero ratio.
func RewardRisk(t *models.Trade, status models.TradeStatus) float64 {
	entry := AvgEntryPrice(t)
	risk := math.Abs(entry - sanitize(t.StopLoss))
	if risk == 0 || t.StopLoss <= 0 {
		return 0
	}
	price := effectivePrice(t, status)
	if price == 0 {
		return 0
	}
	return math.Abs(price-entry) / risk
}

// HoldingDays is the whole-day span from the entry date to the earliest
// exit date. Open trades report zero: no holding period is final until
// an exit exists.
func HoldingDays(t *models.Trade) int {
	exit := t.EarliestExitDate()
	if exit.IsZero() {
		return 0
	}
	start := t.EntryDate
	if start.IsZero() {
		// Fall back to the first dated entry leg.
		for _, l := range t.EntryLegs() {
			if l.Valid() && !l.Date.IsZero() {
				start = l.Date
				break
			}
		}
	}
	if start.IsZero() || exit.Before(start) {
		return 0
	}
	return int(exit.Sub(start).Hours() / 24)
}

// RealizedAmount is the exit proceeds over all valid exit legs.
func RealizedAmount(t *models.Trade) float64 {
	var total float64
	for _, l := range t.ExitLegs() {
		if l.Valid() {
			total += sanitize(l.Price) * sanitize(l.Qty)
		}
	}
	return total
}

// RealizedPL is the FIFO-matched realized P/L over the exited quantity.
func RealizedPL(t *models.Trade) float64 {
	return FIFOMatch(t.EntryLegs(), t.ExitLegs(), t.Direction.Sign()).TotalPL
}

// UnrealizedPL marks the open quantity to the current market price
// against average entry.
func UnrealizedPL(t *models.Trade) float64 {
	open := OpenQty(t)
	if open == 0 || sanitize(t.CMP) == 0 {
		return 0
	}
	return (sanitize(t.CMP) - AvgEntryPrice(t)) * open * t.Direction.Sign()
}

// TotalPL is realized plus unrealized P/L, the accrual-basis view.
func TotalPL(t *models.Trade) float64 {
	return RealizedPL(t) + UnrealizedPL(t)
}

// PortfolioImpact expresses an attributed P/L as a percentage of
// portfolio size.
func PortfolioImpact(pl, portfolioSize float64) float64 {
	if portfolioSize <= 0 {
		portfolioSize = models.DefaultPortfolioSize
	}
	return sanitize(pl) / portfolioSize * 100
}

// Compute fills every method-independent derived field on the trade and
// refreshes the auto-derived status. Method-dependent fields (the
// per-method P/L and portfolio impact caches, PFImpact, CumPF) are owned
// by the recalculation orchestrator.
func Compute(t *models.Trade, sizeAt SizeAt) {
	t.Status.SetDerived(DeriveStatus(t))
	status := t.Status.Value

	t.AvgEntry = AvgEntryPrice(t)
	t.PositionSize = PositionSize(t)
	t.Allocation = Allocation(t, sizeAt)
	t.SLPercent = SLPercent(t)
	t.ExitedQty = ExitedQty(t)
	t.OpenQty = OpenQty(t)
	t.AvgExit = AvgExitPrice(t)
	t.StockMove = StockMove(t, status)
	t.RewardRisk = RewardRisk(t, status)
	t.HoldingDays = HoldingDays(t)
	t.Realized = RealizedAmount(t)
	t.RealizedPL = RealizedPL(t)
}

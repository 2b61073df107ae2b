// Package analytics derives reporting metrics from an already
// recalculated trade collection: drawdown from peak, the equity curve
// and win/loss summaries.
package analytics

import (
	"sort"
	"time"

	"tradefolio/internal/accounting"
	"tradefolio/internal/models"
)

// DrawdownPoint is one step of a running-peak walk over a cumulative
// performance sequence. Values are percentage points.
type DrawdownPoint struct {
	Cumulative float64
	Peak       float64
	Drawdown   float64 // distance below the running peak, >= 0
}

// DrawdownSeries computes the running peak and drawdown-from-peak over a
// cumulative performance sequence, in the order given.
func DrawdownSeries(cumulative []float64) []DrawdownPoint {
	points := make([]DrawdownPoint, len(cumulative))
	var peak float64
	for i, c := range cumulative {
		if i == 0 || c > peak {
			peak = c
		}
		points[i] = DrawdownPoint{Cumulative: c, Peak: peak, Drawdown: peak - c}
	}
	return points
}

// MaxDrawdown returns the deepest drawdown in the sequence.
func MaxDrawdown(cumulative []float64) float64 {
	var max float64
	for _, p := range DrawdownSeries(cumulative) {
		if p.Drawdown > max {
			max = p.Drawdown
		}
	}
	return max
}

// Drawdown computes the drawdown series over the full chronological
// trade history, independent of any display ordering. Open trades carry
// no attributed impact and are skipped.
func Drawdown(trades []*models.Trade) []DrawdownPoint {
	ordered := make([]*models.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryDate.Before(ordered[j].EntryDate)
	})
	return DrawdownSeries(cumulativeOf(ordered))
}

// DrawdownOverView computes the drawdown series over the caller's
// currently materialized (possibly sorted or filtered) view, as a
// separate metric from the chronological default.
func DrawdownOverView(view []*models.Trade) []DrawdownPoint {
	return DrawdownSeries(cumulativeOf(view))
}

func cumulativeOf(trades []*models.Trade) []float64 {
	var running float64
	var out []float64
	for _, t := range trades {
		if t.Status.Value == models.StatusOpen {
			continue
		}
		running += t.PFImpact
		out = append(out, running)
	}
	return out
}

// EquityPoint is one dated point of the cumulative portfolio-fraction
// performance curve.
type EquityPoint struct {
	Date  time.Time
	CumPF float64
}

// EquityCurve builds the dated cumulative performance curve under the
// given accounting method, ordered by attribution date. Cash basis
// plots one point per exit leg; accrual plots one point per trade at
// its entry date.
func EquityCurve(trades []*models.Trade, method models.AccountingMethod) []EquityPoint {
	type dated struct {
		date   time.Time
		impact float64
	}
	var events []dated
	if method == models.Cash {
		for _, e := range accounting.ExpandAll(trades) {
			if e.Open {
				continue
			}
			// Spread the trade's cached impact over its legs by P/L share.
			impact := e.Trade.CashPFImpact
			if total := e.Trade.CashPL; total != 0 {
				impact = e.Trade.CashPFImpact * e.PL / total
			}
			events = append(events, dated{e.Date, impact})
		}
	} else {
		for _, t := range trades {
			if t.Status.Value == models.StatusOpen {
				continue
			}
			events = append(events, dated{t.EntryDate, t.AccrualPFImpact})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].date.Before(events[j].date) })

	curve := make([]EquityPoint, len(events))
	var running float64
	for i, ev := range events {
		running += ev.impact
		curve[i] = EquityPoint{Date: ev.date, CumPF: running}
	}
	return curve
}

// Summary aggregates win/loss statistics over non-open trades under the
// active accounting method.
type Summary struct {
	Trades     int
	Wins       int
	Losses     int
	WinRate    float64 // percent
	TotalPL    float64
	AvgWin     float64
	AvgLoss    float64
	Expectancy float64 // average P/L per closed trade
}

// Summarize computes the win/loss summary. Trades with exactly zero P/L
// count as losses, matching the usual journal convention of not
// flattering scratch trades.
func Summarize(trades []*models.Trade, method models.AccountingMethod) Summary {
	var s Summary
	var winPL, lossPL float64
	for _, t := range trades {
		if t.Status.Value == models.StatusOpen {
			continue
		}
		pl := t.AccrualPL
		if method == models.Cash {
			pl = t.CashPL
		}
		s.Trades++
		s.TotalPL += pl
		if pl > 0 {
			s.Wins++
			winPL += pl
		} else {
			s.Losses++
			lossPL += pl
		}
	}
	if s.Trades == 0 {
		return s
	}
	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	if s.Wins > 0 {
		s.AvgWin = winPL / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = lossPL / float64(s.Losses)
	}
	s.Expectancy = s.TotalPL / float64(s.Trades)
	return s
}

// Package recalc re-derives every calculated trade field whenever the
// journal changes. It owns chronological ordering, trade renumbering,
// the per-method P/L caches, the display-order cumulative sequence and
// an input-fingerprint memoization table.
package recalc

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"tradefolio/internal/metrics"
	"tradefolio/internal/models"
	"tradefolio/internal/portfolio"
)

// Orchestrator runs full recalculation passes over the trade collection.
// It holds no state between invocations other than the memoization
// table, which is keyed by a content hash of the inputs and cleared by
// Invalidate.
type Orchestrator struct {
	builder  *portfolio.Builder
	logger   zerolog.Logger
	renumber bool

	mu   sync.Mutex
	memo map[uint64][]*models.Trade
}

// New creates an orchestrator over the given snapshot builder.
func New(builder *portfolio.Builder, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		builder:  builder,
		logger:   logger,
		renumber: true,
		memo:     make(map[uint64][]*models.Trade),
	}
}

// SetBuilder swaps the capital view used for sizing. The memoization
// table is keyed on trades and method only, so callers swapping in a
// builder over changed capital state must also call Invalidate.
func (o *Orchestrator) SetBuilder(builder *portfolio.Builder) {
	o.builder = builder
}

// SetRenumber controls whether passes reassign sequential trade
// numbers. Disabled, trades keep their stored numbers and only the
// ordering changes.
func (o *Orchestrator) SetRenumber(renumber bool) {
	o.renumber = renumber
}

// Invalidate drops all memoized results. Call it after any capital
// configuration change, since the fingerprint covers trades and method
// but capital state lives in the builder.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	o.memo = make(map[uint64][]*models.Trade)
	o.mu.Unlock()
}

// RecalculateAll sorts the trades chronologically, reassigns sequential
// trade numbers (unless renumbering is switched off), and recomputes
// every derived field in order. The renumbering is a side effect on
// trade identity that callers must persist.
//
// Both accounting views are computed and cached on each trade: accrual
// sizes portfolio impact at the entry month, cash at the latest exit
// month. PFImpact then selects the active method's value, so a later
// method toggle needs only SelectMethod, not a recompute.
//
// fast skips the per-trade calculations entirely (trades are only
// sorted and renumbered) to give an instant response on bulk load; a
// full pass over the same input converges to the same final state.
//
// Portfolio sizing uses the builder's capital-only view (pass 1 of the
// two-pass protocol); callers rebuild monthly snapshots from the
// returned trades for the pass-2 view. Collapsing the two passes into
// one lookup would read trade P/L while computing it.
func (o *Orchestrator) RecalculateAll(trades []*models.Trade, method models.AccountingMethod, fast bool) []*models.Trade {
	sortChronological(trades)
	if o.renumber {
		for i, t := range trades {
			t.TradeNo = i + 1
		}
	}
	if fast {
		return trades
	}

	key := fingerprint(trades, method)
	o.mu.Lock()
	if cached, ok := o.memo[key]; ok && len(cached) == len(trades) {
		for i, c := range cached {
			*trades[i] = *c
		}
		o.mu.Unlock()
		o.logger.Debug().Uint64("fingerprint", key).Msg("recalculation served from memo")
		return trades
	}
	o.mu.Unlock()

	// The engine is single-threaded on purpose: each pass runs to
	// completion before the next event is processed.
	sizeAt := o.builder.CapitalOnlySizeFunc()
	for _, t := range trades {
		metrics.Compute(t, sizeAt)

		t.AccrualPL = metrics.TotalPL(t)
		t.CashPL = metrics.RealizedPL(t)

		entrySize := sizeAt(t.EntryDate)
		exitSize := sizeAt(t.LatestExitDate())
		if t.Status.Value == models.StatusOpen {
			// Open trades have no attributed impact yet.
			t.AccrualPFImpact = 0
			t.CashPFImpact = 0
		} else {
			t.AccrualPFImpact = metrics.PortfolioImpact(t.AccrualPL, entrySize)
			t.CashPFImpact = metrics.PortfolioImpact(t.CashPL, exitSize)
		}
	}
	SelectMethod(trades, method)
	ApplyCumulative(trades)

	o.mu.Lock()
	o.memo[key] = cloneAll(trades)
	o.mu.Unlock()

	o.logger.Debug().
		Int("trades", len(trades)).
		Str("method", string(method)).
		Msg("full recalculation complete")
	return trades
}

// SelectMethod points PFImpact at the cached value for the active
// accounting method. This is the whole cost of a method toggle.
func SelectMethod(trades []*models.Trade, method models.AccountingMethod) {
	for _, t := range trades {
		if method == models.Cash {
			t.PFImpact = t.CashPFImpact
		} else {
			t.PFImpact = t.AccrualPFImpact
		}
	}
}

// ApplyCumulative walks trades in the given order and stores the running
// sum of portfolio impact, skipping open trades. The order is whatever
// sequence the caller has materialized for display, so re-sorting or
// filtering the view changes each trade's cumulative value. That is
// intentional: the cumulative column stays meaningful relative to the
// ordering the user is looking at, so no single global value is cached.
func ApplyCumulative(view []*models.Trade) {
	var running float64
	for _, t := range view {
		if t.Status.Value != models.StatusOpen {
			running += t.PFImpact
		}
		t.CumPF = running
	}
}

// sortChronological orders trades by entry date, stable, with malformed
// (zero) dates sorted to the end and ties broken by trade-number string
// comparison.
func sortChronological(trades []*models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		switch {
		case a.EntryDate.IsZero() && b.EntryDate.IsZero():
			return fmt.Sprint(a.TradeNo) < fmt.Sprint(b.TradeNo)
		case a.EntryDate.IsZero():
			return false
		case b.EntryDate.IsZero():
			return true
		case a.EntryDate.Equal(b.EntryDate):
			return fmt.Sprint(a.TradeNo) < fmt.Sprint(b.TradeNo)
		default:
			return a.EntryDate.Before(b.EntryDate)
		}
	})
}

// fingerprint hashes the raw inputs of a recalculation pass. Derived
// fields are deliberately excluded so a memo hit survives its own
// output.
func fingerprint(trades []*models.Trade, method models.AccountingMethod) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|", method)
	for _, t := range trades {
		fmt.Fprintf(h, "%s|%s|%s|%d|%g|%g|%g|%g|",
			t.ID, t.Symbol, t.Direction, t.EntryDate.UnixNano(),
			t.Entry, t.Quantity, t.StopLoss, t.CMP)
		if t.Status.Overridden {
			// Auto-derived status is an output, not an input.
			fmt.Fprintf(h, "override=%s|", t.Status.Value)
		}
		for _, l := range []models.Leg{t.Pyramid1, t.Pyramid2, t.Exit1, t.Exit2, t.Exit3} {
			fmt.Fprintf(h, "%g|%g|%d|", l.Price, l.Qty, l.Date.UnixNano())
		}
	}
	return h.Sum64()
}

func cloneAll(trades []*models.Trade) []*models.Trade {
	out := make([]*models.Trade, len(trades))
	for i, t := range trades {
		out[i] = t.Clone()
	}
	return out
}

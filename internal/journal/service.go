// Package journal wires the persistence collaborator to the valuation
// engine: it loads journal state, runs recalculation passes, merges the
// derived values back into the authoritative records and persists them.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	errs "tradefolio/internal/errors"
	"tradefolio/internal/models"
	"tradefolio/internal/portfolio"
	"tradefolio/internal/recalc"
	"tradefolio/internal/store"
	"tradefolio/internal/xirr"
	"tradefolio/pkg/utils"
)

// Service owns one user's journal. All computation is synchronous: each
// state-change event runs to completion before the next is processed.
// The orchestrator lives for the service's lifetime so its memoization
// table survives across recalculation passes.
type Service struct {
	store          store.DataStore
	logger         zerolog.Logger
	method         models.AccountingMethod
	orch           *recalc.Orchestrator
	defaultCapital float64
}

// NewService creates a journal service over the given store.
func NewService(st store.DataStore, method models.AccountingMethod, logger zerolog.Logger) *Service {
	if !method.Valid() {
		method = models.Accrual
	}
	return &Service{
		store:  st,
		logger: logger,
		method: method,
		orch:   recalc.New(nil, logger),
	}
}

// SetDefaultCapital replaces the fallback portfolio size used when no
// capital anchor covers a date. Non-positive amounts keep the built-in
// default.
func (s *Service) SetDefaultCapital(amount float64) {
	if amount > 0 && amount != s.defaultCapital {
		s.defaultCapital = amount
		s.orch.Invalidate()
	}
}

// SetRenumber controls whether recalculation reassigns sequential trade
// numbers.
func (s *Service) SetRenumber(renumber bool) {
	s.orch.SetRenumber(renumber)
}

// Invalidate drops memoized recalculation results. Callers that write
// capital state to the store directly, bypassing the service's capital
// methods, must invalidate before the next recalculation.
func (s *Service) Invalidate() {
	s.orch.Invalidate()
}

// Method returns the active accounting method.
func (s *Service) Method() models.AccountingMethod { return s.method }

// SetMethod switches the accounting convention. Everything derived is
// re-selected from the per-method caches on the next recalculation.
func (s *Service) SetMethod(method models.AccountingMethod) error {
	if !method.Valid() {
		return errs.ErrInvalidMethod
	}
	s.method = method
	return nil
}

// State is one fully materialized view of the journal: recalculated
// trades, the snapshot builder over current capital configuration, and
// the orchestrator that produced the trades.
type State struct {
	Trades  []*models.Trade
	Builder *portfolio.Builder
	Changes []models.CapitalChange
}

// Load reads all journal state from the store and builds the capital
// ledger. Empty or partial results are treated as "no data yet".
func (s *Service) Load(ctx context.Context) (*State, error) {
	trades, err := s.store.GetAllTrades(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "loading trades")
	}
	changes, err := s.store.GetCapitalChanges(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "loading capital changes")
	}
	yearly, err := s.store.GetYearlyStartingCapitals(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "loading yearly capitals")
	}
	overrides, err := s.store.GetMonthlyOverrides(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "loading monthly overrides")
	}

	ledger := portfolio.NewLedger(yearly, overrides, changes)
	ledger.SetFallback(s.defaultCapital)
	builder := portfolio.NewBuilder(ledger)
	return &State{Trades: trades, Builder: builder, Changes: changes}, nil
}

// Recalculate loads the journal, runs a recalculation pass and persists
// the result, renumbering included. A persistence failure is logged and
// returned but the recomputed in-memory state is kept: derived state is
// optimistic, persistence eventual.
func (s *Service) Recalculate(ctx context.Context, fast bool) (*State, error) {
	started := time.Now()
	state, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.orch.SetBuilder(state.Builder)
	s.orch.RecalculateAll(state.Trades, s.method, fast)

	// The save rewrites every row in one transaction, so a concurrent
	// writer holding the database briefly is worth a couple of retries.
	err = utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		return s.store.SaveAllTrades(ctx, state.Trades)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("persisting recalculated trades failed")
		return state, errs.NewStoreError("trades", "save", err)
	}

	s.logger.Debug().
		Int("trades", len(state.Trades)).
		Str("method", string(s.method)).
		Bool("fast", fast).
		Dur("duration", time.Since(started)).
		Msg("journal recalculated")
	return state, nil
}

// Snapshots returns the complete monthly series for the journal under
// the active accounting method (pass 2 of the two-pass protocol: trade
// P/L is already known at this point).
func (s *Service) Snapshots(state *State) []models.MonthlyPortfolioSnapshot {
	return state.Builder.AllMonthly(state.Trades, s.method)
}

// AddTrade stores a new trade and recalculates.
func (s *Service) AddTrade(ctx context.Context, trade *models.Trade) (*State, error) {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.Status.Value == "" {
		trade.Status = models.Derived(models.StatusOpen)
	}
	if err := s.store.SaveTrade(ctx, trade); err != nil {
		return nil, errs.NewStoreError("trades", "save", err)
	}
	return s.Recalculate(ctx, false)
}

// UpdateTrade stores an edited trade and recalculates.
func (s *Service) UpdateTrade(ctx context.Context, trade *models.Trade) (*State, error) {
	if _, err := s.store.GetTrade(ctx, trade.ID); err != nil {
		if errs.Is(err, errs.ErrTradeNotFound) {
			return nil, err
		}
		return nil, errs.NewStoreError("trades", "get", err)
	}
	if err := s.store.SaveTrade(ctx, trade); err != nil {
		return nil, errs.NewStoreError("trades", "save", err)
	}
	return s.Recalculate(ctx, false)
}

// DeleteTrade removes a trade and recalculates.
func (s *Service) DeleteTrade(ctx context.Context, id string) (*State, error) {
	if err := s.store.DeleteTrade(ctx, id); err != nil {
		return nil, errs.NewStoreError("trades", "delete", err)
	}
	return s.Recalculate(ctx, false)
}

// AddCapitalChange records a deposit or withdrawal and recalculates.
func (s *Service) AddCapitalChange(ctx context.Context, change models.CapitalChange) (*State, error) {
	if change.Amount <= 0 {
		return nil, errs.ErrInvalidAmount
	}
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if err := s.store.SaveCapitalChange(ctx, change); err != nil {
		return nil, errs.NewStoreError("capital_changes", "save", err)
	}
	// The fingerprint covers trades and method only; capital state
	// lives in the builder, so memoized results are stale now.
	s.orch.Invalidate()
	return s.Recalculate(ctx, false)
}

// SetYearlyCapital anchors a year's starting capital and recalculates.
func (s *Service) SetYearlyCapital(ctx context.Context, year int, amount float64) (*State, error) {
	if amount <= 0 {
		return nil, errs.ErrInvalidAmount
	}
	if err := s.store.SetYearlyStartingCapital(ctx, year, amount); err != nil {
		return nil, errs.NewStoreError("yearly_capitals", "set", err)
	}
	s.orch.Invalidate()
	return s.Recalculate(ctx, false)
}

// SetMonthlyOverride pins one month's starting capital and recalculates.
func (s *Service) SetMonthlyOverride(ctx context.Context, override models.MonthlyOverride) (*State, error) {
	if override.Amount <= 0 {
		return nil, errs.ErrInvalidAmount
	}
	if err := s.store.SetMonthlyOverride(ctx, override); err != nil {
		return nil, errs.NewStoreError("monthly_overrides", "set", err)
	}
	s.orch.Invalidate()
	return s.Recalculate(ctx, false)
}

// AnnualizedReturn computes the XIRR between two months of the journal:
// start value is the first month's starting capital, end value the last
// month's ending capital, with the capital changes between them as
// interim flows (deposits positive, withdrawals negative).
func (s *Service) AnnualizedReturn(state *State, fromMonth time.Month, fromYear int, toMonth time.Month, toYear int) float64 {
	start := state.Builder.Monthly(fromMonth, fromYear, state.Trades, s.method)
	end := state.Builder.Monthly(toMonth, toYear, state.Trades, s.method)

	startDate := time.Date(fromYear, fromMonth, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(toYear, toMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)

	var interim []xirr.Flow
	for _, c := range state.Changes {
		if c.Date.Before(startDate) || c.Date.After(endDate) {
			continue
		}
		interim = append(interim, xirr.Flow{Date: c.Date, Amount: c.Signed()})
	}
	return xirr.Compute(startDate, start.Starting, endDate, end.Ending, interim)
}

// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradefolio/internal/models"
)

// DataStore defines the interface for journal persistence. The engine
// treats it as a synchronous data provider and tolerates empty results
// as "no data yet"; retries and network failure are the implementation's
// concern.
type DataStore interface {
	// Trades
	GetAllTrades(ctx context.Context) ([]*models.Trade, error)
	SaveAllTrades(ctx context.Context, trades []*models.Trade) error
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	DeleteTrade(ctx context.Context, id string) error

	// Capital changes
	GetCapitalChanges(ctx context.Context) ([]models.CapitalChange, error)
	SaveCapitalChange(ctx context.Context, change models.CapitalChange) error
	DeleteCapitalChange(ctx context.Context, id string) error

	// Yearly starting capital anchors
	GetYearlyStartingCapitals(ctx context.Context) ([]models.YearlyStartingCapital, error)
	SetYearlyStartingCapital(ctx context.Context, year int, amount float64) error

	// Monthly starting-capital overrides
	GetMonthlyOverrides(ctx context.Context) ([]models.MonthlyOverride, error)
	GetMonthlyOverride(ctx context.Context, month time.Month, year int) (*models.MonthlyOverride, error)
	SetMonthlyOverride(ctx context.Context, override models.MonthlyOverride) error
	DeleteMonthlyOverride(ctx context.Context, month time.Month, year int) error

	// Lifecycle
	Close() error
}

// TradeFilter narrows trade listings for display.
type TradeFilter struct {
	Symbol    string
	Status    models.TradeStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// Match reports whether a trade passes the filter.
func (f TradeFilter) Match(t *models.Trade) bool {
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.Status != "" && t.Status.Value != f.Status {
		return false
	}
	if !f.StartDate.IsZero() && t.EntryDate.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && t.EntryDate.After(f.EndDate) {
		return false
	}
	return true
}

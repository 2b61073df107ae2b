// Package models provides domain models for the trading journal.
package models

// Direction represents the direction of a trade.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for long trades and -1 for short trades. P/L formulas
// multiply price differences by this sign so one code path serves both
// directions.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusOpen    TradeStatus = "OPEN"
	StatusPartial TradeStatus = "PARTIAL"
	StatusClosed  TradeStatus = "CLOSED"
)

// AccountingMethod selects how P/L is attributed to dates.
type AccountingMethod string

const (
	// Accrual attributes full (realized + unrealized) P/L to the entry date.
	Accrual AccountingMethod = "accrual"
	// Cash attributes only realized P/L, dated to the exit leg that realized it.
	Cash AccountingMethod = "cash"
)

// Valid reports whether m is a known accounting method.
func (m AccountingMethod) Valid() bool {
	return m == Accrual || m == Cash
}

// DefaultPortfolioSize is the fallback capital used whenever no starting
// capital is configured for a date, so derived metrics stay deterministic
// on missing configuration.
const DefaultPortfolioSize = 100_000.0

// CapitalChangeType distinguishes deposits from withdrawals.
type CapitalChangeType string

const (
	Deposit  CapitalChangeType = "DEPOSIT"
	Withdraw CapitalChangeType = "WITHDRAW"
)

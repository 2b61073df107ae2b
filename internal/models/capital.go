package models

import "time"

// CapitalChange is a deposit into or withdrawal from the portfolio,
// effective on a specific date. The snapshot builder consumes these
// read-only when deriving monthly capital.
type CapitalChange struct {
	ID          string
	Type        CapitalChangeType
	Amount      float64 // always positive; sign comes from Type
	Date        time.Time
	Description string
}

// Signed returns the amount with deposit positive and withdrawal negative.
func (c CapitalChange) Signed() float64 {
	if c.Type == Withdraw {
		return -c.Amount
	}
	return c.Amount
}

// YearlyStartingCapital anchors the portfolio's capital at the start of a
// calendar year. At most one anchor exists per year.
type YearlyStartingCapital struct {
	Year      int
	Amount    float64
	UpdatedAt time.Time
}

// MonthlyOverride pins the starting capital of one specific month,
// taking priority over the month-to-month cascade.
type MonthlyOverride struct {
	Month  time.Month
	Year   int
	Amount float64
}

// MonthlyPortfolioSnapshot is the derived capital statement for one
// month. It is recomputed on demand, never persisted as authoritative.
// Invariant: Ending = Starting + CapitalChange + PL.
type MonthlyPortfolioSnapshot struct {
	Month         time.Month
	Year          int
	Starting      float64
	CapitalChange float64
	PL            float64
	Ending        float64
}

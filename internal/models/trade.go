package models

import "time"

// Leg is one priced quantity with an effective date. Trades carry up to
// three entry legs (initial entry plus two pyramids) and up to three exit
// legs (staged exits).
type Leg struct {
	Price float64
	Qty   float64
	Date  time.Time
}

// Valid reports whether the leg participates in aggregate calculations.
// Legs with non-positive price or quantity are excluded rather than
// treated as errors.
func (l Leg) Valid() bool {
	return l.Qty > 0 && l.Price > 0
}

// Trade represents one logged position with its raw inputs and every
// derived field. Derived fields are owned by the metrics calculator and
// are overwritten on every recalculation; only Status carries a
// user-override marker.
type Trade struct {
	ID      string
	TradeNo int

	Symbol    string
	Direction Direction

	// Initial entry plus up to two pyramided entries.
	EntryDate time.Time
	Entry     float64
	Quantity  float64
	Pyramid1  Leg
	Pyramid2  Leg

	StopLoss   float64
	TrailingSL float64
	CMP        float64 // current market price

	// Up to three staged exits.
	Exit1 Leg
	Exit2 Leg
	Exit3 Leg

	Status       Derivable[TradeStatus]
	Setup        string
	Notes        string
	PlanFollowed bool

	// Derived fields, recomputed by the metrics calculator.
	AvgEntry     float64
	PositionSize float64
	Allocation   float64 // % of portfolio at entry
	SLPercent    float64
	OpenQty      float64
	ExitedQty    float64
	AvgExit      float64
	StockMove    float64 // % move, sign follows direction
	RewardRisk   float64
	HoldingDays  int
	Realized     float64 // exit proceeds for the exited quantity
	RealizedPL   float64 // FIFO-matched realized P/L
	PFImpact     float64 // attributed P/L as % of portfolio size
	CumPF        float64 // running PF impact in the current display order

	// Both accounting views are computed on every recalculation so a
	// method toggle is a field selection, not a recompute.
	AccrualPL       float64
	CashPL          float64
	AccrualPFImpact float64
	CashPFImpact    float64
}

// EntryLegs returns the trade's entry legs in declaration order: the
// initial entry first, then the pyramids.
func (t *Trade) EntryLegs() []Leg {
	return []Leg{
		{Price: t.Entry, Qty: t.Quantity, Date: t.EntryDate},
		t.Pyramid1,
		t.Pyramid2,
	}
}

// ExitLegs returns the trade's exit legs in declaration order.
func (t *Trade) ExitLegs() []Leg {
	return []Leg{t.Exit1, t.Exit2, t.Exit3}
}

// TotalEntryQty sums the quantities of all valid entry legs.
func (t *Trade) TotalEntryQty() float64 {
	var total float64
	for _, l := range t.EntryLegs() {
		if l.Valid() {
			total += l.Qty
		}
	}
	return total
}

// LatestExitDate returns the latest date across valid exit legs, or the
// zero time when the trade has no exits.
func (t *Trade) LatestExitDate() time.Time {
	var latest time.Time
	for _, l := range t.ExitLegs() {
		if l.Valid() && l.Date.After(latest) {
			latest = l.Date
		}
	}
	return latest
}

// EarliestExitDate returns the earliest date across valid exit legs, or
// the zero time when the trade has no exits.
func (t *Trade) EarliestExitDate() time.Time {
	var earliest time.Time
	for _, l := range t.ExitLegs() {
		if !l.Valid() || l.Date.IsZero() {
			continue
		}
		if earliest.IsZero() || l.Date.Before(earliest) {
			earliest = l.Date
		}
	}
	return earliest
}

// Clone returns a copy of the trade. Legs and derived fields are value
// types, so a struct copy is a deep copy.
func (t *Trade) Clone() *Trade {
	c := *t
	return &c
}

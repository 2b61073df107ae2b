package portfolio

import (
	"testing"
	"time"

	"tradefolio/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestBuilder(yearly []models.YearlyStartingCapital, overrides []models.MonthlyOverride, changes []models.CapitalChange) *Builder {
	return NewBuilder(NewLedger(yearly, overrides, changes))
}

func TestCapitalOnlySizeAt(t *testing.T) {
	b := newTestBuilder(
		[]models.YearlyStartingCapital{{Year: 2024, Amount: 500000}},
		nil,
		[]models.CapitalChange{
			{Type: models.Deposit, Amount: 100000, Date: date(2024, time.February, 10)},
			{Type: models.Withdraw, Amount: 50000, Date: date(2024, time.April, 5)},
		},
	)

	tests := []struct {
		month time.Month
		want  float64
	}{
		{time.January, 500000},
		{time.February, 500000}, // deposit lands at end of February
		{time.March, 600000},
		{time.April, 600000},
		{time.May, 550000},
		{time.December, 550000},
	}
	for _, tt := range tests {
		if got := b.CapitalOnlySizeAt(tt.month, 2024); got != tt.want {
			t.Errorf("CapitalOnlySizeAt(%s) = %v, want %v", tt.month, got, tt.want)
		}
	}
}

func TestStartingCapitalPrecedence(t *testing.T) {
	b := newTestBuilder(
		[]models.YearlyStartingCapital{{Year: 2024, Amount: 500000}},
		[]models.MonthlyOverride{{Year: 2024, Month: time.July, Amount: 900000}},
		[]models.CapitalChange{{Type: models.Deposit, Amount: 100000, Date: date(2024, time.March, 1)}},
	)

	// The override wins regardless of what would cascade in.
	if got := b.CapitalOnlySizeAt(time.July, 2024); got != 900000 {
		t.Errorf("overridden July = %v, want 900000", got)
	}
	// The month after the override cascades from the override.
	if got := b.CapitalOnlySizeAt(time.August, 2024); got != 900000 {
		t.Errorf("August = %v, want 900000", got)
	}
	// Months before the override are untouched by it.
	if got := b.CapitalOnlySizeAt(time.June, 2024); got != 600000 {
		t.Errorf("June = %v, want 600000", got)
	}
}

func TestDefaultCapitalFallback(t *testing.T) {
	b := newTestBuilder(nil, nil, nil)
	if got := b.CapitalOnlySizeAt(time.June, 2024); got != models.DefaultPortfolioSize {
		t.Errorf("unconfigured year = %v, want default %v", got, models.DefaultPortfolioSize)
	}
}

func TestMonthlyPL(t *testing.T) {
	trades := []*models.Trade{
		{
			ID:        "t1",
			Direction: models.Long,
			EntryDate: date(2024, time.March, 1),
			Entry:     100,
			Quantity:  20,
			Exit1:     models.Leg{Price: 150, Qty: 10, Date: date(2024, time.March, 20)},
			Exit2:     models.Leg{Price: 50, Qty: 10, Date: date(2024, time.June, 5)},
		},
	}

	// Accrual books everything in the entry month.
	if got := MonthlyPL(trades, models.Accrual, time.March, 2024); got != 0 {
		t.Errorf("accrual March = %v, want 0 (legs net out)", got)
	}
	if got := MonthlyPL(trades, models.Accrual, time.June, 2024); got != 0 {
		t.Errorf("accrual June = %v, want 0", got)
	}

	// Cash books each leg in its own exit month.
	if got := MonthlyPL(trades, models.Cash, time.March, 2024); got != 500 {
		t.Errorf("cash March = %v, want 500", got)
	}
	if got := MonthlyPL(trades, models.Cash, time.June, 2024); got != -500 {
		t.Errorf("cash June = %v, want -500", got)
	}
	if got := MonthlyPL(trades, models.Cash, time.April, 2024); got != 0 {
		t.Errorf("cash April = %v, want 0", got)
	}
}

func TestMonthlySnapshotInvariant(t *testing.T) {
	b := newTestBuilder(
		[]models.YearlyStartingCapital{{Year: 2024, Amount: 200000}},
		nil,
		[]models.CapitalChange{{Type: models.Deposit, Amount: 30000, Date: date(2024, time.May, 3)}},
	)
	trades := []*models.Trade{
		{
			ID:        "t1",
			Direction: models.Long,
			EntryDate: date(2024, time.May, 10),
			Entry:     100,
			Quantity:  50,
			Exit1:     models.Leg{Price: 120, Qty: 50, Date: date(2024, time.May, 25)},
		},
	}

	snap := b.Monthly(time.May, 2024, trades, models.Accrual)
	if snap.Starting != 200000 {
		t.Errorf("Starting = %v, want 200000", snap.Starting)
	}
	if snap.CapitalChange != 30000 {
		t.Errorf("CapitalChange = %v, want 30000", snap.CapitalChange)
	}
	if snap.PL != 1000 {
		t.Errorf("PL = %v, want 1000", snap.PL)
	}
	if snap.Ending != snap.Starting+snap.CapitalChange+snap.PL {
		t.Errorf("Ending = %v, violates the snapshot identity", snap.Ending)
	}

	// June starts where May ended.
	june := b.Monthly(time.June, 2024, trades, models.Accrual)
	if june.Starting != snap.Ending {
		t.Errorf("June starting = %v, want May ending %v", june.Starting, snap.Ending)
	}
}

func TestAllMonthlyEmptyYear(t *testing.T) {
	b := newTestBuilder([]models.YearlyStartingCapital{{Year: 2024, Amount: 300000}}, nil, nil)

	snapshots := b.AllMonthly(nil, models.Accrual)
	if len(snapshots) != 12 {
		t.Fatalf("got %d snapshots, want a full 12-month series", len(snapshots))
	}
	for i, s := range snapshots {
		if s.Starting != 300000 || s.Ending != 300000 {
			t.Errorf("month %d = %v/%v, want capital carried flat", i+1, s.Starting, s.Ending)
		}
	}
}

func TestAllMonthlyNoConfiguration(t *testing.T) {
	b := newTestBuilder(nil, nil, nil)
	if got := b.AllMonthly(nil, models.Accrual); got != nil {
		t.Errorf("no configuration and no trades should yield nil, got %d snapshots", len(got))
	}
}

func TestAllMonthlyMatchesMonthly(t *testing.T) {
	b := newTestBuilder(
		[]models.YearlyStartingCapital{{Year: 2024, Amount: 400000}},
		[]models.MonthlyOverride{{Year: 2024, Month: time.September, Amount: 450000}},
		[]models.CapitalChange{{Type: models.Withdraw, Amount: 20000, Date: date(2024, time.April, 1)}},
	)
	trades := []*models.Trade{
		{
			ID:        "t1",
			Direction: models.Long,
			EntryDate: date(2024, time.February, 1),
			Entry:     50,
			Quantity:  100,
			Exit1:     models.Leg{Price: 70, Qty: 100, Date: date(2024, time.October, 15)},
		},
	}

	// The iterative series must agree with the per-month recursion.
	for _, snap := range b.AllMonthly(trades, models.Accrual) {
		want := b.Monthly(snap.Month, snap.Year, trades, models.Accrual)
		if snap != want {
			t.Errorf("AllMonthly %s %d = %+v, want %+v", snap.Month, snap.Year, snap, want)
		}
	}
}

func TestAllMonthlySpansTradeYears(t *testing.T) {
	b := newTestBuilder([]models.YearlyStartingCapital{{Year: 2023, Amount: 100000}}, nil, nil)
	trades := []*models.Trade{
		{
			ID:        "t1",
			EntryDate: date(2023, time.December, 1),
			Entry:     10,
			Quantity:  10,
			Exit1:     models.Leg{Price: 12, Qty: 10, Date: date(2024, time.January, 10)},
		},
	}
	snapshots := b.AllMonthly(trades, models.Cash)
	if len(snapshots) != 24 {
		t.Fatalf("got %d snapshots, want 24 across both touched years", len(snapshots))
	}
	if snapshots[0].Year != 2023 || snapshots[23].Year != 2024 {
		t.Errorf("series spans %d..%d, want 2023..2024", snapshots[0].Year, snapshots[23].Year)
	}
}

func TestConfigurableFallbackCapital(t *testing.T) {
	ledger := NewLedger(nil, nil, nil)
	ledger.SetFallback(250000)
	b := NewBuilder(ledger)

	if got := b.CapitalOnlySizeAt(time.March, 2024); got != 250000 {
		t.Errorf("CapitalOnlySizeAt = %v, want configured fallback 250000", got)
	}
	if got := b.Monthly(time.March, 2024, nil, models.Accrual).Starting; got != 250000 {
		t.Errorf("Monthly starting = %v, want configured fallback 250000", got)
	}

	// Non-positive amounts keep the current fallback.
	ledger.SetFallback(0)
	if got := b.CapitalOnlySizeAt(time.March, 2024); got != 250000 {
		t.Errorf("after zero SetFallback = %v, want 250000 kept", got)
	}

	// An anchored year is unaffected by the fallback.
	anchored := NewLedger([]models.YearlyStartingCapital{{Year: 2024, Amount: 400000}}, nil, nil)
	anchored.SetFallback(250000)
	if got := NewBuilder(anchored).CapitalOnlySizeAt(time.June, 2024); got != 400000 {
		t.Errorf("anchored year = %v, want 400000", got)
	}
}

package metrics

import (
	"math"
	"testing"
	"time"

	"tradefolio/internal/models"
)

func fixedSize(size float64) SizeAt {
	return func(time.Time) float64 { return size }
}

func TestAvgEntryPrice(t *testing.T) {
	trade := &models.Trade{
		Entry:    100,
		Quantity: 10,
		Pyramid1: leg(110, 10, 5),
	}
	if got := AvgEntryPrice(trade); got != 105 {
		t.Errorf("AvgEntryPrice = %v, want 105", got)
	}

	// An invalid pyramid leg contributes nothing.
	trade.Pyramid2 = models.Leg{Price: -50, Qty: 5}
	if got := AvgEntryPrice(trade); got != 105 {
		t.Errorf("AvgEntryPrice with invalid leg = %v, want 105", got)
	}
}

func TestAllocation(t *testing.T) {
	trade := &models.Trade{Entry: 100, Quantity: 500}
	if got := Allocation(trade, fixedSize(500000)); got != 10 {
		t.Errorf("Allocation = %v, want 10", got)
	}

	// Nil lookup falls back to the default portfolio size.
	trade = &models.Trade{Entry: 100, Quantity: 100}
	if got := Allocation(trade, nil); got != 10 {
		t.Errorf("Allocation with nil lookup = %v, want 10", got)
	}

	// A non-positive size also falls back rather than dividing by zero.
	if got := Allocation(trade, fixedSize(0)); got != 10 {
		t.Errorf("Allocation with zero size = %v, want 10", got)
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		trade *models.Trade
		want  models.TradeStatus
	}{
		{"no exits", &models.Trade{Entry: 100, Quantity: 10}, models.StatusOpen},
		{"partial exit", &models.Trade{Entry: 100, Quantity: 10, Exit1: leg(110, 4, 5)}, models.StatusPartial},
		{"full exit", &models.Trade{Entry: 100, Quantity: 10, Exit1: leg(110, 10, 5)}, models.StatusClosed},
		{"over exit", &models.Trade{Entry: 100, Quantity: 10, Exit1: leg(110, 15, 5)}, models.StatusClosed},
		{"empty trade", &models.Trade{}, models.StatusOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.trade); got != tt.want {
				t.Errorf("DeriveStatus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStockMove(t *testing.T) {
	// Open long measured against CMP.
	trade := &models.Trade{Direction: models.Long, Entry: 100, Quantity: 10, CMP: 110}
	if got := StockMove(trade, models.StatusOpen); math.Abs(got-10) > 1e-9 {
		t.Errorf("open long StockMove = %v, want 10", got)
	}

	// The same move is negative for a short.
	trade.Direction = models.Short
	if got := StockMove(trade, models.StatusOpen); math.Abs(got+10) > 1e-9 {
		t.Errorf("open short StockMove = %v, want -10", got)
	}

	// Closed trades measure against average exit, CMP is irrelevant.
	trade = &models.Trade{Direction: models.Long, Entry: 100, Quantity: 10, CMP: 999, Exit1: leg(120, 10, 5)}
	if got := StockMove(trade, models.StatusClosed); math.Abs(got-20) > 1e-9 {
		t.Errorf("closed StockMove = %v, want 20", got)
	}

	// Missing CMP on an open trade yields zero, not a -100% move.
	trade = &models.Trade{Direction: models.Long, Entry: 100, Quantity: 10}
	if got := StockMove(trade, models.StatusOpen); got != 0 {
		t.Errorf("StockMove without CMP = %v, want 0", got)
	}
}

func TestRewardRisk(t *testing.T) {
	trade := &models.Trade{Direction: models.Long, Entry: 100, Quantity: 10, StopLoss: 95, CMP: 110}
	if got := RewardRisk(trade, models.StatusOpen); math.Abs(got-2) > 1e-9 {
		t.Errorf("RewardRisk = %v, want 2", got)
	}

	// No stop means no defined ratio.
	trade.StopLoss = 0
	if got := RewardRisk(trade, models.StatusOpen); got != 0 {
		t.Errorf("RewardRisk without stop = %v, want 0", got)
	}
}

func TestHoldingDays(t *testing.T) {
	trade := &models.Trade{
		EntryDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Entry:     100,
		Quantity:  10,
		Exit1:     leg(110, 5, 11),
		Exit2:     leg(120, 5, 21),
	}
	// Measured to the earliest exit.
	if got := HoldingDays(trade); got != 10 {
		t.Errorf("HoldingDays = %v, want 10", got)
	}

	// Open trades have no final holding period.
	trade = &models.Trade{EntryDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Entry: 100, Quantity: 10}
	if got := HoldingDays(trade); got != 0 {
		t.Errorf("open HoldingDays = %v, want 0", got)
	}
}

func TestUnrealizedPL(t *testing.T) {
	trade := &models.Trade{Direction: models.Long, Entry: 100, Quantity: 10, CMP: 110, Exit1: leg(105, 4, 3)}
	// 6 shares still open, marked from 100 to 110.
	if got := UnrealizedPL(trade); math.Abs(got-60) > 1e-9 {
		t.Errorf("UnrealizedPL = %v, want 60", got)
	}

	// Zero CMP means unknown, contributes nothing.
	trade.CMP = 0
	if got := UnrealizedPL(trade); got != 0 {
		t.Errorf("UnrealizedPL without CMP = %v, want 0", got)
	}
}

func TestCompute(t *testing.T) {
	trade := &models.Trade{
		Direction: models.Long,
		EntryDate: time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
		Entry:     100,
		Quantity:  500,
		StopLoss:  92,
		Exit1:     leg(120, 500, 10),
	}
	Compute(trade, fixedSize(500000))

	if trade.Status.Value != models.StatusClosed {
		t.Errorf("Status = %v, want CLOSED", trade.Status.Value)
	}
	if trade.PositionSize != 50000 {
		t.Errorf("PositionSize = %v, want 50000", trade.PositionSize)
	}
	if trade.Allocation != 10 {
		t.Errorf("Allocation = %v, want 10", trade.Allocation)
	}
	if trade.RealizedPL != 10000 {
		t.Errorf("RealizedPL = %v, want 10000", trade.RealizedPL)
	}
	if trade.Realized != 60000 {
		t.Errorf("Realized = %v, want 60000", trade.Realized)
	}
	if trade.OpenQty != 0 || trade.ExitedQty != 500 {
		t.Errorf("OpenQty/ExitedQty = %v/%v, want 0/500", trade.OpenQty, trade.ExitedQty)
	}
}

func TestComputeKeepsStatusOverride(t *testing.T) {
	trade := &models.Trade{Entry: 100, Quantity: 10, Exit1: leg(110, 10, 5)}
	trade.Status.Override(models.StatusPartial)

	Compute(trade, nil)

	// The derivation says CLOSED but the pin wins.
	if trade.Status.Value != models.StatusPartial {
		t.Errorf("Status = %v, want pinned PARTIAL", trade.Status.Value)
	}
	if !trade.Status.Overridden {
		t.Error("override flag lost during Compute")
	}

	trade.Status.ClearOverride()
	Compute(trade, nil)
	if trade.Status.Value != models.StatusClosed {
		t.Errorf("Status after clearing override = %v, want CLOSED", trade.Status.Value)
	}
}

func TestSanitizeMalformedInputs(t *testing.T) {
	trade := &models.Trade{
		Direction: models.Long,
		Entry:     math.NaN(),
		Quantity:  10,
		StopLoss:  math.Inf(1),
		CMP:       math.Inf(-1),
	}
	Compute(trade, nil)

	for name, v := range map[string]float64{
		"AvgEntry":     trade.AvgEntry,
		"PositionSize": trade.PositionSize,
		"Allocation":   trade.Allocation,
		"SLPercent":    trade.SLPercent,
		"StockMove":    trade.StockMove,
		"RewardRisk":   trade.RewardRisk,
		"RealizedPL":   trade.RealizedPL,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, want finite", name, v)
		}
	}
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradefolio/internal/errors"
	"tradefolio/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade() *models.Trade {
	return &models.Trade{
		ID:         "trade-1",
		TradeNo:    1,
		Symbol:     "RELIANCE",
		Direction:  models.Long,
		EntryDate:  time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		Entry:      2450,
		Quantity:   10,
		Pyramid1:   models.Leg{Price: 2500, Qty: 5, Date: time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)},
		StopLoss:   2380,
		CMP:        2520,
		Exit1:      models.Leg{Price: 2600, Qty: 8, Date: time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)},
		Status:     models.Derived(models.StatusPartial),
		Setup:      "breakout",
		Notes:      "weekly base",
		RealizedPL: 1150,
		CumPF:      0.23,
	}
}

func TestTradeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	want := sampleTrade()
	if err := s.SaveTrade(ctx, want); err != nil {
		t.Fatalf("saving: %v", err)
	}

	got, err := s.GetTrade(ctx, want.ID)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if got.Symbol != want.Symbol || got.Direction != want.Direction {
		t.Errorf("identity = %s %s, want %s %s", got.Symbol, got.Direction, want.Symbol, want.Direction)
	}
	if !got.EntryDate.Equal(want.EntryDate) {
		t.Errorf("EntryDate = %v, want %v", got.EntryDate, want.EntryDate)
	}
	if got.Pyramid1 != want.Pyramid1 && !got.Pyramid1.Date.Equal(want.Pyramid1.Date) {
		t.Errorf("Pyramid1 = %+v, want %+v", got.Pyramid1, want.Pyramid1)
	}
	if got.Exit1.Price != want.Exit1.Price || got.Exit1.Qty != want.Exit1.Qty {
		t.Errorf("Exit1 = %+v, want %+v", got.Exit1, want.Exit1)
	}
	if got.Status.Value != models.StatusPartial || got.Status.Overridden {
		t.Errorf("Status = %+v, want derived PARTIAL", got.Status)
	}
	if got.RealizedPL != want.RealizedPL || got.CumPF != want.CumPF {
		t.Errorf("derived fields = %v/%v, want %v/%v", got.RealizedPL, got.CumPF, want.RealizedPL, want.CumPF)
	}

	// An unset leg stays zero rather than acquiring a bogus date.
	if got.Exit2.Valid() || !got.Exit2.Date.IsZero() {
		t.Errorf("Exit2 = %+v, want zero leg", got.Exit2)
	}
}

func TestStatusOverrideSurvivesStorage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	trade := sampleTrade()
	trade.Status.Override(models.StatusClosed)
	if err := s.SaveTrade(ctx, trade); err != nil {
		t.Fatalf("saving: %v", err)
	}
	got, err := s.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if got.Status.Value != models.StatusClosed || !got.Status.Overridden {
		t.Errorf("Status = %+v, want overridden CLOSED", got.Status)
	}
}

func TestSaveTradeUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	trade := sampleTrade()
	if err := s.SaveTrade(ctx, trade); err != nil {
		t.Fatalf("saving: %v", err)
	}
	trade.CMP = 2700
	if err := s.SaveTrade(ctx, trade); err != nil {
		t.Fatalf("re-saving: %v", err)
	}

	all, err := s.GetAllTrades(ctx)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d trades, want 1 after upsert", len(all))
	}
	if all[0].CMP != 2700 {
		t.Errorf("CMP = %v, want updated 2700", all[0].CMP)
	}
}

func TestSaveAllTradesReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stale := sampleTrade()
	stale.ID = "stale"
	if err := s.SaveTrade(ctx, stale); err != nil {
		t.Fatalf("saving: %v", err)
	}

	fresh := sampleTrade()
	if err := s.SaveAllTrades(ctx, []*models.Trade{fresh}); err != nil {
		t.Fatalf("replacing: %v", err)
	}
	all, err := s.GetAllTrades(ctx)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(all) != 1 || all[0].ID != fresh.ID {
		t.Errorf("after replace got %d trades, want only %q", len(all), fresh.ID)
	}
}

func TestGetTradeNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTrade(context.Background(), "missing")
	if !errors.Is(err, errors.ErrTradeNotFound) {
		t.Errorf("err = %v, want ErrTradeNotFound", err)
	}
}

func TestDeleteTrade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	trade := sampleTrade()
	if err := s.SaveTrade(ctx, trade); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := s.DeleteTrade(ctx, trade.ID); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	if err := s.DeleteTrade(ctx, trade.ID); !errors.Is(err, errors.ErrTradeNotFound) {
		t.Errorf("second delete err = %v, want ErrTradeNotFound", err)
	}
}

func TestCapitalChangeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	change := models.CapitalChange{
		ID:          "cc-1",
		Type:        models.Withdraw,
		Amount:      25000,
		Date:        time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC),
		Description: "tax payment",
	}
	if err := s.SaveCapitalChange(ctx, change); err != nil {
		t.Fatalf("saving: %v", err)
	}
	changes, err := s.GetCapitalChanges(ctx)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	got := changes[0]
	if got.Type != models.Withdraw || got.Amount != 25000 || got.Signed() != -25000 {
		t.Errorf("change = %+v, want withdrawal of 25000", got)
	}
	if got.Description != "tax payment" {
		t.Errorf("Description = %q, want %q", got.Description, "tax payment")
	}

	if err := s.DeleteCapitalChange(ctx, "cc-1"); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	if err := s.DeleteCapitalChange(ctx, "cc-1"); !errors.Is(err, errors.ErrCapitalChangeNotFound) {
		t.Errorf("second delete err = %v, want ErrCapitalChangeNotFound", err)
	}
}

func TestYearlyCapital(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SetYearlyStartingCapital(ctx, 2024, 500000); err != nil {
		t.Fatalf("setting: %v", err)
	}
	// Re-setting the same year updates in place.
	if err := s.SetYearlyStartingCapital(ctx, 2024, 600000); err != nil {
		t.Fatalf("updating: %v", err)
	}
	if err := s.SetYearlyStartingCapital(ctx, 2024, -5); !errors.Is(err, errors.ErrInvalidAmount) {
		t.Errorf("negative amount err = %v, want ErrInvalidAmount", err)
	}

	capitals, err := s.GetYearlyStartingCapitals(ctx)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if len(capitals) != 1 || capitals[0].Amount != 600000 {
		t.Errorf("capitals = %+v, want one entry of 600000", capitals)
	}
}

func TestMonthlyOverrideRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	override := models.MonthlyOverride{Year: 2024, Month: time.July, Amount: 550000}
	if err := s.SetMonthlyOverride(ctx, override); err != nil {
		t.Fatalf("setting: %v", err)
	}

	got, err := s.GetMonthlyOverride(ctx, time.July, 2024)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if got.Amount != 550000 {
		t.Errorf("Amount = %v, want 550000", got.Amount)
	}

	if err := s.DeleteMonthlyOverride(ctx, time.July, 2024); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	if _, err := s.GetMonthlyOverride(ctx, time.July, 2024); !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("after delete err = %v, want ErrDataNotFound", err)
	}
}

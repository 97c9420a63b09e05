package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	database := newTestDB(t)
	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}
	ok, err := columnExists(database.DB, "orders", "market")
	if err != nil || !ok {
		t.Fatalf("expected market column, got %v %v", ok, err)
	}
}

func TestUpsertOrderKeepsCreatedAt(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	created := time.UnixMilli(1700000000000)
	o := Order{ID: "c-1", Symbol: "BTCUSDT", Side: "BUY", Type: "LIMIT", Status: "NEW", Price: 50000, Qty: 0.1, CreatedAt: created}
	if err := database.UpsertOrder(ctx, o); err != nil {
		t.Fatalf("insert: %v", err)
	}

	o.Status = "FILLED"
	o.FilledQty = 0.1
	o.AvgPrice = 49999.5
	o.CreatedAt = created.Add(time.Minute)
	o.UpdatedAt = created.Add(time.Minute)
	if err := database.UpsertOrder(ctx, o); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := database.GetOrder(ctx, "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "FILLED" || got.FilledQty != 0.1 || got.AvgPrice != 49999.5 {
		t.Errorf("unexpected order state: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at changed: %v", got.CreatedAt)
	}
	if got.Market != "futures" {
		t.Errorf("expected default market, got %q", got.Market)
	}

	if _, err := database.GetOrder(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersFilters(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	base := time.UnixMilli(1700000000000)

	seed := []Order{
		{ID: "o1", Symbol: "BTCUSDT", Side: "BUY", Type: "LIMIT", Status: "FILLED", Qty: 1, CreatedAt: base},
		{ID: "o2", Symbol: "BTCUSDT", Side: "SELL", Type: "STOP_MARKET", Status: "NEW", Qty: 1, CreatedAt: base.Add(time.Hour)},
		{ID: "o3", Symbol: "ETHUSDT", Side: "BUY", Type: "TAKE_PROFIT_MARKET", Status: "CANCELED", Qty: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "o4", Symbol: "ETHUSDT", Side: "SELL", Type: "MARKET", Status: "FILLED", Qty: 2, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, o := range seed {
		if err := database.UpsertOrder(ctx, o); err != nil {
			t.Fatalf("seed %s: %v", o.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter OrderFilter
		want   []string
	}{
		{"all newest first", OrderFilter{}, []string{"o4", "o3", "o2", "o1"}},
		{"by symbol lowercase", OrderFilter{Symbol: "btcusdt"}, []string{"o2", "o1"}},
		{"by side", OrderFilter{Side: "sell"}, []string{"o4", "o2"}},
		{"by status", OrderFilter{Status: "FILLED"}, []string{"o4", "o1"}},
		{"by type", OrderFilter{Type: "stop_market"}, []string{"o2"}},
		{"time range", OrderFilter{From: base.Add(time.Hour), To: base.Add(2 * time.Hour)}, []string{"o3", "o2"}},
		{"paging", OrderFilter{Limit: 2, Offset: 1}, []string{"o3", "o2"}},
		{"combined", OrderFilter{Symbol: "ETHUSDT", Status: "FILLED"}, []string{"o4"}},
		{"no match", OrderFilter{Symbol: "SOLUSDT"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := database.ListOrders(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			got := make([]string, 0, len(orders))
			for _, o := range orders {
				got = append(got, o.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestListOrdersInvalidFilter(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	bad := []OrderFilter{
		{Side: "LONG"},
		{From: now, To: now.Add(-time.Minute)},
		{Limit: -1},
	}
	for _, f := range bad {
		if _, err := database.ListOrders(ctx, f); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("filter %+v: expected ErrInvalidFilter, got %v", f, err)
		}
	}

	f, err := OrderFilter{Limit: 10000}.Normalize()
	if err != nil || f.Limit != MaxPageSize {
		t.Errorf("expected limit capped to %d, got %d (%v)", MaxPageSize, f.Limit, err)
	}
}

func TestTrades(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	base := time.UnixMilli(1700000000000)

	fills := []Trade{
		{ID: "t2", OrderID: "o1", Symbol: "BTCUSDT", Side: "BUY", Price: 100, Qty: 1, CreatedAt: base.Add(time.Second)},
		{ID: "t1", OrderID: "o1", Symbol: "BTCUSDT", Side: "BUY", Price: 99, Qty: 1, Fee: 0.01, FeeAsset: "USDT", IsMaker: true, CreatedAt: base},
		{ID: "t1", OrderID: "o1", Symbol: "BTCUSDT", Side: "BUY", Price: 99, Qty: 1, CreatedAt: base},
	}
	for _, tr := range fills {
		if err := database.CreateTrade(ctx, tr); err != nil {
			t.Fatalf("create trade: %v", err)
		}
	}

	trades, err := database.ListTrades(ctx, "o1")
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected duplicate fill ignored, got %d trades", len(trades))
	}
	if trades[0].ID != "t1" || !trades[0].IsMaker || trades[0].FeeAsset != "USDT" {
		t.Errorf("unexpected first trade: %+v", trades[0])
	}
}

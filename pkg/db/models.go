package db

import (
	"context"
	"time"
)

// Order is the latest known state of one order from the account stream.
type Order struct {
	ID              string    `json:"id"`
	ExchangeOrderID int64     `json:"exchange_order_id"`
	Symbol          string    `json:"symbol"`
	Side            string    `json:"side"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	Price           float64   `json:"price"`
	StopPrice       float64   `json:"stop_price"`
	Qty             float64   `json:"qty"`
	FilledQty       float64   `json:"filled_qty"`
	AvgPrice        float64   `json:"avg_price"`
	ReduceOnly      bool      `json:"reduce_only"`
	Market          string    `json:"market"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Trade is a single fill of an order.
type Trade struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	Fee       float64   `json:"fee"`
	FeeAsset  string    `json:"fee_asset"`
	IsMaker   bool      `json:"is_maker"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertOrderSQL inserts an order or refreshes the mutable columns of an
// existing row. created_at keeps its first value.
const UpsertOrderSQL = `
	INSERT INTO orders (
		id, exchange_order_id, symbol, side, type, status, price, stop_price,
		qty, filled_qty, avg_price, reduce_only, market, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		exchange_order_id = excluded.exchange_order_id,
		status = excluded.status,
		price = excluded.price,
		stop_price = excluded.stop_price,
		qty = excluded.qty,
		filled_qty = excluded.filled_qty,
		avg_price = excluded.avg_price,
		updated_at = excluded.updated_at
`

// InsertTradeSQL records a fill; replays of the same fill are ignored.
const InsertTradeSQL = `
	INSERT OR IGNORE INTO trades (
		id, order_id, symbol, side, price, qty, fee, fee_asset, is_maker, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Args returns the UpsertOrderSQL parameters.
func (o Order) Args() []any {
	created, updated := o.CreatedAt, o.UpdatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if updated.IsZero() {
		updated = created
	}
	market := o.Market
	if market == "" {
		market = "futures"
	}
	return []any{
		o.ID, o.ExchangeOrderID, o.Symbol, o.Side, o.Type, o.Status, o.Price, o.StopPrice,
		o.Qty, o.FilledQty, o.AvgPrice, boolToInt(o.ReduceOnly), market, created.UnixMilli(), updated.UnixMilli(),
	}
}

// Args returns the InsertTradeSQL parameters.
func (t Trade) Args() []any {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []any{
		t.ID, t.OrderID, t.Symbol, t.Side, t.Price, t.Qty, t.Fee, t.FeeAsset, boolToInt(t.IsMaker), created.UnixMilli(),
	}
}

// UpsertOrder writes one order immediately.
func (d *Database) UpsertOrder(ctx context.Context, o Order) error {
	_, err := d.DB.ExecContext(ctx, UpsertOrderSQL, o.Args()...)
	return err
}

// CreateTrade writes one fill immediately.
func (d *Database) CreateTrade(ctx context.Context, t Trade) error {
	_, err := d.DB.ExecContext(ctx, InsertTradeSQL, t.Args()...)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package db stores the order and fill history received from the account
// stream in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidFilter = errors.New("invalid filter")
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	Symbol string
	Side   string
	Status string
	Type   string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Normalize uppercases enum fields and applies paging defaults.
func (f OrderFilter) Normalize() (OrderFilter, error) {
	f.Symbol = strings.ToUpper(strings.TrimSpace(f.Symbol))
	f.Side = strings.ToUpper(strings.TrimSpace(f.Side))
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))

	if f.Side != "" && f.Side != "BUY" && f.Side != "SELL" {
		return f, fmt.Errorf("%w: side %q", ErrInvalidFilter, f.Side)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("%w: to before from", ErrInvalidFilter)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return f, fmt.Errorf("%w: negative paging", ErrInvalidFilter)
	}
	if f.Limit == 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f, nil
}

const orderColumns = `id, exchange_order_id, symbol, side, type, status, price, stop_price,
	qty, filled_qty, avg_price, reduce_only, market, created_at, updated_at`

// ListOrders returns orders matching f, most recently updated first.
func (d *Database) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if f.Symbol != "" {
		add("symbol = ?", f.Symbol)
	}
	if f.Side != "" {
		add("side = ?", f.Side)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Type != "" {
		add("type = ?", f.Type)
	}
	if !f.From.IsZero() {
		add("created_at >= ?", f.From.UnixMilli())
	}
	if !f.To.IsZero() {
		add("created_at <= ?", f.To.UnixMilli())
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetOrder loads one order by id.
func (d *Database) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := d.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListTrades returns the fills of one order, oldest first.
func (d *Database) ListTrades(ctx context.Context, orderID string) ([]Trade, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, order_id, symbol, side, price, qty, fee, fee_asset, is_maker, created_at
		FROM trades
		WHERE order_id = ?
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]Trade, 0)
	for rows.Next() {
		var (
			t       Trade
			maker   int
			created int64
		)
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Side, &t.Price, &t.Qty, &t.Fee, &t.FeeAsset, &maker, &created); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.IsMaker = maker != 0
		t.CreatedAt = time.UnixMilli(created)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (Order, error) {
	var (
		o                Order
		reduceOnly       int
		created, updated int64
	)
	err := s.Scan(&o.ID, &o.ExchangeOrderID, &o.Symbol, &o.Side, &o.Type, &o.Status, &o.Price, &o.StopPrice,
		&o.Qty, &o.FilledQty, &o.AvgPrice, &reduceOnly, &o.Market, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return o, err
		}
		return o, fmt.Errorf("scan order: %w", err)
	}
	o.ReduceOnly = reduceOnly != 0
	o.CreatedAt = time.UnixMilli(created)
	o.UpdatedAt = time.UnixMilli(updated)
	return o, nil
}

package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"futures-dash/internal/events"
	"futures-dash/internal/realtime"
	"futures-dash/pkg/db"
)

// OrderUpdate is one parsed order-stream event.
type OrderUpdate struct {
	Order db.Order
	// Fill is set when the event reports an execution.
	Fill *db.Trade
}

var errNoOrder = errors.New("order update without order id")

// ParseOrderUpdate reads an ORDER_TRADE_UPDATE payload. The order fields may
// sit under "o" (raw exchange event) or at the top level. Keys are matched
// exactly since the exchange reuses letters with different case ("s"/"S").
func ParseOrderUpdate(data []byte, market string) (OrderUpdate, error) {
	var top map[string]any
	if err := json.Unmarshal(data, &top); err != nil {
		return OrderUpdate{}, fmt.Errorf("decode order update: %w", err)
	}
	fields := top
	if inner, ok := top["o"].(map[string]any); ok {
		fields = inner
	}

	eventTime := millis(top["E"])
	if eventTime.IsZero() {
		eventTime = millis(fields["T"])
	}
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	id := cast.ToString(fields["c"])
	exchangeID := cast.ToInt64(fields["i"])
	if id == "" && exchangeID != 0 {
		id = cast.ToString(exchangeID)
	}
	if id == "" {
		return OrderUpdate{}, errNoOrder
	}

	order := db.Order{
		ID:              id,
		ExchangeOrderID: exchangeID,
		Symbol:          strings.ToUpper(cast.ToString(fields["s"])),
		Side:            strings.ToUpper(cast.ToString(fields["S"])),
		Type:            strings.ToUpper(cast.ToString(fields["o"])),
		Status:          strings.ToUpper(cast.ToString(fields["X"])),
		Price:           cast.ToFloat64(fields["p"]),
		StopPrice:       cast.ToFloat64(fields["sp"]),
		Qty:             cast.ToFloat64(fields["q"]),
		FilledQty:       cast.ToFloat64(fields["z"]),
		AvgPrice:        cast.ToFloat64(fields["ap"]),
		ReduceOnly:      cast.ToBool(fields["R"]),
		Market:          market,
		CreatedAt:       eventTime,
		UpdatedAt:       eventTime,
	}
	if order.Type == "" {
		// some payloads only carry the original order type
		order.Type = strings.ToUpper(cast.ToString(fields["ot"]))
	}

	update := OrderUpdate{Order: order}
	if strings.EqualFold(cast.ToString(fields["x"]), "TRADE") {
		lastQty := cast.ToFloat64(fields["l"])
		lastPrice := cast.ToFloat64(fields["L"])
		if lastPrice == 0 {
			lastPrice = order.AvgPrice
		}
		tradeID := cast.ToInt64(fields["t"])
		fillID := uuid.NewString()
		if tradeID != 0 {
			fillID = fmt.Sprintf("%s-%d", order.Symbol, tradeID)
		}
		tradeTime := millis(fields["T"])
		if tradeTime.IsZero() {
			tradeTime = eventTime
		}
		update.Fill = &db.Trade{
			ID:        fillID,
			OrderID:   order.ID,
			Symbol:    order.Symbol,
			Side:      order.Side,
			Price:     lastPrice,
			Qty:       lastQty,
			Fee:       cast.ToFloat64(fields["n"]),
			FeeAsset:  cast.ToString(fields["N"]),
			IsMaker:   cast.ToBool(fields["m"]),
			CreatedAt: tradeTime,
		}
	}
	return update, nil
}

func millis(v any) time.Time {
	ms := cast.ToInt64(v)
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// OrderRecorder listens to the account order feed and stores each update.
type OrderRecorder struct {
	Fanout *realtime.Fanout
	Bus    *events.Bus
	Writer *BatchWriter
	Market realtime.Market
	Log    *zap.Logger
}

// Run holds the order feed until ctx is done.
func (r *OrderRecorder) Run(ctx context.Context) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	id, release := r.Fanout.Acquire(realtime.ChannelOrder, "", r.Market)
	defer release()
	stream, unsub := r.Bus.Subscribe(events.FeedTopic(id), 256)
	defer unsub()

	log.Info("recording order updates", zap.String("feed", id))
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-stream:
			if !ok {
				return
			}
			msg, ok := v.(realtime.InboundMessage)
			if !ok {
				continue
			}
			update, err := ParseOrderUpdate(msg.Data, string(msg.Market))
			if err != nil {
				log.Warn("skipping order update", zap.Error(err))
				continue
			}
			r.Record(update)
		}
	}
}

// Record queues the update for the next batch and announces it.
func (r *OrderRecorder) Record(update OrderUpdate) {
	r.Writer.WriteQuery(db.UpsertOrderSQL, update.Order.Args()...)
	if update.Fill != nil {
		r.Writer.WriteQuery(db.InsertTradeSQL, update.Fill.Args()...)
	}
	if r.Bus != nil {
		r.Bus.Publish(events.EventOrderStored, update.Order)
	}
}

package market

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"futures-dash/internal/events"
	"futures-dash/internal/realtime"
	"futures-dash/pkg/cache"
)

// MarkPrice is the latest mark price seen on the live stream.
type MarkPrice struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	IndexPrice  float64   `json:"index_price,omitempty"`
	FundingRate float64   `json:"funding_rate,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Feed keeps mark price feeds open for a fixed symbol list and records the
// last price of each.
type Feed struct {
	Fanout  *realtime.Fanout
	Bus     *events.Bus
	Market  realtime.Market
	Symbols []string
	Prices  *cache.TTLCache[MarkPrice]
	Log     *zap.Logger
}

// Start acquires one mark price feed per symbol until ctx is done.
func (f *Feed) Start(ctx context.Context) {
	if f.Fanout == nil || f.Bus == nil || f.Prices == nil {
		f.logger().Warn("market feed not fully configured; skipping start")
		return
	}

	for _, sym := range f.Symbols {
		id, release := f.Fanout.Acquire(realtime.ChannelMarkPrice, sym, f.Market)
		stream, unsub := f.Bus.Subscribe(events.FeedTopic(id), 100)

		go func() {
			defer release()
			defer unsub()
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
					mp, err := ParseMarkPrice(msg)
					if err != nil {
						f.logger().Debug("mark price parse error", zap.String("id", id), zap.Error(err))
						continue
					}
					f.Prices.Set(mp.Symbol, mp)
				}
			}
		}()
	}
}

// Mark returns the last mark price for symbol.
func (f *Feed) Mark(symbol string) (MarkPrice, bool) {
	return f.Prices.Get(strings.ToUpper(strings.TrimSpace(symbol)))
}

func (f *Feed) logger() *zap.Logger {
	if f.Log == nil {
		return zap.NewNop()
	}
	return f.Log
}

// ParseMarkPrice reads a mark price payload. Both the exchange's short keys
// ("p", "i", "r") and the backend's long keys are accepted; numbers may be
// strings or JSON numbers.
func ParseMarkPrice(msg realtime.InboundMessage) (MarkPrice, error) {
	var fields map[string]any
	if err := json.Unmarshal(msg.Data, &fields); err != nil {
		return MarkPrice{}, err
	}
	raw := first(fields, "p", "markPrice")
	if raw == nil {
		return MarkPrice{}, errors.New("mark price missing")
	}
	price, err := cast.ToFloat64E(raw)
	if err != nil {
		return MarkPrice{}, err
	}
	mp := MarkPrice{
		Symbol:      msg.Symbol,
		Price:       price,
		IndexPrice:  cast.ToFloat64(first(fields, "i", "indexPrice")),
		FundingRate: cast.ToFloat64(first(fields, "r", "fundingRate")),
		UpdatedAt:   msg.ReceivedAt,
	}
	if mp.UpdatedAt.IsZero() {
		mp.UpdatedAt = time.Now()
	}
	return mp, nil
}

func first(fields map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v
		}
	}
	return nil
}

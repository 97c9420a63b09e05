package realtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// ErrUnroutable is returned for frames that carry no channel discriminator.
var ErrUnroutable = errors.New("message has no channel")

// InboundMessage is a push frame after routing fields were extracted.
type InboundMessage struct {
	Channel    Channel         `json:"channel"`
	Symbol     string          `json:"symbol,omitempty"`
	Market     Market          `json:"market"`
	Data       json.RawMessage `json:"data,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// SubscriptionID re-derives the registry key the message is addressed to.
func (m InboundMessage) SubscriptionID() string {
	return SubscriptionID(m.Channel, m.Symbol, m.Market)
}

// Exchange event types mapped onto backend channels. User-data events are
// account wide and carry no symbol in their id.
var eventChannels = map[string]Channel{
	"markPriceUpdate":    ChannelMarkPrice,
	"24hrMiniTicker":     ChannelMiniTicker,
	"bookTicker":         ChannelBookTicker,
	"kline":              ChannelKline,
	"ACCOUNT_UPDATE":     ChannelAccount,
	"ORDER_TRADE_UPDATE": ChannelOrder,
}

var accountWide = map[Channel]bool{
	ChannelAccount:  true,
	ChannelOrder:    true,
	ChannelPosition: true,
}

// DecodeInbound parses a raw frame. Two shapes are accepted: the backend's
// tagged envelope {"channel","symbol","market","data"} and raw exchange
// events {"e":"markPriceUpdate","s":"BTCUSDT",...}, optionally wrapped in a
// combined-stream {"stream","data"} envelope. defaultMarket fills frames that
// do not name their market.
func DecodeInbound(raw []byte, defaultMarket Market) (InboundMessage, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return InboundMessage{}, err
	}

	msg := InboundMessage{ReceivedAt: time.Now()}

	if ch := fieldString(fields, "channel"); ch != "" {
		msg.Channel = Channel(ch)
		msg.Symbol = feedSymbol(msg.Channel, fieldString(fields, "symbol"))
		msg.Market = marketOr(fieldString(fields, "market"), defaultMarket)
		msg.Data = fields["data"]
		if len(msg.Data) == 0 {
			msg.Data = json.RawMessage(raw)
		}
		return msg, nil
	}

	// combined stream envelope
	if _, wrapped := fields["stream"]; wrapped && len(fields["data"]) > 0 {
		inner := fields["data"]
		fields, err = decodeFields(inner)
		if err != nil {
			return InboundMessage{}, err
		}
		raw = inner
	}

	event := fieldString(fields, "e")
	ch, known := eventChannels[event]
	if !known {
		return InboundMessage{}, fmt.Errorf("%w: event %q", ErrUnroutable, event)
	}
	msg.Channel = ch
	msg.Market = defaultMarket
	msg.Symbol = feedSymbol(ch, fieldString(fields, "s"))
	msg.Data = json.RawMessage(raw)
	return msg, nil
}

func decodeFields(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode inbound frame: %w", err)
	}
	return fields, nil
}

// fieldString reads key exactly (exchange frames use "e" and "E" for
// different things) and coerces scalars to string.
func fieldString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func marketOr(s string, def Market) Market {
	if s == "" {
		return def
	}
	m, err := ParseMarket(s)
	if err != nil {
		return Market(strings.ToLower(s))
	}
	return m
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

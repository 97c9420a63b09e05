package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTaggedEnvelope(t *testing.T) {
	raw := []byte(`{"channel":"markPrice","symbol":"btcusdt","market":"spot","data":{"p":"65000.1"}}`)
	msg, err := DecodeInbound(raw, MarketFutures)
	require.NoError(t, err)

	assert.Equal(t, ChannelMarkPrice, msg.Channel)
	assert.Equal(t, "BTCUSDT", msg.Symbol)
	assert.Equal(t, MarketSpot, msg.Market)
	assert.JSONEq(t, `{"p":"65000.1"}`, string(msg.Data))
	assert.Equal(t, "markPrice:BTCUSDT:spot", msg.SubscriptionID())
}

func TestDecodeTaggedDefaultsMarket(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"channel":"order","data":{}}`), MarketFutures)
	require.NoError(t, err)
	assert.Equal(t, MarketFutures, msg.Market)
	assert.Equal(t, "order::futures", msg.SubscriptionID())
}

func TestDecodeExchangeEvents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		id   string
	}{
		{"mark price", `{"e":"markPriceUpdate","E":1562305380000,"s":"BTCUSDT","p":"11794.15"}`, "markPrice:BTCUSDT:futures"},
		{"mini ticker", `{"e":"24hrMiniTicker","E":123456789,"s":"ethusdt","c":"0.0025"}`, "publicMiniTicker:ETHUSDT:futures"},
		{"book ticker", `{"e":"bookTicker","u":400900217,"s":"BNBUSDT","b":"25.35"}`, "bookTicker:BNBUSDT:futures"},
		{"kline", `{"e":"kline","E":123456789,"s":"BTCUSDT","k":{"i":"1m"}}`, "kline:BTCUSDT:futures"},
		{"order update", `{"e":"ORDER_TRADE_UPDATE","E":1568879465651,"o":{"s":"BTCUSDT","S":"SELL"}}`, "order::futures"},
		{"account update", `{"e":"ACCOUNT_UPDATE","E":1564745798939,"a":{"m":"ORDER"}}`, "account::futures"},
		{"combined stream", `{"stream":"btcusdt@markPrice","data":{"e":"markPriceUpdate","s":"BTCUSDT"}}`, "markPrice:BTCUSDT:futures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeInbound([]byte(tt.raw), MarketFutures)
			require.NoError(t, err)
			assert.Equal(t, tt.id, msg.SubscriptionID())
			assert.NotEmpty(t, msg.Data)
		})
	}
}

func TestDecodeRejectsUnroutable(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"result":null,"id":1}`), MarketFutures)
	assert.ErrorIs(t, err, ErrUnroutable)

	_, err = DecodeInbound([]byte(`not json`), MarketFutures)
	assert.Error(t, err)
}

func TestDecodeTaggedAccountWideIgnoresSymbol(t *testing.T) {
	reg := NewRegistry(&recordingSender{}, nil)
	var got []InboundMessage
	id := reg.Subscribe(ChannelOrder, "", MarketFutures, func(m InboundMessage) { got = append(got, m) })

	msg, err := DecodeInbound([]byte(`{"channel":"order","symbol":"BTCUSDT","market":"futures","data":{"c":"x1"}}`), MarketFutures)
	require.NoError(t, err)
	assert.Empty(t, msg.Symbol)
	assert.Equal(t, id, msg.SubscriptionID())

	require.True(t, reg.Dispatch(msg))
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"c":"x1"}`, string(got[0].Data))
}

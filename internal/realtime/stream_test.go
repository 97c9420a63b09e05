package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers each subscribe frame with one mark price push and
// drops the first dropAfter connections after their first frame.
type fakeBackend struct {
	conns     atomic.Int32
	dropFirst bool
	frames    chan OutboundMessage
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		n := b.conns.Add(1)

		for {
			var msg OutboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			b.frames <- msg
			if b.dropFirst && n == 1 {
				return
			}
			if strings.HasPrefix(msg.Action, "subscribe") {
				push := map[string]any{"e": "markPriceUpdate", "E": time.Now().UnixMilli(), "s": msg.Symbol, "p": "100.5"}
				if err := conn.WriteJSON(push); err != nil {
					return
				}
			}
		}
	})
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitConnected(t *testing.T, c *StreamClient) {
	t.Helper()
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)
}

func TestStreamClientDispatchesPushes(t *testing.T) {
	backend := &fakeBackend{frames: make(chan OutboundMessage, 16)}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	reg := NewRegistry(nil, nil)
	client := NewStreamClient(StreamOptions{URL: wsURL(srv), PingInterval: 50 * time.Millisecond}, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()
	waitConnected(t, client)

	got := make(chan InboundMessage, 1)
	reg.Subscribe(ChannelMarkPrice, "btcusdt", MarketFutures, func(m InboundMessage) { got <- m })

	select {
	case frame := <-backend.frames:
		assert.Equal(t, "subscribeMarkPrice", frame.Action)
		assert.Equal(t, "BTCUSDT", frame.Symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe frame not received")
	}

	select {
	case msg := <-got:
		assert.Equal(t, "markPrice:BTCUSDT:futures", msg.SubscriptionID())
	case <-time.After(2 * time.Second):
		t.Fatal("push not dispatched")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, client.Connected())
}

func TestStreamClientResubscribesAfterReconnect(t *testing.T) {
	backend := &fakeBackend{frames: make(chan OutboundMessage, 16), dropFirst: true}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	reg := NewRegistry(nil, nil)
	client := NewStreamClient(StreamOptions{URL: wsURL(srv), ReconnectMax: 100 * time.Millisecond}, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()
	waitConnected(t, client)

	reg.Subscribe(ChannelMarkPrice, "ETHUSDT", MarketFutures, func(InboundMessage) {})

	// first connection receives the frame then drops; the replay lands on the second
	for i := 0; i < 2; i++ {
		select {
		case frame := <-backend.frames:
			assert.Equal(t, "subscribeMarkPrice", frame.Action)
			assert.Equal(t, "ETHUSDT", frame.Symbol)
		case <-time.After(3 * time.Second):
			t.Fatalf("frame %d not received", i)
		}
	}
	assert.GreaterOrEqual(t, backend.conns.Load(), int32(2))
	require.Eventually(t, func() bool { return client.Stats().Reconnects >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamClientSendWhileDisconnected(t *testing.T) {
	reg := NewRegistry(nil, nil)
	client := NewStreamClient(StreamOptions{URL: "ws://127.0.0.1:1"}, reg, nil)

	err := client.Send(OutboundMessage{Action: "subscribeMarkPrice", Symbol: "BTCUSDT"})
	assert.ErrorIs(t, err, ErrNotConnected)

	// registry keeps the entry for replay
	id := reg.Subscribe(ChannelMarkPrice, "BTCUSDT", MarketFutures, func(InboundMessage) {})
	assert.True(t, reg.Has(id))
	assert.Equal(t, uint64(1), reg.Stats().SendErrors)
}

package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Send while the socket is down. Active
// subscriptions are replayed once the connection comes back.
var ErrNotConnected = errors.New("stream not connected")

const (
	writeWait      = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

// StreamOptions configures the backend socket.
type StreamOptions struct {
	URL          string
	Market       Market
	PingInterval time.Duration
	ReconnectMax time.Duration
	Header       http.Header
}

// StatusFunc observes connection state changes.
type StatusFunc func(connected bool, attempt int, err error)

// StreamStats is a snapshot of socket counters.
type StreamStats struct {
	Connected    bool   `json:"connected"`
	Reconnects   uint64 `json:"reconnects"`
	Received     uint64 `json:"received"`
	DecodeErrors uint64 `json:"decode_errors"`
	Sent         uint64 `json:"sent"`
}

// StreamClient keeps one socket to the trading backend open, replays the
// registry after every connect and dispatches inbound frames.
type StreamClient struct {
	opts     StreamOptions
	dialer   *websocket.Dialer
	registry *Registry
	log      *zap.Logger
	onStatus StatusFunc

	writeMu sync.Mutex
	conn    *websocket.Conn

	connected    atomic.Bool
	reconnects   atomic.Uint64
	received     atomic.Uint64
	decodeErrors atomic.Uint64
	sent         atomic.Uint64
}

// NewStreamClient builds a client and attaches it as the registry's sender.
func NewStreamClient(opts StreamOptions, registry *Registry, log *zap.Logger) *StreamClient {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Market == "" {
		opts.Market = MarketFutures
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 30 * time.Second
	}
	c := &StreamClient{
		opts:     opts,
		dialer:   websocket.DefaultDialer,
		registry: registry,
		log:      log.With(zap.String("stream", opts.URL)),
	}
	registry.SetSender(c)
	return c
}

// OnStatus installs a connection observer. Call before Run.
func (c *StreamClient) OnStatus(fn StatusFunc) { c.onStatus = fn }

// Send writes one subscription frame. It implements Sender.
func (c *StreamClient) Send(msg OutboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Action, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write %s: %w", msg.Action, err)
	}
	c.sent.Add(1)
	return nil
}

// Run connects and keeps reconnecting with exponential backoff until ctx is
// cancelled. It always returns ctx.Err().
func (c *StreamClient) Run(ctx context.Context) error {
	backoff := initialBackoff
	attempt := 0
	everConnected := false
	for {
		attempt++
		conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("dial trading backend failed", zap.Int("attempt", attempt), zap.Duration("retry_in", backoff), zap.Error(err))
			c.notify(false, attempt, err)
		} else {
			if everConnected {
				c.reconnects.Add(1)
			}
			everConnected = true
			attempt = 0
			backoff = initialBackoff
			err = c.session(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("trading backend stream dropped", zap.Error(err))
			c.notify(false, attempt, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > c.opts.ReconnectMax {
			backoff = c.opts.ReconnectMax
		}
	}
}

func (c *StreamClient) session(ctx context.Context, conn *websocket.Conn) error {
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.connected.Store(true)

	done := make(chan struct{})
	defer func() {
		close(done)
		c.writeMu.Lock()
		c.conn = nil
		c.writeMu.Unlock()
		c.connected.Store(false)
		_ = conn.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()
	if c.opts.PingInterval > 0 {
		go c.keepalive(conn, done)
	}

	c.log.Info("connected to trading backend")
	c.notify(true, 0, nil)
	if n := c.registry.Resubscribe(); n > 0 {
		c.log.Info("replayed subscriptions", zap.Int("count", n))
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.received.Add(1)

		msg, err := DecodeInbound(raw, c.opts.Market)
		if err != nil {
			c.decodeErrors.Add(1)
			c.log.Debug("skipping inbound frame", zap.Error(err))
			continue
		}
		c.registry.Dispatch(msg)
	}
}

func (c *StreamClient) keepalive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *StreamClient) notify(connected bool, attempt int, err error) {
	if c.onStatus != nil {
		c.onStatus(connected, attempt, err)
	}
}

// Connected reports whether the socket is currently up.
func (c *StreamClient) Connected() bool { return c.connected.Load() }

func (c *StreamClient) Stats() StreamStats {
	return StreamStats{
		Connected:    c.connected.Load(),
		Reconnects:   c.reconnects.Load(),
		Received:     c.received.Load(),
		DecodeErrors: c.decodeErrors.Load(),
		Sent:         c.sent.Load(),
	}
}

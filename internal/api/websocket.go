package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"futures-dash/internal/events"
	"futures-dash/internal/realtime"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = (wsPongWait * 9) / 10
	wsSendBuffer  = 256
	wsTopicBuffer = 128
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientRequest is a browser frame, e.g.
// {"action":"subscribeMarkPrice","symbol":"BTCUSDT","market":"futures"}.
type clientRequest struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
	Market string `json:"market"`
}

// serverFrame is everything written to the browser. Data frames embed the
// inbound message fields.
type serverFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
	*realtime.InboundMessage
	Status *events.StreamStatus `json:"status,omitempty"`
}

// wsClient is one browser connection and the feeds it holds.
type wsClient struct {
	s    *Server
	conn *websocket.Conn
	out  chan serverFrame
	done chan struct{}
	log  *zap.Logger

	mu    sync.Mutex
	feeds map[string]func()
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	if s.Bus == nil || s.Fanout == nil {
		_ = conn.WriteJSON(serverFrame{Type: "error", Error: "stream not ready"})
		_ = conn.Close()
		return
	}

	client := &wsClient{
		s:     s,
		conn:  conn,
		out:   make(chan serverFrame, wsSendBuffer),
		done:  make(chan struct{}),
		log:   s.Log.With(zap.String("remote", c.ClientIP()), zap.String("user", CurrentUserID(c))),
		feeds: make(map[string]func()),
	}
	if s.Metrics != nil {
		s.Metrics.ClientConnected()
		defer s.Metrics.ClientDisconnected()
	}

	statusCh, unsubStatus := s.Bus.Subscribe(events.EventStreamStatus, 8)
	go client.forwardStatus(statusCh)

	go client.writeLoop()
	client.readLoop()

	close(client.done)
	unsubStatus()
	client.releaseAll()
	_ = conn.Close()
	client.log.Debug("ws client closed")
}

func (w *wsClient) readLoop() {
	w.conn.SetReadLimit(4096)
	_ = w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.log.Debug("ws read failed", zap.Error(err))
			}
			return
		}
		var req clientRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			w.push(serverFrame{Type: "error", Error: "invalid frame"})
			continue
		}
		w.handle(req)
	}
}

func (w *wsClient) handle(req clientRequest) {
	subscribe, channel, err := realtime.ParseAction(req.Action)
	if err != nil {
		w.push(serverFrame{Type: "error", Action: req.Action, Error: err.Error()})
		return
	}
	market := w.s.opts.DefaultMarket
	if req.Market != "" {
		if market, err = realtime.ParseMarket(req.Market); err != nil {
			w.push(serverFrame{Type: "error", Action: req.Action, Error: err.Error()})
			return
		}
	}
	symbol := req.Symbol
	if channel.AccountWide() {
		symbol = ""
	} else if symbol == "" {
		w.push(serverFrame{Type: "error", Action: req.Action, Error: "symbol required"})
		return
	}

	id := realtime.SubscriptionID(channel, symbol, market)
	if subscribe {
		w.acquire(channel, symbol, market)
	} else {
		w.release(id)
	}
	w.push(serverFrame{Type: "ack", ID: id, Action: req.Action})
}

// acquire is a no-op when the client already holds the feed.
func (w *wsClient) acquire(channel realtime.Channel, symbol string, market realtime.Market) {
	id := realtime.SubscriptionID(channel, symbol, market)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, held := w.feeds[id]; held {
		return
	}

	_, release := w.s.Fanout.Acquire(channel, symbol, market)
	stream, unsub := w.s.Bus.Subscribe(events.FeedTopic(id), wsTopicBuffer)
	w.feeds[id] = func() {
		unsub()
		release()
	}

	go func() {
		for v := range stream {
			msg, ok := v.(realtime.InboundMessage)
			if !ok {
				continue
			}
			w.push(serverFrame{Type: "data", ID: id, InboundMessage: &msg})
		}
	}()
}

func (w *wsClient) release(id string) {
	w.mu.Lock()
	cleanup, held := w.feeds[id]
	delete(w.feeds, id)
	w.mu.Unlock()
	if held {
		cleanup()
	}
}

func (w *wsClient) releaseAll() {
	w.mu.Lock()
	feeds := w.feeds
	w.feeds = make(map[string]func())
	w.mu.Unlock()
	for _, cleanup := range feeds {
		cleanup()
	}
}

func (w *wsClient) forwardStatus(ch <-chan any) {
	for v := range ch {
		if st, ok := v.(events.StreamStatus); ok {
			w.push(serverFrame{Type: "status", Status: &st})
		}
	}
}

// push queues a frame without blocking; frames for a slow browser are dropped.
func (w *wsClient) push(f serverFrame) {
	select {
	case <-w.done:
	case w.out <- f:
	default:
		w.log.Debug("ws client too slow, dropping frame", zap.String("type", f.Type))
	}
}

func (w *wsClient) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case f := <-w.out:
			_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.conn.WriteJSON(f); err != nil {
				w.log.Debug("ws write failed", zap.Error(err))
				_ = w.conn.Close()
				return
			}
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				_ = w.conn.Close()
				return
			}
		}
	}
}

package realtime

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Callback receives every inbound message routed to a subscription.
type Callback func(InboundMessage)

// Subscription is one logical live-data feed.
type Subscription struct {
	ID        string
	Channel   Channel
	Symbol    string
	Market    Market
	Callback  Callback
	CreatedAt time.Time
}

// OutboundMessage is the subscribe/unsubscribe frame written to the socket.
type OutboundMessage struct {
	Action string `json:"action"`
	Symbol string `json:"symbol,omitempty"`
	Market Market `json:"market,omitempty"`
}

// Sender writes frames to the socket. Sends are fire-and-forget: the
// registry never waits for an acknowledgment.
type Sender interface {
	Send(msg OutboundMessage) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(OutboundMessage) error

func (f SenderFunc) Send(msg OutboundMessage) error { return f(msg) }

// RegistryStats is a snapshot of delivery counters.
type RegistryStats struct {
	Active     int    `json:"active"`
	Dispatched uint64 `json:"dispatched"`
	Dropped    uint64 `json:"dropped"`
	SendErrors uint64 `json:"send_errors"`
}

// Registry owns the id -> callback mapping for one socket session.
// A repeated Subscribe for the same id replaces the stored callback; the
// previous callback is never invoked again.
type Registry struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	sender Sender
	log    *zap.Logger
	now    func() time.Time

	dispatched atomic.Uint64
	dropped    atomic.Uint64
	sendErrors atomic.Uint64
}

// NewRegistry creates an empty registry writing frames through sender.
func NewRegistry(sender Sender, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		subs:   make(map[string]*Subscription),
		sender: sender,
		log:    log,
		now:    time.Now,
	}
}

// SetSender swaps the outbound channel, e.g. once the stream client exists.
func (r *Registry) SetSender(s Sender) {
	r.mu.Lock()
	r.sender = s
	r.mu.Unlock()
}

// Subscribe stores cb under the feed id and sends a subscribe frame. The
// frame is sent on every call, including repeats for an existing id.
func (r *Registry) Subscribe(channel Channel, symbol string, market Market, cb Callback) string {
	id := SubscriptionID(channel, symbol, market)
	sub := &Subscription{
		ID:        id,
		Channel:   channel,
		Symbol:    feedSymbol(channel, symbol),
		Market:    market,
		Callback:  cb,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	if prev, exists := r.subs[id]; exists {
		sub.CreatedAt = prev.CreatedAt
		r.log.Debug("subscription callback replaced", zap.String("id", id))
	}
	r.subs[id] = sub
	sender := r.sender
	r.mu.Unlock()

	r.send(sender, OutboundMessage{Action: channel.SubscribeAction(), Symbol: sub.Symbol, Market: market})
	return id
}

// Unsubscribe removes the entry and sends an unsubscribe frame. It returns
// false when id was not registered.
func (r *Registry) Unsubscribe(id string) bool {
	r.mu.Lock()
	sub, exists := r.subs[id]
	if exists {
		delete(r.subs, id)
	}
	sender := r.sender
	r.mu.Unlock()

	if !exists {
		return false
	}
	r.send(sender, OutboundMessage{Action: sub.Channel.UnsubscribeAction(), Symbol: sub.Symbol, Market: sub.Market})
	return true
}

// Dispatch routes msg to the callback registered for its id. Messages for
// unknown ids are dropped: a push may race the subscribe frame or belong to
// a feed that was already removed.
func (r *Registry) Dispatch(msg InboundMessage) bool {
	id := msg.SubscriptionID()

	r.mu.RLock()
	sub, exists := r.subs[id]
	var cb Callback
	if exists {
		cb = sub.Callback
	}
	r.mu.RUnlock()

	if !exists || cb == nil {
		r.dropped.Add(1)
		r.log.Debug("dropping message without subscriber", zap.String("id", id))
		return false
	}

	r.dispatched.Add(1)
	cb(msg)
	return true
}

// Resubscribe sends a subscribe frame for every active entry. The stream
// client calls it after each successful (re)connect.
func (r *Registry) Resubscribe() int {
	active := r.Active()
	r.mu.RLock()
	sender := r.sender
	r.mu.RUnlock()

	for _, sub := range active {
		r.send(sender, OutboundMessage{Action: sub.Channel.SubscribeAction(), Symbol: sub.Symbol, Market: sub.Market})
	}
	return len(active)
}

// Reset discards every subscription without sending frames.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.subs = make(map[string]*Subscription)
	r.mu.Unlock()
}

// Active returns a snapshot of the registered feeds ordered by id.
func (r *Registry) Active() []Subscription {
	r.mu.RLock()
	out := make([]Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, *s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Registry) Stats() RegistryStats {
	return RegistryStats{
		Active:     r.Len(),
		Dispatched: r.dispatched.Load(),
		Dropped:    r.dropped.Load(),
		SendErrors: r.sendErrors.Load(),
	}
}

func (r *Registry) send(sender Sender, msg OutboundMessage) {
	if sender == nil {
		r.sendErrors.Add(1)
		r.log.Warn("no sender attached, frame not sent", zap.String("action", msg.Action))
		return
	}
	if err := sender.Send(msg); err != nil {
		r.sendErrors.Add(1)
		r.log.Warn("send subscription frame failed",
			zap.String("action", msg.Action),
			zap.String("symbol", msg.Symbol),
			zap.Error(err))
	}
}

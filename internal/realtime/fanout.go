package realtime

import (
	"sync"

	"go.uber.org/zap"

	"futures-dash/internal/events"
)

// Fanout lets several consumers share one registry entry. The registry holds
// a single callback per feed that republishes onto the bus topic for that
// feed; consumers read the topic. The entry is removed with the last release.
//
// Reference counts change under mu. Registry calls write to the socket, so
// they run outside mu under a per-feed lock and bring the registry in line
// with the current count.
type Fanout struct {
	mu       sync.Mutex
	refs     map[string]int
	live     map[string]bool
	feedMu   map[string]*sync.Mutex
	registry *Registry
	bus      *events.Bus
	log      *zap.Logger
}

func NewFanout(registry *Registry, bus *events.Bus, log *zap.Logger) *Fanout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fanout{
		refs:     make(map[string]int),
		live:     make(map[string]bool),
		feedMu:   make(map[string]*sync.Mutex),
		registry: registry,
		bus:      bus,
		log:      log,
	}
}

// Acquire takes a reference on a feed, subscribing it on first use. The
// returned release function is idempotent.
func (f *Fanout) Acquire(channel Channel, symbol string, market Market) (string, func()) {
	id := SubscriptionID(channel, symbol, market)

	f.mu.Lock()
	f.refs[id]++
	first := f.refs[id] == 1
	f.mu.Unlock()

	if first {
		f.sync(id, channel, symbol, market)
	}

	var once sync.Once
	return id, func() {
		once.Do(func() { f.release(id, channel, symbol, market) })
	}
}

func (f *Fanout) release(id string, channel Channel, symbol string, market Market) {
	f.mu.Lock()
	n, ok := f.refs[id]
	if !ok {
		f.mu.Unlock()
		return
	}
	last := n <= 1
	if last {
		delete(f.refs, id)
	} else {
		f.refs[id] = n - 1
	}
	f.mu.Unlock()

	if last {
		f.sync(id, channel, symbol, market)
	}
}

// sync subscribes or unsubscribes id so the registry matches whether anyone
// still holds the feed. Concurrent first-acquire and last-release calls for
// the same id serialize here and converge on the latest count.
func (f *Fanout) sync(id string, channel Channel, symbol string, market Market) {
	lock := f.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	f.mu.Lock()
	want := f.refs[id] > 0
	have := f.live[id]
	f.mu.Unlock()

	switch {
	case want && !have:
		topic := events.FeedTopic(id)
		f.registry.Subscribe(channel, symbol, market, func(msg InboundMessage) {
			f.bus.Publish(topic, msg)
		})
		f.setLive(id, true)
		f.log.Debug("feed opened", zap.String("id", id))
	case !want && have:
		f.registry.Unsubscribe(id)
		f.setLive(id, false)
		f.log.Debug("feed closed", zap.String("id", id))
	}
}

func (f *Fanout) lockFor(id string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	lock, ok := f.feedMu[id]
	if !ok {
		lock = &sync.Mutex{}
		f.feedMu[id] = lock
	}
	return lock
}

func (f *Fanout) setLive(id string, live bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if live {
		f.live[id] = true
	} else {
		delete(f.live, id)
	}
}

// Refs reports how many consumers hold the feed.
func (f *Fanout) Refs(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refs[id]
}

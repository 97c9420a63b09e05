package events

import (
	"sync"
	"sync/atomic"
)

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Event][]chan any
	dropped atomic.Uint64
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan any)}
}

// Subscribe registers a listener for an event and returns the channel and an unsubscribe function.
// The unsubscribe function is safe to call more than once.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[e] = append(b.subs[e], ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subs[e]
			for i, c := range subs {
				if c == ch {
					close(c)
					b.subs[e] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(b.subs[e]) == 0 {
				delete(b.subs, e)
			}
		})
	}

	return ch, unsub
}

// Publish fan-outs the payload to subscribers without blocking. It returns
// the number of subscribers that accepted the payload.
func (b *Bus) Publish(e Event, payload any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
			delivered++
		default:
			// drop if subscriber is slow; keep broker non-blocking
			b.dropped.Add(1)
		}
	}
	return delivered
}

// SubscriberCount reports how many listeners e currently has.
func (b *Bus) SubscriberCount(e Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[e])
}

// Dropped is the number of payloads discarded because a listener was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

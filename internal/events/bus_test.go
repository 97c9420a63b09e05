package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	topic := FeedTopic("markPrice:BTCUSDT:futures")

	a, unsubA := bus.Subscribe(topic, 1)
	b, unsubB := bus.Subscribe(topic, 1)
	defer unsubB()
	require.Equal(t, 2, bus.SubscriberCount(topic))

	assert.Equal(t, 2, bus.Publish(topic, "tick"))
	assert.Equal(t, "tick", <-a)
	assert.Equal(t, "tick", <-b)

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, bus.SubscriberCount(topic))
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventStreamStatus, 1)
	defer unsub()

	assert.Equal(t, 1, bus.Publish(EventStreamStatus, StreamStatus{Connected: true}))
	assert.Equal(t, 0, bus.Publish(EventStreamStatus, StreamStatus{Connected: false}))
	assert.Equal(t, uint64(1), bus.Dropped())

	got := (<-ch).(StreamStatus)
	assert.True(t, got.Connected)
}

func TestBusNoSubscribers(t *testing.T) {
	bus := NewBus()
	assert.Equal(t, 0, bus.Publish(FeedTopic("order::futures"), nil))
	assert.Equal(t, 0, bus.SubscriberCount(FeedTopic("order::futures")))
}

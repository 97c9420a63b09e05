package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-dash/internal/events"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *recordingSink) Send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

func TestLatencyHistogram(t *testing.T) {
	h := NewLatencyHistogram(4)
	for _, v := range []float64{10, 1, 2, 3, 4} {
		h.Record(v)
	}
	st := h.Stats()
	assert.Equal(t, 4, st.Count, "oldest sample dropped")
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 4.0, st.Max)
	assert.Equal(t, 2.5, st.Avg)
}

func TestSnapshotIncludesComponents(t *testing.T) {
	m := NewSystemMetrics()
	m.ObserveRequest(200, 5*time.Millisecond)
	m.ObserveRequest(502, 7*time.Millisecond)
	m.ClientConnected()
	m.Register("registry", func() any { return map[string]int{"active": 3} })

	snap := m.GetSnapshot()
	assert.Equal(t, uint64(2), snap.Requests)
	assert.Equal(t, uint64(1), snap.ServerErrors)
	assert.Equal(t, int64(1), snap.WSClients)
	assert.Equal(t, 2, snap.APILatency.Count)
	assert.Equal(t, map[string]int{"active": 3}, snap.Components["registry"])
}

func TestMonitorAlertsOnOutage(t *testing.T) {
	bus := events.NewBus()
	sink := &recordingSink{}
	m := &Monitor{Bus: bus, Sink: sink, Grace: 40 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	require.Eventually(t, func() bool { return bus.SubscriberCount(events.EventStreamStatus) == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(events.EventStreamStatus, events.StreamStatus{Connected: false, At: time.Now()})
	require.Eventually(t, func() bool { return len(sink.Messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, sink.Messages()[0], "down since")

	bus.Publish(events.EventStreamStatus, events.StreamStatus{Connected: true, At: time.Now()})
	require.Eventually(t, func() bool { return len(sink.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, sink.Messages()[1], "recovered")
}

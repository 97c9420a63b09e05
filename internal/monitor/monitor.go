// Package monitor collects process metrics and reports backend stream
// outages.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"futures-dash/internal/events"
)

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to the logger.
type LogSink struct{ Log *zap.Logger }

func (s LogSink) Send(message string) error {
	s.Log.Warn("alert", zap.String("message", message))
	return nil
}

// Monitor watches stream status events and alerts when the backend stays
// unreachable for longer than Grace.
type Monitor struct {
	Bus   *events.Bus
	Sink  AlertSink
	Grace time.Duration
	Log   *zap.Logger
}

func (m *Monitor) Start(ctx context.Context) {
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}
	if m.Bus == nil || m.Sink == nil {
		log.Warn("monitor not fully configured; skipping")
		return
	}
	grace := m.Grace
	if grace <= 0 {
		grace = 30 * time.Second
	}

	stream, unsub := m.Bus.Subscribe(events.EventStreamStatus, 50)
	go func() {
		defer unsub()
		var (
			downSince time.Time
			alerted   bool
		)
		ticker := time.NewTicker(grace / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-stream:
				if !ok {
					return
				}
				st, ok := v.(events.StreamStatus)
				if !ok {
					continue
				}
				if st.Connected {
					if alerted {
						m.send(log, formatAlert("trading backend stream recovered", st.At))
					}
					downSince, alerted = time.Time{}, false
				} else if downSince.IsZero() {
					downSince = st.At
				}
			case now := <-ticker.C:
				if !downSince.IsZero() && !alerted && now.Sub(downSince) >= grace {
					alerted = true
					m.send(log, formatAlert("trading backend stream down since "+downSince.Format(time.RFC3339), now))
				}
			}
		}
	}()
}

func (m *Monitor) send(log *zap.Logger, msg string) {
	if err := m.Sink.Send(msg); err != nil {
		log.Warn("alert delivery failed", zap.Error(err))
	}
}

func formatAlert(msg string, at time.Time) string {
	return "[" + at.Format(time.RFC3339) + "] " + msg
}

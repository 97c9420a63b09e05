package market

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WeightHeader is the response header carrying the request weight used in
// the current minute.
const WeightHeader = "X-Mbx-Used-Weight-1m"

// WeightTracker follows API weight usage reported by the exchange.
type WeightTracker struct {
	mu         sync.RWMutex
	usedWeight int
	limit      int
	lastUpdate time.Time
	window     time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewWeightTracker creates a tracker. limit is the maximum weight per window
// (2400/min for USD-M futures).
func NewWeightTracker(limit int, window time.Duration, log *zap.Logger) *WeightTracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &WeightTracker{limit: limit, window: window, now: time.Now, log: log}
}

// UpdateFromHeader records the weight from a response header value.
func (w *WeightTracker) UpdateFromHeader(headerValue string) {
	if headerValue == "" {
		return
	}
	weight, err := strconv.Atoi(headerValue)
	if err != nil {
		return
	}

	w.mu.Lock()
	w.usedWeight = weight
	w.lastUpdate = w.now()
	w.mu.Unlock()

	pct := float64(weight) / float64(w.limit) * 100
	if pct >= 95 {
		w.log.Error("exchange weight critical", zap.Int("used", weight), zap.Int("limit", w.limit))
	} else if pct >= 80 {
		w.log.Warn("exchange weight high", zap.Int("used", weight), zap.Int("limit", w.limit))
	}
}

// Usage returns the last reported weight; it reads zero once the window passed.
func (w *WeightTracker) Usage() (used int, limit int, percentage float64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.lastUpdate.IsZero() || w.now().Sub(w.lastUpdate) >= w.window {
		return 0, w.limit, 0
	}
	return w.usedWeight, w.limit, float64(w.usedWeight) / float64(w.limit) * 100
}

// ShouldDelay reports whether callers should back off before the next request.
func (w *WeightTracker) ShouldDelay() bool {
	_, _, pct := w.Usage()
	return pct >= 90
}

package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks request latency and counters for the dashboard API.
type SystemMetrics struct {
	// Latency histograms
	APILatency   *LatencyHistogram
	ProxyLatency *LatencyHistogram

	// Counters
	requests     atomic.Uint64
	serverErrors atomic.Uint64
	wsClients    atomic.Int64

	mu      sync.RWMutex
	sources map[string]func() any

	startedAt time.Time
}

// LatencyHistogram tracks latency samples with sliding window.
// Stats are computed lazily and cached until the next sample.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		APILatency:   NewLatencyHistogram(1000),
		ProxyLatency: NewLatencyHistogram(1000),
		sources:      make(map[string]func() any),
		startedAt:    time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		// Shift window: remove oldest
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// ObserveRequest records one finished HTTP request.
func (m *SystemMetrics) ObserveRequest(status int, d time.Duration) {
	m.requests.Add(1)
	if status >= 500 {
		m.serverErrors.Add(1)
	}
	m.APILatency.RecordDuration(d)
}

// ClientConnected and ClientDisconnected track open browser sockets.
func (m *SystemMetrics) ClientConnected()    { m.wsClients.Add(1) }
func (m *SystemMetrics) ClientDisconnected() { m.wsClients.Add(-1) }

// Register adds a named component whose stats are included in snapshots.
func (m *SystemMetrics) Register(name string, fn func() any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[name] = fn
}

// MetricsSnapshot is a point-in-time view of the process.
type MetricsSnapshot struct {
	APILatency     LatencyStats   `json:"api_latency"`
	ProxyLatency   LatencyStats   `json:"proxy_latency"`
	Requests       uint64         `json:"requests"`
	ServerErrors   uint64         `json:"server_errors"`
	WSClients      int64          `json:"ws_clients"`
	Components     map[string]any `json:"components"`
	GoroutineCount int            `json:"goroutine_count"`
	HeapAlloc      uint64         `json:"heap_alloc_bytes"`
	Uptime         string         `json:"uptime"`
	Timestamp      time.Time      `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	components := make(map[string]any, len(m.sources))
	for name, fn := range m.sources {
		components[name] = fn()
	}
	m.mu.RUnlock()

	return MetricsSnapshot{
		APILatency:     m.APILatency.Stats(),
		ProxyLatency:   m.ProxyLatency.Stats(),
		Requests:       m.requests.Load(),
		ServerErrors:   m.serverErrors.Load(),
		WSClients:      m.wsClients.Load(),
		Components:     components,
		GoroutineCount: runtime.NumGoroutine(),
		HeapAlloc:      memStats.HeapAlloc,
		Uptime:         time.Since(m.startedAt).Round(time.Second).String(),
		Timestamp:      time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}

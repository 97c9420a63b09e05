package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"futures-dash/internal/monitor"
)

func (s *Server) getSystemStatus(c *gin.Context) {
	resp := gin.H{
		"version":        s.opts.Version,
		"default_market": s.opts.DefaultMarket,
		"language":       s.opts.Language,
		"auth_required":  s.opts.AuthRequired,
		"backend":        s.opts.BackendURL != "",
		"server_time":    time.Now().UTC(),
	}
	if s.Stream != nil {
		resp["stream"] = s.Stream.Stats()
	}
	if s.Registry != nil {
		resp["subscriptions"] = s.Registry.Len()
	}
	c.JSON(http.StatusOK, resp)
}

// getMetrics returns the JSON snapshot, or Prometheus text with ?format=prom.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics not available")
		return
	}
	if c.Query("format") == "prom" {
		s.getPromMetrics(c)
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// getPromMetrics returns a minimal Prometheus text exposition of key metrics.
func (s *Server) getPromMetrics(c *gin.Context) {
	snapshot := s.Metrics.GetSnapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "dash_api_requests_total %d\n", snapshot.Requests)
	fmt.Fprintf(&b, "dash_api_server_errors_total %d\n", snapshot.ServerErrors)
	fmt.Fprintf(&b, "dash_ws_clients %d\n", snapshot.WSClients)

	writeLatency := func(prefix string, ls monitor.LatencyStats) {
		if ls.Count == 0 {
			return
		}
		fmt.Fprintf(&b, "dash_%s_latency_ms_avg %f\n", prefix, ls.Avg)
		fmt.Fprintf(&b, "dash_%s_latency_ms_p50 %f\n", prefix, ls.P50)
		fmt.Fprintf(&b, "dash_%s_latency_ms_p95 %f\n", prefix, ls.P95)
		fmt.Fprintf(&b, "dash_%s_latency_ms_p99 %f\n", prefix, ls.P99)
	}
	writeLatency("api", snapshot.APILatency)
	writeLatency("proxy", snapshot.ProxyLatency)

	if s.Registry != nil {
		st := s.Registry.Stats()
		fmt.Fprintf(&b, "dash_subscriptions_active %d\n", st.Active)
		fmt.Fprintf(&b, "dash_stream_dispatched_total %d\n", st.Dispatched)
		fmt.Fprintf(&b, "dash_stream_dropped_total %d\n", st.Dropped)
		fmt.Fprintf(&b, "dash_stream_send_errors_total %d\n", st.SendErrors)
	}
	if s.Stream != nil {
		st := s.Stream.Stats()
		connected := 0
		if st.Connected {
			connected = 1
		}
		fmt.Fprintf(&b, "dash_stream_connected %d\n", connected)
		fmt.Fprintf(&b, "dash_stream_reconnects_total %d\n", st.Reconnects)
		fmt.Fprintf(&b, "dash_stream_decode_errors_total %d\n", st.DecodeErrors)
	}
	fmt.Fprintf(&b, "dash_goroutines %d\n", snapshot.GoroutineCount)
	fmt.Fprintf(&b, "dash_heap_alloc_bytes %d\n", snapshot.HeapAlloc)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

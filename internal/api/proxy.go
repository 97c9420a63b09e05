package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"futures-dash/internal/monitor"
)

// Request headers passed to the trading backend.
var backendForward = []string{"Authorization", "Content-Type", "Accept", "Accept-Language", "X-Request-ID"}

// Response headers passed back to the browser.
var responseForward = []string{"Content-Type", "Cache-Control", "X-Mbx-Used-Weight-1m"}

// proxyBackend forwards /api/backend/* to the trading backend verbatim.
func (s *Server) proxyBackend(c *gin.Context) {
	if s.opts.BackendURL == "" {
		respondError(c, http.StatusServiceUnavailable, "BACKEND_DISABLED", "trading backend not configured")
		return
	}
	target := strings.TrimRight(s.opts.BackendURL, "/") + "/" + strings.TrimLeft(c.Param("path"), "/")
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	for _, h := range backendForward {
		if v := c.GetHeader(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if id := c.GetString(requestIDKey); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	timer := s.proxyTimer()
	res, err := s.backend.Do(req)
	timer.Stop()
	if err != nil {
		s.Log.Warn("backend proxy failed", zap.String("target", target), zap.Error(err))
		respondError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "trading backend unavailable")
		return
	}
	defer res.Body.Close()
	s.relay(c, res)
}

// proxyExchange forwards GET /api/exchange/* to the public exchange REST API.
func (s *Server) proxyExchange(c *gin.Context) {
	if s.Exchange == nil {
		respondError(c, http.StatusServiceUnavailable, "EXCHANGE_DISABLED", "exchange client not configured")
		return
	}
	if s.Exchange.Weight.ShouldDelay() {
		used, limit, _ := s.Exchange.Weight.Usage()
		s.Log.Warn("exchange weight near limit, rejecting passthrough", zap.Int("used", used), zap.Int("limit", limit))
		respondError(c, http.StatusTooManyRequests, "EXCHANGE_WEIGHT_EXHAUSTED", "exchange request weight nearly exhausted, retry shortly")
		return
	}

	timer := s.proxyTimer()
	res, err := s.Exchange.Do(c.Request.Context(), http.MethodGet, c.Param("path"), c.Request.URL.Query(), c.Request.Header, nil)
	timer.Stop()
	if err != nil {
		s.Log.Warn("exchange proxy failed", zap.String("path", c.Param("path")), zap.Error(err))
		respondError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "exchange unavailable")
		return
	}
	defer res.Body.Close()
	s.relay(c, res)
}

func (s *Server) proxyTimer() *monitor.Timer {
	if s.Metrics == nil {
		return monitor.NewTimer(nil)
	}
	return monitor.NewTimer(s.Metrics.ProxyLatency)
}

func (s *Server) relay(c *gin.Context, res *http.Response) {
	for _, h := range responseForward {
		if v := res.Header.Get(h); v != "" {
			c.Header(h, v)
		}
	}
	c.Status(res.StatusCode)
	if _, err := io.Copy(c.Writer, res.Body); err != nil {
		s.Log.Debug("relay body interrupted", zap.Error(err))
	}
}

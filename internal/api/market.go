package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) getFunding(c *gin.Context) {
	if s.Funding == nil {
		respondError(c, http.StatusServiceUnavailable, "FUNDING_DISABLED", "funding service not configured")
		return
	}
	rate, err := s.Funding.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.Log.Sugar().Warnw("funding lookup failed", "symbol", c.Param("symbol"), "error", err)
		respondError(c, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, rate)
}

func (s *Server) invalidateFunding(c *gin.Context) {
	if s.Funding == nil {
		respondError(c, http.StatusServiceUnavailable, "FUNDING_DISABLED", "funding service not configured")
		return
	}
	s.Funding.Invalidate(c.Param("symbol"))
	c.Status(http.StatusNoContent)
}

func (s *Server) invalidateAllFunding(c *gin.Context) {
	if s.Funding == nil {
		respondError(c, http.StatusServiceUnavailable, "FUNDING_DISABLED", "funding service not configured")
		return
	}
	s.Funding.InvalidateAll()
	c.Status(http.StatusNoContent)
}

// getMarkPrice returns the last streamed mark price for a tracked symbol.
func (s *Server) getMarkPrice(c *gin.Context) {
	if s.Feed == nil {
		respondError(c, http.StatusServiceUnavailable, "FEED_DISABLED", "mark price feed not configured")
		return
	}
	symbol := strings.ToUpper(c.Param("symbol"))
	mark, ok := s.Feed.Mark(symbol)
	if !ok {
		respondError(c, http.StatusNotFound, "NO_MARK_PRICE", "no recent mark price for "+symbol)
		return
	}
	c.JSON(http.StatusOK, mark)
}

// getSubscriptions lists the feeds currently held on the backend stream.
func (s *Server) getSubscriptions(c *gin.Context) {
	active := s.Registry.Active()
	out := make([]gin.H, 0, len(active))
	for _, sub := range active {
		h := gin.H{
			"id":         sub.ID,
			"channel":    sub.Channel,
			"symbol":     sub.Symbol,
			"market":     sub.Market,
			"created_at": sub.CreatedAt,
		}
		if s.Fanout != nil {
			h["consumers"] = s.Fanout.Refs(sub.ID)
		}
		out = append(out, h)
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

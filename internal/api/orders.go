package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"futures-dash/pkg/db"
)

// getOrderHistory lists stored orders, newest update first.
// Query: symbol, side, status, type, from, to (unix ms or RFC3339), limit, offset.
func (s *Server) getOrderHistory(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "STORE_DISABLED", "order history store not configured")
		return
	}
	filter, err := orderFilterFromQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	orders, err := s.DB.ListOrders(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, db.ErrInvalidFilter) {
			respondError(c, http.StatusBadRequest, "INVALID_FILTER", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if orders == nil {
		orders = []db.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

func (s *Server) getOrder(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "STORE_DISABLED", "order history store not configured")
		return
	}
	order, err := s.DB.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) getOrderTrades(c *gin.Context) {
	if s.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "STORE_DISABLED", "order history store not configured")
		return
	}
	trades, err := s.DB.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if trades == nil {
		trades = []db.Trade{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func orderFilterFromQuery(c *gin.Context) (db.OrderFilter, error) {
	f := db.OrderFilter{
		Symbol: c.Query("symbol"),
		Side:   c.Query("side"),
		Status: c.Query("status"),
		Type:   c.Query("type"),
	}
	var err error
	if f.From, err = parseTimeParam(c.Query("from")); err != nil {
		return f, fmt.Errorf("from: %w", err)
	}
	if f.To, err = parseTimeParam(c.Query("to")); err != nil {
		return f, fmt.Errorf("to: %w", err)
	}
	if v := c.Query("limit"); v != "" {
		if f.Limit, err = cast.ToIntE(v); err != nil {
			return f, fmt.Errorf("limit: %w", err)
		}
	}
	if v := c.Query("offset"); v != "" {
		if f.Offset, err = cast.ToIntE(v); err != nil {
			return f, fmt.Errorf("offset: %w", err)
		}
	}
	return f, nil
}

// parseTimeParam accepts unix milliseconds or an RFC3339 timestamp.
func parseTimeParam(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if ms, err := cast.ToInt64E(v); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339, v)
}

package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"futures-dash/internal/tpsl"
)

// triggerRequest is the shared body of the trigger endpoints. Enum fields
// arrive as strings so aliases like LONG or TP are accepted.
type triggerRequest struct {
	Mode       string  `json:"mode"`
	Kind       string  `json:"kind"`
	Side       string  `json:"side"`
	RawInput   string  `json:"raw_input"`
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	Leverage   float64 `json:"leverage"`
	Policy     string  `json:"policy,omitempty"`
}

type parsedTrigger struct {
	spec   tpsl.TriggerSpec
	pos    tpsl.PositionContext
	policy tpsl.SignPolicy
}

func (r triggerRequest) parse(needSide bool) (parsedTrigger, error) {
	var out parsedTrigger
	mode, err := tpsl.ParseMode(r.Mode)
	if err != nil {
		return out, err
	}
	kind, err := tpsl.ParseKind(r.Kind)
	if err != nil {
		return out, err
	}
	var side tpsl.Side
	if needSide || r.Side != "" {
		if side, err = tpsl.ParseSide(r.Side); err != nil {
			return out, err
		}
	}
	policy, err := tpsl.ParseSignPolicy(r.Policy)
	if err != nil {
		return out, err
	}
	out.spec = tpsl.TriggerSpec{Mode: mode, Kind: kind, RawInput: r.RawInput, Side: side}
	out.pos = tpsl.PositionContext{EntryPrice: r.EntryPrice, Quantity: r.Quantity, Leverage: r.Leverage}
	out.policy = policy
	return out, nil
}

func (s *Server) bindTrigger(c *gin.Context, needSide bool) (parsedTrigger, bool) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid request payload")
		return parsedTrigger{}, false
	}
	t, err := req.parse(needSide)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return parsedTrigger{}, false
	}
	return t, true
}

// convertTrigger turns a PnL/ROI/price input into a trigger price string.
// An empty price means the input could not be converted.
func (s *Server) convertTrigger(c *gin.Context) {
	t, ok := s.bindTrigger(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"price": tpsl.Convert(t.spec, t.pos),
	})
}

func (s *Server) validateTrigger(c *gin.Context) {
	t, ok := s.bindTrigger(c, true)
	if !ok {
		return
	}
	res := tpsl.ValidateWith(t.policy, t.spec.Mode, t.spec.RawInput, t.spec.Kind, t.pos.EntryPrice, t.pos.Quantity, t.spec.Side)
	c.JSON(http.StatusOK, res.Localize(s.language(c)))
}

func (s *Server) projectTooltip(c *gin.Context) {
	t, ok := s.bindTrigger(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tpsl.Project(tpsl.TooltipInput{
		Mode:       t.spec.Mode,
		Kind:       t.spec.Kind,
		RawInput:   t.spec.RawInput,
		EntryPrice: t.pos.EntryPrice,
		Quantity:   t.pos.Quantity,
		Leverage:   t.pos.Leverage,
	}))
}

func (s *Server) calculatePnL(c *gin.Context) {
	var req struct {
		ExitPrice  float64 `json:"exit_price"`
		EntryPrice float64 `json:"entry_price"`
		Quantity   float64 `json:"quantity"`
		Leverage   float64 `json:"leverage"`
		Side       string  `json:"side"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	side, err := tpsl.ParseSide(req.Side)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	pnl := tpsl.CalculatePnL(req.ExitPrice, req.EntryPrice, req.Quantity, side)
	roi := tpsl.CalculateROI(pnl, req.EntryPrice, req.Quantity, req.Leverage)
	margin := tpsl.Margin(req.EntryPrice, req.Quantity, req.Leverage)
	for _, v := range []float64{pnl, roi, margin} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			respondError(c, http.StatusBadRequest, "OUT_OF_RANGE", "inputs overflow the PnL calculation")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"pnl":    pnl,
		"roi":    roi,
		"margin": margin,
	})
}

// Package tpsl converts, validates and previews take-profit / stop-loss
// triggers entered in price, PnL or ROI units.
package tpsl

import (
	"fmt"
	"strings"
)

// Mode is the unit the user is editing a trigger in.
type Mode string

const (
	ModePrice Mode = "PRICE"
	ModePnL   Mode = "PNL"
	ModeROI   Mode = "ROI"
)

// Kind distinguishes the take-profit leg from the stop-loss leg.
type Kind string

const (
	TakeProfit Kind = "TAKE_PROFIT"
	StopLoss   Kind = "STOP_LOSS"
)

// Side is the direction of the position the trigger protects.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// TriggerSpec is one TP or SL leg as typed by the user.
type TriggerSpec struct {
	Mode     Mode   `json:"mode"`
	Kind     Kind   `json:"kind"`
	RawInput string `json:"raw_input"`
	Side     Side   `json:"side"`
}

// PositionContext holds the per-evaluation position inputs.
type PositionContext struct {
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	Leverage   float64 `json:"leverage"`
}

// Valid reports whether computations are possible for this position.
func (p PositionContext) Valid() bool {
	return p.EntryPrice > 0 && p.Quantity > 0
}

// EffectiveLeverage treats absent or sub-1 leverage as 1x.
func (p PositionContext) EffectiveLeverage() float64 {
	return normalizeLeverage(p.Leverage)
}

func normalizeLeverage(lev float64) float64 {
	if lev < 1 {
		return 1
	}
	return lev
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRICE":
		return ModePrice, nil
	case "PNL":
		return ModePnL, nil
	case "ROI":
		return ModeROI, nil
	}
	return "", fmt.Errorf("unknown trigger mode %q", s)
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TAKE_PROFIT", "TP":
		return TakeProfit, nil
	case "STOP_LOSS", "SL":
		return StopLoss, nil
	}
	return "", fmt.Errorf("unknown trigger kind %q", s)
}

// ParseSide accepts BUY/SELL and the LONG/SHORT aliases used by position tables.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return Buy, nil
	case "SELL", "SHORT":
		return Sell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

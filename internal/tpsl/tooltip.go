package tpsl

import "math"

// TooltipInput is what the order form knows while the user types.
type TooltipInput struct {
	Mode       Mode    `json:"mode"`
	Kind       Kind    `json:"kind"`
	RawInput   string  `json:"raw_input"`
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	Leverage   float64 `json:"leverage"`
}

// PricePreview is the PnL/ROI a target price would realise on either side.
type PricePreview struct {
	LongPnL  float64 `json:"long_pnl"`
	ShortPnL float64 `json:"short_pnl"`
	LongROI  float64 `json:"long_roi"`
	ShortROI float64 `json:"short_roi"`
}

// Tooltip holds the trigger price for a long (BuyTrigger) and a short
// (SellTrigger) position so both can be shown regardless of the side traded.
type Tooltip struct {
	BuyTrigger  float64       `json:"buy_trigger"`
	SellTrigger float64       `json:"sell_trigger"`
	Preview     *PricePreview `json:"preview,omitempty"`
}

// Project derives the buy-side and sell-side trigger prices for in.
// Stop-loss values are read as a loss magnitude whatever sign was typed.
// Both triggers stay at the entry price when the input cannot be used and
// are never negative.
func Project(in TooltipInput) Tooltip {
	entry := in.EntryPrice
	t := Tooltip{BuyTrigger: entry, SellTrigger: entry}

	v, parsed := parseInput(in.RawInput)
	if !parsed || entry <= 0 {
		return t.clamp(entry)
	}
	if in.Kind == StopLoss {
		v = math.Abs(v)
	}

	switch in.Mode {
	case ModeROI:
		signed := v
		if in.Kind == StopLoss {
			signed = -v
		}
		ratio := signed / 100 / normalizeLeverage(in.Leverage)
		t.BuyTrigger = entry * (1 + ratio)
		t.SellTrigger = entry * (1 - ratio)

	case ModePrice:
		target := v
		switch {
		case target > entry:
			t.BuyTrigger, t.SellTrigger = target, entry
		case target < entry:
			t.BuyTrigger, t.SellTrigger = entry, target
		}
		if in.Quantity > 0 {
			t.Preview = previewAt(target, entry, in.Quantity, in.Leverage)
		}

	case ModePnL:
		if in.Quantity <= 0 {
			break
		}
		pnl := v
		if in.Kind == StopLoss {
			pnl = -v
		}
		delta := math.Abs(pnl) / in.Quantity
		if pnl >= 0 {
			t.BuyTrigger, t.SellTrigger = entry+delta, entry-delta
		} else {
			t.BuyTrigger, t.SellTrigger = entry-delta, entry+delta
		}
	}
	return t.clamp(entry)
}

func previewAt(target, entry, qty, leverage float64) *PricePreview {
	long := CalculatePnL(target, entry, qty, Buy)
	short := CalculatePnL(target, entry, qty, Sell)
	return &PricePreview{
		LongPnL:  long,
		ShortPnL: short,
		LongROI:  CalculateROI(long, entry, qty, leverage),
		ShortROI: CalculateROI(short, entry, qty, leverage),
	}
}

// clamp floors triggers at zero. Triggers that overflowed fall back to
// entry, and a preview with an overflowed figure is dropped.
func (t Tooltip) clamp(entry float64) Tooltip {
	if !finite(t.BuyTrigger) {
		t.BuyTrigger = entry
	}
	if !finite(t.SellTrigger) {
		t.SellTrigger = entry
	}
	t.BuyTrigger = math.Max(t.BuyTrigger, 0)
	t.SellTrigger = math.Max(t.SellTrigger, 0)
	if p := t.Preview; p != nil && !(finite(p.LongPnL) && finite(p.ShortPnL) && finite(p.LongROI) && finite(p.ShortROI)) {
		t.Preview = nil
	}
	return t
}

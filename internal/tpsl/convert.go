package tpsl

import (
	"github.com/shopspring/decimal"
)

// PriceDecimals is the precision of converted trigger prices. Display
// rounding to tick size is left to the caller.
const PriceDecimals = 8

// ToPrice converts a trigger typed in mode units into an absolute price
// string. It returns "" whenever the input cannot be converted: malformed or
// non-finite input, non-positive quantity or entry price, or an unknown
// mode/side. PRICE mode returns rawInput unchanged.
func ToPrice(mode Mode, rawInput string, entryPrice, quantity float64, side Side, kind Kind, leverage float64) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()

	v, ok := parseInput(rawInput)
	if !ok || quantity <= 0 || entryPrice <= 0 {
		return ""
	}
	if mode == ModePrice {
		return rawInput
	}
	if side != Buy && side != Sell {
		return ""
	}

	var pnl float64
	switch mode {
	case ModePnL:
		pnl = MagnitudeWithAutoNegatePolicy.Apply(kind, v)
	case ModeROI:
		roi := MagnitudeWithAutoNegatePolicy.Apply(kind, v)
		pnl = roi / 100 * Margin(entryPrice, quantity, leverage)
	default:
		return ""
	}

	price := priceForPnL(pnl, entryPrice, quantity, side)
	if !finite(price) {
		return ""
	}
	return FormatPrice(price)
}

// Convert is ToPrice over the struct inputs.
func Convert(spec TriggerSpec, pos PositionContext) string {
	return ToPrice(spec.Mode, spec.RawInput, pos.EntryPrice, pos.Quantity, spec.Side, spec.Kind, pos.Leverage)
}

// FormatPrice renders a price with PriceDecimals fixed decimals.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(PriceDecimals)
}

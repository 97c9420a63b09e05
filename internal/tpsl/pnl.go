package tpsl

// CalculatePnL is the linear futures PnL: (exit-entry)*qty for a long,
// (entry-exit)*qty for a short.
func CalculatePnL(exitPrice, entryPrice, quantity float64, side Side) float64 {
	if side == Sell {
		return (entryPrice - exitPrice) * quantity
	}
	return (exitPrice - entryPrice) * quantity
}

// Margin is the notional divided by leverage.
func Margin(entryPrice, quantity, leverage float64) float64 {
	return entryPrice * quantity / normalizeLeverage(leverage)
}

// CalculateROI returns pnl as a percentage of margin. Zero margin yields 0.
func CalculateROI(pnl, entryPrice, quantity, leverage float64) float64 {
	m := Margin(entryPrice, quantity, leverage)
	if m <= 0 {
		return 0
	}
	return pnl / m * 100
}

// priceForPnL solves the linear model for the exit price.
func priceForPnL(pnl, entryPrice, quantity float64, side Side) float64 {
	if side == Sell {
		return entryPrice - pnl/quantity
	}
	return entryPrice + pnl/quantity
}

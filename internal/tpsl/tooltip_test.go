package tpsl

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		in       TooltipInput
		wantBuy  float64
		wantSell float64
	}{
		{
			name:    "price above entry",
			in:      TooltipInput{Mode: ModePrice, Kind: TakeProfit, RawInput: "110", EntryPrice: 100, Quantity: 1},
			wantBuy: 110, wantSell: 100,
		},
		{
			name:    "price below entry",
			in:      TooltipInput{Mode: ModePrice, Kind: StopLoss, RawInput: "90", EntryPrice: 100, Quantity: 1},
			wantBuy: 100, wantSell: 90,
		},
		{
			name:    "price at entry",
			in:      TooltipInput{Mode: ModePrice, Kind: TakeProfit, RawInput: "100", EntryPrice: 100, Quantity: 1},
			wantBuy: 100, wantSell: 100,
		},
		{
			name:    "roi tp",
			in:      TooltipInput{Mode: ModeROI, Kind: TakeProfit, RawInput: "20", EntryPrice: 100, Leverage: 10},
			wantBuy: 102, wantSell: 98,
		},
		{
			name:    "roi sl reads magnitude",
			in:      TooltipInput{Mode: ModeROI, Kind: StopLoss, RawInput: "-20", EntryPrice: 100, Leverage: 10},
			wantBuy: 98, wantSell: 102,
		},
		{
			name:    "roi sl positive",
			in:      TooltipInput{Mode: ModeROI, Kind: StopLoss, RawInput: "20", EntryPrice: 100, Leverage: 10},
			wantBuy: 98, wantSell: 102,
		},
		{
			name:    "pnl tp",
			in:      TooltipInput{Mode: ModePnL, Kind: TakeProfit, RawInput: "50", EntryPrice: 100, Quantity: 2},
			wantBuy: 125, wantSell: 75,
		},
		{
			name:    "pnl negative tp",
			in:      TooltipInput{Mode: ModePnL, Kind: TakeProfit, RawInput: "-50", EntryPrice: 100, Quantity: 2},
			wantBuy: 75, wantSell: 125,
		},
		{
			name:    "pnl sl",
			in:      TooltipInput{Mode: ModePnL, Kind: StopLoss, RawInput: "10", EntryPrice: 100, Quantity: 2},
			wantBuy: 95, wantSell: 105,
		},
		{
			name:    "pnl needs quantity",
			in:      TooltipInput{Mode: ModePnL, Kind: TakeProfit, RawInput: "10", EntryPrice: 100},
			wantBuy: 100, wantSell: 100,
		},
		{
			name:    "clamped at zero",
			in:      TooltipInput{Mode: ModePnL, Kind: TakeProfit, RawInput: "500", EntryPrice: 100, Quantity: 1},
			wantBuy: 600, wantSell: 0,
		},
		{
			name:    "roi clamped at zero",
			in:      TooltipInput{Mode: ModeROI, Kind: StopLoss, RawInput: "500", EntryPrice: 100, Leverage: 1},
			wantBuy: 0, wantSell: 600,
		},
		{
			name:    "empty input keeps entry",
			in:      TooltipInput{Mode: ModeROI, Kind: TakeProfit, RawInput: "", EntryPrice: 100, Leverage: 5},
			wantBuy: 100, wantSell: 100,
		},
		{
			name:    "non-positive entry",
			in:      TooltipInput{Mode: ModePrice, Kind: TakeProfit, RawInput: "10", EntryPrice: -5},
			wantBuy: 0, wantSell: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.in)
			assert.InDelta(t, tt.wantBuy, got.BuyTrigger, 1e-9)
			assert.InDelta(t, tt.wantSell, got.SellTrigger, 1e-9)
			assert.GreaterOrEqual(t, got.BuyTrigger, 0.0)
			assert.GreaterOrEqual(t, got.SellTrigger, 0.0)
		})
	}
}

func TestProjectPricePreview(t *testing.T) {
	got := Project(TooltipInput{Mode: ModePrice, Kind: TakeProfit, RawInput: "110", EntryPrice: 100, Quantity: 2, Leverage: 10})
	require.NotNil(t, got.Preview)
	assert.InDelta(t, 20, got.Preview.LongPnL, 1e-9)
	assert.InDelta(t, -20, got.Preview.ShortPnL, 1e-9)
	// margin = 100*2/10 = 20
	assert.InDelta(t, 100, got.Preview.LongROI, 1e-9)
	assert.InDelta(t, -100, got.Preview.ShortROI, 1e-9)

	noQty := Project(TooltipInput{Mode: ModePrice, Kind: TakeProfit, RawInput: "110", EntryPrice: 100})
	assert.Nil(t, noQty.Preview)

	roi := Project(TooltipInput{Mode: ModeROI, Kind: TakeProfit, RawInput: "10", EntryPrice: 100, Quantity: 1})
	assert.Nil(t, roi.Preview)
}

func TestProjectOverflowFallsBackToEntry(t *testing.T) {
	got := Project(TooltipInput{Mode: ModePnL, Kind: TakeProfit, RawInput: "1e308", EntryPrice: 100, Quantity: 1e-10})
	assert.Equal(t, 100.0, got.BuyTrigger)
	assert.Equal(t, 100.0, got.SellTrigger)

	preview := Project(TooltipInput{Mode: ModePrice, Kind: TakeProfit, RawInput: "1e308", EntryPrice: 1, Quantity: 1e10, Leverage: 1})
	assert.False(t, math.IsInf(preview.BuyTrigger, 0))
	assert.Nil(t, preview.Preview)

	for _, tip := range []Tooltip{got, preview} {
		_, err := json.Marshal(tip)
		require.NoError(t, err)
	}
}

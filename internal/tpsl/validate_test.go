package tpsl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"futures-dash/pkg/i18n"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		raw      string
		kind     Kind
		entry    float64
		qty      float64
		side     Side
		wantCode string
	}{
		{name: "empty is optional", mode: ModePrice, raw: "", kind: TakeProfit, entry: 100, qty: 1, side: Buy},
		{name: "garbage is optional", mode: ModePnL, raw: "1.2.3", kind: StopLoss, entry: 100, qty: 1, side: Buy},
		{name: "empty skips position check", mode: ModePrice, raw: "", kind: TakeProfit, entry: 0, qty: 0, side: Buy},
		{name: "zero qty", mode: ModePrice, raw: "110", kind: TakeProfit, entry: 100, qty: 0, side: Buy, wantCode: CodeInvalidPosition},
		{name: "zero entry", mode: ModePnL, raw: "5", kind: TakeProfit, entry: 0, qty: 1, side: Buy, wantCode: CodeInvalidPosition},

		{name: "price zero", mode: ModePrice, raw: "0", kind: TakeProfit, entry: 100, qty: 1, side: Buy, wantCode: CodePriceNotPositive},
		{name: "tp long above", mode: ModePrice, raw: "110", kind: TakeProfit, entry: 100, qty: 1, side: Buy},
		{name: "tp long below", mode: ModePrice, raw: "90", kind: TakeProfit, entry: 100, qty: 1, side: Buy, wantCode: CodeTakeProfitAboveEntry},
		{name: "tp long at entry", mode: ModePrice, raw: "100", kind: TakeProfit, entry: 100, qty: 1, side: Buy, wantCode: CodeTakeProfitAboveEntry},
		{name: "tp short below", mode: ModePrice, raw: "90", kind: TakeProfit, entry: 100, qty: 1, side: Sell},
		{name: "tp short above", mode: ModePrice, raw: "110", kind: TakeProfit, entry: 100, qty: 1, side: Sell, wantCode: CodeTakeProfitBelowEntry},
		{name: "sl long below", mode: ModePrice, raw: "90", kind: StopLoss, entry: 100, qty: 1, side: Buy},
		{name: "sl long above", mode: ModePrice, raw: "110", kind: StopLoss, entry: 100, qty: 1, side: Buy, wantCode: CodeStopLossBelowEntry},
		{name: "sl short above", mode: ModePrice, raw: "110", kind: StopLoss, entry: 100, qty: 1, side: Sell},
		{name: "sl short below", mode: ModePrice, raw: "90", kind: StopLoss, entry: 100, qty: 1, side: Sell, wantCode: CodeStopLossAboveEntry},

		{name: "pnl tp positive", mode: ModePnL, raw: "5", kind: TakeProfit, entry: 100, qty: 1, side: Buy},
		{name: "pnl tp negative", mode: ModePnL, raw: "-5", kind: TakeProfit, entry: 100, qty: 1, side: Buy, wantCode: CodeTakeProfitMustBeProfit},
		{name: "pnl sl negative", mode: ModePnL, raw: "-5", kind: StopLoss, entry: 100, qty: 1, side: Sell},
		{name: "pnl sl positive raw", mode: ModePnL, raw: "5", kind: StopLoss, entry: 100, qty: 1, side: Buy, wantCode: CodeStopLossMustBeLoss},
		{name: "roi tp zero", mode: ModeROI, raw: "0", kind: TakeProfit, entry: 100, qty: 1, side: Buy, wantCode: CodeTakeProfitMustBeProfit},
		{name: "roi sl negative", mode: ModeROI, raw: "-25", kind: StopLoss, entry: 100, qty: 1, side: Buy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.mode, tt.raw, tt.kind, tt.entry, tt.qty, tt.side)
			if tt.wantCode == "" {
				assert.True(t, res.Valid, "unexpected failure %s", res.Code)
				assert.Empty(t, res.Error)
				return
			}
			assert.False(t, res.Valid)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestValidateWithMagnitudePolicy(t *testing.T) {
	// A positive stop-loss magnitude passes once the conversion policy is chosen.
	res := ValidateWith(MagnitudeWithAutoNegatePolicy, ModePnL, "5", StopLoss, 100, 1, Buy)
	assert.True(t, res.Valid)

	res = Validate(ModePnL, "5", StopLoss, 100, 1, Buy)
	assert.False(t, res.Valid)
}

func TestResultLocalize(t *testing.T) {
	res := Validate(ModePrice, "90", TakeProfit, 100, 1, Buy)
	assert.Equal(t, i18n.For(i18n.LangEN).TakeProfitAboveEntry, res.Error)

	zh := res.Localize(i18n.LangZH)
	assert.Equal(t, i18n.For(i18n.LangZH).TakeProfitAboveEntry, zh.Error)
	assert.Equal(t, res.Code, zh.Code)

	valid := Result{Valid: true}.Localize(i18n.LangZH)
	assert.Empty(t, valid.Error)
}

func TestValidateSpec(t *testing.T) {
	spec := TriggerSpec{Mode: ModePrice, Kind: StopLoss, RawInput: "95", Side: Buy}
	assert.True(t, ValidateSpec(spec, PositionContext{EntryPrice: 100, Quantity: 1}).Valid)
}

func TestParseSignPolicy(t *testing.T) {
	p, err := ParseSignPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, RawSignedPolicy, p)

	p, err = ParseSignPolicy(" Magnitude_Auto_Negate ")
	assert.NoError(t, err)
	assert.Equal(t, MagnitudeWithAutoNegatePolicy, p)
	assert.Equal(t, "magnitude_auto_negate", p.String())

	_, err = ParseSignPolicy("flip")
	assert.Error(t, err)
}

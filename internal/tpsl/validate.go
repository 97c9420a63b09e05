package tpsl

import (
	"futures-dash/pkg/i18n"
)

// Result codes double as i18n message keys.
const (
	CodeInvalidPosition        = "InvalidPosition"
	CodePriceNotPositive       = "PriceNotPositive"
	CodeTakeProfitAboveEntry   = "TakeProfitAboveEntry"
	CodeTakeProfitBelowEntry   = "TakeProfitBelowEntry"
	CodeStopLossBelowEntry     = "StopLossBelowEntry"
	CodeStopLossAboveEntry     = "StopLossAboveEntry"
	CodeTakeProfitMustBeProfit = "TakeProfitMustBeProfit"
	CodeStopLossMustBeLoss     = "StopLossMustBeLoss"
)

// Result is the outcome of validating one trigger leg.
type Result struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Localize returns a copy with Error rendered in lang.
func (r Result) Localize(lang i18n.Language) Result {
	if r.Valid || r.Code == "" {
		return r
	}
	r.Error = i18n.GetIn(lang, r.Code)
	return r
}

func ok() Result { return Result{Valid: true} }

func fail(code string) Result {
	return Result{Code: code, Error: i18n.Get(code)}
}

// Validate checks that a trigger is economically consistent with the
// position. Empty or unparsable input is valid because the field is
// optional. PnL and ROI values are read with RawSignedPolicy.
func Validate(mode Mode, rawInput string, kind Kind, entryPrice, quantity float64, side Side) Result {
	return ValidateWith(RawSignedPolicy, mode, rawInput, kind, entryPrice, quantity, side)
}

// ValidateWith is Validate with an explicit sign policy for PnL/ROI modes.
func ValidateWith(policy SignPolicy, mode Mode, rawInput string, kind Kind, entryPrice, quantity float64, side Side) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = fail(CodeInvalidPosition)
		}
	}()

	v, parsed := parseInput(rawInput)
	if !parsed {
		return ok()
	}
	if quantity <= 0 || entryPrice <= 0 {
		return fail(CodeInvalidPosition)
	}

	switch mode {
	case ModePrice:
		return validatePrice(v, kind, entryPrice, side)
	case ModePnL, ModeROI:
		return validateSigned(policy.Apply(kind, v), kind)
	}
	return ok()
}

func validatePrice(price float64, kind Kind, entryPrice float64, side Side) Result {
	if price <= 0 {
		return fail(CodePriceNotPositive)
	}
	switch kind {
	case TakeProfit:
		if side == Buy && price <= entryPrice {
			return fail(CodeTakeProfitAboveEntry)
		}
		if side == Sell && price >= entryPrice {
			return fail(CodeTakeProfitBelowEntry)
		}
	case StopLoss:
		if side == Buy && price >= entryPrice {
			return fail(CodeStopLossBelowEntry)
		}
		if side == Sell && price <= entryPrice {
			return fail(CodeStopLossAboveEntry)
		}
	}
	return ok()
}

func validateSigned(v float64, kind Kind) Result {
	switch kind {
	case TakeProfit:
		if v <= 0 {
			return fail(CodeTakeProfitMustBeProfit)
		}
	case StopLoss:
		if v >= 0 {
			return fail(CodeStopLossMustBeLoss)
		}
	}
	return ok()
}

// ValidateSpec is Validate over the struct inputs.
func ValidateSpec(spec TriggerSpec, pos PositionContext) Result {
	return Validate(spec.Mode, spec.RawInput, spec.Kind, pos.EntryPrice, pos.Quantity, spec.Side)
}

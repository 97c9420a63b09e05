package tpsl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SignPolicy decides how a signed PnL/ROI value typed for a leg is read.
//
// Validation and conversion currently disagree on stop-loss sign handling:
// validation expects a negative number, conversion expects a positive
// magnitude and negates it. Both readings are kept as named policies until
// the product decides which one the form should enforce.
type SignPolicy int

const (
	// RawSignedPolicy uses the typed value as is.
	RawSignedPolicy SignPolicy = iota
	// MagnitudeWithAutoNegatePolicy negates a positive stop-loss value.
	MagnitudeWithAutoNegatePolicy
)

func (p SignPolicy) String() string {
	switch p {
	case RawSignedPolicy:
		return "raw_signed"
	case MagnitudeWithAutoNegatePolicy:
		return "magnitude_auto_negate"
	}
	return "unknown"
}

// ParseSignPolicy reads a policy name. Empty selects RawSignedPolicy.
func ParseSignPolicy(s string) (SignPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw_signed":
		return RawSignedPolicy, nil
	case "magnitude_auto_negate":
		return MagnitudeWithAutoNegatePolicy, nil
	}
	return 0, fmt.Errorf("unknown sign policy %q", s)
}

// Apply returns the signed value for the given leg.
func (p SignPolicy) Apply(kind Kind, v float64) float64 {
	if p == MagnitudeWithAutoNegatePolicy && kind == StopLoss && v > 0 {
		return -v
	}
	return v
}

// parseInput reads a user-typed number. ok is false for empty, malformed,
// NaN and infinite input.
func parseInput(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

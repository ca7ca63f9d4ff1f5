package exec

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rounding selects the strategy a Sizer applies when a raw unit count does
// not land on the lot step. Implicit floating rounding is never used.
type Rounding int

const (
	RoundFloor Rounding = iota
	RoundNearest
	RoundCeiling
)

func (r Rounding) String() string {
	switch r {
	case RoundFloor:
		return "floor"
	case RoundNearest:
		return "nearest"
	case RoundCeiling:
		return "ceiling"
	}
	return fmt.Sprintf("Rounding(%d)", int(r))
}

func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "floor":
		return RoundFloor, nil
	case "nearest":
		return RoundNearest, nil
	case "ceiling":
		return RoundCeiling, nil
	}
	return 0, fmt.Errorf("unknown rounding strategy %q", s)
}

// Sizer computes position sizes from available cash using fixed-point
// decimal arithmetic, so the rounding behavior is a declared strategy rather
// than a float accident.
type Sizer struct {
	Rounding Rounding
	// Step is the lot granularity; 1 means whole units.
	Step decimal.Decimal
}

// NewSizer returns a whole-unit sizer with the given rounding strategy.
func NewSizer(r Rounding) Sizer {
	return Sizer{Rounding: r, Step: decimal.NewFromInt(1)}
}

// Units returns how many units of price the cash affords, rounded to the
// sizer's step. Returns 0 when price is non-positive or cash is exhausted.
func (s Sizer) Units(cash, price float64) float64 {
	if price <= 0 || cash <= 0 {
		return 0
	}

	raw := decimal.NewFromFloat(cash).Div(decimal.NewFromFloat(price))
	steps := raw.Div(s.Step)

	switch s.Rounding {
	case RoundNearest:
		steps = steps.Round(0)
	case RoundCeiling:
		steps = steps.Ceil()
	default:
		steps = steps.Floor()
	}

	units := steps.Mul(s.Step)
	if units.IsNegative() {
		return 0
	}
	f, _ := units.Float64()
	return f
}

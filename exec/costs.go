// Package exec pairs fills into trades and applies the slippage/commission
// cost model. All cost arithmetic keeps an exact accounting identity: the
// per-fill cost fields sum to the trade-level totals, no approximation.
package exec

import (
	"math"

	"github.com/rustyeddy/replay/intent"
)

// CostConfig holds the proportional cost model parameters. Both knobs are in
// basis points; Qty is the fixed per-trade quantity of the non-compounding
// path.
type CostConfig struct {
	CommissionBPS float64
	SlippageBPS   float64
	Qty           float64
}

// FillCost is the executed-price evidence for one fill.
type FillCost struct {
	IdealPrice     float64
	EffectivePrice float64
	Qty            float64
	Commission     float64
	Slippage       float64
}

// EffectivePrice applies proportional slippage: BUY moves the price up,
// SELL moves it down, by the same fraction in both directions.
func EffectivePrice(side intent.Side, ideal, slippageBPS float64) float64 {
	if side == intent.Buy {
		return ideal * (1 + slippageBPS/10000)
	}
	return ideal * (1 - slippageBPS/10000)
}

// Commission charges bps on the executed notional.
func Commission(effective, qty, commissionBPS float64) float64 {
	return effective * qty * commissionBPS / 10000
}

// Cost computes the full per-fill cost evidence for one leg.
func Cost(side intent.Side, ideal, qty float64, cfg CostConfig) FillCost {
	eff := EffectivePrice(side, ideal, cfg.SlippageBPS)
	return FillCost{
		IdealPrice:     ideal,
		EffectivePrice: eff,
		Qty:            qty,
		Commission:     Commission(eff, qty, cfg.CommissionBPS),
		Slippage:       math.Abs(eff-ideal) * qty,
	}
}

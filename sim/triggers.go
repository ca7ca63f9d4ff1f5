package sim

import (
	"github.com/rustyeddy/replay/intent"
	"github.com/rustyeddy/replay/market"
)

// entryTriggered reports whether the bar touches the entry level: BUY
// triggers when the bar high reaches the level, SELL when the low does.
func entryTriggered(side intent.Side, entry float64, b market.Bar) bool {
	if side == intent.Buy {
		return b.High >= entry
	}
	return b.Low <= entry
}

// entryFillPrice returns the executable price for a triggered entry. When
// the bar opened beyond the level the order could never have filled at the
// stale trigger price, so the fill is the open (gap fill); otherwise the bar
// crossed the level intrabar and the fill is the level itself.
func entryFillPrice(side intent.Side, entry float64, b market.Bar) float64 {
	if side == intent.Buy {
		if b.Open >= entry {
			return b.Open
		}
		return entry
	}
	if b.Open <= entry {
		return b.Open
	}
	return entry
}

// checkExit models stop/take-profit hits within one bar. When both levels
// are touched in the same bar the stop wins: with intrabar order unknown,
// assuming the worse outcome protects against overstating performance.
func checkExit(side intent.Side, stop, take float64, b market.Bar) (price float64, reason intent.FillReason, hit bool) {
	var stopHit, takeHit bool
	if side == intent.Buy {
		stopHit = b.Low <= stop
		takeHit = b.High >= take
	} else {
		stopHit = b.High >= stop
		takeHit = b.Low <= take
	}

	if stopHit {
		return stop, intent.ReasonStopLoss, true
	}
	if takeHit {
		return take, intent.ReasonTakeProfit, true
	}
	return 0, 0, false
}

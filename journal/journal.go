// Package journal persists run artifacts: sanitized intents, the fill log
// with cost evidence, paired trades, and the equity curve. Backends exist
// for CSV artifact directories and SQLite.
package journal

import (
	"time"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
	"github.com/rustyeddy/replay/sim"
)

// FillRow is one fill-log row plus the per-fill cost fields.
type FillRow struct {
	sim.Fill
	EffectivePrice float64
	Qty            float64
	Commission     float64
	Slippage       float64
}

// EquityPoint is one equity-curve sample.
type EquityPoint struct {
	TS          time.Time
	Equity      float64
	DrawdownPct float64
}

// Journal records the artifacts of one run. Implementations must tolerate
// records arriving in canonical engine order and persist them verbatim.
type Journal interface {
	RecordIntent(intent.Intent) error
	RecordFill(FillRow) error
	RecordTrade(exec.Trade) error
	RecordEquity(EquityPoint) error
	Close() error
}

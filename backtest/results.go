package backtest

import (
	"time"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/ledger"
	"github.com/rustyeddy/replay/sim"
)

// Result is the summary of one replay run.
type Result struct {
	RunID string

	Intents         int
	RejectedSignals int
	RejectedIntents int
	Fills           int

	Trades int
	Wins   int
	Losses int

	NetPL     float64
	ReturnPct float64

	Summary ledger.Summary
	Gaps    sim.GapStats

	Start time.Time
	End   time.Time
}

func (res *Result) fillStats(trades []exec.Trade, sum ledger.Summary, simRes *sim.Result) {
	res.Summary = sum
	res.NetPL = sum.TotalPNLNetUSD
	if sum.InitialCashUSD > 0 {
		res.ReturnPct = res.NetPL / sum.InitialCashUSD * 100
	}

	for _, t := range trades {
		if t.Open {
			continue
		}
		res.Trades++
		switch {
		case t.NetPNL > 0:
			res.Wins++
		case t.NetPNL < 0:
			res.Losses++
		}
		if res.Start.IsZero() || t.EntryTime.Before(res.Start) {
			res.Start = t.EntryTime
		}
		if t.ExitTime.After(res.End) {
			res.End = t.ExitTime
		}
	}
}

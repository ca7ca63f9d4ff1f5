// Package ledger maintains the cash-only portfolio ledger: an append-only
// entry sequence with monotonicity guarantees and deterministic replay.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/market"
)

// EventType is the closed set of ledger entry kinds.
type EventType int

const (
	Start EventType = iota
	TradeExit
)

func (t EventType) String() string {
	switch t {
	case Start:
		return "START"
	case TradeExit:
		return "TRADE_EXIT"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Entry is one permanent ledger row. Seq disambiguates entries sharing a
// timestamp; entries are never mutated after creation, only superseded.
//
// Fees and Slippage are evidence fields: they are already reflected inside
// PNL and are never subtracted a second time.
type Entry struct {
	Seq          int
	TS           time.Time
	Type         EventType
	PNL          float64
	Fees         float64
	Slippage     float64
	CashBefore   float64
	CashAfter    float64
	EquityBefore float64
	EquityAfter  float64
	Meta         map[string]string
}

// Options configures timestamp safety. In strict mode a non-monotonic or
// naive exit timestamp is a hard error; in permissive mode multi-symbol
// exits may arrive out of chronological order and Seq provides the
// tie-break.
type Options struct {
	StrictTime bool
	RefZone    *time.Location
	Log        *logrus.Logger
}

// Ledger exclusively owns its entries; callers only ever append through
// ApplyTrade.
type Ledger struct {
	opts        Options
	initialCash float64
	entries     []Entry
}

// New seeds the ledger with a START entry where cash == equity ==
// initialCash.
func New(initialCash float64, opts Options) *Ledger {
	if opts.RefZone == nil {
		opts.RefZone = time.UTC
	}
	l := &Ledger{opts: opts, initialCash: initialCash}
	l.entries = append(l.entries, Entry{
		Seq:          0,
		Type:         Start,
		CashBefore:   initialCash,
		CashAfter:    initialCash,
		EquityBefore: initialCash,
		EquityAfter:  initialCash,
	})
	return l
}

// ApplyTrade appends one TRADE_EXIT entry. pnlNet already includes fees and
// slippage; cash moves by pnlNet alone. Equity equals cash in this mode (no
// mark-to-market of open positions).
func (l *Ledger) ApplyTrade(exitTS time.Time, pnlNet, fees, slippage float64, meta map[string]string) (Entry, error) {
	ts := exitTS
	if market.IsNaive(ts) {
		if l.opts.StrictTime {
			return Entry{}, fmt.Errorf("ledger: naive exit timestamp %s rejected in strict mode", ts)
		}
		ts = time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), l.opts.RefZone)
		if meta == nil {
			meta = map[string]string{}
		}
		meta["naive_ts_normalized"] = "true"
	}

	last := l.entries[len(l.entries)-1]
	if !last.TS.IsZero() && ts.Before(last.TS) {
		if l.opts.StrictTime {
			return Entry{}, fmt.Errorf("ledger: exit timestamp %s before previous entry %s", ts, last.TS)
		}
		if l.opts.Log != nil {
			l.opts.Log.WithFields(logrus.Fields{
				"ts":      ts,
				"prev_ts": last.TS,
			}).Warn("ledger: out-of-order exit, sequence number is authoritative")
		}
	}

	e := Entry{
		Seq:          len(l.entries),
		TS:           ts,
		Type:         TradeExit,
		PNL:          pnlNet,
		Fees:         fees,
		Slippage:     slippage,
		CashBefore:   last.CashAfter,
		CashAfter:    last.CashAfter + pnlNet,
		EquityBefore: last.EquityAfter,
		EquityAfter:  last.EquityAfter + pnlNet,
		Meta:         meta,
	}
	l.entries = append(l.entries, e)
	return e, nil
}

// Entries returns the full entry sequence.
func (l *Ledger) Entries() []Entry { return l.entries }

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.entries[len(l.entries)-1].CashAfter }

// Summary is the accounting rollup exposed to reporting.
type Summary struct {
	InitialCashUSD   float64
	FinalCashUSD     float64
	TotalPNLNetUSD   float64
	TotalFeesUSD     float64
	TotalSlippageUSD float64
}

// Summary satisfies final_cash == initial_cash + total_pnl_net by
// construction: cash only ever moves by pnlNet.
func (l *Ledger) Summary() Summary {
	s := Summary{InitialCashUSD: l.initialCash}
	for _, e := range l.entries {
		s.TotalPNLNetUSD += e.PNL
		s.TotalFeesUSD += e.Fees
		s.TotalSlippageUSD += e.Slippage
	}
	s.FinalCashUSD = l.Cash()
	return s
}

// ReplayFromTrades reconstructs a ledger directly from a trade table. The
// trades are put into canonical (exit time, template id) order first, so the
// result is shuffle-invariant and row-identical to applying the same trades
// one by one in that order. Open trades carry no realized pnl and are
// skipped.
func ReplayFromTrades(trades []exec.Trade, initialCash float64, opts Options) (*Ledger, error) {
	closed := make([]exec.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.Open {
			closed = append(closed, t)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		if !closed[i].ExitTime.Equal(closed[j].ExitTime) {
			return closed[i].ExitTime.Before(closed[j].ExitTime)
		}
		return closed[i].TemplateID < closed[j].TemplateID
	})

	l := New(initialCash, opts)
	for _, t := range closed {
		_, err := l.ApplyTrade(t.ExitTime, t.NetPNL, t.CommissionCost, t.SlippageCost, map[string]string{
			"template_id": t.TemplateID,
			"symbol":      t.Symbol,
			"exit_reason": t.ExitReason.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("replay trades: %w", err)
		}
	}
	return l, nil
}

package exec

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/replay/intent"
	"github.com/rustyeddy/replay/sim"
)

// Trade is the derived, read-only projection of one template's entry and
// exit fills, with the cost breakdown attached.
type Trade struct {
	TemplateID string
	Symbol     string
	Side       intent.Side
	Qty        float64

	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64 // ideal
	ExitPrice  float64 // ideal
	Entry      FillCost
	Exit       FillCost

	ExitReason intent.FillReason
	Open       bool // entry-only record, still open

	GrossPNL       float64
	NetPNL         float64
	CommissionCost float64
	SlippageCost   float64
	TotalCost      float64
}

// Pair groups executing fills by template and derives one trade per
// template. Exit reason comes from the exit fill; only an entry-only record
// falls back to the intent's scheduled valid_to reason.
func Pair(fills []sim.Fill, intents []intent.Intent, cfg CostConfig) ([]Trade, error) {
	if cfg.Qty <= 0 {
		return nil, fmt.Errorf("pair: qty must be positive, got %v", cfg.Qty)
	}

	byTemplate := map[string]intent.Intent{}
	for _, in := range intents {
		byTemplate[in.TemplateID] = in
	}

	type legs struct {
		entry, exit *sim.Fill
	}
	grouped := map[string]*legs{}

	for i := range fills {
		f := fills[i]
		if !f.Reason.Executes() {
			continue
		}
		g := grouped[f.TemplateID]
		if g == nil {
			g = &legs{}
			grouped[f.TemplateID] = g
		}
		switch f.Reason {
		case intent.ReasonSignalFill:
			if g.entry != nil {
				return nil, fmt.Errorf("pair: template %s has two entry fills", f.TemplateID)
			}
			g.entry = &fills[i]
		default:
			if g.exit != nil {
				return nil, fmt.Errorf("pair: template %s has two exit fills", f.TemplateID)
			}
			g.exit = &fills[i]
		}
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var trades []Trade
	for _, id := range ids {
		g := grouped[id]
		if g.entry == nil {
			return nil, fmt.Errorf("pair: template %s has an exit fill but no entry", id)
		}
		in, ok := byTemplate[id]
		if !ok {
			return nil, fmt.Errorf("pair: fill references unknown template %s", id)
		}

		tr := Trade{
			TemplateID: id,
			Symbol:     g.entry.Symbol,
			Side:       in.Side,
			Qty:        cfg.Qty,
			EntryTime:  g.entry.Time,
			EntryPrice: g.entry.Price,
			Entry:      Cost(in.Side, g.entry.Price, cfg.Qty, cfg),
		}

		if g.exit == nil {
			tr.Open = true
			tr.ExitReason = in.ValidToReason
			tr.CommissionCost = tr.Entry.Commission
			tr.SlippageCost = tr.Entry.Slippage
			tr.TotalCost = tr.CommissionCost + tr.SlippageCost
			trades = append(trades, tr)
			continue
		}

		exitSide := in.Side * -1
		tr.ExitTime = g.exit.Time
		tr.ExitPrice = g.exit.Price
		tr.Exit = Cost(exitSide, g.exit.Price, cfg.Qty, cfg)
		tr.ExitReason = g.exit.Reason

		dir := float64(in.Side)
		tr.GrossPNL = dir * (tr.ExitPrice - tr.EntryPrice) * cfg.Qty
		tr.CommissionCost = tr.Entry.Commission + tr.Exit.Commission
		tr.SlippageCost = tr.Entry.Slippage + tr.Exit.Slippage
		tr.TotalCost = tr.CommissionCost + tr.SlippageCost
		tr.NetPNL = tr.GrossPNL - tr.TotalCost

		trades = append(trades, tr)
	}

	return trades, nil
}

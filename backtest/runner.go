// Package backtest wires the component chain together: sanitize raw
// signals, compute admission windows, simulate fills, pair trades, maintain
// the ledger, and journal every artifact.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/replay/config"
	"github.com/rustyeddy/replay/event"
	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
	"github.com/rustyeddy/replay/journal"
	"github.com/rustyeddy/replay/ledger"
	"github.com/rustyeddy/replay/market"
	"github.com/rustyeddy/replay/sim"
)

// RawSignal is one unsanitized record from the signal layer.
type RawSignal struct {
	Fields map[string]string
}

// Runner drives one complete replay run. Each run owns its own engine,
// ledger and journal; independent runs share no state.
type Runner struct {
	RunID    string
	Config   *config.Config
	Calendar *market.Calendar
	Series   map[string]*market.Series
	Signals  []RawSignal
	Journal  journal.Journal
	Log      *logrus.Logger
}

// Run executes the full chain and returns the run summary. Admission and
// per-record failures reject individual orders; the batch fails only when
// zero records survive.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Config == nil {
		return Result{}, fmt.Errorf("backtest: Config is required")
	}
	if r.Journal == nil {
		return Result{}, fmt.Errorf("backtest: Journal is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{RunID: r.RunID}

	intents, rejected := r.admit()
	res.RejectedSignals = rejected
	if len(r.Signals) > 0 && len(intents) == 0 {
		return res, fmt.Errorf("backtest: all %d signal records rejected", len(r.Signals))
	}
	res.Intents = len(intents)

	sort.Slice(intents, func(i, j int) bool { return intents[i].TemplateID < intents[j].TemplateID })
	for _, in := range intents {
		if err := r.Journal.RecordIntent(in); err != nil {
			return res, fmt.Errorf("record intent: %w", err)
		}
	}

	simRes, err := sim.Run(intents, r.Series, sim.Config{
		DataExhausted: dataExhausted(r.Config.Engine.DataExhausted),
		Log:           r.Log,
	})
	if err != nil {
		return res, err
	}
	res.Fills = len(simRes.Fills)
	res.Gaps = simRes.Gaps
	res.RejectedIntents = len(simRes.Rejections)

	var trades []exec.Trade
	if r.Config.Engine.Compounding {
		trades, err = r.runCompounding(simRes, intents)
	} else {
		trades, err = r.runFixed(simRes, intents)
	}
	if err != nil {
		return res, err
	}

	for _, t := range trades {
		if err := r.Journal.RecordTrade(t); err != nil {
			return res, fmt.Errorf("record trade: %w", err)
		}
	}

	led, err := ledger.ReplayFromTrades(trades, r.Config.Account.InitialCash, ledger.Options{
		StrictTime: r.Config.Engine.StrictTime,
		Log:        r.Log,
	})
	if err != nil {
		return res, err
	}

	if err := r.recordEquity(led, simRes); err != nil {
		return res, err
	}

	res.fillStats(trades, led.Summary(), simRes)
	r.logSummary(res)
	return res, nil
}

// admit sanitizes each raw record, resolves aliases, and computes the
// admission window. Every rejection carries its reason in the log.
func (r *Runner) admit() ([]intent.Intent, int) {
	san := &intent.Sanitizer{Strict: r.Config.Engine.StrictSanitize, Log: r.Log}

	policy, _ := intent.ParseValidityPolicy(r.Config.Window.Policy)
	fromPolicy, _ := intent.ParseValidFromPolicy(r.Config.Window.ValidFromPolicy)
	wspec := intent.WindowSpec{
		Timeframe:      time.Duration(r.Config.Window.TimeframeMinutes) * time.Minute,
		Policy:         policy,
		FixedMinutes:   time.Duration(r.Config.Window.FixedMinutes) * time.Minute,
		ValidFrom:      fromPolicy,
		ClampToSession: r.Config.Window.ClampToSession,
		Calendar:       r.Calendar,
	}

	var intents []intent.Intent
	rejected := 0

	for _, raw := range r.Signals {
		generated, err := intent.GeneratedTS(raw.Fields)
		if err != nil {
			rejected++
			r.warnReject("", "missing_signal_ts", err)
			continue
		}

		clean, err := san.Sanitize(raw.Fields, generated)
		if err != nil {
			rejected++
			r.warnReject("", "lookahead_field", err)
			continue
		}

		sig, err := intent.FromRecord(clean)
		if err != nil {
			rejected++
			r.warnReject("", "malformed_signal", err)
			continue
		}

		from, to, err := intent.ComputeWindow(sig.SignalTS, wspec)
		if err != nil {
			rejected++
			r.warnReject(sig.TemplateID, "admission_error", err)
			continue
		}

		intents = append(intents, intent.Intent{
			TemplateID:      sig.TemplateID,
			SignalTS:        sig.SignalTS,
			Symbol:          sig.Symbol,
			Side:            sig.Side,
			EntryPrice:      sig.EntryPrice,
			StopPrice:       sig.StopPrice,
			TakeProfitPrice: sig.TakeProfitPrice,
			OCOGroupID:      sig.OCOGroupID,
			ValidFrom:       from,
			ValidTo:         to,
			ValidToReason:   intent.ReasonSessionEnd,
		})
	}

	return intents, rejected
}

// runFixed is the core path: fixed quantity per trade, costs applied at
// pairing time.
func (r *Runner) runFixed(simRes *sim.Result, intents []intent.Intent) ([]exec.Trade, error) {
	costCfg := exec.CostConfig{
		CommissionBPS: r.Config.Costs.CommissionBPS,
		SlippageBPS:   r.Config.Costs.SlippageBPS,
		Qty:           r.Config.Costs.Qty,
	}

	byTemplate := map[string]intent.Intent{}
	for _, in := range intents {
		byTemplate[in.TemplateID] = in
	}

	for _, fl := range simRes.Fills {
		row := journal.FillRow{Fill: fl}
		if fl.Reason.Executes() {
			side := byTemplate[fl.TemplateID].Side
			if fl.Reason != intent.ReasonSignalFill {
				side = side * -1
			}
			c := exec.Cost(side, fl.Price, costCfg.Qty, costCfg)
			row.EffectivePrice = c.EffectivePrice
			row.Qty = c.Qty
			row.Commission = c.Commission
			row.Slippage = c.Slippage
		}
		if err := r.Journal.RecordFill(row); err != nil {
			return nil, fmt.Errorf("record fill: %w", err)
		}
	}

	return exec.Pair(simRes.Fills, intents, costCfg)
}

// runCompounding converts executing fills to trade events and runs them
// through the event engine, which recomputes quantity from current cash at
// every entry. The pairing path is never mixed in.
func (r *Runner) runCompounding(simRes *sim.Result, intents []intent.Intent) ([]exec.Trade, error) {
	byTemplate := map[string]intent.Intent{}
	for _, in := range intents {
		byTemplate[in.TemplateID] = in
	}

	var events []event.TradeEvent
	for _, fl := range simRes.Fills {
		if !fl.Reason.Executes() {
			if err := r.Journal.RecordFill(journal.FillRow{Fill: fl}); err != nil {
				return nil, fmt.Errorf("record fill: %w", err)
			}
			continue
		}
		kind := event.Exit
		if fl.Reason == intent.ReasonSignalFill {
			kind = event.Entry
		}
		events = append(events, event.TradeEvent{
			Time:       fl.Time,
			Kind:       kind,
			Symbol:     fl.Symbol,
			TemplateID: fl.TemplateID,
			Side:       byTemplate[fl.TemplateID].Side,
			Price:      fl.Price,
		})
	}

	rounding, _ := exec.ParseRounding(r.Config.Engine.Rounding)
	eng := event.NewEngine(event.Config{
		InitialCash:   r.Config.Account.InitialCash,
		FixedQty:      r.Config.Engine.FixedQty,
		CommissionBPS: r.Config.Costs.CommissionBPS,
		SlippageBPS:   r.Config.Costs.SlippageBPS,
		Sizer:         exec.NewSizer(rounding),
		Log:           r.Log,
	})
	evRes, err := eng.Run(events)
	if err != nil {
		return nil, err
	}

	// Journal executed events as fill rows with their actual quantities.
	reasonByKey := map[string]intent.FillReason{}
	for _, fl := range simRes.Fills {
		if fl.Reason.Executes() {
			reasonByKey[fl.TemplateID+"|"+fl.Time.UTC().Format(time.RFC3339Nano)] = fl.Reason
		}
	}
	for _, ap := range evRes.Applied {
		reason := reasonByKey[ap.Event.TemplateID+"|"+ap.Event.Time.UTC().Format(time.RFC3339Nano)]
		err := r.Journal.RecordFill(journal.FillRow{
			Fill: sim.Fill{
				TemplateID: ap.Event.TemplateID,
				Symbol:     ap.Event.Symbol,
				Time:       ap.Event.Time,
				Price:      ap.Event.Price,
				Reason:     reason,
			},
			EffectivePrice: ap.EffectivePrice,
			Qty:            ap.Qty,
			Commission:     ap.Commission,
			Slippage:       ap.Slippage,
		})
		if err != nil {
			return nil, fmt.Errorf("record fill: %w", err)
		}
	}

	return tradesFromApplied(evRes, byTemplate, reasonByKey), nil
}

// tradesFromApplied pairs applied entry/exit events per template into trade
// records carrying the event engine's actual quantities and costs.
func tradesFromApplied(evRes *event.Result, byTemplate map[string]intent.Intent, reasonByKey map[string]intent.FillReason) []exec.Trade {
	entries := map[string]event.Applied{}
	var trades []exec.Trade

	for _, ap := range evRes.Applied {
		if ap.Event.Kind == event.Entry {
			entries[ap.Event.TemplateID] = ap
			continue
		}
		en, ok := entries[ap.Event.TemplateID]
		if !ok {
			continue
		}
		delete(entries, ap.Event.TemplateID)

		in := byTemplate[ap.Event.TemplateID]
		dir := float64(in.Side)
		gross := dir * (ap.Event.Price - en.Event.Price) * ap.Qty
		commission := en.Commission + ap.Commission
		slippage := en.Slippage + ap.Slippage

		trades = append(trades, exec.Trade{
			TemplateID:     ap.Event.TemplateID,
			Symbol:         ap.Event.Symbol,
			Side:           in.Side,
			Qty:            ap.Qty,
			EntryTime:      en.Event.Time,
			ExitTime:       ap.Event.Time,
			EntryPrice:     en.Event.Price,
			ExitPrice:      ap.Event.Price,
			Entry:          exec.FillCost{IdealPrice: en.Event.Price, EffectivePrice: en.EffectivePrice, Qty: en.Qty, Commission: en.Commission, Slippage: en.Slippage},
			Exit:           exec.FillCost{IdealPrice: ap.Event.Price, EffectivePrice: ap.EffectivePrice, Qty: ap.Qty, Commission: ap.Commission, Slippage: ap.Slippage},
			ExitReason:     reasonByKey[ap.Event.TemplateID+"|"+ap.Event.Time.UTC().Format(time.RFC3339Nano)],
			GrossPNL:       gross,
			NetPNL:         gross - commission - slippage,
			CommissionCost: commission,
			SlippageCost:   slippage,
			TotalCost:      commission + slippage,
		})
	}

	// Unmatched entries remain open records.
	ids := make([]string, 0, len(entries))
	for tid := range entries {
		ids = append(ids, tid)
	}
	sort.Strings(ids)
	for _, tid := range ids {
		en := entries[tid]
		in := byTemplate[tid]
		trades = append(trades, exec.Trade{
			TemplateID:     tid,
			Symbol:         en.Event.Symbol,
			Side:           in.Side,
			Qty:            en.Qty,
			EntryTime:      en.Event.Time,
			EntryPrice:     en.Event.Price,
			Entry:          exec.FillCost{IdealPrice: en.Event.Price, EffectivePrice: en.EffectivePrice, Qty: en.Qty, Commission: en.Commission, Slippage: en.Slippage},
			ExitReason:     in.ValidToReason,
			Open:           true,
			CommissionCost: en.Commission,
			SlippageCost:   en.Slippage,
			TotalCost:      en.Commission + en.Slippage,
		})
	}

	sort.Slice(trades, func(i, j int) bool { return trades[i].TemplateID < trades[j].TemplateID })
	return trades
}

// recordEquity writes the equity curve from the ledger series, tracking the
// running peak for drawdown.
func (r *Runner) recordEquity(led *ledger.Ledger, simRes *sim.Result) error {
	start := r.firstBarTime()
	peak := 0.0

	for _, e := range led.Entries() {
		ts := e.TS
		if e.Type == ledger.Start {
			if start.IsZero() {
				continue
			}
			ts = start
		}
		if e.EquityAfter > peak {
			peak = e.EquityAfter
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - e.EquityAfter) / peak * 100
		}
		if err := r.Journal.RecordEquity(journal.EquityPoint{TS: ts, Equity: e.EquityAfter, DrawdownPct: dd}); err != nil {
			return fmt.Errorf("record equity: %w", err)
		}
	}
	return nil
}

func (r *Runner) firstBarTime() time.Time {
	var first time.Time
	for _, s := range r.Series {
		if len(s.Bars) == 0 {
			continue
		}
		if first.IsZero() || s.Bars[0].Time.Before(first) {
			first = s.Bars[0].Time
		}
	}
	return first
}

func (r *Runner) warnReject(templateID, kind string, err error) {
	if r.Log == nil {
		return
	}
	r.Log.WithFields(logrus.Fields{
		"template_id": templateID,
		"kind":        kind,
		"error":       err.Error(),
	}).Warn("backtest: signal rejected")
}

func (r *Runner) logSummary(res Result) {
	if r.Log == nil {
		return
	}
	r.Log.WithFields(logrus.Fields{
		"run_id": res.RunID,
		"trades": res.Trades,
		"wins":   res.Wins,
		"losses": res.Losses,
		"net_pl": res.NetPL,
	}).Info("backtest: run complete")
}

func dataExhausted(s string) sim.DataExhaustedPolicy {
	if s == "leave_open" {
		return sim.LeaveOpen
	}
	return sim.SnapLastBar
}

package event

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
)

// RejectReason is the closed set of per-event rejection reasons.
type RejectReason int

const (
	RejectInsufficientCash RejectReason = iota
	RejectNoPosition
)

func (r RejectReason) String() string {
	switch r {
	case RejectInsufficientCash:
		return "insufficient_cash_for_min_qty"
	case RejectNoPosition:
		return "no_position_to_exit"
	}
	return fmt.Sprintf("RejectReason(%d)", int(r))
}

// Rejection records an event the engine refused, with its typed reason.
type Rejection struct {
	Event  TradeEvent
	Reason RejectReason
}

// Applied records one executed event with its cost evidence.
type Applied struct {
	Event          TradeEvent
	Qty            float64
	EffectivePrice float64
	Commission     float64
	Slippage       float64
	CashAfter      float64
}

// Config holds the compounding engine parameters. FixedQty of 0 means size
// every entry from current cash.
type Config struct {
	InitialCash   float64
	FixedQty      float64
	CommissionBPS float64
	SlippageBPS   float64
	Sizer         exec.Sizer
	Log           *logrus.Logger
}

// Result is the complete outcome of one compounding run.
type Result struct {
	Applied    []Applied
	Rejections []Rejection
	FinalCash  float64
}

type position struct {
	templateID string
	side       intent.Side
	qty        float64
	entryEff   float64
	entryTime  time.Time
}

// Engine is the compounding execution path: position size is recomputed at
// each ENTRY from current cash, so equity compounds between trades. It is
// used exclusively when compounding is enabled, never alongside the
// fixed-quantity pairing path.
type Engine struct {
	cfg  Config
	cash float64
	open map[string]position // symbol -> open position
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:  cfg,
		cash: cfg.InitialCash,
		open: map[string]position{},
	}
}

// Run canonically orders the events, validates the order as a runtime
// guard, then applies them one by one.
func (e *Engine) Run(events []TradeEvent) (*Result, error) {
	seq := Order(events)
	if err := Validate(seq); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, ev := range seq {
		switch ev.Kind {
		case Entry:
			e.applyEntry(ev, res)
		case Exit:
			e.applyExit(ev, res)
		default:
			return nil, fmt.Errorf("event engine: unknown kind %v", ev.Kind)
		}
	}

	res.FinalCash = e.cash
	return res, nil
}

// Cash returns the engine's current cash balance.
func (e *Engine) Cash() float64 { return e.cash }

func (e *Engine) applyEntry(ev TradeEvent, res *Result) {
	qty := e.cfg.FixedQty
	if qty <= 0 {
		qty = e.cfg.Sizer.Units(e.cash, ev.Price)
	}
	if qty <= 0 {
		res.Rejections = append(res.Rejections, Rejection{Event: ev, Reason: RejectInsufficientCash})
		e.warn(ev, RejectInsufficientCash)
		return
	}

	eff := exec.EffectivePrice(ev.Side, ev.Price, e.cfg.SlippageBPS)
	comm := exec.Commission(eff, qty, e.cfg.CommissionBPS)

	e.cash -= comm
	e.open[ev.Symbol] = position{
		templateID: ev.TemplateID,
		side:       ev.Side,
		qty:        qty,
		entryEff:   eff,
		entryTime:  ev.Time,
	}

	res.Applied = append(res.Applied, Applied{
		Event:          ev,
		Qty:            qty,
		EffectivePrice: eff,
		Commission:     comm,
		Slippage:       qty * absDiff(eff, ev.Price),
		CashAfter:      e.cash,
	})
}

func (e *Engine) applyExit(ev TradeEvent, res *Result) {
	pos, ok := e.open[ev.Symbol]
	if !ok {
		res.Rejections = append(res.Rejections, Rejection{Event: ev, Reason: RejectNoPosition})
		e.warn(ev, RejectNoPosition)
		return
	}

	// Closing leg executes on the opposite side of the position.
	exitSide := pos.side * -1
	eff := exec.EffectivePrice(exitSide, ev.Price, e.cfg.SlippageBPS)
	comm := exec.Commission(eff, pos.qty, e.cfg.CommissionBPS)

	pnl := float64(pos.side) * (eff - pos.entryEff) * pos.qty
	e.cash += pnl - comm
	delete(e.open, ev.Symbol)

	res.Applied = append(res.Applied, Applied{
		Event:          ev,
		Qty:            pos.qty,
		EffectivePrice: eff,
		Commission:     comm,
		Slippage:       pos.qty * absDiff(eff, ev.Price),
		CashAfter:      e.cash,
	})
}

func (e *Engine) warn(ev TradeEvent, reason RejectReason) {
	if e.cfg.Log == nil {
		return
	}
	e.cfg.Log.WithFields(logrus.Fields{
		"template_id": ev.TemplateID,
		"symbol":      ev.Symbol,
		"reason":      reason.String(),
	}).Warn("event engine: rejected")
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Package intent defines sanitized order intents and the admission machinery
// that turns raw signal records into them: alias resolution, lookahead
// sanitization and validity-window computation.
package intent

import (
	"fmt"
	"strings"
	"time"
)

// Side: +1 long/buy, -1 short/sell.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return fmt.Sprintf("Side(%d)", int8(s))
}

// ParseSide resolves the source aliases once, at the boundary.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return Buy, nil
	case "SELL", "SHORT":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// FillReason is the closed set of reasons a fill-log row can carry. The
// string forms are stable and machine readable; they appear verbatim in the
// fills artifact.
type FillReason int

const (
	ReasonSignalFill FillReason = iota
	ReasonStopLoss
	ReasonTakeProfit
	ReasonSessionEnd
	ReasonCancelledOCO
	ReasonAmbiguousNoFill
	ReasonRejectedNetting
)

func (r FillReason) String() string {
	switch r {
	case ReasonSignalFill:
		return "signal_fill"
	case ReasonStopLoss:
		return "stop_loss"
	case ReasonTakeProfit:
		return "take_profit"
	case ReasonSessionEnd:
		return "session_end"
	case ReasonCancelledOCO:
		return "order_cancelled_oco"
	case ReasonAmbiguousNoFill:
		return "order_ambiguous_no_fill"
	case ReasonRejectedNetting:
		return "order_rejected_netting_open_position"
	}
	return fmt.Sprintf("FillReason(%d)", int(r))
}

// Executes reports whether the reason represents an actual execution, as
// opposed to an audit marker (cancellation, ambiguity, netting rejection).
func (r FillReason) Executes() bool {
	switch r {
	case ReasonSignalFill, ReasonStopLoss, ReasonTakeProfit, ReasonSessionEnd:
		return true
	}
	return false
}

// ParseFillReason is the inverse of String.
func ParseFillReason(s string) (FillReason, error) {
	for r := ReasonSignalFill; r <= ReasonRejectedNetting; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown fill reason %q", s)
}

// ValidityPolicy selects how valid_to is derived from valid_from.
type ValidityPolicy int

const (
	PolicyOneBar ValidityPolicy = iota
	PolicyFixedMinutes
	PolicySessionEnd
)

func (p ValidityPolicy) String() string {
	switch p {
	case PolicyOneBar:
		return "one_bar"
	case PolicyFixedMinutes:
		return "fixed_minutes"
	case PolicySessionEnd:
		return "session_end"
	}
	return fmt.Sprintf("ValidityPolicy(%d)", int(p))
}

func ParseValidityPolicy(s string) (ValidityPolicy, error) {
	switch s {
	case "one_bar":
		return PolicyOneBar, nil
	case "fixed_minutes":
		return PolicyFixedMinutes, nil
	case "session_end":
		return PolicySessionEnd, nil
	}
	return 0, fmt.Errorf("unknown validity policy %q", s)
}

// ValidFromPolicy selects when a freshly generated order becomes live.
type ValidFromPolicy int

const (
	FromSignalTS ValidFromPolicy = iota
	FromNextBar
)

func (p ValidFromPolicy) String() string {
	switch p {
	case FromSignalTS:
		return "signal_ts"
	case FromNextBar:
		return "next_bar"
	}
	return fmt.Sprintf("ValidFromPolicy(%d)", int(p))
}

func ParseValidFromPolicy(s string) (ValidFromPolicy, error) {
	switch s {
	case "signal_ts":
		return FromSignalTS, nil
	case "next_bar":
		return FromNextBar, nil
	}
	return 0, fmt.Errorf("unknown valid_from policy %q", s)
}

// Intent is a sanitized order request derived from a signal, valid only
// within [ValidFrom, ValidTo). Created once at the close of the triggering
// bar; immutable thereafter.
type Intent struct {
	TemplateID      string
	SignalTS        time.Time
	Symbol          string
	Side            Side
	EntryPrice      float64
	StopPrice       float64
	TakeProfitPrice float64
	OCOGroupID      string // empty when the intent is not OCO-linked

	ValidFrom time.Time
	ValidTo   time.Time
	// ValidToReason is the scheduled close reason applied when the window
	// expires with the position still open. It describes a scheduled
	// boundary, never an observed outcome.
	ValidToReason FillReason
}

// Validate checks the structural invariants. A failing intent is rejected
// per-template by the fill engine; it never aborts the batch.
func (in Intent) Validate() error {
	if in.TemplateID == "" {
		return fmt.Errorf("intent: template_id is required")
	}
	if in.Symbol == "" {
		return fmt.Errorf("intent %s: symbol is required", in.TemplateID)
	}
	if in.Side != Buy && in.Side != Sell {
		return fmt.Errorf("intent %s: invalid side", in.TemplateID)
	}
	if in.EntryPrice <= 0 {
		return fmt.Errorf("intent %s: entry_price must be positive, got %v", in.TemplateID, in.EntryPrice)
	}
	if in.StopPrice <= 0 {
		return fmt.Errorf("intent %s: stop_price must be positive, got %v", in.TemplateID, in.StopPrice)
	}
	if in.TakeProfitPrice <= 0 {
		return fmt.Errorf("intent %s: take_profit_price must be positive, got %v", in.TemplateID, in.TakeProfitPrice)
	}
	if !in.ValidTo.After(in.ValidFrom) {
		return fmt.Errorf("intent %s: valid_to %s not after valid_from %s",
			in.TemplateID, in.ValidTo, in.ValidFrom)
	}
	return nil
}

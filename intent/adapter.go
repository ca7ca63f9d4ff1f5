package intent

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/replay/market"
)

// Signal is the strict form of one raw signal record. The signal layer hands
// over loosely keyed mappings with per-source aliases (entry vs entry_price,
// LONG vs BUY); FromRecord resolves all of that here, at the boundary, so the
// engine never sees an alias.
type Signal struct {
	TemplateID      string
	SignalTS        time.Time
	Symbol          string
	Side            Side
	EntryPrice      float64
	StopPrice       float64
	TakeProfitPrice float64
	OCOGroupID      string
}

var fieldAliases = map[string][]string{
	"template_id":       {"template_id", "id"},
	"signal_ts":         {"signal_ts", "ts", "timestamp"},
	"symbol":            {"symbol", "instrument", "ticker"},
	"side":              {"side", "direction"},
	"entry_price":       {"entry_price", "entry"},
	"stop_price":        {"stop_price", "stop", "stop_loss"},
	"take_profit_price": {"take_profit_price", "take_profit", "target"},
	"oco_group_id":      {"oco_group_id", "oco_group", "oco"},
}

func lookup(fields map[string]string, canonical string) (string, bool) {
	for _, key := range fieldAliases[canonical] {
		if v, ok := fields[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// ParseTS accepts the two timestamp layouts the signal sources emit. A
// layout without an offset yields a naive time so callers can reject or
// normalize it explicitly.
func ParseTS(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return market.Naive(t), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// GeneratedTS peeks the signal timestamp out of a raw record before
// sanitization; the sanitizer needs it as the lookahead reference point.
func GeneratedTS(fields map[string]string) (time.Time, error) {
	v, ok := lookup(fields, "signal_ts")
	if !ok {
		return time.Time{}, fmt.Errorf("signal record: missing signal_ts")
	}
	return ParseTS(v)
}

// FromRecord converts one sanitized field mapping into a Signal. The record
// should already have passed through the Sanitizer; this function only does
// alias resolution and strict typing.
func FromRecord(fields map[string]string) (Signal, error) {
	var sig Signal

	v, ok := lookup(fields, "template_id")
	if !ok {
		return Signal{}, fmt.Errorf("signal: missing template_id")
	}
	sig.TemplateID = v

	v, ok = lookup(fields, "signal_ts")
	if !ok {
		return Signal{}, fmt.Errorf("signal %s: missing signal_ts", sig.TemplateID)
	}
	ts, err := ParseTS(v)
	if err != nil {
		return Signal{}, fmt.Errorf("signal %s: %w", sig.TemplateID, err)
	}
	sig.SignalTS = ts

	v, ok = lookup(fields, "symbol")
	if !ok {
		return Signal{}, fmt.Errorf("signal %s: missing symbol", sig.TemplateID)
	}
	sig.Symbol = v

	v, ok = lookup(fields, "side")
	if !ok {
		return Signal{}, fmt.Errorf("signal %s: missing side", sig.TemplateID)
	}
	side, err := ParseSide(v)
	if err != nil {
		return Signal{}, fmt.Errorf("signal %s: %w", sig.TemplateID, err)
	}
	sig.Side = side

	for canonical, dst := range map[string]*float64{
		"entry_price":       &sig.EntryPrice,
		"stop_price":        &sig.StopPrice,
		"take_profit_price": &sig.TakeProfitPrice,
	} {
		v, ok = lookup(fields, canonical)
		if !ok {
			return Signal{}, fmt.Errorf("signal %s: missing %s", sig.TemplateID, canonical)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Signal{}, fmt.Errorf("signal %s: bad %s: %w", sig.TemplateID, canonical, err)
		}
		*dst = f
	}

	if v, ok = lookup(fields, "oco_group_id"); ok {
		sig.OCOGroupID = v
	}

	return sig, nil
}

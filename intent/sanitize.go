package intent

import (
	"fmt"
	"strings"

	"time"

	"github.com/sirupsen/logrus"
)

// Sanitizer strips any field that could leak outcome information from a raw
// signal record before it becomes an order intent. It is the structural
// defense against lookahead bias: nothing downstream of it ever sees a field
// describing a fill, an exit, or a realized result.
type Sanitizer struct {
	// Strict makes a future timestamp a hard error instead of log-and-drop.
	Strict bool
	Log    *logrus.Logger
}

// Base and debug columns that are safe to keep.
var allowBase = map[string]bool{
	"template_id":       true,
	"id":                true,
	"signal_ts":         true,
	"ts":                true,
	"timestamp":         true,
	"symbol":            true,
	"instrument":        true,
	"ticker":            true,
	"side":              true,
	"direction":         true,
	"entry_price":       true,
	"entry":             true,
	"stop_price":        true,
	"stop":              true,
	"stop_loss":         true,
	"take_profit_price": true,
	"take_profit":       true,
	"target":            true,
	"oco_group_id":      true,
	"oco_group":         true,
	"oco":               true,
	"pattern":           true,
	"pattern_bars":      true,
	"range_width":       true,
}

// Outcome columns: present only after the future has happened.
var denyExact = map[string]bool{
	"exit_ts":     true,
	"exit_reason": true,
}

var denyPrefixes = []string{"fill_", "pnl", "realized_", "trade_"}

// Debug fields describing a trigger or an exit leak the outcome too.
var denySubstrings = []string{"trigger", "exit"}

// Scheduled-validity fields may reference a future timestamp because they
// represent a scheduled boundary, not an observed one.
var allowScheduledPrefixes = []string{"valid_from", "valid_to"}

func isScheduled(name string) bool {
	for _, p := range allowScheduledPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func isDenied(name string) bool {
	if denyExact[name] {
		return true
	}
	for _, p := range denyPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range denySubstrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy of raw holding only allow-listed fields, with
// every retained "ts"-named field checked against generatedTS. In strict
// mode a field later than generatedTS fails the record; otherwise it is
// logged and dropped.
func (s *Sanitizer) Sanitize(raw map[string]string, generatedTS time.Time) (map[string]string, error) {
	out := make(map[string]string, len(raw))

	for name, value := range raw {
		key := strings.ToLower(strings.TrimSpace(name))

		switch {
		case isDenied(key):
			// Denied fields are silently stripped; their presence is
			// expected on records coming out of a labeled dataset.
			continue
		case isScheduled(key):
			out[key] = value
			continue
		case !allowBase[key]:
			continue
		}

		if strings.Contains(key, "ts") || key == "timestamp" {
			ts, err := ParseTS(value)
			if err != nil {
				if s.Strict {
					return nil, fmt.Errorf("sanitize: field %s: %w", key, err)
				}
				s.warn(key, value, "unparseable timestamp, dropped")
				continue
			}
			if ts.After(generatedTS) {
				if s.Strict {
					return nil, fmt.Errorf("sanitize: field %s is %s, after intent generation %s: lookahead",
						key, ts, generatedTS)
				}
				s.warn(key, value, "future timestamp, dropped")
				continue
			}
		}

		out[key] = value
	}

	return out, nil
}

func (s *Sanitizer) warn(field, value, msg string) {
	if s.Log == nil {
		return
	}
	s.Log.WithFields(logrus.Fields{
		"field": field,
		"value": value,
	}).Warn("sanitize: " + msg)
}

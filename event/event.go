// Package event provides the total, shuffle-invariant ordering over trade
// events and the event-driven compounding execution engine.
package event

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/replay/intent"
)

// Kind distinguishes position-opening from position-closing events. Exits
// sort ahead of entries at a shared timestamp so capital freed by a close is
// available to size a new position at the same instant.
type Kind int8

const (
	Exit  Kind = 0
	Entry Kind = 1
)

func (k Kind) String() string {
	switch k {
	case Exit:
		return "EXIT"
	case Entry:
		return "ENTRY"
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

// TradeEvent is the light-weight representation the ordering and compounding
// machinery works with.
type TradeEvent struct {
	Time       time.Time
	Kind       Kind
	Symbol     string
	TemplateID string
	Side       intent.Side
	Price      float64
}

func less(a, b TradeEvent) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Symbol != b.Symbol {
		return a.Symbol < b.Symbol
	}
	if a.TemplateID != b.TemplateID {
		return a.TemplateID < b.TemplateID
	}
	return a.Side < b.Side
}

// Order returns the canonical total order of events. The sort key is total
// over the event fields, so any permutation of the same input set yields the
// identical output sequence.
func Order(events []TradeEvent) []TradeEvent {
	out := make([]TradeEvent, len(events))
	copy(out, events)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// OrderViolationError reports where an already-sorted sequence breaks the
// ordering contract.
type OrderViolationError struct {
	Index int
	Msg   string
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("event order violation at index %d: %s", e.Index, e.Msg)
}

// Validate re-walks a sorted sequence and errors when timestamps go
// backwards or an ENTRY precedes an EXIT at the same timestamp. Used as a
// runtime guard before execution and as a test oracle.
func Validate(seq []TradeEvent) error {
	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1], seq[i]
		if cur.Time.Before(prev.Time) {
			return &OrderViolationError{
				Index: i,
				Msg:   fmt.Sprintf("timestamp %s before %s", cur.Time, prev.Time),
			}
		}
		if cur.Time.Equal(prev.Time) && prev.Kind == Entry && cur.Kind == Exit {
			return &OrderViolationError{
				Index: i,
				Msg:   fmt.Sprintf("EXIT %s follows ENTRY %s at shared timestamp", cur.TemplateID, prev.TemplateID),
			}
		}
	}
	return nil
}

package intent

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/replay/market"
)

// ErrNaiveTimestamp is returned whenever a timestamp without timezone
// information reaches the window calculator. Never silently assumed.
var ErrNaiveTimestamp = errors.New("naive timestamp")

// SessionBoundaryError marks an order whose effective start falls outside
// every configured session window. The order is rejected, not re-windowed.
type SessionBoundaryError struct {
	TS time.Time
}

func (e *SessionBoundaryError) Error() string {
	return fmt.Sprintf("valid_from %s falls outside every session window", e.TS)
}

// InvalidWindowError marks a computed window with valid_to <= valid_from.
type InvalidWindowError struct {
	From, To time.Time
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid window: valid_to %s <= valid_from %s", e.To, e.From)
}

// WindowSpec holds the admission policy knobs for ComputeWindow.
type WindowSpec struct {
	Timeframe      time.Duration
	Policy         ValidityPolicy
	FixedMinutes   time.Duration
	ValidFrom      ValidFromPolicy
	ClampToSession bool // fixed_minutes only
	Calendar       *market.Calendar
}

// ComputeWindow derives the admission window [valid_from, valid_to) for a
// signal. Everything is computed from information known at signalTS; for
// the session_end policy valid_to is derived from valid_from, not signalTS,
// so a next_bar start pushed past the session boundary is rejected instead
// of producing a zero-length window.
func ComputeWindow(signalTS time.Time, ws WindowSpec) (from, to time.Time, err error) {
	if signalTS.IsZero() || market.IsNaive(signalTS) {
		return time.Time{}, time.Time{}, fmt.Errorf("signal_ts %s: %w", signalTS, ErrNaiveTimestamp)
	}
	if ws.Timeframe <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("timeframe must be positive, got %s", ws.Timeframe)
	}

	from = signalTS
	if ws.ValidFrom == FromNextBar {
		from = signalTS.Add(ws.Timeframe)
	}

	switch ws.Policy {
	case PolicyOneBar:
		to = from.Add(ws.Timeframe)

	case PolicyFixedMinutes:
		to = from.Add(ws.FixedMinutes)
		if ws.ClampToSession && ws.Calendar != nil {
			if _, end, ok := ws.Calendar.WindowContaining(from); ok && end.Before(to) {
				to = end
			}
		}

	case PolicySessionEnd:
		if ws.Calendar == nil {
			return time.Time{}, time.Time{}, fmt.Errorf("session_end policy requires a calendar")
		}
		_, end, ok := ws.Calendar.WindowContaining(from)
		if !ok {
			return time.Time{}, time.Time{}, &SessionBoundaryError{TS: from}
		}
		to = end

	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown validity policy %v", ws.Policy)
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, &InvalidWindowError{From: from, To: to}
	}
	return from, to, nil
}

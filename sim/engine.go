// Package sim is the bar-by-bar fill simulation engine. Each intent runs a
// small state machine (PENDING → ENTRY_FILLED → EXIT_FILLED, or CANCELLED /
// EXPIRED); the engine guarantees a deterministic, shuffle-invariant fill
// log for any iteration order of its inputs.
package sim

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/replay/intent"
	"github.com/rustyeddy/replay/market"
)

// Status is the terminal (or current) state of one template.
type Status int

const (
	StatusPending Status = iota
	StatusEntryFilled
	StatusExitFilled
	StatusCancelled
	StatusExpired
	StatusRejected
	StatusDataExhausted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusEntryFilled:
		return "ENTRY_FILLED"
	case StatusExitFilled:
		return "EXIT_FILLED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusExpired:
		return "EXPIRED"
	case StatusRejected:
		return "REJECTED"
	case StatusDataExhausted:
		return "DATA_EXHAUSTED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Fill is one row of the fill log. Rows with a non-executing reason
// (cancellation, ambiguity, netting rejection) are audit markers and carry a
// zero price.
type Fill struct {
	TemplateID string
	Symbol     string
	Time       time.Time
	Price      float64
	Reason     intent.FillReason
}

// Rejection records a malformed intent that was dropped before simulation.
type Rejection struct {
	TemplateID string
	Err        error
}

// DataExhaustedPolicy decides what happens to an entered position whose
// validity window outlives the available data.
type DataExhaustedPolicy int

const (
	// SnapLastBar closes on the last available bar inside the window.
	SnapLastBar DataExhaustedPolicy = iota
	// LeaveOpen leaves the template open with status DATA_EXHAUSTED.
	LeaveOpen
)

// Config holds the engine knobs.
type Config struct {
	DataExhausted DataExhaustedPolicy
	Log           *logrus.Logger
}

// GapStats surfaces data-quality signals from session-end fallbacks. These
// are statistics, never errors: a regression shows up without failing a run.
type GapStats struct {
	SessionEndSnapCount int
	BarsGapMaxSeconds   float64
	GapsOverTwiceMedian int
}

// Result is the complete output of one simulation run.
type Result struct {
	Fills      []Fill
	Status     map[string]Status
	Rejections []Rejection
	Gaps       GapStats
}

type template struct {
	in        intent.Intent
	status    Status
	entryTime time.Time
	entryBar  time.Time
}

// Run simulates every intent against its symbol's bar series. Malformed
// intents are rejected per-template; the batch fails only when zero intents
// survive validation.
func Run(intents []intent.Intent, series map[string]*market.Series, cfg Config) (*Result, error) {
	res := &Result{Status: map[string]Status{}}

	var tmpls []*template
	for _, in := range intents {
		if err := in.Validate(); err != nil {
			res.Rejections = append(res.Rejections, Rejection{TemplateID: in.TemplateID, Err: err})
			res.Status[in.TemplateID] = StatusRejected
			continue
		}
		if _, ok := series[in.Symbol]; !ok {
			res.Rejections = append(res.Rejections, Rejection{
				TemplateID: in.TemplateID,
				Err:        fmt.Errorf("intent %s: no bar series for symbol %s", in.TemplateID, in.Symbol),
			})
			res.Status[in.TemplateID] = StatusRejected
			continue
		}
		tmpls = append(tmpls, &template{in: in, status: StatusPending})
		res.Status[in.TemplateID] = StatusPending
	}

	if len(intents) > 0 && len(tmpls) == 0 {
		return res, fmt.Errorf("sim: all %d intents rejected", len(intents))
	}

	// Canonical template order: independent of input iteration order.
	sort.Slice(tmpls, func(i, j int) bool { return tmpls[i].in.TemplateID < tmpls[j].in.TemplateID })

	timeline := mergeTimeline(tmpls, series)
	openBySymbol := map[string]string{} // symbol -> template holding the position

	for _, ts := range timeline {
		// Scheduled window-end closes come first so the symbol is free
		// again for entries triggering at or after valid_to.
		for _, t := range tmpls {
			if t.status == StatusEntryFilled && !ts.Before(t.in.ValidTo) {
				closeAtWindowEnd(t, series[t.in.Symbol], cfg, res)
				if t.status != StatusEntryFilled {
					delete(openBySymbol, t.in.Symbol)
				}
			}
		}

		// Exits next: capital freed by a close is available at the same
		// instant, and the fill log keeps exits ahead of entries per shared
		// timestamp.
		for _, t := range tmpls {
			if t.status != StatusEntryFilled {
				continue
			}
			bar, ok := barAt(series[t.in.Symbol], ts)
			if !ok || !bar.Time.After(t.entryBar) || !bar.Time.Before(t.in.ValidTo) {
				continue
			}
			price, reason, hit := checkExit(t.in.Side, t.in.StopPrice, t.in.TakeProfitPrice, bar)
			if !hit {
				continue
			}
			t.status = StatusExitFilled
			delete(openBySymbol, t.in.Symbol)
			res.Fills = append(res.Fills, Fill{
				TemplateID: t.in.TemplateID,
				Symbol:     t.in.Symbol,
				Time:       bar.Time,
				Price:      price,
				Reason:     reason,
			})
		}

		// Collect entry triggers across all symbols at this timestamp so
		// OCO ambiguity is visible even across symbols.
		var triggered []*template
		for _, t := range tmpls {
			if t.status != StatusPending {
				continue
			}
			if ts.Before(t.in.ValidFrom) || !ts.Before(t.in.ValidTo) {
				continue
			}
			bar, ok := barAt(series[t.in.Symbol], ts)
			if !ok {
				continue
			}
			if entryTriggered(t.in.Side, t.in.EntryPrice, bar) {
				triggered = append(triggered, t)
			}
		}
		if len(triggered) == 0 {
			continue
		}

		// Same-bar OCO conflicts: with no way to determine temporal
		// precedence inside the bar, neither sibling fills.
		byGroup := map[string][]*template{}
		for _, t := range triggered {
			if t.in.OCOGroupID != "" {
				byGroup[t.in.OCOGroupID] = append(byGroup[t.in.OCOGroupID], t)
			}
		}
		ambiguous := map[string]bool{}
		for _, group := range byGroup {
			if len(group) < 2 {
				continue
			}
			for _, t := range group {
				ambiguous[t.in.TemplateID] = true
				t.status = StatusCancelled
				res.Fills = append(res.Fills, Fill{
					TemplateID: t.in.TemplateID,
					Symbol:     t.in.Symbol,
					Time:       ts,
					Reason:     intent.ReasonAmbiguousNoFill,
				})
			}
		}

		for _, t := range triggered {
			if ambiguous[t.in.TemplateID] || t.status != StatusPending {
				continue
			}
			if _, busy := openBySymbol[t.in.Symbol]; busy {
				// Netting: at most one open position per symbol, never
				// pyramided.
				t.status = StatusCancelled
				res.Fills = append(res.Fills, Fill{
					TemplateID: t.in.TemplateID,
					Symbol:     t.in.Symbol,
					Time:       ts,
					Reason:     intent.ReasonRejectedNetting,
				})
				continue
			}

			bar, _ := barAt(series[t.in.Symbol], ts)
			t.status = StatusEntryFilled
			t.entryTime = ts
			t.entryBar = bar.Time
			openBySymbol[t.in.Symbol] = t.in.TemplateID
			res.Fills = append(res.Fills, Fill{
				TemplateID: t.in.TemplateID,
				Symbol:     t.in.Symbol,
				Time:       ts,
				Price:      entryFillPrice(t.in.Side, t.in.EntryPrice, bar),
				Reason:     intent.ReasonSignalFill,
			})

			// First entry fill cancels every sibling still pending.
			if t.in.OCOGroupID != "" {
				for _, sib := range tmpls {
					if sib.in.OCOGroupID == t.in.OCOGroupID &&
						sib.in.TemplateID != t.in.TemplateID &&
						sib.status == StatusPending {
						sib.status = StatusCancelled
						res.Fills = append(res.Fills, Fill{
							TemplateID: sib.in.TemplateID,
							Symbol:     sib.in.Symbol,
							Time:       ts,
							Reason:     intent.ReasonCancelledOCO,
						})
					}
				}
			}
		}
	}

	finalize(tmpls, series, cfg, res)

	// Canonical fill-log order: strict time order, exits ahead of entries at
	// a shared timestamp, template id as the final tie-break.
	sort.Slice(res.Fills, func(i, j int) bool {
		a, b := res.Fills[i], res.Fills[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		ar, br := reasonRank(a.Reason), reasonRank(b.Reason)
		if ar != br {
			return ar < br
		}
		return a.TemplateID < b.TemplateID
	})

	for _, t := range tmpls {
		res.Status[t.in.TemplateID] = t.status
	}
	return res, nil
}

// finalize expires untriggered templates and closes entered-but-never-exited
// positions whose windows reach past the end of the data.
func finalize(tmpls []*template, series map[string]*market.Series, cfg Config, res *Result) {
	for _, t := range tmpls {
		switch t.status {
		case StatusPending:
			t.status = StatusExpired
		case StatusEntryFilled:
			closeAtWindowEnd(t, series[t.in.Symbol], cfg, res)
		}
	}
}

// closeAtWindowEnd closes an entered position at valid_to using the last
// real bar at or before it, never synthesizing a bar. A snap to an earlier
// bar is recorded as a gap statistic. The fill is stamped at valid_to: that
// is when the close is scheduled, the snap bar only supplies the price.
func closeAtWindowEnd(t *template, s *market.Series, cfg Config, res *Result) {
	bar, ok := s.LastAtOrBefore(t.in.ValidTo)
	if !ok || bar.Time.Before(t.entryBar) {
		// Nothing to exit on at all; leave the template open.
		t.status = StatusDataExhausted
		warn(cfg.Log, t.in.TemplateID, "no bar available for session-end exit")
		return
	}

	if _, future := s.FirstAtOrAfter(t.in.ValidTo); !future && cfg.DataExhausted == LeaveOpen {
		t.status = StatusDataExhausted
		warn(cfg.Log, t.in.TemplateID, "data exhausted before valid_to, leaving open")
		return
	}

	if bar.Time.Before(t.in.ValidTo) {
		gapSec := t.in.ValidTo.Sub(bar.Time).Seconds()
		res.Gaps.SessionEndSnapCount++
		if gapSec > res.Gaps.BarsGapMaxSeconds {
			res.Gaps.BarsGapMaxSeconds = gapSec
		}
		if med := s.MedianGap(); med > 0 && t.in.ValidTo.Sub(bar.Time) > 2*med {
			res.Gaps.GapsOverTwiceMedian++
		}
	}

	t.status = StatusExitFilled
	res.Fills = append(res.Fills, Fill{
		TemplateID: t.in.TemplateID,
		Symbol:     t.in.Symbol,
		Time:       t.in.ValidTo,
		Price:      bar.Close,
		Reason:     intent.ReasonSessionEnd,
	})
}

// reasonRank orders fill rows at a shared timestamp: exits, then entries,
// then audit markers.
func reasonRank(r intent.FillReason) int {
	switch r {
	case intent.ReasonStopLoss, intent.ReasonTakeProfit, intent.ReasonSessionEnd:
		return 0
	case intent.ReasonSignalFill:
		return 1
	}
	return 2
}

func barAt(s *market.Series, ts time.Time) (market.Bar, bool) {
	b, ok := s.LastAtOrBefore(ts)
	if !ok || !b.Time.Equal(ts) {
		return market.Bar{}, false
	}
	return b, true
}

// mergeTimeline returns the sorted distinct bar timestamps covering every
// template's admission window.
func mergeTimeline(tmpls []*template, series map[string]*market.Series) []time.Time {
	seen := map[int64]time.Time{}
	for _, t := range tmpls {
		for _, b := range series[t.in.Symbol].Between(t.in.ValidFrom, t.in.ValidTo) {
			seen[b.Time.UnixNano()] = b.Time
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func warn(log *logrus.Logger, templateID, msg string) {
	if log == nil {
		return
	}
	log.WithField("template_id", templateID).Warn("sim: " + msg)
}

package market

import (
	"fmt"
	"sort"
	"time"
)

// Bar represents one OHLCV candlestick.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// naiveLoc marks timestamps that were parsed without any offset
// information. Identity of the location pointer is the marker, so
// offset-bearing timestamps can never be mistaken for naive ones.
var naiveLoc = time.FixedZone("naive", 0)

// IsNaive reports whether t carries no timezone information. Everything
// downstream treats such timestamps as errors or, where a config allows it,
// normalizes them with an evidence note.
func IsNaive(t time.Time) bool {
	return t.Location() == naiveLoc
}

// Naive marks t as timezone-less, keeping its wall-clock fields. Used by
// loaders when the source string had no offset.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), naiveLoc)
}

// Series is one symbol's bar history. Timestamps are strictly increasing
// and timezone-aware; NewSeries enforces both.
type Series struct {
	Symbol string
	Bars   []Bar
}

// NewSeries validates and returns a Series. Bars are sorted by time first so
// callers may hand over data in any order; duplicates and naive timestamps
// are errors, not warnings.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	if symbol == "" {
		return nil, fmt.Errorf("series: symbol is required")
	}

	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	for i, b := range sorted {
		if b.Time.IsZero() {
			return nil, fmt.Errorf("series %s: bar %d has zero timestamp", symbol, i)
		}
		if IsNaive(b.Time) {
			return nil, fmt.Errorf("series %s: bar at %s has naive timestamp", symbol, b.Time)
		}
		if i > 0 && !sorted[i-1].Time.Before(b.Time) {
			return nil, fmt.Errorf("series %s: duplicate timestamp %s", symbol, b.Time)
		}
	}

	return &Series{Symbol: symbol, Bars: sorted}, nil
}

// Between returns the bars with timestamps in [from, to).
func (s *Series) Between(from, to time.Time) []Bar {
	lo := sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Time.Before(from) })
	hi := sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Time.Before(to) })
	return s.Bars[lo:hi]
}

// LastAtOrBefore returns the most recent bar whose timestamp is <= t.
func (s *Series) LastAtOrBefore(t time.Time) (Bar, bool) {
	idx := sort.Search(len(s.Bars), func(i int) bool { return s.Bars[i].Time.After(t) })
	if idx == 0 {
		return Bar{}, false
	}
	return s.Bars[idx-1], true
}

// FirstAtOrAfter returns the earliest bar whose timestamp is >= t.
func (s *Series) FirstAtOrAfter(t time.Time) (Bar, bool) {
	idx := sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Time.Before(t) })
	if idx >= len(s.Bars) {
		return Bar{}, false
	}
	return s.Bars[idx], true
}

// MedianGap returns the median inter-bar gap of the series, or 0 when the
// series has fewer than two bars. The fill engine uses this to classify
// suspicious gaps at session-end fallbacks.
func (s *Series) MedianGap() time.Duration {
	if len(s.Bars) < 2 {
		return 0
	}
	gaps := make([]time.Duration, 0, len(s.Bars)-1)
	for i := 1; i < len(s.Bars); i++ {
		gaps = append(gaps, s.Bars[i].Time.Sub(s.Bars[i-1].Time))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}

package market

import (
	"fmt"
	"time"
)

// SessionWindow is one trading window expressed as minute-of-day offsets
// from local midnight, e.g. 9:30-16:00 RTH.
type SessionWindow struct {
	OpenMinute  int
	CloseMinute int
}

// Calendar maps weekdays to trading session windows in a fixed location.
// A day with no windows is a non-trading day.
type Calendar struct {
	Loc  *time.Location
	Days map[time.Weekday][]SessionWindow
}

// NewRTHCalendar returns a Monday-Friday calendar with a single daily window.
// open/close use "15:04" wall-clock notation.
func NewRTHCalendar(loc *time.Location, open, close string) (*Calendar, error) {
	openMin, err := parseWallClock(open)
	if err != nil {
		return nil, fmt.Errorf("calendar open: %w", err)
	}
	closeMin, err := parseWallClock(close)
	if err != nil {
		return nil, fmt.Errorf("calendar close: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("calendar: close %s must be after open %s", close, open)
	}

	win := SessionWindow{OpenMinute: openMin, CloseMinute: closeMin}
	days := map[time.Weekday][]SessionWindow{}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		days[wd] = []SessionWindow{win}
	}
	return &Calendar{Loc: loc, Days: days}, nil
}

func parseWallClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse wall clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// WindowContaining returns the [start, end) bounds of the session window
// containing t, or ok=false when t falls outside every configured window.
func (c *Calendar) WindowContaining(t time.Time) (start, end time.Time, ok bool) {
	local := t.In(c.Loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Loc)

	for _, w := range c.Days[local.Weekday()] {
		s := midnight.Add(time.Duration(w.OpenMinute) * time.Minute)
		e := midnight.Add(time.Duration(w.CloseMinute) * time.Minute)
		if !local.Before(s) && local.Before(e) {
			return s, e, true
		}
	}
	return time.Time{}, time.Time{}, false
}

package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// LoadStats reports how much of a bar file survived ingestion. Bad rows are
// counted, not fatal; the loader only fails when zero rows parse.
type LoadStats struct {
	Rows       int
	BadLines   int
	Duplicates int
	NaiveTimes int
}

// LoadCSV reads a bar series from a CSV file with header
// time,open,high,low,close,volume. Timestamps must be RFC3339; a timestamp
// without an offset counts as naive and the row is dropped.
func LoadCSV(path, symbol string) (*Series, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var stats LoadStats
	var bars []Bar
	seen := map[int64]bool{}

	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read bars: %w", err)
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == "time" {
				continue
			}
		}
		if len(rec) < 6 {
			stats.BadLines++
			continue
		}

		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			if t2, err2 := time.Parse("2006-01-02 15:04:05", rec[0]); err2 == nil {
				ts = Naive(t2)
			} else {
				stats.BadLines++
				continue
			}
		}
		if IsNaive(ts) {
			stats.NaiveTimes++
			continue
		}
		if seen[ts.UnixNano()] {
			// keep-first policy
			stats.Duplicates++
			continue
		}

		var vals [5]float64
		ok := true
		for i := 0; i < 5; i++ {
			vals[i], err = strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			stats.BadLines++
			continue
		}

		seen[ts.UnixNano()] = true
		bars = append(bars, Bar{
			Time:   ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
		stats.Rows++
	}

	if stats.Rows == 0 {
		return nil, stats, fmt.Errorf("load bars %s: no valid rows (bad=%d dup=%d naive=%d)",
			path, stats.BadLines, stats.Duplicates, stats.NaiveTimes)
	}

	s, err := NewSeries(symbol, bars)
	if err != nil {
		return nil, stats, err
	}
	return s, stats, nil
}

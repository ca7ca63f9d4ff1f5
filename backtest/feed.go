package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadSignalsCSV reads raw signal records from a CSV file. The header names
// become lower-cased field keys; no interpretation happens here. The
// sanitizer and adapter decide what survives.
func LoadSignalsCSV(path string) ([]RawSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signals: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read signals header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var out []RawSignal
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read signals: %w", err)
		}

		fields := make(map[string]string, len(header))
		for i, v := range rec {
			if i >= len(header) {
				break
			}
			fields[header[i]] = strings.TrimSpace(v)
		}
		out = append(out, RawSignal{Fields: fields})
	}

	return out, nil
}

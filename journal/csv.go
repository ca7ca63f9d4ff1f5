package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
)

// Artifact file names inside a CSV journal directory.
const (
	IntentsFile = "events_intent.csv"
	FillsFile   = "fills.csv"
	TradesFile  = "trades.csv"
	EquityFile  = "equity_curve.csv"
)

// CSVJournal writes the four run artifacts into one directory.
type CSVJournal struct {
	dir     string
	intents *csv.Writer
	fills   *csv.Writer
	trades  *csv.Writer
	equity  *csv.Writer
	files   []*os.File
}

// NewCSV creates (or truncates) the artifact files under dir and writes the
// headers.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}

	j := &CSVJournal{dir: dir}

	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.intents, err = open(IntentsFile, []string{
		"template_id", "signal_ts", "symbol", "side", "entry_price", "stop_price",
		"take_profit_price", "oco_group_id", "valid_from", "valid_to", "valid_to_reason",
	}); err != nil {
		return nil, err
	}
	if j.fills, err = open(FillsFile, []string{
		"template_id", "symbol", "fill_ts", "fill_price", "reason",
		"effective_price", "qty", "commission", "slippage",
	}); err != nil {
		return nil, err
	}
	if j.trades, err = open(TradesFile, []string{
		"template_id", "symbol", "side", "qty", "entry_ts", "exit_ts",
		"entry_price", "exit_price", "exit_reason", "open",
		"gross_pnl", "net_pnl", "commission_cost", "slippage_cost", "total_cost",
	}); err != nil {
		return nil, err
	}
	if j.equity, err = open(EquityFile, []string{"ts", "equity", "drawdown_pct"}); err != nil {
		return nil, err
	}

	return j, nil
}

// Dir returns the artifact directory.
func (j *CSVJournal) Dir() string { return j.dir }

func (j *CSVJournal) RecordIntent(in intent.Intent) error {
	err := j.intents.Write([]string{
		in.TemplateID,
		in.SignalTS.Format(time.RFC3339),
		in.Symbol,
		in.Side.String(),
		f(in.EntryPrice),
		f(in.StopPrice),
		f(in.TakeProfitPrice),
		in.OCOGroupID,
		in.ValidFrom.Format(time.RFC3339),
		in.ValidTo.Format(time.RFC3339),
		in.ValidToReason.String(),
	})
	if err != nil {
		return err
	}
	j.intents.Flush()
	return j.intents.Error()
}

func (j *CSVJournal) RecordFill(r FillRow) error {
	err := j.fills.Write([]string{
		r.TemplateID,
		r.Symbol,
		r.Time.Format(time.RFC3339),
		f(r.Price),
		r.Reason.String(),
		f(r.EffectivePrice),
		f(r.Qty),
		f(r.Commission),
		f(r.Slippage),
	})
	if err != nil {
		return err
	}
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) RecordTrade(t exec.Trade) error {
	exitTS := ""
	if !t.ExitTime.IsZero() {
		exitTS = t.ExitTime.Format(time.RFC3339)
	}
	err := j.trades.Write([]string{
		t.TemplateID,
		t.Symbol,
		t.Side.String(),
		f(t.Qty),
		t.EntryTime.Format(time.RFC3339),
		exitTS,
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.ExitReason.String(),
		strconv.FormatBool(t.Open),
		f(t.GrossPNL),
		f(t.NetPNL),
		f(t.CommissionCost),
		f(t.SlippageCost),
		f(t.TotalCost),
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(p EquityPoint) error {
	err := j.equity.Write([]string{
		p.TS.Format(time.RFC3339),
		f(p.Equity),
		f(p.DrawdownPct),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.intents, j.fills, j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, f := range j.files {
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

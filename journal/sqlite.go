package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
)

// SQLiteJournal persists run artifacts into a SQLite database, keyed by run
// id so multiple runs share one file.
type SQLiteJournal struct {
	db    *sql.DB
	runID string
}

func NewSQLite(path, runID string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &SQLiteJournal{db: db, runID: runID}, nil
}

func (j *SQLiteJournal) RecordIntent(in intent.Intent) error {
	_, err := j.db.Exec(`
		INSERT INTO intents
		(run_id, template_id, signal_ts, symbol, side, entry_price, stop_price,
		 take_profit_price, oco_group_id, valid_from, valid_to, valid_to_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, in.TemplateID, in.SignalTS, in.Symbol, in.Side.String(),
		in.EntryPrice, in.StopPrice, in.TakeProfitPrice, in.OCOGroupID,
		in.ValidFrom, in.ValidTo, in.ValidToReason.String(),
	)
	return err
}

func (j *SQLiteJournal) RecordFill(r FillRow) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(run_id, template_id, symbol, fill_ts, fill_price, reason,
		 effective_price, qty, commission, slippage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, r.TemplateID, r.Symbol, r.Time, r.Price, r.Reason.String(),
		r.EffectivePrice, r.Qty, r.Commission, r.Slippage,
	)
	return err
}

func (j *SQLiteJournal) RecordTrade(t exec.Trade) error {
	var exitTS interface{}
	if !t.ExitTime.IsZero() {
		exitTS = t.ExitTime
	}
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, template_id, symbol, side, qty, entry_ts, exit_ts, entry_price,
		 exit_price, exit_reason, open, gross_pnl, net_pnl, commission_cost,
		 slippage_cost, total_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, t.TemplateID, t.Symbol, t.Side.String(), t.Qty, t.EntryTime,
		exitTS, t.EntryPrice, t.ExitPrice, t.ExitReason.String(), t.Open,
		t.GrossPNL, t.NetPNL, t.CommissionCost, t.SlippageCost, t.TotalCost,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(p EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, ts, equity, drawdown_pct)
		VALUES (?, ?, ?, ?)`,
		j.runID, p.TS, p.Equity, p.DrawdownPct,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

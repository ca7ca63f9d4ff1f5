package journal

import (
	"fmt"
	"time"
)

// TradeSummary is one persisted trade row as read back from SQLite.
type TradeSummary struct {
	TemplateID string
	Symbol     string
	Side       string
	Qty        float64
	EntryTS    time.Time
	ExitTS     time.Time
	EntryPrice float64
	ExitPrice  float64
	ExitReason string
	Open       bool
	GrossPNL   float64
	NetPNL     float64
	TotalCost  float64
}

// ListTrades returns every trade of this journal's run in exit-time order.
func (j *SQLiteJournal) ListTrades() ([]TradeSummary, error) {
	return j.queryTrades(`
		SELECT template_id, symbol, side, qty, entry_ts, COALESCE(exit_ts, entry_ts),
		       entry_price, exit_price, exit_reason, open, gross_pnl, net_pnl, total_cost
		FROM trades
		WHERE run_id = ?
		ORDER BY exit_ts ASC, template_id ASC`, j.runID)
}

// ListTradesClosedBetween returns closed trades with exit_ts in [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(start, end time.Time) ([]TradeSummary, error) {
	return j.queryTrades(`
		SELECT template_id, symbol, side, qty, entry_ts, exit_ts,
		       entry_price, exit_price, exit_reason, open, gross_pnl, net_pnl, total_cost
		FROM trades
		WHERE run_id = ? AND open = 0 AND exit_ts >= ? AND exit_ts < ?
		ORDER BY exit_ts ASC, template_id ASC`, j.runID, start, end)
}

func (j *SQLiteJournal) queryTrades(query string, args ...interface{}) ([]TradeSummary, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeSummary
	for rows.Next() {
		var t TradeSummary
		if err := rows.Scan(
			&t.TemplateID, &t.Symbol, &t.Side, &t.Qty, &t.EntryTS, &t.ExitTS,
			&t.EntryPrice, &t.ExitPrice, &t.ExitReason, &t.Open,
			&t.GrossPNL, &t.NetPNL, &t.TotalCost,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EquitySeries returns this run's equity curve in time order.
func (j *SQLiteJournal) EquitySeries() ([]EquityPoint, error) {
	rows, err := j.db.Query(`
		SELECT ts, equity, drawdown_pct
		FROM equity
		WHERE run_id = ?
		ORDER BY ts ASC`, j.runID)
	if err != nil {
		return nil, fmt.Errorf("query equity: %w", err)
	}
	defer rows.Close()

	var out []EquityPoint
	for rows.Next() {
		var p EquityPoint
		if err := rows.Scan(&p.TS, &p.Equity, &p.DrawdownPct); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

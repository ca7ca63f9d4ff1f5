package journal

const Schema = `
CREATE TABLE IF NOT EXISTS intents (
	run_id TEXT NOT NULL,
	template_id TEXT NOT NULL,
	signal_ts DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_price REAL NOT NULL,
	take_profit_price REAL NOT NULL,
	oco_group_id TEXT,
	valid_from DATETIME NOT NULL,
	valid_to DATETIME NOT NULL,
	valid_to_reason TEXT NOT NULL,
	PRIMARY KEY (run_id, template_id)
);

CREATE TABLE IF NOT EXISTS fills (
	run_id TEXT NOT NULL,
	template_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	fill_ts DATETIME NOT NULL,
	fill_price REAL NOT NULL,
	reason TEXT NOT NULL,
	effective_price REAL NOT NULL,
	qty REAL NOT NULL,
	commission REAL NOT NULL,
	slippage REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	template_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty REAL NOT NULL,
	entry_ts DATETIME NOT NULL,
	exit_ts DATETIME,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	exit_reason TEXT NOT NULL,
	open INTEGER NOT NULL,
	gross_pnl REAL NOT NULL,
	net_pnl REAL NOT NULL,
	commission_cost REAL NOT NULL,
	slippage_cost REAL NOT NULL,
	total_cost REAL NOT NULL,
	PRIMARY KEY (run_id, template_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	ts DATETIME NOT NULL,
	equity REAL NOT NULL,
	drawdown_pct REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_run_ts ON fills(run_id, fill_ts);
CREATE INDEX IF NOT EXISTS idx_trades_exit ON trades(run_id, exit_ts);
CREATE INDEX IF NOT EXISTS idx_equity_run_ts ON equity(run_id, ts);
`

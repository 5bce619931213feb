package sqlitelog

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	strategy_name TEXT NOT NULL,
	exchange_name TEXT NOT NULL,
	position TEXT NOT NULL,
	price_open REAL NOT NULL,
	price_take_profit REAL NOT NULL,
	price_stop_loss REAL NOT NULL,
	scheduled_at DATETIME NOT NULL,
	pending_at DATETIME NOT NULL,
	closed_at DATETIME,
	price_close REAL,
	pnl_percent REAL,
	close_reason TEXT,
	cancel_reason TEXT,
	kind TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_closed_at ON signals(closed_at);
`

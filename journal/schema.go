package journal

// Amounts are TEXT so decimals come back exactly as written.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	run_id TEXT NOT NULL,
	position_id INTEGER NOT NULL,
	direction TEXT NOT NULL,
	open_candle INTEGER NOT NULL,
	close_candle INTEGER NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	open_price TEXT NOT NULL,
	close_price TEXT NOT NULL,
	base_collateral TEXT NOT NULL,
	quote_collateral TEXT NOT NULL,
	borrowed TEXT NOT NULL,
	base_profit TEXT NOT NULL,
	quote_profit TEXT NOT NULL,
	liquidated INTEGER NOT NULL,
	PRIMARY KEY (run_id, position_id)
);

CREATE TABLE IF NOT EXISTS balances (
	run_id TEXT NOT NULL,
	candle INTEGER NOT NULL,
	time DATETIME NOT NULL,
	price TEXT NOT NULL,
	base TEXT NOT NULL,
	quote TEXT NOT NULL,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_balances_run ON balances(run_id, candle);
`

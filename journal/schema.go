package journal

const Schema = `
CREATE TABLE IF NOT EXISTS ledger (
	row_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	time_entry DATETIME NOT NULL,
	time_exit DATETIME NOT NULL,
	reason TEXT NOT NULL,
	time_limit_applied INTEGER NOT NULL,
	equity_before REAL NOT NULL,
	equity_after REAL NOT NULL,
	account_pnl_usd REAL NOT NULL,
	account_pnl_pct REAL NOT NULL,
	R_multiple REAL NOT NULL,
	profile_run TEXT NOT NULL,
	risk_perc_run REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_run ON ledger(run_id);
CREATE INDEX IF NOT EXISTS idx_ledger_exit ON ledger(time_exit);
`

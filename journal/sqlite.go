package journal

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/sigbench/pkg/id"
)

// SQLiteJournal mirrors ledger rows into SQLite, tagged with a run id so
// several (symbol, variant) runs can share one database file.
type SQLiteJournal struct {
	db    *sqlx.DB
	runID string
}

func NewSQLite(path, runID string) (*SQLiteJournal, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	if runID == "" {
		runID = id.New()
	}
	return &SQLiteJournal{db: db, runID: runID}, nil
}

func (j *SQLiteJournal) RunID() string { return j.runID }

func (j *SQLiteJournal) RecordRow(r Row) error {
	_, err := j.db.Exec(`
		INSERT INTO ledger
		(row_id, run_id, symbol, side, entry_price, exit_price,
		 time_entry, time_exit, reason, time_limit_applied,
		 equity_before, equity_after, account_pnl_usd, account_pnl_pct,
		 R_multiple, profile_run, risk_perc_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.New(), j.runID, r.Symbol, r.Side, r.EntryPrice, r.ExitPrice,
		r.EntryTime, r.ExitTime, r.Reason, r.TimeLimitApplied,
		r.EquityBefore, r.EquityAfter, r.PnLUSD, r.PnLPct,
		r.RMultiple, r.ProfileRun, r.RiskPercRun,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

package journal

import "time"

const rowColumns = `
	symbol, side, entry_price, exit_price,
	time_entry, time_exit, reason, time_limit_applied,
	equity_before, equity_after, account_pnl_usd, account_pnl_pct,
	R_multiple, profile_run, risk_perc_run`

// ListRows returns every ledger row for a run, ordered by exit time.
func (j *SQLiteJournal) ListRows(runID string) ([]Row, error) {
	var rows []Row
	err := j.db.Select(&rows, `
		SELECT `+rowColumns+`
		FROM ledger
		WHERE run_id = ?
		ORDER BY time_exit ASC`, runID)
	return rows, err
}

// ListAllRows returns every ledger row across all runs, ordered by exit
// time. The aggregator reads a mirror database through this.
func (j *SQLiteJournal) ListAllRows() ([]Row, error) {
	var rows []Row
	err := j.db.Select(&rows, `
		SELECT `+rowColumns+`
		FROM ledger
		ORDER BY time_exit ASC`)
	return rows, err
}

// ListRowsClosedBetween returns rows whose exit time is within [start, end),
// across all runs in the database.
func (j *SQLiteJournal) ListRowsClosedBetween(start, end time.Time) ([]Row, error) {
	var rows []Row
	err := j.db.Select(&rows, `
		SELECT `+rowColumns+`
		FROM ledger
		WHERE time_exit >= ? AND time_exit < ?
		ORDER BY time_exit ASC`, start, end)
	return rows, err
}

// ListVariants returns the distinct (profile, risk) pairs present.
func (j *SQLiteJournal) ListVariants() ([]struct {
	ProfileRun  string  `db:"profile_run"`
	RiskPercRun float64 `db:"risk_perc_run"`
}, error) {
	var out []struct {
		ProfileRun  string  `db:"profile_run"`
		RiskPercRun float64 `db:"risk_perc_run"`
	}
	err := j.db.Select(&out, `
		SELECT DISTINCT profile_run, risk_perc_run
		FROM ledger
		ORDER BY profile_run, risk_perc_run`)
	return out, err
}

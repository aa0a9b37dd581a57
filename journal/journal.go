package journal

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/sigbench/market"
)

// Row is one ledger row: a completed trade plus the account-level
// accounting the paper executor attached to it. Rows are append-only and
// ordered by exit time within a run.
type Row struct {
	Symbol           string    `db:"symbol" json:"symbol"`
	Side             string    `db:"side" json:"side"`
	EntryPrice       float64   `db:"entry_price" json:"entry_price"`
	ExitPrice        float64   `db:"exit_price" json:"exit_price"`
	EntryTime        time.Time `db:"time_entry" json:"time_entry"`
	ExitTime         time.Time `db:"time_exit" json:"time_exit"`
	Reason           string    `db:"reason" json:"reason"`
	TimeLimitApplied bool      `db:"time_limit_applied" json:"time_limit_applied"`
	EquityBefore     float64   `db:"equity_before" json:"equity_before"`
	EquityAfter      float64   `db:"equity_after" json:"equity_after"`
	PnLUSD           float64   `db:"account_pnl_usd" json:"account_pnl_usd"`
	PnLPct           float64   `db:"account_pnl_pct" json:"account_pnl_pct"`
	RMultiple        float64   `db:"R_multiple" json:"R_multiple"`
	ProfileRun       string    `db:"profile_run" json:"profile_run"`
	RiskPercRun      float64   `db:"risk_perc_run" json:"risk_perc_run"`
}

// Journal persists ledger rows for one run.
type Journal interface {
	RecordRow(Row) error
	Close() error
}

// RunFilename is the per-run ledger filename convention:
// trades_{SYM}_{PROFILE}_{risk}.csv.
func RunFilename(symbol, profile string, risk float64) string {
	return fmt.Sprintf("trades_%s_%s_%s.csv",
		market.NormalizeSymbol(symbol), profile,
		strconv.FormatFloat(risk, 'f', 1, 64))
}

// Package paper converts classified exits into account-level P&L and an
// equity curve, one executor per (symbol, variant) run.
package paper

import (
	"github.com/rustyeddy/sigbench/backtest"
	"github.com/rustyeddy/sigbench/journal"
	"github.com/rustyeddy/sigbench/risk"
)

// Executor sizes every trade so a full stop-loss hit realizes a loss of
// exactly RiskPct percent of equity-before (risk-unit sizing). Equity is
// private to the run; it is never shared across symbols or variants.
type Executor struct {
	Symbol  string
	Profile string
	RiskPct float64 // percent of equity risked per trade
	SLPct   float64 // configured stop distance, percent

	equity float64
	rows   []journal.Row
}

func NewExecutor(symbol, profile string, riskPct, slPct, startEquity float64) *Executor {
	return &Executor{
		Symbol:  symbol,
		Profile: profile,
		RiskPct: riskPct,
		SLPct:   slPct,
		equity:  startEquity,
	}
}

// Execute appends one ledger row for a terminal trade.
//
// realized% is the signed price move; R = realized% / sl%, so a full stop
// is R=-1 and a breakeven close is R=0. The account P&L follows from the
// risk unit: pnlUSD = equityBefore * risk%/100 * R.
func (e *Executor) Execute(t backtest.Trade) {
	realizedPct := risk.RealizedPct(int(t.Side), t.EntryPrice, t.ExitPrice)
	r := risk.RMultiple(realizedPct, e.SLPct)

	equityBefore := e.equity
	pnlUSD := risk.RiskAmount(equityBefore, e.RiskPct) * r
	pnlPct := e.RiskPct * r
	e.equity = equityBefore + pnlUSD

	e.rows = append(e.rows, journal.Row{
		Symbol:           e.Symbol,
		Side:             t.Side.String(),
		EntryPrice:       t.EntryPrice,
		ExitPrice:        t.ExitPrice,
		EntryTime:        t.EntryTime,
		ExitTime:         t.ExitTime,
		Reason:           string(t.Reason),
		TimeLimitApplied: t.TimeLimitApplied,
		EquityBefore:     equityBefore,
		EquityAfter:      e.equity,
		PnLUSD:           pnlUSD,
		PnLPct:           pnlPct,
		RMultiple:        r,
		ProfileRun:       e.Profile,
		RiskPercRun:      e.RiskPct,
	})
}

// Rows returns the ledger in exit-time order.
func (e *Executor) Rows() []journal.Row {
	return e.rows
}

// Equity is the current account equity for this run.
func (e *Executor) Equity() float64 {
	return e.equity
}

package backtest

import (
	"github.com/rustyeddy/sigbench/market"
	"github.com/rustyeddy/sigbench/signal"
)

// TradeSink receives every terminal trade of a run, in exit order.
// paper.Executor is the production implementation.
type TradeSink interface {
	Execute(t Trade)
}

// Runner drives one (symbol, variant) simulation run: governor gate,
// forward scan, paper execution, registration. Each Runner owns its
// Governor and sink, so runs may execute in parallel without locking.
type Runner struct {
	Bars       *market.BarSet
	Thresholds Thresholds
	Governor   *Governor
	Sink       TradeSink

	// ForceAccept bypasses the governor gate and synthesizes a forced
	// close when a scan runs off the end of the series. Registration
	// still happens so statistics stay consistent.
	ForceAccept bool
}

// Run processes the entry candidates and returns the number of terminal
// trades produced. Entries rejected by the governor or resolving to no
// exit are normal filtering outcomes, not errors.
func (r *Runner) Run(entries []signal.Entry) int {
	symbol := r.Bars.Symbol
	n := 0

	for _, e := range entries {
		if e.Time.IsZero() {
			continue
		}
		if !r.Governor.CanTrade(e.Time, symbol) && !r.ForceAccept {
			continue
		}

		trade, ok := Simulate(r.Bars, e, r.Thresholds, r.ForceAccept)
		if !ok {
			// Discarded simulation: neither registration happens.
			continue
		}

		r.Sink.Execute(trade)
		r.Governor.RegisterExit(trade.ExitTime, symbol)
		r.Governor.RegisterTrade(trade.EntryTime, symbol)
		n++
	}

	return n
}

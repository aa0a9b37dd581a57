package backtest

import "time"

// GovernorConfig holds the per-profile trade-frequency limits.
// TradesMinPerDay is advisory: it feeds reporting, never the gate.
type GovernorConfig struct {
	TradesMinPerDay int
	TradesMaxPerDay int
	CooldownMinutes int
}

// Governor throttles how often a new position may be opened per symbol:
// a daily quota plus a cooldown after the last closed trade.
//
// A Governor is owned by exactly one run and is not safe for concurrent
// use; parallel runs each construct their own.
type Governor struct {
	Profile string

	cfg   GovernorConfig
	state map[string]*governorState
}

type governorState struct {
	countToday int
	dayKey     string // UTC calendar day, "2006-01-02"
	lastExit   time.Time
	hasExit    bool
}

func NewGovernor(profile string, cfg GovernorConfig) *Governor {
	return &Governor{
		Profile: profile,
		cfg:     cfg,
		state:   make(map[string]*governorState),
	}
}

func (g *Governor) symbolState(symbol string) *governorState {
	st, ok := g.state[symbol]
	if !ok {
		st = &governorState{}
		g.state[symbol] = st
	}
	return st
}

// roll resets the daily count when the UTC calendar day changes.
func (st *governorState) roll(t time.Time) {
	day := t.UTC().Format("2006-01-02")
	if day != st.dayKey {
		st.dayKey = day
		st.countToday = 0
	}
}

// CanTrade reports whether a new entry may be accepted at t for symbol.
// It never consumes quota; calling it repeatedly without a registration
// yields the same answer.
func (g *Governor) CanTrade(t time.Time, symbol string) bool {
	st := g.symbolState(symbol)
	st.roll(t)

	if st.countToday >= g.cfg.TradesMaxPerDay {
		return false
	}
	if st.hasExit {
		cooldown := time.Duration(g.cfg.CooldownMinutes) * time.Minute
		if t.Before(st.lastExit.Add(cooldown)) {
			return false
		}
	}
	return true
}

// RegisterTrade consumes one unit of the day's quota. It is called once per
// simulation that reaches any terminal exit, including a forced close, and
// never for signals the governor itself rejected.
func (g *Governor) RegisterTrade(entryTime time.Time, symbol string) {
	st := g.symbolState(symbol)
	st.roll(entryTime)
	st.countToday++
}

// RegisterExit records the close of a trade, starting the cooldown window
// for the next entry on the same symbol.
func (g *Governor) RegisterExit(exitTime time.Time, symbol string) {
	st := g.symbolState(symbol)
	st.lastExit = exitTime
	st.hasExit = true
}

// MinPerDay exposes the advisory minimum for downstream reporting.
func (g *Governor) MinPerDay() int {
	return g.cfg.TradesMinPerDay
}

package backtest

import (
	"time"

	"github.com/rustyeddy/sigbench/market"
	"github.com/rustyeddy/sigbench/signal"
)

// Side: +1 long, -1 short
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "SHORT"
	}
	return "LONG"
}

// Reason classifies how a simulated position closed.
type Reason string

const (
	ExitSL         Reason = "ExitA_SL"
	ExitBE         Reason = "ExitB_BE"
	ExitTP2        Reason = "ExitC_TP2"
	ExitTimeProfit Reason = "ExitD_TimeMax_Profit"
	ExitTimeBE     Reason = "ExitD_TimeMax_BE"
	ExitTimeClose  Reason = "ExitD_TimeMax_Close"
	ExitForced     Reason = "ExitZ_ForcedClose"
)

// Reasons lists every value Simulate can produce.
var Reasons = []Reason{
	ExitSL, ExitBE, ExitTP2,
	ExitTimeProfit, ExitTimeBE, ExitTimeClose,
	ExitForced,
}

// Thresholds are the percent exit offsets and the time limit.
type Thresholds struct {
	SLPct                 float64
	TP1Pct                float64
	TP2Pct                float64
	TimeLimitMin          int
	TimeLimitProfitMinPct float64
}

// Trade is the terminal outcome of one simulation.
type Trade struct {
	Symbol           string
	Side             Side
	EntryPrice       float64
	ExitPrice        float64
	EntryTime        time.Time
	ExitTime         time.Time
	Reason           Reason
	TimeLimitApplied bool
}

// scanState tracks the forward scan. Arming is monotone: once armed, a run
// never returns to preArm.
type scanState uint8

const (
	scanPreArm scanState = iota
	scanArmed
)

// position is the ephemeral open-position context for one forward scan.
type position struct {
	side     Side
	entry    float64
	stop     float64
	tp1      float64
	tp2      float64
	deadline time.Time
	state    scanState
}

// Simulate resolves one accepted entry signal against the bar series and
// walks forward until a terminal exit.
//
// Fill model: the first bar at or after the signal time is the entry bar;
// its close is the entry price and its color (close vs open) picks the
// side. This close-as-fill convention is deliberate, not an approximation.
//
// Per bar, conditions are checked in fixed priority: stop-loss, then the
// TP1-arm / breakeven / TP2 ladder (mutually exclusive within a bar, with
// arming taking the branch), then the time limit. If the series ends with
// the position still open, force decides between a forced close at the
// last bar and discarding the simulation.
func Simulate(bs *market.BarSet, sig signal.Entry, th Thresholds, force bool) (Trade, bool) {
	idx := bs.SearchTime(sig.Time)
	if idx >= len(bs.Bars) {
		return Trade{}, false
	}

	entryBar := bs.Bars[idx]
	side := Short
	if entryBar.Green() {
		side = Long
	}
	entry := entryBar.Close
	entryTime := entryBar.Time

	pos := position{
		side:     side,
		entry:    entry,
		deadline: entryTime.Add(time.Duration(th.TimeLimitMin) * time.Minute),
	}
	if side == Long {
		pos.stop = entry * (1 - th.SLPct/100)
		pos.tp1 = entry * (1 + th.TP1Pct/100)
		pos.tp2 = entry * (1 + th.TP2Pct/100)
	} else {
		pos.stop = entry * (1 + th.SLPct/100)
		pos.tp1 = entry * (1 - th.TP1Pct/100)
		pos.tp2 = entry * (1 - th.TP2Pct/100)
	}

	closeAt := func(price float64, t time.Time, reason Reason, timeLimit bool) (Trade, bool) {
		return Trade{
			Symbol:           bs.Symbol,
			Side:             side,
			EntryPrice:       entry,
			ExitPrice:        price,
			EntryTime:        entryTime,
			ExitTime:         t,
			Reason:           reason,
			TimeLimitApplied: timeLimit,
		}, true
	}

	for j := idx; j < len(bs.Bars); j++ {
		b := bs.Bars[j]

		// a) stop-loss
		if side == Long && b.Low <= pos.stop {
			return closeAt(pos.stop, b.Time, ExitSL, false)
		}
		if side == Short && b.High >= pos.stop {
			return closeAt(pos.stop, b.Time, ExitSL, false)
		}

		// b) TP1-arm / breakeven / TP2 ladder. One branch per bar: a bar
		// that arms does not also exit on BE or TP2.
		switch {
		case pos.state == scanPreArm && touched(side, b, pos.tp1):
			pos.state = scanArmed
		case pos.state == scanArmed && returnedToEntry(side, b, entry):
			return closeAt(entry, b.Time, ExitBE, false)
		case touched(side, b, pos.tp2):
			return closeAt(pos.tp2, b.Time, ExitTP2, false)
		}

		// c) time limit
		if !b.Time.Before(pos.deadline) {
			pnlPct := (b.Close - entry) / entry * 100 * float64(side)
			switch {
			case pnlPct >= th.TimeLimitProfitMinPct:
				return closeAt(b.Close, b.Time, ExitTimeProfit, true)
			case atOrWorseThanEntry(side, b.Close, entry):
				return closeAt(entry, b.Time, ExitTimeBE, true)
			default:
				return closeAt(b.Close, b.Time, ExitTimeClose, true)
			}
		}
	}

	if force {
		last := bs.Bars[len(bs.Bars)-1]
		return closeAt(last.Close, last.Time, ExitForced, false)
	}
	return Trade{}, false
}

// touched reports whether the bar reached a profit target.
func touched(side Side, b market.Bar, level float64) bool {
	if side == Long {
		return b.High >= level
	}
	return b.Low <= level
}

// returnedToEntry reports whether price came back to the entry level.
func returnedToEntry(side Side, b market.Bar, entry float64) bool {
	if side == Long {
		return b.Low <= entry
	}
	return b.High >= entry
}

// atOrWorseThanEntry reports whether close moved to breakeven or worse.
func atOrWorseThanEntry(side Side, close, entry float64) bool {
	if side == Long {
		return close <= entry
	}
	return close >= entry
}

package risk

import "math"

// RealizedPct is the signed percent move from entry to exit for a side
// (+1 long, -1 short). A long from 100 to 94 realizes -6.
func RealizedPct(side int, entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	return (exit - entry) / entry * 100 * float64(side)
}

// RMultiple expresses a realized percent move as a multiple of the
// configured stop distance: a full stop hit is -1, breakeven is 0.
func RMultiple(realizedPct, slPct float64) float64 {
	if slPct == 0 {
		return 0
	}
	return realizedPct / slPct
}

// RiskAmount is the account currency at risk for one trade under
// risk-unit sizing.
func RiskAmount(equity, riskPct float64) float64 {
	return equity * riskPct / 100
}

// Notional returns the position size, in account currency, that loses
// exactly RiskAmount when price moves slPct against the entry. The ratio
// riskPct/slPct is the leverage-equivalent of the position.
func Notional(equity, riskPct, slPct float64) float64 {
	if slPct == 0 {
		return 0
	}
	return RiskAmount(equity, riskPct) / (slPct / 100)
}

// LeverageEquivalent is the notional-to-equity ratio implied by the
// configured risk and stop distance.
func LeverageEquivalent(riskPct, slPct float64) float64 {
	if slPct == 0 {
		return 0
	}
	return riskPct / slPct
}

// MaxDrawdownPct is the worst peak-to-trough decline of an equity curve,
// in percent. Always <= 0; 0 for a non-decreasing curve.
func MaxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	peak := equity[0]
	worst := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (e/peak - 1) * 100
			worst = math.Min(worst, dd)
		}
	}
	return worst
}

// Package aggregate summarizes many per-variant trade ledgers over a
// trailing time window and ranks the variants under a drawdown cap.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/sigbench/backtest"
	"github.com/rustyeddy/sigbench/journal"
	"github.com/rustyeddy/sigbench/risk"
	"github.com/rustyeddy/sigbench/signal"
)

var (
	// ErrNoLedgers means the runs directory held no ledger files at all.
	ErrNoLedgers = errors.New("aggregate: no ledger files found")
	// ErrEmptyWindow means no variant survived the trailing-window filter.
	ErrEmptyWindow = errors.New("aggregate: no data after window filtering")
)

// fallbackStartEquity seeds the equity curve when a ledger carries no
// equity columns. Drawdown from this path is a placeholder, not a
// measurement; Summarize flags it.
const fallbackStartEquity = 10000.0

// Summary is the aggregated statistics for one (profile, risk) variant.
type Summary struct {
	Variant         string  `json:"variant"`
	Trades          int     `json:"trades"`
	TradesPerDay    float64 `json:"trades_per_day"`
	SumPnLUSD       float64 `json:"sum_pnl_usd"`
	SumPnLPct       float64 `json:"sum_pnl_pct"`
	EquityStart     float64 `json:"equity_start"`
	EquityEnd       float64 `json:"equity_end"`
	EquityChangePct float64 `json:"equity_change_pct"`
	MaxDDPct        float64 `json:"max_dd_pct"`
	SLRate          float64 `json:"sl_rate"`
	TP2Rate         float64 `json:"tp2_rate"`
	AvgRTerminal    float64 `json:"avg_R_terminal"`

	// EquityApproximated marks summaries built on the flat-equity
	// fallback; their MaxDDPct is forced to zero.
	EquityApproximated bool `json:"equity_approximated,omitempty"`
}

// terminalReasons is the fixed set counted toward trade counts and rates.
// Every reason the exit machine produces is a full closure, so all of
// them are terminal; the set exists to exclude any intermediate
// bookkeeping rows foreign tooling may have persisted.
var terminalReasons = func() map[string]bool {
	m := make(map[string]bool, len(backtest.Reasons))
	for _, r := range backtest.Reasons {
		m[string(r)] = true
	}
	return m
}()

// LoadDir reads every per-run ledger CSV in dir and groups the rows by
// variant. The combined trades_all_variants.csv export is skipped.
func LoadDir(dir string) (map[signal.Variant][]journal.Row, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read runs dir: %w", err)
	}

	byVariant := map[signal.Variant][]journal.Row{}
	files := 0

	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, "trades_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if name == "trades_all_variants.csv" {
			continue
		}

		rows, err := journal.ReadCSV(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable ledger")
			continue
		}
		files++

		for _, r := range rows {
			byVariant[rowVariant(r)] = append(byVariant[rowVariant(r)], r)
		}
	}

	if files == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLedgers, dir)
	}
	return byVariant, nil
}

// rowVariant tags a row with its variant, defaulting untagged legacy rows
// the way older tooling did.
func rowVariant(r journal.Row) signal.Variant {
	profile := strings.ToUpper(strings.TrimSpace(r.ProfileRun))
	if profile == "" {
		profile = "SAFE"
	}
	riskPct := r.RiskPercRun
	if riskPct == 0 {
		riskPct = 0.5
	}
	return signal.Variant{Profile: profile, Risk: riskPct}
}

// Summarize computes one variant's statistics over the trailing window of
// `days` days, anchored at the variant's latest exit. Returns false when
// nothing falls inside the window.
func Summarize(v signal.Variant, rows []journal.Row, days int) (Summary, bool) {
	if len(rows) == 0 {
		return Summary{}, false
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ExitTime.Before(rows[j].ExitTime)
	})

	maxExit := rows[len(rows)-1].ExitTime
	cutoff := maxExit.AddDate(0, 0, -days)
	var windowed []journal.Row
	for _, r := range rows {
		if !r.ExitTime.Before(cutoff) {
			windowed = append(windowed, r)
		}
	}
	if len(windowed) == 0 {
		return Summary{}, false
	}

	s := Summary{Variant: v.Label()}

	exitDays := map[string]bool{}
	var sumR float64
	slCount, tp2Count := 0, 0
	for _, r := range windowed {
		s.SumPnLUSD += r.PnLUSD
		s.SumPnLPct += r.PnLPct

		if !terminalReasons[r.Reason] {
			continue
		}
		s.Trades++
		exitDays[r.ExitTime.UTC().Format("2006-01-02")] = true
		sumR += r.RMultiple
		switch r.Reason {
		case string(backtest.ExitSL):
			slCount++
		case string(backtest.ExitTP2):
			tp2Count++
		}
	}

	daysSpan := len(exitDays)
	if daysSpan < 1 {
		daysSpan = 1
	}
	s.TradesPerDay = float64(s.Trades) / float64(daysSpan)

	if s.Trades > 0 {
		s.SLRate = float64(slCount) / float64(s.Trades)
		s.TP2Rate = float64(tp2Count) / float64(s.Trades)
		s.AvgRTerminal = sumR / float64(s.Trades)
	}

	s.fillEquity(v, windowed)
	s.round()
	return s, true
}

// fillEquity reconstructs the equity curve from equity_after when the
// ledger carries it, otherwise falls back to a flat seed plus summed P&L.
//
// Each (symbol, variant) run owns a private equity account, so rows from
// different symbols must not be chained into one curve. The portfolio
// curve is the sum of every symbol's latest equity at each exit.
func (s *Summary) fillEquity(v signal.Variant, rows []journal.Row) {
	hasEquity := false
	for _, r := range rows {
		if r.EquityAfter != 0 {
			hasEquity = true
			break
		}
	}

	if !hasEquity {
		s.EquityApproximated = true
		s.EquityStart = fallbackStartEquity
		s.EquityEnd = fallbackStartEquity + s.SumPnLUSD
		s.MaxDDPct = 0
		if s.EquityStart != 0 {
			s.EquityChangePct = (s.EquityEnd/s.EquityStart - 1) * 100
		}
		log.Warn().Str("variant", v.Label()).
			Msg("ledger has no equity columns; using flat-start approximation, drawdown not measured")
		return
	}

	// Seed each symbol's account with its pre-trade equity so a losing
	// first trade still counts toward drawdown.
	current := map[string]float64{}
	start := 0.0
	for _, r := range rows {
		if _, seen := current[r.Symbol]; seen {
			continue
		}
		seed := r.EquityBefore
		if seed == 0 {
			seed = r.EquityAfter
		}
		current[r.Symbol] = seed
		start += seed
	}

	total := start
	curve := make([]float64, 0, len(rows)+1)
	curve = append(curve, start)
	for _, r := range rows {
		total += r.EquityAfter - current[r.Symbol]
		current[r.Symbol] = r.EquityAfter
		curve = append(curve, total)
	}

	s.EquityStart = start
	s.EquityEnd = total
	if s.EquityStart != 0 {
		s.EquityChangePct = (s.EquityEnd/s.EquityStart - 1) * 100
	}
	s.MaxDDPct = risk.MaxDrawdownPct(curve)
}

func (s *Summary) round() {
	s.TradesPerDay = round3(s.TradesPerDay)
	s.SumPnLUSD = round2(s.SumPnLUSD)
	s.SumPnLPct = round3(s.SumPnLPct)
	s.EquityStart = round2(s.EquityStart)
	s.EquityEnd = round2(s.EquityEnd)
	s.EquityChangePct = round3(s.EquityChangePct)
	s.MaxDDPct = round3(s.MaxDDPct)
	s.SLRate = round3(s.SLRate)
	s.TP2Rate = round3(s.TP2Rate)
	s.AvgRTerminal = round3(s.AvgRTerminal)
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }

// MaxDDCap is the eligibility bound: drawdown no worse than 5%.
const MaxDDCap = -5.0

// Rank orders summaries by equity change descending, ties broken by
// stop-loss rate ascending. Variants within the drawdown cap rank ahead
// of those that breached it, so the top entry is the best eligible
// variant whenever one exists. Every summary stays in the output.
func Rank(summaries []Summary) []Summary {
	anyEligible := false
	for _, s := range summaries {
		if s.MaxDDPct >= MaxDDCap {
			anyEligible = true
			break
		}
	}

	out := make([]Summary, len(summaries))
	copy(out, summaries)

	sort.SliceStable(out, func(i, j int) bool {
		if anyEligible {
			ei, ej := out[i].MaxDDPct >= MaxDDCap, out[j].MaxDDPct >= MaxDDCap
			if ei != ej {
				return ei
			}
		}
		if out[i].EquityChangePct != out[j].EquityChangePct {
			return out[i].EquityChangePct > out[j].EquityChangePct
		}
		return out[i].SLRate < out[j].SLRate
	})
	return out
}

// Result is one full aggregation pass.
type Result struct {
	Days   int
	Ranked []Summary
}

// Best is the top-ranked variant.
func (r *Result) Best() Summary {
	return r.Ranked[0]
}

// Run loads every ledger under runsDir, summarizes each variant over the
// trailing window and ranks them. An empty runs directory or an empty
// window is fatal: there is nothing meaningful to rank.
func Run(runsDir string, days int) (*Result, error) {
	byVariant, err := LoadDir(runsDir)
	if err != nil {
		return nil, err
	}
	return summarizeGrouped(byVariant, days)
}

// RunDB is Run over a SQLite ledger mirror instead of CSV files.
func RunDB(dbPath string, days int) (*Result, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	j, err := journal.NewSQLite(dbPath, "")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	defer j.Close()

	rows, err := j.ListAllRows()
	if err != nil {
		return nil, fmt.Errorf("read ledger db: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLedgers, dbPath)
	}

	byVariant := map[signal.Variant][]journal.Row{}
	for _, r := range rows {
		byVariant[rowVariant(r)] = append(byVariant[rowVariant(r)], r)
	}
	return summarizeGrouped(byVariant, days)
}

func summarizeGrouped(byVariant map[signal.Variant][]journal.Row, days int) (*Result, error) {
	var all []journal.Row
	for _, rs := range byVariant {
		all = append(all, rs...)
	}
	start, end := WindowBounds(all, days)
	log.Debug().Time("window_start", start).Time("window_end", end).
		Int("rows", len(all)).Int("variants", len(byVariant)).
		Msg("aggregating ledgers")

	variants := make([]signal.Variant, 0, len(byVariant))
	for v := range byVariant {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].Profile != variants[j].Profile {
			return variants[i].Profile < variants[j].Profile
		}
		return variants[i].Risk < variants[j].Risk
	})

	var summaries []Summary
	for _, v := range variants {
		if s, ok := Summarize(v, byVariant[v], days); ok {
			summaries = append(summaries, s)
		}
	}
	if len(summaries) == 0 {
		return nil, ErrEmptyWindow
	}

	return &Result{Days: days, Ranked: Rank(summaries)}, nil
}

// WindowBounds reports the trailing window used for a set of rows,
// for diagnostics.
func WindowBounds(rows []journal.Row, days int) (start, end time.Time) {
	for _, r := range rows {
		if r.ExitTime.After(end) {
			end = r.ExitTime
		}
	}
	if !end.IsZero() {
		start = end.AddDate(0, 0, -days)
	}
	return start, end
}

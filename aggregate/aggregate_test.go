package aggregate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/sigbench/backtest"
	"github.com/rustyeddy/sigbench/journal"
	"github.com/rustyeddy/sigbench/signal"
)

var aggT0 = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func row(day int, reason string, eqBefore, eqAfter, pnl float64) journal.Row {
	pnlPct := 0.0
	if eqBefore != 0 {
		pnlPct = pnl / eqBefore * 100
	}
	return journal.Row{
		Symbol:       "BTCUSDT",
		Side:         "LONG",
		EntryPrice:   100,
		ExitPrice:    100 + pnl/100,
		EntryTime:    aggT0.AddDate(0, 0, day).Add(-time.Hour),
		ExitTime:     aggT0.AddDate(0, 0, day),
		Reason:       reason,
		EquityBefore: eqBefore,
		EquityAfter:  eqAfter,
		PnLUSD:       pnl,
		PnLPct:       pnlPct,
		RMultiple:    pnl / 100,
		ProfileRun:   "SAFE",
		RiskPercRun:  1.0,
	}
}

func TestSummarizeRatesAndWindow(t *testing.T) {
	t.Parallel()

	v := signal.Variant{Profile: "SAFE", Risk: 1.0}
	rows := []journal.Row{
		// Outside a 30 day trailing window anchored at day 40.
		row(0, string(backtest.ExitSL), 10000, 9900, -100),
		// Inside the window.
		row(15, string(backtest.ExitSL), 10000, 9900, -100),
		row(20, string(backtest.ExitTP2), 9900, 10098, 198),
		row(25, string(backtest.ExitBE), 10098, 10098, 0),
		row(40, string(backtest.ExitTimeClose), 10098, 10148, 50),
	}

	s, ok := Summarize(v, rows, 30)
	require.True(t, ok)

	assert.Equal(t, "risk 1.0 safe", s.Variant)
	assert.Equal(t, 4, s.Trades)
	assert.InDelta(t, 1.0, s.TradesPerDay, 1e-9)
	assert.InDelta(t, 0.25, s.SLRate, 1e-9)
	assert.InDelta(t, 0.25, s.TP2Rate, 1e-9)
	assert.InDelta(t, 148.0, s.SumPnLUSD, 1e-9)
	assert.InDelta(t, 10000.0, s.EquityStart, 1e-9)
	assert.InDelta(t, 10148.0, s.EquityEnd, 1e-9)
	assert.InDelta(t, 1.48, s.EquityChangePct, 1e-3)
	assert.False(t, s.EquityApproximated)
	assert.Less(t, s.MaxDDPct, 0.0)
}

func symRow(sym string, day int, reason string, eqBefore, eqAfter, pnl float64) journal.Row {
	r := row(day, reason, eqBefore, eqAfter, pnl)
	r.Symbol = sym
	return r
}

func TestSummarizeCombinesSymbolAccounts(t *testing.T) {
	t.Parallel()

	// Each symbol runs a private account seeded at 10000. Neither account
	// ever declines, so the portfolio drawdown must be zero even though
	// the interleaved equity_after values jump between accounts.
	v := signal.Variant{Profile: "SAFE", Risk: 1.0}
	rows := []journal.Row{
		symRow("BTCUSDT", 0, string(backtest.ExitTP2), 10000, 10200, 200),
		symRow("ETHUSDT", 1, string(backtest.ExitTP2), 10000, 10010, 10),
		symRow("BTCUSDT", 2, string(backtest.ExitTP2), 10200, 10400, 200),
	}

	s, ok := Summarize(v, rows, 30)
	require.True(t, ok)

	assert.InDelta(t, 20000.0, s.EquityStart, 1e-9)
	assert.InDelta(t, 20410.0, s.EquityEnd, 1e-9)
	assert.InDelta(t, 2.05, s.EquityChangePct, 1e-3)
	assert.InDelta(t, 0.0, s.MaxDDPct, 1e-9)
}

func TestSummarizeMultiSymbolDrawdown(t *testing.T) {
	t.Parallel()

	// A dip in one account is measured against the combined portfolio,
	// not against the other account's curve.
	v := signal.Variant{Profile: "SAFE", Risk: 1.0}
	rows := []journal.Row{
		symRow("BTCUSDT", 0, string(backtest.ExitSL), 10000, 9800, -200),
		symRow("ETHUSDT", 1, string(backtest.ExitTP2), 10000, 10100, 100),
	}

	s, ok := Summarize(v, rows, 30)
	require.True(t, ok)

	// Portfolio: 20000 -> 19800 -> 19900. Worst dip is -1%.
	assert.InDelta(t, 20000.0, s.EquityStart, 1e-9)
	assert.InDelta(t, 19900.0, s.EquityEnd, 1e-9)
	assert.InDelta(t, -1.0, s.MaxDDPct, 1e-9)
}

func TestSummarizeEmptyWindow(t *testing.T) {
	t.Parallel()

	v := signal.Variant{Profile: "SAFE", Risk: 1.0}
	_, ok := Summarize(v, nil, 30)
	assert.False(t, ok)
}

func TestSummarizeFlatEquityFallback(t *testing.T) {
	t.Parallel()

	v := signal.Variant{Profile: "FAST", Risk: 0.5}
	rows := []journal.Row{
		row(0, string(backtest.ExitSL), 0, 0, -50),
		row(1, string(backtest.ExitTP2), 0, 0, 150),
	}

	s, ok := Summarize(v, rows, 30)
	require.True(t, ok)

	assert.True(t, s.EquityApproximated)
	assert.InDelta(t, 10000.0, s.EquityStart, 1e-9)
	assert.InDelta(t, 10100.0, s.EquityEnd, 1e-9)
	assert.InDelta(t, 0.0, s.MaxDDPct, 1e-9)
	assert.InDelta(t, 1.0, s.EquityChangePct, 1e-3)
}

func TestRankDrawdownCap(t *testing.T) {
	t.Parallel()

	// The higher-return variant breaches the 5% cap and loses to the
	// modest one that stayed inside it.
	summaries := []Summary{
		{Variant: "risk 2.0 fast", EquityChangePct: 15, MaxDDPct: -7},
		{Variant: "risk 1.0 safe", EquityChangePct: 8, MaxDDPct: -3},
	}

	ranked := Rank(summaries)
	require.Len(t, ranked, 2)
	assert.Equal(t, "risk 1.0 safe", ranked[0].Variant)
	assert.Equal(t, "risk 2.0 fast", ranked[1].Variant)
}

func TestRankFallsBackWhenNoneEligible(t *testing.T) {
	t.Parallel()

	summaries := []Summary{
		{Variant: "risk 2.0 fast", EquityChangePct: 15, MaxDDPct: -9},
		{Variant: "risk 1.0 safe", EquityChangePct: 8, MaxDDPct: -7},
	}

	ranked := Rank(summaries)
	require.Len(t, ranked, 2)
	assert.Equal(t, "risk 2.0 fast", ranked[0].Variant)
}

func TestRankTieBreakOnStopRate(t *testing.T) {
	t.Parallel()

	summaries := []Summary{
		{Variant: "risk 1.0 fast", EquityChangePct: 8, MaxDDPct: -2, SLRate: 0.4},
		{Variant: "risk 1.0 safe", EquityChangePct: 8, MaxDDPct: -2, SLRate: 0.2},
	}

	ranked := Rank(summaries)
	assert.Equal(t, "risk 1.0 safe", ranked[0].Variant)
}

func TestLoadDirEmpty(t *testing.T) {
	t.Parallel()

	_, err := LoadDir(t.TempDir())
	assert.ErrorIs(t, err, ErrNoLedgers)
}

func writeLedger(t *testing.T, dir, symbol, profile string, riskPct float64, rows []journal.Row) {
	t.Helper()

	j, err := journal.NewCSV(filepath.Join(dir, journal.RunFilename(symbol, profile, riskPct)))
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, j.RecordRow(r))
	}
	require.NoError(t, j.Close())
}

func TestRunAndWriteOutputs(t *testing.T) {
	t.Parallel()

	runs := t.TempDir()
	out := t.TempDir()

	safe := []journal.Row{
		row(0, string(backtest.ExitSL), 10000, 9900, -100),
		row(5, string(backtest.ExitTP2), 9900, 10098, 198),
		row(10, string(backtest.ExitTP2), 10098, 10300, 202),
	}
	fast := []journal.Row{
		row(0, string(backtest.ExitSL), 10000, 9300, -700),
		row(10, string(backtest.ExitTP2), 9300, 11500, 2200),
	}
	for i := range fast {
		fast[i].ProfileRun = "FAST"
		fast[i].RiskPercRun = 2.0
	}

	writeLedger(t, runs, "BTC/USDT:USDT", "SAFE", 1.0, safe)
	writeLedger(t, runs, "BTC/USDT:USDT", "FAST", 2.0, fast)

	// The combined export must be ignored even if present.
	require.NoError(t, os.WriteFile(filepath.Join(runs, "trades_all_variants.csv"), []byte("junk"), 0644))

	res, err := Run(runs, 30)
	require.NoError(t, err)
	require.Len(t, res.Ranked, 2)

	// FAST returns more but its 7% drawdown disqualifies it.
	assert.Equal(t, "risk 1.0 safe", res.Best().Variant)

	require.NoError(t, res.WriteOutputs(out))

	best, err := os.ReadFile(filepath.Join(out, "best_variant.txt"))
	require.NoError(t, err)
	assert.Equal(t, "risk 1.0 safe\n", string(best))

	data, err := os.ReadFile(filepath.Join(out, "summary_30d.json"))
	require.NoError(t, err)
	var decoded []Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
	assert.Equal(t, "risk 1.0 safe", decoded[0].Variant)

	_, err = os.Stat(filepath.Join(out, "summary_30d.csv"))
	assert.NoError(t, err)
}

func TestRunDB(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	j, err := journal.NewSQLite(dbPath, "run-1")
	require.NoError(t, err)
	require.NoError(t, j.RecordRow(row(0, string(backtest.ExitSL), 10000, 9900, -100)))
	require.NoError(t, j.RecordRow(row(5, string(backtest.ExitTP2), 9900, 10098, 198)))
	require.NoError(t, j.Close())

	res, err := RunDB(dbPath, 30)
	require.NoError(t, err)
	require.Len(t, res.Ranked, 1)

	s := res.Best()
	assert.Equal(t, "risk 1.0 safe", s.Variant)
	assert.Equal(t, 2, s.Trades)
	assert.InDelta(t, 10098.0, s.EquityEnd, 1e-6)
}

func TestRunDBMissingFile(t *testing.T) {
	t.Parallel()

	_, err := RunDB(filepath.Join(t.TempDir(), "nope.db"), 30)
	assert.Error(t, err)
}

func TestWindowBounds(t *testing.T) {
	t.Parallel()

	rows := []journal.Row{
		row(0, string(backtest.ExitSL), 10000, 9900, -100),
		row(12, string(backtest.ExitTP2), 9900, 10098, 198),
	}

	start, end := WindowBounds(rows, 30)
	assert.Equal(t, aggT0.AddDate(0, 0, 12), end)
	assert.Equal(t, end.AddDate(0, 0, -30), start)

	start, end = WindowBounds(nil, 30)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/sigbench/backtest"
	"github.com/rustyeddy/sigbench/config"
	"github.com/rustyeddy/sigbench/journal"
	"github.com/rustyeddy/sigbench/market"
	"github.com/rustyeddy/sigbench/paper"
	"github.com/rustyeddy/sigbench/pkg/id"
	"github.com/rustyeddy/sigbench/signal"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run every (symbol, variant) backtest and write per-run ledgers",
	Long: `Backtest loads minute bars for each symbol, scans entry signals per
profile, and simulates every configured variant independently. Each run
writes its ledger to the runs directory as trades_{SYM}_{PROFILE}_{risk}.csv.

Example:
  sigbench backtest -c config.yaml --data data --runs runs`,
	RunE: runBacktest,
}

var (
	btConfigPath  string
	btDataDir     string
	btRunsDir     string
	btSymbolsFile string
	btDBPath      string
	btForceAccept bool
	btWorkers     int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (YAML or JSON)")
	backtestCmd.Flags().StringVar(&btDataDir, "data", "", "bar CSV directory (overrides config)")
	backtestCmd.Flags().StringVar(&btRunsDir, "runs", "", "output directory for ledgers (overrides config)")
	backtestCmd.Flags().StringVar(&btSymbolsFile, "symbols", "", "symbols list file (overrides config)")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "optional SQLite ledger mirror")
	backtestCmd.Flags().BoolVar(&btForceAccept, "force-accept", false, "bypass the governor gate and force-close open scans (diagnostic)")
	backtestCmd.Flags().IntVar(&btWorkers, "workers", 0, "parallel (symbol, variant) runs (overrides config)")
}

// runJob is one independent (symbol, variant) unit of work. Units share
// only read-only bars and configuration.
type runJob struct {
	bars    *market.BarSet
	variant signal.Variant
	entries []signal.Entry
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(btConfigPath)
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)

	variants := signal.ParseVariants(cfg.Runtime.Variants)
	if len(variants) == 0 {
		return fmt.Errorf("no valid variants in %v", cfg.Runtime.Variants)
	}

	symbols, err := loadSymbols(cfg.Runtime.SymbolsFile)
	if err != nil {
		return fmt.Errorf("symbols: %w", err)
	}

	if err := os.MkdirAll(cfg.Runtime.RunsDir, 0755); err != nil {
		return fmt.Errorf("runs dir: %w", err)
	}

	runID := id.New()
	var mirror *journal.SQLiteJournal
	if btDBPath != "" {
		mirror, err = journal.NewSQLite(btDBPath, runID)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer mirror.Close()
	}

	log.Info().Str("run_id", runID).
		Int("symbols", len(symbols)).Int("variants", len(variants)).
		Bool("force_accept", cfg.Runtime.ForceAccept).
		Msg("starting backtest")

	jobs := buildJobs(cfg, symbols, variants)
	total := runJobs(cfg, jobs, mirror)

	if total > 0 {
		fmt.Printf("[DONE] %d trades -> %s\n", total, cfg.Runtime.RunsDir)
	} else {
		fmt.Println("[DONE] no trades generated. Check the signal scanner or set force_accept for a sanity run.")
	}
	return nil
}

// buildJobs loads bars once per symbol, scans entries once per profile,
// and fans the results out across variants. Symbols without usable bar
// data are skipped with a diagnostic, never fatally.
func buildJobs(cfg *config.Config, symbols []string, variants []signal.Variant) []runJob {
	opts := market.LoadOptions{
		DaysBack:     cfg.Runtime.DaysBack,
		SessionStart: cfg.Runtime.SessionStart,
		SessionEnd:   cfg.Runtime.SessionEnd,
	}

	var jobs []runJob
	for _, sym := range symbols {
		bars, err := market.Load(cfg.Runtime.DataDir, sym, opts)
		if err != nil {
			if errors.Is(err, market.ErrNoData) {
				log.Warn().Str("symbol", sym).Msg("no bar data, skipping")
			} else {
				log.Warn().Err(err).Str("symbol", sym).Msg("bad bar data, skipping")
			}
			continue
		}

		entriesByProfile := map[string][]signal.Entry{}
		for _, v := range variants {
			if _, done := entriesByProfile[v.Profile]; done {
				continue
			}
			prof, ok := cfg.Profile(v.Profile)
			if !ok {
				log.Warn().Str("profile", v.Profile).Msg("profile not configured, skipping")
				continue
			}
			scanner := signal.IntervalScanner{Profile: v.Profile, Step: prof.ScanStep}
			entriesByProfile[v.Profile] = scanner.Scan(bars)
		}

		for _, v := range variants {
			entries, ok := entriesByProfile[v.Profile]
			if !ok {
				continue
			}
			jobs = append(jobs, runJob{bars: bars, variant: v, entries: entries})
		}
	}
	return jobs
}

// runJobs executes the units on a bounded worker pool. Each unit owns a
// private governor and executor, so no locking is needed beyond the
// total counter.
func runJobs(cfg *config.Config, jobs []runJob, mirror *journal.SQLiteJournal) int {
	workers := cfg.Runtime.Workers
	if workers < 1 {
		workers = 1
	}

	ch := make(chan runJob)
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range ch {
				n := runOne(cfg, job, mirror)
				mu.Lock()
				total += n
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		ch <- job
	}
	close(ch)
	wg.Wait()

	return total
}

func runOne(cfg *config.Config, job runJob, mirror *journal.SQLiteJournal) int {
	prof, _ := cfg.Profile(job.variant.Profile)

	gov := backtest.NewGovernor(job.variant.Profile, backtest.GovernorConfig{
		TradesMinPerDay: prof.TradesMinPerDay,
		TradesMaxPerDay: prof.TradesMaxPerDay,
		CooldownMinutes: prof.CooldownMinutes,
	})
	exec := paper.NewExecutor(job.bars.Symbol, job.variant.Profile,
		job.variant.Risk, cfg.Thresholds.SLPct, cfg.Runtime.StartEquity)

	runner := backtest.Runner{
		Bars:        job.bars,
		Thresholds:  thresholdsFromConfig(cfg.Thresholds),
		Governor:    gov,
		Sink:        exec,
		ForceAccept: cfg.Runtime.ForceAccept,
	}

	n := runner.Run(job.entries)
	if n == 0 {
		log.Debug().Str("symbol", job.bars.Symbol).Str("variant", job.variant.String()).
			Msg("no trades")
		return 0
	}

	path := filepath.Join(cfg.Runtime.RunsDir,
		journal.RunFilename(job.bars.Symbol, job.variant.Profile, job.variant.Risk))
	if err := writeLedger(path, exec.Rows(), mirror); err != nil {
		log.Error().Err(err).Str("symbol", job.bars.Symbol).
			Str("variant", job.variant.String()).Msg("write ledger")
		return 0
	}

	log.Info().Str("symbol", job.bars.Symbol).Str("variant", job.variant.String()).
		Int("trades", n).Msg("run complete")
	return n
}

func writeLedger(path string, rows []journal.Row, mirror *journal.SQLiteJournal) error {
	j, err := journal.NewCSV(path)
	if err != nil {
		return err
	}
	defer j.Close()

	for _, r := range rows {
		if err := j.RecordRow(r); err != nil {
			return err
		}
		if mirror != nil {
			if err := mirror.RecordRow(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func thresholdsFromConfig(t config.Thresholds) backtest.Thresholds {
	return backtest.Thresholds{
		SLPct:                 t.SLPct,
		TP1Pct:                t.TP1Pct,
		TP2Pct:                t.TP2Pct,
		TimeLimitMin:          t.TimeLimitMin,
		TimeLimitProfitMinPct: t.TimeLimitProfitMinPct,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(path)
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if btDataDir != "" {
		cfg.Runtime.DataDir = btDataDir
	}
	if btRunsDir != "" {
		cfg.Runtime.RunsDir = btRunsDir
	}
	if btSymbolsFile != "" {
		cfg.Runtime.SymbolsFile = btSymbolsFile
	}
	if btWorkers > 0 {
		cfg.Runtime.Workers = btWorkers
	}
	if cmd.Flags().Changed("force-accept") {
		cfg.Runtime.ForceAccept = btForceAccept
	}
}

// loadSymbols reads one symbol per line; blank lines and #-comments are
// ignored.
func loadSymbols(fn string) ([]string, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no symbols in %s", fn)
	}
	return out, nil
}

package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
)

var summaryHeader = []string{
	"variant", "trades", "trades_per_day",
	"sum_pnl_usd", "sum_pnl_pct",
	"equity_start", "equity_end", "equity_change_pct",
	"max_dd_pct", "sl_rate", "tp2_rate", "avg_R_terminal",
}

// WriteOutputs persists the ranked summaries under outDir:
// summary_{N}d.csv, summary_{N}d.json and best_variant.txt.
func (r *Result) WriteOutputs(outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	csvPath := filepath.Join(outDir, fmt.Sprintf("summary_%dd.csv", r.Days))
	if err := r.writeCSV(csvPath); err != nil {
		return err
	}

	jsonPath := filepath.Join(outDir, fmt.Sprintf("summary_%dd.json", r.Days))
	data, err := json.MarshalIndent(r.Ranked, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summaries: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}

	bestPath := filepath.Join(outDir, "best_variant.txt")
	if err := os.WriteFile(bestPath, []byte(r.Best().Variant+"\n"), 0644); err != nil {
		return fmt.Errorf("write %s: %w", bestPath, err)
	}

	return nil
}

func (r *Result) writeCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, s := range r.Ranked {
		err := w.Write([]string{
			s.Variant,
			strconv.Itoa(s.Trades),
			g(s.TradesPerDay),
			g(s.SumPnLUSD),
			g(s.SumPnLPct),
			g(s.EquityStart),
			g(s.EquityEnd),
			g(s.EquityChangePct),
			g(s.MaxDDPct),
			g(s.SLRate),
			g(s.TP2Rate),
			g(s.AvgRTerminal),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func g(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// PrintTable renders the ranking as an aligned console table.
func (r *Result) PrintTable(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tTRADES\tTRADES/DAY\tPNL USD\tEQ CHANGE %\tMAX DD %\tSL RATE\tTP2 RATE\tAVG R")
	for _, s := range r.Ranked {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.2f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			s.Variant, s.Trades, s.TradesPerDay, s.SumPnLUSD,
			s.EquityChangePct, s.MaxDDPct, s.SLRate, s.TP2Rate, s.AvgRTerminal)
	}
	tw.Flush()
}

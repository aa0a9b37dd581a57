package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/sigbench/aggregate"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarize per-variant ledgers and pick the best variant",
	Long: `Aggregate reads every trades_*.csv ledger in the runs directory
(or a SQLite mirror written with backtest --db), summarizes each
(profile, risk) variant over a trailing window, and ranks the variants by
equity growth under a max-drawdown cap of 5%.

Outputs: summary_{days}d.csv, summary_{days}d.json and best_variant.txt.`,
	RunE: runAggregate,
}

var (
	agRunsDir string
	agOutDir  string
	agDBPath  string
	agDays    int
)

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&agRunsDir, "runs", "runs", "directory containing trades_*.csv ledgers")
	aggregateCmd.Flags().StringVar(&agOutDir, "out", "runs", "where to write summary outputs")
	aggregateCmd.Flags().StringVarP(&agDBPath, "db", "d", "", "read ledgers from a SQLite mirror instead of CSV files")
	aggregateCmd.Flags().IntVar(&agDays, "days", 30, "trailing window in days")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	var res *aggregate.Result
	var err error
	if agDBPath != "" {
		res, err = aggregate.RunDB(agDBPath, agDays)
	} else {
		res, err = aggregate.Run(agRunsDir, agDays)
	}
	if err != nil {
		return err
	}

	if err := res.WriteOutputs(agOutDir); err != nil {
		return err
	}

	fmt.Printf("Top (MaxDD <= 5%% preferred), trailing %dd:\n\n", res.Days)
	res.PrintTable(os.Stdout)
	fmt.Printf("\nBest variant: %s\n", res.Best().Variant)

	return nil
}

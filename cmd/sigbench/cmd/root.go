package cmd

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sigbench",
	Short: "Backtest entry signals and rank strategy variants",
	Long: `Sigbench backtests trading entry signals against minute bars,
turning each accepted signal into a simulated trade via a fixed-priority
exit ladder (stop-loss, breakeven arm, TP2, time limit), throttled by a
per-symbol trade governor. Every (profile, risk) variant produces its own
trade ledger; the aggregate command summarizes the ledgers over a
trailing window and picks the best variant under a drawdown cap.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var logLevel string

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func setupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

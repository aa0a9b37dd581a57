package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sigbench version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sigbench %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
